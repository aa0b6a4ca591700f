package router

import (
	"github.com/oksasatya/vowline/internal/application"
	"github.com/oksasatya/vowline/internal/container"
	pginfra "github.com/oksasatya/vowline/internal/infrastructure/postgres"
	handlers "github.com/oksasatya/vowline/internal/interface/http"
	"github.com/oksasatya/vowline/internal/router/modules"
)

func buildUserHandler() *handlers.UserHandler {
	cfg := container.GetConfig()
	service := application.NewService(
		pginfra.NewUserRepository(container.GetPGPool()),
		container.AuditRepository(),
		container.GetJWT(),
		container.GetRedis(),
		container.GetLogger(),
	)
	return handlers.NewUserHandler(service, container.GetLogger(), cfg.CookieDomain, cfg.CookieSecure)
}

func buildSecurityHandlers() (*handlers.SecurityHandler, *handlers.DashboardHandler) {
	cfg := container.GetConfig()
	security := handlers.NewSecurityHandler(
		container.NewSecuritySuite(),
		container.NewRunIndex(),
		container.JobPublisher(),
		cfg.RabbitMQSuiteQueue,
		container.GetLogger(),
	)
	dashboard := handlers.NewDashboardHandler(
		application.NewDashboard(container.AuditRepository(), container.GetLogger()),
	)
	return security, dashboard
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	jwt := container.GetJWT()
	r.Add(modules.NewUserModule(buildUserHandler(), jwt))

	security, dashboard := buildSecurityHandlers()
	r.Add(modules.NewSecurityModule(security, dashboard, jwt))

	if container.GetConfig().DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
