package container

import (
	"github.com/oksasatya/vowline/internal/application"
	repo "github.com/oksasatya/vowline/internal/domain/repository"
	pginfra "github.com/oksasatya/vowline/internal/infrastructure/postgres"
)

// NewSecuritySuite wires the self-check suite from the registered
// singletons. SQL DB, Redis and config must be set; GCS, Elasticsearch
// and the audit pool are optional.
func NewSecuritySuite() *application.SecuritySuite {
	var photos application.PhotoLister
	if b := PhotoBucket(); b != nil {
		photos = b
	}
	cfg := GetConfig()
	return application.NewSecuritySuite(
		pginfra.NewProbeRepository(GetSQLDB(), cfg.DBScopedRole),
		photos,
		application.NewRedisReportStore(GetRedis(), cfg.SuiteReportTTL, cfg.SuiteLockTTL),
		AuditRepository(),
		NewRunIndex(),
		GetLogger(),
		application.SuiteConfig{
			Pace:          cfg.SuitePace,
			QueryTimeout:  cfg.SuiteQueryTimeout,
			PhotoBucket:   cfg.PhotoBucket,
			PhotoMaxBytes: cfg.PhotoMaxBytes,
		},
	)
}

// AuditRepository returns the audit log store, nil without a pool.
func AuditRepository() repo.AuditRepository {
	if GetPGPool() == nil {
		return nil
	}
	return pginfra.NewAuditRepository(GetPGPool())
}

// NewRunIndex returns the Elasticsearch run index; it is a no-op when ES
// is not configured.
func NewRunIndex() *application.RunIndex {
	return application.NewRunIndex(GetES(), GetConfig().ESRunsIndex, GetLogger())
}

// JobPublisher returns the RabbitMQ publisher as an interface, nil when
// RabbitMQ is not connected.
func JobPublisher() application.JobPublisher {
	if p := GetRabbitPub(); p != nil {
		return p
	}
	return nil
}
