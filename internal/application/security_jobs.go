package application

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/vowline/config"
	"github.com/oksasatya/vowline/pkg/helpers"
	"github.com/oksasatya/vowline/pkg/mailer"
	tpl "github.com/oksasatya/vowline/pkg/mailer/templates"
)

// SuiteRunJob asks a worker to run the whole suite for a caller.
type SuiteRunJob struct {
	CallerID    string `json:"caller_id"`
	RequestedAt string `json:"requested_at"`
}

// JobPublisher puts a JSON job on a named queue.
type JobPublisher interface {
	PublishJSON(ctx context.Context, queue string, body any) error
}

// EnqueueRun schedules a run-all for callerID on queue.
func EnqueueRun(ctx context.Context, pub JobPublisher, queue, callerID string) (SuiteRunJob, error) {
	job := SuiteRunJob{CallerID: callerID, RequestedAt: time.Now().UTC().Format(time.RFC3339Nano)}
	if pub == nil {
		return job, ErrQueueUnavailable
	}
	return job, pub.PublishJSON(ctx, queue, job)
}

// FailureAlert builds the alert email for a finished run. ok is false
// when nothing failed or no alert address is configured.
func FailureAlert(cfg *config.Config, st *SuiteState) (job mailer.EmailJob, ok bool) {
	if cfg == nil || cfg.AlertEmail == "" || st == nil || st.Failed == 0 {
		return mailer.EmailJob{}, false
	}
	failed := st.FailedChecks()
	lines := make([]tpl.FailedCheck, 0, len(failed))
	for _, c := range failed {
		lines = append(lines, tpl.FailedCheck{Key: c.Key, Name: c.Name, Result: c.Result})
	}
	opts := []tpl.Option{
		tpl.WithName(cfg.CompanyName + " security"),
		tpl.WithRun(st.RunID, st.CallerID, st.Passed, st.Failed),
		tpl.WithFailures(lines),
	}
	if st.FinishedAt != nil {
		opts = append(opts, tpl.WithTime(*st.FinishedAt))
	}
	data := tpl.NewSuiteFailedData(cfg, cfg.AlertEmail, opts...)
	return mailer.EmailJob{To: cfg.AlertEmail, Template: tpl.SuiteFailed, Data: data}, true
}

// JobDisposition tells the consumer what to do with a delivery.
type JobDisposition int

const (
	JobAck JobDisposition = iota
	JobRequeue
	JobDiscard
)

// SuiteRunner runs the whole suite for a caller.
type SuiteRunner interface {
	RunAll(ctx context.Context, callerID string) (*SuiteState, error)
}

// HandleSuiteJob runs one queued run-all and decides the delivery's fate.
// A run cut short by ctx is requeued without alerting, since its failures
// are cancellations rather than findings.
func HandleSuiteJob(ctx context.Context, cfg *config.Config, runner SuiteRunner, pub JobPublisher, logger *logrus.Logger, body []byte) JobDisposition {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	var job SuiteRunJob
	if err := json.Unmarshal(body, &job); err != nil || job.CallerID == "" {
		logger.WithError(err).Warn("bad suite job")
		return JobDiscard
	}
	log := logger.WithField("caller_id", job.CallerID)

	st, err := runner.RunAll(ctx, job.CallerID)
	switch {
	case errors.Is(err, ErrSuiteBusy):
		// another run for this caller is in flight and covers this request
		log.Info("suite already running, dropping job")
		return JobAck
	case err != nil:
		helpers.LogError(logger, "suite run failed", err, logrus.Fields{"caller_id": job.CallerID})
		return JobRequeue
	case ctx.Err() != nil:
		log.WithField("run_id", st.RunID).Warn("suite run interrupted, requeueing job")
		return JobRequeue
	}
	helpers.LogInfo(logger, "suite run finished", logrus.Fields{
		"caller_id": job.CallerID,
		"run_id":    st.RunID,
		"passed":    st.Passed,
		"failed":    st.Failed,
	})

	if alert, ok := FailureAlert(cfg, st); ok && cfg.MailSendEnabled && pub != nil {
		c, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := pub.PublishJSON(c, cfg.RabbitMQEmailQueue, alert); err != nil {
			log.WithError(err).Warn("failed to queue failure alert")
		}
		cancel()
	}
	return JobAck
}
