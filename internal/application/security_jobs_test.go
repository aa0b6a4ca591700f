package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/vowline/config"
	tpl "github.com/oksasatya/vowline/pkg/mailer/templates"
)

type recordingPublisher struct {
	queue string
	body  any
}

func (p *recordingPublisher) PublishJSON(_ context.Context, queue string, body any) error {
	p.queue, p.body = queue, body
	return nil
}

func TestEnqueueRun(t *testing.T) {
	pub := &recordingPublisher{}

	job, err := EnqueueRun(context.Background(), pub, "security-suite-runs", caller)

	require.NoError(t, err)
	assert.Equal(t, "security-suite-runs", pub.queue)
	assert.Equal(t, job, pub.body)
	assert.Equal(t, caller, job.CallerID)
	assert.NotEmpty(t, job.RequestedAt)
}

func TestEnqueueRun_NoQueue(t *testing.T) {
	_, err := EnqueueRun(context.Background(), nil, "q", caller)

	assert.ErrorIs(t, err, ErrQueueUnavailable)
}

func TestFailureAlert(t *testing.T) {
	cfg := &config.Config{AlertEmail: "security@example.test", CompanyName: "Vowline", AppName: "vowline"}
	st := finishedState()

	job, ok := FailureAlert(cfg, st)

	require.True(t, ok)
	assert.Equal(t, "security@example.test", job.To)
	assert.Equal(t, tpl.SuiteFailed, job.Template)
	assert.Equal(t, "run-7", job.Data["RunID"])
	assert.Equal(t, "Vowline security", job.Data["Name"])
	failures, _ := job.Data["Failures"].([]any)
	require.Len(t, failures, 1)
	assert.Equal(t, "upload_security", failures[0].(map[string]any)["Key"])
}

func TestFailureAlert_Skipped(t *testing.T) {
	st := finishedState()

	_, ok := FailureAlert(&config.Config{}, st)
	assert.False(t, ok, "no alert address")

	clean := newSuiteState(caller, catalogue())
	_, ok = FailureAlert(&config.Config{AlertEmail: "a@example.test"}, clean)
	assert.False(t, ok, "nothing failed")
}

type stubRunner struct {
	st  *SuiteState
	err error
}

func (r *stubRunner) RunAll(_ context.Context, _ string) (*SuiteState, error) {
	return r.st, r.err
}

func alertConfig() *config.Config {
	return &config.Config{
		AlertEmail:         "security@example.test",
		CompanyName:        "Vowline",
		MailSendEnabled:    true,
		RabbitMQEmailQueue: "emails",
	}
}

func TestHandleSuiteJob(t *testing.T) {
	body := []byte(`{"caller_id":"caller-1"}`)

	tests := []struct {
		name      string
		body      []byte
		runner    *stubRunner
		want      JobDisposition
		wantAlert bool
	}{
		{name: "malformed body", body: []byte("{"), runner: &stubRunner{}, want: JobDiscard},
		{name: "missing caller", body: []byte(`{}`), runner: &stubRunner{}, want: JobDiscard},
		{name: "busy caller", body: body, runner: &stubRunner{err: ErrSuiteBusy}, want: JobAck},
		{name: "store down", body: body, runner: &stubRunner{err: errors.New("redis down")}, want: JobRequeue},
		{name: "all passed", body: body, runner: &stubRunner{st: newSuiteState(caller, catalogue())}, want: JobAck},
		{name: "failures alert", body: body, runner: &stubRunner{st: finishedState()}, want: JobAck, wantAlert: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &recordingPublisher{}

			got := HandleSuiteJob(context.Background(), alertConfig(), tt.runner, pub, nil, tt.body)

			assert.Equal(t, tt.want, got)
			if tt.wantAlert {
				assert.Equal(t, "emails", pub.queue)
				assert.NotNil(t, pub.body)
			} else {
				assert.Nil(t, pub.body)
			}
		})
	}
}

func TestHandleSuiteJob_InterruptedRunIsRequeuedWithoutAlert(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pub := &recordingPublisher{}
	suite := newTestSuite(&fakeProbe{}, &fakePhotos{onList: cancel}, newMemStore())

	got := HandleSuiteJob(ctx, alertConfig(), suite, pub, nil, []byte(`{"caller_id":"caller-1"}`))

	assert.Equal(t, JobRequeue, got)
	assert.Nil(t, pub.body, "cancellations are not findings")
}
