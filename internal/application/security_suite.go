package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/vowline/internal/domain/entity"
	repo "github.com/oksasatya/vowline/internal/domain/repository"
	"github.com/oksasatya/vowline/pkg/helpers"
)

// PhotoLister lists objects of the profile photo bucket.
type PhotoLister interface {
	List(ctx context.Context, prefix string) ([]helpers.ObjectInfo, error)
}

// ReportStore persists suite state per caller and serializes runs.
type ReportStore interface {
	Save(ctx context.Context, st *SuiteState) error
	Load(ctx context.Context, callerID string) (*SuiteState, error)
	Lock(ctx context.Context, callerID, owner string) (bool, error)
	Unlock(ctx context.Context, callerID, owner string) error
}

// RunRecorder receives finished run-all reports.
type RunRecorder interface {
	IndexRun(ctx context.Context, st *SuiteState) error
}

type SuiteConfig struct {
	Pace          time.Duration
	QueryTimeout  time.Duration
	PhotoBucket   string
	PhotoMaxBytes int64
}

// SecuritySuite runs the authorization self-checks for a caller.
type SecuritySuite struct {
	probe  repo.SecurityProbe
	photos PhotoLister
	store  ReportStore
	audit  repo.AuditRepository
	index  RunRecorder
	logger *logrus.Logger

	pace          time.Duration
	queryTimeout  time.Duration
	photoBucket   string
	photoMaxBytes int64

	checks []Check
	now    func() time.Time
}

func NewSecuritySuite(probe repo.SecurityProbe, photos PhotoLister, store ReportStore, audit repo.AuditRepository, index RunRecorder, logger *logrus.Logger, cfg SuiteConfig) *SecuritySuite {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return &SecuritySuite{
		probe:         probe,
		photos:        photos,
		store:         store,
		audit:         audit,
		index:         index,
		logger:        logger,
		pace:          cfg.Pace,
		queryTimeout:  cfg.QueryTimeout,
		photoBucket:   cfg.PhotoBucket,
		photoMaxBytes: cfg.PhotoMaxBytes,
		checks:        catalogue(),
		now:           time.Now,
	}
}

// Catalogue returns the checks in run order.
func (s *SecuritySuite) Catalogue() []Check {
	out := make([]Check, len(s.checks))
	copy(out, s.checks)
	return out
}

func (s *SecuritySuite) lookup(key string) (Check, bool) {
	for _, c := range s.checks {
		if c.Key == key {
			return c, true
		}
	}
	return Check{}, false
}

// State returns the caller's latest suite state, all pending when the
// caller has never run a check.
func (s *SecuritySuite) State(ctx context.Context, callerID string) (*SuiteState, error) {
	st, err := s.store.Load(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = newSuiteState(callerID, s.checks)
	}
	return st, nil
}

// RunCheck runs a single check on demand. A finished check restarts from
// running.
func (s *SecuritySuite) RunCheck(ctx context.Context, callerID, key string) (CheckState, error) {
	c, ok := s.lookup(key)
	if !ok {
		return CheckState{}, fmt.Errorf("%w: %s", ErrUnknownCheck, key)
	}
	release, err := s.acquire(ctx, callerID)
	if err != nil {
		return CheckState{}, err
	}
	defer release()

	st, err := s.State(ctx, callerID)
	if err != nil {
		return CheckState{}, err
	}
	// Nothing else can be running while the lock is held.
	if st.abandon() {
		s.logger.WithField("caller_id", callerID).Warn("stale running suite state cleared")
	}
	s.runOne(ctx, st, c)
	res, _ := st.Check(key)
	return res, nil
}

// RunAll visits every check once, in catalogue order, pausing between
// checks. A failed check does not stop the run.
func (s *SecuritySuite) RunAll(ctx context.Context, callerID string) (*SuiteState, error) {
	release, err := s.acquire(ctx, callerID)
	if err != nil {
		return nil, err
	}
	defer release()

	st, err := s.State(ctx, callerID)
	if err != nil {
		return nil, err
	}
	st.reset(uuid.NewString(), s.now())
	s.save(ctx, st)

	log := s.logger.WithFields(logrus.Fields{"run_id": st.RunID, "caller_id": callerID})
	log.Info("security suite started")

	for i, c := range s.checks {
		if i > 0 {
			s.pause(ctx)
		}
		s.runOne(ctx, st, c)
		st.OverallProgress = progress(i+1, len(s.checks))
		s.save(ctx, st)
	}

	finished := s.now()
	st.Running = false
	st.FinishedAt = &finished
	s.save(ctx, st)

	log.WithFields(logrus.Fields{"passed": st.Passed, "failed": st.Failed}).Info("security suite finished")
	s.record(ctx, st)
	return st, nil
}

func (s *SecuritySuite) acquire(ctx context.Context, callerID string) (func(), error) {
	owner := uuid.NewString()
	ok, err := s.store.Lock(ctx, callerID, owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSuiteBusy
	}
	return func() {
		// Released on a fresh context so a cancelled run still unlocks.
		c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.store.Unlock(c, callerID, owner); err != nil {
			s.logger.WithError(err).WithField("caller_id", callerID).Warn("suite unlock failed")
		}
	}, nil
}

// runOne drives one check through running to a terminal state and
// persists both transitions.
func (s *SecuritySuite) runOne(ctx context.Context, st *SuiteState, c Check) {
	if err := st.start(c.Key, s.now()); err != nil {
		s.logger.WithError(err).WithField("check", c.Key).Warn("check not started")
		return
	}
	s.save(ctx, st)

	start := s.now()
	out, err := s.execute(ctx, st.CallerID, c)
	elapsed := s.now().Sub(start)
	st.finish(c.Key, out, err, elapsed, s.now())

	fields := logrus.Fields{"check": c.Key, "caller_id": st.CallerID, "duration_ms": elapsed.Milliseconds()}
	res, _ := st.Check(c.Key)
	if res.Status == StatusFailed {
		s.logger.WithFields(fields).WithField("result", res.Result).Warn("security check failed")
	} else {
		s.logger.WithFields(fields).Debug("security check passed")
	}
	s.save(ctx, st)
}

// execute runs the check body. Query errors and panics both come back as
// err so the check can never stay running.
func (s *SecuritySuite) execute(ctx context.Context, callerID string, c Check) (out Outcome, err error) {
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	out, err = c.run(s, ctx, callerID)
	if err != nil {
		s.logger.WithError(err).WithField("check", c.Key).Error("security check query failed")
	}
	return out, err
}

func (s *SecuritySuite) pause(ctx context.Context) {
	if s.pace <= 0 {
		return
	}
	t := time.NewTimer(s.pace)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// persistTimeout bounds writes made after the caller's context is gone.
const persistTimeout = 3 * time.Second

// detached keeps ctx values but not its cancellation, so a run cut short
// still lands its final state.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
}

func (s *SecuritySuite) save(ctx context.Context, st *SuiteState) {
	ctx, cancel := detached(ctx)
	defer cancel()
	if err := s.store.Save(ctx, st); err != nil {
		s.logger.WithError(err).WithField("caller_id", st.CallerID).Warn("suite state not saved")
	}
}

// record appends the audit row and indexes the report; both best effort.
func (s *SecuritySuite) record(ctx context.Context, st *SuiteState) {
	ctx, cancel := detached(ctx)
	defer cancel()
	if s.audit != nil {
		severity := entity.SeverityInfo
		if st.Failed > 0 {
			severity = entity.SeverityWarning
		}
		ev := &entity.AuditEvent{
			UserID:   st.CallerID,
			Action:   "security_suite_run",
			Severity: severity,
			Metadata: map[string]any{"run_id": st.RunID, "passed": st.Passed, "failed": st.Failed},
		}
		if err := s.audit.Append(ctx, ev); err != nil {
			s.logger.WithError(err).WithField("run_id", st.RunID).Warn("audit append failed")
		}
	}
	if s.index != nil {
		if err := s.index.IndexRun(ctx, st); err != nil {
			s.logger.WithError(err).WithField("run_id", st.RunID).Warn("run index failed")
		}
	}
}
