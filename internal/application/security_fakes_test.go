package application

import (
	"context"
	"sync"
	"time"

	"github.com/oksasatya/vowline/internal/domain/entity"
	repo "github.com/oksasatya/vowline/internal/domain/repository"
	"github.com/oksasatya/vowline/pkg/helpers"
)

const caller = "caller-1"

// fakeProbe answers every probe query from its fields. errs fails a
// query by method name; panics makes it panic instead.
type fakeProbe struct {
	profiles      []entity.MemberProfile
	photos        []entity.ProfilePhoto
	subscriptions []entity.Subscription
	views         []entity.SupplierView

	sent      int
	own       *entity.Subscription
	messages  []entity.Message
	interests map[string]*entity.Interest
	blocks    []entity.BlockedUser
	visible   []entity.MemberProfile
	searchN   int
	accepted  []entity.Interest
	mutual    map[string]bool
	counts    map[repo.Baseline]int

	errs   map[string]error
	panics string

	mu    sync.Mutex
	calls []string
}

func (f *fakeProbe) hit(ctx context.Context, method string) error {
	f.mu.Lock()
	f.calls = append(f.calls, method)
	f.mu.Unlock()
	if f.panics == method {
		panic("boom in " + method)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.errs[method]
}

func (f *fakeProbe) ForeignProfiles(ctx context.Context, _, _ string, _ int) ([]entity.MemberProfile, error) {
	if err := f.hit(ctx, "ForeignProfiles"); err != nil {
		return nil, err
	}
	return f.profiles, nil
}

func (f *fakeProbe) ForeignPhotos(ctx context.Context, _, _ string, _ int) ([]entity.ProfilePhoto, error) {
	if err := f.hit(ctx, "ForeignPhotos"); err != nil {
		return nil, err
	}
	return f.photos, nil
}

func (f *fakeProbe) ForeignSubscriptions(ctx context.Context, _ string, _ int) ([]entity.Subscription, error) {
	if err := f.hit(ctx, "ForeignSubscriptions"); err != nil {
		return nil, err
	}
	return f.subscriptions, nil
}

func (f *fakeProbe) ForeignSupplierViews(ctx context.Context, _ string, _ int) ([]entity.SupplierView, error) {
	if err := f.hit(ctx, "ForeignSupplierViews"); err != nil {
		return nil, err
	}
	return f.views, nil
}

func (f *fakeProbe) InterestsSentSince(ctx context.Context, _ string, _ time.Time) (int, error) {
	if err := f.hit(ctx, "InterestsSentSince"); err != nil {
		return 0, err
	}
	return f.sent, nil
}

func (f *fakeProbe) OwnSubscription(ctx context.Context, _ string) (*entity.Subscription, error) {
	if err := f.hit(ctx, "OwnSubscription"); err != nil {
		return nil, err
	}
	return f.own, nil
}

func (f *fakeProbe) RecentMessages(ctx context.Context, _ string, _ int) ([]entity.Message, error) {
	if err := f.hit(ctx, "RecentMessages"); err != nil {
		return nil, err
	}
	return f.messages, nil
}

func (f *fakeProbe) InterestBetween(ctx context.Context, _, _, b string) (*entity.Interest, error) {
	if err := f.hit(ctx, "InterestBetween"); err != nil {
		return nil, err
	}
	return f.interests[b], nil
}

func (f *fakeProbe) BlockedByCaller(ctx context.Context, _ string) ([]entity.BlockedUser, error) {
	if err := f.hit(ctx, "BlockedByCaller"); err != nil {
		return nil, err
	}
	return f.blocks, nil
}

func (f *fakeProbe) ProfilesOf(ctx context.Context, _ string, _ []string) ([]entity.MemberProfile, error) {
	if err := f.hit(ctx, "ProfilesOf"); err != nil {
		return nil, err
	}
	return f.visible, nil
}

func (f *fakeProbe) SearchProfiles(ctx context.Context, _ string, _ int) (int, error) {
	if err := f.hit(ctx, "SearchProfiles"); err != nil {
		return 0, err
	}
	return f.searchN, nil
}

func (f *fakeProbe) AcceptedInterests(ctx context.Context, _ string, _ int) ([]entity.Interest, error) {
	if err := f.hit(ctx, "AcceptedInterests"); err != nil {
		return nil, err
	}
	return f.accepted, nil
}

func (f *fakeProbe) IsMutualInterest(ctx context.Context, _, a, b string) (bool, error) {
	if err := f.hit(ctx, "IsMutualInterest"); err != nil {
		return false, err
	}
	return f.mutual[a+"|"+b], nil
}

func (f *fakeProbe) Count(ctx context.Context, b repo.Baseline, _ string) (int, error) {
	if err := f.hit(ctx, "Count"); err != nil {
		return 0, err
	}
	return f.counts[b], nil
}

type fakePhotos struct {
	objects []helpers.ObjectInfo
	err     error
	prefix  string
	onList  func()
}

func (f *fakePhotos) List(ctx context.Context, prefix string) ([]helpers.ObjectInfo, error) {
	f.prefix = prefix
	if f.onList != nil {
		f.onList()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.objects, f.err
}

// memStore keeps the latest state and a copy of every snapshot saved.
type memStore struct {
	mu        sync.Mutex
	latest    map[string]*SuiteState
	snapshots []SuiteState
	held      map[string]string
	lockErr   error
	unlocked  int
}

func newMemStore() *memStore {
	return &memStore{latest: map[string]*SuiteState{}, held: map[string]string{}}
}

func cloneState(st *SuiteState) SuiteState {
	cp := *st
	cp.Checks = append([]CheckState(nil), st.Checks...)
	return cp
}

func (m *memStore) Save(ctx context.Context, st *SuiteState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := cloneState(st)
	m.latest[st.CallerID] = &cp
	m.snapshots = append(m.snapshots, cloneState(st))
	return nil
}

func (m *memStore) Load(_ context.Context, callerID string) (*SuiteState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.latest[callerID]
	if !ok {
		return nil, nil
	}
	cp := cloneState(st)
	return &cp, nil
}

func (m *memStore) Lock(_ context.Context, callerID, owner string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lockErr != nil {
		return false, m.lockErr
	}
	if _, busy := m.held[callerID]; busy {
		return false, nil
	}
	m.held[callerID] = owner
	return true, nil
}

func (m *memStore) Unlock(_ context.Context, callerID, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[callerID] == owner {
		delete(m.held, callerID)
		m.unlocked++
	}
	return nil
}

type fakeAudit struct {
	events    []entity.AuditEvent
	recent    []entity.AuditEvent
	recentErr error
}

func (f *fakeAudit) Recent(_ context.Context, limit int) ([]entity.AuditEvent, error) {
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	if len(f.recent) > limit {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

func (f *fakeAudit) Append(ctx context.Context, e *entity.AuditEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.events = append(f.events, *e)
	return nil
}

type fakeRecorder struct {
	runs []SuiteState
}

func (f *fakeRecorder) IndexRun(ctx context.Context, st *SuiteState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.runs = append(f.runs, cloneState(st))
	return nil
}

func newTestSuite(p *fakeProbe, photos PhotoLister, store ReportStore) *SecuritySuite {
	return NewSecuritySuite(p, photos, store, nil, nil, nil, SuiteConfig{
		QueryTimeout:  time.Second,
		PhotoBucket:   "profile-photos",
		PhotoMaxBytes: 5 << 20,
	})
}
