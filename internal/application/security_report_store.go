package application

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/vowline/pkg/helpers"
)

func suiteKey(callerID string) string {
	return "security:suite:" + callerID
}

func suiteLockKey(callerID string) string {
	return "security:suite:lock:" + callerID
}

// RedisReportStore keeps the latest suite state per caller as JSON.
type RedisReportStore struct {
	rdb     *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

func NewRedisReportStore(rdb *redis.Client, ttl, lockTTL time.Duration) *RedisReportStore {
	return &RedisReportStore{rdb: rdb, ttl: ttl, lockTTL: lockTTL}
}

func (s *RedisReportStore) Save(ctx context.Context, st *SuiteState) error {
	return helpers.RedisSetJSON(ctx, s.rdb, suiteKey(st.CallerID), st, s.ttl)
}

// Load returns nil, nil when the caller has no stored state.
func (s *RedisReportStore) Load(ctx context.Context, callerID string) (*SuiteState, error) {
	var st SuiteState
	ok, err := helpers.RedisGetJSON(ctx, s.rdb, suiteKey(callerID), &st)
	if err != nil || !ok {
		return nil, err
	}
	return &st, nil
}

func (s *RedisReportStore) Lock(ctx context.Context, callerID, owner string) (bool, error) {
	return helpers.RedisTryLock(ctx, s.rdb, suiteLockKey(callerID), owner, s.lockTTL)
}

func (s *RedisReportStore) Unlock(ctx context.Context, callerID, owner string) error {
	return helpers.RedisUnlock(ctx, s.rdb, suiteLockKey(callerID), owner)
}

var _ ReportStore = (*RedisReportStore)(nil)
