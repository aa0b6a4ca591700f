package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/vowline/internal/domain/repository"
)

const callerID = "11111111-1111-1111-1111-111111111111"

func setupProbe(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *ProbeRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock, NewProbeRepository(db, "authenticated")
}

func expectScope(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectExec(`set_config\('role', \$1, true\)`).
		WithArgs("authenticated", callerID).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestForeignProfiles_ScopedToCaller(t *testing.T) {
	_, mock, repo := setupProbe(t)
	now := time.Now()

	expectScope(mock)
	mock.ExpectQuery(`FROM member_profiles`).
		WithArgs("private", callerID, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "display_name", "visibility", "city", "created_at", "updated_at"}).
			AddRow("p-1", "u-2", "Asha", "private", "Pune", now, now))
	mock.ExpectRollback()

	profiles, err := repo.ForeignProfiles(context.Background(), callerID, "private", 10)

	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "u-2", profiles[0].UserID)
	assert.Equal(t, "Pune", profiles[0].City)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestForeignProfiles_ScopeFailure(t *testing.T) {
	_, mock, repo := setupProbe(t)

	mock.ExpectBegin()
	mock.ExpectExec(`set_config`).WillReturnError(errors.New(`role "authenticated" does not exist`))
	mock.ExpectRollback()

	_, err := repo.ForeignProfiles(context.Background(), callerID, "private", 10)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "scope to caller")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInterestsSentSince(t *testing.T) {
	_, mock, repo := setupProbe(t)

	expectScope(mock)
	mock.ExpectQuery(`SELECT count\(\*\) FROM interests`).
		WithArgs(callerID, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectRollback()

	n, err := repo.InterestsSentSince(context.Background(), callerID, time.Now().Add(-24*time.Hour))

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnSubscription_NoneIsNil(t *testing.T) {
	_, mock, repo := setupProbe(t)

	expectScope(mock)
	mock.ExpectQuery(`FROM subscriptions`).
		WithArgs(callerID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "tier", "status", "expires_at", "created_at"}))
	mock.ExpectRollback()

	sub, err := repo.OwnSubscription(context.Background(), callerID)

	require.NoError(t, err)
	assert.Nil(t, sub)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnSubscription_NullExpiry(t *testing.T) {
	_, mock, repo := setupProbe(t)
	now := time.Now()

	expectScope(mock)
	mock.ExpectQuery(`FROM subscriptions`).
		WithArgs(callerID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "tier", "status", "expires_at", "created_at"}).
			AddRow("s-1", callerID, "premium", "active", nil, now))
	mock.ExpectRollback()

	sub, err := repo.OwnSubscription(context.Background(), callerID)

	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "premium", sub.Tier)
	assert.Nil(t, sub.ExpiresAt)
	assert.True(t, sub.Active(now))
}

func TestInterestBetween_NoRows(t *testing.T) {
	_, mock, repo := setupProbe(t)

	expectScope(mock)
	mock.ExpectQuery(`FROM interests`).
		WithArgs(callerID, "u-9").
		WillReturnRows(sqlmock.NewRows([]string{"id", "sender_id", "recipient_id", "status", "created_at", "updated_at"}))
	mock.ExpectRollback()

	in, err := repo.InterestBetween(context.Background(), callerID, callerID, "u-9")

	require.NoError(t, err)
	assert.Nil(t, in)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsMutualInterest(t *testing.T) {
	_, mock, repo := setupProbe(t)

	expectScope(mock)
	mock.ExpectQuery(`SELECT is_mutual_interest`).
		WithArgs(callerID, "u-2").
		WillReturnRows(sqlmock.NewRows([]string{"is_mutual_interest"}).AddRow(true))
	mock.ExpectRollback()

	ok, err := repo.IsMutualInterest(context.Background(), callerID, callerID, "u-2")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCount_UsesServiceConnection(t *testing.T) {
	_, mock, repo := setupProbe(t)

	mock.ExpectQuery(`FROM member_profiles WHERE visibility = 'private'`).
		WithArgs(callerID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := repo.Count(context.Background(), repository.BaselinePrivateProfiles, callerID)

	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCount_UnknownBaseline(t *testing.T) {
	_, _, repo := setupProbe(t)

	_, err := repo.Count(context.Background(), repository.Baseline("threads"), callerID)

	assert.ErrorIs(t, err, ErrUnknownBaseline)
}

func TestProfilesOf_EmptySkipsQuery(t *testing.T) {
	_, mock, repo := setupProbe(t)

	out, err := repo.ProfilesOf(context.Background(), callerID, nil)

	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentMessages_OnlyRowPoliciesNarrow(t *testing.T) {
	_, mock, repo := setupProbe(t)
	now := time.Now()

	expectScope(mock)
	// no WHERE clause: the caller is named only through set_config
	mock.ExpectQuery(`FROM messages\s+ORDER BY created_at DESC\s+LIMIT \$1`).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "thread_id", "sender_id", "recipient_id", "body", "created_at"}).
			AddRow("m-1", "t-1", "u-2", "u-3", "hi", now))
	mock.ExpectRollback()

	msgs, err := repo.RecentMessages(context.Background(), callerID, 50)

	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "u-3", msgs[0].RecipientID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptedInterests_OnlyRowPoliciesNarrow(t *testing.T) {
	_, mock, repo := setupProbe(t)
	now := time.Now()

	expectScope(mock)
	mock.ExpectQuery(`FROM interests\s+WHERE status = 'accepted'\s+ORDER BY updated_at DESC\s+LIMIT \$1`).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sender_id", "recipient_id", "status", "created_at", "updated_at"}).
			AddRow("i-1", "u-2", "u-3", "accepted", now, now))
	mock.ExpectRollback()

	out, err := repo.AcceptedInterests(context.Background(), callerID, 50)

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.False(t, out[0].Involves(callerID))
	assert.NoError(t, mock.ExpectationsWereMet())
}
