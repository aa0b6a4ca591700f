package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/vowline/internal/domain/entity"
)

func userRow(id string, now time.Time) []any {
	return []any{id, "asha@example.test", "$2a$10$hash", "Asha", "", true, now, now}
}

func TestUserCreate_ScansGeneratedColumns(t *testing.T) {
	now := time.Now()
	db := &fakeDB{rows: [][]any{{"u-1", now, now}}}
	u := &entity.User{Email: "asha@example.test", Password: "$2a$10$hash", Name: "Asha"}

	require.NoError(t, NewUserRepository(db).Create(context.Background(), u))

	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, now, u.CreatedAt)
	assert.Equal(t, []any{"asha@example.test", "$2a$10$hash", "Asha", ""}, db.calls[0].args)
}

func TestUserGetByEmail(t *testing.T) {
	now := time.Now()
	db := &fakeDB{rows: [][]any{userRow("u-1", now)}}

	u, err := NewUserRepository(db).GetByEmail(context.Background(), "asha@example.test")

	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.True(t, u.IsVerified)
	assert.Contains(t, db.calls[0].sql, "WHERE email = $1")
}

func TestUserGetByID_NotFound(t *testing.T) {
	u, err := NewUserRepository(&fakeDB{}).GetByID(context.Background(), "u-404")

	assert.Nil(t, u)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserGetByID_QueryError(t *testing.T) {
	_, err := NewUserRepository(&fakeDB{err: errors.New("conn refused")}).GetByID(context.Background(), "u-1")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestUserUpdate(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 1")}
	u := &entity.User{ID: "u-1", Email: "asha@example.test", Name: "Asha K"}

	require.NoError(t, NewUserRepository(db).Update(context.Background(), u))

	assert.False(t, u.UpdatedAt.IsZero())
	args := db.calls[0].args
	require.Len(t, args, 6)
	assert.Equal(t, "Asha K", args[2])
	assert.Equal(t, "u-1", args[5])
}

func TestUserUpdate_MissingRow(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("UPDATE 0")}

	err := NewUserRepository(db).Update(context.Background(), &entity.User{ID: "u-404"})

	assert.ErrorIs(t, err, ErrNotFound)
}
