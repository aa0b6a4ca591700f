package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oksasatya/vowline/internal/domain/entity"
	"github.com/oksasatya/vowline/internal/domain/repository"
)

var ErrUnknownBaseline = errors.New("unknown baseline")

// Unscoped counts. Each excludes rows owned by $1, the caller.
var baselineQueries = map[repository.Baseline]string{
	repository.BaselinePrivateProfiles: `SELECT count(*) FROM member_profiles WHERE visibility = 'private' AND user_id <> $1::uuid`,
	repository.BaselinePrivatePhotos:   `SELECT count(*) FROM profile_photos WHERE visibility = 'private' AND owner_id <> $1::uuid`,
	repository.BaselineSubscriptions:   `SELECT count(*) FROM subscriptions WHERE user_id <> $1::uuid`,
	repository.BaselineSupplierViews: `SELECT count(*) FROM supplier_views v
		JOIN suppliers s ON s.id = v.supplier_id
		WHERE s.owner_id <> $1::uuid`,
}

// ProbeRepository runs the self-check queries. Scoped reads switch the
// transaction to the RLS role and publish the caller id the policies
// read through app.current_user_id().
type ProbeRepository struct {
	db   *sql.DB
	role string
}

func NewProbeRepository(db *sql.DB, role string) *ProbeRepository {
	return &ProbeRepository{db: db, role: role}
}

func (r *ProbeRepository) scoped(ctx context.Context, callerID string, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin scoped tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`SELECT set_config('role', $1, true), set_config('request.jwt.claim.sub', $2, true)`,
		r.role, callerID); err != nil {
		return fmt.Errorf("scope to caller: %w", err)
	}
	return fn(tx)
}

func (r *ProbeRepository) scopedCount(ctx context.Context, callerID, query string, args ...any) (int, error) {
	var n int
	err := r.scoped(ctx, callerID, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, query, args...).Scan(&n)
	})
	return n, err
}

func (r *ProbeRepository) ForeignProfiles(ctx context.Context, callerID, visibility string, limit int) ([]entity.MemberProfile, error) {
	var out []entity.MemberProfile
	err := r.scoped(ctx, callerID, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, user_id, display_name, visibility, COALESCE(city, ''), created_at, updated_at
			FROM member_profiles
			WHERE visibility = $1 AND user_id <> $2::uuid
			LIMIT $3
		`, visibility, callerID, limit)
		if err != nil {
			return err
		}
		out, err = scanProfiles(rows)
		return err
	})
	return out, err
}

func (r *ProbeRepository) ProfilesOf(ctx context.Context, callerID string, userIDs []string) ([]entity.MemberProfile, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var out []entity.MemberProfile
	err := r.scoped(ctx, callerID, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, user_id, display_name, visibility, COALESCE(city, ''), created_at, updated_at
			FROM member_profiles
			WHERE user_id = ANY($1::uuid[])
		`, userIDs)
		if err != nil {
			return err
		}
		out, err = scanProfiles(rows)
		return err
	})
	return out, err
}

func scanProfiles(rows *sql.Rows) ([]entity.MemberProfile, error) {
	defer func() { _ = rows.Close() }()
	var out []entity.MemberProfile
	for rows.Next() {
		var p entity.MemberProfile
		if err := rows.Scan(&p.ID, &p.UserID, &p.DisplayName, &p.Visibility, &p.City, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProbeRepository) ForeignPhotos(ctx context.Context, callerID, visibility string, limit int) ([]entity.ProfilePhoto, error) {
	var out []entity.ProfilePhoto
	err := r.scoped(ctx, callerID, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, owner_id, object_path, visibility, created_at
			FROM profile_photos
			WHERE visibility = $1 AND owner_id <> $2::uuid
			LIMIT $3
		`, visibility, callerID, limit)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var p entity.ProfilePhoto
			if err := rows.Scan(&p.ID, &p.OwnerID, &p.ObjectPath, &p.Visibility, &p.CreatedAt); err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	return out, err
}

func (r *ProbeRepository) ForeignSubscriptions(ctx context.Context, callerID string, limit int) ([]entity.Subscription, error) {
	var out []entity.Subscription
	err := r.scoped(ctx, callerID, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, user_id, tier, status, expires_at, created_at
			FROM subscriptions
			WHERE user_id <> $1::uuid
			LIMIT $2
		`, callerID, limit)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			s, err := scanSubscription(rows)
			if err != nil {
				return err
			}
			out = append(out, *s)
		}
		return rows.Err()
	})
	return out, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*entity.Subscription, error) {
	var (
		s       entity.Subscription
		expires sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.Tier, &s.Status, &expires, &s.CreatedAt); err != nil {
		return nil, err
	}
	if expires.Valid {
		t := expires.Time
		s.ExpiresAt = &t
	}
	return &s, nil
}

func (r *ProbeRepository) OwnSubscription(ctx context.Context, callerID string) (*entity.Subscription, error) {
	var sub *entity.Subscription
	err := r.scoped(ctx, callerID, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT id, user_id, tier, status, expires_at, created_at
			FROM subscriptions
			WHERE user_id = $1::uuid
			ORDER BY created_at DESC
			LIMIT 1
		`, callerID)
		s, err := scanSubscription(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		sub = s
		return err
	})
	return sub, err
}

func (r *ProbeRepository) ForeignSupplierViews(ctx context.Context, callerID string, limit int) ([]entity.SupplierView, error) {
	var out []entity.SupplierView
	err := r.scoped(ctx, callerID, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT v.id, v.supplier_id, COALESCE(v.viewer_id::text, ''), v.created_at
			FROM supplier_views v
			JOIN suppliers s ON s.id = v.supplier_id
			WHERE s.owner_id <> $1::uuid
			LIMIT $2
		`, callerID, limit)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var v entity.SupplierView
			if err := rows.Scan(&v.ID, &v.SupplierID, &v.ViewerID, &v.CreatedAt); err != nil {
				return err
			}
			out = append(out, v)
		}
		return rows.Err()
	})
	return out, err
}

func (r *ProbeRepository) InterestsSentSince(ctx context.Context, callerID string, since time.Time) (int, error) {
	return r.scopedCount(ctx, callerID,
		`SELECT count(*) FROM interests WHERE sender_id = $1::uuid AND created_at >= $2`, callerID, since)
}

// RecentMessages returns the newest messages the caller can read. Only
// the row policies narrow the result, so a leaking policy shows up as
// messages between other members.
func (r *ProbeRepository) RecentMessages(ctx context.Context, callerID string, limit int) ([]entity.Message, error) {
	var out []entity.Message
	err := r.scoped(ctx, callerID, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, thread_id, sender_id, recipient_id, body, created_at
			FROM messages
			ORDER BY created_at DESC
			LIMIT $1
		`, limit)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var m entity.Message
			if err := rows.Scan(&m.ID, &m.ThreadID, &m.SenderID, &m.RecipientID, &m.Body, &m.CreatedAt); err != nil {
				return err
			}
			out = append(out, m)
		}
		return rows.Err()
	})
	return out, err
}

// InterestBetween returns the interest linking a and b, preferring an
// accepted one. It returns nil when the pair has none.
func (r *ProbeRepository) InterestBetween(ctx context.Context, callerID, a, b string) (*entity.Interest, error) {
	var out *entity.Interest
	err := r.scoped(ctx, callerID, func(tx *sql.Tx) error {
		var in entity.Interest
		err := tx.QueryRowContext(ctx, `
			SELECT id, sender_id, recipient_id, status, created_at, updated_at
			FROM interests
			WHERE (sender_id = $1::uuid AND recipient_id = $2::uuid)
			   OR (sender_id = $2::uuid AND recipient_id = $1::uuid)
			ORDER BY (status = 'accepted') DESC, updated_at DESC
			LIMIT 1
		`, a, b).Scan(&in.ID, &in.SenderID, &in.RecipientID, &in.Status, &in.CreatedAt, &in.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		out = &in
		return nil
	})
	return out, err
}

func (r *ProbeRepository) BlockedByCaller(ctx context.Context, callerID string) ([]entity.BlockedUser, error) {
	var out []entity.BlockedUser
	err := r.scoped(ctx, callerID, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, blocker_id, blocked_id, created_at
			FROM blocked_users
			WHERE blocker_id = $1::uuid
		`, callerID)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var b entity.BlockedUser
			if err := rows.Scan(&b.ID, &b.BlockerID, &b.BlockedID, &b.CreatedAt); err != nil {
				return err
			}
			out = append(out, b)
		}
		return rows.Err()
	})
	return out, err
}

func (r *ProbeRepository) SearchProfiles(ctx context.Context, callerID string, limit int) (int, error) {
	return r.scopedCount(ctx, callerID, `
		SELECT count(*) FROM (
			SELECT id FROM member_profiles
			WHERE visibility <> 'private'
			ORDER BY updated_at DESC
			LIMIT $1
		) p`, limit)
}

// AcceptedInterests returns the accepted interests the caller can read,
// narrowed by the row policies alone.
func (r *ProbeRepository) AcceptedInterests(ctx context.Context, callerID string, limit int) ([]entity.Interest, error) {
	var out []entity.Interest
	err := r.scoped(ctx, callerID, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, sender_id, recipient_id, status, created_at, updated_at
			FROM interests
			WHERE status = 'accepted'
			ORDER BY updated_at DESC
			LIMIT $1
		`, limit)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var in entity.Interest
			if err := rows.Scan(&in.ID, &in.SenderID, &in.RecipientID, &in.Status, &in.CreatedAt, &in.UpdatedAt); err != nil {
				return err
			}
			out = append(out, in)
		}
		return rows.Err()
	})
	return out, err
}

func (r *ProbeRepository) IsMutualInterest(ctx context.Context, callerID, a, b string) (bool, error) {
	var ok bool
	err := r.scoped(ctx, callerID, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `SELECT is_mutual_interest($1::uuid, $2::uuid)`, a, b).Scan(&ok)
	})
	return ok, err
}

func (r *ProbeRepository) Count(ctx context.Context, b repository.Baseline, callerID string) (int, error) {
	q, ok := baselineQueries[b]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownBaseline, b)
	}
	var n int
	if err := r.db.QueryRowContext(ctx, q, callerID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

var _ repository.SecurityProbe = (*ProbeRepository)(nil)
