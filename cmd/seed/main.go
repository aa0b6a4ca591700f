package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/oksasatya/vowline/config"
	pginfra "github.com/oksasatya/vowline/internal/infrastructure/postgres"
	"github.com/oksasatya/vowline/pkg/helpers"
)

type member struct {
	email, name, visibility, tier string
}

// Seeds a demo caller plus two members whose private data the caller must
// not see, so the isolation checks have something to verify.
var members = []member{
	{email: "demo@vowline.test", name: "Demo User", visibility: "public", tier: "premium"},
	{email: "private@vowline.test", name: "Private Member", visibility: "private", tier: "elite"},
	{email: "matches@vowline.test", name: "Matches Only", visibility: "matches_only", tier: "free"},
}

const password = "password123"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()

	db, err := pginfra.OpenDB(ctx, cfg.PostgresDSN(), 2, 0)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	ids := make([]string, len(members))
	for i, m := range members {
		id, err := seedMember(ctx, db, m, hash)
		if err != nil {
			log.Fatalf("failed to seed %s: %v", m.email, err)
		}
		ids[i] = id
		fmt.Printf("seeded member: id=%s email=%s visibility=%s tier=%s\n", id, m.email, m.visibility, m.tier)
	}

	// the demo caller blocks the matches_only member
	if _, err := db.ExecContext(ctx, `
		INSERT INTO blocked_users (blocker_id, blocked_id)
		VALUES ($1, $2)
		ON CONFLICT (blocker_id, blocked_id) DO NOTHING
	`, ids[0], ids[2]); err != nil {
		log.Fatalf("failed to seed block: %v", err)
	}
	fmt.Printf("login with %s / %s\n", members[0].email, password)
}

func seedMember(ctx context.Context, db *sql.DB, m member, hash string) (string, error) {
	var id string
	err := db.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, name, is_verified)
		VALUES ($1, $2, $3, true)
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, updated_at = now()
		RETURNING id
	`, m.email, hash, m.name).Scan(&id)
	if err != nil {
		return "", err
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO member_profiles (user_id, display_name, visibility)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET visibility = EXCLUDED.visibility, updated_at = now()
	`, id, m.name, m.visibility); err != nil {
		return "", err
	}
	if _, err := db.ExecContext(ctx, `
		INSERT INTO subscriptions (user_id, tier)
		SELECT $1::uuid, $2
		WHERE NOT EXISTS (SELECT 1 FROM subscriptions WHERE user_id = $1::uuid)
	`, id, m.tier); err != nil {
		return "", err
	}
	return id, nil
}
