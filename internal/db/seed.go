package db

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SeedOptions struct {
	AdminPassword string
	// APIToken is stored on every seeded user. Empty keeps whatever token a
	// user already has.
	APIToken string
}

type seedUser struct {
	id       int64
	name     string
	email    string
	role     string
	password string
}

func Seed(ctx context.Context, pool *pgxpool.Pool, opts SeedOptions) error {
	// Idempotent: fixed ids + ON CONFLICT.
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	users := []seedUser{
		{1, "Admin", "admin@cementops.local", "ADMIN", opts.AdminPassword},
		{2, "Ops", "ops@cementops.local", "OPS", "ops123"},
		{3, "Exec", "exec@cementops.local", "EXEC", "exec123"},
	}
	for _, u := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", u.email, err)
		}
		if _, err := tx.Exec(ctx, `
      INSERT INTO users (id, name, email, password_hash, role, api_token)
      VALUES ($1,$2,$3,$4,$5,$6)
      ON CONFLICT (id) DO UPDATE
        SET api_token = EXCLUDED.api_token
        WHERE EXCLUDED.api_token <> ''
    `, u.id, u.name, u.email, string(hash), u.role, opts.APIToken); err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `SELECT setval(pg_get_serial_sequence('users','id'), (SELECT COALESCE(MAX(id),1) FROM users))`); err != nil {
		return fmt.Errorf("reset users sequence: %w", err)
	}

	return tx.Commit(ctx)
}
