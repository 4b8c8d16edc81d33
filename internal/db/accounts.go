package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
)

type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Session is a signed-in admin. APIToken is the bearer token every remote API
// call made on behalf of this session uses.
type Session struct {
	ID        uuid.UUID
	User      User
	APIToken  string
	ExpiresAt time.Time
}

// Accounts stores admin users and their sessions. The API token lives on the
// user row; a session reaches it through the sessions/users join.
type Accounts struct {
	pool     *pgxpool.Pool
	duration time.Duration
	now      func() time.Time
}

func NewAccounts(pool *pgxpool.Pool, sessionDuration time.Duration) *Accounts {
	if sessionDuration <= 0 {
		sessionDuration = 7 * 24 * time.Hour
	}
	return &Accounts{pool: pool, duration: sessionDuration, now: time.Now}
}

// Login checks the password and opens a session.
func (a *Accounts) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	var s Session
	var passwordHash string
	row := a.pool.QueryRow(ctx, `
    SELECT id, name, email, role, password_hash, api_token
    FROM users
    WHERE email = $1
  `, email)
	if err := row.Scan(&s.User.ID, &s.User.Name, &s.User.Email, &s.User.Role, &passwordHash, &s.APIToken); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	s.ID = uuid.New()
	s.ExpiresAt = a.now().Add(a.duration)
	if _, err := a.pool.Exec(ctx, `INSERT INTO sessions (id, user_id, expires_at) VALUES ($1,$2,$3)`, s.ID, s.User.ID, s.ExpiresAt); err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

// Resolve loads a live session. Expired sessions are deleted on sight.
func (a *Accounts) Resolve(ctx context.Context, sid uuid.UUID) (Session, error) {
	s := Session{ID: sid}
	row := a.pool.QueryRow(ctx, `
    SELECT u.id, u.name, u.email, u.role, u.api_token, s.expires_at
    FROM sessions s
    JOIN users u ON u.id = s.user_id
    WHERE s.id = $1
  `, sid)
	if err := row.Scan(&s.User.ID, &s.User.Name, &s.User.Email, &s.User.Role, &s.APIToken, &s.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("lookup session: %w", err)
	}
	if a.now().After(s.ExpiresAt) {
		_, _ = a.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sid)
		return Session{}, ErrSessionExpired
	}
	return s, nil
}

func (a *Accounts) Logout(ctx context.Context, sid uuid.UUID) error {
	if _, err := a.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpired removes expired sessions and reports how many went.
func (a *Accounts) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := a.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, a.now())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
