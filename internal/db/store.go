// Package db is the Postgres credential and request store. It exposes the
// query surface the auth core and pages need; schema management lives with
// the deployment, not here.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AOSC-Dev/pakreq-web/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Store wraps a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pooled connection and verifies it within connTimeout.
func Connect(ctx context.Context, url string, connTimeout time.Duration) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.ConnConfig.ConnectTimeout = connTimeout

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, connTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewStore wraps an existing pool (tests).
func NewStore(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// GetUserByUsername fetches a user record; ErrNotFound when the username is
// unknown.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u := &models.User{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, admin, password_hash FROM "user" WHERE username = $1`,
		username).Scan(&u.ID, &u.Username, &u.Admin, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user by username: %w", err)
	}
	return u, nil
}

// GetUserByOauth resolves a user from an external identity link.
func (s *Store) GetUserByOauth(ctx context.Context, provider, subject string) (*models.User, error) {
	u := &models.User{}
	err := s.pool.QueryRow(ctx,
		`SELECT u.id, u.username, u.admin, u.password_hash
		 FROM "user" u INNER JOIN oauth o ON o.uid = u.id
		 WHERE o.oid = $1 AND o.type = $2`,
		subject, provider).Scan(&u.ID, &u.Username, &u.Admin, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user by oauth link: %w", err)
	}
	return u, nil
}

// ListOauthLinks returns all identity links held by a username.
func (s *Store) ListOauthLinks(ctx context.Context, username string) ([]models.OauthLink, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT o.uid, o.type, o.oid
		 FROM "user" u INNER JOIN oauth o ON o.uid = u.id
		 WHERE u.username = $1`,
		username)
	if err != nil {
		return nil, fmt.Errorf("query oauth links: %w", err)
	}
	defer rows.Close()

	var links []models.OauthLink
	for rows.Next() {
		var l models.OauthLink
		if err := rows.Scan(&l.UserID, &l.Provider, &l.Subject); err != nil {
			return nil, fmt.Errorf("scan oauth link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// UpsertOauthLink inserts or replaces the link for (user, provider); a user
// holds at most one link per provider.
func (s *Store) UpsertOauthLink(ctx context.Context, link models.OauthLink) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO oauth (uid, type, oid, token) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (uid, type) DO UPDATE SET oid = EXCLUDED.oid, token = EXCLUDED.token`,
		link.UserID, link.Provider, link.Subject, link.Token)
	if err != nil {
		return fmt.Errorf("upsert oauth link: %w", err)
	}
	return nil
}

// DeleteOauthLink removes the link for (user, provider); no-op when absent.
func (s *Store) DeleteOauthLink(ctx context.Context, userID int64, provider string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM oauth WHERE uid = $1 AND type = $2`, userID, provider)
	if err != nil {
		return fmt.Errorf("delete oauth link: %w", err)
	}
	return nil
}

// UpdatePasswordHash persists a freshly computed hash for the username.
func (s *Store) UpdatePasswordHash(ctx context.Context, username, hash string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE "user" SET password_hash = $1 WHERE username = $2`, hash, username)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	return nil
}

// InsertUser registers a new account.
func (s *Store) InsertUser(ctx context.Context, user models.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO "user" (username, admin, password_hash) VALUES ($1, $2, $3)`,
		user.Username, user.Admin, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetOpenRequests lists pending package requests, newest first.
func (s *Store) GetOpenRequests(ctx context.Context) ([]models.Request, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, status, type, name, description, requester_id, packager_id, pub_date, note
		 FROM request WHERE status = $1 ORDER BY id DESC`, models.StatusOpen)
	if err != nil {
		return nil, fmt.Errorf("query open requests: %w", err)
	}
	defer rows.Close()

	var requests []models.Request
	for rows.Next() {
		var r models.Request
		if err := rows.Scan(&r.ID, &r.Status, &r.Type, &r.Name, &r.Description,
			&r.RequesterID, &r.PackagerID, &r.PubDate, &r.Note); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// GetRequestDetail fetches one request joined with requester/packager
// usernames. Either username stays nil when the account no longer exists.
func (s *Store) GetRequestDetail(ctx context.Context, id int64) (*models.RequestDetail, error) {
	d := &models.RequestDetail{}
	err := s.pool.QueryRow(ctx,
		`SELECT r.id, r.status, r.type, r.name, r.description, r.pub_date, r.note,
		 (SELECT username FROM "user" WHERE "user".id = r.requester_id) AS requester,
		 (SELECT username FROM "user" WHERE "user".id = r.packager_id) AS packager
		 FROM request r WHERE r.id = $1`,
		id).Scan(&d.ID, &d.Status, &d.Type, &d.Name, &d.Description, &d.PubDate,
		&d.Note, &d.Requester, &d.Packager)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query request detail: %w", err)
	}
	return d, nil
}

// CloseRequest marks a request DONE, or REJECTED when reject is set.
func (s *Store) CloseRequest(ctx context.Context, id int64, reject bool) error {
	status := models.StatusDone
	if reject {
		status = models.StatusRejected
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE request SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("close request: %w", err)
	}
	return nil
}
