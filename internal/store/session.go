package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bugreport/internal/model"
)

const DefaultSessionTTL = 4 * time.Hour

var ErrSessionNotFound = errors.New("store: session not found")

type SessionStore struct {
	db  *DB
	now func() time.Time
}

func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db, now: time.Now}
}

// Create inserts a new session for identity and returns its ID.
func (s *SessionStore) Create(ctx context.Context, identity model.Identity, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	id := newToken()
	expiresAt := s.now().Add(ttl).UTC()
	slog.Info("creating session", "username", identity.Username, "expires_at", expiresAt.Format(time.RFC3339))

	_, err := s.db.ExecContext(ctx, s.db.rebind(
		`INSERT INTO sessions (id, username, email, expires_at) VALUES (?, ?, ?, ?)`),
		id, identity.Username, identity.Email, expiresAt.Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// Get returns the identity behind a live session. Expired and unknown
// sessions both yield ErrSessionNotFound.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*model.Identity, error) {
	var identity model.Identity
	err := s.db.QueryRowContext(ctx, s.db.rebind(
		`SELECT username, email FROM sessions WHERE id = ? AND expires_at > ?`),
		sessionID, s.now().Unix(),
	).Scan(&identity.Username, &identity.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	} else if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &identity, nil
}

// Delete removes one session.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, s.db.rebind(`DELETE FROM sessions WHERE id = ?`), sessionID)
	return err
}

// DeleteExpired removes expired sessions and reports how many went.
func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.rebind(`DELETE FROM sessions WHERE expires_at <= ?`), s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}

func newToken() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
