package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SessionRecord is the persisted form of a signed-in session.
type SessionRecord struct {
	ID           string
	AccessToken  string
	RefreshToken string
	UserID       string
	Email        string
	FullName     string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

func (r *SQLiteRepository) SaveSession(ctx context.Context, s SessionRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, access_token, refresh_token, user_id, email, full_name, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at`,
		s.ID, s.AccessToken, s.RefreshToken, s.UserID, s.Email, s.FullName,
		s.ExpiresAt.Unix(), s.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetSession(ctx context.Context, id string) (SessionRecord, error) {
	var (
		s                  SessionRecord
		expires, createdAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, access_token, refresh_token, user_id, email, full_name, expires_at, created_at
		FROM sessions WHERE id = ?`, id).
		Scan(&s.ID, &s.AccessToken, &s.RefreshToken, &s.UserID, &s.Email, &s.FullName, &expires, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, ErrNotFound
	}
	if err != nil {
		return SessionRecord{}, fmt.Errorf("get session: %w", err)
	}
	s.ExpiresAt = time.Unix(expires, 0).UTC()
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	return s, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions that expired before now.
func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
