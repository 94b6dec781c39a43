package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gastos/internal/core"

	"github.com/shopspring/decimal"
)

const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

// maxSyncAttempts stops the backup sweep from retrying a row forever.
const maxSyncAttempts = 5

// ActivityRecord is an outbox row with its sync state.
type ActivityRecord struct {
	core.Activity
	SyncStatus string
	Attempts   int
	SheetsRef  string
}

// InsertActivity stores a pending journal record.
func (r *SQLiteRepository) InsertActivity(ctx context.Context, a core.Activity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activity_outbox (id, kind, user_id, user_email, amount, reference, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, string(a.Kind), a.UserID, a.UserEmail, a.Amount.String(), a.Reference, a.OccurredAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetActivity(ctx context.Context, id string) (ActivityRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, kind, user_id, user_email, amount, reference, occurred_at, sync_status, attempts, sheets_ref
		FROM activity_outbox WHERE id = ?`, id)
	rec, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ActivityRecord{}, ErrNotFound
	}
	if err != nil {
		return ActivityRecord{}, fmt.Errorf("get activity: %w", err)
	}
	return rec, nil
}

// PendingActivities returns up to limit rows still waiting for sync, oldest first.
func (r *SQLiteRepository) PendingActivities(ctx context.Context, limit int) ([]ActivityRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, user_id, user_email, amount, reference, occurred_at, sync_status, attempts, sheets_ref
		FROM activity_outbox
		WHERE sync_status = 'pending' OR (sync_status = 'error' AND attempts < ?)
		ORDER BY occurred_at ASC
		LIMIT ?`, maxSyncAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending activities: %w", err)
	}
	defer rows.Close()

	var out []ActivityRecord
	for rows.Next() {
		rec, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkActivitySynced(ctx context.Context, id, ref string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE activity_outbox
		SET sync_status = 'synced', sheets_ref = ?, synced_at = ?, attempts = attempts + 1
		WHERE id = ?`, ref, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("mark activity synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkActivityError(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE activity_outbox
		SET sync_status = 'error', attempts = attempts + 1
		WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark activity error: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(s rowScanner) (ActivityRecord, error) {
	var (
		rec        ActivityRecord
		kind       string
		amount     string
		occurredAt int64
	)
	if err := s.Scan(&rec.ID, &kind, &rec.UserID, &rec.UserEmail, &amount, &rec.Reference,
		&occurredAt, &rec.SyncStatus, &rec.Attempts, &rec.SheetsRef); err != nil {
		return ActivityRecord{}, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return ActivityRecord{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	rec.Kind = core.ActivityKind(kind)
	rec.Amount = core.NewMoney(d)
	rec.OccurredAt = time.UnixMilli(occurredAt).UTC()
	return rec, nil
}
