package store

import (
	"database/sql"
	"time"
)

// QueueOutbox persists a new pending item. The UNIQUE constraint on
// idempotency_key is the hard guarantee behind OutboxExists: even racing
// producers cannot queue the same logical write twice.
func (db *DB) QueueOutbox(item *OutboxItem) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO outbox (id, op, payload, idempotency_key, status, retry_count, last_error, next_attempt_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'pending', 0, '', 0, ?, ?)`,
		item.ID, item.Op, item.Payload, item.IdempotencyKey, now, now)
	return err
}

// OutboxExists reports whether an active item with the given idempotency key
// is queued. Synced items are deleted and cancelled items removed, so any
// surviving row counts as active.
func (db *DB) OutboxExists(idempotencyKey string) (bool, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM outbox WHERE idempotency_key = ?`, idempotencyKey).
		Scan(&count)
	return count > 0, err
}

// DueOutbox returns pending items whose next attempt time has passed, oldest
// first. Creation order preserves causal write ordering per resource.
func (db *DB) DueOutbox(now int64) ([]OutboxItem, error) {
	rows, err := db.Query(`
		SELECT id, op, payload, idempotency_key, status, retry_count, last_error, next_attempt_at, created_at, updated_at
		FROM outbox
		WHERE status = 'pending' AND next_attempt_at <= ?
		ORDER BY created_at ASC, rowid ASC`, now)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []OutboxItem
	for rows.Next() {
		var it OutboxItem
		if err := rows.Scan(&it.ID, &it.Op, &it.Payload, &it.IdempotencyKey, &it.Status,
			&it.RetryCount, &it.LastError, &it.NextAttemptAt, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// OutboxByID returns a single item, or nil when absent.
func (db *DB) OutboxByID(id string) (*OutboxItem, error) {
	var it OutboxItem
	err := db.QueryRow(`
		SELECT id, op, payload, idempotency_key, status, retry_count, last_error, next_attempt_at, created_at, updated_at
		FROM outbox WHERE id = ?`, id).
		Scan(&it.ID, &it.Op, &it.Payload, &it.IdempotencyKey, &it.Status,
			&it.RetryCount, &it.LastError, &it.NextAttemptAt, &it.CreatedAt, &it.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// ListOutbox returns every queued item, oldest first.
func (db *DB) ListOutbox() ([]OutboxItem, error) {
	rows, err := db.Query(`
		SELECT id, op, payload, idempotency_key, status, retry_count, last_error, next_attempt_at, created_at, updated_at
		FROM outbox ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []OutboxItem
	for rows.Next() {
		var it OutboxItem
		if err := rows.Scan(&it.ID, &it.Op, &it.Payload, &it.IdempotencyKey, &it.Status,
			&it.RetryCount, &it.LastError, &it.NextAttemptAt, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// MarkOutboxSyncing transitions an item to 'syncing' before the network call.
func (db *DB) MarkOutboxSyncing(id string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE outbox SET status = 'syncing', updated_at = ? WHERE id = ?`, now, id)
	return err
}

// RescheduleOutbox records a failed attempt and returns the item to
// 'pending' with the next attempt scheduled after a backoff delay.
func (db *DB) RescheduleOutbox(id string, retryCount int, lastError string, nextAttemptAt int64) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE outbox SET status = 'pending', retry_count = ?, last_error = ?, next_attempt_at = ?, updated_at = ?
		WHERE id = ?`,
		retryCount, lastError, nextAttemptAt, now, id)
	return err
}

// MarkOutboxFailed parks an item as 'failed'. Only a manual retry or an
// explicit cancel moves it from there.
func (db *DB) MarkOutboxFailed(id string, retryCount int, lastError string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE outbox SET status = 'failed', retry_count = ?, last_error = ?, updated_at = ?
		WHERE id = ?`,
		retryCount, lastError, now, id)
	return err
}

// DeleteOutbox removes an item outright: server acknowledgement or an
// explicit draft cancellation.
func (db *DB) DeleteOutbox(id string) error {
	_, err := db.Exec(`DELETE FROM outbox WHERE id = ?`, id)
	return err
}

// ResetFailedOutbox returns every failed item to 'pending', due immediately.
// retry_count is preserved so backoff continues where it left off instead of
// restarting after a prolonged outage.
func (db *DB) ResetFailedOutbox(now int64) (int64, error) {
	res, err := db.Exec(`
		UPDATE outbox SET status = 'pending', next_attempt_at = ?, updated_at = ?
		WHERE status = 'failed'`, now, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RecoverSyncingOutbox returns items stuck in 'syncing' to 'pending', due
// immediately. A row can only rest in 'syncing' when a process died mid
// attempt; the attempt never completed, and the idempotency key makes
// re-submission safe. Run at drain-loop start.
func (db *DB) RecoverSyncingOutbox(now int64) (int64, error) {
	res, err := db.Exec(`
		UPDATE outbox SET status = 'pending', next_attempt_at = ?, updated_at = ?
		WHERE status = 'syncing'`, now, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// OutboxCounts returns the number of items per status.
func (db *DB) OutboxCounts() (map[string]int64, error) {
	rows, err := db.Query(`SELECT status, COUNT(*) FROM outbox GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
