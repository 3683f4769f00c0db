package store

import (
	"database/sql"
	"fmt"
	"time"
)

// PutRecord inserts or replaces a mirror record (idempotent upsert by id).
// The original created_at survives updates so insertion order stays stable.
func (db *DB) PutRecord(entity, id string, payload []byte) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO mirror_records (entity, id, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(entity, id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		entity, id, payload, now, now)
	return err
}

// PutRecords upserts multiple records of one entity in a single transaction.
func (db *DB) PutRecords(entity string, recs []RecordInput) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	for _, r := range recs {
		if _, err := tx.Exec(`
			INSERT INTO mirror_records (entity, id, payload, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(entity, id) DO UPDATE SET
				payload = excluded.payload,
				updated_at = excluded.updated_at`,
			entity, r.ID, r.Payload, now, now); err != nil {
			return fmt.Errorf("upsert record %q: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// ReplaceRecords clears the entity and writes recs in one transaction. Used
// when a list response is an authoritative full replacement, so records
// removed server-side do not linger.
func (db *DB) ReplaceRecords(entity string, recs []RecordInput) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM mirror_records WHERE entity = ?`, entity); err != nil {
		return fmt.Errorf("clear entity %q: %w", entity, err)
	}
	now := time.Now().UnixMilli()
	for _, r := range recs {
		if _, err := tx.Exec(`
			INSERT INTO mirror_records (entity, id, payload, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			entity, r.ID, r.Payload, now, now); err != nil {
			return fmt.Errorf("insert record %q: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// GetRecord returns a record payload by id, or nil when absent.
func (db *DB) GetRecord(entity, id string) ([]byte, error) {
	var payload []byte
	err := db.QueryRow(`SELECT payload FROM mirror_records WHERE entity = ? AND id = ?`, entity, id).
		Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// ListRecords returns all payloads for an entity in insertion order.
func (db *DB) ListRecords(entity string) ([][]byte, error) {
	rows, err := db.Query(`
		SELECT payload FROM mirror_records
		WHERE entity = ?
		ORDER BY created_at ASC, rowid ASC`, entity)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var payloads [][]byte
	for rows.Next() {
		var p []byte
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		payloads = append(payloads, p)
	}
	return payloads, rows.Err()
}

// DeleteRecord removes a record by id. No-op if absent.
func (db *DB) DeleteRecord(entity, id string) error {
	_, err := db.Exec(`DELETE FROM mirror_records WHERE entity = ? AND id = ?`, entity, id)
	return err
}

// ClearEntity removes every record of an entity type.
func (db *DB) ClearEntity(entity string) error {
	_, err := db.Exec(`DELETE FROM mirror_records WHERE entity = ?`, entity)
	return err
}

// RecordCount returns the number of records stored for an entity.
func (db *DB) RecordCount(entity string) (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM mirror_records WHERE entity = ?`, entity).Scan(&count)
	return count, err
}
