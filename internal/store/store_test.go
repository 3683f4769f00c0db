package store

import (
	"path/filepath"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate; a second run must be a no-op.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	db := testDB(t)

	if err := db.PutRecord("reports", "r1", []byte(`{"id":"r1"}`)); err != nil {
		t.Fatal(err)
	}
	// Upsert with new payload must not duplicate.
	if err := db.PutRecord("reports", "r1", []byte(`{"id":"r1","status":"resolved"}`)); err != nil {
		t.Fatal(err)
	}

	payload, err := db.GetRecord("reports", "r1")
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != `{"id":"r1","status":"resolved"}` {
		t.Errorf("payload = %s, want updated record", payload)
	}

	payloads, err := db.ListRecords("reports")
	if err != nil {
		t.Fatal(err)
	}
	if len(payloads) != 1 {
		t.Fatalf("got %d records, want 1 (idempotent upsert failed)", len(payloads))
	}
}

func TestGetRecordMissing(t *testing.T) {
	db := testDB(t)

	payload, err := db.GetRecord("reports", "missing")
	if err != nil {
		t.Fatal(err)
	}
	if payload != nil {
		t.Errorf("expected nil for missing record, got %s", payload)
	}
}

func TestRecordsIsolatedPerEntity(t *testing.T) {
	db := testDB(t)

	if err := db.PutRecord("reports", "x", []byte(`{"a":1}`)); err != nil {
		t.Fatal(err)
	}
	if err := db.PutRecord("topics", "x", []byte(`{"b":2}`)); err != nil {
		t.Fatal(err)
	}

	if err := db.ClearEntity("reports"); err != nil {
		t.Fatal(err)
	}
	n, err := db.RecordCount("topics")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("topics count = %d after clearing reports, want 1", n)
	}
}

func TestReplaceRecordsDropsStaleRows(t *testing.T) {
	db := testDB(t)

	if err := db.PutRecord("alerts", "old", []byte(`{"id":"old"}`)); err != nil {
		t.Fatal(err)
	}
	err := db.ReplaceRecords("alerts", []RecordInput{
		{ID: "a1", Payload: []byte(`{"id":"a1"}`)},
		{ID: "a2", Payload: []byte(`{"id":"a2"}`)},
	})
	if err != nil {
		t.Fatal(err)
	}

	if p, _ := db.GetRecord("alerts", "old"); p != nil {
		t.Error("record removed server-side survived a full replace")
	}
	n, _ := db.RecordCount("alerts")
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestCacheEntry(t *testing.T) {
	db := testDB(t)

	now := time.Now().UnixMilli()
	if err := db.SetCacheEntry("k1", []byte(`{"temp":21}`), now, now+1000); err != nil {
		t.Fatal(err)
	}
	// Overwrite.
	if err := db.SetCacheEntry("k1", []byte(`{"temp":22}`), now, now+2000); err != nil {
		t.Fatal(err)
	}

	e, err := db.GetCacheEntry("k1")
	if err != nil {
		t.Fatal(err)
	}
	if e == nil || string(e.Payload) != `{"temp":22}` {
		t.Errorf("entry = %+v, want overwritten payload", e)
	}

	missing, err := db.GetCacheEntry("nope")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Error("expected nil for missing cache key")
	}
}

func TestDeleteExpiredCache(t *testing.T) {
	db := testDB(t)

	now := time.Now().UnixMilli()
	if err := db.SetCacheEntry("live", []byte(`1`), now, now+60000); err != nil {
		t.Fatal(err)
	}
	if err := db.SetCacheEntry("dead", []byte(`2`), now-120000, now-60000); err != nil {
		t.Fatal(err)
	}

	n, err := db.DeleteExpiredCache(now)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
	if e, _ := db.GetCacheEntry("live"); e == nil {
		t.Error("unexpired entry was swept")
	}
}

func TestOutboxQueueAndDue(t *testing.T) {
	db := testDB(t)

	if err := db.QueueOutbox(&OutboxItem{ID: "i1", Op: "report.create", Payload: []byte(`{}`), IdempotencyKey: "k1"}); err != nil {
		t.Fatal(err)
	}
	if err := db.QueueOutbox(&OutboxItem{ID: "i2", Op: "report.create", Payload: []byte(`{}`), IdempotencyKey: "k2"}); err != nil {
		t.Fatal(err)
	}

	due, err := db.DueOutbox(time.Now().UnixMilli())
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 2 {
		t.Fatalf("got %d due items, want 2", len(due))
	}
	// Creation order, oldest first.
	if due[0].ID != "i1" || due[1].ID != "i2" {
		t.Errorf("order = %s,%s, want i1,i2", due[0].ID, due[1].ID)
	}
}

func TestOutboxIdempotencyKeyUnique(t *testing.T) {
	db := testDB(t)

	if err := db.QueueOutbox(&OutboxItem{ID: "i1", Op: "report.create", Payload: []byte(`{}`), IdempotencyKey: "dup"}); err != nil {
		t.Fatal(err)
	}
	err := db.QueueOutbox(&OutboxItem{ID: "i2", Op: "report.create", Payload: []byte(`{}`), IdempotencyKey: "dup"})
	if err == nil {
		t.Fatal("second QueueOutbox with same idempotency key should fail")
	}

	exists, err := db.OutboxExists("dup")
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("OutboxExists = false, want true")
	}
}

func TestOutboxRescheduleRespectsDueTime(t *testing.T) {
	db := testDB(t)

	if err := db.QueueOutbox(&OutboxItem{ID: "i1", Op: "report.create", Payload: []byte(`{}`), IdempotencyKey: "k1"}); err != nil {
		t.Fatal(err)
	}
	now := time.Now().UnixMilli()
	if err := db.RescheduleOutbox("i1", 1, "timeout", now+5000); err != nil {
		t.Fatal(err)
	}

	due, err := db.DueOutbox(now)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 0 {
		t.Errorf("got %d due items before backoff elapsed, want 0", len(due))
	}

	due, err = db.DueOutbox(now + 5000)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 {
		t.Fatalf("got %d due items after backoff, want 1", len(due))
	}
	if due[0].RetryCount != 1 {
		t.Errorf("retry_count = %d, want 1", due[0].RetryCount)
	}
}

func TestRecoverSyncingReturnsInterruptedItems(t *testing.T) {
	db := testDB(t)

	if err := db.QueueOutbox(&OutboxItem{ID: "i1", Op: "report.create", Payload: []byte(`{}`), IdempotencyKey: "k1"}); err != nil {
		t.Fatal(err)
	}
	if err := db.QueueOutbox(&OutboxItem{ID: "i2", Op: "report.create", Payload: []byte(`{}`), IdempotencyKey: "k2"}); err != nil {
		t.Fatal(err)
	}
	if err := db.RescheduleOutbox("i1", 2, "timeout", time.Now().UnixMilli()); err != nil {
		t.Fatal(err)
	}
	// Simulate a process dying between marking and completing an attempt.
	if err := db.MarkOutboxSyncing("i1"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkOutboxFailed("i2", 5, "gave up"); err != nil {
		t.Fatal(err)
	}

	now := time.Now().UnixMilli()
	n, err := db.RecoverSyncingOutbox(now)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("recovered %d items, want 1", n)
	}

	got, err := db.OutboxByID("i1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != OutboxPending {
		t.Errorf("status = %q, want pending", got.Status)
	}
	if got.RetryCount != 2 {
		t.Errorf("retry_count = %d, want 2 (preserved)", got.RetryCount)
	}
	due, err := db.DueOutbox(now)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].ID != "i1" {
		t.Fatalf("due = %+v, want just i1", due)
	}

	// Failed rows are untouched; only manual retry returns those.
	failed, _ := db.OutboxByID("i2")
	if failed.Status != OutboxFailed {
		t.Errorf("failed item status = %q, want failed", failed.Status)
	}
}

func TestResetFailedPreservesRetryCount(t *testing.T) {
	db := testDB(t)

	if err := db.QueueOutbox(&OutboxItem{ID: "i1", Op: "report.create", Payload: []byte(`{}`), IdempotencyKey: "k1"}); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkOutboxFailed("i1", 4, "gave up"); err != nil {
		t.Fatal(err)
	}

	n, err := db.ResetFailedOutbox(time.Now().UnixMilli())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("reset = %d, want 1", n)
	}

	it, err := db.OutboxByID("i1")
	if err != nil {
		t.Fatal(err)
	}
	if it.Status != OutboxPending {
		t.Errorf("status = %q, want pending", it.Status)
	}
	if it.RetryCount != 4 {
		t.Errorf("retry_count = %d, want 4 (preserved)", it.RetryCount)
	}
}

func TestOutboxDeleteAndCounts(t *testing.T) {
	db := testDB(t)

	if err := db.QueueOutbox(&OutboxItem{ID: "i1", Op: "report.create", Payload: []byte(`{}`), IdempotencyKey: "k1"}); err != nil {
		t.Fatal(err)
	}
	if err := db.QueueOutbox(&OutboxItem{ID: "i2", Op: "comment.create", Payload: []byte(`{}`), IdempotencyKey: "k2"}); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkOutboxFailed("i2", 5, "gave up"); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteOutbox("i1"); err != nil {
		t.Fatal(err)
	}

	counts, err := db.OutboxCounts()
	if err != nil {
		t.Fatal(err)
	}
	if counts[OutboxPending] != 0 || counts[OutboxFailed] != 1 {
		t.Errorf("counts = %v, want failed:1 only", counts)
	}

	exists, _ := db.OutboxExists("k1")
	if exists {
		t.Error("deleted item still reported as active")
	}
}

func TestSyncState(t *testing.T) {
	db := testDB(t)

	if v, err := db.GetSyncState("reports.refreshed_at"); err != nil || v != "" {
		t.Fatalf("GetSyncState on empty = %q, %v", v, err)
	}
	if err := db.SetSyncState("reports.refreshed_at", "2026-09-01T10:00:00Z"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetSyncState("reports.refreshed_at", "2026-09-01T11:00:00Z"); err != nil {
		t.Fatal(err)
	}

	v, err := db.GetSyncState("reports.refreshed_at")
	if err != nil {
		t.Fatal(err)
	}
	if v != "2026-09-01T11:00:00Z" {
		t.Errorf("value = %q, want latest checkpoint", v)
	}
}
