package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/buddytalk/internal/chat"
	"github.com/matheus3301/buddytalk/internal/failcache"
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

	// testDB already migrated; a second run must be a no-op.
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
	if result.Dirty {
		t.Error("schema should not be dirty")
	}
}

func TestLoadMissingKey(t *testing.T) {
	db := testDB(t)

	_, err := db.Load("nope")
	if !errors.Is(err, failcache.ErrNotFound) {
		t.Errorf("Load(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	db := testDB(t)

	if err := db.Save("k", []byte(`{"a":1}`)); err != nil {
		t.Fatal(err)
	}
	if err := db.Save("k", []byte(`{"a":2}`)); err != nil {
		t.Fatal(err)
	}

	got, err := db.Load("k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"a":2}` {
		t.Errorf("Load = %s, want {\"a\":2}", got)
	}

	keys, err := db.Keys()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0].Key != "k" || keys[0].Size != 7 {
		t.Errorf("Keys() = %+v, want one 7-byte record k", keys)
	}
}

// TestFailedRecordsSurviveReopen exercises the durable failure store against
// a real database file closed and reopened between writes.
func TestFailedRecordsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buddytalk.db")

	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	cache := failcache.Init(db, failcache.DefaultKey, nil)
	rec := chat.Message{
		ID: "failed-1", SenderID: "A", ChannelID: "1", Text: "hello",
		Timestamp: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), Status: chat.Failed,
	}
	if err := cache.Write(rec); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}

	reloaded := failcache.Init(db, failcache.DefaultKey, nil).Read()
	if len(reloaded) != 1 {
		t.Fatalf("got %d records after reopen, want 1", len(reloaded))
	}
	got := reloaded[0]
	if got.ID != rec.ID || got.Text != "hello" || got.Status != chat.Failed {
		t.Errorf("record = %+v", got)
	}
	if !got.Timestamp.Equal(rec.Timestamp) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, rec.Timestamp)
	}
}
