package storage

import (
	"testing"

	"github.com/account-monitor/internal/config"
)

func testPostgresConfig() *config.PostgresConfig {
	return &config.PostgresConfig{
		Host:           "localhost",
		Port:           "5432",
		Database:       "account_monitor",
		User:           "monitor",
		Password:       "monitor_dev_password",
		MaxConnections: 2,
	}
}

func TestPostgresBlobStore_RoundTrip(t *testing.T) {
	// Skip if not in integration test mode
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	pool, err := NewPostgresPool(testPostgresConfig())
	if err != nil {
		t.Skipf("Skipping test - Postgres not available: %v", err)
		return
	}

	ctx := testContext(t)
	blobs, err := NewPostgresBlobStore(ctx, pool, "store_blobs_test", t.Name())
	if err != nil {
		pool.Close()
		t.Fatalf("NewPostgresBlobStore() error = %v", err)
	}
	defer blobs.Close()

	if _, err := pool.Exec(ctx, `DELETE FROM store_blobs_test WHERE name = $1`, t.Name()); err != nil {
		t.Fatalf("cleanup error = %v", err)
	}

	if _, err := blobs.Get(ctx); err != ErrBlobNotFound {
		t.Errorf("Get() on empty table error = %v, want ErrBlobNotFound", err)
	}

	persister := NewPersister(JSONCodec{}, blobs, nil)
	original := populatedStore(t)
	if err := persister.Save(ctx, NewSharedStore(original)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	// Second save exercises the upsert path
	if err := persister.Save(ctx, NewSharedStore(original)); err != nil {
		t.Fatalf("Save() upsert error = %v", err)
	}

	loaded, err := persister.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	assertSameContents(t, original, loaded)
}

func TestNewPostgresBlobStore_RejectsBadTable(t *testing.T) {
	if _, err := NewPostgresBlobStore(testContext(t), nil, "blobs; DROP TABLE x", "default"); err == nil {
		t.Errorf("NewPostgresBlobStore() error = nil, want error for invalid table name")
	}
}
