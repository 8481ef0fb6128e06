package runtime_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/course-player/internal/runtime"
)

func msDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func TestSQLiteLocalStore(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "preview.db")

	db, err := runtime.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer db.Close()

	alice := runtime.NewSQLiteLocalStore(db, "alice/safety")
	bob := runtime.NewSQLiteLocalStore(db, "bob/safety")

	if v, err := alice.Get("missing"); err != nil || v != "" {
		t.Errorf("Get(missing) = %q, %v", v, err)
	}
	if err := alice.Set("k", "v1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := alice.Set("k", "v2"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	if v, _ := alice.Get("k"); v != "v2" {
		t.Errorf("Get(k) = %q, want v2", v)
	}
	if v, _ := bob.Get("k"); v != "" {
		t.Errorf("namespaces leak: bob Get(k) = %q", v)
	}

	entries, err := alice.Entries(ctx)
	if err != nil || len(entries) != 1 || entries[0].Value != "v2" {
		t.Errorf("Entries() = %+v, %v", entries, err)
	}
}

func TestSQLiteLocalStore_SurvivesReopen(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "preview.db")

	db, err := runtime.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	b := runtime.NewBridge(runtime.Options{Local: runtime.NewSQLiteLocalStore(db, "ns")})
	b.Initialize()
	runtime.SetBookmark(b, "2:1")
	db.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file missing: %v", err)
	}

	db, err = runtime.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer db.Close()
	b = runtime.NewBridge(runtime.Options{Local: runtime.NewSQLiteLocalStore(db, "ns")})
	b.Initialize()
	if got := runtime.Bookmark(b); got != "2:1" {
		t.Errorf("Bookmark() after reopen = %q, want 2:1", got)
	}
}

func TestRedisLocalStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis test in short mode")
	}
	url := os.Getenv("COURSE_TEST_REDIS_URL")
	if url == "" {
		t.Skip("COURSE_TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("ParseURL() error = %v", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	key := "course:test:preview:" + t.Name()
	t.Cleanup(func() { client.Del(t.Context(), key) })

	s := runtime.NewRedisLocalStore(client, key)
	if v, err := s.Get("k"); err != nil || v != "" {
		t.Errorf("Get(missing) = %q, %v", v, err)
	}
	if err := s.Set("k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if v, _ := s.Get("k"); v != "v" {
		t.Errorf("Get(k) = %q", v)
	}
}
