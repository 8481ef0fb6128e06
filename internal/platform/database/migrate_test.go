package database_test

import (
	"testing"

	"github.com/p-n-ai/course-player/internal/platform/database/dbtest"
)

func TestMigrate_Idempotent(t *testing.T) {
	db := dbtest.New(t)

	if err := db.Migrate(t.Context()); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	if err := db.HealthCheck(t.Context()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}
