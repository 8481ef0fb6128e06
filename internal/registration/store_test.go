package registration_test

import (
	"errors"
	"testing"

	"github.com/p-n-ai/course-player/internal/platform/database/dbtest"
	"github.com/p-n-ai/course-player/internal/registration"
)

func exerciseStore(t *testing.T, store registration.Store) {
	t.Helper()

	if _, err := store.Create("", "c"); err == nil {
		t.Error("Create() without learner should fail")
	}

	reg, created, err := registration.Launch(store, "learner-1", "safety-101")
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if !created || reg.ID == "" || !reg.Active() {
		t.Fatalf("Launch() = %+v, created %v", reg, created)
	}

	again, created, err := registration.Launch(store, "learner-1", "safety-101")
	if err != nil || created || again.ID != reg.ID {
		t.Errorf("second Launch() = %+v, created %v, err %v; want the active registration", again, created, err)
	}

	other, _, _ := registration.Launch(store, "learner-1", "other-course")
	if other.ID == reg.ID {
		t.Error("registrations are per course")
	}

	got, err := store.Get(reg.ID)
	if err != nil || got.CourseID != "safety-101" || got.LearnerID != "learner-1" {
		t.Errorf("Get() = %+v, %v", got, err)
	}

	if err := store.End(reg.ID); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if _, found := store.GetActive("learner-1", "safety-101"); found {
		t.Error("ended registration is still active")
	}
	ended, _ := store.Get(reg.ID)
	if ended.Active() {
		t.Error("Get() after End() should carry EndedAt")
	}

	fresh, created, _ := registration.Launch(store, "learner-1", "safety-101")
	if !created || fresh.ID == reg.ID {
		t.Error("Launch() after End() should create a new registration")
	}

	if _, err := store.Get("00000000-0000-0000-0000-000000000000"); !errors.Is(err, registration.ErrNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrNotFound", err)
	}
	if err := store.End("00000000-0000-0000-0000-000000000000"); !errors.Is(err, registration.ErrNotFound) {
		t.Errorf("End(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, registration.NewMemoryStore())
}

func TestPostgresStore(t *testing.T) {
	db := dbtest.New(t)
	store, err := registration.NewPostgresStore(db.Pool)
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	exerciseStore(t, store)
}

func TestNewPostgresStore_NilPool(t *testing.T) {
	if _, err := registration.NewPostgresStore(nil); err == nil {
		t.Error("NewPostgresStore(nil) should fail")
	}
}
