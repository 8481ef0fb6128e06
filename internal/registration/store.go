// Package registration records learner launches of a course. A
// registration ties a learner to a course and keys the hosted LMS data
// model for that attempt.
package registration

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a registration ID is unknown.
var ErrNotFound = errors.New("registration not found")

// Registration is one learner's enrollment in one course.
type Registration struct {
	ID        string     `json:"id"`
	LearnerID string     `json:"learnerId"`
	CourseID  string     `json:"courseId"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

// Active reports whether the registration has not been ended.
func (r *Registration) Active() bool {
	return r.EndedAt == nil
}

// Store persists registrations.
type Store interface {
	Create(learnerID, courseID string) (*Registration, error)
	Get(id string) (*Registration, error)
	GetActive(learnerID, courseID string) (*Registration, bool)
	End(id string) error
}

// Launch returns the learner's active registration for the course, creating
// one if none exists.
func Launch(s Store, learnerID, courseID string) (*Registration, bool, error) {
	if reg, ok := s.GetActive(learnerID, courseID); ok {
		return reg, false, nil
	}
	reg, err := s.Create(learnerID, courseID)
	if err != nil {
		return nil, false, err
	}
	return reg, true, nil
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	registrations map[string]*Registration
	mu            sync.RWMutex
}

// NewMemoryStore creates a new in-memory registration store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		registrations: make(map[string]*Registration),
	}
}

func (s *MemoryStore) Create(learnerID, courseID string) (*Registration, error) {
	if err := validate(learnerID, courseID); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reg := &Registration{
		ID:        uuid.NewString(),
		LearnerID: learnerID,
		CourseID:  courseID,
		StartedAt: time.Now(),
	}
	s.registrations[reg.ID] = reg
	return copyOf(reg), nil
}

func (s *MemoryStore) Get(id string) (*Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reg, ok := s.registrations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return copyOf(reg), nil
}

func (s *MemoryStore) GetActive(learnerID, courseID string) (*Registration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *Registration
	for _, reg := range s.registrations {
		if reg.LearnerID != learnerID || reg.CourseID != courseID || !reg.Active() {
			continue
		}
		if latest == nil || reg.StartedAt.After(latest.StartedAt) {
			latest = reg
		}
	}
	if latest == nil {
		return nil, false
	}
	return copyOf(latest), true
}

func (s *MemoryStore) End(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.registrations[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if reg.EndedAt == nil {
		now := time.Now()
		reg.EndedAt = &now
	}
	return nil
}

func validate(learnerID, courseID string) error {
	if learnerID == "" {
		return fmt.Errorf("learner_id is required")
	}
	if courseID == "" {
		return fmt.Errorf("course_id is required")
	}
	return nil
}

func copyOf(r *Registration) *Registration {
	c := *r
	if r.EndedAt != nil {
		t := *r.EndedAt
		c.EndedAt = &t
	}
	return &c
}
