// Package player is the course state machine: it moves the learner through
// modules and slides, gates modules on completion, records answers and
// reports the outcome to the LMS. Every mutation is persisted through the
// runtime before it returns.
package player

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/course-player/internal/assessment"
	"github.com/p-n-ai/course-player/internal/course"
	"github.com/p-n-ai/course-player/internal/progress"
	"github.com/p-n-ai/course-player/internal/runtime"
)

// Config wires a Player.
type Config struct {
	Course *course.Course
	// Runtime must already be initialized (or in preview mode).
	Runtime runtime.Runtime
	Events  EventLogger

	LearnerID      string
	RegistrationID string

	Now    func() time.Time
	Logger *slog.Logger
}

// Player drives one launch of a course. It is not safe for concurrent use;
// front ends serialize events per player.
type Player struct {
	course *course.Course
	rt     runtime.Runtime
	store  *progress.Store
	engine *assessment.Engine
	events EventLogger
	log    *slog.Logger
	now    func() time.Time

	learnerHash    string
	registrationID string
	launchedAt     time.Time

	state       *progress.State
	completed   bool
	outcome     assessment.Outcome
	completedAt time.Time
	closed      bool
}

// New loads the learner's saved progress and positions the player on it.
func New(cfg Config) (*Player, error) {
	if cfg.Course == nil {
		return nil, fmt.Errorf("course is required")
	}
	if err := cfg.Course.Validate(); err != nil {
		return nil, fmt.Errorf("invalid course: %w", err)
	}
	if cfg.Runtime == nil {
		return nil, fmt.Errorf("runtime is required")
	}

	p := &Player{
		course:         cfg.Course,
		rt:             cfg.Runtime,
		engine:         assessment.New(cfg.Course),
		events:         cfg.Events,
		log:            cfg.Logger,
		now:            cfg.Now,
		learnerHash:    Pseudonymize(cfg.LearnerID),
		registrationID: cfg.RegistrationID,
	}
	if p.events == nil {
		p.events = NopEventLogger{}
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	if p.now == nil {
		p.now = time.Now
	}
	p.log = p.log.With("course_id", cfg.Course.ID)

	p.store = progress.NewStore(p.rt, progress.StoreOptions{Now: p.now, Logger: p.log})
	p.launchedAt = p.now()
	p.state = p.store.Load()
	p.clampPosition()

	p.emit(EventCourseLaunched, map[string]any{
		"module": p.state.CurrentModule,
		"slide":  p.state.CurrentSlide,
	})
	return p, nil
}

// Course returns the course being played.
func (p *Player) Course() *course.Course {
	return p.course
}

// State returns a copy of the current progress.
func (p *Player) State() *progress.State {
	return p.state.Clone()
}

// Position returns the current slide.
func (p *Player) Position() course.SlideID {
	return course.SlideID{Module: p.state.CurrentModule, Slide: p.state.CurrentSlide}
}

// Completed reports whether the course was completed in this launch.
func (p *Player) Completed() bool {
	return p.completed
}

// Outcome returns the score and pass state once the course is completed.
func (p *Player) Outcome() (assessment.Outcome, bool) {
	return p.outcome, p.completed
}

// Progress is the share of completed modules, 0 to 100, rounded half up.
func (p *Player) Progress() int {
	total := p.course.ModuleCount()
	done := 0
	for _, m := range p.state.CompletedModules {
		if m >= 0 && m < total {
			done++
		}
	}
	return (200*done + total) / (2 * total)
}

// Close reports the session time, saves and finishes the LMS session.
// Further calls are no-ops.
func (p *Player) Close() bool {
	if p.closed {
		return true
	}
	p.closed = true

	ok := runtime.SetSessionTime(p.rt, p.now().Sub(p.launchedAt))
	ok = p.store.Save(p.state) && ok
	ok = p.rt.Terminate() && ok
	if !ok {
		p.log.Warn("session close incomplete", "code", p.rt.LastError())
	}
	return ok
}

// Closed reports whether Close was called.
func (p *Player) Closed() bool {
	return p.closed
}

// clampPosition keeps a restored position inside the course.
func (p *Player) clampPosition() {
	st := p.state
	last := p.course.ModuleCount() - 1
	m := min(max(st.CurrentModule, 0), last)
	s := min(max(st.CurrentSlide, 0), p.course.SlideCount(m)-1)
	if m != st.CurrentModule || s != st.CurrentSlide {
		p.log.Warn("restored position out of range", "module", st.CurrentModule, "slide", st.CurrentSlide)
		st.CurrentModule, st.CurrentSlide = m, s
	}
}

func (p *Player) persist() {
	p.store.Save(p.state)
}

func (p *Player) emit(eventType string, data map[string]any) {
	err := p.events.LogEvent(Event{
		RegistrationID: p.registrationID,
		LearnerHash:    p.learnerHash,
		CourseID:       p.course.ID,
		EventType:      eventType,
		Data:           data,
		CreatedAt:      p.now(),
	})
	if err != nil {
		p.log.Warn("log event failed", "type", eventType, "error", err)
	}
}
