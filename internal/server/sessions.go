package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/p-n-ai/course-player/internal/course"
	"github.com/p-n-ai/course-player/internal/player"
	"github.com/p-n-ai/course-player/internal/registration"
)

var (
	// ErrRegistrationEnded is returned for a session whose registration was closed.
	ErrRegistrationEnded = errors.New("registration has ended")
	errSessionClosed     = errors.New("session closed")
)

// Catalog looks up loaded courses.
type Catalog interface {
	GetCourse(id string) (*course.Course, bool)
	AllCourses() []*course.Course
}

// ManagerConfig wires a Manager.
type ManagerConfig struct {
	Courses       Catalog
	Registrations registration.Store
	Runtimes      RuntimeOpener
	Events        player.EventLogger
	Now           func() time.Time
	Logger        *slog.Logger
}

// Manager keeps one open player per registration. Calls on a session are
// serialized, so a player only ever sees one transition at a time.
type Manager struct {
	cfg ManagerConfig
	log *slog.Logger
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	// ending holds registrations whose Close is in progress. They cannot be
	// reopened until it returns.
	ending map[string]struct{}
}

type session struct {
	// ready is closed once the player has started or failed to start.
	// reg, player and host are only read after it.
	ready chan struct{}
	err   error

	mu       sync.Mutex
	reg      *registration.Registration
	player   *player.Player
	host     io.Closer
	lastUsed time.Time
	closed   bool
}

func (s *session) started() bool {
	select {
	case <-s.ready:
		return s.err == nil
	default:
		return false
	}
}

// NewManager creates an empty session manager.
func NewManager(cfg ManagerConfig) *Manager {
	m := &Manager{
		cfg:      cfg,
		log:      cfg.Logger,
		now:      cfg.Now,
		sessions: make(map[string]*session),
		ending:   make(map[string]struct{}),
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.cfg.Events == nil {
		m.cfg.Events = player.NopEventLogger{}
	}
	return m
}

// Open returns the open session for reg, starting a player if needed.
func (m *Manager) Open(ctx context.Context, reg *registration.Registration) error {
	_, err := m.acquire(ctx, reg.ID, reg)
	return err
}

// Do runs fn against the registration's player with the session locked.
// A session closed by the idle sweeper is reopened from its saved progress.
func (m *Manager) Do(ctx context.Context, registrationID string, fn func(*player.Player) error) error {
	for attempt := 0; attempt < 2; attempt++ {
		s, err := m.acquire(ctx, registrationID, nil)
		if err != nil {
			return err
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			continue
		}
		s.lastUsed = m.now()
		err = fn(s.player)
		s.mu.Unlock()
		return err
	}
	return errSessionClosed
}

// Close finishes the session and ends its registration. Closing a session
// that is not open only ends the registration. Until Close returns, Do and
// Open on the registration fail with ErrRegistrationEnded.
func (m *Manager) Close(ctx context.Context, registrationID string) error {
	m.mu.Lock()
	if _, busy := m.ending[registrationID]; busy {
		m.mu.Unlock()
		return nil
	}
	m.ending[registrationID] = struct{}{}
	s, ok := m.sessions[registrationID]
	delete(m.sessions, registrationID)
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.ending, registrationID)
		m.mu.Unlock()
	}()

	if ok {
		if err := m.closeSession(s); err != nil {
			m.log.Warn("session close incomplete", "registration_id", registrationID, "error", err)
		}
	}
	if err := m.cfg.Registrations.End(registrationID); err != nil && !errors.Is(err, registration.ErrNotFound) {
		return fmt.Errorf("end registration: %w", err)
	}
	return nil
}

// CloseIdle closes sessions unused for longer than idle. Their
// registrations stay active. It returns the number closed.
func (m *Manager) CloseIdle(idle time.Duration) int {
	cutoff := m.now().Add(-idle)

	m.mu.Lock()
	var stale []*session
	for id, s := range m.sessions {
		if !s.started() {
			continue
		}
		s.mu.Lock()
		if s.lastUsed.Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
		s.mu.Unlock()
	}
	m.mu.Unlock()

	for _, s := range stale {
		if err := m.closeSession(s); err != nil {
			m.log.Warn("idle session close incomplete", "registration_id", s.reg.ID, "error", err)
		}
	}
	return len(stale)
}

// CloseAll closes every open session in parallel, leaving registrations
// active. Used on shutdown.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	open := make([]*session, 0, len(m.sessions))
	for id, s := range m.sessions {
		open = append(open, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, s := range open {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return m.closeSession(s)
		})
	}
	return g.Wait()
}

// Len returns the number of open sessions, including ones still starting.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// acquire returns the session for registrationID, starting one when none
// is open. The caller that inserts the placeholder starts the player
// without holding the manager lock; concurrent callers wait on it. reg may
// be nil, in which case the registration is loaded and must be active.
func (m *Manager) acquire(ctx context.Context, registrationID string, reg *registration.Registration) (*session, error) {
	m.mu.Lock()
	if _, busy := m.ending[registrationID]; busy {
		m.mu.Unlock()
		return nil, ErrRegistrationEnded
	}
	s, ok := m.sessions[registrationID]
	if !ok {
		s = &session{ready: make(chan struct{})}
		m.sessions[registrationID] = s
	}
	m.mu.Unlock()

	if !ok {
		s.err = m.start(ctx, s, registrationID, reg)
		if s.err != nil {
			m.mu.Lock()
			if m.sessions[registrationID] == s {
				delete(m.sessions, registrationID)
			}
			m.mu.Unlock()
		}
		close(s.ready)
	}

	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return s, nil
}

// start opens the runtime and player of a placeholder session. The
// registration is checked after the placeholder is visible, so a Close
// that starts later finds it and waits for it.
func (m *Manager) start(ctx context.Context, s *session, registrationID string, reg *registration.Registration) error {
	if reg == nil {
		stored, err := m.cfg.Registrations.Get(registrationID)
		if err != nil {
			return err
		}
		if !stored.Active() {
			return ErrRegistrationEnded
		}
		reg = stored
	}

	c, ok := m.cfg.Courses.GetCourse(reg.CourseID)
	if !ok {
		return fmt.Errorf("%w: %s", course.ErrCourseNotFound, reg.CourseID)
	}
	rt, host, err := m.cfg.Runtimes.Open(ctx, reg)
	if err != nil {
		return fmt.Errorf("open runtime: %w", err)
	}
	p, err := player.New(player.Config{
		Course:         c,
		Runtime:        rt,
		Events:         m.cfg.Events,
		LearnerID:      reg.LearnerID,
		RegistrationID: reg.ID,
		Now:            m.now,
		Logger:         m.log.With("registration_id", reg.ID),
	})
	if err != nil {
		rt.Terminate()
		if host != nil {
			host.Close()
		}
		return err
	}

	s.reg, s.player, s.host, s.lastUsed = reg, p, host, m.now()
	m.log.Info("session opened", "registration_id", reg.ID, "course_id", reg.CourseID)
	return nil
}

// closeSession waits for a starting session, then finishes it.
func (m *Manager) closeSession(s *session) error {
	<-s.ready
	if s.err != nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if !s.player.Close() {
		err = fmt.Errorf("session %s: final commit failed", s.reg.ID)
	}
	if s.host != nil {
		if cerr := s.host.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("session %s: close host: %w", s.reg.ID, cerr)
		}
	}
	m.log.Info("session closed", "registration_id", s.reg.ID)
	return err
}
