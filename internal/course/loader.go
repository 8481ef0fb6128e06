package course

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Loader loads and caches course definitions from a directory tree.
type Loader struct {
	rootDir string
	courses map[string]*Course
	mu      sync.RWMutex
}

// NewLoader creates a course loader and loads every definition under rootDir.
// Files that fail to parse or validate are skipped with a warning.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir: rootDir,
		courses: make(map[string]*Course),
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading courses: %w", err)
	}

	slog.Info("courses loaded", "dir", rootDir, "courses", len(l.courses))
	return l, nil
}

// GetCourse returns a course by ID.
func (l *Loader) GetCourse(id string) (*Course, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.courses[id]
	return c, ok
}

// AllCourses returns all loaded courses ordered by ID.
func (l *Loader) AllCourses() []*Course {
	l.mu.RLock()
	defer l.mu.RUnlock()
	courses := make([]*Course, 0, len(l.courses))
	for _, c := range l.courses {
		courses = append(courses, c)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses
}

// LoadFile reads and validates a single course definition.
func LoadFile(path string) (*Course, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read course file: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func (l *Loader) loadAll() error {
	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if !isCourseFile(path) {
			return nil
		}
		return l.loadCourse(path)
	})
}

func (l *Loader) loadCourse(path string) error {
	c, err := LoadFile(path)
	if err != nil {
		slog.Warn("skipping invalid course definition", "path", path, "error", err)
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, dup := l.courses[c.ID]; dup {
		slog.Warn("duplicate course id, keeping first", "course_id", c.ID, "path", path, "kept_title", prev.Title)
		return nil
	}
	l.courses[c.ID] = c
	return nil
}

func isCourseFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
