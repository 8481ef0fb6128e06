package runtime

import (
	"strconv"
	"strings"
	"sync"
)

// MemoryHost is an in-process LMS. It enforces the session lifecycle and
// the value rules of the elements the player uses, and can be told to fail.
type MemoryHost struct {
	mu sync.Mutex

	// Failure switches. Set before handing the host to a bridge.
	FailInitialize bool
	FailWrites     bool
	FailCommit     bool
	FailFinish     bool

	values      map[string]string
	committed   map[string]string
	initialized bool
	finished    bool
	commits     int
	lastErr     ErrorCode
}

// NewMemoryHost creates a host whose data model starts with seed, as if it
// had been committed by an earlier launch.
func NewMemoryHost(seed map[string]string) *MemoryHost {
	h := &MemoryHost{
		values:    make(map[string]string),
		committed: make(map[string]string),
		lastErr:   CodeNoError,
	}
	for k, v := range seed {
		h.values[k] = v
		h.committed[k] = v
	}
	return h
}

func (h *MemoryHost) Initialize() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.FailInitialize {
		h.lastErr = CodeGeneral
		return false
	}
	if h.initialized && !h.finished {
		h.lastErr = CodeGeneral
		return false
	}
	h.initialized = true
	h.finished = false
	h.lastErr = CodeNoError
	return true
}

func (h *MemoryHost) GetValue(element string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active() {
		return ""
	}
	if !strings.HasPrefix(element, "cmi.") {
		h.lastErr = CodeInvalidArgument
		return ""
	}
	h.lastErr = CodeNoError
	return h.values[element]
}

func (h *MemoryHost) SetValue(element, value string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active() {
		return false
	}
	if h.FailWrites {
		h.lastErr = CodeGeneral
		return false
	}
	if code := checkValue(element, value); code != CodeNoError {
		h.lastErr = code
		return false
	}
	h.values[element] = value
	h.lastErr = CodeNoError
	return true
}

func (h *MemoryHost) Commit() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active() {
		return false
	}
	if h.FailCommit {
		h.lastErr = CodeGeneral
		return false
	}
	h.commitLocked()
	return true
}

func (h *MemoryHost) Finish() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active() {
		return false
	}
	if h.FailFinish {
		h.lastErr = CodeGeneral
		return false
	}
	h.commitLocked()
	h.finished = true
	return true
}

func (h *MemoryHost) GetLastError() ErrorCode {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr
}

// Value returns the committed value of element.
func (h *MemoryHost) Value(element string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.committed[element]
}

// Pending returns the value of element including uncommitted writes.
func (h *MemoryHost) Pending(element string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.values[element]
}

// Commits counts successful commits, including the one done by Finish.
func (h *MemoryHost) Commits() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.commits
}

// Finished reports whether the current session was finished.
func (h *MemoryHost) Finished() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.finished
}

func (h *MemoryHost) active() bool {
	if !h.initialized || h.finished {
		h.lastErr = CodeNotInitialized
		return false
	}
	return true
}

func (h *MemoryHost) commitLocked() {
	for k, v := range h.values {
		h.committed[k] = v
	}
	h.commits++
	h.lastErr = CodeNoError
}

// checkValue applies the data model rules shared by the host adapters.
func checkValue(element, value string) ErrorCode {
	if !strings.HasPrefix(element, "cmi.") {
		return CodeInvalidArgument
	}
	switch element {
	case ElementLessonStatus:
		if !Status(value).Valid() {
			return CodeIncorrectDataType
		}
	case ElementScoreRaw, ElementScoreMax, ElementScoreMin:
		if value == "" {
			return CodeNoError
		}
		n, err := strconv.ParseFloat(value, 64)
		if err != nil || n < 0 || n > 100 {
			return CodeIncorrectDataType
		}
	}
	return CodeNoError
}
