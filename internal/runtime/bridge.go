package runtime

import (
	"log/slog"
	"sync"
)

// DefaultSuspendDataLimit is the SCORM 1.2 size of cmi.suspend_data.
const DefaultSuspendDataLimit = 4096

// PreviewPrefix namespaces element names in the local store.
const PreviewPrefix = "scorm_"

// Options configures a Bridge.
type Options struct {
	// Frame is where the host search starts. Nil means no host.
	Frame Frame
	// MaxDepth bounds the parent walk. Zero uses DefaultMaxFrameDepth.
	MaxDepth int
	// Local backs preview mode. Nil uses a fresh MemoryLocalStore.
	Local LocalStore
	// SuspendDataLimit only triggers a warning when exceeded. Zero uses
	// DefaultSuspendDataLimit.
	SuspendDataLimit int
	Logger           *slog.Logger
}

// Bridge wraps the host API, or the local store in preview mode, behind the
// Runtime interface. All calls are serialized.
type Bridge struct {
	mu sync.Mutex

	frame    Frame
	maxDepth int
	local    LocalStore
	limit    int
	log      *slog.Logger

	host        API
	initialized bool
	terminated  bool
	preview     bool
	lastErr     ErrorCode
}

// NewBridge creates an uninitialized bridge.
func NewBridge(opts Options) *Bridge {
	b := &Bridge{
		frame:    opts.Frame,
		maxDepth: opts.MaxDepth,
		local:    opts.Local,
		limit:    opts.SuspendDataLimit,
		log:      opts.Logger,
		lastErr:  CodeNoError,
	}
	if b.maxDepth <= 0 {
		b.maxDepth = DefaultMaxFrameDepth
	}
	if b.local == nil {
		b.local = NewMemoryLocalStore()
	}
	if b.limit <= 0 {
		b.limit = DefaultSuspendDataLimit
	}
	if b.log == nil {
		b.log = slog.Default()
	}
	return b
}

// Initialize locates the host and starts the session. It returns false when
// no usable host is found; the bridge is then in preview mode and every
// other call is served by the local store.
func (b *Bridge) Initialize() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return !b.preview
	}

	host, found := FindAPI(b.frame, b.maxDepth)
	if !found {
		b.log.Warn("lms runtime not found, running in preview mode", "max_depth", b.maxDepth)
		b.enterPreview()
		return false
	}
	if !host.Initialize() {
		code := host.GetLastError()
		b.log.Warn("lms initialize failed, running in preview mode", "code", code, "error", code.Err())
		b.enterPreview()
		return false
	}

	b.host = host
	b.initialized = true
	b.lastErr = CodeNoError
	if !host.SetValue(ElementLessonStatus, string(StatusIncomplete)) {
		b.lastErr = host.GetLastError()
		b.log.Warn("set initial lesson status failed", "code", b.lastErr)
	}
	return true
}

func (b *Bridge) enterPreview() {
	b.preview = true
	b.initialized = true
	b.lastErr = CodeNoError
}

// Preview reports whether calls are served by the local store.
func (b *Bridge) Preview() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.preview
}

// Read returns the element value, or "" when unset or on failure.
func (b *Bridge) Read(element string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		b.lastErr = CodeNotInitialized
		return ""
	}
	if b.preview {
		v, err := b.local.Get(PreviewPrefix + element)
		if err != nil {
			b.lastErr = CodeGeneral
			b.log.Warn("local read failed", "key", element, "error", err)
			return ""
		}
		b.lastErr = CodeNoError
		return v
	}
	if b.terminated {
		b.lastErr = CodeGeneral
		return ""
	}

	v := b.host.GetValue(element)
	b.lastErr = b.host.GetLastError()
	return v
}

// Write sets an element. Failures are logged and reported as false.
func (b *Bridge) Write(element, value string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		b.lastErr = CodeNotInitialized
		return false
	}
	if element == ElementSuspendData && len(value) > b.limit {
		b.log.Warn("suspend data exceeds host limit", "size", len(value), "limit", b.limit)
	}
	if b.preview {
		if err := b.local.Set(PreviewPrefix+element, value); err != nil {
			b.lastErr = CodeGeneral
			b.log.Warn("local write failed", "key", element, "error", err)
			return false
		}
		b.lastErr = CodeNoError
		return true
	}
	if b.terminated {
		b.lastErr = CodeGeneral
		return false
	}

	ok := b.host.SetValue(element, value)
	b.lastErr = b.host.GetLastError()
	if !ok {
		if b.lastErr == CodeNoError {
			b.lastErr = CodeGeneral
		}
		b.log.Warn("lms write failed", "key", element, "code", b.lastErr)
	}
	return ok
}

// Commit asks the host to persist pending writes. A no-op in preview mode.
func (b *Bridge) Commit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		b.lastErr = CodeNotInitialized
		return false
	}
	if b.preview {
		b.lastErr = CodeNoError
		return true
	}
	if b.terminated {
		b.lastErr = CodeGeneral
		return false
	}

	ok := b.host.Commit()
	b.lastErr = b.host.GetLastError()
	if !ok {
		if b.lastErr == CodeNoError {
			b.lastErr = CodeGeneral
		}
		b.log.Warn("lms commit failed", "code", b.lastErr)
	}
	return ok
}

// Terminate finishes the host session. Repeated calls after a successful
// finish return true without contacting the host.
func (b *Bridge) Terminate() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		b.lastErr = CodeNotInitialized
		return false
	}
	if b.preview || b.terminated {
		b.lastErr = CodeNoError
		return true
	}

	ok := b.host.Finish()
	b.lastErr = b.host.GetLastError()
	if !ok {
		if b.lastErr == CodeNoError {
			b.lastErr = CodeGeneral
		}
		b.log.Warn("lms finish failed", "code", b.lastErr)
		return false
	}
	b.terminated = true
	return true
}

// LastError returns the code of the most recent call.
func (b *Bridge) LastError() ErrorCode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}
