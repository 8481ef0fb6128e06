package progress

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/p-n-ai/course-player/internal/runtime"
)

// StoreOptions configures a Store.
type StoreOptions struct {
	Now    func() time.Time
	Logger *slog.Logger
}

// Store loads and saves State through a runtime. Persistence is best
// effort: failures are logged and the caller's in-memory state stays
// authoritative.
type Store struct {
	rt  runtime.Runtime
	now func() time.Time
	log *slog.Logger
}

func NewStore(rt runtime.Runtime, opts StoreOptions) *Store {
	s := &Store{rt: rt, now: opts.Now, log: opts.Logger}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Load returns the persisted state merged over defaults. It never fails:
// missing or malformed suspend data yields a fresh state. A bookmark, when
// present, overrides the stored position.
func (s *Store) Load() *State {
	st := New(s.now())

	if data := runtime.SuspendData(s.rt); data != "" {
		merged := st.Clone()
		if err := json.Unmarshal([]byte(data), merged); err != nil {
			s.log.Warn("ignoring malformed suspend data", "error", err, "size", len(data))
		} else {
			st = merged
		}
	}
	st.normalize()

	if m, sl, ok := ParseBookmark(runtime.Bookmark(s.rt)); ok {
		st.CurrentModule, st.CurrentSlide = m, sl
	}
	return st
}

// Save records TotalTime, writes suspend data and bookmark, then commits.
// It reports whether every step succeeded.
func (s *Store) Save(st *State) bool {
	st.TotalTime = st.Elapsed(s.now()).Milliseconds()

	data, err := json.Marshal(st)
	if err != nil {
		s.log.Warn("encode progress failed", "error", err)
		return false
	}

	ok := true
	if !runtime.SetSuspendData(s.rt, string(data)) {
		s.log.Warn("save suspend data failed", "code", s.rt.LastError())
		ok = false
	}
	if !runtime.SetBookmark(s.rt, FormatBookmark(st.CurrentModule, st.CurrentSlide)) {
		s.log.Warn("save bookmark failed", "code", s.rt.LastError())
		ok = false
	}
	if !s.rt.Commit() {
		s.log.Warn("commit progress failed", "code", s.rt.LastError())
		ok = false
	}
	return ok
}
