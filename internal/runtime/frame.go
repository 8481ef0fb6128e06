package runtime

// DefaultMaxFrameDepth bounds the parent walk when locating a host.
const DefaultMaxFrameDepth = 10

// Frame is one level of the launch hierarchy. Content may be nested several
// frames below the one that carries the host API.
type Frame interface {
	// API returns the host exposed at this level, or nil.
	API() API
	// Parent returns the enclosing frame, or nil at the top.
	Parent() Frame
}

// StaticFrame is a fixed Frame, used by front ends that already know their
// host and by tests that build nested hierarchies.
type StaticFrame struct {
	Host  API
	Outer Frame
}

func (f *StaticFrame) API() API { return f.Host }

func (f *StaticFrame) Parent() Frame {
	if f.Outer == nil {
		return nil
	}
	return f.Outer
}

// Nest wraps host in depth empty frames, so the host sits depth hops above
// the returned frame.
func Nest(host API, depth int) Frame {
	var f Frame = &StaticFrame{Host: host}
	for i := 0; i < depth; i++ {
		f = &StaticFrame{Outer: f}
	}
	return f
}

// FindAPI walks from start through at most maxHops parents and returns the
// first host found.
func FindAPI(start Frame, maxHops int) (API, bool) {
	if maxHops <= 0 {
		maxHops = DefaultMaxFrameDepth
	}
	f := start
	for hops := 0; f != nil && hops <= maxHops; hops++ {
		if api := f.API(); api != nil {
			return api, true
		}
		f = f.Parent()
	}
	return nil, false
}
