package player

import "github.com/p-n-ai/course-player/internal/runtime"

// Advance moves to the next slide, crossing into the next module (which
// completes the current one) or completing the course from the last slide.
// It reports false only when the course is already complete and the player
// sits on the last slide.
func (p *Player) Advance() bool {
	st := p.state
	lastSlide := p.course.SlideCount(st.CurrentModule) - 1
	lastModule := p.course.ModuleCount() - 1

	switch {
	case st.CurrentSlide < lastSlide:
		st.CurrentSlide++
	case st.CurrentModule < lastModule:
		p.markCompleted(st.CurrentModule)
		st.CurrentModule++
		st.CurrentSlide = 0
	default:
		if p.completed {
			return false
		}
		p.markCompleted(st.CurrentModule)
		p.persist()
		p.completeCourse()
		return true
	}

	p.persist()
	p.emit(EventSlideViewed, p.positionData())
	return true
}

// Retreat moves to the previous slide, into the last slide of the previous
// module when at a module start. It reports false at the first slide.
func (p *Player) Retreat() bool {
	st := p.state
	switch {
	case st.CurrentSlide > 0:
		st.CurrentSlide--
	case st.CurrentModule > 0:
		st.CurrentModule--
		st.CurrentSlide = p.course.SlideCount(st.CurrentModule) - 1
	default:
		return false
	}

	p.persist()
	p.emit(EventSlideViewed, p.positionData())
	return true
}

// CanAccess reports whether module m may be opened: any module up to the
// current one, or the one right after a completed module.
func (p *Player) CanAccess(m int) bool {
	if m < 0 || m >= p.course.ModuleCount() {
		return false
	}
	return m <= p.state.CurrentModule || p.state.CompletedModules.Has(m-1)
}

// JumpToModule opens the first slide of module m if it is accessible.
func (p *Player) JumpToModule(m int) bool {
	if !p.CanAccess(m) {
		p.log.Debug("jump rejected", "module", m, "current", p.state.CurrentModule)
		return false
	}
	p.state.CurrentModule = m
	p.state.CurrentSlide = 0

	p.persist()
	p.emit(EventSlideViewed, p.positionData())
	return true
}

// MarkModuleCompleted adds m to the completed set. It reports whether m was
// newly added.
func (p *Player) MarkModuleCompleted(m int) bool {
	if m < 0 || m >= p.course.ModuleCount() {
		return false
	}
	if !p.markCompleted(m) {
		return false
	}
	p.persist()
	return true
}

func (p *Player) markCompleted(m int) bool {
	if !p.state.CompletedModules.Add(m) {
		return false
	}
	p.emit(EventModuleCompleted, map[string]any{"module": m})
	return true
}

// completeCourse scores the attempt and reports it to the LMS. It runs once
// per launch.
func (p *Player) completeCourse() {
	p.completed = true
	p.completedAt = p.now()
	p.outcome = p.engine.Outcome(p.state.QuizAnswers)

	ok := runtime.SetScore(p.rt, p.outcome.Score)
	ok = runtime.SetStatus(p.rt, p.outcome.Status()) && ok
	ok = p.rt.Commit() && ok
	if !ok {
		p.log.Warn("report outcome failed", "score", p.outcome.Score, "code", p.rt.LastError())
	}

	p.log.Info("course completed", "score", p.outcome.Score, "passed", p.outcome.Passed)
	p.emit(EventCourseCompleted, map[string]any{
		"score":  p.outcome.Score,
		"passed": p.outcome.Passed,
	})
}

func (p *Player) positionData() map[string]any {
	return map[string]any{"module": p.state.CurrentModule, "slide": p.state.CurrentSlide}
}
