package player

import (
	"time"

	"github.com/p-n-ai/course-player/internal/assessment"
	"github.com/p-n-ai/course-player/internal/course"
)

// RecordAnswer stores the learner's answer to the quiz at id. Duplicate
// answers and invalid targets are rejected without changing state.
func (p *Player) RecordAnswer(id course.SlideID, option int) assessment.Result {
	res := p.engine.Record(p.state, id, option)
	if !res.Accepted {
		p.log.Debug("answer rejected", "slide", id.String(), "reason", res.Rejected)
		p.emit(EventAnswerRejected, map[string]any{"slide": id.String(), "reason": string(res.Rejected)})
		return res
	}

	p.persist()
	p.emit(EventAnswerRecorded, map[string]any{
		"slide":   id.String(),
		"option":  option,
		"correct": res.Correct,
	})
	return res
}

// ChooseSimulation records the choice made on the simulation at id.
func (p *Player) ChooseSimulation(id course.SlideID, choice int) assessment.ChoiceResult {
	res := p.engine.Choose(p.state, id, choice)
	if !res.Accepted {
		return res
	}

	p.persist()
	p.emit(EventSimulationChoice, map[string]any{
		"slide":   id.String(),
		"choice":  choice,
		"correct": res.Correct,
	})
	return res
}

// RestartOptions tunes Restart.
type RestartOptions struct {
	// ClearCompletedModules also relocks every module after the first.
	ClearCompletedModules bool `json:"clearCompletedModules"`
}

// Restart clears recorded answers and returns to the first slide. Completed
// modules stay unlocked unless opts says otherwise. The LMS lesson status is
// left as is.
func (p *Player) Restart(opts RestartOptions) {
	st := p.state
	st.CurrentModule, st.CurrentSlide = 0, 0
	clear(st.QuizAnswers)
	clear(st.QuizScores)
	clear(st.ScenarioChoices)
	if opts.ClearCompletedModules {
		st.CompletedModules = st.CompletedModules[:0]
	}
	p.completed = false
	p.completedAt = time.Time{}
	p.outcome = assessment.Outcome{}

	p.persist()
	p.emit(EventCourseRestarted, map[string]any{"clear_completed_modules": opts.ClearCompletedModules})
}
