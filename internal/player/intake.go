package player

import "github.com/p-n-ai/course-player/internal/assessment"

// The On* methods are the event intake for front ends. Each applies one
// learner action to the current position and returns the view to render.

func (p *Player) OnAdvance() (View, bool) {
	ok := p.Advance()
	return p.View(), ok
}

func (p *Player) OnRetreat() (View, bool) {
	ok := p.Retreat()
	return p.View(), ok
}

func (p *Player) OnJumpToModule(m int) (View, bool) {
	ok := p.JumpToModule(m)
	return p.View(), ok
}

// OnAnswerSubmitted answers the quiz on the current slide.
func (p *Player) OnAnswerSubmitted(option int) (View, assessment.Result) {
	res := p.RecordAnswer(p.Position(), option)
	return p.View(), res
}

// OnSimulationChoiceSelected picks a branch of the simulation on the
// current slide.
func (p *Player) OnSimulationChoiceSelected(choice int) (View, assessment.ChoiceResult) {
	res := p.ChooseSimulation(p.Position(), choice)
	return p.View(), res
}

func (p *Player) OnRestart(opts RestartOptions) View {
	p.Restart(opts)
	return p.View()
}
