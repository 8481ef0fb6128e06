package player

import (
	"github.com/p-n-ai/course-player/internal/assessment"
	"github.com/p-n-ai/course-player/internal/course"
)

// NextLabel names what the forward control does on the current slide.
type NextLabel string

const (
	NextContinue       NextLabel = "continue"
	NextModule         NextLabel = "next_module"
	NextCompleteCourse NextLabel = "complete_course"
)

// ModuleStatus is the navigation state of one module.
type ModuleStatus struct {
	Index     int    `json:"index"`
	Title     string `json:"title"`
	Locked    bool   `json:"locked"`
	Current   bool   `json:"current"`
	Completed bool   `json:"completed"`
}

// QuizView is a quiz as shown to the learner. The correct answer and the
// explanation are only revealed once the quiz is answered.
type QuizView struct {
	Question       string   `json:"question"`
	Options        []string `json:"options"`
	PreviousAnswer *int     `json:"previousAnswer,omitempty"`
	Correct        *bool    `json:"correct,omitempty"`
	CorrectAnswer  *int     `json:"correctAnswer,omitempty"`
	Explanation    string   `json:"explanation,omitempty"`
}

// SimulationView is a simulation with the learner's latest choice, if any.
type SimulationView struct {
	Scenario string   `json:"scenario"`
	Context  string   `json:"context"`
	Choices  []string `json:"choices"`
	Selected *int     `json:"selected,omitempty"`
	Correct  *bool    `json:"correct,omitempty"`
	Feedback string   `json:"feedback,omitempty"`
}

// View is everything a presentation layer needs to render the current
// position.
type View struct {
	CourseID    string `json:"courseId"`
	CourseTitle string `json:"courseTitle"`

	Module      int         `json:"module"`
	Slide       int         `json:"slide"`
	ModuleTitle string      `json:"moduleTitle"`
	SlideCount  int         `json:"slideCount"`
	Kind        course.Kind `json:"kind"`

	Content    *course.ContentSlide `json:"content,omitempty"`
	Quiz       *QuizView            `json:"quiz,omitempty"`
	Simulation *SimulationView      `json:"simulation,omitempty"`
	Video      *course.VideoSlide   `json:"video,omitempty"`

	IsFirstOverall          bool      `json:"isFirstOverall"`
	IsLastSlideOfLastModule bool      `json:"isLastSlideOfLastModule"`
	NextLabel               NextLabel `json:"nextLabel"`

	Modules  []ModuleStatus `json:"modules"`
	Progress int            `json:"progress"`

	Completed    bool                `json:"completed"`
	Outcome      *assessment.Outcome `json:"outcome,omitempty"`
	PassingScore int                 `json:"passingScore"`
}

// View resolves the current slide and navigation flags.
func (p *Player) View() View {
	st := p.state
	id := p.Position()
	mod := p.course.Modules[id.Module]
	lastModule := p.course.ModuleCount() - 1
	lastSlide := len(mod.Slides) - 1

	v := View{
		CourseID:                p.course.ID,
		CourseTitle:             p.course.Title,
		Module:                  id.Module,
		Slide:                   id.Slide,
		ModuleTitle:             mod.Title,
		SlideCount:              len(mod.Slides),
		IsFirstOverall:          id.Module == 0 && id.Slide == 0,
		IsLastSlideOfLastModule: id.Module == lastModule && id.Slide == lastSlide,
		Progress:                p.Progress(),
		Completed:               p.completed,
		PassingScore:            p.course.PassingScore,
	}

	switch {
	case v.IsLastSlideOfLastModule:
		v.NextLabel = NextCompleteCourse
	case id.Slide == lastSlide:
		v.NextLabel = NextModule
	default:
		v.NextLabel = NextContinue
	}

	if p.completed {
		out := p.outcome
		v.Outcome = &out
	}

	v.Modules = make([]ModuleStatus, p.course.ModuleCount())
	for i, m := range p.course.Modules {
		v.Modules[i] = ModuleStatus{
			Index:     i,
			Title:     m.Title,
			Locked:    !p.CanAccess(i),
			Current:   i == id.Module,
			Completed: st.CompletedModules.Has(i),
		}
	}

	slide, _ := p.course.Slide(id)
	v.Kind = slide.Kind()
	switch s := slide.(type) {
	case *course.ContentSlide:
		v.Content = s
	case *course.QuizSlide:
		v.Quiz = p.quizView(id, s)
	case *course.SimulationSlide:
		v.Simulation = p.simulationView(id, s)
	case *course.VideoSlide:
		v.Video = s
	}
	return v
}

func (p *Player) quizView(id course.SlideID, q *course.QuizSlide) *QuizView {
	qv := &QuizView{Question: q.Question, Options: q.Options}
	if prev, ok := p.engine.Previous(p.state, id); ok {
		correct := prev == q.CorrectAnswer
		answer := q.CorrectAnswer
		qv.PreviousAnswer = &prev
		qv.Correct = &correct
		qv.CorrectAnswer = &answer
		qv.Explanation = q.Explanation
	}
	return qv
}

func (p *Player) simulationView(id course.SlideID, s *course.SimulationSlide) *SimulationView {
	sv := &SimulationView{Scenario: s.Scenario, Context: s.Context, Choices: make([]string, len(s.Choices))}
	for i, c := range s.Choices {
		sv.Choices[i] = c.Text
	}
	if sel, ok := p.state.ScenarioChoices[id.String()]; ok && sel >= 0 && sel < len(s.Choices) {
		correct := s.Choices[sel].Correct
		sv.Selected = &sel
		sv.Correct = &correct
		sv.Feedback = s.Choices[sel].Feedback
	}
	return sv
}
