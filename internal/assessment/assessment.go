// Package assessment evaluates quiz answers and simulation choices and
// turns the recorded answers into a course score.
package assessment

import (
	"github.com/p-n-ai/course-player/internal/course"
	"github.com/p-n-ai/course-player/internal/progress"
	"github.com/p-n-ai/course-player/internal/runtime"
)

// Rejection explains why an answer was not recorded.
type Rejection string

const (
	RejectAlreadyAnswered Rejection = "already_answered"
	RejectNotQuiz         Rejection = "not_a_quiz"
	RejectUnknownSlide    Rejection = "unknown_slide"
	RejectOutOfRange      Rejection = "option_out_of_range"
)

// Result is the outcome of submitting an answer.
type Result struct {
	Accepted bool `json:"accepted"`
	Correct  bool `json:"correct"`
	// Rejected is set when Accepted is false.
	Rejected Rejection `json:"rejected,omitempty"`
}

// ChoiceResult is the outcome of picking a simulation branch.
type ChoiceResult struct {
	Accepted bool   `json:"accepted"`
	Correct  bool   `json:"correct"`
	Feedback string `json:"feedback,omitempty"`
}

// Outcome is the final assessment of an attempt.
type Outcome struct {
	Score  int  `json:"score"`
	Passed bool `json:"passed"`
}

// Status maps the outcome to the LMS lesson status.
func (o Outcome) Status() runtime.Status {
	if o.Passed {
		return runtime.StatusPassed
	}
	return runtime.StatusFailed
}

// Engine evaluates answers against one course.
type Engine struct {
	course *course.Course
}

func New(c *course.Course) *Engine {
	return &Engine{course: c}
}

// Record stores option as the answer to the quiz at id. A slide keeps its
// first answer until the attempt is restarted.
func (e *Engine) Record(st *progress.State, id course.SlideID, option int) Result {
	slide, ok := e.course.Slide(id)
	if !ok {
		return Result{Rejected: RejectUnknownSlide}
	}
	quiz, ok := slide.(*course.QuizSlide)
	if !ok {
		return Result{Rejected: RejectNotQuiz}
	}
	key := id.String()
	if _, answered := st.QuizAnswers[key]; answered {
		return Result{Rejected: RejectAlreadyAnswered}
	}
	if option < 0 || option >= len(quiz.Options) {
		return Result{Rejected: RejectOutOfRange}
	}

	st.QuizAnswers[key] = option
	return Result{Accepted: true, Correct: option == quiz.CorrectAnswer}
}

// Choose records a simulation choice. Choices may be changed freely and
// never count toward the score.
func (e *Engine) Choose(st *progress.State, id course.SlideID, choice int) ChoiceResult {
	slide, ok := e.course.Slide(id)
	if !ok {
		return ChoiceResult{}
	}
	sim, ok := slide.(*course.SimulationSlide)
	if !ok || choice < 0 || choice >= len(sim.Choices) {
		return ChoiceResult{}
	}
	st.ScenarioChoices[id.String()] = choice
	c := sim.Choices[choice]
	return ChoiceResult{Accepted: true, Correct: c.Correct, Feedback: c.Feedback}
}

// Previous returns the recorded answer for the quiz at id.
func (e *Engine) Previous(st *progress.State, id course.SlideID) (int, bool) {
	v, ok := st.QuizAnswers[id.String()]
	return v, ok
}

// Outcome scores the recorded answers against the course passing score.
func (e *Engine) Outcome(answers map[string]int) Outcome {
	score := ComputeScore(e.course, answers)
	return Outcome{Score: score, Passed: IsPassing(score, e.course.PassingScore)}
}

// ComputeScore is the percentage of quiz slides answered correctly, rounded
// half up. Unanswered quizzes count as wrong. A course without quizzes
// scores 100.
func ComputeScore(c *course.Course, answers map[string]int) int {
	quizzes := c.QuizSlides()
	if len(quizzes) == 0 {
		return 100
	}
	correct := 0
	for _, q := range quizzes {
		if a, ok := answers[q.ID.String()]; ok && a == q.Quiz.CorrectAnswer {
			correct++
		}
	}
	total := len(quizzes)
	return (200*correct + total) / (2 * total)
}

// IsPassing reports whether score meets the threshold.
func IsPassing(score, threshold int) bool {
	return score >= threshold
}
