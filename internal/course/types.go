// Package course holds the immutable course content model (modules and
// typed slides) and the loaders that read it from course definition files.
package course

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultPassingScore applies when a course definition omits passingScore.
const DefaultPassingScore = 80

// ErrCourseNotFound is returned when a course ID is not loaded.
var ErrCourseNotFound = errors.New("course not found")

// Kind identifies the slide variant.
type Kind string

const (
	KindContent    Kind = "content"
	KindQuiz       Kind = "quiz"
	KindSimulation Kind = "simulation"
	KindVideo      Kind = "video"
)

// Course is a read-only tree of modules and slides.
type Course struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	PassingScore int      `json:"passingScore"`
	Modules      []Module `json:"modules"`
}

// Module is an ordered group of slides.
type Module struct {
	Title  string  `json:"title"`
	Slides []Slide `json:"slides"`
}

// Slide is one of *ContentSlide, *QuizSlide, *SimulationSlide or *VideoSlide.
type Slide interface {
	Kind() Kind
	isSlide()
}

// Source is a reference cited by a content slide.
type Source struct {
	Title string `json:"title" yaml:"title"`
	URL   string `json:"url" yaml:"url"`
	Org   string `json:"org,omitempty" yaml:"org,omitempty"`
}

// ContentSlide is a block of text, optionally with sources.
type ContentSlide struct {
	Title   string   `json:"title,omitempty"`
	Body    string   `json:"body"`
	Sources []Source `json:"sources,omitempty"`
}

// QuizSlide is a single-answer multiple choice question.
type QuizSlide struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Choice is one branch of a simulation.
type Choice struct {
	Text     string `json:"text" yaml:"text"`
	Correct  bool   `json:"correct" yaml:"correct,omitempty"`
	Feedback string `json:"feedback,omitempty" yaml:"feedback,omitempty"`
}

// SimulationSlide is a branching scenario.
type SimulationSlide struct {
	Scenario string   `json:"scenario"`
	Context  string   `json:"context"`
	Choices  []Choice `json:"choices"`
}

// VideoSlide embeds a video with an optional transcript.
type VideoSlide struct {
	Title      string `json:"title,omitempty"`
	URL        string `json:"url"`
	Transcript string `json:"transcript,omitempty"`
}

func (*ContentSlide) Kind() Kind    { return KindContent }
func (*QuizSlide) Kind() Kind       { return KindQuiz }
func (*SimulationSlide) Kind() Kind { return KindSimulation }
func (*VideoSlide) Kind() Kind      { return KindVideo }

func (*ContentSlide) isSlide()    {}
func (*QuizSlide) isSlide()       {}
func (*SimulationSlide) isSlide() {}
func (*VideoSlide) isSlide()      {}

// SlideID addresses a slide by zero-based module and slide index.
type SlideID struct {
	Module int
	Slide  int
}

// String renders the ID as "module-slide", the key used for recorded answers.
func (id SlideID) String() string {
	return strconv.Itoa(id.Module) + "-" + strconv.Itoa(id.Slide)
}

// ParseSlideID parses a "module-slide" key.
func ParseSlideID(s string) (SlideID, error) {
	mod, slide, ok := strings.Cut(s, "-")
	if !ok {
		return SlideID{}, fmt.Errorf("invalid slide id %q", s)
	}
	m, err := strconv.Atoi(mod)
	if err != nil {
		return SlideID{}, fmt.Errorf("invalid slide id %q: %w", s, err)
	}
	n, err := strconv.Atoi(slide)
	if err != nil {
		return SlideID{}, fmt.Errorf("invalid slide id %q: %w", s, err)
	}
	return SlideID{Module: m, Slide: n}, nil
}

// QuizRef pairs a quiz slide with its position.
type QuizRef struct {
	ID   SlideID
	Quiz *QuizSlide
}

// ModuleCount returns the number of modules.
func (c *Course) ModuleCount() int {
	return len(c.Modules)
}

// SlideCount returns the number of slides in module m, or 0 if m is out of range.
func (c *Course) SlideCount(m int) int {
	if m < 0 || m >= len(c.Modules) {
		return 0
	}
	return len(c.Modules[m].Slides)
}

// Slide returns the slide at id.
func (c *Course) Slide(id SlideID) (Slide, bool) {
	if id.Slide < 0 || id.Slide >= c.SlideCount(id.Module) {
		return nil, false
	}
	return c.Modules[id.Module].Slides[id.Slide], true
}

// Contains reports whether id addresses a slide of the course.
func (c *Course) Contains(id SlideID) bool {
	_, ok := c.Slide(id)
	return ok
}

// QuizSlides lists every quiz slide in course order.
func (c *Course) QuizSlides() []QuizRef {
	var refs []QuizRef
	for mi, mod := range c.Modules {
		for si, s := range mod.Slides {
			if q, ok := s.(*QuizSlide); ok {
				refs = append(refs, QuizRef{ID: SlideID{Module: mi, Slide: si}, Quiz: q})
			}
		}
	}
	return refs
}

// Validate checks structural invariants the player relies on.
func (c *Course) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("course id is required")
	}
	if c.PassingScore < 0 || c.PassingScore > 100 {
		return fmt.Errorf("course %s: passing score %d out of range 0-100", c.ID, c.PassingScore)
	}
	if len(c.Modules) == 0 {
		return fmt.Errorf("course %s: at least one module is required", c.ID)
	}
	for mi, mod := range c.Modules {
		if len(mod.Slides) == 0 {
			return fmt.Errorf("course %s: module %d has no slides", c.ID, mi)
		}
		for si, s := range mod.Slides {
			if err := validateSlide(s); err != nil {
				return fmt.Errorf("course %s: slide %s: %w", c.ID, SlideID{Module: mi, Slide: si}, err)
			}
		}
	}
	return nil
}

func validateSlide(s Slide) error {
	switch v := s.(type) {
	case *ContentSlide:
		return nil
	case *QuizSlide:
		if len(v.Options) < 2 {
			return fmt.Errorf("quiz needs at least two options")
		}
		if v.CorrectAnswer < 0 || v.CorrectAnswer >= len(v.Options) {
			return fmt.Errorf("quiz correct answer %d out of range", v.CorrectAnswer)
		}
		return nil
	case *SimulationSlide:
		if len(v.Choices) == 0 {
			return fmt.Errorf("simulation needs at least one choice")
		}
		return nil
	case *VideoSlide:
		if v.URL == "" {
			return fmt.Errorf("video url is required")
		}
		return nil
	case nil:
		return fmt.Errorf("missing slide")
	default:
		return fmt.Errorf("unsupported slide type %T", s)
	}
}
