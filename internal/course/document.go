package course

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// document is the authored course definition. Field names follow the
// format the course content is written in (courseId, videoUrl, ...).
type document struct {
	CourseID     string        `yaml:"courseId"`
	CourseTitle  string        `yaml:"courseTitle,omitempty"`
	PassingScore *int          `yaml:"passingScore,omitempty"`
	Modules      []moduleEntry `yaml:"modules"`
}

type moduleEntry struct {
	Title  string       `yaml:"title"`
	Slides []slideEntry `yaml:"slides"`
}

type slideEntry struct {
	Type          string   `yaml:"type"`
	Title         string   `yaml:"title,omitempty"`
	Content       string   `yaml:"content,omitempty"`
	Sources       []Source `yaml:"sources,omitempty"`
	Question      string   `yaml:"question,omitempty"`
	Options       []string `yaml:"options,omitempty"`
	CorrectAnswer *int     `yaml:"correctAnswer,omitempty"`
	Explanation   string   `yaml:"explanation,omitempty"`
	Scenario      string   `yaml:"scenario,omitempty"`
	Context       string   `yaml:"context,omitempty"`
	Choices       []Choice `yaml:"choices,omitempty"`
	VideoURL      string   `yaml:"videoUrl,omitempty"`
	Transcript    string   `yaml:"transcript,omitempty"`
}

// Parse decodes a YAML or JSON course definition, checks it against the
// course schema and returns the validated course.
func Parse(data []byte) (*Course, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse course: %w", err)
	}
	if err := ValidateDocument(raw); err != nil {
		return nil, err
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode course: %w", err)
	}

	c, err := doc.toCourse()
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Marshal encodes a course in the authored YAML format.
func Marshal(c *Course) ([]byte, error) {
	doc, err := fromCourse(c)
	if err != nil {
		return nil, err
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal course: %w", err)
	}
	return out, nil
}

func (d document) toCourse() (*Course, error) {
	c := &Course{
		ID:           d.CourseID,
		Title:        d.CourseTitle,
		PassingScore: DefaultPassingScore,
		Modules:      make([]Module, 0, len(d.Modules)),
	}
	if c.Title == "" {
		c.Title = c.ID
	}
	if d.PassingScore != nil {
		c.PassingScore = *d.PassingScore
	}

	for mi, m := range d.Modules {
		mod := Module{Title: m.Title, Slides: make([]Slide, 0, len(m.Slides))}
		for si, s := range m.Slides {
			slide, err := s.toSlide()
			if err != nil {
				return nil, fmt.Errorf("course %s: slide %s: %w", d.CourseID, SlideID{Module: mi, Slide: si}, err)
			}
			mod.Slides = append(mod.Slides, slide)
		}
		c.Modules = append(c.Modules, mod)
	}
	return c, nil
}

func (s slideEntry) toSlide() (Slide, error) {
	switch Kind(s.Type) {
	case KindContent:
		return &ContentSlide{Title: s.Title, Body: s.Content, Sources: s.Sources}, nil
	case KindQuiz:
		if s.CorrectAnswer == nil {
			return nil, fmt.Errorf("quiz is missing correctAnswer")
		}
		return &QuizSlide{
			Question:      s.Question,
			Options:       s.Options,
			CorrectAnswer: *s.CorrectAnswer,
			Explanation:   s.Explanation,
		}, nil
	case KindSimulation:
		return &SimulationSlide{Scenario: s.Scenario, Context: s.Context, Choices: s.Choices}, nil
	case KindVideo:
		return &VideoSlide{Title: s.Title, URL: s.VideoURL, Transcript: s.Transcript}, nil
	default:
		return nil, fmt.Errorf("unknown slide type %q", s.Type)
	}
}

func fromCourse(c *Course) (document, error) {
	passing := c.PassingScore
	doc := document{
		CourseID:     c.ID,
		CourseTitle:  c.Title,
		PassingScore: &passing,
		Modules:      make([]moduleEntry, 0, len(c.Modules)),
	}
	for mi, m := range c.Modules {
		entry := moduleEntry{Title: m.Title, Slides: make([]slideEntry, 0, len(m.Slides))}
		for si, s := range m.Slides {
			var se slideEntry
			switch v := s.(type) {
			case *ContentSlide:
				se = slideEntry{Type: string(KindContent), Title: v.Title, Content: v.Body, Sources: v.Sources}
			case *QuizSlide:
				correct := v.CorrectAnswer
				se = slideEntry{
					Type:          string(KindQuiz),
					Question:      v.Question,
					Options:       v.Options,
					CorrectAnswer: &correct,
					Explanation:   v.Explanation,
				}
			case *SimulationSlide:
				se = slideEntry{Type: string(KindSimulation), Scenario: v.Scenario, Context: v.Context, Choices: v.Choices}
			case *VideoSlide:
				se = slideEntry{Type: string(KindVideo), Title: v.Title, VideoURL: v.URL, Transcript: v.Transcript}
			default:
				return document{}, fmt.Errorf("slide %s: unsupported slide type %T", SlideID{Module: mi, Slide: si}, s)
			}
			entry.Slides = append(entry.Slides, se)
		}
		doc.Modules = append(doc.Modules, entry)
	}
	return doc, nil
}
