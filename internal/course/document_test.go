package course_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/p-n-ai/course-player/internal/course"
)

func TestParse_SlideVariants(t *testing.T) {
	c, err := course.Parse([]byte(safetyCourse))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	content, ok := c.Modules[0].Slides[0].(*course.ContentSlide)
	if !ok {
		t.Fatalf("slide 0-0 = %T, want *ContentSlide", c.Modules[0].Slides[0])
	}
	if len(content.Sources) != 1 || content.Sources[0].URL != "https://example.org/osha" {
		t.Errorf("Sources = %+v", content.Sources)
	}

	quiz, ok := c.Modules[0].Slides[1].(*course.QuizSlide)
	if !ok {
		t.Fatalf("slide 0-1 = %T, want *QuizSlide", c.Modules[0].Slides[1])
	}
	if quiz.CorrectAnswer != 0 || len(quiz.Options) != 2 {
		t.Errorf("quiz = %+v", quiz)
	}

	sim, ok := c.Modules[1].Slides[0].(*course.SimulationSlide)
	if !ok {
		t.Fatalf("slide 1-0 = %T, want *SimulationSlide", c.Modules[1].Slides[0])
	}
	if !sim.Choices[0].Correct || sim.Choices[1].Correct {
		t.Errorf("choices = %+v", sim.Choices)
	}

	video, ok := c.Modules[1].Slides[1].(*course.VideoSlide)
	if !ok {
		t.Fatalf("slide 1-1 = %T, want *VideoSlide", c.Modules[1].Slides[1])
	}
	if video.URL == "" {
		t.Error("video URL is empty")
	}

	if got := len(c.QuizSlides()); got != 2 {
		t.Errorf("QuizSlides() len = %d, want 2", got)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		schema bool
	}{
		{
			name:   "missing course id",
			doc:    `{"modules":[{"title":"M","slides":[{"type":"content","content":"x"}]}]}`,
			schema: true,
		},
		{
			name:   "no modules",
			doc:    `{"courseId":"c","modules":[]}`,
			schema: true,
		},
		{
			name:   "empty module",
			doc:    `{"courseId":"c","modules":[{"title":"M","slides":[]}]}`,
			schema: true,
		},
		{
			name:   "unknown slide type",
			doc:    `{"courseId":"c","modules":[{"title":"M","slides":[{"type":"poll"}]}]}`,
			schema: true,
		},
		{
			name:   "quiz with one option",
			doc:    `{"courseId":"c","modules":[{"title":"M","slides":[{"type":"quiz","question":"q","options":["a"],"correctAnswer":0}]}]}`,
			schema: true,
		},
		{
			name:   "video without url",
			doc:    `{"courseId":"c","modules":[{"title":"M","slides":[{"type":"video"}]}]}`,
			schema: true,
		},
		{
			name:   "passing score above 100",
			doc:    `{"courseId":"c","passingScore":120,"modules":[{"title":"M","slides":[{"type":"content","content":"x"}]}]}`,
			schema: true,
		},
		{
			name: "correct answer out of range",
			doc:  `{"courseId":"c","modules":[{"title":"M","slides":[{"type":"quiz","question":"q","options":["a","b"],"correctAnswer":2}]}]}`,
		},
		{
			name: "not yaml",
			doc:  "courseId: [unterminated",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := course.Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("Parse() expected error")
			}
			var se *course.SchemaError
			if tt.schema && !errors.As(err, &se) {
				t.Errorf("Parse() error = %v, want *SchemaError", err)
			}
		})
	}
}

func TestParse_ExplicitZeroPassingScore(t *testing.T) {
	c, err := course.Parse([]byte(`{"courseId":"c","passingScore":0,"modules":[{"title":"M","slides":[{"type":"content","content":"x"}]}]}`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if c.PassingScore != 0 {
		t.Errorf("PassingScore = %d, want 0", c.PassingScore)
	}
}

func TestMarshal_ParsesBack(t *testing.T) {
	c, err := course.Parse([]byte(safetyCourse))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	out, err := course.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(out), "videoUrl:") {
		t.Errorf("Marshal() output missing authored field names:\n%s", out)
	}
	again, err := course.Parse(out)
	if err != nil {
		t.Fatalf("Parse(Marshal()) error = %v", err)
	}
	if again.ID != c.ID || again.ModuleCount() != c.ModuleCount() || len(again.QuizSlides()) != 2 {
		t.Errorf("reparsed course differs: %+v", again)
	}
}
