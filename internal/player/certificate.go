package player

import (
	"strconv"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Certificate attests a passing completion.
type Certificate struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"courseId"`
	CourseTitle string    `json:"courseTitle"`
	Score       int       `json:"score"`
	CompletedAt time.Time `json:"completedAt"`
	// CompletedOn is CompletedAt in long form, e.g. "March 1, 2026".
	CompletedOn string `json:"completedOn"`
}

// Certificate is issued only after the course was passed in this launch.
func (p *Player) Certificate() (*Certificate, bool) {
	if !p.completed || !p.outcome.Passed {
		return nil, false
	}
	at := p.completedAt
	return &Certificate{
		ID:          cases.Upper(language.Und).String(p.course.ID) + "-" + strconv.FormatInt(at.UnixMilli(), 10),
		CourseID:    p.course.ID,
		CourseTitle: p.course.Title,
		Score:       p.outcome.Score,
		CompletedAt: at,
		CompletedOn: at.Format("January 2, 2006"),
	}, true
}

// Lines renders the certificate as text in the given language.
func (c *Certificate) Lines(tag language.Tag) []string {
	pr := message.NewPrinter(tag)
	return []string{
		pr.Sprintf("This certifies successful completion of"),
		c.CourseTitle,
		pr.Sprintf("Score: %d%%", c.Score),
		pr.Sprintf("Completed on %s", c.CompletedOn),
		pr.Sprintf("Certificate ID: %s", c.ID),
	}
}
