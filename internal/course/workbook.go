package course

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// MetaSheet is the workbook sheet holding course metadata as key/value rows
// (id, title, passing_score). Every other sheet is one module, in sheet order,
// titled by the sheet name.
const MetaSheet = "course"

// listSeparator splits multi-valued cells (quiz options, simulation choices
// and their feedback).
const listSeparator = "|"

// Module sheet columns. The first row is a header and is skipped.
const (
	colType = iota
	colTitle
	colText
	colOptions
	colCorrect
	colNotes
	colURL
	colContext
)

// ImportWorkbookFile reads a course from a spreadsheet on disk.
func ImportWorkbookFile(path string) (*Course, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return importWorkbook(f)
}

// ImportWorkbook reads a course from a spreadsheet stream.
func ImportWorkbook(r io.Reader) (*Course, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return importWorkbook(f)
}

func importWorkbook(f *excelize.File) (*Course, error) {
	c := &Course{PassingScore: DefaultPassingScore}

	sheets := f.GetSheetList()
	hasMeta := false
	for _, name := range sheets {
		if strings.EqualFold(name, MetaSheet) {
			hasMeta = true
			if err := readMeta(f, name, c); err != nil {
				return nil, err
			}
		}
	}
	if !hasMeta {
		return nil, fmt.Errorf("workbook has no %q sheet", MetaSheet)
	}

	for _, name := range sheets {
		if strings.EqualFold(name, MetaSheet) {
			continue
		}
		mod, err := readModule(f, name, len(c.Modules))
		if err != nil {
			return nil, err
		}
		c.Modules = append(c.Modules, mod)
	}

	if c.Title == "" {
		c.Title = c.ID
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func readMeta(f *excelize.File, sheet string, c *Course) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(row[0]))
		val := strings.TrimSpace(row[1])
		switch key {
		case "id":
			c.ID = val
		case "title":
			c.Title = val
		case "passing_score":
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("sheet %s: passing_score %q: %w", sheet, val, err)
			}
			c.PassingScore = n
		}
	}
	return nil
}

func readModule(f *excelize.File, sheet string, index int) (Module, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return Module{}, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	mod := Module{Title: sheet}
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if strings.TrimSpace(cell(row, colType)) == "" {
			continue
		}
		s, err := slideFromRow(row)
		if err != nil {
			return Module{}, fmt.Errorf("sheet %s row %d (module %d): %w", sheet, i+1, index, err)
		}
		mod.Slides = append(mod.Slides, s)
	}
	return mod, nil
}

func slideFromRow(row []string) (Slide, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(cell(row, colType)))) {
	case KindContent:
		return &ContentSlide{Title: cell(row, colTitle), Body: cell(row, colText)}, nil
	case KindQuiz:
		correct, err := strconv.Atoi(strings.TrimSpace(cell(row, colCorrect)))
		if err != nil {
			return nil, fmt.Errorf("quiz correct answer %q: %w", cell(row, colCorrect), err)
		}
		return &QuizSlide{
			Question:      cell(row, colText),
			Options:       splitList(cell(row, colOptions)),
			CorrectAnswer: correct,
			Explanation:   cell(row, colNotes),
		}, nil
	case KindSimulation:
		texts := splitList(cell(row, colOptions))
		feedback := splitList(cell(row, colNotes))
		correct := map[int]bool{}
		for _, part := range strings.Split(cell(row, colCorrect), ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("simulation correct choice %q: %w", part, err)
			}
			correct[n] = true
		}
		choices := make([]Choice, len(texts))
		for i, t := range texts {
			choices[i] = Choice{Text: t, Correct: correct[i]}
			if i < len(feedback) {
				choices[i].Feedback = feedback[i]
			}
		}
		return &SimulationSlide{Scenario: cell(row, colText), Context: cell(row, colContext), Choices: choices}, nil
	case KindVideo:
		return &VideoSlide{Title: cell(row, colTitle), URL: cell(row, colURL), Transcript: cell(row, colNotes)}, nil
	default:
		return nil, fmt.Errorf("unknown slide type %q", cell(row, colType))
	}
}

func cell(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return row[col]
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, listSeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
