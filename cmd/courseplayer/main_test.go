package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/course-player/internal/course"
	"github.com/p-n-ai/course-player/internal/player"
	"github.com/p-n-ai/course-player/internal/runtime"
)

const quizCourse = `courseId: quiz
courseTitle: Quiz course
modules:
  - title: Start
    slides:
      - type: content
        content: read this
      - type: quiz
        question: pick b
        options: [a, b]
        correctAnswer: 1
  - title: End
    slides:
      - type: content
        content: done
`

func writeCourse(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quiz.yaml")
	if err := os.WriteFile(path, []byte(quizCourse), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// run executes the CLI with args and stdin and returns stdout.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestPlayScript(t *testing.T) {
	c, err := course.Parse([]byte(quizCourse))
	if err != nil {
		t.Fatal(err)
	}
	local := runtime.NewMemoryLocalStore()
	b := runtime.NewBridge(runtime.Options{Local: local})
	b.Initialize()
	p, err := player.New(player.Config{Course: c, Runtime: b, LearnerID: "t"})
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := play(context.Background(), p, strings.NewReader("j 2\nn\na 2\na 1\nn\nn\nn\nq\n"), &out); err != nil {
		t.Fatalf("play() error = %v", err)
	}

	for _, want := range []string{
		"module 2 is locked",
		"correct",
		"answer not recorded: already_answered",
		"course complete: score 100% (passed, pass mark 80%)",
		"Certificate ID: QUIZ-",
		"end of course",
		"progress saved",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
	if !p.Closed() {
		t.Error("player not closed after q")
	}
	if local.Snapshot()[runtime.PreviewPrefix+runtime.ElementLessonStatus] != string(runtime.StatusPassed) {
		t.Errorf("stored values = %v", local.Snapshot())
	}
}

func TestPlayInterruptClosesSession(t *testing.T) {
	c, err := course.Parse([]byte(quizCourse))
	if err != nil {
		t.Fatal(err)
	}
	local := runtime.NewMemoryLocalStore()
	b := runtime.NewBridge(runtime.Options{Local: local})
	b.Initialize()
	p, err := player.New(player.Config{Course: c, Runtime: b, LearnerID: "t"})
	if err != nil {
		t.Fatal(err)
	}

	// The pipe never delivers a line, like a terminal waiting for input.
	in, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var out bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- play(ctx, p, in, &out) }()
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("play() error = %v", err)
	}
	if !strings.Contains(out.String(), "interrupted, progress saved") {
		t.Errorf("output:\n%s", out.String())
	}
	if !p.Closed() {
		t.Error("player not closed after interrupt")
	}
	if local.Snapshot()[runtime.PreviewPrefix+runtime.ElementSessionTime] == "" {
		t.Errorf("session time not saved: %v", local.Snapshot())
	}
}

func TestPlayResumesAcrossRuns(t *testing.T) {
	path := writeCourse(t)
	db := filepath.Join(t.TempDir(), "progress.db")

	if _, err := run(t, "n\nq\n", "play", path, "--db", db, "--learner", "eve"); err != nil {
		t.Fatalf("first play error = %v", err)
	}
	out, err := run(t, "q\n", "play", path, "--db", db, "--learner", "eve")
	if err != nil {
		t.Fatalf("second play error = %v", err)
	}
	if !strings.Contains(out, "slide 2/2") {
		t.Errorf("second run did not resume on slide 2:\n%s", out)
	}

	out, err = run(t, "", "progress", path, "--db", db, "--learner", "eve")
	if err != nil {
		t.Fatalf("progress error = %v", err)
	}
	if !strings.Contains(out, "position: module 1, slide 2") {
		t.Errorf("progress output:\n%s", out)
	}

	out, err = run(t, "", "progress", path, "--db", db, "--learner", "someone-else")
	if err != nil {
		t.Fatalf("progress error = %v", err)
	}
	if !strings.Contains(out, "position: module 1, slide 1") || !strings.Contains(out, "not attempted") {
		t.Errorf("other learner progress output:\n%s", out)
	}
}

func TestValidateCommand(t *testing.T) {
	good := writeCourse(t)
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("courseId: x\nmodules: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "", "validate", good)
	if err != nil || !strings.Contains(out, "ok   "+good) {
		t.Errorf("validate good: err=%v out=%s", err, out)
	}

	out, err = run(t, "", "validate", good, bad)
	if err == nil {
		t.Error("validate with an invalid file returned nil error")
	}
	if !strings.Contains(out, "FAIL "+bad) {
		t.Errorf("validate bad output:\n%s", out)
	}
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "course.xlsx")

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", "Basics")
	f.SetSheetRow("Basics", "A1", &[]any{"type", "title", "text", "options", "correct", "notes", "url", "context"})
	f.SetSheetRow("Basics", "A2", &[]any{"content", "Hello", "Welcome aboard."})
	f.SetSheetRow("Basics", "A3", &[]any{"quiz", "", "Ready?", "yes|no", "0"})
	f.NewSheet("course")
	f.SetSheetRow("course", "A1", &[]any{"id", "from-sheet"})
	if err := f.SaveAs(src); err != nil {
		t.Fatal(err)
	}
	f.Close()

	dst := filepath.Join(dir, "course.yaml")
	if _, err := run(t, "", "convert", src, "-o", dst); err != nil {
		t.Fatalf("convert error = %v", err)
	}
	c, err := course.LoadFile(dst)
	if err != nil {
		t.Fatalf("LoadFile(converted) error = %v", err)
	}
	if c.ID != "from-sheet" || c.ModuleCount() != 1 || len(c.QuizSlides()) != 1 {
		t.Errorf("converted course = %+v", c)
	}
}
