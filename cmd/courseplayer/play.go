package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/p-n-ai/course-player/internal/player"
	"github.com/p-n-ai/course-player/internal/runtime"
)

const playHelp = `commands:
  n            next slide
  p            previous slide
  j <module>   jump to a module
  a <option>   answer the quiz
  s <choice>   pick a simulation choice
  r            restart (keeps unlocked modules)
  q            save and quit`

var playCmd = &cobra.Command{
	Use:   "play <course-file>",
	Short: "Play a course in the terminal, saving progress locally",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadCourse(args[0])
		if err != nil {
			return err
		}
		dbPath, err := resolveDBPath(cmd)
		if err != nil {
			return err
		}
		learner, _ := cmd.Flags().GetString("learner")

		db, err := runtime.OpenSQLite(cmd.Context(), dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		b := runtime.NewBridge(runtime.Options{Local: runtime.NewSQLiteLocalStore(db, namespace(learner, c.ID))})
		b.Initialize()

		p, err := player.New(player.Config{Course: c, Runtime: b, LearnerID: learner})
		if err != nil {
			return err
		}
		return play(cmd.Context(), p, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	addStateFlags(playCmd)
}

// play runs the command loop until q, end of input or ctx is done, then
// closes the player so progress is saved.
func play(ctx context.Context, p *player.Player, in io.Reader, out io.Writer) error {
	defer p.Close()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	render(out, p.View())
	lines := readLines(ctx, in)
	for {
		fmt.Fprint(out, "> ")
		var (
			l  line
			ok bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\ninterrupted, progress saved")
			return nil
		case l, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(out)
			return nil
		}
		if l.err != nil {
			return l.err
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(l.text), " ")
		n, argErr := strconv.Atoi(strings.TrimSpace(arg))

		switch cmd {
		case "":
			continue
		case "q", "quit":
			fmt.Fprintln(out, "progress saved")
			return nil
		case "n":
			v, ok := p.OnAdvance()
			if !ok {
				fmt.Fprintln(out, "end of course")
			}
			render(out, v)
			if v.Completed && ok {
				printCertificate(out, p)
			}
		case "p":
			v, ok := p.OnRetreat()
			if !ok {
				fmt.Fprintln(out, "already at the first slide")
			}
			render(out, v)
		case "j":
			if argErr != nil {
				fmt.Fprintln(out, "usage: j <module>")
				continue
			}
			v, ok := p.OnJumpToModule(n - 1)
			if !ok {
				fmt.Fprintf(out, "module %d is locked\n", n)
				continue
			}
			render(out, v)
		case "a":
			if argErr != nil {
				fmt.Fprintln(out, "usage: a <option>")
				continue
			}
			v, res := p.OnAnswerSubmitted(n - 1)
			switch {
			case !res.Accepted:
				fmt.Fprintf(out, "answer not recorded: %s\n", res.Rejected)
			case res.Correct:
				fmt.Fprintln(out, "correct")
			default:
				fmt.Fprintln(out, "incorrect")
			}
			render(out, v)
		case "s":
			if argErr != nil {
				fmt.Fprintln(out, "usage: s <choice>")
				continue
			}
			v, res := p.OnSimulationChoiceSelected(n - 1)
			if !res.Accepted {
				fmt.Fprintln(out, "no such choice here")
				continue
			}
			render(out, v)
		case "r":
			render(out, p.OnRestart(player.RestartOptions{}))
		default:
			fmt.Fprintln(out, playHelp)
		}
	}
}

type line struct {
	text string
	err  error
}

// readLines sends the lines of in until end of input or ctx is done. The
// channel is closed after the last line.
func readLines(ctx context.Context, in io.Reader) <-chan line {
	ch := make(chan line)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case ch <- line{text: sc.Text()}:
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			select {
			case ch <- line{err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return ch
}

// render prints the current slide. Options and modules are numbered from 1.
func render(out io.Writer, v player.View) {
	fmt.Fprintf(out, "\n%s | module %d/%d: %s | slide %d/%d | %d%% complete\n",
		v.CourseTitle, v.Module+1, len(v.Modules), v.ModuleTitle, v.Slide+1, v.SlideCount, v.Progress)

	switch {
	case v.Content != nil:
		if v.Content.Title != "" {
			fmt.Fprintf(out, "## %s\n", v.Content.Title)
		}
		fmt.Fprintln(out, v.Content.Body)
		for _, s := range v.Content.Sources {
			fmt.Fprintf(out, "  source: %s <%s>\n", s.Title, s.URL)
		}
	case v.Quiz != nil:
		renderQuiz(out, v.Quiz)
	case v.Simulation != nil:
		fmt.Fprintln(out, v.Simulation.Scenario)
		if v.Simulation.Context != "" {
			fmt.Fprintln(out, v.Simulation.Context)
		}
		for i, c := range v.Simulation.Choices {
			mark := " "
			if v.Simulation.Selected != nil && *v.Simulation.Selected == i {
				mark = "*"
			}
			fmt.Fprintf(out, " %s%d) %s\n", mark, i+1, c)
		}
		if v.Simulation.Feedback != "" {
			fmt.Fprintf(out, "feedback: %s\n", v.Simulation.Feedback)
		}
	case v.Video != nil:
		fmt.Fprintf(out, "video: %s\n", v.Video.URL)
		if v.Video.Transcript != "" {
			fmt.Fprintln(out, v.Video.Transcript)
		}
	}

	if v.Outcome != nil {
		verdict := "not passed"
		if v.Outcome.Passed {
			verdict = "passed"
		}
		fmt.Fprintf(out, "course complete: score %d%% (%s, pass mark %d%%)\n", v.Outcome.Score, verdict, v.PassingScore)
		return
	}
	switch v.NextLabel {
	case player.NextModule:
		fmt.Fprintln(out, "[n] next module")
	case player.NextCompleteCourse:
		fmt.Fprintln(out, "[n] complete course")
	}
}

func renderQuiz(out io.Writer, q *player.QuizView) {
	fmt.Fprintln(out, q.Question)
	for i, o := range q.Options {
		mark := " "
		if q.PreviousAnswer != nil && *q.PreviousAnswer == i {
			mark = ">"
		}
		if q.CorrectAnswer != nil && *q.CorrectAnswer == i {
			mark = "+"
		}
		fmt.Fprintf(out, " %s%d) %s\n", mark, i+1, o)
	}
	if q.Explanation != "" {
		fmt.Fprintln(out, q.Explanation)
	}
}

func printCertificate(out io.Writer, p *player.Player) {
	cert, ok := p.Certificate()
	if !ok {
		return
	}
	fmt.Fprintln(out)
	for _, line := range cert.Lines(language.English) {
		fmt.Fprintln(out, "  "+line)
	}
}
