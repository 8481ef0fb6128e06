package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/course-player/internal/course"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check course definitions against the schema and content rules",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		failed := 0
		for _, path := range args {
			c, err := loadCourse(path)
			if err != nil {
				failed++
				fmt.Fprintf(out, "FAIL %s\n", path)
				var schemaErr *course.SchemaError
				if errors.As(err, &schemaErr) {
					for _, p := range schemaErr.Problems {
						fmt.Fprintf(out, "  - %s\n", p)
					}
				} else {
					fmt.Fprintf(out, "  - %v\n", err)
				}
				continue
			}
			fmt.Fprintf(out, "ok   %s (%s: %d modules, %d quizzes)\n", path, c.ID, c.ModuleCount(), len(c.QuizSlides()))
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files invalid", failed, len(args))
		}
		return nil
	},
}
