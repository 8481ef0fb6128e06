package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/course-player/internal/course"
	"github.com/p-n-ai/course-player/internal/progress"
	"github.com/p-n-ai/course-player/internal/runtime"
)

var progressCmd = &cobra.Command{
	Use:   "progress <course-file>",
	Short: "Show the saved progress of a learner in a course",
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
		raw, _ := cmd.Flags().GetBool("raw")

		db, err := runtime.OpenSQLite(cmd.Context(), dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		local := runtime.NewSQLiteLocalStore(db, namespace(learner, c.ID))
		out := cmd.OutOrStdout()
		if raw {
			entries, err := local.Entries(cmd.Context())
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s\t%s\t%s\n", time.UnixMilli(e.UpdatedAt).UTC().Format(time.RFC3339), e.Key, e.Value)
			}
			return nil
		}

		b := runtime.NewBridge(runtime.Options{Local: local})
		b.Initialize()
		return printProgress(out, c, b)
	},
}

func init() {
	addStateFlags(progressCmd)
	progressCmd.Flags().Bool("raw", false, "List the stored runtime values instead of the decoded state")
}

// printProgress decodes the saved state without starting a session, so
// nothing is written back.
func printProgress(out io.Writer, c *course.Course, rt runtime.Runtime) error {
	st := progress.NewStore(rt, progress.StoreOptions{}).Load()

	fmt.Fprintf(out, "%s (%s)\n", c.Title, c.ID)
	fmt.Fprintf(out, "status:   %s\n", valueOr(string(runtime.GetStatus(rt)), "not attempted"))
	if score := rt.Read(runtime.ElementScoreRaw); score != "" {
		fmt.Fprintf(out, "score:    %s\n", score)
	}
	fmt.Fprintf(out, "position: module %d, slide %d\n", st.CurrentModule+1, st.CurrentSlide+1)
	for i, m := range c.Modules {
		mark := " "
		if st.CompletedModules.Has(i) {
			mark = "x"
		}
		fmt.Fprintf(out, "  [%s] %d. %s\n", mark, i+1, m.Title)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	fmt.Fprintf(out, "state:\n%s\n", data)
	return nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
