// Command courseplayer validates, converts and plays course definitions
// from the terminal.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/p-n-ai/course-player/internal/course"
	"github.com/p-n-ai/course-player/internal/platform/config"
	"github.com/p-n-ai/course-player/internal/platform/logging"
)

var rootCmd = &cobra.Command{
	Use:           "courseplayer",
	Short:         "Validate, convert and play courses",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// COURSE_RUNTIME_SQLITE_PATH may come from a .env file.
		_ = godotenv.Load()

		level := "warn"
		if v, _ := cmd.Flags().GetBool("verbose"); v {
			level = "debug"
		}
		slog.SetDefault(logging.NewWriter(os.Stderr, config.LogConfig{Level: level, Format: "text"}))
	},
}

func main() {
	// An interrupted play still closes its session and saves progress.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(progressCmd)
}

// addStateFlags registers the flags of commands that read or write saved
// preview progress.
func addStateFlags(cmd *cobra.Command) {
	cmd.Flags().String("learner", "local", "Learner ID progress is saved under")
	cmd.Flags().String("db", "", "Path to the SQLite progress database (overrides COURSE_RUNTIME_SQLITE_PATH)")
}

// resolveDBPath returns --db, falling back to the configured preview path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.Runtime.SQLitePath, nil
}

// loadCourse reads a YAML/JSON definition or an .xlsx workbook.
func loadCourse(path string) (*course.Course, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return course.ImportWorkbookFile(path)
	}
	return course.LoadFile(path)
}

// namespace scopes saved progress to one learner and course.
func namespace(learner, courseID string) string {
	return learner + "/" + courseID
}
