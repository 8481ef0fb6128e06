package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/p-n-ai/course-player/internal/course"
)

var convertCmd = &cobra.Command{
	Use:   "convert <workbook.xlsx>",
	Short: "Convert a course workbook to a YAML course definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := course.ImportWorkbookFile(args[0])
		if err != nil {
			return err
		}
		data, err := course.Marshal(c)
		if err != nil {
			return err
		}

		dst, _ := cmd.Flags().GetString("output")
		if dst == "" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", dst, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d modules)\n", dst, c.ModuleCount())
		return nil
	},
}

func init() {
	convertCmd.Flags().StringP("output", "o", "", "Write YAML to this file instead of stdout")
}
