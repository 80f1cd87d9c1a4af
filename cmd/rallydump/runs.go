package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/rallydump/internal/db"
	"github.com/ALT-F4-LLC/rallydump/internal/model"
	"github.com/ALT-F4-LLC/rallydump/internal/output"
	"github.com/ALT-F4-LLC/rallydump/internal/render"
)

type runsResult struct {
	Runs  []*model.Run `json:"runs"`
	Total int          `json:"total"`
}

var runsCmd = &cobra.Command{
	Use:     "runs",
	Short:   "List recorded dump runs",
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)

		limit, _ := cmd.Flags().GetInt("limit")
		if limit < 0 {
			return cmdErr(fmt.Errorf("invalid limit %d: must be zero or more", limit), output.ErrValidation)
		}

		runs, err := db.ListRuns(conn, limit)
		if err != nil {
			return cmdErr(fmt.Errorf("listing runs: %w", err), output.ErrGeneral)
		}
		if runs == nil {
			runs = []*model.Run{}
		}

		jsonMode, _ := cmd.Flags().GetBool("json")
		var message string
		if !jsonMode {
			message = render.RenderRunsTable(runs)
		}
		w.Success(runsResult{Runs: runs, Total: len(runs)}, message)

		return nil
	},
}

func init() {
	runsCmd.Flags().Int("limit", 20, "Maximum number of runs (0 for all)")
	rootCmd.AddCommand(runsCmd)
}
