package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/rallydump/internal/db"
	"github.com/ALT-F4-LLC/rallydump/internal/output"
)

type forgetResult struct {
	ID string `json:"id"`
}

var forgetCmd = &cobra.Command{
	Use:   "forget <run-id>",
	Short: "Remove a run and its file records from the manifest (exported files are kept)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)

		force, _ := cmd.Flags().GetBool("force")

		run, err := db.GetRun(conn, args[0])
		if err != nil {
			return cmdErr(fmt.Errorf("run %s: %w", args[0], err), errorCode(err))
		}

		if !force {
			if !interactive(w) {
				return cmdErr(fmt.Errorf("use --force to forget run %s without confirmation", run.ShortID()), output.ErrValidation)
			}

			var confirmed bool
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewConfirm().
						Title(fmt.Sprintf("Forget run %s (%d attachments in %s)?", run.ShortID(), run.Attachments, run.OutputDir)).
						Affirmative("Forget").
						Negative("Cancel").
						Value(&confirmed),
				),
			)
			if err := form.Run(); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					w.Info("Cancelled.")
					return nil
				}
				return cmdErr(fmt.Errorf("interactive form failed: %w", err), output.ErrGeneral)
			}
			if !confirmed {
				w.Info("Cancelled.")
				return nil
			}
		}

		if err := db.DeleteRun(conn, run.ID); err != nil {
			return cmdErr(fmt.Errorf("forgetting run: %w", err), errorCode(err))
		}
		w.Success(forgetResult{ID: run.ID}, fmt.Sprintf("Forgot run %s", run.ShortID()))
		return nil
	},
}

func init() {
	forgetCmd.Flags().BoolP("force", "f", false, "Skip confirmation")
	rootCmd.AddCommand(forgetCmd)
}
