package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/rallydump/internal/db"
	"github.com/ALT-F4-LLC/rallydump/internal/model"
	"github.com/ALT-F4-LLC/rallydump/internal/render"
)

type showResult struct {
	*model.Run
	Extensions map[string]int       `json:"extensions"`
	Files      []model.ExportedFile `json:"files"`
}

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a recorded run and the files it wrote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		conn := getDB(cmd)

		run, err := db.GetRun(conn, args[0])
		if err != nil {
			return cmdErr(fmt.Errorf("run %s: %w", args[0], err), errorCode(err))
		}

		files, err := db.ListRunFiles(conn, run.ID)
		if err != nil {
			return cmdErr(err, errorCode(err))
		}
		if files == nil {
			files = []model.ExportedFile{}
		}

		extensions, err := db.ExtensionCounts(conn, run.ID)
		if err != nil {
			return cmdErr(err, errorCode(err))
		}

		noFiles, _ := cmd.Flags().GetBool("no-files")
		shown := files
		if noFiles {
			shown = nil
		}

		jsonMode, _ := cmd.Flags().GetBool("json")
		var message string
		if !jsonMode {
			message = render.RenderRunDetail(run, shown, extensions)
		}
		w.Success(showResult{Run: run, Extensions: extensions, Files: files}, message)

		return nil
	},
}

func init() {
	showCmd.Flags().Bool("no-files", false, "Omit the per-file listing")
	rootCmd.AddCommand(showCmd)
}
