package main

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/rallydump/internal/db"
	"github.com/ALT-F4-LLC/rallydump/internal/export"
	"github.com/ALT-F4-LLC/rallydump/internal/output"
)

type verifyResult struct {
	RunID    string         `json:"run_id"`
	Checked  int            `json:"checked"`
	Failed   int            `json:"failed"`
	Problems []export.Check `json:"problems"`
}

var verifyCmd = &cobra.Command{
	Use:   "verify <run-id>",
	Short: "Re-hash the files of a run and report missing or changed ones",
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

		checks := export.Verify(afero.NewOsFs(), files)

		result := verifyResult{RunID: run.ID, Checked: len(checks), Problems: []export.Check{}}
		var unhashed int
		for _, c := range checks {
			if c.Status == export.CheckNoDigest {
				unhashed++
			}
			if !c.Failed() {
				continue
			}
			result.Failed++
			result.Problems = append(result.Problems, c)
			w.Warn("%s %s %s", c.Status, c.File.DataPath, c.Detail)
		}
		if unhashed > 0 {
			w.Info("%d file(s) were recorded without a digest and could only be checked for presence", unhashed)
		}

		if result.Failed > 0 {
			err := fmt.Errorf("%d of %d files of run %s failed verification", result.Failed, result.Checked, run.ShortID())
			if w.JSONMode {
				// The error envelope is the only JSON output, so it carries the paths.
				paths := make([]string, 0, len(result.Problems))
				for _, c := range result.Problems {
					paths = append(paths, string(c.Status)+" "+c.File.DataPath)
				}
				err = fmt.Errorf("%w: %s", err, strings.Join(paths, "; "))
			}
			return cmdErr(err, output.ErrValidation)
		}

		w.Success(result, fmt.Sprintf("All %d files of run %s verified", result.Checked, run.ShortID()))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
