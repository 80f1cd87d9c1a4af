package main

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/rallydump/internal/db"
	"github.com/ALT-F4-LLC/rallydump/internal/export"
	"github.com/ALT-F4-LLC/rallydump/internal/model"
	"github.com/ALT-F4-LLC/rallydump/internal/output"
	"github.com/ALT-F4-LLC/rallydump/internal/rally"
	"github.com/ALT-F4-LLC/rallydump/internal/render"
)

type dumpResult struct {
	RunID     string        `json:"run_id"`
	OutputDir string        `json:"output_dir"`
	Stats     *export.Stats `json:"stats"`
	Warnings  []string      `json:"warnings"`
}

var dumpCmd = &cobra.Command{
	Use:         "dump",
	Short:       "Export every attachment of every active workspace",
	Annotations: map[string]string{annotationInitDB: "true"},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)
		conn := getDB(cmd)

		if v, _ := cmd.Flags().GetString("output"); v != "" {
			cfg.OutputDir = v
		}
		if cmd.Flags().Changed("page-size") {
			cfg.PageSize, _ = cmd.Flags().GetInt("page-size")
		}
		include, _ := cmd.Flags().GetStringArray("workspace")

		if cfg.ValidateCredentials() != nil && interactive(w) {
			if err := promptCredentials(cfg); err != nil {
				return err
			}
		}
		if err := cfg.ValidateCredentials(); err != nil {
			return cmdErr(err, output.ErrValidation)
		}
		if cfg.URLFixedUp {
			w.Info("Base URL did not end in /slm, using %s", cfg.BaseURL)
		}

		client, err := rally.New(rally.Config{
			BaseURL:    cfg.BaseURL,
			Username:   cfg.Username,
			Password:   cfg.Password,
			APIVersion: cfg.APIVersion,
			PageSize:   cfg.PageSize,
			Timeout:    2 * time.Minute,
			Headers: rally.IntegrationHeaders{
				Name:    "rallydump",
				Vendor:  "ALT-F4-LLC",
				Version: version,
			},
		})
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		run := &model.Run{OutputDir: cfg.OutputDir, BaseURL: cfg.BaseURL}
		if err := db.CreateRun(conn, run); err != nil {
			return cmdErr(fmt.Errorf("recording run: %w", err), output.ErrGeneral)
		}
		w.Info("Run %s: exporting %s to %s", run.ShortID(), cfg.BaseURL, cfg.OutputDir)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		walker := &export.Walker{
			Source:   client,
			Fs:       afero.NewOsFs(),
			Root:     cfg.OutputDir,
			Reporter: w,
			Recorder: db.NewRecorder(conn, run.ID),
			Include:  include,
		}
		stats, runErr := walker.Run(ctx)

		totals := db.RunTotals{
			Attachments: stats.Attachments,
			Bytes:       stats.Bytes,
			Workspaces:  stats.Workspaces,
		}
		if err := db.FinishRun(conn, run.ID, totals, runErr); err != nil {
			w.Warn("Could not record the end of run %s: %v", run.ShortID(), err)
		}
		if runErr != nil {
			return cmdErr(fmt.Errorf("run %s: %w", run.ShortID(), runErr), errorCode(runErr))
		}

		warnings := w.Warnings()
		if warnings == nil {
			warnings = []string{}
		}
		result := dumpResult{
			RunID:     run.ID,
			OutputDir: cfg.OutputDir,
			Stats:     stats,
			Warnings:  warnings,
		}

		jsonMode, _ := cmd.Flags().GetBool("json")
		var message string
		if !jsonMode {
			message = render.RenderSummary(stats)
		}
		w.Success(result, message)

		return nil
	},
}

func init() {
	dumpCmd.Flags().StringP("output", "o", "", "Root directory for the export (must not exist; default from RALLYDUMP_OUTPUT or ./Saved_Attachments)")
	dumpCmd.Flags().Int("page-size", rally.DefaultPageSize, "WSAPI page size (1-2000)")
	dumpCmd.Flags().StringArrayP("workspace", "w", nil, "Only export the named workspace (repeatable)")
	rootCmd.AddCommand(dumpCmd)
}
