package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/rallydump/internal/config"
	"github.com/ALT-F4-LLC/rallydump/internal/db"
	"github.com/ALT-F4-LLC/rallydump/internal/dirs"
	"github.com/ALT-F4-LLC/rallydump/internal/export"
	"github.com/ALT-F4-LLC/rallydump/internal/output"
	"github.com/ALT-F4-LLC/rallydump/internal/rally"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

type contextKey string

const (
	dbKey  contextKey = "db"
	cfgKey contextKey = "cfg"
)

// Command annotations understood by the root command.
const (
	// skipDB commands never touch the manifest.
	annotationSkipDB = "skipDB"
	// initDB commands create the manifest when it does not exist yet.
	annotationInitDB = "initDB"
)

// CmdError wraps an error with a machine-readable error code for structured output.
type CmdError struct {
	Err  error
	Code output.ErrorCode
}

func (e *CmdError) Error() string { return e.Err.Error() }

func (e *CmdError) Unwrap() error { return e.Err }

func cmdErr(err error, code output.ErrorCode) *CmdError {
	return &CmdError{Err: err, Code: code}
}

// errorCode classifies an error from the export pipeline or the manifest.
func errorCode(err error) output.ErrorCode {
	var contentErr *export.ContentError
	switch {
	case errors.Is(err, context.Canceled):
		return output.ErrCanceled
	case errors.Is(err, dirs.ErrExists):
		return output.ErrConflict
	case errors.As(err, &contentErr):
		return output.ErrValidation
	case errors.Is(err, rally.ErrNotFound), errors.Is(err, db.ErrNotFound):
		return output.ErrNotFound
	case errors.Is(err, db.ErrAmbiguous):
		return output.ErrValidation
	default:
		return output.ErrGeneral
	}
}

var rootCmd = &cobra.Command{
	Use:     "rallydump",
	Short:   "Dump every attachment of a Rally subscription to disk",
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Resolve()
		if err != nil {
			return cmdErr(err, output.ErrValidation)
		}

		ctx := context.WithValue(cmd.Context(), cfgKey, cfg)

		if _, ok := cmd.Annotations[annotationSkipDB]; ok {
			cmd.SetContext(ctx)
			return nil
		}

		_, initDB := cmd.Annotations[annotationInitDB]
		if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) && !initDB {
			return cmdErr(
				fmt.Errorf("no rallydump manifest found at %s, run 'rallydump dump' first", cfg.DBPath),
				output.ErrNotFound,
			)
		}

		conn, err := openManifest(cfg, initDB)
		if err != nil {
			return err
		}

		cmd.SetContext(context.WithValue(ctx, dbKey, conn))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		conn, ok := cmd.Context().Value(dbKey).(*sql.DB)
		if ok && conn != nil {
			return conn.Close()
		}
		return nil
	},
}

// openManifest opens the manifest database, creating the state directory and
// schema first when create is set.
func openManifest(cfg *config.Config, create bool) (*sql.DB, error) {
	if create {
		if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
			return nil, cmdErr(fmt.Errorf("creating state directory: %w", err), output.ErrGeneral)
		}
	}

	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if create {
		if err := db.Initialize(conn); err != nil {
			conn.Close()
			return nil, cmdErr(fmt.Errorf("initializing schema: %w", err), output.ErrGeneral)
		}
	}
	if err := db.Migrate(conn); err != nil {
		conn.Close()
		return nil, cmdErr(fmt.Errorf("migrating schema: %w", err), output.ErrGeneral)
	}
	return conn, nil
}

func init() {
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress progress and non-essential output")
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

func getWriter(cmd *cobra.Command) *output.Writer {
	jsonMode, _ := cmd.Flags().GetBool("json")
	quietMode, _ := cmd.Flags().GetBool("quiet")
	return output.New(jsonMode, quietMode)
}

func getCfg(cmd *cobra.Command) *config.Config {
	cfg, _ := cmd.Context().Value(cfgKey).(*config.Config)
	return cfg
}

func getDB(cmd *cobra.Command) *sql.DB {
	conn, _ := cmd.Context().Value(dbKey).(*sql.DB)
	return conn
}

// Execute runs the root command and returns an exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		jsonMode, _ := rootCmd.PersistentFlags().GetBool("json")
		quietMode, _ := rootCmd.PersistentFlags().GetBool("quiet")
		w := output.New(jsonMode, quietMode)

		var ce *CmdError
		if errors.As(err, &ce) {
			return w.Error(ce.Err, ce.Code)
		}
		return w.Error(err, output.ErrGeneral)
	}
	return 0
}
