package main

import (
	"fmt"
	"os"
	"strings"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ALT-F4-LLC/rallydump/internal/db"
	"github.com/ALT-F4-LLC/rallydump/internal/output"
)

type configInfo struct {
	BaseURL       string `json:"base_url"`
	APIVersion    string `json:"api_version"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	OutputDir     string `json:"output_dir"`
	PageSize      int    `json:"page_size"`
	SettingsPath  string `json:"settings_path"`
	DBPath        string `json:"db_path"`
	DBSizeBytes   int64  `json:"db_size_bytes"`
	SchemaVersion int    `json:"schema_version"`
	PathEnv       string `json:"rallydump_path_env"`
	PathSet       bool   `json:"rallydump_path_set"`
}

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Display the resolved rallydump configuration",
	Annotations: map[string]string{annotationSkipDB: "true"},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := getWriter(cmd)
		cfg := getCfg(cmd)

		info := configInfo{
			BaseURL:      cfg.BaseURL,
			APIVersion:   cfg.APIVersion,
			Username:     cfg.Username,
			Password:     cfg.MaskedPassword(),
			OutputDir:    cfg.OutputDir,
			PageSize:     cfg.PageSize,
			SettingsPath: cfg.SettingsPath,
			DBPath:       cfg.DBPath,
			PathEnv:      os.Getenv("RALLYDUMP_PATH"),
			PathSet:      cfg.EnvVarSet,
		}

		exists, err := cfg.Exists()
		if err != nil {
			return cmdErr(fmt.Errorf("checking manifest: %w", err), output.ErrGeneral)
		}

		if exists {
			conn, err := db.Open(cfg.DBPath)
			if err != nil {
				return cmdErr(fmt.Errorf("opening manifest: %w", err), output.ErrGeneral)
			}
			defer conn.Close()

			info.SchemaVersion, err = db.SchemaVersion(conn)
			if err != nil {
				return cmdErr(fmt.Errorf("reading schema version: %w", err), output.ErrGeneral)
			}

			stat, err := os.Stat(cfg.DBPath)
			if err != nil {
				return cmdErr(fmt.Errorf("reading manifest file: %w", err), output.ErrGeneral)
			}
			info.DBSizeBytes = stat.Size()
		}

		if err := cfg.ValidateCredentials(); err != nil {
			w.Warn("%v", err)
		}

		w.Success(info, formatConfigHuman(info, !exists))

		return nil
	},
}

func formatValue(val string) string {
	if val == "" {
		return "(not set)"
	}
	return val
}

func formatConfigHuman(info configInfo, notFound bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Rally URL:       %s\n", info.BaseURL)
	fmt.Fprintf(&b, "API version:     %s\n", info.APIVersion)
	fmt.Fprintf(&b, "Username:        %s\n", formatValue(info.Username))
	fmt.Fprintf(&b, "Password:        %s\n", formatValue(info.Password))
	fmt.Fprintf(&b, "Output dir:      %s\n", info.OutputDir)
	if info.PageSize > 0 {
		fmt.Fprintf(&b, "Page size:       %d\n", info.PageSize)
	} else {
		fmt.Fprintf(&b, "Page size:       (default)\n")
	}
	fmt.Fprintf(&b, "Settings file:   %s\n", formatValue(info.SettingsPath))

	if notFound {
		fmt.Fprintf(&b, "Manifest path:   %s (not found)\n", info.DBPath)
	} else {
		fmt.Fprintf(&b, "Manifest path:   %s\n", info.DBPath)
		fmt.Fprintf(&b, "Manifest size:   %s\n", humanize.Bytes(uint64(info.DBSizeBytes)))
		fmt.Fprintf(&b, "Schema version:  %d\n", info.SchemaVersion)
	}
	fmt.Fprintf(&b, "RALLYDUMP_PATH:  %s", formatValue(info.PathEnv))

	return b.String()
}

func init() {
	rootCmd.AddCommand(configCmd)
}
