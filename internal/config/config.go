package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	dbFileName          = "manifest.db"
	defaultBaseURL      = "https://rally1.rallydev.com/slm"
	defaultAPIVersion   = "v2.0"
	defaultOutputDir    = "./Saved_Attachments"
	defaultSettingsFile = "rallydump.yaml"
)

// Config holds the resolved connection settings and local paths.
type Config struct {
	StateDir  string // resolved .rallydump directory path
	DBPath    string // full path to manifest.db
	EnvVarSet bool   // whether RALLYDUMP_PATH was used

	BaseURL    string
	Username   string
	Password   string
	APIVersion string
	OutputDir  string
	PageSize   int

	SettingsPath string // settings file that was applied, empty if none
	URLFixedUp   bool   // whether /slm was appended to BaseURL
}

// Settings is the on-disk settings file. Non-empty values override the
// environment.
type Settings struct {
	BaseURL    string `yaml:"base_url"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	APIVersion string `yaml:"api_version"`
	OutputDir  string `yaml:"output_dir"`
	PageSize   int    `yaml:"page_size"`
}

// Resolve builds the configuration from RALLY_* / RALLYDUMP_* environment
// variables, then applies the settings file named by RALLYDUMP_SETTINGS, or
// ./rallydump.yaml when that exists.
func Resolve() (*Config, error) {
	var stateDir string
	var envVarSet bool

	if envPath := os.Getenv("RALLYDUMP_PATH"); envPath != "" {
		stateDir = envPath
		envVarSet = true
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		stateDir = filepath.Join(cwd, ".rallydump")
	}

	cfg := &Config{
		StateDir:   stateDir,
		DBPath:     filepath.Join(stateDir, dbFileName),
		EnvVarSet:  envVarSet,
		BaseURL:    envOr("RALLY_BASE_URL", defaultBaseURL),
		Username:   os.Getenv("RALLY_USERNAME"),
		Password:   os.Getenv("RALLY_PASSWORD"),
		APIVersion: envOr("RALLY_API_VERSION", defaultAPIVersion),
		OutputDir:  envOr("RALLYDUMP_OUTPUT", defaultOutputDir),
	}

	if v := os.Getenv("RALLYDUMP_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parsing RALLYDUMP_PAGE_SIZE %q: %w", v, err)
		}
		cfg.PageSize = n
	}

	settingsPath, explicit := os.LookupEnv("RALLYDUMP_SETTINGS")
	if !explicit || settingsPath == "" {
		settingsPath = defaultSettingsFile
		explicit = false
	}
	s, err := LoadSettings(settingsPath)
	switch {
	case err == nil:
		cfg.apply(s)
		cfg.SettingsPath = settingsPath
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// The default settings file is optional.
	default:
		return nil, err
	}

	cfg.BaseURL, cfg.URLFixedUp = FixupBaseURL(cfg.BaseURL)
	return cfg, nil
}

// LoadSettings reads a YAML settings file.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing settings file %s: %w", path, err)
	}
	return &s, nil
}

func (c *Config) apply(s *Settings) {
	if s.BaseURL != "" {
		c.BaseURL = s.BaseURL
	}
	if s.Username != "" {
		c.Username = s.Username
	}
	if s.Password != "" {
		c.Password = s.Password
	}
	if s.APIVersion != "" {
		c.APIVersion = s.APIVersion
	}
	if s.OutputDir != "" {
		c.OutputDir = s.OutputDir
	}
	if s.PageSize != 0 {
		c.PageSize = s.PageSize
	}
}

// FixupBaseURL makes sure the Rally URL ends in /slm, which is where WSAPI
// lives. It reports whether the URL was changed.
func FixupBaseURL(raw string) (string, bool) {
	if strings.HasSuffix(raw, "/slm") || strings.HasSuffix(raw, "/slm/") {
		return raw, false
	}
	if strings.HasSuffix(raw, "/") {
		return raw + "slm", true
	}
	return raw + "/slm", true
}

// ValidateCredentials returns an error if the settings needed to talk to
// Rally are missing.
func (c *Config) ValidateCredentials() error {
	var missing []string
	if c.BaseURL == "" {
		missing = append(missing, "RALLY_BASE_URL")
	}
	if c.Username == "" {
		missing = append(missing, "RALLY_USERNAME")
	}
	if c.Password == "" {
		missing = append(missing, "RALLY_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %s (set the environment variables or use a settings file)", strings.Join(missing, ", "))
	}
	return nil
}

// MaskedPassword returns a display-safe form of the password.
func (c *Config) MaskedPassword() string {
	if c.Password == "" {
		return ""
	}
	return "********"
}

// Exists checks if the state directory and manifest DB file both exist.
// It returns an error for non-existence failures (e.g. permission errors).
func (c *Config) Exists() (bool, error) {
	if _, err := os.Stat(c.StateDir); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if _, err := os.Stat(c.DBPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
