package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"github.com/ALT-F4-LLC/rallydump/internal/config"
	"github.com/ALT-F4-LLC/rallydump/internal/output"
)

// interactive reports whether prompts can be shown: human output mode and a
// terminal on stdin.
func interactive(w *output.Writer) bool {
	if w.JSONMode {
		return false
	}
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// promptCredentials asks for whichever of username and password is missing.
func promptCredentials(cfg *config.Config) error {
	var fields []huh.Field
	if cfg.Username == "" {
		fields = append(fields, huh.NewInput().
			Title("Rally username").
			Value(&cfg.Username).
			Validate(required("username")))
	}
	if cfg.Password == "" {
		fields = append(fields, huh.NewInput().
			Title("Rally password").
			EchoMode(huh.EchoModePassword).
			Value(&cfg.Password).
			Validate(required("password")))
	}
	if len(fields) == 0 {
		return nil
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return cmdErr(fmt.Errorf("cancelled"), output.ErrCanceled)
		}
		return cmdErr(fmt.Errorf("interactive form failed: %w", err), output.ErrGeneral)
	}
	return nil
}

func required(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}
