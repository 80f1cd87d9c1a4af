package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/mattn/go-isatty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ALT-F4-LLC/rallydump/internal/db"
	"github.com/ALT-F4-LLC/rallydump/internal/dirs"
	"github.com/ALT-F4-LLC/rallydump/internal/export"
	"github.com/ALT-F4-LLC/rallydump/internal/model"
	"github.com/ALT-F4-LLC/rallydump/internal/output"
	"github.com/ALT-F4-LLC/rallydump/internal/rally"
)

func writeQuery(w http.ResponseWriter, results []any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"QueryResult": map[string]any{
		"Errors":           []string{},
		"Warnings":         []string{},
		"TotalResultCount": len(results),
		"StartIndex":       1,
		"PageSize":         len(results),
		"Results":          results,
	}})
}

// newFakeRally serves a subscription with an open workspace "Beta" holding one
// attachment and a closed workspace "Archive".
func newFakeRally(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	ref := func(p string) string { return srv.URL + "/slm/webservice/v2.0" + p }

	r := chi.NewRouter()
	r.Route("/slm/webservice/v2.0", func(r chi.Router) {
		r.Get("/subscription", func(w http.ResponseWriter, req *http.Request) {
			writeQuery(w, []any{map[string]any{
				"_ref": ref("/subscription/1"), "Name": "Acme", "ObjectID": 1,
				"Workspaces": map[string]any{"_ref": ref("/Subscription/1/Workspaces")},
			}})
		})
		r.Get("/Subscription/1/Workspaces", func(w http.ResponseWriter, req *http.Request) {
			writeQuery(w, []any{
				map[string]any{"_ref": ref("/workspace/11"), "Name": "Beta", "State": "Open", "ObjectID": 11},
				map[string]any{"_ref": ref("/workspace/12"), "Name": "Archive", "State": "Closed", "ObjectID": 12},
			})
		})
		r.Get("/project", func(w http.ResponseWriter, req *http.Request) {
			writeQuery(w, []any{map[string]any{"Name": "P1"}})
		})
		r.Get("/attachment", func(w http.ResponseWriter, req *http.Request) {
			writeQuery(w, []any{map[string]any{
				"_ref": ref("/attachment/100"), "ObjectID": 100, "Name": "log.txt", "Size": 5,
				"Artifact": map[string]any{"_ref": ref("/defect/7"), "FormattedID": "DE123"},
				"Content":  map[string]any{"Content": base64.StdEncoding.EncodeToString([]byte("hello"))},
			}})
		})
	})

	srv = httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) int {
	t.Helper()
	rootCmd.SetArgs(args)
	return Execute()
}

func TestDumpEndToEnd(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	srv := newFakeRally(t)

	work := t.TempDir()
	t.Chdir(work)
	t.Setenv("RALLYDUMP_SETTINGS", "")
	t.Setenv("RALLYDUMP_PATH", filepath.Join(work, "state"))
	t.Setenv("RALLY_BASE_URL", srv.URL+"/slm")
	t.Setenv("RALLY_USERNAME", "jp@example.com")
	t.Setenv("RALLY_PASSWORD", "secret")

	out := filepath.Join(work, "Saved_Attachments")
	require.Equal(t, 0, run(t, "dump", "--quiet", "--output", out))

	data, err := os.ReadFile(filepath.Join(out, "WS001", "DE123", "attachment-001.DATA.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.FileExists(t, filepath.Join(out, "WS001", "DE123", "attachment-001.META.txt"))
	assert.NoDirExists(t, filepath.Join(out, "WS002"))

	conn, err := db.Open(filepath.Join(work, "state", "manifest.db"))
	require.NoError(t, err)
	defer conn.Close()

	runs, err := db.ListRuns(conn, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunCompleted, runs[0].Status)
	assert.Equal(t, 1, runs[0].Attachments)
	assert.Equal(t, int64(5), runs[0].Bytes)
	assert.Equal(t, 1, runs[0].Workspaces)

	counts, err := db.ExtensionCounts(conn, runs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"txt": 1}, counts)

	assert.Equal(t, 0, run(t, "verify", "--quiet", runs[0].ShortID()))

	// A second dump into the same root collides and is recorded as failed.
	assert.Equal(t, output.ExitConflict, run(t, "dump", "--quiet", "--output", out))
	runs, err = db.ListRuns(conn, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	var failed int
	for _, r := range runs {
		if r.Status == model.RunFailed {
			failed++
		}
	}
	assert.Equal(t, 1, failed)

	require.NoError(t, os.WriteFile(filepath.Join(out, "WS001", "DE123", "attachment-001.DATA.txt"), []byte("HELLO"), 0o644))
	for _, r := range runs {
		if r.Status == model.RunCompleted {
			assert.Equal(t, output.ExitValidation, run(t, "verify", "--quiet", r.ID))
		}
	}

	assert.Equal(t, 0, run(t, "forget", "--quiet", "--force", runs[0].ID))
	assert.Equal(t, output.ExitNotFound, run(t, "show", "--quiet", runs[0].ID))
	remaining, err := db.ListRuns(conn, 0)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
	assert.FileExists(t, filepath.Join(out, "WS001", "DE123", "attachment-001.META.txt"), "exported files are kept")
}

func TestRunsWithoutManifest(t *testing.T) {
	work := t.TempDir()
	t.Setenv("RALLYDUMP_SETTINGS", "")
	t.Setenv("RALLYDUMP_PATH", filepath.Join(work, "state"))

	assert.Equal(t, output.ExitNotFound, run(t, "runs", "--quiet"))
	assert.NoFileExists(t, filepath.Join(work, "state", "manifest.db"))
}

func TestDumpRequiresCredentials(t *testing.T) {
	if isatty.IsTerminal(os.Stdin.Fd()) {
		t.Skip("stdin is a terminal, dump would prompt for credentials")
	}
	work := t.TempDir()
	t.Chdir(work)
	t.Setenv("RALLYDUMP_SETTINGS", "")
	t.Setenv("RALLYDUMP_PATH", filepath.Join(work, "state"))
	t.Setenv("RALLY_USERNAME", "")
	t.Setenv("RALLY_PASSWORD", "")

	assert.Equal(t, output.ExitValidation, run(t, "dump", "--quiet", "--output", filepath.Join(work, "out")))
	assert.NoDirExists(t, filepath.Join(work, "out"))
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want output.ErrorCode
	}{
		{"canceled", fmt.Errorf("walk: %w", context.Canceled), output.ErrCanceled},
		{"root exists", &dirs.Error{Path: "out", Policy: dirs.MustNotExist, Err: dirs.ErrExists}, output.ErrConflict},
		{"bad content", &export.ContentError{Name: "a.txt", Err: errors.New("illegal base64")}, output.ErrValidation},
		{"rally not found", fmt.Errorf("read: %w", rally.ErrNotFound), output.ErrNotFound},
		{"run not found", db.ErrNotFound, output.ErrNotFound},
		{"ambiguous", db.ErrAmbiguous, output.ErrValidation},
		{"other", errors.New("boom"), output.ErrGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorCode(tt.err))
		})
	}
}

func TestFormatConfigHuman(t *testing.T) {
	info := configInfo{
		BaseURL:    "https://rally1.rallydev.com/slm",
		APIVersion: "v2.0",
		Username:   "jp@example.com",
		Password:   "********",
		OutputDir:  "./Saved_Attachments",
		DBPath:     "/tmp/.rallydump/manifest.db",
	}

	got := formatConfigHuman(info, true)
	assert.Contains(t, got, "Password:        ********")
	assert.Contains(t, got, "Page size:       (default)")
	assert.Contains(t, got, "Settings file:   (not set)")
	assert.Contains(t, got, "/tmp/.rallydump/manifest.db (not found)")
	assert.NotContains(t, got, "Schema version")
}
