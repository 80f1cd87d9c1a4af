package model

import (
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of a dump run recorded in the manifest.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

var validRunStatuses = []RunStatus{
	RunRunning,
	RunCompleted,
	RunFailed,
}

// ValidateRunStatus returns an error if s is not a recognized run status.
func ValidateRunStatus(s RunStatus) error {
	for _, v := range validRunStatuses {
		if s == v {
			return nil
		}
	}
	return fmt.Errorf("invalid run status %q: must be one of %v", s, validRunStatuses)
}

// Color returns a color name string suitable for terminal rendering.
func (s RunStatus) Color() string {
	switch s {
	case RunRunning:
		return "yellow"
	case RunCompleted:
		return "green"
	case RunFailed:
		return "red"
	default:
		return "white"
	}
}

// Icon returns a single-character icon for the status.
func (s RunStatus) Icon() string {
	switch s {
	case RunRunning:
		return "◐"
	case RunCompleted:
		return "✔"
	case RunFailed:
		return "✘"
	default:
		return "?"
	}
}

// Run is one invocation of the dump command.
type Run struct {
	ID          string     `json:"id"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	OutputDir   string     `json:"output_dir"`
	BaseURL     string     `json:"base_url"`
	Status      RunStatus  `json:"status"`
	Error       string     `json:"error,omitempty"`
	Attachments int        `json:"attachments"`
	Bytes       int64      `json:"bytes"`
	Workspaces  int        `json:"workspaces"`
}

// ShortID returns the first segment of the run's UUID for display.
func (r *Run) ShortID() string {
	if len(r.ID) < 8 {
		return r.ID
	}
	return r.ID[:8]
}

// ExportedFile is one attachment written during a run.
type ExportedFile struct {
	ID                int       `json:"id"`
	RunID             string    `json:"run_id"`
	WorkspaceOrdinal  int       `json:"workspace_ordinal"`
	WorkspaceName     string    `json:"workspace_name"`
	AttachmentOrdinal int       `json:"attachment_ordinal"`
	ObjectID          int64     `json:"object_id"`
	Name              string    `json:"name"`
	Dir               string    `json:"dir"`
	MetaPath          string    `json:"meta_path"`
	DataPath          string    `json:"data_path"`
	Extension         string    `json:"extension"`
	DeclaredSize      int64     `json:"declared_size"`
	WrittenBytes      int64     `json:"written_bytes"`
	Digest            string    `json:"digest"`
	CreatedAt         time.Time `json:"created_at"`
}
