// Package export walks a Rally subscription and writes every attachment of
// every active workspace to a local directory tree.
package export

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/spf13/afero"

	"github.com/ALT-F4-LLC/rallydump/internal/dirs"
	"github.com/ALT-F4-LLC/rallydump/internal/filter"
	"github.com/ALT-F4-LLC/rallydump/internal/layout"
	"github.com/ALT-F4-LLC/rallydump/internal/model"
)

// Source is the upstream data the walker reads from.
type Source interface {
	Subscription(ctx context.Context) (*model.Subscription, error)
	// OpenProjectCount counts open projects anywhere in the workspace.
	OpenProjectCount(ctx context.Context, ws model.Workspace) (int, error)
	Attachments(ctx context.Context, ws model.Workspace) ([]model.Attachment, error)
	// Content returns the base64 payload stored at ref.
	Content(ctx context.Context, ref string) (string, error)
}

// Reporter receives progress lines and non-fatal warnings.
type Reporter interface {
	Progress(format string, args ...any)
	Warn(format string, args ...any)
}

// Recorder persists a record of every exported attachment.
type Recorder interface {
	RecordFile(ctx context.Context, f model.ExportedFile) error
}

// Walker exports all attachments of a subscription, one workspace and one
// attachment at a time.
type Walker struct {
	Source   Source
	Fs       afero.Fs
	Root     string
	Reporter Reporter
	// Recorder is optional.
	Recorder Recorder
	// Include restricts the walk to workspaces with these names, ignoring
	// case. Empty means all.
	Include []string
}

// Run performs the export. The returned Stats is never nil and reflects
// everything written before an error stopped the run.
func (w *Walker) Run(ctx context.Context) (*Stats, error) {
	stats := NewStats()
	rep := w.reporter()

	sub, err := w.Source.Subscription(ctx)
	if err != nil {
		return stats, fmt.Errorf("querying subscription: %w", err)
	}

	workspaces := slices.Clone(sub.Workspaces)
	sort.SliceStable(workspaces, func(i, j int) bool { return workspaces[i].Name < workspaces[j].Name })
	rep.Progress("Subscription <%s> contains <%d> workspaces.", sub.Name, len(workspaces))

	rep.Progress("Creating the root directory for saving attachments: <%s>", w.Root)
	if err := dirs.Ensure(w.Fs, w.Root, dirs.MustNotExist); err != nil {
		return stats, err
	}

	selected := filter.NewWorkspaces(w.Include)
	ordinal := 0
	for i, ws := range workspaces {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		header := fmt.Sprintf("WS[%03d of %03d] Name=<%s>  State=<%s>", i+1, len(workspaces), ws.Name, ws.State)

		if !selected.Allows(ws) {
			rep.Progress("%s...  not selected.", header)
			stats.Skipped++
			continue
		}

		if ws.Closed() {
			rep.Progress("%s...  being skipped.", header)
			stats.Skipped++
			continue
		}

		open, err := w.Source.OpenProjectCount(ctx, ws)
		if err != nil {
			// A failed count is treated as no open projects, which skips the
			// workspace rather than aborting the run.
			rep.Warn("Open project query failed for workspace <%s>, treating as 0: %v", ws.Name, err)
			open = 0
		}
		header += fmt.Sprintf("  OPENprojects=<%d>", open)
		if open < 1 {
			rep.Progress("%s...  being skipped.", header)
			stats.Skipped++
			continue
		}

		attachments, err := w.Source.Attachments(ctx, ws)
		if err != nil {
			return stats, fmt.Errorf("querying attachments of workspace %q: %w", ws.Name, err)
		}
		header += fmt.Sprintf("  Attachments=<%d>", len(attachments))
		if len(attachments) == 0 {
			rep.Progress("%s...  being skipped.", header)
			stats.Skipped++
			continue
		}
		rep.Progress("%s.", header)

		ordinal++
		if err := w.exportWorkspace(ctx, ws, ordinal, attachments, stats); err != nil {
			return stats, err
		}
		stats.Workspaces++
	}

	for _, name := range selected.Unmatched() {
		rep.Warn("No workspace named <%s> in subscription <%s>", name, sub.Name)
	}
	return stats, nil
}

func (w *Walker) exportWorkspace(ctx context.Context, ws model.Workspace, wsOrdinal int, attachments []model.Attachment, stats *Stats) error {
	rep := w.reporter()
	wsDir := layout.WorkspaceDir(w.Root, wsOrdinal)

	for i, att := range attachments {
		n := i + 1
		rep.Progress("     %05d - Attachment[%03d] Size=<%d>", stats.Attachments+1, n, att.Size)

		if n == 1 {
			rep.Progress("Creating workspace directory: <%s>", wsDir)
			if err := dirs.Ensure(w.Fs, wsDir, dirs.MustNotExist); err != nil {
				return err
			}
		}

		dir, orphaned := layout.AttachmentDir(wsDir, att)
		if orphaned {
			rep.Warn("Orphaned attachment found (has no Artifact or TestCaseResult): <%s>", att.Name)
		}
		if err := dirs.Ensure(w.Fs, dir, dirs.ReuseExisting); err != nil {
			return err
		}

		encoded, err := w.content(ctx, att)
		if err != nil {
			return err
		}

		written, err := Export(w.Fs, dir, n, att, encoded)
		if err != nil {
			return err
		}
		stats.Add(written)
		rep.Progress("           Wrote DATA filename=<%s>  Size=<%d>", written.DataPath, att.Size)

		if w.Recorder != nil {
			rec := model.ExportedFile{
				WorkspaceOrdinal:  wsOrdinal,
				WorkspaceName:     ws.Name,
				AttachmentOrdinal: n,
				ObjectID:          att.ObjectID,
				Name:              att.Name,
				Dir:               dir,
				MetaPath:          written.MetaPath,
				DataPath:          written.DataPath,
				Extension:         written.Extension,
				DeclaredSize:      written.DeclaredSize,
				WrittenBytes:      written.WrittenBytes,
				Digest:            written.Digest,
			}
			if err := w.Recorder.RecordFile(ctx, rec); err != nil {
				return fmt.Errorf("recording %s: %w", written.DataPath, err)
			}
		}
	}
	return nil
}

// content returns the attachment's base64 payload, fetching it when the
// attachment query only returned a reference. nil means no content.
func (w *Walker) content(ctx context.Context, att model.Attachment) (*string, error) {
	if att.Content == nil {
		return nil, nil
	}
	if att.Content.Encoded != "" || att.Content.Ref == "" {
		return &att.Content.Encoded, nil
	}
	encoded, err := w.Source.Content(ctx, att.Content.Ref)
	if err != nil {
		return nil, fmt.Errorf("reading content of attachment %q: %w", att.Name, err)
	}
	return &encoded, nil
}

func (w *Walker) reporter() Reporter {
	if w.Reporter == nil {
		return discard{}
	}
	return w.Reporter
}

type discard struct{}

func (discard) Progress(string, ...any) {}
func (discard) Warn(string, ...any)     {}
