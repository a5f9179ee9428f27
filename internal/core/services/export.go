package services

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/custodia-labs/layerpull/internal/core/domain"
	"github.com/custodia-labs/layerpull/internal/core/ports/driven"
	"github.com/custodia-labs/layerpull/internal/core/ports/driving"
)

// Ensure ExportService implements the interface.
var _ driving.LayerExporter = (*ExportService)(nil)

// ExportService exports a feature layer item to a CSV archive and downloads it.
type ExportService struct {
	opts domain.ExportOptions
	rec  recorder
}

// NewExportService creates an export service. Zero option values fall back
// to the defaults.
func NewExportService(sink driven.DiagnosticSink, opts domain.ExportOptions) *ExportService {
	defaults := domain.DefaultExportOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaults.PollInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	return &ExportService{opts: opts, rec: newRecorder(sink)}
}

// ExportAndDownload exports profile.ItemID through session and writes the
// archive to {outputDir}/{title}.zip.
//
//nolint:gocyclo // Sequential export stages, each with its own failure mapping
func (s *ExportService) ExportAndDownload(
	ctx context.Context,
	session driven.PortalSession,
	profile domain.ConnectionProfile,
	outputDir string,
) (*domain.ExportResult, error) {
	if session == nil {
		return nil, fmt.Errorf("%w: no session", domain.ErrInvalidInput)
	}
	portal := session.PortalURL()

	// 1. Look up the item. Nothing touches the filesystem before this succeeds.
	item, err := session.Item(ctx, profile.ItemID)
	if err != nil {
		err = fmt.Errorf("%w: item %s on %s: %w", domain.ErrLookupFailed, profile.ItemID, portal, err)
		s.rec.critical(ctx, "Lookup of item %s on %s failed: %v", profile.ItemID, portal, err)
		return nil, err
	}

	title := item.ArchiveBaseName()
	archivePath := filepath.Join(outputDir, title+".zip")

	// 2. Start the server-side export.
	job, err := session.Export(ctx, item.ID, title, domain.ExportFormatCSV)
	if err != nil {
		err = fmt.Errorf("%w: item %s on %s: %w", domain.ErrExportFailed, item.ID, portal, err)
		s.rec.critical(ctx, "Export of %q (%s) from %s failed: %v", title, item.ID, portal, err)
		return nil, err
	}
	s.rec.info(ctx, "Export job %s started for %q (%s)", job.JobID, title, item.ID)

	// 3. Wait for it, bounded.
	if err := s.waitForExport(ctx, session, *job); err != nil {
		s.rec.critical(ctx, "Export of %q (%s) from %s failed: %v", title, item.ID, portal, err)
		s.removeRemote(ctx, session, job.ExportItemID)
		return nil, err
	}

	// 4. Replace any stale local archive.
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		err = fmt.Errorf("%w: create output directory: %w", domain.ErrDownloadFailed, err)
		s.rec.critical(ctx, "Download of %q failed: %v", title, err)
		s.removeRemote(ctx, session, job.ExportItemID)
		return nil, err
	}
	removed, err := removeStaleArchive(archivePath)
	if err != nil {
		err = fmt.Errorf("%w: %w", domain.ErrDownloadFailed, err)
		s.rec.critical(ctx, "Download of %q failed: %v", title, err)
		s.removeRemote(ctx, session, job.ExportItemID)
		return nil, err
	}
	if removed {
		s.rec.info(ctx, "Removed existing archive %s", archivePath)
	}

	// 5. Download.
	n, err := session.Download(ctx, job.ExportItemID, archivePath)
	if err != nil {
		err = fmt.Errorf("%w: item %s from %s: %w", domain.ErrDownloadFailed, job.ExportItemID, portal, err)
		s.rec.critical(ctx, "Download of %q from %s failed: %v", title, portal, err)
		s.removeRemote(ctx, session, job.ExportItemID)
		return nil, err
	}

	// 6. Verify.
	if err := verifyArchive(archivePath); err != nil {
		_ = os.Remove(archivePath)
		s.rec.critical(ctx, "Download of %q from %s failed verification: %v", title, portal, err)
		s.removeRemote(ctx, session, job.ExportItemID)
		return nil, err
	}

	// 7. Clean up the temporary export item.
	s.removeRemote(ctx, session, job.ExportItemID)

	s.rec.info(ctx, "Downloaded %q from %s (%s)", title, portal, humanize.Bytes(uint64(n)))

	return &domain.ExportResult{
		ArchivePath:  archivePath,
		Title:        title,
		ItemID:       item.ID,
		ExportItemID: job.ExportItemID,
		Bytes:        n,
	}, nil
}

// waitForExport polls the job until it completes, fails, or the timeout
// elapses. Cancelling ctx aborts the wait.
func (s *ExportService) waitForExport(ctx context.Context, session driven.PortalSession, job domain.ExportJob) error {
	waitCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	timedOut := func() error {
		return fmt.Errorf("%w: job %s still processing after %s", domain.ErrExportTimeout, job.JobID, s.opts.Timeout)
	}

	for {
		status, err := session.ExportStatus(waitCtx, job)
		if err != nil {
			if ctx.Err() == nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
				return timedOut()
			}
			return fmt.Errorf("%w: job %s: %w", domain.ErrExportFailed, job.JobID, err)
		}

		switch status.State {
		case domain.ExportCompleted:
			return nil
		case domain.ExportFailed:
			msg := status.Message
			if msg == "" {
				msg = "job reported failure"
			}
			return fmt.Errorf("%w: job %s: %s", domain.ErrExportFailed, job.JobID, msg)
		}

		select {
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%w: job %s: %w", domain.ErrExportFailed, job.JobID, err)
			}
			return timedOut()
		case <-ticker.C:
		}
	}
}

// removeRemote deletes the temporary export item unless configured to keep it.
// Failures are recorded as warnings.
func (s *ExportService) removeRemote(ctx context.Context, session driven.PortalSession, itemID string) {
	if s.opts.KeepRemoteExport || itemID == "" {
		return
	}
	if err := session.DeleteItem(context.WithoutCancel(ctx), itemID); err != nil {
		s.rec.warn(ctx, "Could not delete export item %s from %s: %v", itemID, session.PortalURL(), err)
	}
}

// removeStaleArchive deletes an existing file at path.
func removeStaleArchive(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat existing archive: %w", err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("existing archive path %s is a directory", path)
	}
	if err := os.Remove(path); err != nil {
		return false, fmt.Errorf("remove existing archive: %w", err)
	}
	return true, nil
}

// verifyArchive checks that path holds a non-empty, readable zip archive.
func verifyArchive(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrArchiveMismatch, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s is empty", domain.ErrArchiveMismatch, path)
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("%w: %s is not a zip archive: %w", domain.ErrArchiveMismatch, path, err)
	}
	return r.Close()
}
