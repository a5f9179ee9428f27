package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/custodia-labs/layerpull/internal/core/domain"
	"github.com/custodia-labs/layerpull/internal/core/ports/driven"
	"github.com/custodia-labs/layerpull/internal/core/ports/driving"
	"github.com/custodia-labs/layerpull/internal/logger"
)

// Ensure Workflow implements the interface.
var _ driving.LayerWorkflow = (*Workflow)(nil)

// Workflow runs connect, export, download, extract and import in sequence.
type Workflow struct {
	establisher driving.ConnectionEstablisher
	exporter    driving.LayerExporter
	extractor   driven.ArchiveExtractor
	importer    driven.TableImporter
	rec         recorder
}

// NewWorkflow creates the export-and-load workflow.
func NewWorkflow(
	establisher driving.ConnectionEstablisher,
	exporter driving.LayerExporter,
	extractor driven.ArchiveExtractor,
	importer driven.TableImporter,
	sink driven.DiagnosticSink,
) *Workflow {
	return &Workflow{
		establisher: establisher,
		exporter:    exporter,
		extractor:   extractor,
		importer:    importer,
		rec:         newRecorder(sink),
	}
}

// Run connects with mode (the profile's own mode when empty), exports and
// downloads the item, extracts it into {outputDir}/{title}/ and returns the
// loaded tables keyed by file name without extension.
//
// Each stage records its own failure. If a later stage fails after the
// archive was downloaded, the archive is removed, along with the extraction
// directory when this run created it.
func (w *Workflow) Run(
	ctx context.Context,
	profile domain.ConnectionProfile,
	mode domain.CredentialMode,
	outputDir string,
) (domain.TableSet, error) {
	if mode != "" {
		profile = profile.WithMode(mode)
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if outputDir == "" {
		outputDir = "."
	}
	ctx = ensureRunID(ctx)

	logger.Section("Connect")
	session, err := w.establisher.Establish(ctx, profile)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Warn("close session: %v", cerr)
		}
	}()

	logger.Section("Export")
	result, err := w.exporter.ExportAndDownload(ctx, session, profile, outputDir)
	if err != nil {
		return nil, err
	}

	logger.Section("Load")
	extractDir := filepath.Join(outputDir, result.Title)
	tables, extracted, err := w.load(ctx, result.ArchivePath, extractDir)
	if err != nil {
		w.rec.critical(ctx, "Loading %q failed: %v", result.Title, err)
		if !extracted {
			extractDir = ""
		}
		removeOutputs(result.ArchivePath, extractDir)
		return nil, err
	}

	w.rec.info(ctx, "Loaded %d tables (%s rows) from %q",
		len(tables), humanize.Comma(int64(tables.TotalRows())), result.Title)
	return tables, nil
}

// load extracts and imports the archive. The bool reports whether
// extractDir now holds this run's extraction.
func (w *Workflow) load(ctx context.Context, archivePath, extractDir string) (domain.TableSet, bool, error) {
	files, err := w.extractor.Extract(ctx, archivePath, extractDir)
	if err != nil {
		if !errors.Is(err, domain.ErrExtractFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrExtractFailed, err)
		}
		return nil, false, err
	}
	logger.Debug("Extracted %d files into %s", len(files), extractDir)

	tables, err := w.importer.ImportDir(ctx, extractDir)
	if err != nil {
		if !errors.Is(err, domain.ErrImportFailed) {
			err = fmt.Errorf("%w: %w", domain.ErrImportFailed, err)
		}
		return nil, true, err
	}
	if tables == nil {
		tables = domain.TableSet{}
	}
	for _, name := range tables.Names() {
		logger.Debug("Table %s: %d rows", name, tables[name].RowCount())
	}
	return tables, true, nil
}

// removeOutputs deletes the downloaded archive and, when extractDir is not
// empty, the extraction directory.
func removeOutputs(archivePath, extractDir string) {
	if err := os.Remove(archivePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("remove archive %s: %v", archivePath, err)
	}
	if extractDir == "" {
		return
	}
	if err := os.RemoveAll(extractDir); err != nil {
		logger.Warn("remove extraction directory %s: %v", extractDir, err)
	}
}
