package driven

import (
	"context"

	"github.com/custodia-labs/layerpull/internal/core/domain"
)

// ArchiveExtractor unpacks a downloaded export archive.
type ArchiveExtractor interface {
	// Extract replaces the contents of destDir with the archive's entries and
	// returns their slash-separated paths relative to destDir.
	Extract(ctx context.Context, archivePath, destDir string) ([]string, error)
}

// TableImporter loads extracted files into tables.
type TableImporter interface {
	// ImportDir loads every supported file directly inside dir, keyed by
	// file name without extension. Unsupported files are ignored.
	ImportDir(ctx context.Context, dir string) (domain.TableSet, error)

	// SupportedExtensions lists the lower-case extensions ImportDir loads.
	SupportedExtensions() []string
}
