// Package archive unpacks downloaded export archives.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/layerpull/internal/core/domain"
	"github.com/custodia-labs/layerpull/internal/core/ports/driven"
	"github.com/custodia-labs/layerpull/internal/logger"
)

// Verify interface compliance.
var _ driven.ArchiveExtractor = (*ZipExtractor)(nil)

// ZipExtractor extracts zip archives.
type ZipExtractor struct{}

// NewZipExtractor creates a zip extractor.
func NewZipExtractor() *ZipExtractor {
	return &ZipExtractor{}
}

// MarkerFile is written into every directory the extractor creates. Only
// directories carrying it are replaced by later extractions.
const MarkerFile = ".layerpull-extract"

// Extract replaces destDir with the contents of the zip at archivePath.
// Entries that would land outside destDir fail the extraction.
//
// The archive is unpacked into a temporary sibling of destDir and renamed
// into place once complete. An existing destDir is only replaced when it is
// empty or was created by a previous extraction; anything else is left alone
// and the extraction fails. All failures wrap domain.ErrExtractFailed.
func (e *ZipExtractor) Extract(ctx context.Context, archivePath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		if r != nil {
			_ = r.Close()
		}
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrExtractFailed, archivePath, err)
	}
	defer r.Close()

	exists, err := checkDestination(destDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtractFailed, err)
	}

	parent := filepath.Dir(destDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", domain.ErrExtractFailed, parent, err)
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(destDir)+".extract-*")
	if err != nil {
		return nil, fmt.Errorf("%w: create staging directory: %w", domain.ErrExtractFailed, err)
	}

	files, err := unpack(ctx, r, tmp)
	if err == nil {
		err = os.WriteFile(filepath.Join(tmp, MarkerFile), []byte("created by layerpull\n"), 0o644)
	}
	if err == nil && exists {
		err = os.RemoveAll(destDir)
	}
	if err == nil {
		err = os.Rename(tmp, destDir)
	}
	if err != nil {
		if rerr := os.RemoveAll(tmp); rerr != nil {
			logger.Warn("remove staging directory %s: %v", tmp, rerr)
		}
		if errors.Is(err, domain.ErrExtractFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrExtractFailed, destDir, err)
	}

	sort.Strings(files)
	return files, nil
}

// checkDestination reports whether destDir exists and fails when it holds
// anything the extractor did not create.
func checkDestination(destDir string) (bool, error) {
	info, err := os.Lstat(destDir)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !info.IsDir() {
		return false, fmt.Errorf("%s exists and is not a directory", destDir)
	}
	if _, err := os.Stat(filepath.Join(destDir, MarkerFile)); err == nil {
		return true, nil
	}
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return false, err
	}
	if len(entries) > 0 {
		return false, fmt.Errorf("%s exists and was not created by layerpull", destDir)
	}
	return true, nil
}

func unpack(ctx context.Context, r *zip.ReadCloser, dir string) ([]string, error) {
	var files []string
	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrExtractFailed, err)
		}

		rel, err := entryPath(f.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrExtractFailed, err)
		}
		if rel == MarkerFile {
			continue
		}
		target := filepath.Join(dir, filepath.FromSlash(rel))

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, fmt.Errorf("%w: %w", domain.ErrExtractFailed, err)
			}
			continue
		}

		if err := extractFile(f, target); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrExtractFailed, f.Name, err)
		}
		files = append(files, rel)
	}
	return files, nil
}

// entryPath validates a zip entry name and returns it as a clean relative
// slash path.
func entryPath(name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	if name == "" || strings.HasPrefix(name, "/") || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", fmt.Errorf("illegal entry path %q", name)
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("illegal entry path %q", name)
	}
	return clean, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}
