// Package tables loads extracted delimited text files into tables.
package tables

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/layerpull/internal/core/domain"
	"github.com/custodia-labs/layerpull/internal/core/ports/driven"
	"github.com/custodia-labs/layerpull/internal/logger"
)

// Verify interface compliance.
var _ driven.TableImporter = (*DelimitedImporter)(nil)

// DefaultConcurrency is the number of files parsed in parallel.
const DefaultConcurrency = 4

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// delimiters maps supported extensions to their field separator.
var delimiters = map[string]rune{
	".csv": ',',
	".tsv": '\t',
	".tab": '\t',
}

// DelimitedImporter loads CSV and tab-separated files.
type DelimitedImporter struct {
	concurrency int
}

// NewDelimitedImporter creates an importer parsing up to concurrency files
// at once. Non-positive values use DefaultConcurrency.
func NewDelimitedImporter(concurrency int) *DelimitedImporter {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &DelimitedImporter{concurrency: concurrency}
}

// SupportedExtensions returns the extensions ImportDir loads.
func (i *DelimitedImporter) SupportedExtensions() []string {
	exts := make([]string, 0, len(delimiters))
	for ext := range delimiters {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

type tableFile struct {
	name  string
	path  string
	comma rune
}

// ImportDir loads every supported file directly inside dir.
// Subdirectories and other files are skipped. Failures wrap
// domain.ErrImportFailed.
func (i *DelimitedImporter) ImportDir(ctx context.Context, dir string) (domain.TableSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrImportFailed, dir, err)
	}

	var files []tableFile
	seen := make(map[string]string)
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		comma, ok := delimiters[ext]
		if !ok {
			logger.Debug("skipping %s", e.Name())
			continue
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %s and %s both map to table %q", domain.ErrImportFailed, prev, e.Name(), name)
		}
		seen[name] = e.Name()
		files = append(files, tableFile{name: name, path: filepath.Join(dir, e.Name()), comma: comma})
	}

	results := make([]*domain.Table, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)
	for idx, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := ReadFile(f.path, f.comma)
			if err != nil {
				return err
			}
			t.Name = f.name
			results[idx] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, domain.ErrImportFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrImportFailed, err)
	}

	set := make(domain.TableSet, len(results))
	for _, t := range results {
		set[t.Name] = t
		logger.Debug("loaded %s: %d columns, %d rows", t.Name, len(t.Columns), t.RowCount())
	}
	return set, nil
}

// ReadFile parses a delimited file whose first record is the header.
// An empty file yields a table without columns or rows.
func ReadFile(path string, comma rune) (*domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrImportFailed, err)
	}
	defer f.Close()

	t, err := Read(f, comma)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrImportFailed, filepath.Base(path), err)
	}
	return t, nil
}

// Read parses delimited text from r. Every record must have as many fields
// as the header. A leading UTF-8 byte order mark is dropped.
func Read(r io.Reader, comma rune) (*domain.Table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.Comma = comma
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &domain.Table{}, nil
	}
	if err != nil {
		return nil, err
	}

	t := &domain.Table{Columns: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}
