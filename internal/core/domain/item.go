package domain

import (
	"strings"
	"time"
	"unicode"
)

// Item is a portal content item as returned by a lookup.
type Item struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
	Owner string `json:"owner"`
	// Name is the item's file name on the portal, if any.
	Name string `json:"name,omitempty"`
}

// ArchiveBaseName returns the title made safe for use as a file name.
// Path separators, characters reserved on Windows and control characters
// become underscores. An empty result falls back to the item ID.
func (i Item) ArchiveBaseName() string {
	name := SanitizeFileName(i.Title)
	if name == "" {
		name = SanitizeFileName(i.ID)
	}
	if name == "" {
		name = "export"
	}
	return name
}

// SanitizeFileName replaces characters that cannot appear in a file name.
func SanitizeFileName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if unicode.IsControl(r) {
			return '_'
		}
		return r
	}, s)
	return strings.Trim(s, " .")
}

// ExportFormat is a server-side export format.
type ExportFormat string

const (
	// ExportFormatCSV exports every layer and table as a CSV file in a zip.
	ExportFormatCSV ExportFormat = "CSV"
)

// ExportJob identifies a running server-side export.
type ExportJob struct {
	JobID string
	// ExportItemID is the temporary item that receives the exported archive.
	ExportItemID string
	// SourceItemID is the item being exported.
	SourceItemID string
	Format       ExportFormat
}

// ExportState is the lifecycle state of an export job.
type ExportState string

const (
	ExportProcessing ExportState = "processing"
	ExportCompleted  ExportState = "completed"
	ExportFailed     ExportState = "failed"
)

// ExportStatus is a single status poll result.
type ExportStatus struct {
	State   ExportState
	Message string
}

// Done reports whether the job reached a terminal state.
func (s ExportStatus) Done() bool {
	return s.State == ExportCompleted || s.State == ExportFailed
}

// ExportResult describes a downloaded and verified export archive.
type ExportResult struct {
	// ArchivePath is {outputDir}/{title}.zip.
	ArchivePath string
	// Title is the sanitised item title used for the archive and extraction
	// directory names.
	Title        string
	ItemID       string
	ExportItemID string
	// Bytes is the archive size on disk.
	Bytes int64
}

// Default export wait bounds.
const (
	DefaultPollInterval  = 5 * time.Second
	DefaultExportTimeout = 10 * time.Minute
)

// ExportOptions bounds the export wait and controls remote cleanup.
type ExportOptions struct {
	// PollInterval is the delay between status polls.
	PollInterval time.Duration
	// Timeout bounds the total wait for the job to complete.
	Timeout time.Duration
	// KeepRemoteExport leaves the temporary export item on the portal.
	KeepRemoteExport bool
}

// DefaultExportOptions returns the default export options.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{
		PollInterval: DefaultPollInterval,
		Timeout:      DefaultExportTimeout,
	}
}
