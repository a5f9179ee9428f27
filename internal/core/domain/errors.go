package domain

import "errors"

// Domain errors represent workflow failures by origin.
// Adapters wrap their own errors with one of these so callers can branch
// with errors.Is regardless of which platform or file format failed.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Authentication Errors.

	// ErrAuthRequired indicates no usable credentials were available for the
	// selected credential mode.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthInvalid indicates the platform rejected the credentials.
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrAuthExpired indicates a cached token expired and could not be refreshed.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrSessionClosed indicates a session was used after Close.
	ErrSessionClosed = errors.New("session closed")

	// ErrRateLimited indicates the platform rejected a request with HTTP 429.
	ErrRateLimited = errors.New("rate limited")

	// Workflow stage errors.

	// ErrLookupFailed indicates the content item could not be retrieved.
	ErrLookupFailed = errors.New("item lookup failed")

	// ErrExportFailed indicates the platform rejected or aborted the export job.
	ErrExportFailed = errors.New("export failed")

	// ErrExportTimeout indicates the export job did not complete in time.
	ErrExportTimeout = errors.New("export timed out")

	// ErrDownloadFailed indicates the export archive could not be written locally.
	ErrDownloadFailed = errors.New("download failed")

	// ErrArchiveMismatch indicates the downloaded file is missing, empty or
	// not a zip archive.
	ErrArchiveMismatch = errors.New("downloaded archive mismatch")

	// ErrExtractFailed indicates the archive could not be unpacked.
	ErrExtractFailed = errors.New("archive extraction failed")

	// ErrImportFailed indicates an extracted file could not be loaded as a table.
	ErrImportFailed = errors.New("table import failed")
)

// ErrorKind names the bucket of the error taxonomy an error belongs to.
type ErrorKind string

const (
	KindNone           ErrorKind = ""
	KindInvalidInput   ErrorKind = "invalid_input"
	KindAuthentication ErrorKind = "authentication"
	KindLookup         ErrorKind = "lookup"
	KindExport         ErrorKind = "export"
	KindTimeout        ErrorKind = "timeout"
	KindDownload       ErrorKind = "download"
	KindExtraction     ErrorKind = "extraction"
	KindUnknown        ErrorKind = "unknown"
)

// Kind classifies err. Stage errors win over the causes they wrap, so a
// lookup that failed with ErrNotFound is KindLookup.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrExportTimeout):
		return KindTimeout
	case errors.Is(err, ErrLookupFailed):
		return KindLookup
	case errors.Is(err, ErrExportFailed):
		return KindExport
	case errors.Is(err, ErrDownloadFailed), errors.Is(err, ErrArchiveMismatch):
		return KindDownload
	case errors.Is(err, ErrExtractFailed), errors.Is(err, ErrImportFailed):
		return KindExtraction
	case errors.Is(err, ErrAuthRequired), errors.Is(err, ErrAuthInvalid), errors.Is(err, ErrAuthExpired):
		return KindAuthentication
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrNotFound):
		return KindLookup
	default:
		return KindUnknown
	}
}
