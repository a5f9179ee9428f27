// Package arcgistest provides an in-process fake ArcGIS portal for tests.
package arcgistest

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"golang.org/x/oauth2"
)

// Item is an item hosted by the fake portal.
type Item struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
	Owner string `json:"owner"`
}

// Server is a fake portal serving the sharing REST API under /sharing/rest.
// Exported fields may be changed between requests.
type Server struct {
	*httptest.Server

	mu sync.Mutex

	// Username is returned by community/self and expected by generateToken.
	Username string
	// Password is expected by generateToken.
	Password string
	// Token is the accepted bearer token. Empty accepts any token.
	Token string
	// RefreshToken is accepted by the OAuth token endpoint.
	RefreshToken string
	// AuthCode is accepted by the OAuth token endpoint.
	AuthCode string

	// Archive is served as the data of every export item.
	Archive []byte
	// PendingPolls is the number of status polls answered with "processing"
	// before a job completes.
	PendingPolls int
	// FailExport makes every job report "failed".
	FailExport bool
	// StuckExport keeps every job "processing" forever.
	StuckExport bool
	// RejectExport makes the export call itself return an error envelope.
	RejectExport bool
	// FailDownload answers data requests with HTTP 500.
	FailDownload bool
	// FailDelete answers delete requests with success=false.
	FailDelete bool

	items   map[string]Item
	polls   map[string]int
	deleted []string
	calls   map[string]int
	issued  int
	nextJob int
}

// NewServer starts a fake portal closed at test cleanup.
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		Username:     "gis_analyst",
		Password:     "s3cret",
		RefreshToken: "refresh-1",
		AuthCode:     "code-ok",
		items:        make(map[string]Item),
		polls:        make(map[string]int),
		calls:        make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /sharing/rest/community/self", s.handleSelf)
	mux.HandleFunc("GET /sharing/rest/content/items/{id}", s.handleItem)
	mux.HandleFunc("GET /sharing/rest/content/items/{id}/data", s.handleData)
	mux.HandleFunc("POST /sharing/rest/content/users/{user}/export", s.handleExport)
	mux.HandleFunc("GET /sharing/rest/content/users/{user}/items/{id}/status", s.handleStatus)
	mux.HandleFunc("POST /sharing/rest/content/users/{user}/items/{id}/delete", s.handleDelete)
	mux.HandleFunc("POST /sharing/rest/generateToken", s.handleGenerateToken)
	mux.HandleFunc("POST /sharing/rest/oauth2/token", s.handleOAuthToken)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// AddItem registers a hosted item owned by the server's user.
func (s *Server) AddItem(id, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = Item{ID: id, Title: title, Type: "Feature Service", Owner: s.Username}
}

// Context returns ctx carrying the server's HTTP client for oauth2.
func (s *Server) Context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.Client())
}

// Deleted returns the IDs of deleted items in order.
func (s *Server) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

// Calls returns how many requests hit the named endpoint: "self", "item",
// "data", "export", "status", "delete", "generateToken" or "oauth2/token".
func (s *Server) Calls(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[endpoint]
}

// TokensIssued returns how many tokens the server has issued.
func (s *Server) TokensIssued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issued
}

func (s *Server) count(endpoint string) {
	s.mu.Lock()
	s.calls[endpoint]++
	s.mu.Unlock()
}

func (s *Server) authorized(w http.ResponseWriter, r *http.Request) bool {
	s.mu.Lock()
	want := s.Token
	s.mu.Unlock()

	got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if got == "" {
		writeError(w, 499, "", "Token Required")
		return false
	}
	if want != "" && got != want {
		writeError(w, 498, "", "Invalid token.")
		return false
	}
	return true
}

func (s *Server) handleSelf(w http.ResponseWriter, r *http.Request) {
	s.count("self")
	if !s.authorized(w, r) {
		return
	}
	s.mu.Lock()
	user := s.Username
	s.mu.Unlock()
	writeJSON(w, map[string]any{"username": user, "fullName": "GIS Analyst", "role": "org_user"})
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	s.count("item")
	if !s.authorized(w, r) {
		return
	}
	s.mu.Lock()
	item, ok := s.items[r.PathValue("id")]
	s.mu.Unlock()
	if !ok {
		writeError(w, 400, "CONT_0001", "Item does not exist or is inaccessible.")
		return
	}
	writeJSON(w, item)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	s.count("export")
	if !s.authorized(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.RejectExport {
		writeError(w, 400, "", "Export operations are disabled on this service.")
		return
	}
	if _, ok := s.items[r.FormValue("itemId")]; !ok {
		writeError(w, 400, "CONT_0001", "Item does not exist or is inaccessible.")
		return
	}
	if r.FormValue("exportFormat") == "" {
		writeError(w, 400, "", "exportFormat is required")
		return
	}

	s.nextJob++
	jobID := fmt.Sprintf("job-%d", s.nextJob)
	exportID := fmt.Sprintf("export-%d", s.nextJob)
	s.items[exportID] = Item{ID: exportID, Title: r.FormValue("title"), Type: "CSV Collection", Owner: s.Username}
	s.polls[jobID] = 0

	writeJSON(w, map[string]any{
		"type":          "CSV Collection",
		"size":          0,
		"jobId":         jobID,
		"exportItemId":  exportID,
		"serviceItemId": r.FormValue("itemId"),
		"exportFormat":  r.FormValue("exportFormat"),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.count("status")
	if !s.authorized(w, r) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	jobID := r.URL.Query().Get("jobId")
	n, ok := s.polls[jobID]
	if !ok {
		writeError(w, 400, "", "Job not found.")
		return
	}
	s.polls[jobID] = n + 1

	status := "completed"
	message := ""
	switch {
	case s.FailExport:
		status, message = "failed", "Export failed: layer has no features."
	case s.StuckExport, n < s.PendingPolls:
		status = "processing"
	}
	writeJSON(w, map[string]any{"status": status, "statusMessage": message, "itemId": r.PathValue("id")})
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	s.count("data")
	if !s.authorized(w, r) {
		return
	}

	s.mu.Lock()
	_, ok := s.items[r.PathValue("id")]
	archive := s.Archive
	fail := s.FailDownload
	s.mu.Unlock()

	switch {
	case fail:
		http.Error(w, "internal error", http.StatusInternalServerError)
	case !ok:
		writeError(w, 400, "CONT_0001", "Item does not exist or is inaccessible.")
	default:
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(archive)
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.count("delete")
	if !s.authorized(w, r) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := r.PathValue("id")
	if s.FailDelete {
		writeJSON(w, map[string]any{"success": false, "itemId": id})
		return
	}
	delete(s.items, id)
	s.deleted = append(s.deleted, id)
	writeJSON(w, map[string]any{"success": true, "itemId": id})
}

func (s *Server) handleGenerateToken(w http.ResponseWriter, r *http.Request) {
	s.count("generateToken")
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if r.FormValue("username") != s.Username || r.FormValue("password") != s.Password {
		writeErrorDetails(w, 400, "", "Unable to generate token.", "Invalid username or password.")
		return
	}
	s.issued++
	writeJSON(w, map[string]any{
		"token":   s.tokenLocked(),
		"expires": 4102444800000,
		"ssl":     true,
	})
}

func (s *Server) handleOAuthToken(w http.ResponseWriter, r *http.Request) {
	s.count("oauth2/token")
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.FormValue("grant_type") {
	case "authorization_code":
		if r.FormValue("code") != s.AuthCode || r.FormValue("code_verifier") == "" || r.FormValue("client_id") == "" {
			writeOAuthError(w, "invalid_grant")
			return
		}
	case "refresh_token":
		if r.FormValue("refresh_token") != s.RefreshToken {
			writeOAuthError(w, "invalid_grant")
			return
		}
	default:
		writeOAuthError(w, "unsupported_grant_type")
		return
	}

	s.issued++
	writeJSON(w, map[string]any{
		"access_token":  s.tokenLocked(),
		"refresh_token": s.RefreshToken,
		"expires_in":    1800,
		"username":      s.Username,
	})
}

// tokenLocked returns the configured token or a fresh one. Requires s.mu.
func (s *Server) tokenLocked() string {
	if s.Token != "" {
		return s.Token
	}
	return fmt.Sprintf("token-%d", s.issued)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, messageCode, message string) {
	writeErrorDetails(w, code, messageCode, message)
}

func writeErrorDetails(w http.ResponseWriter, code int, messageCode, message string, details ...string) {
	if details == nil {
		details = []string{}
	}
	writeJSON(w, map[string]any{"error": map[string]any{
		"code":        code,
		"messageCode": messageCode,
		"message":     message,
		"details":     details,
	}})
}

func writeOAuthError(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}

// ZipArchive builds a zip archive holding files, keyed by entry name.
func ZipArchive(t testing.TB, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", name, err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}
