package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// DefaultTimeout is the default timeout for JSON requests.
	// Downloads are bounded by the caller's context only.
	DefaultTimeout = 30 * time.Second

	// restPath is appended to the portal URL to reach the sharing API.
	restPath = "/sharing/rest"

	// maxJSONBody caps JSON responses read into memory.
	maxJSONBody = 8 << 20
)

// Client is a minimal ArcGIS portal REST client.
type Client struct {
	portalURL   string
	restURL     string
	http        *http.Client
	timeout     time.Duration
	rateLimiter *RateLimiter
}

// Option configures a Client.
type Option func(*Client)

// WithRequestTimeout sets the timeout applied to JSON requests.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimiter replaces the default rate limiter.
func WithRateLimiter(r *RateLimiter) Option {
	return func(c *Client) {
		if r != nil {
			c.rateLimiter = r
		}
	}
}

// NewClient creates a client for portalURL authenticating with ts.
// An *http.Client stored in ctx under oauth2.HTTPClient is used as transport.
func NewClient(ctx context.Context, portalURL string, ts oauth2.TokenSource, opts ...Option) *Client {
	c := &Client{
		portalURL:   strings.TrimRight(portalURL, "/"),
		restURL:     RestURL(portalURL),
		http:        oauth2.NewClient(ctx, ts),
		timeout:     DefaultTimeout,
		rateLimiter: NewRateLimiter(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RestURL returns the sharing REST root for a portal URL.
func RestURL(portalURL string) string {
	u := strings.TrimRight(portalURL, "/")
	if strings.HasSuffix(u, restPath) {
		return u
	}
	return u + restPath
}

// PortalURL returns the portal base URL without trailing slash.
func (c *Client) PortalURL() string {
	return c.portalURL
}

// User is the subset of community/self the client uses.
type User struct {
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// ItemInfo is the subset of an item description the client uses.
type ItemInfo struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
	Title string `json:"title"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	Size  int64  `json:"size"`
}

// ExportResponse is returned when an export job is submitted.
type ExportResponse struct {
	Type          string `json:"type"`
	Size          int64  `json:"size"`
	JobID         string `json:"jobId"`
	ExportItemID  string `json:"exportItemId"`
	ServiceItemID string `json:"serviceItemId"`
	ExportFormat  string `json:"exportFormat"`
}

// JobStatus is the status of an asynchronous item job.
type JobStatus struct {
	Status        string `json:"status"`
	StatusMessage string `json:"statusMessage"`
	ItemID        string `json:"itemId"`
}

type deleteResponse struct {
	Success bool   `json:"success"`
	ItemID  string `json:"itemId"`
}

type errorEnvelope struct {
	Error *struct {
		Code        int      `json:"code"`
		MessageCode string   `json:"messageCode"`
		Message     string   `json:"message"`
		Details     []string `json:"details"`
	} `json:"error"`
}

// Self returns the authenticated user.
func (c *Client) Self(ctx context.Context) (*User, error) {
	var user User
	if err := c.getJSON(ctx, "community/self", nil, &user); err != nil {
		return nil, fmt.Errorf("get self: %w", err)
	}
	return &user, nil
}

// Item fetches an item description by ID.
func (c *Client) Item(ctx context.Context, itemID string) (*ItemInfo, error) {
	var item ItemInfo
	if err := c.getJSON(ctx, "content/items/"+url.PathEscape(itemID), nil, &item); err != nil {
		return nil, fmt.Errorf("get item %s: %w", itemID, err)
	}
	return &item, nil
}

// Export submits an export job for itemID owned by username.
func (c *Client) Export(ctx context.Context, username, itemID, title, format string) (*ExportResponse, error) {
	form := url.Values{
		"itemId":       {itemID},
		"exportFormat": {format},
		"title":        {title},
	}
	var resp ExportResponse
	path := "content/users/" + url.PathEscape(username) + "/export"
	if err := c.postForm(ctx, path, form, &resp); err != nil {
		return nil, fmt.Errorf("export item %s: %w", itemID, err)
	}
	if resp.JobID == "" || resp.ExportItemID == "" {
		return nil, ErrMissingJob
	}
	return &resp, nil
}

// ExportStatus polls the status of an export job.
func (c *Client) ExportStatus(ctx context.Context, username, exportItemID, jobID string) (*JobStatus, error) {
	params := url.Values{
		"jobId":   {jobID},
		"jobType": {"export"},
	}
	var status JobStatus
	path := "content/users/" + url.PathEscape(username) + "/items/" + url.PathEscape(exportItemID) + "/status"
	if err := c.getJSON(ctx, path, params, &status); err != nil {
		return nil, fmt.Errorf("export status %s: %w", jobID, err)
	}
	return &status, nil
}

// DeleteItem deletes an item owned by username.
func (c *Client) DeleteItem(ctx context.Context, username, itemID string) error {
	var resp deleteResponse
	path := "content/users/" + url.PathEscape(username) + "/items/" + url.PathEscape(itemID) + "/delete"
	if err := c.postForm(ctx, path, url.Values{}, &resp); err != nil {
		return fmt.Errorf("delete item %s: %w", itemID, err)
	}
	if !resp.Success {
		return fmt.Errorf("%w: %s", ErrDeleteRejected, itemID)
	}
	return nil
}

// Download streams the data of itemID into w and returns the bytes written.
func (c *Client) Download(ctx context.Context, itemID string, w io.Writer) (int64, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := c.restURL + "/content/items/" + url.PathEscape(itemID) + "/data"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download item %s: %w", itemID, err)
	}
	defer resp.Body.Close()

	if err := c.rateLimiter.CheckRateLimit(resp); err != nil {
		return 0, err
	}

	// Errors on the data endpoint come back as a JSON envelope.
	if resp.StatusCode != http.StatusOK || isJSON(resp.Header.Get("Content-Type")) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxJSONBody))
		if err := decodeError(resp.StatusCode, endpoint, body); err != nil {
			return 0, fmt.Errorf("download item %s: %w", itemID, err)
		}
		n, err := w.Write(body)
		return int64(n), err
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download item %s: %w", itemID, err)
	}
	return n, nil
}

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("f", "json")

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.restURL + "/" + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out any) error {
	body := url.Values{}
	for k, v := range form {
		body[k] = v
	}
	body.Set("f", "json")

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.restURL + "/" + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if err := c.rateLimiter.Wait(req.Context()); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.rateLimiter.CheckRateLimit(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJSONBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	endpoint := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path
	if err := decodeError(resp.StatusCode, endpoint, body); err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError returns an *APIError when the response is an error envelope
// or a non-200 status, nil otherwise.
func decodeError(status int, endpoint string, body []byte) error {
	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		return &APIError{
			StatusCode:  status,
			Code:        env.Error.Code,
			MessageCode: env.Error.MessageCode,
			Message:     env.Error.Message,
			Details:     env.Error.Details,
			URL:         endpoint,
		}
	}
	if status != http.StatusOK {
		return &APIError{
			StatusCode: status,
			Message:    http.StatusText(status),
			URL:        endpoint,
		}
	}
	return nil
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}
