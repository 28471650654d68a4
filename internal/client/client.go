// Package client is the Go client for the PeerNotes HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/peernotes/peernotes/internal/moderation"
	"github.com/peernotes/peernotes/internal/notes"
)

const (
	DefaultBaseURL   = "http://localhost:8080"
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "peernotes-client"
	maxErrorBody     = 64 << 10
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
	Reason     string
}

// Error joins the server message and its reason as "message: reason".
func (e *APIError) Error() string {
	message := e.Message
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", message, e.Reason)
	}
	return message
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type Config struct {
	BaseURL string
	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client
	UserAgent  string
}

// Client talks to one PeerNotes API server. It is safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	userAgent  string
}

func New(cfg Config) (*Client, error) {
	rawURL := strings.TrimSpace(cfg.BaseURL)
	if rawURL == "" {
		rawURL = DefaultBaseURL
	}
	baseURL, err := url.Parse(strings.TrimRight(rawURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: invalid base url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("client: base url must be http or https, got %q", rawURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{baseURL: baseURL, httpClient: httpClient, userAgent: userAgent}, nil
}

// NewNote is the payload for CreateNote.
type NewNote struct {
	Title   string   `json:"title"`
	Subject string   `json:"subject"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// Health is the server's liveness report.
type Health struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

type successPayload struct {
	Success bool `json:"success"`
}

func (c *Client) ListNotes(ctx context.Context) ([]notes.Note, error) {
	var result []notes.Note
	err := c.do(ctx, http.MethodGet, "/api/notes", nil, &result)
	return result, err
}

func (c *Client) GetNote(ctx context.Context, id int64) (notes.Note, error) {
	var result notes.Note
	err := c.do(ctx, http.MethodGet, notePath(id, ""), nil, &result)
	return result, err
}

// CreateNote posts a note. A moderation rejection comes back as an *APIError
// whose Error() reads "<error>: <reason>".
func (c *Client) CreateNote(ctx context.Context, note NewNote) (notes.Note, error) {
	if note.Tags == nil {
		note.Tags = []string{}
	}
	var result notes.Note
	err := c.do(ctx, http.MethodPost, "/api/notes", note, &result)
	return result, err
}

func (c *Client) LikeNote(ctx context.Context, id int64) (notes.Note, error) {
	var result notes.Note
	err := c.do(ctx, http.MethodPost, notePath(id, "/like"), nil, &result)
	return result, err
}

func (c *Client) ReportNote(ctx context.Context, id int64) error {
	var result successPayload
	return c.do(ctx, http.MethodPost, notePath(id, "/report"), nil, &result)
}

func (c *Client) DeleteNote(ctx context.Context, id int64) error {
	var result successPayload
	return c.do(ctx, http.MethodDelete, notePath(id, ""), nil, &result)
}

func (c *Client) ListReports(ctx context.Context) ([]notes.ReportedNote, error) {
	var result []notes.ReportedNote
	err := c.do(ctx, http.MethodGet, "/api/reported-notes", nil, &result)
	return result, err
}

func (c *Client) Stats(ctx context.Context) (notes.Stats, error) {
	var result notes.Stats
	err := c.do(ctx, http.MethodGet, "/api/stats", nil, &result)
	return result, err
}

func (c *Client) Catalog(ctx context.Context) (notes.Catalog, error) {
	var result notes.Catalog
	err := c.do(ctx, http.MethodGet, "/api/catalog", nil, &result)
	return result, err
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var result Health
	err := c.do(ctx, http.MethodGet, "/healthz", nil, &result)
	return result, err
}

// Moderate asks the server to classify content. When the server reports a
// failed classification the fail-open verdict is returned with the error.
func (c *Client) Moderate(ctx context.Context, title, content string) (moderation.Verdict, error) {
	var result moderation.Verdict
	request := map[string]string{"title": title, "content": content}
	err := c.do(ctx, http.MethodPost, "/api/moderate", request, &result)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusInternalServerError {
		return moderation.Verdict{IsHarmful: false, Reason: apiErr.Reason, Failed: true}, err
	}
	return result, err
}

func notePath(id int64, suffix string) string {
	return fmt.Sprintf("/api/notes/%d%s", id, suffix)
}

type errorPayload struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	endpoint := c.baseURL.JoinPath(path)
	request, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return decodeError(response)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(response *http.Response) error {
	apiErr := &APIError{StatusCode: response.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return apiErr
	}
	var payload errorPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
		return apiErr
	}
	apiErr.Message = payload.Error
	apiErr.Code = payload.Code
	apiErr.Reason = payload.Reason
	return apiErr
}
