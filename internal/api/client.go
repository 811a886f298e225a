package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// StatusError is returned for non-2xx daemon replies.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon returned %d", e.Code)
	}
	return fmt.Sprintf("daemon returned %d: %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the daemon.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound
}

// Client talks to the daemon HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	dialer  *websocket.Dialer
}

// NewClient constructs a client for baseURL (for example http://127.0.0.1:7480).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
		dialer:  &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
	}
}

// BaseURL turns a bind address into a URL reachable from the local host.
func BaseURL(bind string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(bind))
	if err != nil {
		return "http://" + strings.TrimSpace(bind)
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// Status fetches the daemon status.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var resp DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, "", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Sessions lists sessions, optionally filtered by lifecycle names.
func (c *Client) Sessions(ctx context.Context, statuses ...string) ([]Session, error) {
	path := "/api/sessions"
	if len(statuses) > 0 {
		path += "?status=" + url.QueryEscape(strings.Join(statuses, ","))
	}
	var resp SessionListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, "", &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// Session fetches one session.
func (c *Client) Session(ctx context.Context, id string) (*Session, error) {
	var resp SessionResponse
	if err := c.do(ctx, http.MethodGet, "/api/sessions/"+url.PathEscape(id), nil, "", &resp); err != nil {
		return nil, err
	}
	return &resp.Session, nil
}

// Upload sends a CSV or XLSX file for ingestion.
func (c *Client) Upload(ctx context.Context, path string) (*IngestResponse, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	var resp IngestResponse
	if err := c.do(ctx, http.MethodPost, "/api/sessions/upload", &body, writer.FormDataContentType(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Retry resubmits a failed session.
func (c *Client) Retry(ctx context.Context, id string) (*Session, error) {
	var resp SessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(id)+"/retry", nil, "", &resp); err != nil {
		return nil, err
	}
	return &resp.Session, nil
}

// Remove deletes a session record.
func (c *Client) Remove(ctx context.Context, id string) (bool, error) {
	var resp RemoveResponse
	if err := c.do(ctx, http.MethodDelete, "/api/sessions/"+url.PathEscape(id), nil, "", &resp); err != nil {
		return false, err
	}
	return resp.Removed, nil
}

// Audit records review fields on a session.
func (c *Client) Audit(ctx context.Context, id string, req AuditRequest) (*Session, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	var resp SessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(id)+"/audit", bytes.NewReader(payload), "application/json", &resp); err != nil {
		return nil, err
	}
	return &resp.Session, nil
}

// Reset invalidates all queued and running work.
func (c *Client) Reset(ctx context.Context) (*MessageResponse, error) {
	var resp MessageResponse
	if err := c.do(ctx, http.MethodPost, "/api/reset", nil, "", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Poll fetches buffered events after since. With wait set the daemon holds
// the request until an event arrives.
func (c *Client) Poll(ctx context.Context, since uint64, wait bool) (*EventsResponse, error) {
	path := "/api/events?since=" + strconv.FormatUint(since, 10)
	if wait {
		path += "&wait=1"
	}
	var resp EventsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, "", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Follow streams events over the websocket endpoint until ctx ends, the
// connection drops, or fn returns an error.
func (c *Client) Follow(ctx context.Context, since uint64, fn func(Event) error) error {
	wsURL := c.baseURL + "/api/events?since=" + strconv.FormatUint(since, 10)
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}
	conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("connect event stream: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var evt Event
		if err := conn.ReadJSON(&evt); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}
		if err := fn(evt); err != nil {
			return err
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contact daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &StatusError{Code: resp.StatusCode, Message: apiErr.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
