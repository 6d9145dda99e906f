package snapshot

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
)

// Fetcher looks up a snapshot by id. Implementations return ErrNotFound when
// the store has no such snapshot.
type Fetcher interface {
	FetchSnapshot(ctx context.Context, id string) (*Snapshot, error)
}

// Lister fetches the "all snapshots" collection.
type Lister interface {
	ListSnapshots(ctx context.Context) ([]Snapshot, error)
}

// Deleter issues the deletion mutation and returns the server's message.
type Deleter interface {
	DeleteSnapshot(ctx context.Context, id string) (string, error)
}

// Ensure Client implements the adapters at compile time.
var (
	_ Fetcher = (*Client)(nil)
	_ Lister  = (*Client)(nil)
	_ Deleter = (*Client)(nil)
)

// Client talks to the snapshot HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	defaultAPIBind   = "127.0.0.1:7488"
	defaultUserAgent = "snapwatch/0.1"
	requestTimeout   = 5 * time.Second
	maxErrorBody     = 64 * 1024
)

// NewClient builds a Client using the provided apiBind host:port value.
func NewClient(apiBind string) (*Client, error) {
	base, err := parseBaseURL(apiBind)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// FetchSnapshot retrieves the current state of one snapshot.
func (c *Client) FetchSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	rel := &url.URL{Path: "/api/snapshot/" + url.PathEscape(id)}
	var payload Snapshot
	if err := c.doURL(ctx, http.MethodGet, rel, nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ListSnapshots retrieves every snapshot known to the store.
func (c *Client) ListSnapshots(ctx context.Context) ([]Snapshot, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload ListResponse
	if err := c.doURL(ctx, http.MethodGet, &url.URL{Path: "/api/snapshots"}, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

// DeleteSnapshot asks the store to delete id. On failure the returned error
// is a *MutationError.
func (c *Client) DeleteSnapshot(ctx context.Context, id string) (string, error) {
	if c == nil {
		return "", &MutationError{Err: fmt.Errorf("client is nil")}
	}
	body, err := json.Marshal(DeleteRequest{UUID: id})
	if err != nil {
		return "", &MutationError{Err: fmt.Errorf("encode request: %w", err)}
	}
	var payload MessageResponse
	err = c.doURL(ctx, http.MethodPost, &url.URL{Path: "/api/action/delete"}, body, &payload)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) {
			return "", &MutationError{Status: apiErr.status, Message: apiErr.message, Err: err}
		}
		return "", &MutationError{Err: err}
	}
	return payload.Message, nil
}

// apiError is an HTTP error status, with the body's message when it had one.
type apiError struct {
	path    string
	status  int
	message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api %s returned status %d", e.path, e.status)
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, body []byte, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		apiErr := &apiError{path: rel.Path, status: resp.StatusCode}
		var msg MessageResponse
		if data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)); readErr == nil {
			if json.Unmarshal(data, &msg) == nil {
				apiErr.message = strings.TrimSpace(msg.Message)
			}
		}
		if resp.StatusCode == http.StatusNotFound && method == http.MethodGet {
			return fmt.Errorf("%w: %w", ErrNotFound, apiErr)
		}
		return apiErr
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(apiBind string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiBind)
	if trimmed == "" {
		trimmed = defaultAPIBind
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_bind %q: %w", apiBind, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
