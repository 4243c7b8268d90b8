// Talks to the GitHub Contents API: conditional document reads and writes.

// Package ghstore persists JSON documents as files in a remote GitHub
// repository. Every write is one commit on the target branch, conditional on
// the file's current blob SHA (optimistic concurrency). There is no retry
// and no merge: a losing writer gets a Conflict error and decides for itself.
package ghstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	apierrors "github.com/maruel/ghcms/internal/errors"
)

// Document is a named JSON value read from the repository.
//
// Content is the decoded JSON value, or the raw text when the stored bytes
// do not parse (degraded but non-fatal). SHA is the blob SHA when known;
// writes never trust it and refetch their own.
type Document struct {
	Content any
	SHA     string
}

// Client reads and writes documents in a single repository at a fixed branch.
//
// An unconfigured client (empty repo or token) never fails hard: reads
// report the document as absent and writes fail with STORE_UNAVAILABLE.
type Client struct {
	repo    string // "owner/name"
	branch  string
	baseURL string // overridable for tests

	mu    sync.RWMutex
	token string

	httpClient *http.Client
}

// NewClient creates a client for the given repository and branch.
func NewClient(repo, token, branch string) *Client {
	if branch == "" {
		branch = "main"
	}
	return &Client{
		repo:       repo,
		branch:     branch,
		baseURL:    "https://api.github.com",
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewClientForTest creates a client pointed at a fake API server.
func NewClientForTest(baseURL, repo, branch string) *Client {
	c := NewClient(repo, "test-token", branch)
	c.baseURL = baseURL
	return c
}

// Configured reports whether the client has a repository and an access token.
func (c *Client) Configured() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.repo != "" && c.token != ""
}

// SetToken replaces the access token, e.g. after a credential rotation.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Branch returns the branch all reads and writes target.
func (c *Client) Branch() string {
	return c.branch
}

func (c *Client) contentsURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/contents/%s", c.baseURL, c.repo, url.PathEscape(path))
}

func (c *Client) newRequest(ctx context.Context, method, rawURL, accept string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	req.Header.Set("Authorization", "Bearer "+c.token)
	c.mu.RUnlock()
	req.Header.Set("Accept", accept)
	return req, nil
}

// Get fetches and parses a JSON document. A missing document returns
// (nil, nil): absence is a valid state, not an error. Bytes that fail to
// parse as JSON are returned verbatim as a string value.
func (c *Client) Get(ctx context.Context, path string) (*Document, error) {
	if !c.Configured() {
		return nil, nil
	}

	req, err := c.newRequest(ctx, http.MethodGet, c.contentsURL(path)+"?ref="+url.QueryEscape(c.branch), "application/vnd.github.v3.raw", http.NoBody)
	if err != nil {
		return nil, apierrors.InternalWithError("build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apierrors.StoreUnavailableWithError(fmt.Sprintf("fetch %s", path), err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, apierrors.StoreUnavailableWithError(fmt.Sprintf("read %s", path), err)
		}
		var content any
		if err := json.Unmarshal(body, &content); err != nil {
			// Not valid JSON. Hand the raw text back rather than failing the
			// surrounding request.
			content = string(body)
		}
		return &Document{Content: content}, nil
	case http.StatusNotFound:
		return nil, nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, apierrors.StoreUnavailable(fmt.Sprintf("GitHub API error %d for %s: %s", resp.StatusCode, path, string(body)))
	}
}

// fetchSHA returns the current blob SHA for path, or "" when the file does
// not exist yet.
func (c *Client) fetchSHA(ctx context.Context, path string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.contentsURL(path)+"?ref="+url.QueryEscape(c.branch), "application/vnd.github+json", http.NoBody)
	if err != nil {
		return "", apierrors.InternalWithError("build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apierrors.StoreUnavailableWithError(fmt.Sprintf("fetch sha for %s", path), err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		var meta struct {
			SHA string `json:"sha"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
			return "", apierrors.StoreUnavailableWithError(fmt.Sprintf("decode sha for %s", path), err)
		}
		return meta.SHA, nil
	case http.StatusNotFound:
		return "", nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return "", apierrors.StoreUnavailable(fmt.Sprintf("GitHub API error %d fetching sha for %s: %s", resp.StatusCode, path, string(body)))
	}
}

// Put serializes value as pretty-printed JSON and commits it to path.
//
// The current SHA is always refetched immediately before the PUT, because the
// token is tied to the file's exact current bytes, not to any earlier
// application-level read. This narrows the race window between concurrent
// editors but does not close it: an external commit between an editor loading
// a page and saving it is overwritten without a Conflict.
//
// A missing file is created (the SHA is omitted). A losing conditional write
// returns a CONFLICT error; the merge is lost unless the caller retries from
// a fresh read. Returns the new content SHA.
func (c *Client) Put(ctx context.Context, path string, value any, message string) (string, error) {
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", apierrors.InternalWithError(fmt.Sprintf("marshal %s", path), err)
	}
	return c.PutFile(ctx, path, raw, message)
}

// PutFile commits raw bytes to path using the same conditional-write cycle
// as Put. Used for binary assets such as image uploads.
func (c *Client) PutFile(ctx context.Context, path string, data []byte, message string) (string, error) {
	if !c.Configured() {
		return "", apierrors.StoreUnavailable("remote store is not configured: set GITHUB_REPO and GITHUB_TOKEN")
	}

	sha, err := c.fetchSHA(ctx, path)
	if err != nil {
		return "", err
	}

	payload := map[string]any{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(data),
		"branch":  c.branch,
	}
	if sha != "" {
		payload["sha"] = sha
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", apierrors.InternalWithError("marshal commit payload", err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, c.contentsURL(path), "application/vnd.github+json", bytes.NewReader(body))
	if err != nil {
		return "", apierrors.InternalWithError("build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apierrors.StoreUnavailableWithError(fmt.Sprintf("commit %s", path), err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusConflict {
		return "", apierrors.Conflict(path).WithDetail("message", apiErrorMessage(respBody))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apierrors.StoreUnavailable(fmt.Sprintf("GitHub update error %d for %s: %s", resp.StatusCode, path, apiErrorMessage(respBody)))
	}

	var commit struct {
		Content struct {
			SHA string `json:"sha"`
		} `json:"content"`
	}
	if err := json.Unmarshal(respBody, &commit); err != nil {
		return "", apierrors.StoreUnavailableWithError(fmt.Sprintf("decode commit response for %s", path), err)
	}
	return commit.Content.SHA, nil
}

// apiErrorMessage extracts the human-readable message from a GitHub error
// body: the top-level message field, or the first nested errors entry.
func apiErrorMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Errors  []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if len(parsed.Errors) > 0 && parsed.Errors[0].Message != "" {
			return parsed.Errors[0].Message
		}
	}
	if len(body) == 0 {
		return "unknown GitHub API error"
	}
	return string(body)
}
