package ghstore

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	apierrors "github.com/maruel/ghcms/internal/errors"
)

// fakeGitHub is an in-memory stand-in for the GitHub Contents API. It stores
// file bytes per path, bumps the SHA on every commit, and rejects conditional
// writes whose SHA does not match the current one.
type fakeGitHub struct {
	t    *testing.T
	repo string

	mu       sync.Mutex
	files    map[string][]byte
	shas     map[string]string
	revision int

	// rejectNextPut forces a 409 on the next PUT, simulating a concurrent
	// writer winning between the SHA fetch and the conditional write.
	rejectNextPut bool
	failReads     bool
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	return &fakeGitHub{
		t:     t,
		repo:  "owner/site",
		files: map[string][]byte{},
		shas:  map[string]string{},
	}
}

func (f *fakeGitHub) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefix := "/repos/" + f.repo + "/contents/"
		if !strings.HasPrefix(r.URL.EscapedPath(), prefix) {
			http.NotFound(w, r)
			return
		}
		path, err := url.PathUnescape(strings.TrimPrefix(r.URL.EscapedPath(), prefix))
		if err != nil {
			http.Error(w, "bad path", http.StatusBadRequest)
			return
		}
		if got := r.Header.Get("Authorization"); !strings.HasPrefix(got, "Bearer ") {
			http.Error(w, `{"message":"Requires authentication"}`, http.StatusUnauthorized)
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			if f.failReads {
				http.Error(w, `{"message":"no server is currently available"}`, http.StatusServiceUnavailable)
				return
			}
			data, ok := f.files[path]
			if !ok {
				http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
				return
			}
			if r.Header.Get("Accept") == "application/vnd.github.v3.raw" {
				_, _ = w.Write(data)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"sha":     f.shas[path],
				"content": base64.StdEncoding.EncodeToString(data),
			})
		case http.MethodPut:
			var body struct {
				Message string `json:"message"`
				Content string `json:"content"`
				Branch  string `json:"branch"`
				SHA     string `json:"sha"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, `{"message":"Problems parsing JSON"}`, http.StatusBadRequest)
				return
			}
			if body.Branch != "main" {
				http.Error(w, `{"message":"Branch not found"}`, http.StatusNotFound)
				return
			}
			current, exists := f.shas[path]
			if f.rejectNextPut || (exists && body.SHA != current) || (!exists && body.SHA != "") {
				f.rejectNextPut = false
				w.WriteHeader(http.StatusConflict)
				_, _ = fmt.Fprintf(w, `{"message":"%s does not match %s"}`, body.SHA, current)
				return
			}
			data, err := base64.StdEncoding.DecodeString(body.Content)
			if err != nil {
				http.Error(w, `{"message":"content is not valid Base64"}`, http.StatusUnprocessableEntity)
				return
			}
			f.revision++
			sha := fmt.Sprintf("sha-%d", f.revision)
			f.files[path] = data
			f.shas[path] = sha
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"content": map[string]any{"sha": sha},
				"commit":  map[string]any{"sha": "commit-" + sha},
			})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

func newTestClient(t *testing.T) (*Client, *fakeGitHub) {
	fake := newFakeGitHub(t)
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	return NewClientForTest(srv.URL, fake.repo, "main"), fake
}

func TestClientRoundTrip(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := t.Context()

	value := map[string]any{
		"hero":  map[string]any{"heading": "Welcome", "gallery": []any{"a.png", "b.png"}},
		"count": float64(3),
	}
	sha, err := c.Put(ctx, "data/home.json", value, "Update home")
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if sha == "" {
		t.Fatal("Put returned empty SHA")
	}

	doc, err := c.Get(ctx, "data/home.json")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc == nil {
		t.Fatal("Get returned nil for an existing document")
	}
	got, ok := doc.Content.(map[string]any)
	if !ok {
		t.Fatalf("Content is %T, want map", doc.Content)
	}
	hero, _ := got["hero"].(map[string]any)
	if hero["heading"] != "Welcome" {
		t.Errorf("heading = %v, want Welcome", hero["heading"])
	}
	if got["count"] != float64(3) {
		t.Errorf("count = %v, want 3", got["count"])
	}
}

func TestClientGetAbsent(t *testing.T) {
	c, _ := newTestClient(t)
	doc, err := c.Get(t.Context(), "data/never-written.json")
	if err != nil {
		t.Fatalf("Get of absent document returned error: %v", err)
	}
	if doc != nil {
		t.Fatalf("Get of absent document = %+v, want nil", doc)
	}
}

func TestClientGetInvalidJSON(t *testing.T) {
	c, fake := newTestClient(t)
	fake.mu.Lock()
	fake.files["data/broken.json"] = []byte("not json {")
	fake.shas["data/broken.json"] = "sha-x"
	fake.mu.Unlock()

	doc, err := c.Get(t.Context(), "data/broken.json")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc.Content != "not json {" {
		t.Errorf("Content = %v, want the raw text", doc.Content)
	}
}

func TestClientGetTransportFailure(t *testing.T) {
	c, fake := newTestClient(t)
	fake.mu.Lock()
	fake.failReads = true
	fake.mu.Unlock()

	_, err := c.Get(t.Context(), "data/home.json")
	var ews apierrors.ErrorWithStatus
	if !errors.As(err, &ews) || ews.Code() != apierrors.ErrStoreUnavailable {
		t.Fatalf("err = %v, want STORE_UNAVAILABLE", err)
	}
}

func TestClientPutRefreshesSHA(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := t.Context()

	if _, err := c.Put(ctx, "data/posts.json", []any{"one"}, "create"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	// A second writer commits out of band, changing the SHA.
	fake.mu.Lock()
	fake.revision++
	fake.files["data/posts.json"] = []byte(`["theirs"]`)
	fake.shas["data/posts.json"] = fmt.Sprintf("sha-%d", fake.revision)
	fake.mu.Unlock()

	// The write still succeeds because the SHA is refetched immediately
	// before the PUT. This is the documented lost-update hazard.
	if _, err := c.Put(ctx, "data/posts.json", []any{"mine"}, "update"); err != nil {
		t.Fatalf("update after external commit failed: %v", err)
	}
	doc, err := c.Get(ctx, "data/posts.json")
	if err != nil {
		t.Fatal(err)
	}
	list, _ := doc.Content.([]any)
	if len(list) != 1 || list[0] != "mine" {
		t.Errorf("Content = %v, want [mine]", doc.Content)
	}
}

func TestClientPutConflict(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := t.Context()

	if _, err := c.Put(ctx, "data/about.json", map[string]any{"v": 1}, "create"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	fake.mu.Lock()
	fake.rejectNextPut = true
	fake.mu.Unlock()

	_, err := c.Put(ctx, "data/about.json", map[string]any{"v": 2}, "update")
	var ews apierrors.ErrorWithStatus
	if !errors.As(err, &ews) {
		t.Fatalf("err = %v, want an API error", err)
	}
	if ews.Code() != apierrors.ErrConflict {
		t.Errorf("code = %s, want CONFLICT", ews.Code())
	}
	if ews.StatusCode() != http.StatusConflict {
		t.Errorf("status = %d, want 409", ews.StatusCode())
	}
}

func TestClientUnconfigured(t *testing.T) {
	c := NewClient("", "", "")
	if c.Configured() {
		t.Fatal("empty client reports configured")
	}

	doc, err := c.Get(t.Context(), "data/home.json")
	if err != nil || doc != nil {
		t.Fatalf("Get = (%v, %v), want (nil, nil)", doc, err)
	}

	_, err = c.Put(t.Context(), "data/home.json", map[string]any{}, "msg")
	var ews apierrors.ErrorWithStatus
	if !errors.As(err, &ews) || ews.Code() != apierrors.ErrStoreUnavailable {
		t.Fatalf("Put err = %v, want STORE_UNAVAILABLE", err)
	}
}

func TestAPIErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"direct message", `{"message":"Invalid request"}`, "Invalid request"},
		{"nested errors", `{"errors":[{"message":"sha mismatch"}]}`, "sha mismatch"},
		{"unparseable", `<html>boom</html>`, "<html>boom</html>"},
		{"empty", ``, "unknown GitHub API error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := apiErrorMessage([]byte(tt.body)); got != tt.want {
				t.Errorf("apiErrorMessage = %q, want %q", got, tt.want)
			}
		})
	}
}
