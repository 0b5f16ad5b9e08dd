package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"incgraph/internal/changeset"
	"incgraph/internal/config"
	"incgraph/internal/metrics"
	"incgraph/internal/session"
	"incgraph/internal/tree"

	"github.com/google/go-cmp/cmp"
)

type fakeSession struct {
	mu     sync.Mutex
	root   string
	gen    uint64
	ignore []string
	err    error
}

func (f *fakeSession) Init(_ context.Context, root string, ignore []string) (session.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return session.Result{}, f.err
	}
	f.gen++
	f.root = root
	f.ignore = ignore
	return session.Result{Generation: f.gen, Root: root, Files: 3, Watching: true}, nil
}

func (f *fakeSession) Root() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.root
}

func (f *fakeSession) Generation() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gen
}

func (f *fakeSession) Watching() bool {
	return f.Root() != ""
}

func newTestMux(t *testing.T, deps Dependencies) *http.ServeMux {
	t.Helper()
	if deps.Config == nil {
		deps.Config = &config.Store{}
	}
	mux := http.NewServeMux()
	RegisterRoutes(mux, deps)
	return mux
}

func doRequest(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var payload errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return payload
}

func TestSessionPostInitializes(t *testing.T) {
	root := t.TempDir()
	sidecar := "syntax: 1\nignore_list:\n  - build\n"
	if err := os.WriteFile(filepath.Join(root, config.FileName), []byte(sidecar), 0o644); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}
	fake := &fakeSession{}
	mux := newTestMux(t, Dependencies{Session: fake})

	rec := doRequest(mux, http.MethodPost, "/api/session", `{"root":"`+root+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result session.Result
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(session.Result{Generation: 1, Root: root, Files: 3, Watching: true}, result); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"build"}, fake.ignore); diff != "" {
		t.Fatalf("ignore list mismatch (-want +got):\n%s", diff)
	}

	rec = doRequest(mux, http.MethodGet, "/api/session", "")
	var status sessionStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Root != root || status.Generation != 1 || !status.Watching {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestSessionPostCreatesSidecar(t *testing.T) {
	root := t.TempDir()
	mux := newTestMux(t, Dependencies{Session: &fakeSession{}})

	rec := doRequest(mux, http.MethodPost, "/api/session", `{"root":"`+root+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if _, err := os.Stat(filepath.Join(root, config.FileName)); err != nil {
		t.Fatalf("expected sidecar created: %v", err)
	}
}

func TestSessionPostRejectsBadRequests(t *testing.T) {
	mux := newTestMux(t, Dependencies{Session: &fakeSession{}})

	tests := []struct {
		name   string
		method string
		body   string
		status int
		code   string
	}{
		{name: "empty root", method: http.MethodPost, body: `{"root":"  "}`, status: http.StatusBadRequest, code: "invalid_request"},
		{name: "unknown field", method: http.MethodPost, body: `{"root":"/x","extra":1}`, status: http.StatusBadRequest, code: "invalid_request"},
		{name: "not json", method: http.MethodPost, body: `root=/x`, status: http.StatusBadRequest, code: "invalid_request"},
		{name: "wrong method", method: http.MethodDelete, body: ``, status: http.StatusMethodNotAllowed, code: "method_not_allowed"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec := doRequest(mux, test.method, "/api/session", test.body)
			if rec.Code != test.status {
				t.Fatalf("expected %d, got %d", test.status, rec.Code)
			}
			if payload := decodeError(t, rec); payload.Code != test.code {
				t.Fatalf("expected code %q, got %q", test.code, payload.Code)
			}
		})
	}
}

func TestSessionErrorMapping(t *testing.T) {
	mux := newTestMux(t, Dependencies{Session: &fakeSession{err: session.ErrClosed}})
	rec := doRequest(mux, http.MethodPost, "/api/session", `{"root":"`+t.TempDir()+`"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestAuthToken(t *testing.T) {
	mux := newTestMux(t, Dependencies{Session: &fakeSession{}, AuthToken: "secret"})

	rec := doRequest(mux, http.MethodGet, "/api/session", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with bearer token, got %d", rec.Code)
	}

	rec = doRequest(mux, http.MethodGet, "/api/session?token=secret", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with query token, got %d", rec.Code)
	}
}

func TestFilesSnapshot(t *testing.T) {
	view, err := tree.New(8)
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	view.Apply([]changeset.Changeset{
		changeset.Added(changeset.FileMetadata{Key: "/p/b.h", Includes: []string{}}),
		changeset.Added(changeset.FileMetadata{Key: "/p/a.cpp", Includes: []string{"b.h"}}),
	})
	mux := newTestMux(t, Dependencies{Session: &fakeSession{root: "/p"}, Tree: view})

	rec := doRequest(mux, http.MethodGet, "/api/files", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var response filesResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []changeset.FileMetadata{
		{Key: "/p/a.cpp", Includes: []string{"b.h"}},
		{Key: "/p/b.h", Includes: []string{}},
	}
	if diff := cmp.Diff(want, response.Files); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}
	if response.Root != "/p" || response.Stats.Entries != 2 {
		t.Fatalf("unexpected response %+v", response)
	}
}

func TestConfigRequiresActiveRoot(t *testing.T) {
	mux := newTestMux(t, Dependencies{Session: &fakeSession{}})
	rec := doRequest(mux, http.MethodGet, "/api/config", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestConfigPutThenGet(t *testing.T) {
	root := t.TempDir()
	mux := newTestMux(t, Dependencies{Session: &fakeSession{root: root}})

	body := `{"syntax":1,"ignore_list":["third_party"],"groups":[{"name":"core","colour":"#00ff00","path":"src"}]}`
	rec := doRequest(mux, http.MethodPut, "/api/config", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(mux, http.MethodGet, "/api/config", "")
	var cfg config.ConfigTree
	if err := json.NewDecoder(rec.Body).Decode(&cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := config.ConfigTree{
		Syntax:     1,
		IgnoreList: []string{"third_party"},
		Groups:     []config.Group{{Name: "core", Colour: "#00ff00", Path: "src"}},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}

	rec = doRequest(mux, http.MethodPut, "/api/config", `{"syntax":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid config, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	registry := &metrics.Registry{}
	registry.IncRelayDropped()
	registry.IncChangeset("modified")
	mux := newTestMux(t, Dependencies{Registry: registry})

	rec := doRequest(mux, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	body := rec.Body.String()
	for _, want := range []string{"incgraph_relay_dropped_total 1", `incgraph_changesets_total{kind="modified"} 1`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics:\n%s", want, body)
		}
	}
}

func TestDecodeJSONRejectsTrailingData(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"root":"/a"} {"root":"/b"}`))
	var target sessionRequest
	if err := decodeJSON(req, &target); err == nil || err.Status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %+v", err)
	}
}
