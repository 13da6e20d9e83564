package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legacylift/internal/artifact"
	"legacylift/internal/pipeline"
	"legacylift/internal/session"
	"legacylift/internal/store"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls int
	runs  int

	// fail, when set, is returned instead of a bundle.
	fail error
	// gate, when set, blocks Run until closed.
	gate    chan struct{}
	started chan struct{}
}

func (f *fakeRunner) Run(ctx context.Context, repoURL string, obs pipeline.Observer) (*artifact.Bundle, error) {
	f.mu.Lock()
	f.calls++
	fail := f.fail
	gate := f.gate
	started := f.started
	f.mu.Unlock()

	if obs != nil {
		obs(pipeline.Event{Stage: pipeline.StageCloning})
	}
	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail != nil {
		return nil, fail
	}

	f.mu.Lock()
	f.runs++
	n := f.runs
	f.mu.Unlock()
	arts := []artifact.Artifact{
		{Kind: artifact.KindDockerfile, Content: "FROM python:3.12-slim\nEXPOSE 8080"},
		{Kind: artifact.KindCloudBuild, Content: "steps: []"},
		artifact.Failed(artifact.KindService, errors.New("quota exceeded")),
	}
	if obs != nil {
		obs(pipeline.Event{Stage: pipeline.StageDone})
	}
	return artifact.NewBundle(fmt.Sprintf("run-%d", n), repoURL, arts)
}

func (f *fakeRunner) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type testEnv struct {
	srv    *httptest.Server
	client *http.Client
	runner *fakeRunner
	store  *store.MemoryStore
	h      *Handler
}

const testOrigin = "http://localhost:3000"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, 8, store.NewMemoryStore(0, 0))
}

func newTestEnvWith(t *testing.T, maxSessions int, st *store.MemoryStore) *testEnv {
	t.Helper()
	reg, err := session.NewRegistry(maxSessions)
	require.NoError(t, err)
	runner := &fakeRunner{}
	h, err := NewHandler(runner, reg, Options{Store: st, AllowedOrigins: []string{testOrigin}})
	require.NoError(t, err)

	srv := httptest.NewServer(NewMux(h))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testEnv{
		srv:    srv,
		client: &http.Client{Jar: jar, Timeout: 5 * time.Second},
		runner: runner,
		store:  st,
		h:      h,
	}
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) (*http.Response, []byte) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := e.client.Post(e.srv.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := e.client.Get(e.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func TestCreateMigrationAndDownload(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.postJSON(t, "/api/migrations", migrateRequest{RepoURL: "https://github.com/acme/shop.git"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var view bundleView
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, "shop", view.RepoName)
	require.Len(t, view.Artifacts, 3)
	assert.True(t, view.Artifacts[2].Failed)
	assert.Equal(t, "AI Error: quota exceeded", view.Artifacts[2].Content)
	assert.Equal(t, artifact.DeployCommands, view.DeployCommands)

	for _, name := range []string{"Dockerfile", store.ManifestFile} {
		_, err := env.store.Get(context.Background(), view.RunID, name)
		require.NoError(t, err, name)
	}

	resp, body = env.get(t, "/download/dockerfile")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "FROM python:3.12-slim\nEXPOSE 8080", string(body))
	assert.Equal(t, `attachment; filename="Dockerfile"`, resp.Header.Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))

	resp, _ = env.get(t, "/download/service.yaml")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/yaml"))
}

func TestCloneFailureKeepsPreviousBundle(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.postJSON(t, "/api/migrations", migrateRequest{RepoURL: "https://github.com/acme/shop"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var first bundleView
	require.NoError(t, json.Unmarshal(body, &first))

	env.runner.setFail(fmt.Errorf("%w: %w", pipeline.ErrClone, errors.New("repository not found")))
	resp, body = env.postJSON(t, "/api/migrations", migrateRequest{RepoURL: "https://github.com/acme/missing"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var errResp errorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, "Git Clone Error: repository not found", errResp.Error)

	resp, body = env.get(t, "/api/bundle")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var current bundleView
	require.NoError(t, json.Unmarshal(body, &current))
	assert.Equal(t, first.RunID, current.RunID)
	assert.Equal(t, "Git Clone Error: repository not found", current.LastError)
}

func TestEmptyURLNeverRuns(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.postJSON(t, "/api/migrations", migrateRequest{RepoURL: "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), session.EmptyURLMessage)
	assert.Zero(t, env.runner.callCount())

	resp, body = env.get(t, "/api/bundle")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), session.EmptyURLMessage)
}

func TestOverlappingTriggersConflict(t *testing.T) {
	env := newTestEnv(t)
	env.runner.gate = make(chan struct{})
	env.runner.started = make(chan struct{}, 1)

	// Establish the session cookie before racing two requests on it.
	env.get(t, "/")

	done := make(chan int, 1)
	go func() {
		resp, err := env.client.Post(env.srv.URL+"/api/migrations", "application/json",
			strings.NewReader(`{"repoUrl":"https://github.com/acme/a"}`))
		if err != nil {
			done <- 0
			return
		}
		resp.Body.Close()
		done <- resp.StatusCode
	}()
	<-env.runner.started

	resp, body := env.postJSON(t, "/api/migrations", migrateRequest{RepoURL: "https://github.com/acme/b"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(body))

	close(env.runner.gate)
	assert.Equal(t, http.StatusOK, <-done)
	assert.Equal(t, 1, env.runner.callCount())
}

func TestFormFlowRendersPage(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.client.PostForm(env.srv.URL+"/migrate", url.Values{"repo_url": {"https://github.com/acme/shop"}})
	require.NoError(t, err)
	page, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	html := string(page)
	assert.Contains(t, html, "Generated Artifacts")
	assert.Contains(t, html, "Download Dockerfile")
	assert.Contains(t, html, "Download cloudbuild.yaml")
	assert.Contains(t, html, "Download service.yaml")
	assert.Contains(t, html, "gcloud run services replace service.yaml")
	assert.Contains(t, html, "AI Error: quota exceeded")

	resp, err = env.client.PostForm(env.srv.URL+"/migrate", url.Values{"repo_url": {""}})
	require.NoError(t, err)
	page, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(page), session.EmptyURLMessage)
	assert.Contains(t, string(page), "Download Dockerfile", "earlier bundle stays visible")
}

func TestDownloadErrors(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.get(t, "/download/dockerfile")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.get(t, "/download/readme")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func (e *testEnv) preflight(t *testing.T, origin string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodOptions, e.srv.URL+"/api/migrations", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	resp := env.preflight(t, testOrigin)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, testOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
	assert.Zero(t, env.runner.callCount())
}

func TestCORSRejectsUnlistedOrigin(t *testing.T) {
	env := newTestEnv(t)

	resp := env.preflight(t, "https://evil.example")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Credentials"))

	req, err := http.NewRequest(http.MethodGet, env.srv.URL+"/api/bundle", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://evil.example")
	got, err := env.client.Do(req)
	require.NoError(t, err)
	got.Body.Close()
	assert.Empty(t, got.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORSWildcardNeverSendsCredentials(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := CORS([]string{"*"}, next)

	req := httptest.NewRequest(http.MethodGet, "/api/bundle", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bundle", nil))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebsocketOriginCheck(t *testing.T) {
	policy := newOriginPolicy([]string{testOrigin, "*"})
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "http://legacylift.local:8080/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}
	assert.True(t, policy.checkOrigin(req("")))
	assert.True(t, policy.checkOrigin(req("http://legacylift.local:8080")))
	assert.True(t, policy.checkOrigin(req(testOrigin)))
	assert.False(t, policy.checkOrigin(req("https://evil.example")))
	assert.False(t, policy.checkOrigin(req("::not a url")))
}

func TestProgressWebsocket(t *testing.T) {
	env := newTestEnv(t)
	env.get(t, "/")

	base, err := url.Parse(env.srv.URL)
	require.NoError(t, err)
	header := http.Header{}
	for _, c := range env.client.Jar.Cookies(base) {
		header.Add("Cookie", c.String())
	}
	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg progressWSOutbound
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "subscribed", msg.Type)

	resp, _ := env.postJSON(t, "/api/migrations", migrateRequest{RepoURL: "https://github.com/acme/shop"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stages []pipeline.Stage
	for len(stages) < 2 {
		var ev progressWSOutbound
		require.NoError(t, conn.ReadJSON(&ev))
		require.Equal(t, "progress", ev.Type)
		require.NotNil(t, ev.Event)
		stages = append(stages, ev.Event.Stage)
	}
	assert.Equal(t, []pipeline.Stage{pipeline.StageCloning, pipeline.StageDone}, stages)
}

func TestProgressWebsocketRejectsForeignOrigin(t *testing.T) {
	env := newTestEnv(t)
	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws"
	header := http.Header{"Origin": {"https://evil.example"}}

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if conn != nil {
		conn.Close()
	}
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	ctxErr := fmt.Errorf("%w: %w", pipeline.ErrContext, errors.New("bad utf-8"))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(ctxErr))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusConflict, statusFor(session.ErrBusy))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

func TestRunLookup(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.postJSON(t, "/api/migrations", migrateRequest{RepoURL: "https://github.com/acme/shop.git"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var view bundleView
	require.NoError(t, json.Unmarshal(body, &view))

	resp, body = env.get(t, "/api/runs/"+view.RunID)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var m store.Manifest
	require.NoError(t, json.Unmarshal(body, &m))
	assert.Equal(t, view.RunID, m.RunID)
	assert.Equal(t, "shop", m.RepoName)
	require.Len(t, m.Files, 3)
	assert.True(t, m.Files[2].Failed)

	// Files stay reachable by run id from a client without the session.
	resp, err := http.Get(env.srv.URL + "/api/runs/" + view.RunID + "/files/dockerfile")
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "FROM python:3.12-slim\nEXPOSE 8080", string(raw))
	assert.Empty(t, resp.Header.Get("X-Artifact-Failed"))

	resp, _ = env.get(t, "/api/runs/"+view.RunID+"/files/service.yaml")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get("X-Artifact-Failed"))

	resp, _ = env.get(t, "/api/runs/"+view.RunID+"/files/readme")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = env.get(t, "/api/runs/unknown-run")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = env.get(t, "/api/runs/..")
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
}

func TestMemoryStoreStaysBoundedAcrossMigrations(t *testing.T) {
	env := newTestEnvWith(t, 1, store.NewMemoryStore(1, time.Hour))

	var last bundleView
	for i := 0; i < 50; i++ {
		// A fresh client per migration gives every run its own session.
		resp, err := http.Post(env.srv.URL+"/api/migrations", "application/json",
			strings.NewReader(`{"repoUrl":"https://github.com/acme/shop"}`))
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		last = bundleView{}
		require.NoError(t, json.Unmarshal(body, &last))
	}

	resp, _ := env.get(t, "/api/runs/run-1")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = env.get(t, "/api/runs/"+last.RunID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStoreMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.get(t, "/debug/store")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "memory store keeps no metrics")

	reg, err := session.NewRegistry(4)
	require.NoError(t, err)
	cached := store.NewCachedStore(store.NewMemoryStore(0, 0), store.CacheConfig{})
	h, err := NewHandler(&fakeRunner{}, reg, Options{Store: cached})
	require.NoError(t, err)
	mux := NewMux(h)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/migrations",
		strings.NewReader(`{"repoUrl":"https://github.com/acme/shop"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/store", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var m store.MetricsSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.EqualValues(t, 4, m.OriginWrites)
}
