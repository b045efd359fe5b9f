package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idelchi/jolt/internal/config"
	"github.com/idelchi/jolt/internal/finder"
	"github.com/idelchi/jolt/internal/sysinfo"
)

type fakeInspector struct {
	err error
}

func (f fakeInspector) CPUs(context.Context) ([]sysinfo.CPU, error) {
	if f.err != nil {
		return nil, f.err
	}

	return []sysinfo.CPU{{Name: "cpu0", Brand: "test", Frequency: 2400, Usage: 12.5}}, nil
}

func (f fakeInspector) Memory(context.Context) (*sysinfo.Memory, error) {
	if f.err != nil {
		return nil, f.err
	}

	return &sysinfo.Memory{Total: 1 << 30, Free: 1 << 29}, nil
}

func (f fakeInspector) Diagnose(context.Context) (*sysinfo.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}

	return &sysinfo.Snapshot{
		Host:      &sysinfo.Host{Hostname: "box", CPUs: 1},
		Processes: []sysinfo.Process{{PID: 1, Name: "init"}},
	}, nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Address = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Server.RateLimit = 1000
	cfg.Server.RateLimitBurst = 1000
	cfg.Server.ProgressInterval = 10 * time.Millisecond
	cfg.Server.ShutdownTimeout = time.Second
	cfg.Server.DefaultCount = 2
	cfg.Finder.Ceiling = 4

	return cfg
}

func newTestServer(opts ...Option) *Server {
	return New(testConfig(), append([]Option{WithInspector(fakeInspector{})}, opts...)...)
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader

	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)

		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	return resp
}

func writeSized(t *testing.T, path string, size int64) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())
}

func TestNew(t *testing.T) {
	s := New(nil)

	require.NotNil(t, s.httpServer)
	require.NotNil(t, s.rateLimiter)
	assert.Equal(t, ":3000", s.Addr())
	assert.IsType(t, sysinfo.Collector{}, s.inspector)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer()

	w := do(t, s, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestReadyEndpoint(t *testing.T) {
	s := newTestServer()

	tests := []struct {
		name   string
		ready  bool
		status int
		want   string
	}{
		{name: "ready state", ready: true, status: http.StatusOK, want: "ready"},
		{name: "not ready state", ready: false, status: http.StatusServiceUnavailable, want: "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.SetReady(tt.ready)

			w := do(t, s, http.MethodGet, "/ready", nil)
			assert.Equal(t, tt.status, w.Code)

			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.Status)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer()

	tests := []struct {
		method string
		path   string
		allow  string
	}{
		{http.MethodPost, "/health", http.MethodGet},
		{http.MethodPost, "/info/cpu", http.MethodGet},
		{http.MethodDelete, "/diagnose", http.MethodGet},
		{http.MethodGet, "/search", http.MethodPost},
		{http.MethodGet, "/file/largest", http.MethodPost},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := do(t, s, tt.method, tt.path, nil)

			assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
			assert.Equal(t, tt.allow, w.Header().Get("Allow"))
			assert.Equal(t, ErrCodeMethodNotAllowed, decodeError(t, w).Code)
		})
	}
}

func TestHome(t *testing.T) {
	s := newTestServer(WithVersion("v9.9.9"))

	w := do(t, s, http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello, World!\n", w.Body.String())
	assert.Equal(t, "v9.9.9", w.Header().Get("X-Jolt-Version"))

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/nope", nil).Code)
}

func TestInfoEndpoints(t *testing.T) {
	s := newTestServer()

	w := do(t, s, http.MethodGet, "/info/cpu", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var cpus CPUResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cpus))
	require.Len(t, cpus.CPUs, 1)
	assert.Equal(t, "cpu0", cpus.CPUs[0].Name)
	assert.InDelta(t, 12.5, cpus.CPUs[0].Usage, 0)

	w = do(t, s, http.MethodGet, "/info/memory", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_memory":1073741824`)
	assert.Contains(t, w.Body.String(), `"free_memory":536870912`)

	w = do(t, s, http.MethodGet, "/diagnose", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var snap sysinfo.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "box", snap.Host.Hostname)
	assert.Len(t, snap.Processes, 1)
}

func TestInfoEndpoints_InspectorError(t *testing.T) {
	s := newTestServer(WithInspector(fakeInspector{err: errors.New("no /proc")}))

	for _, path := range []string{"/info/cpu", "/info/memory", "/diagnose"} {
		w := do(t, s, http.MethodGet, path, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code, path)

		resp := decodeError(t, w)
		assert.Equal(t, ErrCodeInternalError, resp.Code)
		assert.True(t, resp.Retryable)
		assert.Equal(t, "no /proc", resp.Details["error"])
	}
}

func TestSearch(t *testing.T) {
	dir := t.TempDir()
	writeSized(t, filepath.Join(dir, "a_test.txt"), 0)
	writeSized(t, filepath.Join(dir, "b.txt"), 0)
	writeSized(t, filepath.Join(dir, "sub", "c_test.log"), 0)

	s := newTestServer()

	pattern := "test"
	full := true

	w := do(t, s, http.MethodPost, "/search", SearchRequest{Pattern: &pattern, Path: dir, ShowFullPath: &full})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res struct {
		Matches []string `json:"matches"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, []string{filepath.Join(dir, "a_test.txt"), filepath.Join(dir, "sub", "c_test.log")}, res.Matches)

	// Pattern and show_full_path are optional.
	w = do(t, s, http.MethodPost, "/search", map[string]any{"path": dir})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, []string{"a_test.txt", "b.txt", "c_test.log"}, res.Matches)
}

func TestSearch_BadRequests(t *testing.T) {
	s := newTestServer()
	dir := t.TempDir()

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{name: "invalid json", body: "{not json", status: http.StatusBadRequest},
		{name: "missing path", body: map[string]any{"pattern": "x"}, status: http.StatusBadRequest},
		{name: "missing directory", body: map[string]any{"path": filepath.Join(dir, "missing")}, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/search", tt.body)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, ErrCodeInvalidRequest, decodeError(t, w).Code)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader("path="+dir))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestLargest(t *testing.T) {
	dir := t.TempDir()
	writeSized(t, filepath.Join(dir, "small"), 1<<20)
	writeSized(t, filepath.Join(dir, "nested", "big"), 5<<20)
	writeSized(t, filepath.Join(dir, "nested", "deeper", "mid"), 3<<20)

	// Strict eviction keeps the result independent of walk order.
	cfg := testConfig()
	cfg.Finder.Strict = true

	s := New(cfg, WithInspector(fakeInspector{}))
	before := testutil.ToFloat64(filesScanned)

	w := do(t, s, http.MethodPost, "/file/largest", LargestRequest{Path: dir})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res finder.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))

	assert.Equal(t, int64(3), res.FileCount)
	assert.Equal(t, 2, res.TopN, "default count applies")
	require.Len(t, res.TopFiles, 2)
	assert.Equal(t, uint64(5), res.TopFiles[0].SizeMB)
	assert.Equal(t, uint64(3), res.TopFiles[1].SizeMB)

	assert.InDelta(t, 3, testutil.ToFloat64(filesScanned)-before, 0)

	count := 10
	w = do(t, s, http.MethodPost, "/file/largest", LargestRequest{Path: dir, Count: &count})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Len(t, res.TopFiles, 3)
	assert.Equal(t, 10, res.TopN)
}

func TestLargest_BadRequests(t *testing.T) {
	s := newTestServer()
	dir := t.TempDir()

	tooMany := finder.MaxCount + 1

	tests := []struct {
		name string
		body any
	}{
		{name: "invalid json", body: "["},
		{name: "missing directory", body: LargestRequest{Path: filepath.Join(dir, "missing")}},
		{name: "count too large", body: LargestRequest{Path: dir, Count: &tooMany}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/file/largest", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, ErrCodeInvalidRequest, decodeError(t, w).Code)
		})
	}
}

func TestLargest_ScannerOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "no roots", err: finder.ErrNoRoots, status: http.StatusBadRequest, code: ErrCodeInvalidRequest},
		{name: "cancelled", err: context.Canceled, status: http.StatusServiceUnavailable, code: ErrCodeInternalError},
		{name: "failure", err: errors.New("boom"), status: http.StatusInternalServerError, code: ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got finder.Options

			scan := func(_ context.Context, opt finder.Options, _ func(int64, int64)) (*finder.Result, error) {
				got = opt

				return nil, tt.err
			}

			s := newTestServer(WithScanner(scan))

			w := do(t, s, http.MethodPost, "/file/largest", map[string]any{"path": ""})

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
			assert.Empty(t, got.Path, "empty path scans all volumes")
			assert.Equal(t, 2, got.Count)
			assert.Equal(t, 10*time.Millisecond, got.ProgressInterval)
		})
	}
}

func TestLargest_ProgressFeedsCounter(t *testing.T) {
	scan := func(_ context.Context, _ finder.Options, progress func(int64, int64)) (*finder.Result, error) {
		progress(40, 0)
		progress(25, 0) // stale report arriving late
		progress(100, 0)

		return &finder.Result{FileCount: 120, TopFiles: []finder.FileRecord{}}, nil
	}

	s := newTestServer(WithScanner(scan))
	before := testutil.ToFloat64(filesScanned)

	w := do(t, s, http.MethodPost, "/file/largest", LargestRequest{Path: "/anywhere"})
	require.Equal(t, http.StatusOK, w.Code)

	assert.InDelta(t, 120, testutil.ToFloat64(filesScanned)-before, 0)
}

func TestRequestID(t *testing.T) {
	s := newTestServer()

	w := do(t, s, http.MethodGet, "/", nil)
	_, err := uuid.Parse(w.Header().Get("X-Request-Id"))
	require.NoError(t, err)

	id := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", id)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get("X-Request-Id"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "not-a-uuid")

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.NotEqual(t, "not-a-uuid", rec.Header().Get("X-Request-Id"))
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit = 0.001
	cfg.Server.RateLimitBurst = 1

	s := New(cfg, WithInspector(fakeInspector{}))

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/", nil).Code)

	w := do(t, s, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	resp := decodeError(t, w)
	assert.Equal(t, ErrCodeRateLimitExceeded, resp.Code)
	assert.True(t, resp.Retryable)

	// System endpoints bypass the limiter.
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/health", nil).Code)
}

func TestPanicRecovery(t *testing.T) {
	s := newTestServer()

	handler := s.withMiddleware(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	resp := decodeError(t, w)
	assert.Equal(t, ErrCodeInternalError, resp.Code)
	assert.Equal(t, w.Header().Get("X-Request-Id"), resp.RequestID)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer()

	do(t, s, http.MethodGet, "/", nil)

	w := do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "jolt_http_requests_total")
	assert.Contains(t, w.Body.String(), "jolt_files_scanned_total")
}

func TestStartAndShutdown(t *testing.T) {
	s := newTestServer()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, s.isReady, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	assert.False(t, s.isReady())
}

func TestStart_ListenError(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = -1

	err := New(cfg).Start(context.Background())
	require.ErrorContains(t, err, "listening on")
}
