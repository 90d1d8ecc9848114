package influxdb_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-insteon/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-insteon/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-insteon/internal/insteon"
)

// fakeInflux answers /ping and records line protocol posted to /api/v2/write.
type fakeInflux struct {
	*httptest.Server

	mu    sync.Mutex
	lines []string
}

func newFakeInflux(t *testing.T) *fakeInflux {
	t.Helper()
	f := &fakeInflux{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping":
			w.WriteHeader(http.StatusNoContent)
		case "/api/v2/write":
			body, _ := io.ReadAll(r.Body)
			f.mu.Lock()
			for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
				if line != "" {
					f.lines = append(f.lines, line)
				}
			}
			f.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeInflux) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

// waitFor polls until n lines have arrived. Flush returns once the batch is
// handed to the writer, which may still be posting it.
func (f *fakeInflux) waitFor(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		lines := f.written()
		if len(lines) >= n || time.Now().After(deadline) {
			return lines
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "insteon-dev-token",
		Org:           "home",
		Bucket:        "insteon",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

func connect(t *testing.T, cfg config.InfluxDBConfig) *influxdb.Client {
	t.Helper()
	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect(t *testing.T) {
	srv := newFakeInflux(t)
	client := connect(t, testConfig(srv.URL))

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:8086")
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	srv := newFakeInflux(t)
	url := srv.URL
	srv.Close()

	_, err := influxdb.Connect(testConfig(url))
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_NegativeBatchSettings(t *testing.T) {
	srv := newFakeInflux(t)
	cfg := testConfig(srv.URL)
	cfg.BatchSize = -5     // Negative, should use default
	cfg.FlushInterval = -1 // Negative, should use default

	client := connect(t, cfg)
	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect() with negative batch settings")
	}
}

// =============================================================================
// Health Check Tests
// =============================================================================

func TestHealthCheck(t *testing.T) {
	srv := newFakeInflux(t)
	client := connect(t, testConfig(srv.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestHealthCheck_Closed(t *testing.T) {
	srv := newFakeInflux(t)
	client, err := influxdb.Connect(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close()

	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Recorder Tests
// =============================================================================

func TestRecordLinkUpdate(t *testing.T) {
	srv := newFakeInflux(t)
	client := connect(t, testConfig(srv.URL))

	var recorder insteon.Recorder = client
	recorder.RecordLinkUpdate(insteon.MustParseAddress("11.22.33"), "write", true)
	recorder.RecordLinkUpdate(insteon.MustParseAddress("44.85.11"), "delete", false)
	client.Flush()

	lines := srv.waitFor(t, 2)
	if len(lines) != 2 {
		t.Fatalf("written %d lines, want 2: %v", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "insteon_link_update,endpoint=11.22.33,op=write ") ||
		!strings.Contains(lines[0], "success=true") {
		t.Errorf("line[0] = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "insteon_link_update,endpoint=44.85.11,op=delete ") ||
		!strings.Contains(lines[1], "success=false") {
		t.Errorf("line[1] = %q", lines[1])
	}
}

func TestRecordRefresh(t *testing.T) {
	srv := newFakeInflux(t)
	client := connect(t, testConfig(srv.URL))

	client.RecordRefresh(insteon.MustParseAddress("11.22.33"), 7, true)
	client.Flush()

	lines := srv.waitFor(t, 1)
	if len(lines) != 1 {
		t.Fatalf("written %d lines, want 1: %v", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "insteon_refresh,endpoint=11.22.33 ") ||
		!strings.Contains(lines[0], "entries=7i") {
		t.Errorf("line = %q", lines[0])
	}
}

func TestWritePointWithTime(t *testing.T) {
	srv := newFakeInflux(t)
	client := connect(t, testConfig(srv.URL))

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	client.WritePointWithTime("bridge_stats",
		map[string]string{"host": "bridge-01"},
		map[string]interface{}{"queue_depth": 3},
		ts,
	)
	client.Flush()

	lines := srv.waitFor(t, 1)
	if len(lines) != 1 || !strings.HasSuffix(lines[0], " 1772366400000000000") {
		t.Errorf("lines = %v, want one point at %d", lines, ts.UnixNano())
	}
}

// =============================================================================
// Close Tests
// =============================================================================

func TestClose(t *testing.T) {
	srv := newFakeInflux(t)
	client, err := influxdb.Connect(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	// Written before close, flushed by Close.
	client.RecordRefresh(insteon.MustParseAddress("11.22.33"), 1, true)

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if got := len(srv.waitFor(t, 1)); got != 1 {
		t.Errorf("written %d lines after Close(), want 1", got)
	}

	// Writes after close are dropped.
	client.RecordRefresh(insteon.MustParseAddress("11.22.33"), 1, true)
	client.Flush()
}

func TestRecorder_NilClient(t *testing.T) {
	var client *influxdb.Client

	// A nil client records nothing and does not panic.
	client.RecordLinkUpdate(insteon.MustParseAddress("11.22.33"), "write", true)
	client.RecordRefresh(insteon.MustParseAddress("11.22.33"), 0, false)
}

func TestDefaultTags(t *testing.T) {
	srv := newFakeInflux(t)
	cfg := testConfig(srv.URL)
	cfg.Tags = map[string]string{"modem": "44.85.11", "site": "home"}
	client := connect(t, cfg)

	client.RecordRefresh(insteon.MustParseAddress("11.22.33"), 2, true)
	client.Flush()

	lines := srv.waitFor(t, 1)
	if len(lines) != 1 {
		t.Fatalf("written %d lines, want 1: %v", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], "insteon_refresh,endpoint=11.22.33,modem=44.85.11,site=home ") {
		t.Errorf("line = %q, want default tags", lines[0])
	}
}

func TestSetOnError_WriteRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ping" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"invalid","message":"bucket not found"}`))
	}))
	t.Cleanup(srv.Close)

	client := connect(t, testConfig(srv.URL))

	errs := make(chan error, 1)
	client.SetOnError(func(err error) {
		select {
		case errs <- err:
		default:
		}
	})

	client.RecordLinkUpdate(insteon.MustParseAddress("11.22.33"), "write", true)
	client.Flush()

	select {
	case err := <-errs:
		if !errors.Is(err, influxdb.ErrWriteFailed) {
			t.Errorf("callback error = %v, want ErrWriteFailed", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("write error never reached the callback")
	}
}
