package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

func runAppForTest(t *testing.T, args []string) string {
	w, _, err := runAppNoChecks(args)
	require.NoError(t, err)
	return w.String()
}

func runAppCheckErr(t *testing.T, args []string, errorMsg string) string {
	w, _, err := runAppNoChecks(args)
	require.Error(t, err)
	require.Equal(t, errorMsg, err.Error())
	return w.String()
}

func runAppNoChecks(args []string) (stdout, stderr *bytes.Buffer, err error) {
	stdout, stderr = new(bytes.Buffer), new(bytes.Buffer)
	app := createApp(strings.NewReader(""), stdout, stderr, nil)
	err = app.Run(append([]string{"talloc"}, args...))
	return stdout, stderr, err
}

// mockTalloc serves the applications API. Identifiers listed in fail get
// their connection dropped, delays hold a response back and "moved"
// redirects to z9.
type mockTalloc struct {
	fail   map[string]bool
	delays map[string]time.Duration

	mu       sync.Mutex
	requests []*http.Request

	inFlight atomic.Int32
	peak     atomic.Int32
}

func (m *mockTalloc) record(r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, r.Clone(r.Context()))
}

func (m *mockTalloc) recorded() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*http.Request(nil), m.requests...)
}

func (m *mockTalloc) enter() {
	n := m.inFlight.Add(1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

func runMockTalloc(t *testing.T, m *mockTalloc) *httptest.Server {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/terms/{term}/applications", func(w http.ResponseWriter, r *http.Request) {
		m.record(r)
		w.Write([]byte(`[{"id":"z1"},{"id":"z2"}]`)) //nolint:errcheck
	}).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/terms/{term}/applications/{zid}", func(w http.ResponseWriter, r *http.Request) {
		m.record(r)
		m.enter()
		defer m.inFlight.Add(-1)

		zid := mux.Vars(r)["zid"]
		if d := m.delays[zid]; d > 0 {
			select {
			case <-time.After(d):
			case <-r.Context().Done():
				return
			}
		}
		if zid == "moved" {
			http.Redirect(w, r, "/api/v1/terms/"+mux.Vars(r)["term"]+"/applications/z9", http.StatusFound)
			return
		}
		if m.fail[zid] {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		w.Write([]byte(`{"id":"` + zid + `"}`)) //nolint:errcheck
	}).Methods(http.MethodGet)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

// writeTokenFile writes a private token file and returns its path.
func writeTokenFile(t *testing.T, content string) string {
	p := filepath.Join(t.TempDir(), ".talloc.jwt")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

// appsArgs runs apps against srv with an empty config file.
func appsArgs(t *testing.T, srv *httptest.Server, tokenPath string, extra ...string) []string {
	args := []string{
		"--config", filepath.Join(t.TempDir(), "config"),
		"apps",
		"--address", srv.URL,
		"--token-file", tokenPath,
	}
	return append(args, extra...)
}
