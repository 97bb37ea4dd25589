package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charliek/podlogs/internal/domain"
	"github.com/charliek/podlogs/internal/logs"
	"github.com/charliek/podlogs/internal/source"
	"github.com/charliek/podlogs/internal/supervisor"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type testEnv struct {
	server  *Server
	sup     *supervisor.Supervisor
	logs    *logs.Manager
	metrics *Metrics
}

// newTestEnv registers "web" (idle, sleeping when started) and "job" (exits at once)
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	metrics := NewMetrics()
	logMgr := logs.NewManager(logs.ManagerConfig{
		BufferSize: 100,
		OnWrite:    metrics.ObserveWrite,
		OnDrop:     metrics.ObserveDrop,
	})

	sup := supervisor.New([]domain.ContainerConfig{
		{Name: "web", Cmd: "sleep 30"},
		{Name: "job", Cmd: "echo done"},
	}, logMgr, nil, supervisor.SupervisorConfig{ShutdownTimeout: 5 * time.Second})
	_, err := sup.Start(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sup.Stop(ctx)
		logMgr.Close()
	})

	handlers := NewHandlers(sup, logMgr, metrics)
	return &testEnv{
		server:  NewServer(ServerConfig{Host: "127.0.0.1", Port: 0}, handlers, metrics),
		sup:     sup,
		logs:    logMgr,
		metrics: metrics,
	}
}

func (e *testEnv) do(method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

// seed writes numbered lines for web at t0+i seconds
func (e *testEnv) seed(lines ...string) {
	for i, line := range lines {
		stream := domain.OriginStdout
		if i%2 == 1 {
			stream = domain.OriginStderr
		}
		e.logs.Write(domain.LogEntry{
			Timestamp: t0.Add(time.Duration(i) * time.Second),
			Container: "web",
			Stream:    stream,
			Line:      line,
		})
	}
}

// readFrames decodes a multiplexed body into lines
func readFrames(t *testing.T, body io.Reader) []domain.LogChunk {
	t.Helper()
	stream := source.NewFrameStream(io.NopCloser(body))
	var out []domain.LogChunk
	for {
		c, err := stream.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, c)
	}
}

// payloads strips frame headers and newlines
func payloads(chunks []domain.LogChunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		p := c.Raw[8:]
		if n := len(p); n > 0 && p[n-1] == '\n' {
			p = p[:n-1]
		}
		out[i] = string(p)
	}
	return out
}

func newHTTPServer(t *testing.T, e *testEnv) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(e.server.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func statusOf(t *testing.T, resp *http.Response) int {
	t.Helper()
	defer resp.Body.Close()
	return resp.StatusCode
}
