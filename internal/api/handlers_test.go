package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charliek/podlogs/internal/domain"
)

func TestInspectContainer(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/v4.0.0/libpod/containers/web/json")
	require.Equal(t, http.StatusOK, w.Code)

	var resp InspectResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "/web", resp.Name)
	assert.Len(t, resp.ID, 64)
	assert.Equal(t, "created", resp.State.Status)
	assert.False(t, resp.State.Running)
	assert.Equal(t, zeroTime, resp.State.StartedAt)
	assert.Equal(t, []string{"sh", "-c", "sleep 30"}, resp.Config.Cmd)
}

func TestInspectContainer_NotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/v4.0.0/libpod/containers/nope/json")
	require.Equal(t, http.StatusNotFound, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "no such container", resp.Cause)
	assert.Equal(t, http.StatusNotFound, resp.Response)
}

func TestStartStopContainer(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/v4.0.0/libpod/containers/web/start")
	assert.Equal(t, http.StatusNoContent, w.Code)

	info, err := env.sup.Container("web")
	require.NoError(t, err)
	assert.Equal(t, domain.ContainerStateRunning, info.State)

	w = env.do(http.MethodPost, "/v4.0.0/libpod/containers/web/start")
	assert.Equal(t, http.StatusNotModified, w.Code)

	w = env.do(http.MethodPost, "/v4.0.0/libpod/containers/web/stop")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(http.MethodPost, "/v4.0.0/libpod/containers/web/stop")
	assert.Equal(t, http.StatusNotModified, w.Code)

	w = env.do(http.MethodPost, "/v4.0.0/libpod/containers/nope/start")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListContainers(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.sup.StartContainer(t.Context(), "web"))

	var running []ContainerSummary
	w := env.do(http.MethodGet, "/v1.41/containers/json")
	require.NoError(t, json.NewDecoder(w.Body).Decode(&running))
	require.Len(t, running, 1)
	assert.Equal(t, []string{"/web"}, running[0].Names)
	assert.Equal(t, "running", running[0].State)

	var all []ContainerSummary
	w = env.do(http.MethodGet, "/v1.41/containers/json?all=true")
	require.NoError(t, json.NewDecoder(w.Body).Decode(&all))
	assert.Len(t, all, 2)
}

func TestGetLogs_All(t *testing.T) {
	env := newTestEnv(t)
	env.seed("a", "b", "c")

	w := env.do(http.MethodGet, "/v4.0.0/libpod/containers/web/logs?stdout=true&stderr=true")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, multiplexedContentType, w.Header().Get("Content-Type"))

	chunks := readFrames(t, w.Body)
	assert.Equal(t, []string{"a", "b", "c"}, payloads(chunks))
	assert.Equal(t, domain.OriginStdout, chunks[0].Origin)
	assert.Equal(t, domain.OriginStderr, chunks[1].Origin)
}

func TestGetLogs_Timestamps(t *testing.T) {
	env := newTestEnv(t)
	env.seed("a", "b")

	w := env.do(http.MethodGet, "/v4.0.0/libpod/containers/web/logs?timestamps=true")
	assert.Equal(t, []string{
		"2024-01-01T00:00:00Z a",
		"2024-01-01T00:00:01Z b",
	}, payloads(readFrames(t, w.Body)))
}

func TestGetLogs_Tail(t *testing.T) {
	env := newTestEnv(t)
	env.seed("a", "b", "c", "d")

	w := env.do(http.MethodGet, "/v4.0.0/libpod/containers/web/logs?tail=2")
	assert.Equal(t, []string{"c", "d"}, payloads(readFrames(t, w.Body)))

	w = env.do(http.MethodGet, "/v4.0.0/libpod/containers/web/logs?tail=0")
	assert.Empty(t, readFrames(t, w.Body))
}

func TestGetLogs_Window(t *testing.T) {
	env := newTestEnv(t)
	env.seed("a", "b", "c", "d", "e")

	w := env.do(http.MethodGet, "/v4.0.0/libpod/containers/web/logs?since=2024-01-01T00:00:01Z&until=2024-01-01T00:00:03Z")
	assert.Equal(t, []string{"b", "c"}, payloads(readFrames(t, w.Body)))

	// docker sends unix seconds
	w = env.do(http.MethodGet, "/v1.41/containers/web/logs?since=1704067203.000000000")
	assert.Equal(t, []string{"d", "e"}, payloads(readFrames(t, w.Body)))
}

func TestGetLogs_StreamSelection(t *testing.T) {
	env := newTestEnv(t)
	env.seed("out", "err")

	w := env.do(http.MethodGet, "/v4.0.0/libpod/containers/web/logs?stdout=false&stderr=true")
	assert.Equal(t, []string{"err"}, payloads(readFrames(t, w.Body)))
}

func TestGetLogs_BadRequest(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/v4.0.0/libpod/containers/web/logs?since=later")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/v4.0.0/libpod/containers/nope/logs")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetLogs_FollowStoppedContainer(t *testing.T) {
	env := newTestEnv(t)
	env.seed("a", "b")

	done := make(chan []string, 1)
	go func() {
		w := env.do(http.MethodGet, "/v4.0.0/libpod/containers/web/logs?follow=true")
		done <- payloads(readFrames(t, w.Body))
	}()

	select {
	case got := <-done:
		assert.Equal(t, []string{"a", "b"}, got)
	case <-time.After(5 * time.Second):
		t.Fatal("follow on a stopped container should return")
	}
}

func TestGetLogs_FollowUntilExit(t *testing.T) {
	env := newTestEnv(t)
	srv := newHTTPServer(t, env)
	require.NoError(t, env.sup.StartContainer(t.Context(), "web"))

	resp, err := http.Get(srv.URL + "/v4.0.0/libpod/containers/web/logs?follow=true&tail=0")
	require.NoError(t, err)
	defer resp.Body.Close()

	env.logs.Write(domain.LogEntry{Timestamp: time.Now(), Container: "web", Stream: domain.OriginStdout, Line: "live"})
	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = env.sup.StopContainer(t.Context(), "web")
	}()

	assert.Equal(t, []string{"live"}, payloads(readFrames(t, resp.Body)))

	require.Eventually(t, func() bool {
		return env.logs.Stats().Followers == 0
	}, 5*time.Second, 10*time.Millisecond)
}
