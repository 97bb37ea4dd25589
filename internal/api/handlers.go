package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/charliek/podlogs/internal/constants"
	"github.com/charliek/podlogs/internal/domain"
	"github.com/charliek/podlogs/internal/logs"
	"github.com/charliek/podlogs/internal/supervisor"
)

// EngineAPIVersion is the docker API version advertised by /_ping
const EngineAPIVersion = "1.41"

// Handlers contains all HTTP handlers
type Handlers struct {
	supervisor *supervisor.Supervisor
	logManager *logs.Manager
	metrics    *Metrics
}

// NewHandlers creates new HTTP handlers. metrics may be nil.
func NewHandlers(sup *supervisor.Supervisor, logMgr *logs.Manager, metrics *Metrics) *Handlers {
	return &Handlers{
		supervisor: sup,
		logManager: logMgr,
		metrics:    metrics,
	}
}

// Ping handles GET and HEAD /_ping
func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("API-Version", EngineAPIVersion)
	w.Header().Set("Libpod-API-Version", constants.DefaultAPIVersion[1:])
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write([]byte("OK"))
	}
}

// GetVersion handles GET /version
func (h *Handlers) GetVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{
		Version:       constants.DefaultAPIVersion[1:],
		APIVersion:    EngineAPIVersion,
		MinAPIVersion: "1.24",
		Os:            "linux",
	})
}

// ListContainers handles GET /containers/json
func (h *Handlers) ListContainers(w http.ResponseWriter, r *http.Request) {
	all := parseBool(r.URL.Query().Get("all"))
	containers := h.supervisor.Containers()

	resp := make([]ContainerSummary, 0, len(containers))
	for _, c := range containers {
		if !all && !c.State.IsRunning() {
			continue
		}
		resp = append(resp, ToContainerSummary(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

// InspectContainer handles GET /containers/{name}/json
func (h *Handlers) InspectContainer(w http.ResponseWriter, r *http.Request) {
	info, err := h.supervisor.Container(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ToInspectResponse(info))
}

// StartContainer handles POST /containers/{name}/start
func (h *Handlers) StartContainer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.DefaultRequestTimeout)
	defer cancel()

	err := h.supervisor.StartContainer(ctx, chi.URLParam(r, "name"))
	if errors.Is(err, domain.ErrContainerAlreadyRunning) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StopContainer handles POST /containers/{name}/stop
func (h *Handlers) StopContainer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), constants.DefaultRequestTimeout)
	defer cancel()

	err := h.supervisor.StopContainer(ctx, chi.URLParam(r, "name"))
	if errors.Is(err, domain.ErrContainerNotRunning) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// writeBadRequest reports a malformed request
func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Cause:    "bad parameter",
		Message:  err.Error(),
		Response: http.StatusBadRequest,
	})
}

// writeError writes an engine-style error response
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	cause := "internal error"
	message := "an internal error occurred"

	switch {
	case errors.Is(err, domain.ErrContainerNotFound):
		status = http.StatusNotFound
		cause = "no such container"
		message = err.Error()
	case errors.Is(err, domain.ErrContainerAlreadyRunning), errors.Is(err, domain.ErrContainerNotRunning):
		status = http.StatusConflict
		cause = domain.ErrorCode(err)
		message = err.Error()
	case errors.Is(err, domain.ErrInvalidPattern), errors.Is(err, domain.ErrInvalidTimestamp):
		status = http.StatusBadRequest
		cause = domain.ErrorCode(err)
		message = err.Error()
	default:
		// keep internal details out of the response
		log.Printf("Internal error: %v", err)
	}

	writeJSON(w, status, ErrorResponse{
		Cause:    cause,
		Message:  message,
		Response: status,
	})
}
