// Package httpapi exposes the ordered collections over HTTP. All semantic
// validation lives in the core service; this layer only checks payload shape
// and maps typed errors to transport responses.
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"ordercore/internal/core"
	"ordercore/internal/metric"
	"ordercore/pkg/domain"
)

const apiPrefix = "/api/v1/"

// ownerHeader carries the tenant established by the upstream authorization
// layer. The handler trusts it; enforcing it is out of scope here.
const ownerHeader = "X-Owner-ID"

// resourceSlugs maps URL path segments to resource types.
var resourceSlugs = map[string]domain.ResourceType{
	"parameters":         domain.ResourceParameter,
	"exclude-parameters": domain.ResourceExcludeParameter,
	"extras":             domain.ResourceExtra,
}

// Handler provides HTTP access to the ordered collection service.
type Handler struct {
	Service  *core.Service
	Archiver *core.Archiver
	Metrics  *metric.Metrics
	Logger   *log.Logger
}

// NewHandler constructs an HTTP handler over the service.
func NewHandler(service *core.Service, archiver *core.Archiver, metrics *metric.Metrics, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{Service: service, Archiver: archiver, Metrics: metrics, Logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		writeError(w, http.StatusInternalServerError, "internal", "service not configured")
		return
	}
	path := strings.TrimSuffix(r.URL.Path, "/")
	if !strings.HasPrefix(path, apiPrefix) {
		http.NotFound(w, r)
		return
	}
	owner := strings.TrimSpace(r.Header.Get(ownerHeader))
	if owner == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "owner not established")
		return
	}

	segments := strings.Split(strings.TrimPrefix(path, apiPrefix), "/")
	switch {
	case segments[0] == "archives":
		if h.Archiver == nil {
			http.NotFound(w, r)
			return
		}
		h.handleArchives(w, r, owner, segments)
	default:
		resource, ok := resourceSlugs[segments[0]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.handleResource(w, r, owner, resource, segments[1:])
	}
}

func (h *Handler) handleResource(w http.ResponseWriter, r *http.Request, owner string, resource domain.ResourceType, rest []string) {
	switch len(rest) {
	case 0:
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r, owner, resource)
		case http.MethodPost:
			h.handleCreate(w, r, owner, resource)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		}
	case 1:
		if rest[0] == "reorder" {
			if r.Method != http.MethodPost {
				writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
				return
			}
			h.handleReorder(w, r, owner, resource)
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, r, owner, resource, rest[0])
		case http.MethodDelete:
			h.handleDelete(w, r, owner, resource, rest[0])
		default:
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		}
	default:
		http.NotFound(w, r)
	}
}

type reorderRequest struct {
	Updates  json.RawMessage `json:"updates"`
	Revision uint64          `json:"revision"`
}

// handleReorder decodes the payload shape, rejecting non-array updates before
// the service is invoked.
func (h *Handler) handleReorder(w http.ResponseWriter, r *http.Request, owner string, resource domain.ResourceType) {
	started := time.Now()
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.observeReorder(resource, "invalid", started)
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid reorder payload")
		return
	}
	trimmed := strings.TrimSpace(string(req.Updates))
	if trimmed == "" || !strings.HasPrefix(trimmed, "[") {
		h.observeReorder(resource, "invalid", started)
		writeError(w, http.StatusBadRequest, "invalid_request", "updates must be an array")
		return
	}
	var updates []domain.OrderUpdate
	if err := json.Unmarshal(req.Updates, &updates); err != nil {
		h.observeReorder(resource, "invalid", started)
		writeError(w, http.StatusBadRequest, "invalid_request", "updates entries must carry id and integer sortOrder")
		return
	}

	revision, err := h.Service.Reorder(r.Context(), owner, resource, updates, req.Revision)
	if err != nil {
		h.observeReorder(resource, statusLabel(err), started)
		h.writeServiceError(w, err)
		return
	}
	h.observeReorder(resource, "ok", started)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "revision": revision})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request, owner string, resource domain.ResourceType) {
	items, revision, err := h.Service.ListItems(r.Context(), owner, resource)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "revision": revision})
}

type createRequest struct {
	Payload map[string]any `json:"payload"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request, owner string, resource domain.ResourceType) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid create payload")
		return
	}
	item, err := h.Service.CreateItem(r.Context(), owner, resource, req.Payload)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.ItemMutations.WithLabelValues(string(resource), string(domain.ActionCreate)).Inc()
	}
	writeJSON(w, http.StatusCreated, map[string]any{"item": item})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, owner string, resource domain.ResourceType, id string) {
	item, err := h.Service.GetItem(r.Context(), owner, resource, id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": item})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, owner string, resource domain.ResourceType, id string) {
	if err := h.Service.DeleteItem(r.Context(), owner, resource, id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	if h.Metrics != nil {
		h.Metrics.ItemMutations.WithLabelValues(string(resource), string(domain.ActionDelete)).Inc()
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) handleArchives(w http.ResponseWriter, r *http.Request, owner string, segments []string) {
	if len(segments) != 1 {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodPost:
		info, err := h.Archiver.Export(r.Context(), owner)
		if err != nil {
			if h.Metrics != nil {
				h.Metrics.ArchiveExports.WithLabelValues("error").Inc()
			}
			h.writeServiceError(w, err)
			return
		}
		if h.Metrics != nil {
			h.Metrics.ArchiveExports.WithLabelValues("ok").Inc()
		}
		writeJSON(w, http.StatusCreated, map[string]any{"archive": info})
	case http.MethodGet:
		infos, err := h.Archiver.List(r.Context(), owner)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"archives": infos})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func (h *Handler) observeReorder(resource domain.ResourceType, status string, started time.Time) {
	if h.Metrics != nil {
		h.Metrics.ObserveReorder(string(resource), status, time.Since(started))
	}
}

func statusLabel(err error) string {
	switch {
	case domain.IsInvalidRequest(err):
		return "invalid"
	case domain.IsNotFound(err):
		return "not_found"
	case domain.IsForbidden(err):
		return "forbidden"
	case domain.IsConflict(err):
		return "conflict"
	default:
		return "error"
	}
}

// writeServiceError maps typed service errors to transport responses. Storage
// and unexpected failures are logged and surfaced without internals.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsInvalidRequest(err):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case domain.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case domain.IsForbidden(err):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case domain.IsConflict(err):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case domain.IsStorage(err):
		h.Logger.Printf("storage failure: %v", err)
		writeError(w, http.StatusInternalServerError, "storage_error", "storage failure, retry the request")
	default:
		h.Logger.Printf("unexpected failure: %v", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"error": message, "code": code})
}
