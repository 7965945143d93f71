package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rzpsarthak13/armory/internal/core"
	"github.com/rzpsarthak13/armory/internal/schema"
)

// ResourceHandler serves the CRUD endpoints of one resource. Each handler
// makes exactly one gateway call and translates its outcome.
type ResourceHandler struct {
	gateway      core.Gateway
	resource     *core.Resource
	maxBodyBytes int64
	logger       *slog.Logger
}

// NewResourceHandler creates a handler for resource backed by gateway.
func NewResourceHandler(gateway core.Gateway, resource *core.Resource, maxBodyBytes int64, logger *slog.Logger) *ResourceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResourceHandler{
		gateway:      gateway,
		resource:     resource,
		maxBodyBytes: maxBodyBytes,
		logger:       logger.With("component", "api", "resource", resource.Plural),
	}
}

// Routes returns the resource's subrouter, to be mounted at /api/{plural}.
func (h *ResourceHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	return r
}

// List handles GET /.
func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.gateway.ListAll(r.Context())
	if err != nil {
		h.writeGatewayError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// Create handles POST /.
func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeBody(w, r, h.maxBodyBytes)
	if err != nil {
		h.writeGatewayError(w, r, err)
		return
	}

	record, err := h.gateway.Create(r.Context(), fields)
	if err != nil {
		h.writeGatewayError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// Get handles GET /{id}.
func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := schema.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeGatewayError(w, r, err)
		return
	}

	record, err := h.gateway.GetByID(r.Context(), id)
	if err != nil {
		h.writeGatewayError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// Update handles PUT /{id}. The body is a partial record.
func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := schema.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeGatewayError(w, r, err)
		return
	}

	fields, err := decodeBody(w, r, h.maxBodyBytes)
	if err != nil {
		h.writeGatewayError(w, r, err)
		return
	}

	record, err := h.gateway.Update(r.Context(), id, fields)
	if err != nil {
		h.writeGatewayError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// Delete handles DELETE /{id}.
func (h *ResourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := schema.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeGatewayError(w, r, err)
		return
	}

	if err := h.gateway.DeleteByID(r.Context(), id); err != nil {
		h.writeGatewayError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeGatewayError maps the error taxonomy onto status codes. Unclassified
// errors never reach the client. The gateway has already logged storage
// failures with their operation and id, and the request logger records the 500.
func (h *ResourceHandler) writeGatewayError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case core.IsValidation(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case core.IsMalformed(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errUnsupportedMediaType):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, errBodyTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		h.logger.Debug("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
