// Package api provides HTTP handlers for the relay server REST API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gorilla/mux"

	relay "github.com/coregx/brokerrelay"
)

// Broker is the in-process relay, when the server runs one.
type Broker interface {
	State() relay.State
	SubscribeTopic(ctx context.Context, name string) error
}

// Handler holds dependencies for API handlers.
type Handler struct {
	directory *relay.Directory
	messages  *relay.MessageStore
	broker    Broker // nil when the relay runs out of process
	logger    relay.Logger
	version   string
}

// NewHandler creates a new API handler. broker may be nil.
func NewHandler(
	directory *relay.Directory,
	messages *relay.MessageStore,
	broker Broker,
	logger relay.Logger,
	version string,
) *Handler {
	return &Handler{
		directory: directory,
		messages:  messages,
		broker:    broker,
		logger:    logger,
		version:   version,
	}
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// SuccessResponse represents a success response.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// HandleHealth handles GET /api/v1/health
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   h.version,
	}
	if h.broker != nil {
		health["broker"] = h.broker.State().String()
	}

	h.respondSuccess(w, http.StatusOK, health, "")
}

// subscribeIfLive subscribes the in-process relay to a newly active topic.
// Failures are logged; the topic is still picked up on the next connect.
func (h *Handler) subscribeIfLive(ctx context.Context, name string) {
	if h.broker == nil || h.broker.State() != relay.StateConnected {
		return
	}
	if err := h.broker.SubscribeTopic(ctx, name); err != nil {
		h.logger.Warnf("Topic %s saved but not subscribed yet: %v", name, err)
	}
}

// decode reads a JSON body into req and validates it when it implements
// validation.Validatable. It writes the error response itself.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "INVALID_JSON")
		return false
	}
	if v, ok := req.(validation.Validatable); ok {
		if err := v.Validate(); err != nil {
			h.respondError(w, http.StatusBadRequest, err.Error(), relay.ErrCodeValidation)
			return false
		}
	}
	return true
}

// pathID parses the {id} route variable.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, http.StatusBadRequest, "Invalid ID", "INVALID_ID")
		return 0, false
	}
	return id, true
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return v, nil
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request) (relay.Page, bool) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), relay.ErrCodeValidation)
		return relay.Page{}, false
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error(), relay.ErrCodeValidation)
		return relay.Page{}, false
	}
	return relay.Page{Limit: int(limit), Offset: int(offset)}, true
}

// respondFailure maps a relay error to an HTTP status.
func (h *Handler) respondFailure(w http.ResponseWriter, err error, action string) {
	switch {
	case relay.HasCode(err, relay.ErrCodeValidation):
		h.respondError(w, http.StatusBadRequest, err.Error(), relay.ErrCodeValidation)
	case relay.HasCode(err, relay.ErrCodeNoData):
		h.respondError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	default:
		h.logger.Errorf("Failed to %s: %v", action, err)
		h.respondError(w, http.StatusInternalServerError, "Failed to "+action, relay.ErrCodeDatabase)
	}
}

// respondError sends an error response.
func (h *Handler) respondError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   message,
		Code:    code,
		Message: message,
	})
}

// respondSuccess sends a success response.
func (h *Handler) respondSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}
