package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/githubixx/mythrecordings-go/internal/domain"
	"github.com/githubixx/mythrecordings-go/internal/infrastructure/i18n"
	"github.com/githubixx/mythrecordings-go/internal/ports"
)

// Browser produces listings for browse actions.
type Browser interface {
	Menu() *domain.Listing
	Browse(ctx context.Context, action domain.BrowseAction) (*domain.Listing, error)
}

// RecordingCache is the cache control surface used by the API.
type RecordingCache interface {
	InvalidateCache(ctx context.Context) error
	CheckBackend(ctx context.Context) error
}

// Handler handles HTTP requests
type Handler struct {
	logger      *slog.Logger
	browser     Browser
	cache       RecordingCache
	loc         ports.Localizer
	backendAddr string
}

// NewHandler creates a new HTTP handler. backendAddr is shown in validation
// messages.
func NewHandler(
	logger *slog.Logger,
	browser Browser,
	cache RecordingCache,
	loc ports.Localizer,
	backendAddr string,
) *Handler {
	return &Handler{
		logger:      logger,
		browser:     browser,
		cache:       cache,
		loc:         loc,
		backendAddr: backendAddr,
	}
}

// Menu returns the top-level menu.
func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, h.browser.Menu())
}

// Browse runs the browse action encoded in the query string.
func (h *Handler) Browse(w http.ResponseWriter, r *http.Request) {
	action, err := domain.ParseBrowseAction(r.URL.Query())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	listing, err := h.browser.Browse(r.Context(), action)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	if len(listing.Diagnostics) > 0 {
		h.logger.Info("listing skipped recordings",
			slog.Int("skipped", len(listing.Diagnostics)),
			slog.String("request_id", RequestIDFromContext(r.Context())))
	}
	h.writeJSON(w, r, http.StatusOK, listing)
}

// RecordingRefresh drops the cached recording list.
func (h *Handler) RecordingRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.InvalidateCache(r.Context()); err != nil {
		h.handleError(w, r, err)
		return
	}
	h.logger.Info("recording cache invalidated", slog.String("user", UserFromContext(r.Context())))
	h.writeJSON(w, r, http.StatusOK, map[string]any{"status": "ok"})
}

type validateResponse struct {
	OK      bool   `json:"ok"`
	Backend string `json:"backend"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// Validate checks that the configured backend is reachable and compatible.
// A failure is a configuration problem the user has to fix, reported with
// 502 and a readable message.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.CheckBackend(r.Context()); err != nil {
		h.logger.Warn("backend validation failed", slog.String("backend", h.backendAddr), slog.Any("error", err))
		h.writeJSON(w, r, http.StatusBadGateway, validateResponse{
			Backend: h.backendAddr,
			Message: h.loc.Sprintf(i18n.MsgBackendUnreachable, h.backendAddr),
			Error:   err.Error(),
		})
		return
	}
	h.writeJSON(w, r, http.StatusOK, validateResponse{
		OK:      true,
		Backend: h.backendAddr,
		Message: h.loc.Sprintf(i18n.MsgBackendOK, h.backendAddr),
	})
}

// Health reports liveness. It does not contact the backend.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// Helper methods

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("response encoding failed", slog.Any("error", err), slog.String("path", r.URL.Path))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Internal Server Error")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n"))
}

func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	attrs := []any{
		slog.Any("error", err),
		slog.String("path", r.URL.Path),
		slog.String("request_id", RequestIDFromContext(r.Context())),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("handler error", attrs...)
	} else {
		h.logger.Warn("handler error", attrs...)
	}
	writeJSONError(w, status, code, err.Error())
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrFetchFailed):
		return http.StatusBadGateway, "fetch_failed"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeJSONError(w http.ResponseWriter, status int, code, detail string) {
	data, _ := json.Marshal(map[string]string{"error": code, "detail": detail})
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n"))
}
