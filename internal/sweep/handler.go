package sweep

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/voipdesk/planwatch/internal/pkg/ctxlog"
	"github.com/voipdesk/planwatch/internal/pkg/httputil"
	"github.com/voipdesk/planwatch/internal/subscribers"
)

// Handler handles HTTP requests for the sweep module.
type Handler struct {
	service *Service
}

// NewHandler creates a new sweep handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers sweep routes. limiter guards the mutating
// trigger endpoint.
func (h *Handler) RegisterRoutes(r chi.Router, limiter func(http.Handler) http.Handler) {
	r.Route("/sweep", func(r chi.Router) {
		if limiter != nil {
			r.With(limiter).Post("/run", h.Run)
		} else {
			r.Post("/run", h.Run)
		}
		r.Get("/preview", h.Preview)
	})
	r.Get("/subscribers/{id}/expiration", h.SubscriberExpiration)
}

// Run handles POST /sweep/run: executes the sweep and returns its summary.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Run(r.Context())
	if err != nil {
		ctxlog.FromContext(r.Context()).Error("sweep run failed", "error", err)
		httputil.Error(w, http.StatusBadGateway, "subscriber store unavailable")
		return
	}

	httputil.Success(w, http.StatusOK, summary)
}

// Preview handles GET /sweep/preview: evaluates all subscribers without
// writing notifications.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.Preview(r.Context())
	if err != nil {
		ctxlog.FromContext(r.Context()).Error("sweep preview failed", "error", err)
		httputil.Error(w, http.StatusBadGateway, "subscriber store unavailable")
		return
	}

	httputil.Success(w, http.StatusOK, results)
}

// SubscriberExpiration handles GET /subscribers/{id}/expiration.
func (h *Handler) SubscriberExpiration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.service.PreviewSubscriber(r.Context(), id)
	if err != nil {
		if errors.Is(err, subscribers.ErrSubscriberNotFound) {
			httputil.Error(w, http.StatusNotFound, "subscriber not found")
			return
		}
		ctxlog.FromContext(r.Context()).Error("subscriber expiration lookup failed", "error", err)
		httputil.Error(w, http.StatusBadGateway, "subscriber store unavailable")
		return
	}

	httputil.Success(w, http.StatusOK, result)
}
