package notifications

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/voipdesk/planwatch/internal/domain"
	"github.com/voipdesk/planwatch/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrNotificationNotFound, Status: http.StatusNotFound, Message: "notification not found"},
	{Error: ErrDuplicateNotification, Status: http.StatusConflict, Message: "an equal notification already exists today"},
}

// Handler handles HTTP requests for the notifications module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new notifications handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers notification feed routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/subscribers/{id}/notifications", func(r chi.Router) {
		r.Get("/", h.GetFeed)
		r.Post("/read-all", h.MarkAllRead)
		r.Post("/{notificationID}/read", h.MarkRead)
	})
	r.Post("/notifications/test", h.CreateTest)
}

// GetFeed handles GET /subscribers/{id}/notifications.
func (h *Handler) GetFeed(w http.ResponseWriter, r *http.Request) {
	subscriberID := chi.URLParam(r, "id")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httputil.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	feed, err := h.service.GetFeed(r.Context(), subscriberID, limit)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, feed)
}

// MarkRead handles POST /subscribers/{id}/notifications/{notificationID}/read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	subscriberID := chi.URLParam(r, "id")
	notificationID := chi.URLParam(r, "notificationID")

	if err := h.service.MarkRead(r.Context(), subscriberID, notificationID); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MarkAllReadResponse reports how many notifications were marked read.
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

// MarkAllRead handles POST /subscribers/{id}/notifications/read-all.
func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	subscriberID := chi.URLParam(r, "id")

	updated, err := h.service.MarkAllRead(r.Context(), subscriberID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, MarkAllReadResponse{Updated: updated})
}

// CreateTestRequest represents request body for creating a test notification.
type CreateTestRequest struct {
	SubscriberID string `json:"subscriber_id" validate:"required,uuid4"`
	Type         string `json:"type" validate:"required,oneof=info warning error"`
	Title        string `json:"title" validate:"required,max=200"`
	Message      string `json:"message" validate:"required,max=1000"`
}

// CreateTest handles POST /notifications/test.
func (h *Handler) CreateTest(w http.ResponseWriter, r *http.Request) {
	var req CreateTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	n, err := h.service.CreateTest(r.Context(), req.SubscriberID, domain.NotificationType(req.Type), req.Title, req.Message)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, n)
}
