package plans

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/voipdesk/planwatch/internal/domain"
	"github.com/voipdesk/planwatch/internal/pkg/ctxlog"
	"github.com/voipdesk/planwatch/internal/pkg/httputil"
)

// Handler handles HTTP requests for the plan catalog.
type Handler struct {
	repo Repository // may be nil, built-in table only
}

// NewHandler creates a new plans handler.
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// RegisterRoutes registers plan catalog routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/plans", h.List)
}

// ListResponse describes the effective validity sources: catalog rows,
// the built-in table, and the fallback.
type ListResponse struct {
	Catalog             []domain.Plan  `json:"catalog"`
	Builtin             map[string]int `json:"builtin"`
	DefaultValidityDays int            `json:"default_validity_days"`
}

// List handles GET /plans.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	catalog := []domain.Plan{}
	if h.repo != nil {
		var err error
		catalog, err = h.repo.List(r.Context())
		if err != nil {
			ctxlog.FromContext(r.Context()).Error("list plans failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	httputil.Success(w, http.StatusOK, ListResponse{
		Catalog:             catalog,
		Builtin:             Builtin(),
		DefaultValidityDays: DefaultValidityDays,
	})
}
