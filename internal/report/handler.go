package report

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi"

	"github.com/keswickschool/budget-dashboard/internal"
	"github.com/keswickschool/budget-dashboard/internal/transport"
	"github.com/keswickschool/budget-dashboard/pkg/logger"
)

type ServiceAPI interface {
	ReportData(ctx context.Context, reportType string, filters Filters) (*Report, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	identity, ok := internal.IdentityFromContext(r.Context())
	if !ok || identity == "" {
		h.Logger.Error("GetReport: identity not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	reportType := chi.URLParam(r, "type")
	filters := Filters{
		Department: r.URL.Query().Get("department"),
	}
	if divisions := r.URL.Query().Get("divisions"); divisions != "" {
		filters.Divisions = strings.Split(divisions, ",")
	}

	report, err := h.Service.ReportData(r.Context(), reportType, filters)
	if err != nil {
		h.Logger.Error("GetReport: service error", "error", err, "type", reportType, "identity", identity)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, report)
}
