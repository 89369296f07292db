package tac

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/keswickschool/budget-dashboard/internal"
	"github.com/keswickschool/budget-dashboard/internal/transport"
	"github.com/keswickschool/budget-dashboard/pkg/logger"
)

type ServiceAPI interface {
	ByGrade(ctx context.Context) (*Summary, error)
	SaveEnrollment(ctx context.Context, counts map[string]int) error
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

func (h *Handler) GetGrades(w http.ResponseWriter, r *http.Request) {
	identity, ok := internal.IdentityFromContext(r.Context())
	if !ok || identity == "" {
		h.Logger.Error("GetGrades: identity not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summary, err := h.Service.ByGrade(r.Context())
	if err != nil {
		h.Logger.Error("GetGrades: service error", "error", err, "identity", identity)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, summary)
}

type enrollmentDTO struct {
	Enrollment map[string]int `json:"enrollment"`
}

func (h *Handler) UpdateEnrollment(w http.ResponseWriter, r *http.Request) {
	identity, ok := internal.IdentityFromContext(r.Context())
	if !ok || identity == "" {
		h.Logger.Error("UpdateEnrollment: identity not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto enrollmentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("UpdateEnrollment: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Service.SaveEnrollment(r.Context(), dto.Enrollment); err != nil {
		h.Logger.Error("UpdateEnrollment: service error", "error", err, "identity", identity)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("UpdateEnrollment: enrollment updated",
		"identity", identity,
		"grades", len(dto.Enrollment))

	h.WriteJSON(w, http.StatusOK, dto)
}
