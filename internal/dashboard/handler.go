package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/keswickschool/budget-dashboard/internal"
	"github.com/keswickschool/budget-dashboard/internal/core/events"
	"github.com/keswickschool/budget-dashboard/internal/transport"
	"github.com/keswickschool/budget-dashboard/pkg/logger"
)

// DemoModeWriter persists the demo-mode toggle.
type DemoModeWriter interface {
	SetDemoMode(ctx context.Context, enabled bool) error
}

type Handler struct {
	*transport.BaseHandler
	Service  Service
	DemoMode DemoModeWriter
	Bus      *events.EventBus
}

func NewHandler(service Service, demoMode DemoModeWriter, bus *events.EventBus) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
		DemoMode:    demoMode,
		Bus:         bus,
	}
}

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	identity, ok := internal.IdentityFromContext(r.Context())
	if !ok || identity == "" {
		h.Logger.Error("GetDashboard: identity not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	payload, err := h.Service.Dashboard(r.Context(), identity)
	if err != nil {
		if errors.Is(err, internal.ErrAccessDenied) {
			h.Logger.Warn("GetDashboard: access denied", "identity", identity)
		} else {
			h.Logger.Error("GetDashboard: service error", "error", err, "identity", identity)
		}
		h.HandleServiceError(w, err)
		return
	}

	if payload.Degraded() {
		h.Logger.Warn("GetDashboard: degraded payload served",
			"identity", identity,
			"data_mode", payload.DataMode,
			"warning", payload.Warning)
	}

	h.WriteJSON(w, http.StatusOK, payload)
}

type demoModeDTO struct {
	Enabled bool `json:"enabled"`
}

func (h *Handler) SetDemoMode(w http.ResponseWriter, r *http.Request) {
	identity, ok := internal.IdentityFromContext(r.Context())
	if !ok || identity == "" {
		h.Logger.Error("SetDemoMode: identity not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto demoModeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("SetDemoMode: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.DemoMode.SetDemoMode(r.Context(), dto.Enabled); err != nil {
		h.Logger.Error("SetDemoMode: service error", "error", err, "identity", identity)
		h.HandleServiceError(w, err)
		return
	}

	if h.Bus != nil {
		h.Bus.Publish(context.WithoutCancel(r.Context()), events.NewDemoModeToggledEvent(identity, dto.Enabled))
	}

	h.Logger.Info("SetDemoMode: demo mode updated", "identity", identity, "enabled", dto.Enabled)
	h.WriteJSON(w, http.StatusOK, demoModeDTO{Enabled: dto.Enabled})
}
