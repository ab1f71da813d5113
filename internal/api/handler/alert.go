package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/alertrix/alertrix/internal/alert"
	"github.com/alertrix/alertrix/internal/api/middleware"
	"github.com/alertrix/alertrix/internal/api/models"
	"github.com/alertrix/alertrix/internal/api/response"
	"github.com/alertrix/alertrix/internal/scheduler"
)

// AlertService is the alert management surface the handlers use.
type AlertService interface {
	Create(ctx context.Context, input *models.AlertCreateRequest) (*alert.Alert, error)
	Get(ctx context.Context, id string) (*alert.Alert, error)
	List(ctx context.Context) ([]*alert.Alert, error)
	Update(ctx context.Context, id string, input *models.AlertUpdateRequest) (*alert.Alert, error)
	Delete(ctx context.Context, id string) error
	Statuses(ctx context.Context) ([]alert.Status, error)
	Restart(ctx context.Context, id string) (*alert.Alert, error)
	EvaluateAll(ctx context.Context) (*alert.SweepResult, error)
}

// SweepRunner runs one sweep on demand. The scheduler implements it so manual
// sweeps share its lock and appear in its status.
type SweepRunner interface {
	RunOnce(ctx context.Context) (*alert.SweepResult, error)
}

// AlertHandler handles alert endpoints.
type AlertHandler struct {
	svc    AlertService
	runner SweepRunner
	logger zerolog.Logger
}

// NewAlertHandler creates a new AlertHandler. runner may be nil, in which
// case manual sweeps call the service directly.
func NewAlertHandler(svc AlertService, runner SweepRunner, logger zerolog.Logger) *AlertHandler {
	return &AlertHandler{
		svc:    svc,
		runner: runner,
		logger: logger.With().Str("component", "alert_handler").Logger(),
	}
}

// CreateAlert handles POST /v1/alerts.
func (h *AlertHandler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	var input models.AlertCreateRequest
	if err := response.Decode(w, r, &input); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	a, err := h.svc.Create(r.Context(), &input)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Created(w, r, "/v1/alerts/"+a.ID, toAlert(a))
}

// ListAlerts handles GET /v1/alerts.
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.svc.List(r.Context())
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	items := make([]models.Alert, 0, len(alerts))
	for _, a := range alerts {
		items = append(items, toAlert(a))
	}
	response.JSON(w, r, http.StatusOK, models.AlertList{Items: items, Count: len(items)})
}

// GetAlert handles GET /v1/alerts/{id}.
func (h *AlertHandler) GetAlert(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toAlert(a))
}

// UpdateAlert handles PUT /v1/alerts/{id}.
func (h *AlertHandler) UpdateAlert(w http.ResponseWriter, r *http.Request) {
	var input models.AlertUpdateRequest
	if err := response.Decode(w, r, &input); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	a, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), &input)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toAlert(a))
}

// DeleteAlert handles DELETE /v1/alerts/{id}.
func (h *AlertHandler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.FromError(w, r, err)
		return
	}
	response.NoContent(w, r)
}

// ListStatuses handles GET /v1/alerts/status.
func (h *AlertHandler) ListStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.svc.Statuses(r.Context())
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	items := make([]models.AlertStatus, 0, len(statuses))
	for _, s := range statuses {
		items = append(items, toAlertStatus(s))
	}
	response.JSON(w, r, http.StatusOK, models.AlertStatusList{Items: items})
}

// RestartAlert handles POST /v1/alerts/{id}/restart.
func (h *AlertHandler) RestartAlert(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Restart(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toAlert(a))
}

// Evaluate handles POST /v1/alerts/evaluate: one sweep, run synchronously.
func (h *AlertHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	h.logger.Info().
		Str("operator", middleware.GetSubject(r.Context())).
		Str("request_id", middleware.GetRequestID(r.Context())).
		Msg("manual sweep requested")

	var (
		res *alert.SweepResult
		err error
	)
	if h.runner != nil {
		res, err = h.runner.RunOnce(r.Context())
	} else {
		res, err = h.svc.EvaluateAll(r.Context())
	}

	if errors.Is(err, scheduler.ErrSweepLocked) {
		response.Error(w, r, models.NewConflict(middleware.GetRequestID(r.Context()), "another sweep is in progress"))
		return
	}
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toEvaluationResult(res))
}
