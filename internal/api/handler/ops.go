// Package handler provides HTTP handlers for the Alertrix API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/alertrix/alertrix/internal/api/models"
	"github.com/alertrix/alertrix/internal/api/response"
	"github.com/alertrix/alertrix/internal/provider/resilience"
	"github.com/alertrix/alertrix/internal/scheduler"
)

// Pinger checks a storage backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SchedulerStatus reports on the sweep scheduler.
type SchedulerStatus interface {
	Status() scheduler.Status
}

// OpsConfig holds the dependencies of the ops endpoints. Every field except
// the build info is optional.
type OpsConfig struct {
	Version   string
	BuildTime string

	Database  Pinger
	Providers *resilience.Registry
	Scheduler SchedulerStatus

	// SchedulerExpected marks a stopped scheduler as degraded.
	SchedulerExpected bool
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /v1/ops/health, used for liveness checks.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]any{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. A failing database answers 503.
// An open upstream breaker or a stopped scheduler only degrades the report,
// since alerts can still be managed.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: []models.SubsystemStatus{},
		Providers:  []models.ProviderStatus{},
	}

	if h.cfg.Database != nil {
		sub := models.SubsystemStatus{Name: "database", Status: models.HealthStatusOK}
		if err := h.cfg.Database.Ping(ctx); err != nil {
			sub.Status = models.HealthStatusFail
			sub.Detail = strPtr(err.Error())
		}
		status.Subsystems = append(status.Subsystems, sub)
	}

	if h.cfg.Scheduler != nil {
		st := h.cfg.Scheduler.Status()
		sub := models.SubsystemStatus{Name: "scheduler", Status: models.HealthStatusOK}
		switch {
		case !st.Running && h.cfg.SchedulerExpected:
			sub.Status = models.HealthStatusDegraded
			sub.Detail = strPtr("scheduler is not running")
		case st.LastError != nil:
			sub.Status = models.HealthStatusDegraded
			sub.Detail = strPtr("last sweep failed: " + st.LastError.Error())
		}
		status.Subsystems = append(status.Subsystems, sub)
	}

	if h.cfg.Providers != nil {
		for _, p := range h.cfg.Providers.Snapshot() {
			status.Providers = append(status.Providers, toProviderStatus(p))
		}
	}

	status.Status = overall(status)
	code := http.StatusOK
	if status.Status == models.HealthStatusFail {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, status)
}

func toProviderStatus(p *resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{Provider: p.Name, Status: models.HealthStatusOK}
	switch {
	case p.IsUnhealthy():
		ps.Status = models.HealthStatusFail
	case p.IsDegraded():
		ps.Status = models.HealthStatusDegraded
	}
	ps.LastSuccessAt = models.TimestampOf(p.LastSuccessAt)
	ps.LastFailureAt = models.TimestampOf(p.LastFailureAt)
	if p.LastError != "" {
		ps.Message = strPtr(p.LastError)
	}
	return ps
}

// overall fails only on a failed subsystem. Upstream trouble degrades.
func overall(s models.SystemStatus) models.HealthStatus {
	result := models.HealthStatusOK
	for _, sub := range s.Subsystems {
		switch sub.Status {
		case models.HealthStatusFail:
			return models.HealthStatusFail
		case models.HealthStatusDegraded:
			result = models.HealthStatusDegraded
		}
	}
	for _, p := range s.Providers {
		if p.Status != models.HealthStatusOK {
			result = models.HealthStatusDegraded
		}
	}
	return result
}

func strPtr(s string) *string {
	return &s
}
