package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/inaiurai/fleetdispatch/internal/middleware"
	"github.com/inaiurai/fleetdispatch/internal/models"
	"github.com/inaiurai/fleetdispatch/internal/services"
)

// Allocator hands out the best pending task for a robot.
type Allocator interface {
	Allocate(ctx context.Context, req models.RobotRequest) (*models.Assignment, error)
}

// AllocationHandler serves POST /v1/allocations.
type AllocationHandler struct {
	Allocator Allocator
	Logger    *slog.Logger
}

type allocationRequest struct {
	LastTask     models.LastTaskOutcome `json:"last_task"`
	Pose         models.Pose            `json:"pose"`
	BatteryLevel float64                `json:"battery_level"`
}

// RequestTask handles POST /v1/allocations.
// The robot comes from the token, never from the body.
func (h *AllocationHandler) RequestTask(w http.ResponseWriter, r *http.Request) {
	rb := middleware.RobotFromCtx(r.Context())
	if rb == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var body allocationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
		return
	}
	if body.BatteryLevel < 0 || body.BatteryLevel > 100 {
		http.Error(w, `{"error":"battery_level must be within [0, 100]"}`, http.StatusBadRequest)
		return
	}
	if body.LastTask.DoorStatus == "" {
		body.LastTask.DoorStatus = models.DoorStatusUnknown
	}

	req := models.RobotRequest{
		RobotID:      rb.ID,
		LastTask:     body.LastTask,
		Pose:         body.Pose,
		BatteryLevel: body.BatteryLevel,
	}
	assignment, err := h.Allocator.Allocate(r.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrNoTaskAvailable) {
			h.Logger.Info("no task available", "robot_id", rb.ID, "reason", err)
			http.Error(w, `{"error":"no task available"}`, http.StatusNotFound)
			return
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			h.Logger.Warn("allocation abandoned", "robot_id", rb.ID, "error", err)
			http.Error(w, `{"error":"request cancelled"}`, http.StatusServiceUnavailable)
			return
		}
		h.Logger.Error("allocate", "robot_id", rb.ID, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, assignment)
}
