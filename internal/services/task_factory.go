package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/inaiurai/fleetdispatch/internal/models"
)

// RoomLookup resolves room and station identifiers to poses.
type RoomLookup interface {
	Room(id string) (models.Pose, bool)
	Station(id int) (models.Pose, bool)
}

// TaskFactory turns validated creation payloads into pool tasks.
type TaskFactory struct {
	Validator *Validator
	Registry  RoomLookup
	Now       func() time.Time
}

func NewTaskFactory(v *Validator, registry RoomLookup) *TaskFactory {
	return &TaskFactory{Validator: v, Registry: registry, Now: time.Now}
}

type stopPayload struct {
	RoomID   string       `json:"room_id"`
	Deadline string       `json:"deadline"`
	Priority int          `json:"priority"`
	Target   *models.Pose `json:"target"`
}

type taskPayload struct {
	ID                   string        `json:"id"`
	RoomID               string        `json:"room_id"`
	Deadline             string        `json:"deadline"`
	Priority             int           `json:"priority"`
	Target               *models.Pose  `json:"target"`
	Stops                []stopPayload `json:"stops"`
	StationID            int           `json:"station_id"`
	RemainingChargeTimeS float64       `json:"remaining_charge_time_s"`
	LastUpdate           string        `json:"last_update"`
}

// Build validates payload against the kind's schema and returns the task.
// Poses omitted by the caller are resolved through the registry.
func (f *TaskFactory) Build(ctx context.Context, kind string, payload json.RawMessage) (models.Task, error) {
	if err := f.Validator.ValidateTask(ctx, kind, payload); err != nil {
		return nil, err
	}
	var p taskPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	id := uuid.New()
	if p.ID != "" {
		parsed, err := uuid.Parse(p.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid id: %v", ErrValidation, err)
		}
		id = parsed
	}

	switch kind {
	case models.TaskKindSimple:
		stop, err := f.stop(stopPayload{RoomID: p.RoomID, Deadline: p.Deadline, Priority: p.Priority, Target: p.Target})
		if err != nil {
			return nil, err
		}
		return &models.SimpleTask{ID: id, RoomID: stop.RoomID, Target: stop.Target, Deadline: stop.Deadline, Priority: stop.Priority}, nil

	case models.TaskKindCompound:
		stops := make([]models.Stop, 0, len(p.Stops))
		for i, sp := range p.Stops {
			stop, err := f.stop(sp)
			if err != nil {
				return nil, fmt.Errorf("stop %d: %w", i, err)
			}
			stops = append(stops, stop)
		}
		return &models.CompoundTask{ID: id, Stops: stops}, nil

	case models.TaskKindCharging:
		pose, ok := f.Registry.Station(p.StationID)
		if !ok {
			return nil, fmt.Errorf("%w: unknown station %d", ErrValidation, p.StationID)
		}
		return &models.ChargingTask{
			ID:                  id,
			StationID:           p.StationID,
			Station:             pose,
			RemainingChargeTime: time.Duration(p.RemainingChargeTimeS * float64(time.Second)),
		}, nil

	case models.TaskKindDoor:
		pose, ok := f.Registry.Room(p.RoomID)
		if !ok {
			return nil, fmt.Errorf("%w: unknown room %q", ErrValidation, p.RoomID)
		}
		last := f.Now()
		if p.LastUpdate != "" {
			t, err := time.Parse(time.RFC3339, p.LastUpdate)
			if err != nil {
				return nil, fmt.Errorf("%w: last_update: %v", ErrValidation, err)
			}
			last = t
		}
		return &models.DoorTask{ID: id, RoomID: p.RoomID, Target: pose, LastUpdate: last}, nil
	}
	return nil, fmt.Errorf("%w: unknown task kind %q", ErrValidation, kind)
}

func (f *TaskFactory) stop(sp stopPayload) (models.Stop, error) {
	deadline, err := time.Parse(time.RFC3339, sp.Deadline)
	if err != nil {
		return models.Stop{}, fmt.Errorf("%w: deadline: %v", ErrValidation, err)
	}
	var target models.Pose
	if sp.Target != nil {
		target = *sp.Target
	} else {
		pose, ok := f.Registry.Room(sp.RoomID)
		if !ok {
			return models.Stop{}, fmt.Errorf("%w: unknown room %q", ErrValidation, sp.RoomID)
		}
		target = pose
	}
	return models.Stop{RoomID: sp.RoomID, Target: target, Deadline: deadline, Priority: sp.Priority}, nil
}
