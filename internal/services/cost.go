package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/inaiurai/fleetdispatch/internal/config"
	"github.com/inaiurai/fleetdispatch/internal/models"
)

var (
	// ErrPlanningFailure marks a task that cannot be scored because no route was found.
	ErrPlanningFailure = errors.New("planning failure")
	// ErrTaskExpired marks a task whose deadline has passed. Expiry is permanent.
	ErrTaskExpired = errors.New("task expired")
	// ErrStoreFailure wraps possibility store errors.
	ErrStoreFailure = errors.New("possibility store failure")
)

// PathOracle turns two poses into an ordered route.
type PathOracle interface {
	Plan(ctx context.Context, start, goal models.Pose, tolerance float64) ([]models.Pose, error)
}

// PossibilityReader returns the open possibility (0–100) of a room's door in a time bucket.
type PossibilityReader interface {
	ReadOpenPossibility(ctx context.Context, roomID, bucket string) (float64, error)
}

// TimeBucketer maps an instant to a recurring time slot key.
type TimeBucketer interface {
	Bucket(t time.Time) string
}

// CostEngine scores tasks against a robot's state. It keeps no per-call state.
type CostEngine struct {
	Oracle    PathOracle
	Store     PossibilityReader
	Buckets   TimeBucketer
	Weights   config.CostWeights
	Tolerance float64
	Logger    *slog.Logger
}

// NewCostEngine returns a CostEngine with the given collaborators.
func NewCostEngine(oracle PathOracle, store PossibilityReader, buckets TimeBucketer, weights config.CostWeights, tolerance float64, logger *slog.Logger) *CostEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &CostEngine{
		Oracle:    oracle,
		Store:     store,
		Buckets:   buckets,
		Weights:   weights,
		Tolerance: tolerance,
		Logger:    logger,
	}
}

// EstimateBattery plans start→end once and returns the route length and the
// battery it costs: linear weight per unit distance plus angular weight per
// radian of heading change between consecutive route points.
func (e *CostEngine) EstimateBattery(ctx context.Context, start, end models.Pose) (distance, battery float64, err error) {
	route, err := e.Oracle.Plan(ctx, start, end, e.Tolerance)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrPlanningFailure, err)
	}
	if len(route) == 0 {
		return 0, 0, fmt.Errorf("%w: empty route", ErrPlanningFailure)
	}
	for i := 1; i < len(route); i++ {
		step := models.PlanarDistance(route[i-1], route[i])
		turn := models.AngularDelta(route[i-1].Orientation, route[i].Orientation)
		distance += step
		battery += e.Weights.Motion.Linear*step + e.Weights.Motion.Angular*turn
	}
	return distance, battery, nil
}

// Score dispatches to the scoring rule of the task's variant. The returned
// ScoredTask holds a copy of the task with computed fields filled in.
func (e *CostEngine) Score(ctx context.Context, t models.Task, req models.RobotRequest, now time.Time) models.ScoredTask {
	switch v := t.Clone().(type) {
	case *models.SimpleTask:
		return e.ScoreSimple(ctx, v, req, now)
	case *models.CompoundTask:
		return e.ScoreCompound(ctx, v, req, now)
	case *models.ChargingTask:
		return e.ScoreCharging(ctx, v, req)
	case *models.DoorTask:
		return e.ScoreDoor(ctx, v, req, now)
	default:
		return invalid(t, fmt.Errorf("unknown task kind %q", t.Kind()))
	}
}

// ScoreSimple computes
//
//	distance + wt_wait*slack + wt_pri*priority - wt_psb*possibility - wt_btr*batteryLevel
//
// and writes possibility and battery estimate onto t, which must be a copy.
func (e *CostEngine) ScoreSimple(ctx context.Context, t *models.SimpleTask, req models.RobotRequest, now time.Time) models.ScoredTask {
	slack := t.Deadline.Sub(now)
	if slack < 0 {
		return invalid(t, ErrTaskExpired)
	}
	t.OpenPossibility = e.possibility(ctx, t.RoomID, now)

	distance, battery, err := e.EstimateBattery(ctx, req.Pose, t.Target)
	if err != nil {
		return invalid(t, err)
	}
	t.BatteryEstimate = battery

	w := e.Weights.Task
	cost := distance + w.Wait*slack.Seconds() + w.Priority*float64(t.Priority) -
		w.Possibility*t.OpenPossibility - w.Battery*req.BatteryLevel
	e.Logger.Debug("scored task",
		"task_id", t.ID, "kind", t.Kind(), "room_id", t.RoomID,
		"distance", distance, "slack_s", slack.Seconds(), "possibility", t.OpenPossibility,
		"priority", t.Priority, "battery_level", req.BatteryLevel, "cost", cost)
	return models.ScoredTask{Task: t, Cost: cost}
}

// ScoreCompound follows the stops in order from the robot's pose, summing
// distance and battery over every leg. Waiting time, priority and possibility
// come from the first stop only.
func (e *CostEngine) ScoreCompound(ctx context.Context, t *models.CompoundTask, req models.RobotRequest, now time.Time) models.ScoredTask {
	if len(t.Stops) == 0 {
		return invalid(t, errors.New("compound task has no stops"))
	}
	first := t.Stops[0]
	slack := first.Deadline.Sub(now)
	if slack < 0 {
		return invalid(t, ErrTaskExpired)
	}
	t.OpenPossibility = e.possibility(ctx, first.RoomID, now)

	var distance, battery float64
	from := req.Pose
	for i, stop := range t.Stops {
		d, b, err := e.EstimateBattery(ctx, from, stop.Target)
		if err != nil {
			return invalid(t, fmt.Errorf("leg %d: %w", i, err))
		}
		distance += d
		battery += b
		from = stop.Target
	}
	t.BatteryEstimate = battery

	w := e.Weights.Task
	cost := distance + w.Wait*slack.Seconds() + w.Priority*float64(first.Priority) -
		w.Possibility*t.OpenPossibility - w.Battery*req.BatteryLevel
	e.Logger.Debug("scored task",
		"task_id", t.ID, "kind", t.Kind(), "stops", len(t.Stops),
		"distance", distance, "battery", battery, "slack_s", slack.Seconds(), "cost", cost)
	return models.ScoredTask{Task: t, Cost: cost}
}

// ScoreCharging computes wt_remain*remaining + wt_btr*battery. Charging tasks never expire.
func (e *CostEngine) ScoreCharging(ctx context.Context, t *models.ChargingTask, req models.RobotRequest) models.ScoredTask {
	_, battery, err := e.EstimateBattery(ctx, req.Pose, t.Station)
	if err != nil {
		return invalid(t, err)
	}
	w := e.Weights.Charging
	cost := w.Remaining*t.RemainingChargeTime.Seconds() + w.Battery*battery
	e.Logger.Debug("scored task",
		"task_id", t.ID, "kind", t.Kind(), "station_id", t.StationID,
		"remaining_s", t.RemainingChargeTime.Seconds(), "battery", battery, "cost", cost)
	return models.ScoredTask{Task: t, Cost: cost}
}

// ScoreDoor computes wt_btr*battery + wt_psb*possibility + wt_update*sinceLastUpdate.
func (e *CostEngine) ScoreDoor(ctx context.Context, t *models.DoorTask, req models.RobotRequest, now time.Time) models.ScoredTask {
	_, battery, err := e.EstimateBattery(ctx, req.Pose, t.Target)
	if err != nil {
		return invalid(t, err)
	}
	t.OpenPossibility = e.possibility(ctx, t.RoomID, now)
	stale := now.Sub(t.LastUpdate).Seconds()

	w := e.Weights.Door
	cost := w.Battery*battery + w.Possibility*t.OpenPossibility + w.Update*stale
	e.Logger.Debug("scored task",
		"task_id", t.ID, "kind", t.Kind(), "room_id", t.RoomID,
		"battery", battery, "possibility", t.OpenPossibility, "stale_s", stale, "cost", cost)
	return models.ScoredTask{Task: t, Cost: cost}
}

// possibility reads the store and falls back to 0 when it is unavailable.
func (e *CostEngine) possibility(ctx context.Context, roomID string, now time.Time) float64 {
	if e.Store == nil {
		return 0
	}
	p, err := e.Store.ReadOpenPossibility(ctx, roomID, e.Buckets.Bucket(now))
	if err != nil {
		e.Logger.Warn("read open possibility failed, using 0",
			"room_id", roomID, "error", fmt.Errorf("%w: %v", ErrStoreFailure, err))
		return 0
	}
	return math.Max(0, math.Min(100, p))
}

func invalid(t models.Task, err error) models.ScoredTask {
	return models.ScoredTask{Task: t, Cost: math.NaN(), Err: err}
}
