package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/inaiurai/fleetdispatch/internal/models"
	"github.com/inaiurai/fleetdispatch/internal/pool"
)

// ErrNoTaskAvailable is returned when a request finds nothing to hand out.
// It wraps pool.ErrEmptyPool or pool.ErrNoEligibleTask.
var ErrNoTaskAvailable = errors.New("no task available")

// ObservationRecorder feeds a door observation back into the possibility model.
type ObservationRecorder interface {
	RecordObservation(ctx context.Context, roomID, bucket, status string) error
}

// TaskPool is the pool surface the allocator needs.
type TaskPool interface {
	Enumerate() []models.Task
	RemoveBest(r pool.Ranking) (models.Task, error)
}

// Scorer scores one task for one request.
type Scorer interface {
	Score(ctx context.Context, t models.Task, req models.RobotRequest, now time.Time) models.ScoredTask
}

// AssignmentRecorder keeps a history of handed-out tasks.
type AssignmentRecorder interface {
	Create(ctx context.Context, rec *models.AssignmentRecord) error
}

// Allocator states, logged per request.
const (
	stateIdle       = "idle"
	stateScoring    = "scoring"
	stateSelecting  = "selecting"
	stateResponding = "responding"
)

// AllocationService answers "give me my next task" requests.
type AllocationService struct {
	Pool        TaskPool
	Scorer      Scorer
	Store       ObservationRecorder
	Buckets     TimeBucketer
	Assignments AssignmentRecorder
	MaxParallel int
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewAllocationService wires the allocator. assignments may be nil.
func NewAllocationService(p TaskPool, scorer Scorer, store ObservationRecorder, buckets TimeBucketer, assignments AssignmentRecorder, maxParallel int, logger *slog.Logger) *AllocationService {
	if logger == nil {
		logger = slog.Default()
	}
	if maxParallel <= 0 {
		maxParallel = 1
	}
	return &AllocationService{
		Pool:        p,
		Scorer:      scorer,
		Store:       store,
		Buckets:     buckets,
		Assignments: assignments,
		MaxParallel: maxParallel,
		Now:         time.Now,
		Logger:      logger,
	}
}

// Allocate scores every pooled task for req, removes the winner from the pool
// and returns it. The pool is only modified when an assignment is returned.
func (s *AllocationService) Allocate(ctx context.Context, req models.RobotRequest) (*models.Assignment, error) {
	now := s.Now()
	log := s.Logger.With("robot_id", req.RobotID)
	log.Info("allocation request",
		"last_task_completed", req.LastTask.Completed, "door_status", req.LastTask.DoorStatus,
		"room_id", req.LastTask.RoomID, "battery_level", req.BatteryLevel)

	s.recordOutcome(ctx, log, req, now)

	snapshot := s.Pool.Enumerate()
	if len(snapshot) == 0 {
		log.Info("no tasks in pool", "state", stateIdle)
		return nil, fmt.Errorf("%w: %w", ErrNoTaskAvailable, pool.ErrEmptyPool)
	}

	log.Debug("scoring tasks", "state", stateScoring, "tasks", len(snapshot))
	scored, err := s.scoreAll(ctx, snapshot, req, now)
	if err != nil {
		return nil, err
	}

	log.Debug("selecting task", "state", stateSelecting)
	ranking := newCostRanking(scored)
	if len(ranking.scores) == 0 {
		log.Info("no eligible task", "tasks", len(snapshot))
		return nil, fmt.Errorf("%w: %w", ErrNoTaskAvailable, pool.ErrNoEligibleTask)
	}
	// Last point where the request may give up without side effects.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	task, err := s.Pool.RemoveBest(ranking)
	if err != nil {
		if errors.Is(err, pool.ErrEmptyPool) || errors.Is(err, pool.ErrNoEligibleTask) {
			return nil, fmt.Errorf("%w: %w", ErrNoTaskAvailable, err)
		}
		return nil, fmt.Errorf("remove best task: %w", err)
	}
	winner := ranking.scores[task.TaskID()]

	log.Debug("responding", "state", stateResponding)
	assignment := buildAssignment(winner)
	log.Info("assigned task", "task_id", assignment.TaskID, "kind", assignment.Kind,
		"room_id", assignment.RoomID, "cost", assignment.Cost)
	s.recordAssignment(ctx, log, req, assignment, now)
	return assignment, nil
}

// recordOutcome pushes the last task's door observation before any scoring so
// this request already sees it. Failures are logged only.
func (s *AllocationService) recordOutcome(ctx context.Context, log *slog.Logger, req models.RobotRequest, now time.Time) {
	last := req.LastTask
	if !last.Completed || !models.DoorObservable(last.DoorStatus) || last.RoomID == "" {
		return
	}
	bucket := s.Buckets.Bucket(now)
	if err := s.Store.RecordObservation(ctx, last.RoomID, bucket, last.DoorStatus); err != nil {
		log.Warn("record door observation failed",
			"room_id", last.RoomID, "bucket", bucket, "error", fmt.Errorf("%w: %v", ErrStoreFailure, err))
		return
	}
	log.Info("updated possibility table", "room_id", last.RoomID, "bucket", bucket, "door_status", last.DoorStatus)
}

func (s *AllocationService) scoreAll(ctx context.Context, tasks []models.Task, req models.RobotRequest, now time.Time) ([]models.ScoredTask, error) {
	out := make([]models.ScoredTask, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.MaxParallel)
	for i, t := range tasks {
		g.Go(func() error {
			out[i] = s.Scorer.Score(gctx, t, req, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, st := range out {
		if st.Err != nil {
			s.Logger.Info("task excluded", "task_id", st.Task.TaskID(), "reason", st.Err)
		}
	}
	return out, nil
}

func (s *AllocationService) recordAssignment(ctx context.Context, log *slog.Logger, req models.RobotRequest, a *models.Assignment, now time.Time) {
	if s.Assignments == nil {
		return
	}
	rec := &models.AssignmentRecord{
		ID:         uuid.New(),
		RobotID:    req.RobotID,
		TaskID:     a.TaskID,
		Kind:       a.Kind,
		RoomID:     a.RoomID,
		Cost:       a.Cost,
		AssignedAt: now,
	}
	if err := s.Assignments.Create(ctx, rec); err != nil {
		log.Warn("record assignment failed", "task_id", a.TaskID, "error", err)
	}
}

// costRanking picks the MAXIMUM cost among valid entries, even though the
// penalty terms raise the cost. Equal costs go to the lowest task ID.
type costRanking struct {
	scores map[uuid.UUID]models.ScoredTask
}

func newCostRanking(scored []models.ScoredTask) costRanking {
	r := costRanking{scores: make(map[uuid.UUID]models.ScoredTask, len(scored))}
	for _, st := range scored {
		if st.Valid() {
			r.scores[st.Task.TaskID()] = st
		}
	}
	return r
}

// Eligible is false for tasks scored invalid and for tasks inserted after the snapshot.
func (r costRanking) Eligible(t models.Task) bool {
	_, ok := r.scores[t.TaskID()]
	return ok
}

func (r costRanking) Better(a, b models.Task) bool {
	ca, cb := r.scores[a.TaskID()].Cost, r.scores[b.TaskID()].Cost
	if ca != cb {
		return ca > cb
	}
	ida, idb := a.TaskID(), b.TaskID()
	return bytes.Compare(ida[:], idb[:]) < 0
}

func buildAssignment(st models.ScoredTask) *models.Assignment {
	a := &models.Assignment{
		TaskID:    st.Task.TaskID(),
		Kind:      st.Task.Kind(),
		Goal:      st.Task.Goal(),
		RoomID:    models.RoomOf(st.Task),
		Cost:      st.Cost,
		Completed: false,
	}
	switch v := st.Task.(type) {
	case *models.CompoundTask:
		a.Stops = v.Stops
	case *models.ChargingTask:
		id := v.StationID
		a.StationID = &id
	}
	return a
}
