package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/inaiurai/fleetdispatch/internal/models"
)

// straightOracle plans a two-point route from start to goal. Goals listed in
// fail make it error; goals listed in empty make it return no poses.
type straightOracle struct {
	mu    sync.Mutex
	calls int
	fail  map[models.Point]bool
	empty map[models.Point]bool
}

func (o *straightOracle) Plan(_ context.Context, start, goal models.Pose, _ float64) ([]models.Pose, error) {
	o.mu.Lock()
	o.calls++
	o.mu.Unlock()
	if o.fail[goal.Position] {
		return nil, errors.New("planner unreachable")
	}
	if o.empty[goal.Position] {
		return nil, nil
	}
	return []models.Pose{start, goal}, nil
}

// memStore is an in-memory possibility store: 100 * opens / observations.
type memStore struct {
	mu        sync.Mutex
	preset    map[string]float64
	opens     map[string]int
	total     map[string]int
	readErr   error
	recordErr error
	events    []string
}

func newMemStore() *memStore {
	return &memStore{
		preset: make(map[string]float64),
		opens:  make(map[string]int),
		total:  make(map[string]int),
	}
}

func storeKey(room, bucket string) string { return room + "|" + bucket }

func (s *memStore) ReadOpenPossibility(_ context.Context, roomID, bucket string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "read:"+roomID)
	if s.readErr != nil {
		return 0, s.readErr
	}
	k := storeKey(roomID, bucket)
	if n := s.total[k]; n > 0 {
		return 100 * float64(s.opens[k]) / float64(n), nil
	}
	return s.preset[k], nil
}

func (s *memStore) RecordObservation(_ context.Context, roomID, bucket, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "record:"+roomID)
	if s.recordErr != nil {
		return s.recordErr
	}
	k := storeKey(roomID, bucket)
	s.total[k]++
	if status == models.DoorStatusOpen {
		s.opens[k]++
	}
	return nil
}

// fixedBucket puts every instant in the same bucket.
type fixedBucket string

func (b fixedBucket) Bucket(time.Time) string { return string(b) }

type memAssignments struct {
	mu      sync.Mutex
	records []*models.AssignmentRecord
}

func (m *memAssignments) Create(_ context.Context, rec *models.AssignmentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// routeOracle always answers with the same route.
type routeOracle []models.Pose

func (o routeOracle) Plan(context.Context, models.Pose, models.Pose, float64) ([]models.Pose, error) {
	return o, nil
}
