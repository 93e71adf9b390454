package services

import (
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inaiurai/fleetdispatch/internal/models"
)

// RoomLister exposes every registered room.
type RoomLister interface {
	Rooms() []models.Room
}

// Generator produces random room visits with deadlines spread over a window.
type Generator struct {
	Rooms          RoomLister
	DeadlineWindow time.Duration
	MaxPriority    int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator seeds its own source so runs can be reproduced in tests.
func NewGenerator(rooms RoomLister, deadlineWindow time.Duration, maxPriority int, seed uint64) *Generator {
	if maxPriority <= 0 {
		maxPriority = 1
	}
	if deadlineWindow <= 0 {
		deadlineWindow = time.Hour
	}
	return &Generator{
		Rooms:          rooms,
		DeadlineWindow: deadlineWindow,
		MaxPriority:    maxPriority,
		rng:            rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Generate returns n simple tasks due between now and now+DeadlineWindow.
// It returns nil when no rooms are registered.
func (g *Generator) Generate(now time.Time, n int) []models.Task {
	rooms := g.Rooms.Rooms()
	if len(rooms) == 0 || n <= 0 {
		return nil
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })

	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]models.Task, 0, n)
	for i := 0; i < n; i++ {
		room := rooms[g.rng.IntN(len(rooms))]
		out = append(out, &models.SimpleTask{
			ID:       uuid.New(),
			RoomID:   room.ID,
			Target:   room.Pose,
			Deadline: now.Add(time.Duration(g.rng.Int64N(int64(g.DeadlineWindow)))),
			Priority: 1 + g.rng.IntN(g.MaxPriority),
		})
	}
	return out
}
