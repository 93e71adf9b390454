package pool

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inaiurai/fleetdispatch/internal/models"
)

// byPriority prefers the highest priority; every simple task is eligible
// unless listed in blocked.
type byPriority struct {
	blocked map[uuid.UUID]bool
}

func (r byPriority) Eligible(t models.Task) bool { return !r.blocked[t.TaskID()] }

func (r byPriority) Better(a, b models.Task) bool {
	pa, pb := a.(*models.SimpleTask).Priority, b.(*models.SimpleTask).Priority
	if pa != pb {
		return pa > pb
	}
	ida, idb := a.TaskID(), b.TaskID()
	return bytes.Compare(ida[:], idb[:]) < 0
}

func simpleTask(priority int) *models.SimpleTask {
	return &models.SimpleTask{
		ID:       uuid.New(),
		RoomID:   "A",
		Target:   models.NewPose(1, 1, 0),
		Deadline: time.Now().Add(time.Hour),
		Priority: priority,
	}
}

func TestInsert_DuplicateID(t *testing.T) {
	p := New()
	task := simpleTask(1)
	require.NoError(t, p.Insert(task))

	err := p.Insert(task)
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 1, p.Len())
}

func TestInsert_KeepsOwnCopy(t *testing.T) {
	p := New()
	task := simpleTask(1)
	require.NoError(t, p.Insert(task))

	task.Priority = 99
	snap := p.Enumerate()
	require.Len(t, snap, 1)
	assert.Equal(t, 1, snap[0].(*models.SimpleTask).Priority)
}

func TestEnumerate_SnapshotInInsertionOrder(t *testing.T) {
	p := New()
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		task := simpleTask(i)
		ids = append(ids, task.ID)
		require.NoError(t, p.Insert(task))
	}

	snap := p.Enumerate()
	require.Len(t, snap, 5)
	for i, task := range snap {
		assert.Equal(t, ids[i], task.TaskID())
	}

	// Mutating the snapshot does not touch pooled state.
	snap[0].(*models.SimpleTask).Priority = 42
	assert.Equal(t, 0, p.Enumerate()[0].(*models.SimpleTask).Priority)
}

func TestRemoveBest_EmptyPool(t *testing.T) {
	p := New()
	_, err := p.RemoveBest(byPriority{})
	assert.ErrorIs(t, err, ErrEmptyPool)
	assert.Equal(t, 0, p.Len())
}

func TestRemoveBest_NoEligibleLeavesPoolUnchanged(t *testing.T) {
	p := New()
	a, b := simpleTask(1), simpleTask(2)
	require.NoError(t, p.Insert(a))
	require.NoError(t, p.Insert(b))

	_, err := p.RemoveBest(byPriority{blocked: map[uuid.UUID]bool{a.ID: true, b.ID: true}})
	assert.ErrorIs(t, err, ErrNoEligibleTask)
	assert.Equal(t, 2, p.Len())
}

func TestRemoveBest_PicksBestEligible(t *testing.T) {
	p := New()
	low, high, blocked := simpleTask(1), simpleTask(5), simpleTask(9)
	for _, task := range []*models.SimpleTask{low, high, blocked} {
		require.NoError(t, p.Insert(task))
	}

	got, err := p.RemoveBest(byPriority{blocked: map[uuid.UUID]bool{blocked.ID: true}})
	require.NoError(t, err)
	assert.Equal(t, high.ID, got.TaskID())
	assert.Equal(t, 2, p.Len())

	for _, task := range p.Enumerate() {
		assert.NotEqual(t, high.ID, task.TaskID())
	}
}

func TestRemoveBest_RoundTrip(t *testing.T) {
	const n = 20
	p := New()
	for i := 0; i < n; i++ {
		require.NoError(t, p.Insert(simpleTask(i%4)))
	}

	seen := make(map[uuid.UUID]bool)
	for i := 0; i < n; i++ {
		task, err := p.RemoveBest(byPriority{})
		require.NoError(t, err)
		require.False(t, seen[task.TaskID()], "task %s returned twice", task.TaskID())
		seen[task.TaskID()] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, 0, p.Len())

	_, err := p.RemoveBest(byPriority{})
	assert.ErrorIs(t, err, ErrEmptyPool)
}

func TestRemoveBest_ConcurrentCallersNeverShareATask(t *testing.T) {
	const n = 200
	p := New()
	for i := 0; i < n; i++ {
		require.NoError(t, p.Insert(simpleTask(i%7)))
	}

	var (
		mu   sync.Mutex
		seen = make(map[uuid.UUID]int)
		wg   sync.WaitGroup
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				task, err := p.RemoveBest(byPriority{})
				if err != nil {
					return
				}
				mu.Lock()
				seen[task.TaskID()]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
	for id, count := range seen {
		assert.Equal(t, 1, count, "task %s handed out %d times", id, count)
	}
	assert.Equal(t, 0, p.Len())
}
