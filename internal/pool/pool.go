package pool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/inaiurai/fleetdispatch/internal/models"
)

var (
	ErrDuplicateID    = errors.New("task id already in pool")
	ErrEmptyPool      = errors.New("task pool is empty")
	ErrNoEligibleTask = errors.New("no eligible task in pool")
)

// Ranking orders candidates for RemoveBest. It is called with the pool lock
// held, so it must not block or call back into the pool.
type Ranking interface {
	// Eligible reports whether t may be handed out at all.
	Eligible(t models.Task) bool
	// Better reports whether a should be chosen over b.
	Better(a, b models.Task) bool
}

// TaskPool owns every unassigned task. Insert and RemoveBest are the only
// operations that change membership.
type TaskPool struct {
	mu    sync.Mutex
	order []uuid.UUID
	tasks map[uuid.UUID]models.Task
}

func New() *TaskPool {
	return &TaskPool{tasks: make(map[uuid.UUID]models.Task)}
}

// Insert adds a task. The pool keeps its own copy.
func (p *TaskPool) Insert(t models.Task) error {
	id := t.TaskID()
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.tasks[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	p.tasks[id] = t.Clone()
	p.order = append(p.order, id)
	return nil
}

// Enumerate returns copies of all pooled tasks in insertion order.
func (p *TaskPool) Enumerate() []models.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.Task, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.tasks[id].Clone())
	}
	return out
}

// RemoveBest removes and returns the best eligible task under r. Selection and
// removal happen in one critical section; on error the pool is unchanged.
// The caller owns the returned task.
func (p *TaskPool) RemoveBest(r Ranking) (models.Task, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.order) == 0 {
		return nil, ErrEmptyPool
	}
	best := -1
	for i, id := range p.order {
		t := p.tasks[id]
		if !r.Eligible(t) {
			continue
		}
		if best < 0 || r.Better(t, p.tasks[p.order[best]]) {
			best = i
		}
	}
	if best < 0 {
		return nil, ErrNoEligibleTask
	}
	id := p.order[best]
	t := p.tasks[id]
	delete(p.tasks, id)
	p.order = append(p.order[:best], p.order[best+1:]...)
	return t, nil
}

// Len reports the number of pooled tasks.
func (p *TaskPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}
