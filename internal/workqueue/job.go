package workqueue

import (
	"sync"
	"sync/atomic"
)

// generation is shared by a queue and its jobs. Reset holds mu for writing
// while it advances current; Guard holds it for reading.
type generation struct {
	mu      sync.RWMutex
	current atomic.Uint64
}

func (g *generation) load() uint64 {
	return g.current.Load()
}

// Job identifies one dispatched run of a queued item.
type Job struct {
	Key           string
	Generation    uint64
	CorrelationID string

	gen *generation
}

// Valid reports whether no reset happened since the job was dispatched.
func (j *Job) Valid() bool {
	if j == nil || j.gen == nil {
		return true
	}
	return j.gen.load() == j.Generation
}

// Guard runs fn only if the job is still current, and holds off Reset while
// fn runs. Returns ErrStale without calling fn otherwise. fn must not call
// Guard or Reset on the same queue.
func (j *Job) Guard(fn func() error) error {
	if j == nil || j.gen == nil {
		return fn()
	}
	j.gen.mu.RLock()
	defer j.gen.mu.RUnlock()
	if j.gen.load() != j.Generation {
		return ErrStale
	}
	return fn()
}
