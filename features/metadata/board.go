package metadata

import (
	"strconv"
	"sync"
)

// BoardResolver maps opaque board ids to stable human-readable labels
// ("My Board 1", "My Board 2", ...). The mapping grows monotonically and is
// never persisted: the same id always yields the same label within one
// resolver's lifetime, and distinct ids never collide.
//
// The resolver is an explicit value held by the batch run, not a process
// singleton. It is safe for concurrent use, but callers wanting reproducible
// labels across runs should assign names in a deterministic single-threaded
// pre-pass (see cmd/indeximages) so naming does not depend on goroutine
// scheduling.
type BoardResolver struct {
	mu      sync.Mutex
	names   map[string]string
	counter int
}

func NewBoardResolver() *BoardResolver {
	return &BoardResolver{names: map[string]string{}}
}

// Resolve returns the friendly name assigned to boardID, assigning the next
// "My Board {n}" on first sight. Empty ids resolve to the default board label.
func (r *BoardResolver) Resolve(boardID string) string {
	if boardID == "" {
		return DefaultBoard
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if name, ok := r.names[boardID]; ok {
		return name
	}
	r.counter++
	name := "My Board " + strconv.Itoa(r.counter)
	r.names[boardID] = name
	return name
}

// Len returns the number of distinct board ids seen so far.
func (r *BoardResolver) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.names)
}
