package domain

import (
	"context"
	"fmt"
	"sync"
)

// Snapshot is the persisted progress: which catalog entries are done and
// which are still pending, in processing order.
type Snapshot struct {
	Done    []string `json:"done"`
	Pending []string `json:"pending"`
}

// Normalize returns a copy where duplicates are collapsed (first wins) and
// every identifier present in Done is dropped from Pending.
func (s Snapshot) Normalize() Snapshot {
	out := Snapshot{Done: []string{}, Pending: []string{}}
	seen := make(map[string]bool, len(s.Done)+len(s.Pending))
	for _, id := range s.Done {
		if !seen[id] {
			seen[id] = true
			out.Done = append(out.Done, id)
		}
	}
	for _, id := range s.Pending {
		if !seen[id] {
			seen[id] = true
			out.Pending = append(out.Pending, id)
		}
	}
	return out
}

// ProgressTracker owns the in-memory snapshot for a run and persists it
// through a ProgressStore. Entries only move from pending to done.
type ProgressTracker struct {
	store ProgressStore

	mu      sync.Mutex
	done    []string
	doneSet map[string]bool
	pending []string
	current string
}

// NewProgressTracker creates a tracker backed by store.
func NewProgressTracker(store ProgressStore) *ProgressTracker {
	return &ProgressTracker{
		store:   store,
		doneSet: make(map[string]bool),
	}
}

// Load reads the persisted snapshot. found is false on a first run.
func (t *ProgressTracker) Load(ctx context.Context) (bool, error) {
	snap, found, err := t.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: load: %w", ErrPersistence, err)
	}
	if !found {
		return false, nil
	}
	t.reset(snap.Normalize())
	return true, nil
}

func (t *ProgressTracker) reset(snap Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = snap.Done
	t.pending = snap.Pending
	t.doneSet = make(map[string]bool, len(snap.Done))
	for _, id := range snap.Done {
		t.doneSet[id] = true
	}
}

// Seed appends newly discovered identifiers to the pending sequence,
// ignoring ones already known.
func (t *ProgressTracker) Seed(ids []string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	known := make(map[string]bool, len(t.pending))
	for _, id := range t.pending {
		known[id] = true
	}
	added := 0
	for _, id := range ids {
		if id == "" || known[id] || t.doneSet[id] {
			continue
		}
		known[id] = true
		t.pending = append(t.pending, id)
		added++
	}
	return added
}

// Pending returns a copy of the pending sequence.
func (t *ProgressTracker) Pending() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.pending...)
}

// IsDone reports whether id has been completed.
func (t *ProgressTracker) IsDone(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.doneSet[id]
}

// MarkDone moves id from pending to done. Marking an entry that is
// already done is a no-op.
func (t *ProgressTracker) MarkDone(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.doneSet[id] {
		return nil
	}
	idx := -1
	for i, p := range t.pending {
		if p == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownEntry, id)
	}
	t.pending = append(t.pending[:idx:idx], t.pending[idx+1:]...)
	t.done = append(t.done, id)
	t.doneSet[id] = true
	if t.current == id {
		t.current = ""
	}
	return nil
}

// SetCurrent records the entry being processed, for status reporting.
func (t *ProgressTracker) SetCurrent(id string) {
	t.mu.Lock()
	t.current = id
	t.mu.Unlock()
}

// Current returns the entry being processed, if any.
func (t *ProgressTracker) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Counts returns the number of done and pending entries.
func (t *ProgressTracker) Counts() (done, pending int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.done), len(t.pending)
}

// Snapshot returns a copy of the current progress.
func (t *ProgressTracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		Done:    append([]string{}, t.done...),
		Pending: append([]string{}, t.pending...),
	}
}

// Save persists the current snapshot.
func (t *ProgressTracker) Save(ctx context.Context) error {
	if err := t.store.Save(ctx, t.Snapshot()); err != nil {
		return fmt.Errorf("%w: save: %w", ErrPersistence, err)
	}
	return nil
}
