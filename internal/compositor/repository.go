package compositor

import (
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the concurrency-safe contract for accessing and mutating
// in-memory timeline state.
type Repository interface {
	// CreateTimeline registers a new, empty timeline and returns its ID.
	CreateTimeline() TimelineID

	// AppendEvents adds raw event records to the end of a timeline, creating
	// the timeline if it does not exist. Records are stored unvalidated.
	// If the timeline has been sealed, ErrTimelineSealed is returned.
	AppendEvents(id TimelineID, records []json.RawMessage) error

	// SealTimeline fixes the total output duration of a timeline and rejects
	// further events. Sealing again with the same duration is a no-op.
	SealTimeline(id TimelineID, durationMs float64) error

	// GetTimelineSnapshot returns a copy of the timeline's records in append
	// order, its duration and sealed flag. The ok return is false if the
	// timeline does not exist.
	GetTimelineSnapshot(id TimelineID) (records []json.RawMessage, durationMs float64, sealed bool, ok bool)

	// DeleteTimeline removes a timeline. Deleting a missing timeline is a no-op.
	DeleteTimeline(id TimelineID) error

	// OpenTimelineCount returns the number of timelines not yet sealed.
	// Used for metrics.
	OpenTimelineCount() int
}

var (
	// ErrTimelineNotFound is returned when a timeline does not exist.
	ErrTimelineNotFound = errors.New("timeline not found")

	// ErrTimelineSealed is returned when modifying a timeline that has
	// already been sealed.
	ErrTimelineSealed = errors.New("timeline is sealed")

	// ErrTimelineNotSealed is returned when composing a timeline whose
	// duration is not yet known.
	ErrTimelineNotSealed = errors.New("timeline is not sealed")
)

// InMemoryRepository is a concurrency-safe in-memory implementation of Repository.
// It uses a Store for persistence; by default that is an InMemoryStore.
type InMemoryRepository struct {
	mu    sync.RWMutex
	store Store
	now   func() time.Time
}

// NewInMemoryRepository constructs a new repository with a default in-memory store.
func NewInMemoryRepository() *InMemoryRepository {
	return NewInMemoryRepositoryWithStore(NewInMemoryStore())
}

// NewInMemoryRepositoryWithStore constructs a repository that uses the given Store.
func NewInMemoryRepositoryWithStore(store Store) *InMemoryRepository {
	return &InMemoryRepository{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// CreateTimeline implements Repository.CreateTimeline.
func (r *InMemoryRepository) CreateTimeline() TimelineID {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := TimelineID(uuid.NewString())
	r.getOrCreateTimelineLocked(id)
	return id
}

// AppendEvents implements Repository.AppendEvents.
func (r *InMemoryRepository) AppendEvents(id TimelineID, records []json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tl := r.getOrCreateTimelineLocked(id)
	if tl.Sealed {
		return ErrTimelineSealed
	}

	for _, rec := range records {
		// Records may alias a request buffer.
		tl.Events = append(tl.Events, slices.Clone(rec))
	}
	tl.UpdatedAt = r.now()
	return nil
}

// SealTimeline implements Repository.SealTimeline.
func (r *InMemoryRepository) SealTimeline(id TimelineID, durationMs float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tl, exists := r.store.GetTimeline(id)
	if !exists {
		return ErrTimelineNotFound
	}

	if tl.Sealed {
		if tl.DurationMs == durationMs {
			return nil
		}
		return ErrTimelineSealed
	}

	tl.Sealed = true
	tl.DurationMs = durationMs
	tl.UpdatedAt = r.now()
	return nil
}

// GetTimelineSnapshot implements Repository.GetTimelineSnapshot.
func (r *InMemoryRepository) GetTimelineSnapshot(id TimelineID) (records []json.RawMessage, durationMs float64, sealed bool, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tl, exists := r.store.GetTimeline(id)
	if !exists {
		return nil, 0, false, false
	}

	// Stored records are immutable; only the slice is copied.
	return slices.Clone(tl.Events), tl.DurationMs, tl.Sealed, true
}

// DeleteTimeline implements Repository.DeleteTimeline.
func (r *InMemoryRepository) DeleteTimeline(id TimelineID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.store.DeleteTimeline(id)
	return nil
}

// OpenTimelineCount implements Repository.OpenTimelineCount.
func (r *InMemoryRepository) OpenTimelineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, id := range r.store.ListTimelineIDs() {
		if tl, ok := r.store.GetTimeline(id); ok && !tl.Sealed {
			n++
		}
	}
	return n
}

// getOrCreateTimelineLocked returns an existing timeline or creates a new one.
// Caller must hold r.mu in write mode.
func (r *InMemoryRepository) getOrCreateTimelineLocked(id TimelineID) *TimelineState {
	if tl, ok := r.store.GetTimeline(id); ok {
		return tl
	}

	now := r.now()
	tl := &TimelineState{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.store.SetTimeline(tl)
	return tl
}
