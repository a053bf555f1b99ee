package compositor

// Store is the persistence abstraction for timeline state.
// The Repository uses Store for all reads and writes and provides the locking;
// Store implementations need not be safe for concurrent use.
type Store interface {
	GetTimeline(id TimelineID) (*TimelineState, bool)
	SetTimeline(t *TimelineState)
	DeleteTimeline(id TimelineID)
	ListTimelineIDs() []TimelineID
}

// InMemoryStore is an in-memory implementation of Store.
type InMemoryStore struct {
	timelines map[TimelineID]*TimelineState
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		timelines: make(map[TimelineID]*TimelineState),
	}
}

// GetTimeline implements Store.GetTimeline.
func (s *InMemoryStore) GetTimeline(id TimelineID) (*TimelineState, bool) {
	t, ok := s.timelines[id]
	return t, ok
}

// SetTimeline implements Store.SetTimeline.
func (s *InMemoryStore) SetTimeline(t *TimelineState) {
	s.timelines[t.ID] = t
}

// DeleteTimeline implements Store.DeleteTimeline.
func (s *InMemoryStore) DeleteTimeline(id TimelineID) {
	delete(s.timelines, id)
}

// ListTimelineIDs implements Store.ListTimelineIDs.
func (s *InMemoryStore) ListTimelineIDs() []TimelineID {
	ids := make([]TimelineID, 0, len(s.timelines))
	for id := range s.timelines {
		ids = append(ids, id)
	}
	return ids
}
