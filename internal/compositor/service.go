package compositor

import (
	"encoding/json"
	"iter"

	"hls-compositor/internal/segment"
	"hls-compositor/internal/timeline"
)

// Service runs the normalize-then-segment pipeline over submitted documents
// and over timelines recorded through the Repository.
type Service struct {
	repo       Repository
	normalizer *timeline.Normalizer
}

// NewService returns a Service backed by repo. If normalizer is nil, records
// are validated with the default schema validator.
func NewService(repo Repository, normalizer *timeline.Normalizer) *Service {
	if normalizer == nil {
		normalizer = &timeline.Normalizer{}
	}
	return &Service{repo: repo, normalizer: normalizer}
}

// Stream returns the lazy segment sequence for records on a timeline of
// durationMs milliseconds.
func (s *Service) Stream(records []json.RawMessage, durationMs float64) iter.Seq2[segment.Segment, error] {
	return segment.Segments(s.normalizer.Events(records), durationMs)
}

// Compose runs the pipeline over a complete document. A malformed timeline
// returns an error matching timeline.ErrMalformed and no segments.
func (s *Service) Compose(doc timeline.Document) ([]segment.Segment, error) {
	return segment.Collect(s.Stream(doc.Events, doc.DurationMs))
}

// CreateTimeline starts recording a new timeline.
func (s *Service) CreateTimeline() TimelineID {
	return s.repo.CreateTimeline()
}

// AppendEvents records raw events on a timeline. Validation is deferred until
// segments are requested.
func (s *Service) AppendEvents(id TimelineID, records []json.RawMessage) error {
	return s.repo.AppendEvents(id, records)
}

// SealTimeline ends recording and fixes the output duration.
func (s *Service) SealTimeline(id TimelineID, durationMs float64) error {
	return s.repo.SealTimeline(id, durationMs)
}

// Segments composes a sealed timeline.
func (s *Service) Segments(id TimelineID) ([]segment.Segment, error) {
	records, durationMs, sealed, ok := s.repo.GetTimelineSnapshot(id)
	if !ok {
		return nil, ErrTimelineNotFound
	}
	if !sealed {
		return nil, ErrTimelineNotSealed
	}
	return s.Compose(timeline.Document{DurationMs: durationMs, Events: records})
}

// DeleteTimeline discards a recorded timeline.
func (s *Service) DeleteTimeline(id TimelineID) error {
	return s.repo.DeleteTimeline(id)
}
