package compositor

import (
	"encoding/json"
	"time"
)

// TimelineID uniquely identifies a recorded timeline.
type TimelineID string

// TimelineState is the in-memory representation of a timeline being recorded.
// Events are kept as raw records and validated only when segments are composed.
type TimelineState struct {
	ID         TimelineID
	Events     []json.RawMessage
	DurationMs float64
	Sealed     bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
