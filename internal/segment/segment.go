// Package segment turns a sequence of timeline events into compositing
// segments: intervals of the output timeline that show either a still frame
// (frozen) or advancing source media (played).
package segment

import (
	"fmt"

	"hls-compositor/internal/timeline"
)

// Kind tells whether the source advances during a segment.
type Kind string

const (
	KindFrozen Kind = "frozen"
	KindPlayed Kind = "played"
)

// Segment is one interval of the output timeline.
type Segment struct {
	Kind      Kind   `json:"kind" yaml:"kind"`
	SourceURL string `json:"sourceUrl" yaml:"sourceUrl"`
	// SourceMs is the source position at the start of the interval.
	SourceMs float64 `json:"sourceMs" yaml:"sourceMs"`
	// TimelineMs is the output-timeline timestamp at the end of the interval.
	TimelineMs float64 `json:"timelineMs" yaml:"timelineMs"`
	LengthMs   float64 `json:"lengthMs" yaml:"lengthMs"`
}

// StartMs returns the output-timeline timestamp at the start of the interval.
func (s Segment) StartMs() float64 {
	return s.TimelineMs - s.LengthMs
}

// UnknownStateError is returned when an interval needs a segment before the
// play/pause state or the source URL has been established.
type UnknownStateError struct {
	Missing    string         // "playing state" or "url"
	Pending    timeline.Event // event closing the interval; nil for the trailing interval
	TimelineMs float64        // end of the interval
}

func (e *UnknownStateError) Error() string {
	return fmt.Sprintf("processing segment for next event %s at %gms but %s is unknown",
		timeline.Describe(e.Pending), e.TimelineMs, e.Missing)
}

// Is reports whether target is timeline.ErrMalformed.
func (e *UnknownStateError) Is(target error) bool { return target == timeline.ErrMalformed }

// Summary aggregates a list of segments.
type Summary struct {
	Segments       int     `json:"segments" yaml:"segments"`
	Frozen         int     `json:"frozen" yaml:"frozen"`
	Played         int     `json:"played" yaml:"played"`
	FrozenMs       float64 `json:"frozenMs" yaml:"frozenMs"`
	PlayedMs       float64 `json:"playedMs" yaml:"playedMs"`
	SourceSwitches int     `json:"sourceSwitches" yaml:"sourceSwitches"`
}

// Summarize counts segments by kind and totals their lengths. A source
// switch is counted whenever a segment's URL differs from its predecessor's.
func Summarize(segs []Segment) Summary {
	var sum Summary
	for i, s := range segs {
		sum.Segments++
		switch s.Kind {
		case KindFrozen:
			sum.Frozen++
			sum.FrozenMs += s.LengthMs
		case KindPlayed:
			sum.Played++
			sum.PlayedMs += s.LengthMs
		}
		if i > 0 && segs[i-1].SourceURL != s.SourceURL {
			sum.SourceSwitches++
		}
	}
	return sum
}
