package timeline

import (
	"encoding/json"
	"fmt"
)

// EventType is the discriminant of a timeline event.
type EventType string

const (
	TypeSourceChange EventType = "videochangesource"
	TypePlay         EventType = "play"
	TypePause        EventType = "pause"
	TypePlaybackRate EventType = "playbackrate"
	TypeSeek         EventType = "seek"
)

// Event is one playback-control event recorded on the output timeline.
// The set of implementations is closed: SourceChange, Play, Pause,
// PlaybackRate and Seek.
type Event interface {
	// Type returns the event discriminant.
	Type() EventType
	// Delta returns the event timestamp on the output timeline in milliseconds.
	Delta() float64

	timelineEvent()
}

// SourceChange switches the active source media.
type SourceChange struct {
	DeltaMs float64
	URL     string
}

// Play resumes playback.
type Play struct {
	DeltaMs float64
}

// Pause halts playback.
type Pause struct {
	DeltaMs float64
}

// PlaybackRate changes the source playback speed without starting or
// stopping playback.
type PlaybackRate struct {
	DeltaMs float64
	Rate    float64
}

// Seek moves the source play-head to TimeSec seconds.
type Seek struct {
	DeltaMs float64
	TimeSec float64
}

func (SourceChange) Type() EventType { return TypeSourceChange }
func (Play) Type() EventType         { return TypePlay }
func (Pause) Type() EventType        { return TypePause }
func (PlaybackRate) Type() EventType { return TypePlaybackRate }
func (Seek) Type() EventType         { return TypeSeek }

func (e SourceChange) Delta() float64 { return e.DeltaMs }
func (e Play) Delta() float64         { return e.DeltaMs }
func (e Pause) Delta() float64        { return e.DeltaMs }
func (e PlaybackRate) Delta() float64 { return e.DeltaMs }
func (e Seek) Delta() float64         { return e.DeltaMs }

func (SourceChange) timelineEvent() {}
func (Play) timelineEvent()         {}
func (Pause) timelineEvent()        {}
func (PlaybackRate) timelineEvent() {}
func (Seek) timelineEvent()         {}

func (e SourceChange) MarshalJSON() ([]byte, error) { return json.Marshal(toWire(e)) }
func (e Play) MarshalJSON() ([]byte, error)         { return json.Marshal(toWire(e)) }
func (e Pause) MarshalJSON() ([]byte, error)        { return json.Marshal(toWire(e)) }
func (e PlaybackRate) MarshalJSON() ([]byte, error) { return json.Marshal(toWire(e)) }
func (e Seek) MarshalJSON() ([]byte, error)         { return json.Marshal(toWire(e)) }

// wireEvent is the JSON shape shared by all event variants.
type wireEvent struct {
	Type         EventType `json:"type"`
	Delta        float64   `json:"delta"`
	URL          string    `json:"url,omitempty"`
	PlaybackRate *float64  `json:"playbackRate,omitempty"`
	Time         *float64  `json:"time,omitempty"`
}

func toWire(e Event) wireEvent {
	w := wireEvent{Type: e.Type(), Delta: e.Delta()}
	switch e := e.(type) {
	case SourceChange:
		w.URL = e.URL
	case PlaybackRate:
		rate := e.Rate
		w.PlaybackRate = &rate
	case Seek:
		t := e.TimeSec
		w.Time = &t
	}
	return w
}

// fromWire converts a decoded record into its variant. The record is
// expected to have passed schema validation already.
func fromWire(w wireEvent) (Event, error) {
	switch w.Type {
	case TypeSourceChange:
		return SourceChange{DeltaMs: w.Delta, URL: w.URL}, nil
	case TypePlay:
		return Play{DeltaMs: w.Delta}, nil
	case TypePause:
		return Pause{DeltaMs: w.Delta}, nil
	case TypePlaybackRate:
		if w.PlaybackRate == nil {
			return nil, fmt.Errorf("%s event without playbackRate", w.Type)
		}
		return PlaybackRate{DeltaMs: w.Delta, Rate: *w.PlaybackRate}, nil
	case TypeSeek:
		if w.Time == nil {
			return nil, fmt.Errorf("%s event without time", w.Type)
		}
		return Seek{DeltaMs: w.Delta, TimeSec: *w.Time}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", w.Type)
	}
}

// Describe renders an event in its wire form for log and error messages.
// A nil event is described as the end of the timeline.
func Describe(e Event) string {
	if e == nil {
		return "end of timeline"
	}
	b, err := json.Marshal(toWire(e))
	if err != nil {
		return string(e.Type())
	}
	return string(b)
}
