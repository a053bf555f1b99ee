package segment

import (
	"fmt"
	"iter"

	"hls-compositor/internal/timeline"
)

// MinLengthMs is the shortest interval that produces a segment. Events
// closer together than this are treated as simultaneous, absorbing
// off-by-one jitter in recorded timestamps.
const MinLengthMs = 10

type playState int8

const (
	playUnknown playState = iota
	playPaused
	playPlaying
)

// sourceState is the playback state accumulated from past events.
type sourceState struct {
	ms      float64
	rate    float64
	url     string
	hasURL  bool
	playing playState
}

type segmenter struct {
	state   sourceState
	prev    timeline.Event
	totalMs float64
}

// Segments returns the lazy sequence of segments for events on an output
// timeline of totalMs milliseconds. Each range over the returned sequence
// starts from fresh state. An error from events, or an interval that needs
// a segment while the play state or source URL is unknown, yields the error
// and ends the sequence.
func Segments(events iter.Seq2[timeline.Event, error], totalMs float64) iter.Seq2[Segment, error] {
	return func(yield func(Segment, error) bool) {
		s := &segmenter{
			state:   sourceState{rate: 1},
			totalMs: totalMs,
		}

		for ev, err := range events {
			if err != nil {
				yield(Segment{}, err)
				return
			}
			seg, ok, err := s.compose(ev)
			if err != nil {
				yield(Segment{}, err)
				return
			}
			if ok && !yield(seg, nil) {
				return
			}
			s.apply(ev)
		}

		// Trailing interval from the last event to the end of the timeline.
		seg, ok, err := s.compose(nil)
		if err != nil {
			yield(Segment{}, err)
			return
		}
		if ok {
			yield(seg, nil)
		}
	}
}

// compose decides whether the interval closed by next warrants a segment.
// A nil next closes the interval at the end of the timeline.
func (s *segmenter) compose(next timeline.Event) (Segment, bool, error) {
	if s.prev == nil {
		return Segment{}, false, nil
	}

	end := s.totalMs
	if next != nil {
		end = next.Delta()
	}
	length := end - s.prev.Delta()
	if length < MinLengthMs {
		return Segment{}, false, nil
	}

	if s.state.playing == playUnknown {
		return Segment{}, false, &UnknownStateError{Missing: "playing state", Pending: next, TimelineMs: end}
	}
	if !s.state.hasURL {
		return Segment{}, false, &UnknownStateError{Missing: "url", Pending: next, TimelineMs: end}
	}

	kind := KindFrozen
	if s.state.playing == playPlaying {
		kind = KindPlayed
	}
	return Segment{
		Kind:       kind,
		SourceURL:  s.state.url,
		SourceMs:   s.state.ms,
		TimelineMs: end,
		LengthMs:   length,
	}, true, nil
}

// apply folds ev into the source state and records it as the previous event.
func (s *segmenter) apply(ev timeline.Event) {
	if s.state.playing == playPlaying && s.prev != nil {
		// Advances at 1x regardless of rate.
		s.state.ms += ev.Delta() - s.prev.Delta()
	}

	switch ev := ev.(type) {
	case timeline.SourceChange:
		// Position carries over from the previous source.
		s.state.url = ev.URL
		s.state.hasURL = true
	case timeline.PlaybackRate:
		s.state.rate = ev.Rate
	case timeline.Seek:
		s.state.ms = ev.TimeSec * 1000
	case timeline.Pause:
		s.state.playing = playPaused
	case timeline.Play:
		s.state.playing = playPlaying
	default:
		panic(fmt.Sprintf("segment: unhandled event %T", ev))
	}
	s.prev = ev
}

// Collect drains seq into a slice, stopping at the first error.
func Collect(seq iter.Seq2[Segment, error]) ([]Segment, error) {
	var out []Segment
	for seg, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, seg)
	}
	return out, nil
}
