package timeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"slices"
)

// IgnorableTypes lists event kinds that are recorded alongside playback
// events but carry no playback meaning. Records of these types that fail
// validation are dropped instead of rejected.
var IgnorableTypes = []string{"sync", "cursormove"}

// ErrMalformed is matched by every error that rejects a timeline as a whole.
var ErrMalformed = errors.New("malformed timeline")

// ValidationError reports a record that matches no event shape and is not
// an ignorable kind.
type ValidationError struct {
	Index  int             // position of the record in the input
	Type   string          // the record's type field, empty if absent
	Record json.RawMessage // the offending record
	Err    error           // validation failure
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("timeline event %d %s: %v", e.Index, e.Record, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Is reports whether target is ErrMalformed.
func (e *ValidationError) Is(target error) bool { return target == ErrMalformed }

// IsIgnorable reports whether eventType is on the ignorable allow-list.
func IsIgnorable(eventType string) bool {
	return slices.Contains(IgnorableTypes, eventType)
}

// Normalizer turns raw records into typed events.
type Normalizer struct {
	// Validator checks each record; DefaultValidator is used when nil.
	Validator Validator
	// OnIgnore, if set, is called for every record dropped as ignorable.
	OnIgnore func(index int, eventType string)
}

// Normalize validates records with the default schema validator.
// See Normalizer.Events.
func Normalize(records []json.RawMessage) iter.Seq2[Event, error] {
	var n Normalizer
	return n.Events(records)
}

// Events returns a lazy sequence of typed events in input order. Records of
// an ignorable type that fail validation are skipped. Any other invalid
// record yields a *ValidationError and ends the sequence.
func (n *Normalizer) Events(records []json.RawMessage) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		v := n.Validator
		if v == nil {
			sv, err := DefaultValidator()
			if err != nil {
				yield(nil, err)
				return
			}
			v = sv
		}

		for i, rec := range records {
			ev, err := v.Validate(rec)
			if err == nil {
				if !yield(ev, nil) {
					return
				}
				continue
			}

			typ := recordType(rec)
			if IsIgnorable(typ) {
				if n.OnIgnore != nil {
					n.OnIgnore(i, typ)
				}
				continue
			}
			yield(nil, &ValidationError{Index: i, Type: typ, Record: rec, Err: err})
			return
		}
	}
}

// Events adapts already typed events to the sequence form consumed by the
// segmenter.
func Events(evs ...Event) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for _, ev := range evs {
			if !yield(ev, nil) {
				return
			}
		}
	}
}

// recordType extracts the type field of a record, or "" if the record is
// not an object or the field is not a string.
func recordType(rec json.RawMessage) string {
	var probe struct {
		Type any `json:"type"`
	}
	if err := json.Unmarshal(rec, &probe); err != nil {
		return ""
	}
	s, _ := probe.Type.(string)
	return s
}
