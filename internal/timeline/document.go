package timeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies the encoding of a timeline document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the document format from a file extension,
// defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Document is a recorded timeline: the raw event records and the total
// length of the output timeline.
//
// The encoded form is either an object {"durationMs": ..., "events": [...]}
// or a bare array of events, in which case DurationMs is zero.
type Document struct {
	DurationMs float64           `json:"durationMs"`
	Events     []json.RawMessage `json:"events"`
}

// ParseDocument decodes a timeline document. YAML input is converted to
// its JSON equivalent so records are validated the same way in both formats.
func ParseDocument(data []byte, format Format) (Document, error) {
	if format == FormatYAML {
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return Document{}, fmt.Errorf("parse yaml timeline: %w", err)
		}
		b, err := json.Marshal(v)
		if err != nil {
			return Document{}, fmt.Errorf("convert yaml timeline: %w", err)
		}
		data = b
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Document{}, errors.New("empty timeline document")
	}

	var doc Document
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &doc.Events); err != nil {
			return Document{}, fmt.Errorf("parse timeline events: %w", err)
		}
	case '{':
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return Document{}, fmt.Errorf("parse timeline document: %w", err)
		}
	default:
		return Document{}, errors.New("timeline document must be an object or an array of events")
	}
	return doc, nil
}
