package compositor

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"hls-compositor/internal/platform/metrics"
	"hls-compositor/internal/segment"
	"hls-compositor/internal/timeline"

	"github.com/go-chi/chi/v5"
)

const defaultMaxBodyBytes = 1 << 20

// Handler exposes compositor HTTP endpoints using go-chi.
type Handler struct {
	svc          *Service
	log          *slog.Logger
	metrics      *metrics.Metrics
	maxBodyBytes int64
}

// NewHandler returns a Handler that uses the given Service, Logger, and optional Metrics.
// Metrics may be nil to disable metric recording (e.g. in tests).
// Request bodies larger than maxBodyBytes are rejected; <= 0 selects 1 MiB.
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics, maxBodyBytes int64) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &Handler{svc: svc, log: log, metrics: m, maxBodyBytes: maxBodyBytes}
}

// Routes mounts the compositor endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/compose", h.Compose)
	r.Post("/timelines", h.CreateTimeline)
	r.Route("/timelines/{timeline_id}", func(r chi.Router) {
		r.Post("/events", h.AppendEvents)
		r.Post("/end", h.SealTimeline)
		r.Get("/segments", h.GetSegments)
		r.Delete("/", h.DeleteTimeline)
	})
}

type segmentsResponse struct {
	Segments []segment.Segment `json:"segments"`
	Summary  segment.Summary   `json:"summary"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Compose handles POST /compose.
// Body: { "durationMs": 60000, "events": [ { "type": "play", "delta": 0 }, ... ] }.
func (h *Handler) Compose(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.readDocument(w, r)
	if !ok {
		return
	}

	segs, err := h.svc.Compose(doc)
	h.writeSegments(w, "", segs, err)
}

// CreateTimeline handles POST /timelines.
func (h *Handler) CreateTimeline(w http.ResponseWriter, r *http.Request) {
	id := h.svc.CreateTimeline()
	h.log.Info("timeline created", slog.String("timeline_id", string(id)))
	writeJSON(w, http.StatusCreated, map[string]string{"id": string(id)})
}

// AppendEvents handles POST /timelines/{timeline_id}/events.
// Body: an array of event records, or { "events": [...] }.
func (h *Handler) AppendEvents(w http.ResponseWriter, r *http.Request) {
	id := TimelineID(chi.URLParam(r, "timeline_id"))
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	doc, ok := h.readDocument(w, r)
	if !ok {
		return
	}

	if err := h.svc.AppendEvents(id, doc.Events); err != nil {
		if errors.Is(err, ErrTimelineSealed) {
			h.log.Info("events rejected timeline sealed",
				slog.String("timeline_id", string(id)),
				slog.Int("events", len(doc.Events)))
			writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
			return
		}
		h.log.Error("append events failed", slog.String("timeline_id", string(id)), slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	h.log.Debug("events appended",
		slog.String("timeline_id", string(id)),
		slog.Int("events", len(doc.Events)))
	w.WriteHeader(http.StatusCreated)
}

// SealTimeline handles POST /timelines/{timeline_id}/end.
// Body: { "durationMs": 60000 }.
func (h *Handler) SealTimeline(w http.ResponseWriter, r *http.Request) {
	id := TimelineID(chi.URLParam(r, "timeline_id"))
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var body struct {
		DurationMs *float64 `json:"durationMs"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes)).Decode(&body); err != nil || body.DurationMs == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "durationMs is required"})
		return
	}

	switch err := h.svc.SealTimeline(id, *body.DurationMs); {
	case err == nil:
	case errors.Is(err, ErrTimelineNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, ErrTimelineSealed):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	default:
		h.log.Error("seal timeline failed", slog.String("timeline_id", string(id)), slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	h.log.Info("timeline sealed",
		slog.String("timeline_id", string(id)),
		slog.Float64("duration_ms", *body.DurationMs))
	w.WriteHeader(http.StatusOK)
}

// GetSegments handles GET /timelines/{timeline_id}/segments.
func (h *Handler) GetSegments(w http.ResponseWriter, r *http.Request) {
	id := TimelineID(chi.URLParam(r, "timeline_id"))
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	segs, err := h.svc.Segments(id)
	switch {
	case errors.Is(err, ErrTimelineNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, ErrTimelineNotSealed):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	}
	h.writeSegments(w, id, segs, err)
}

// DeleteTimeline handles DELETE /timelines/{timeline_id}.
func (h *Handler) DeleteTimeline(w http.ResponseWriter, r *http.Request) {
	id := TimelineID(chi.URLParam(r, "timeline_id"))
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.svc.DeleteTimeline(id); err != nil {
		h.log.Error("delete timeline failed", slog.String("timeline_id", string(id)), slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	h.log.Info("timeline deleted", slog.String("timeline_id", string(id)))
	w.WriteHeader(http.StatusNoContent)
}

// readDocument decodes a timeline document from the request body, writing
// a 400 response and returning false if it cannot be read.
func (h *Handler) readDocument(w http.ResponseWriter, r *http.Request) (timeline.Document, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: err.Error()})
			return timeline.Document{}, false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return timeline.Document{}, false
	}

	doc, err := timeline.ParseDocument(data, timeline.FormatJSON)
	if err != nil {
		h.log.Debug("invalid timeline body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return timeline.Document{}, false
	}
	return doc, true
}

// writeSegments renders the result of a pipeline run, mapping malformed
// timelines to 422.
func (h *Handler) writeSegments(w http.ResponseWriter, id TimelineID, segs []segment.Segment, err error) {
	if err != nil {
		if errors.Is(err, timeline.ErrMalformed) {
			h.log.Info("timeline rejected",
				slog.String("timeline_id", string(id)),
				slog.String("error", err.Error()))
			if h.metrics != nil {
				h.metrics.IncTimelinesRejected()
			}
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
			return
		}
		h.log.Error("compose failed", slog.String("timeline_id", string(id)), slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if segs == nil {
		segs = []segment.Segment{}
	}
	sum := segment.Summarize(segs)
	if h.metrics != nil {
		h.metrics.IncTimelinesComposed()
		h.metrics.AddSegments(string(segment.KindFrozen), sum.Frozen)
		h.metrics.AddSegments(string(segment.KindPlayed), sum.Played)
	}
	h.log.Debug("timeline composed",
		slog.String("timeline_id", string(id)),
		slog.Int("segments", sum.Segments))
	writeJSON(w, http.StatusOK, segmentsResponse{Segments: segs, Summary: sum})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
