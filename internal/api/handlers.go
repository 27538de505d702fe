// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/swaggo/swag"

	"disasterfeed/internal/config"
	"disasterfeed/internal/eventlog"
	"disasterfeed/internal/logging"
	"disasterfeed/internal/metrics"
	"disasterfeed/internal/models"
	"disasterfeed/internal/sse"
)

// Handler groups the Query API's dependencies.
type Handler struct {
	store    Store
	hub      *sse.Hub
	validate *validator.Validate
	cfg      *config.Config
}

// Running answers GET / with a plain-text liveness banner.
func (h *Handler) Running(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Running"))
}

type pingResponse struct {
	OK        bool  `json:"ok"`
	Timestamp int64 `json:"timestamp"`
}

// Ping answers GET /api/health/ping.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pingResponse{OK: true, Timestamp: time.Now().UnixMilli()})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Warn().Err(err).Msg("api: failed to encode response body")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// eventsQuery is the validated shape of GET /events's query parameters.
// Limit's upper bound comes from config rather than a struct tag since
// api.max_limit is operator-configurable; Kind and Source only need a
// non-negative-enum check, which the validator tag handles.
type eventsQuery struct {
	Limit  int `validate:"min=1"`
	Kind   int `validate:"min=0"`
	Source int `validate:"min=0"`
}

func (h *Handler) parseEventsQuery(r *http.Request) (eventsQuery, error) {
	q := r.URL.Query()

	limit := h.cfg.API.DefaultLimit
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return eventsQuery{}, fmt.Errorf("limit must be an integer")
		}
		limit = v
	}

	kind := 0
	if raw := q.Get("kind"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return eventsQuery{}, fmt.Errorf("kind must be an integer")
		}
		kind = v
	}

	source := 0
	if raw := q.Get("source"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return eventsQuery{}, fmt.Errorf("source must be an integer")
		}
		source = v
	}

	parsed := eventsQuery{Limit: limit, Kind: kind, Source: source}
	if err := h.validate.Struct(parsed); err != nil {
		return eventsQuery{}, err
	}
	if parsed.Limit > h.cfg.API.MaxLimit {
		return eventsQuery{}, fmt.Errorf("limit must be <= %d", h.cfg.API.MaxLimit)
	}
	return parsed, nil
}

// ListEvents answers GET /events?limit&kind&source.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	query, err := h.parseEventsQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid query parameters: "+err.Error())
		return
	}

	events, err := h.store.List(r.Context(), eventlog.ListFilter{
		Source: models.Source(query.Source),
		Kind:   models.Kind(query.Kind),
		Limit:  query.Limit,
	})
	if err != nil {
		logging.CtxErr(r.Context(), err).Msg("api: list events failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if events == nil {
		events = []*models.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// StreamEvents answers GET /events/stream?since=<iso-datetime> with a
// text/event-stream response: an optional catch-up replay, then live
// frames as they're broadcast, interleaved with a 15s heartbeat.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	var since *time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be an RFC3339 timestamp")
			return
		}
		since = &t
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.hub.AddClient()
	defer h.hub.RemoveClient(sub)

	if err := h.hub.CatchUp(r.Context(), w, flusher, since); err != nil {
		logging.CtxWarn(r.Context()).Err(err).Msg("api: sse catch-up failed")
	}

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, ok := <-sub.Frames():
			if !ok {
				return
			}
			if err := sse.WriteFrame(w, frame); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := w.Write([]byte("event: ping\ndata: keep-alive\n\n")); err != nil {
				return
			}
			flusher.Flush()
			metrics.SSEFramesSent.WithLabelValues("ping").Inc()
		}
	}
}

// OpenAPIJSON answers GET /api/docs with the rendered OpenAPI document.
func (h *Handler) OpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc("swagger")
	if err != nil {
		logging.CtxErr(r.Context(), err).Msg("api: failed to render OpenAPI document")
		writeError(w, http.StatusInternalServerError, "documentation unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}
