package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/withyou-app/withyou/internal/metrics"
	"github.com/withyou-app/withyou/internal/pubsub"
)

const sseHeartbeat = 25 * time.Second

// eventStream writes Server-Sent Events to a single client.
type eventStream struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func newEventStream(w http.ResponseWriter) (*eventStream, error) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// Streams outlive the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	err := rc.Flush()
	if err != nil {
		return nil, fmt.Errorf("streaming unsupported: %w", err)
	}
	return &eventStream{w: w, rc: rc}, nil
}

func (s *eventStream) Send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data)
	if err != nil {
		return err
	}
	return s.rc.Flush()
}

func (s *eventStream) Heartbeat() error {
	_, err := fmt.Fprint(s.w, ": ping\n\n")
	if err != nil {
		return err
	}
	return s.rc.Flush()
}

// Subscriber is the read side of the event broker.
type Subscriber interface {
	Subscribe(filter pubsub.Filter) (<-chan pubsub.Event, func())
}

// streamQuery pushes load's result once, then again after every matching
// event, until the client goes away.
func streamQuery(w http.ResponseWriter, r *http.Request, broker Subscriber, filter pubsub.Filter, event string, load func() (any, error)) {
	events, cancel := broker.Subscribe(filter)
	defer cancel()

	stream, err := newEventStream(w)
	if err != nil {
		slog.Error("failed to open event stream", "error", err, "path", r.URL.Path)
		return
	}

	metrics.LiveStreams.Inc()
	defer metrics.LiveStreams.Dec()

	push := func() bool {
		payload, err := load()
		if err != nil {
			slog.Error("failed to load stream data", "error", err, "event", event, "user_id", filter.UserID)
			return stream.Send("error", map[string]string{"error": "Failed to refresh. Please reload."}) == nil
		}
		return stream.Send(event, payload) == nil
	}

	if !push() {
		return
	}

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			if !push() {
				return
			}
		case <-heartbeat.C:
			if stream.Heartbeat() != nil {
				return
			}
		}
	}
}
