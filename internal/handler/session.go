package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/withyou-app/withyou/internal/ctxkeys"
	"github.com/withyou-app/withyou/internal/metrics"
	"github.com/withyou-app/withyou/internal/session"
)

type SessionHandler struct {
	profiles session.ProfileLoader
	broker   session.Subscriber
}

func NewSessionHandler(profiles session.ProfileLoader, broker session.Subscriber) *SessionHandler {
	return &SessionHandler{
		profiles: profiles,
		broker:   broker,
	}
}

type sessionResponse struct {
	session.State
	Ready           bool `json:"ready"`
	NeedsOnboarding bool `json:"needs_onboarding"`
}

func newSessionResponse(state session.State) sessionResponse {
	return sessionResponse{
		State:           state,
		Ready:           state.Ready(),
		NeedsOnboarding: state.NeedsOnboarding(),
	}
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess := ctxkeys.Session(r.Context())
	if sess == nil {
		respondWithJSON(w, http.StatusOK, newSessionResponse(session.State{IdentityResolved: true, ProfileResolved: true}))
		return
	}

	respondWithJSON(w, http.StatusOK, newSessionResponse(sess.State()))
}

// Stream pushes a new snapshot every time the signed-in user's profile changes.
func (h *SessionHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sess := session.New(ctxkeys.Identity(r.Context()), h.profiles, h.broker)
	defer sess.Close()

	states, stop := sess.Watch()
	defer stop()

	stream, err := newEventStream(w)
	if err != nil {
		slog.Error("failed to open event stream", "error", err, "path", r.URL.Path)
		return
	}

	metrics.LiveStreams.Inc()
	defer metrics.LiveStreams.Dec()

	if stream.Send("session", newSessionResponse(sess.State())) != nil {
		return
	}

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case state, ok := <-states:
			if !ok {
				return
			}
			if stream.Send("session", newSessionResponse(state)) != nil {
				return
			}
		case <-heartbeat.C:
			if stream.Heartbeat() != nil {
				return
			}
		}
	}
}
