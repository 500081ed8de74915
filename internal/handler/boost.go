package handler

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/withyou-app/withyou/internal/ctxkeys"
	"github.com/withyou-app/withyou/internal/metrics"
	"github.com/withyou-app/withyou/internal/model"
	"github.com/withyou-app/withyou/internal/pubsub"
	"github.com/withyou-app/withyou/internal/service"
	"github.com/withyou-app/withyou/internal/validation"
)

type BoostHandler struct {
	boostService *service.BoostService
	rotator      *service.Rotator
	broker       Subscriber
}

func NewBoostHandler(boostService *service.BoostService, rotator *service.Rotator, broker Subscriber) *BoostHandler {
	return &BoostHandler{
		boostService: boostService,
		rotator:      rotator,
		broker:       broker,
	}
}

func (h *BoostHandler) Feed(w http.ResponseWriter, r *http.Request) {
	feed, err := h.boostService.Feed(ctxkeys.UserID(r.Context()))
	if err != nil {
		respondWithServiceError(w, r, err, "load boosts")
		return
	}

	respondWithJSON(w, http.StatusOK, feed)
}

func (h *BoostHandler) Saved(w http.ResponseWriter, r *http.Request) {
	boosts, err := h.boostService.Saved(ctxkeys.UserID(r.Context()))
	if err != nil {
		respondWithServiceError(w, r, err, "load saved boosts")
		return
	}

	respondWithJSON(w, http.StatusOK, boosts)
}

type sendBoostRequest struct {
	To      string `json:"to"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Send accepts JSON, or a multipart form when a congrats image is attached.
func (h *BoostHandler) Send(w http.ResponseWriter, r *http.Request) {
	var (
		req     sendBoostRequest
		image   *service.Upload
		cleanup = func() {}
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		var err error
		image, cleanup, err = optionalImage(r, "image")
		if err != nil {
			respondWithServiceError(w, r, err, "read boost image")
			return
		}
		req.To = r.FormValue("to")
		req.Type = r.FormValue("type")
		req.Message = r.FormValue("message")
	} else if !decodeJSON(w, r, &req) {
		return
	}
	defer cleanup()

	err := validation.ValidateTextLength("Message", req.Message, validation.MaxTextLength)
	if err != nil {
		respondWithServiceError(w, r, err, "send boost")
		return
	}

	boost, err := h.boostService.Send(r.Context(), ctxkeys.UserID(r.Context()), service.SendBoostInput{
		To:      req.To,
		Type:    req.Type,
		Message: req.Message,
		Image:   image,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "send boost")
		return
	}

	respondWithJSON(w, http.StatusCreated, boost)
}

func (h *BoostHandler) ToggleSaved(w http.ResponseWriter, r *http.Request) {
	boost, err := h.boostService.ToggleSaved(ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, r, err, "save boost")
		return
	}

	respondWithJSON(w, http.StatusOK, boost)
}

// RotationStream drives the boost carousel: the rotator gets a fresh set
// whenever the owner's boosts or goal change, and each frame goes out as a
// "rotation" event.
func (h *BoostHandler) RotationStream(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	events, cancel := h.broker.Subscribe(pubsub.Filter{
		Topics: []pubsub.Topic{pubsub.TopicBoost, pubsub.TopicGoal},
		UserID: userID,
	})
	defer cancel()

	stream, err := newEventStream(w)
	if err != nil {
		slog.Error("failed to open event stream", "error", err, "path", r.URL.Path)
		return
	}

	metrics.LiveStreams.Inc()
	defer metrics.LiveStreams.Dec()

	ctx, stop := context.WithCancel(r.Context())
	defer stop()

	sets := make(chan []*model.Boost, 1)
	frames := make(chan service.RotationFrame)
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.rotator.Run(ctx, sets, frames)
	}()
	defer func() {
		stop()
		<-done
	}()

	load := func() bool {
		feed, err := h.boostService.Feed(userID)
		if err != nil {
			slog.Error("failed to load boosts", "error", err, "user_id", userID)
			return stream.Send("error", map[string]string{"error": "Failed to refresh. Please reload."}) == nil
		}
		// Only this goroutine writes to sets, so after draining the send cannot block.
		select {
		case <-sets:
		default:
		}
		sets <- feed.Boosts
		return true
	}

	if !load() {
		return
	}

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok || !load() {
				return
			}
		case frame := <-frames:
			if stream.Send("rotation", frame) != nil {
				return
			}
		case <-heartbeat.C:
			if stream.Heartbeat() != nil {
				return
			}
		}
	}
}
