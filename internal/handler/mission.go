package handler

import (
	"net/http"
	"time"

	"github.com/withyou-app/withyou/internal/ctxkeys"
	"github.com/withyou-app/withyou/internal/pubsub"
	"github.com/withyou-app/withyou/internal/service"
	"github.com/withyou-app/withyou/internal/validation"
)

type MissionHandler struct {
	missionService *service.MissionService
	broker         Subscriber
}

func NewMissionHandler(missionService *service.MissionService, broker Subscriber) *MissionHandler {
	return &MissionHandler{
		missionService: missionService,
		broker:         broker,
	}
}

func (h *MissionHandler) Board(w http.ResponseWriter, r *http.Request) {
	board, err := h.missionService.Board(ctxkeys.UserID(r.Context()))
	if err != nil {
		respondWithServiceError(w, r, err, "load missions")
		return
	}

	respondWithJSON(w, http.StatusOK, board)
}

func (h *MissionHandler) Sent(w http.ResponseWriter, r *http.Request) {
	sent, err := h.missionService.Sent(ctxkeys.UserID(r.Context()))
	if err != nil {
		respondWithServiceError(w, r, err, "load sent missions")
		return
	}

	respondWithJSON(w, http.StatusOK, sent)
}

type sendMissionRequest struct {
	To          string `json:"to"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Deadline    string `json:"deadline"`
	Reward      string `json:"reward"`
}

// parseDeadline accepts a calendar date or a full timestamp. A blank value
// yields the zero time, which the service rejects.
func parseDeadline(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (h *MissionHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendMissionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	deadline, ok := parseDeadline(req.Deadline)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid deadline")
		return
	}

	for _, field := range []struct{ name, value string }{
		{"Title", req.Title},
		{"Description", req.Description},
		{"Reward", req.Reward},
	} {
		err := validation.ValidateTextLength(field.name, field.value, validation.MaxTextLength)
		if err != nil {
			respondWithServiceError(w, r, err, "send mission")
			return
		}
	}

	mission, err := h.missionService.Send(r.Context(), ctxkeys.UserID(r.Context()), service.SendMissionInput{
		To:          req.To,
		Title:       req.Title,
		Description: req.Description,
		Deadline:    deadline,
		Reward:      req.Reward,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "send mission")
		return
	}

	respondWithJSON(w, http.StatusCreated, mission)
}

func (h *MissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.missionService.Mission(ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, r, err, "load mission")
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

func (h *MissionHandler) Accept(w http.ResponseWriter, r *http.Request) {
	mission, err := h.missionService.Accept(r.Context(), ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, r, err, "accept mission")
		return
	}

	respondWithJSON(w, http.StatusOK, mission)
}

func (h *MissionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	err := h.missionService.Reject(r.Context(), ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, r, err, "reject mission")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *MissionHandler) Proof(w http.ResponseWriter, r *http.Request) {
	upload, cleanup, err := readImage(r, "file")
	if err != nil {
		respondWithServiceError(w, r, err, "read mission proof")
		return
	}
	defer cleanup()

	mission, err := h.missionService.SubmitProof(r.Context(), ctxkeys.UserID(r.Context()), r.PathValue("id"), upload)
	if err != nil {
		respondWithServiceError(w, r, err, "submit mission proof")
		return
	}

	respondWithJSON(w, http.StatusOK, mission)
}

func (h *MissionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	mission, err := h.missionService.Approve(r.Context(), ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, r, err, "approve mission")
		return
	}

	respondWithJSON(w, http.StatusOK, mission)
}

func (h *MissionHandler) Deny(w http.ResponseWriter, r *http.Request) {
	mission, err := h.missionService.Deny(r.Context(), ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, r, err, "deny mission")
		return
	}

	respondWithJSON(w, http.StatusOK, mission)
}

// Stream pushes the board and the sent list whenever a mission involving
// the user changes.
func (h *MissionHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())
	filter := pubsub.Filter{Topics: []pubsub.Topic{pubsub.TopicMission}, UserID: userID}

	streamQuery(w, r, h.broker, filter, "missions", func() (any, error) {
		board, err := h.missionService.Board(userID)
		if err != nil {
			return nil, err
		}
		sent, err := h.missionService.Sent(userID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"board": board, "sent": sent}, nil
	})
}
