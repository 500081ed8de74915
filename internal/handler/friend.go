package handler

import (
	"net/http"

	"github.com/withyou-app/withyou/internal/ctxkeys"
	"github.com/withyou-app/withyou/internal/service"
)

type FriendHandler struct {
	friendService *service.FriendService
}

func NewFriendHandler(friendService *service.FriendService) *FriendHandler {
	return &FriendHandler{
		friendService: friendService,
	}
}

func (h *FriendHandler) Friends(w http.ResponseWriter, r *http.Request) {
	friends, err := h.friendService.Friends(ctxkeys.UserID(r.Context()))
	if err != nil {
		respondWithServiceError(w, r, err, "load friends")
		return
	}

	respondWithJSON(w, http.StatusOK, friends)
}

// Challengers lists friends with their goal progress, for the supporter's dashboard.
func (h *FriendHandler) Challengers(w http.ResponseWriter, r *http.Request) {
	challengers, err := h.friendService.Challengers(ctxkeys.UserID(r.Context()))
	if err != nil {
		respondWithServiceError(w, r, err, "load challengers")
		return
	}

	respondWithJSON(w, http.StatusOK, challengers)
}

func (h *FriendHandler) Requests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.friendService.PendingRequests(ctxkeys.UserID(r.Context()))
	if err != nil {
		respondWithServiceError(w, r, err, "load friend requests")
		return
	}

	respondWithJSON(w, http.StatusOK, requests)
}

type friendRequestBody struct {
	To string `json:"to"`
}

func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	var req friendRequestBody
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.To == "" {
		respondWithError(w, http.StatusBadRequest, "to is required")
		return
	}

	request, err := h.friendService.SendRequest(r.Context(), ctxkeys.UserID(r.Context()), req.To)
	if err != nil {
		respondWithServiceError(w, r, err, "send friend request")
		return
	}

	respondWithJSON(w, http.StatusCreated, request)
}

func (h *FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	err := h.friendService.Accept(ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, r, err, "accept friend request")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *FriendHandler) Decline(w http.ResponseWriter, r *http.Request) {
	err := h.friendService.Decline(ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, r, err, "decline friend request")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
