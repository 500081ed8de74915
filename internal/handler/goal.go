package handler

import (
	"net/http"
	"strconv"

	"github.com/withyou-app/withyou/internal/ctxkeys"
	"github.com/withyou-app/withyou/internal/service"
	"github.com/withyou-app/withyou/internal/validation"
)

type GoalHandler struct {
	goalService *service.GoalService
}

func NewGoalHandler(goalService *service.GoalService) *GoalHandler {
	return &GoalHandler{
		goalService: goalService,
	}
}

func (h *GoalHandler) Current(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	goal, err := h.goalService.Current(userID)
	if err != nil {
		respondWithServiceError(w, r, err, "load goal")
		return
	}

	respondWithJSON(w, http.StatusOK, goal)
}

type startGoalRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *GoalHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	var req startGoalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := validation.ValidateTextLength("Goal name", req.Name, validation.MaxTextLength)
	if err == nil {
		err = validation.ValidateTextLength("Goal description", req.Description, validation.MaxTextLength)
	}
	if err != nil {
		respondWithServiceError(w, r, err, "start goal")
		return
	}

	goal, err := h.goalService.Start(userID, req.Name, req.Description)
	if err != nil {
		respondWithServiceError(w, r, err, "start goal")
		return
	}

	respondWithJSON(w, http.StatusCreated, goal)
}

func (h *GoalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	err := h.goalService.Delete(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, r, err, "delete goal")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *GoalHandler) SubmitProof(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	upload, cleanup, err := readImage(r, "file")
	if err != nil {
		respondWithServiceError(w, r, err, "read proof")
		return
	}
	defer cleanup()

	result, err := h.goalService.SubmitDailyProof(r.Context(), userID, upload)
	if err != nil {
		respondWithServiceError(w, r, err, "submit proof")
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

type milestoneRequest struct {
	Description string `json:"description"`
}

func (h *GoalHandler) SaveMilestone(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	id, ok := milestoneID(w, r)
	if !ok {
		return
	}

	var req milestoneRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := validation.ValidateTextLength("Milestone", req.Description, validation.MaxTextLength)
	if err != nil {
		respondWithServiceError(w, r, err, "save milestone")
		return
	}

	milestone, err := h.goalService.SaveMilestoneDescription(userID, id, req.Description)
	if err != nil {
		respondWithServiceError(w, r, err, "save milestone")
		return
	}

	respondWithJSON(w, http.StatusOK, milestone)
}

func (h *GoalHandler) CompleteMilestone(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	id, ok := milestoneID(w, r)
	if !ok {
		return
	}

	result, err := h.goalService.CompleteMilestone(r.Context(), userID, id)
	if err != nil {
		respondWithServiceError(w, r, err, "complete milestone")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *GoalHandler) Activity(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	items, err := h.goalService.Activity(userID)
	if err != nil {
		respondWithServiceError(w, r, err, "load activity")
		return
	}

	respondWithJSON(w, http.StatusOK, items)
}

type deleteActivityRequest struct {
	Source string `json:"source"`
	ID     string `json:"id"`
}

func (h *GoalHandler) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	var req deleteActivityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ID == "" {
		respondWithError(w, http.StatusBadRequest, "id is required")
		return
	}

	err := h.goalService.DeleteActivity(r.Context(), userID, req.Source, req.ID)
	if err != nil {
		respondWithServiceError(w, r, err, "delete activity")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *GoalHandler) PastGoals(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	goals, err := h.goalService.PastGoals(userID)
	if err != nil {
		respondWithServiceError(w, r, err, "load past goals")
		return
	}

	respondWithJSON(w, http.StatusOK, goals)
}

func (h *GoalHandler) DeletePastGoal(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	err := h.goalService.DeletePastGoal(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, r, err, "delete past goal")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type rankResponse struct {
	Count    int                     `json:"count"`
	Rank     string                  `json:"rank"`
	Achieved string                  `json:"achieved,omitempty"`
	Ranks    []service.RankThreshold `json:"ranks"`
}

// Rank is public: it is a pure function of the count.
func (h *GoalHandler) Rank(w http.ResponseWriter, r *http.Request) {
	count, err := strconv.Atoi(r.URL.Query().Get("count"))
	if err != nil || count < 0 {
		respondWithError(w, http.StatusBadRequest, "count must be a non-negative integer")
		return
	}

	resp := rankResponse{Count: count, Rank: service.Rank(count), Ranks: service.Ranks}
	if achieved, ok := service.RankAchieved(count); ok {
		resp.Achieved = achieved
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func milestoneID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 1 {
		respondWithError(w, http.StatusBadRequest, "Invalid milestone")
		return 0, false
	}
	return id, true
}
