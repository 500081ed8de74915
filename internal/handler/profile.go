package handler

import (
	"net/http"

	"github.com/withyou-app/withyou/internal/ctxkeys"
	"github.com/withyou-app/withyou/internal/model"
	"github.com/withyou-app/withyou/internal/service"
)

type ProfileHandler struct {
	profileService *service.ProfileService
}

func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
	}
}

type onboardRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (h *ProfileHandler) Onboard(w http.ResponseWriter, r *http.Request) {
	identity := ctxkeys.Identity(r.Context())

	var req onboardRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.profileService.Onboard(identity, req.Username, req.Role)
	if err != nil {
		respondWithServiceError(w, r, err, "complete onboarding")
		return
	}

	respondWithJSON(w, http.StatusOK, profile)
}

type usernameRequest struct {
	Username string `json:"username"`
}

func (h *ProfileHandler) UpdateUsername(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	var req usernameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.profileService.UpdateUsername(userID, req.Username)
	if err != nil {
		respondWithServiceError(w, r, err, "update username")
		return
	}

	h.respondWithProfile(w, r, userID)
}

type privacyRequest struct {
	ShareMilestones *bool `json:"share_milestones"`
}

func (h *ProfileHandler) UpdatePrivacy(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	var req privacyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ShareMilestones == nil {
		respondWithError(w, http.StatusBadRequest, "share_milestones is required")
		return
	}

	err := h.profileService.SetShareMilestones(userID, *req.ShareMilestones)
	if err != nil {
		respondWithServiceError(w, r, err, "update privacy")
		return
	}

	h.respondWithProfile(w, r, userID)
}

func (h *ProfileHandler) respondWithProfile(w http.ResponseWriter, r *http.Request, userID string) {
	profile, err := h.profileService.ByUserID(userID)
	if err != nil {
		respondWithServiceError(w, r, err, "load profile")
		return
	}
	respondWithJSON(w, http.StatusOK, profile)
}

// publicUser is what other users may see of a profile.
type publicUser struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	PhotoURL string `json:"photo_url,omitempty"`
}

func toPublicUsers(profiles []*model.Profile) []publicUser {
	users := make([]publicUser, 0, len(profiles))
	for _, p := range profiles {
		users = append(users, publicUser{
			UserID:   p.UserID,
			Username: p.Username,
			Role:     p.Role,
			PhotoURL: p.PhotoURL,
		})
	}
	return users
}

func (h *ProfileHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())

	profiles, err := h.profileService.Search(userID, r.URL.Query().Get("q"))
	if err != nil {
		respondWithServiceError(w, r, err, "search users")
		return
	}

	respondWithJSON(w, http.StatusOK, toPublicUsers(profiles))
}
