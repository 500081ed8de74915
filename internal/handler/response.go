package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/withyou-app/withyou/internal/ctxkeys"
	"github.com/withyou-app/withyou/internal/repository"
	"github.com/withyou-app/withyou/internal/service"
	"github.com/withyou-app/withyou/internal/validation"
)

const maxJSONBody = 1 << 20

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

var (
	badRequestErrors = []error{
		service.ErrGoalFieldsRequired,
		service.ErrProofRequired,
		service.ErrMissionFieldsRequired,
		service.ErrBoostMessageRequired,
		service.ErrBoostTypeInvalid,
		service.ErrOnboardingUsername,
		service.ErrRoleInvalid,
		service.ErrDeviceTokenRequired,
		service.ErrFriendSelf,
		validation.ErrUsernameRequired,
		validation.ErrUsernameTooLong,
		validation.ErrUsernameInvalid,
		validation.ErrFileRequired,
		validation.ErrInvalidFile,
	}
	forbiddenErrors = []error{
		service.ErrNotMissionParty,
		service.ErrMissionNotFriend,
		service.ErrBoostNotFriend,
	}
	notFoundErrors = []error{
		repository.ErrGoalNotFound,
		repository.ErrMilestoneNotFound,
		repository.ErrHistoryNotFound,
		repository.ErrPastGoalNotFound,
		repository.ErrMissionNotFound,
		repository.ErrBoostNotFound,
		repository.ErrNotificationNotFound,
		repository.ErrFriendRequestNotFound,
		repository.ErrProfileNotFound,
		service.ErrUserNotFound,
	}
	conflictErrors = []error{
		service.ErrNoActiveGoal,
		service.ErrAlreadyDoneToday,
		service.ErrMilestoneLocked,
		service.ErrInvalidTransition,
		service.ErrAlreadyFriends,
		service.ErrFriendRequestPending,
	}
	// Backend failures whose message is already written for the user.
	userFacingFailures = []error{
		service.ErrProofUpload,
		service.ErrMissionProofUpload,
		service.ErrBoostSendFailed,
	}
)

func matches(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// respondWithServiceError maps a service or repository error to a status code.
// Unknown errors are logged and hidden behind a generic message.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	var lengthErr *validation.LengthError

	switch {
	case matches(err, badRequestErrors):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &lengthErr):
		respondWithError(w, http.StatusBadRequest, lengthErr.Error())
	case matches(err, forbiddenErrors):
		respondWithError(w, http.StatusForbidden, err.Error())
	case matches(err, notFoundErrors):
		respondWithError(w, http.StatusNotFound, "Not found")
	case matches(err, conflictErrors):
		respondWithError(w, http.StatusConflict, err.Error())
	case matches(err, userFacingFailures):
		respondWithError(w, http.StatusInternalServerError, err.Error())
	default:
		slog.Error("failed to "+action, "error", err,
			"user_id", ctxkeys.UserID(r.Context()),
			"request_id", ctxkeys.RequestID(r.Context()),
		)
		respondWithError(w, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
}
