package routes

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/withyou-app/withyou/internal/app"
	"github.com/withyou-app/withyou/internal/handler"
	"github.com/withyou-app/withyou/internal/middleware"
)

// SetupRoutes builds the HTTP surface. The returned rate limiter is handed
// back so the caller can prune idle visitors.
func SetupRoutes(app *app.App) (http.Handler, *middleware.RateLimiter) {
	// Handlers
	health := handler.NewHealthHandler(app.DB)
	session := handler.NewSessionHandler(app.ProfileRepository, app.Broker)
	profile := handler.NewProfileHandler(app.ProfileService)
	goal := handler.NewGoalHandler(app.GoalService)
	boost := handler.NewBoostHandler(app.BoostService, app.Rotator, app.Broker)
	mission := handler.NewMissionHandler(app.MissionService, app.Broker)
	notification := handler.NewNotificationHandler(app.NotificationService, app.Broker)
	friend := handler.NewFriendHandler(app.FriendService)

	rateLimiter := middleware.NewRateLimiter(app.Cfg.RateLimitRPS, app.Cfg.RateLimitBurst)
	uploadLimiter := middleware.NewRateLimiter(app.Cfg.UploadRateLimitRPS, 3)

	// Shorthands
	authed := middleware.RequireAuth
	ready := middleware.RequireProfile
	upload := func(h http.HandlerFunc) http.HandlerFunc {
		return ready(uploadLimiter.Limit(h))
	}

	mux := http.NewServeMux()

	// ============================================================================
	// OPERATIONS
	// ============================================================================

	mux.HandleFunc("GET /healthz", health.Check)
	mux.Handle("GET /metrics", middleware.BasicAuth(app.Cfg.MetricsUser, app.Cfg.MetricsPass)(promhttp.Handler()))

	// ============================================================================
	// SESSION & ONBOARDING (identity only)
	// ============================================================================

	mux.HandleFunc("GET /api/session", session.Get)
	mux.HandleFunc("GET /api/session/stream", authed(session.Stream))
	mux.HandleFunc("POST /api/onboarding", authed(profile.Onboard))

	// Rank thresholds are public
	mux.HandleFunc("GET /api/rank", goal.Rank)

	// ============================================================================
	// PROTECTED ROUTES (onboarded profile)
	// ============================================================================

	// Profile
	mux.HandleFunc("PATCH /api/profile/username", ready(profile.UpdateUsername))
	mux.HandleFunc("PATCH /api/profile/privacy", ready(profile.UpdatePrivacy))
	mux.HandleFunc("GET /api/users/search", ready(profile.Search))

	// Devices
	mux.HandleFunc("POST /api/devices", ready(notification.RegisterDevice))
	mux.HandleFunc("DELETE /api/devices/{token}", ready(notification.RemoveDevice))

	// Goal
	mux.HandleFunc("GET /api/goal", ready(goal.Current))
	mux.HandleFunc("POST /api/goal", ready(goal.Start))
	mux.HandleFunc("DELETE /api/goal", ready(goal.Delete))
	mux.HandleFunc("POST /api/goal/proofs", upload(goal.SubmitProof))
	mux.HandleFunc("PATCH /api/goal/milestones/{id}", ready(goal.SaveMilestone))
	mux.HandleFunc("POST /api/goal/milestones/{id}/complete", ready(goal.CompleteMilestone))
	mux.HandleFunc("GET /api/goal/activity", ready(goal.Activity))
	mux.HandleFunc("DELETE /api/goal/activity", ready(goal.DeleteActivity))
	mux.HandleFunc("GET /api/goal/past", ready(goal.PastGoals))
	mux.HandleFunc("DELETE /api/goal/past/{id}", ready(goal.DeletePastGoal))

	// Boosts
	mux.HandleFunc("GET /api/boosts/feed", ready(boost.Feed))
	mux.HandleFunc("GET /api/boosts/saved", ready(boost.Saved))
	mux.HandleFunc("POST /api/boosts", upload(boost.Send))
	mux.HandleFunc("POST /api/boosts/{id}/save", ready(boost.ToggleSaved))
	mux.HandleFunc("GET /api/boosts/rotation/stream", ready(boost.RotationStream))

	// Missions
	mux.HandleFunc("GET /api/missions/board", ready(mission.Board))
	mux.HandleFunc("GET /api/missions/sent", ready(mission.Sent))
	mux.HandleFunc("GET /api/missions/stream", ready(mission.Stream))
	mux.HandleFunc("POST /api/missions", ready(mission.Send))
	mux.HandleFunc("GET /api/missions/{id}", ready(mission.Get))
	mux.HandleFunc("POST /api/missions/{id}/accept", ready(mission.Accept))
	mux.HandleFunc("POST /api/missions/{id}/reject", ready(mission.Reject))
	mux.HandleFunc("POST /api/missions/{id}/proof", upload(mission.Proof))
	mux.HandleFunc("POST /api/missions/{id}/approve", ready(mission.Approve))
	mux.HandleFunc("POST /api/missions/{id}/deny", ready(mission.Deny))

	// Notifications
	mux.HandleFunc("GET /api/notifications", ready(notification.List))
	mux.HandleFunc("GET /api/notifications/stream", ready(notification.Stream))
	mux.HandleFunc("POST /api/notifications/{id}/read", ready(notification.MarkRead))
	mux.HandleFunc("DELETE /api/notifications/{id}", ready(notification.Delete))

	// Friends
	mux.HandleFunc("GET /api/friends", ready(friend.Friends))
	mux.HandleFunc("GET /api/friends/challengers", ready(friend.Challengers))
	mux.HandleFunc("GET /api/friends/requests", ready(friend.Requests))
	mux.HandleFunc("POST /api/friends/requests", ready(friend.SendRequest))
	mux.HandleFunc("POST /api/friends/requests/{id}/accept", ready(friend.Accept))
	mux.HandleFunc("DELETE /api/friends/requests/{id}", ready(friend.Decline))

	cors := handlers.CORS(
		handlers.AllowedOrigins(app.Cfg.CORSAllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", "X-Request-ID"}),
		handlers.ExposedHeaders([]string{"X-Request-ID", "Retry-After"}),
	)

	// Global middleware - executed in order (top to bottom)
	h := middleware.Chain(
		mux,
		cors,
		middleware.RequestLogging,
		middleware.AuthMiddleware(app.AuthService, app.ProfileRepository, app.Broker),
		rateLimiter.Middleware, // After auth so signed-in users are limited by id
		middleware.Monitor,     // Last: reads the pattern the mux matched
	)

	return h, rateLimiter
}
