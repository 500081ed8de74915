package handler

import (
	"net/http"
	"strconv"

	"github.com/withyou-app/withyou/internal/ctxkeys"
	"github.com/withyou-app/withyou/internal/pubsub"
	"github.com/withyou-app/withyou/internal/repository"
	"github.com/withyou-app/withyou/internal/service"
)

const defaultNotificationLimit = 50

type NotificationHandler struct {
	notificationService *service.NotificationService
	broker              Subscriber
}

func NewNotificationHandler(notificationService *service.NotificationService, broker Subscriber) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		broker:              broker,
	}
}

type notificationFeed struct {
	Notifications any `json:"notifications"`
	Unread        int `json:"unread"`
}

func (h *NotificationHandler) feed(userID string, filter repository.NotificationFilter) (*notificationFeed, error) {
	notifications, err := h.notificationService.Notifications(userID, filter)
	if err != nil {
		return nil, err
	}
	unread, err := h.notificationService.UnreadCount(userID)
	if err != nil {
		return nil, err
	}
	return &notificationFeed{Notifications: notifications, Unread: unread}, nil
}

func notificationFilter(r *http.Request) repository.NotificationFilter {
	q := r.URL.Query()

	filter := repository.NotificationFilter{Limit: defaultNotificationLimit}
	filter.UnreadOnly, _ = strconv.ParseBool(q.Get("unread"))

	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 && limit <= defaultNotificationLimit {
		filter.Limit = limit
	}
	return filter
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	feed, err := h.feed(ctxkeys.UserID(r.Context()), notificationFilter(r))
	if err != nil {
		respondWithServiceError(w, r, err, "load notifications")
		return
	}

	respondWithJSON(w, http.StatusOK, feed)
}

func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID := ctxkeys.UserID(r.Context())
	filter := notificationFilter(r)

	streamQuery(w, r, h.broker, pubsub.Filter{Topics: []pubsub.Topic{pubsub.TopicNotification}, UserID: userID}, "notifications", func() (any, error) {
		return h.feed(userID, filter)
	})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	err := h.notificationService.MarkRead(ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, r, err, "mark notification read")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.notificationService.Delete(ctxkeys.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, r, err, "delete notification")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type deviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.notificationService.RegisterDevice(ctxkeys.UserID(r.Context()), req.Token, req.Platform)
	if err != nil {
		respondWithServiceError(w, r, err, "register device")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) RemoveDevice(w http.ResponseWriter, r *http.Request) {
	err := h.notificationService.RemoveDevice(ctxkeys.UserID(r.Context()), r.PathValue("token"))
	if err != nil {
		respondWithServiceError(w, r, err, "remove device")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
