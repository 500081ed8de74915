package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/withyou-app/withyou/internal/metrics"
	"github.com/withyou-app/withyou/internal/model"
	"github.com/withyou-app/withyou/internal/pubsub"
	"github.com/withyou-app/withyou/internal/repository"
)

var (
	ErrFriendSelf           = errors.New("You can't add yourself as a friend.")
	ErrAlreadyFriends       = errors.New("You're already friends.")
	ErrFriendRequestPending = errors.New("Friend request already sent.")
	ErrUserNotFound         = errors.New("User not found.")
)

type FriendService struct {
	friendRepo  repository.FriendRepository
	profileRepo repository.ProfileRepository
	goalRepo    repository.GoalRepository
	mailer      Mailer
	publisher   pubsub.Publisher
	loc         *time.Location
	now         func() time.Time
}

func NewFriendService(
	friendRepo repository.FriendRepository,
	profileRepo repository.ProfileRepository,
	goalRepo repository.GoalRepository,
	mailer Mailer,
	publisher pubsub.Publisher,
	loc *time.Location,
) *FriendService {
	return &FriendService{
		friendRepo:  friendRepo,
		profileRepo: profileRepo,
		goalRepo:    goalRepo,
		mailer:      mailer,
		publisher:   publisher,
		loc:         loc,
		now:         utcNow,
	}
}

func (s *FriendService) SendRequest(ctx context.Context, fromUserID, toUserID string) (*model.FriendRequest, error) {
	if fromUserID == toUserID {
		return nil, ErrFriendSelf
	}

	recipient, err := s.profileRepo.ByUserID(toUserID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	friends, err := s.friendRepo.AreFriends(fromUserID, toUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check friendship: %w", err)
	}
	if friends {
		return nil, ErrAlreadyFriends
	}

	pending, err := s.friendRepo.HasPendingRequest(fromUserID, toUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending requests: %w", err)
	}
	if pending {
		return nil, ErrFriendRequestPending
	}

	req := &model.FriendRequest{
		ID:         uuid.New().String(),
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Status:     model.FriendRequestStatusPending,
		CreatedAt:  s.now(),
	}

	err = s.friendRepo.CreateRequest(req)
	if err != nil {
		return nil, fmt.Errorf("failed to create friend request: %w", err)
	}

	s.publish(req.ID, toUserID)

	if recipient.Email != "" {
		sender, err := s.profileRepo.ByUserID(fromUserID)
		if err != nil && !errors.Is(err, repository.ErrProfileNotFound) {
			slog.Warn("failed to load sender profile", "error", err, "user_id", fromUserID)
		}

		err = s.mailer.SendFriendRequestEmail(ctx, recipient.Email, sender.DisplayName("Someone"))
		if err != nil {
			metrics.NotificationFailures.WithLabelValues("email").Inc()
			slog.Error("failed to send friend request email", "error", err, "user_id", fromUserID, "to", toUserID)
		}
	}

	return req, nil
}

func (s *FriendService) PendingRequests(userID string) ([]*model.FriendRequest, error) {
	requests, err := s.friendRepo.PendingRequests(userID)
	if err != nil {
		return nil, err
	}
	if requests == nil {
		requests = []*model.FriendRequest{}
	}
	return requests, nil
}

// Accept creates the friendship in both directions and consumes the request.
func (s *FriendService) Accept(userID, requestID string) error {
	req, err := s.friendRepo.RequestByID(requestID)
	if err != nil {
		return err
	}
	if req.ToUserID != userID {
		return repository.ErrFriendRequestNotFound
	}

	err = s.friendRepo.Accept(req)
	if err != nil {
		return fmt.Errorf("failed to accept friend request: %w", err)
	}

	s.publish(req.ID, req.FromUserID, req.ToUserID)
	return nil
}

func (s *FriendService) Decline(userID, requestID string) error {
	err := s.friendRepo.DeleteRequest(userID, requestID)
	if err != nil {
		return err
	}

	s.publish(requestID, userID)
	return nil
}

func (s *FriendService) Friends(userID string) ([]*model.Friend, error) {
	friends, err := s.friendRepo.Friends(userID)
	if err != nil {
		return nil, err
	}
	if friends == nil {
		friends = []*model.Friend{}
	}
	return friends, nil
}

// Challengers is the supporter's view of each friend's goal. Milestone
// descriptions are masked for friends who turned sharing off.
func (s *FriendService) Challengers(userID string) ([]model.Challenger, error) {
	friendIDs, err := s.friendRepo.FriendIDs(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load friends: %w", err)
	}

	now := s.now()
	challengers := make([]model.Challenger, 0, len(friendIDs))
	for _, id := range friendIDs {
		profile, err := s.profileRepo.ByUserID(id)
		if errors.Is(err, repository.ErrProfileNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load friend profile: %w", err)
		}

		c := model.Challenger{
			UserID:          id,
			Username:        profile.DisplayName("Unknown User"),
			ShareMilestones: profile.ShareMilestones,
			Milestones:      []model.Milestone{},
			Rank:            Rank(0),
		}

		goal, err := s.goalRepo.ByUserID(id)
		switch {
		case err == nil:
			c.GoalName = goal.Name
			c.LastCompletedAt = goal.LastCompletedAt
			c.DoneToday = goal.CompletedOn(now, s.loc)
			c.HistoryCount = len(goal.History)
			c.Rank = Rank(len(goal.History))
			c.Milestones = maskMilestones(goal.Milestones, profile.ShareMilestones)
		case errors.Is(err, repository.ErrGoalNotFound):
		default:
			return nil, fmt.Errorf("failed to load friend goal: %w", err)
		}

		challengers = append(challengers, c)
	}

	return challengers, nil
}

func maskMilestones(milestones []model.Milestone, share bool) []model.Milestone {
	out := make([]model.Milestone, len(milestones))
	copy(out, milestones)
	if share {
		return out
	}
	for i := range out {
		out[i].Description = model.PlaceholderDescription(out[i].ID)
	}
	return out
}

func (s *FriendService) publish(id string, userIDs ...string) {
	s.publisher.Publish(pubsub.Event{Topic: pubsub.TopicFriend, UserIDs: userIDs, ID: id})
}
