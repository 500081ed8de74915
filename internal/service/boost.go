package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/withyou-app/withyou/internal/model"
	"github.com/withyou-app/withyou/internal/pubsub"
	"github.com/withyou-app/withyou/internal/repository"
	"github.com/withyou-app/withyou/internal/storage"
)

var (
	ErrBoostMessageRequired = errors.New("Please enter a message.")
	ErrBoostTypeInvalid     = errors.New("Boost type must be motivation or congrats.")
	ErrBoostNotFriend       = errors.New("You can only send boosts to friends.")
	ErrBoostSendFailed      = errors.New("Failed to send. Please try again.")
)

type SendBoostInput struct {
	To      string
	Type    string
	Message string
	Image   *Upload
}

type BoostFeed struct {
	Boosts         []*model.Boost `json:"boosts"`
	CompletedToday bool           `json:"completed_today"`
}

type BoostService struct {
	boostRepo  repository.BoostRepository
	goalRepo   repository.GoalRepository
	friendRepo repository.FriendRepository
	storage    storage.Storage
	publisher  pubsub.Publisher
	loc        *time.Location
	now        func() time.Time
}

func NewBoostService(
	boostRepo repository.BoostRepository,
	goalRepo repository.GoalRepository,
	friendRepo repository.FriendRepository,
	storage storage.Storage,
	publisher pubsub.Publisher,
	loc *time.Location,
) *BoostService {
	return &BoostService{
		boostRepo:  boostRepo,
		goalRepo:   goalRepo,
		friendRepo: friendRepo,
		storage:    storage,
		publisher:  publisher,
		loc:        loc,
		now:        utcNow,
	}
}

func (s *BoostService) Send(ctx context.Context, fromUserID string, input SendBoostInput) (*model.Boost, error) {
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, ErrBoostMessageRequired
	}
	if !model.ValidBoostType(input.Type) {
		return nil, ErrBoostTypeInvalid
	}

	friends, err := s.friendRepo.AreFriends(fromUserID, input.To)
	if err != nil {
		return nil, fmt.Errorf("failed to check friendship: %w", err)
	}
	if !friends {
		return nil, ErrBoostNotFriend
	}

	now := s.now()

	var imagePath string
	if input.Image != nil && input.Image.Body != nil {
		imagePath = storage.BoostImagePath(fromUserID, now, input.Type, input.Image.Filename)
		err = s.storage.Save(ctx, imagePath, input.Image.Body, input.Image.ContentType)
		if err != nil {
			slog.Error("failed to upload boost image", "error", err, "user_id", fromUserID, "path", imagePath)
			return nil, ErrBoostSendFailed
		}
	}

	boost := &model.Boost{
		ID:         fmt.Sprintf("%s_%s_%d", fromUserID, input.To, now.UnixMilli()),
		FromUserID: fromUserID,
		ToUserID:   input.To,
		Date:       model.DateKey(now, s.loc),
		Type:       input.Type,
		ImagePath:  imagePath,
		CreatedAt:  now,
	}
	if input.Type == model.BoostTypeMotivation {
		boost.MotivationMessage = message
	} else {
		boost.CongratsMessage = message
	}

	err = s.boostRepo.Create(boost)
	if err != nil {
		if imagePath != "" {
			delErr := s.storage.Delete(ctx, imagePath)
			if delErr != nil {
				slog.Error("failed to delete boost image during cleanup", "error", delErr, "path", imagePath)
			}
		}
		slog.Error("failed to create boost", "error", err, "user_id", fromUserID, "to", input.To)
		return nil, ErrBoostSendFailed
	}

	s.publish(boost.ToUserID, boost.ID)
	s.withImageURLs(boost)
	return boost, nil
}

// ToggleSaved flips the saved flag. Only the recipient may save a boost.
func (s *BoostService) ToggleSaved(userID, id string) (*model.Boost, error) {
	boost, err := s.boostRepo.ByID(id)
	if err != nil {
		return nil, err
	}
	if boost.ToUserID != userID {
		return nil, repository.ErrBoostNotFound
	}

	boost.Saved = !boost.Saved
	err = s.boostRepo.SetSaved(userID, id, boost.Saved)
	if err != nil {
		return nil, fmt.Errorf("failed to save boost: %w", err)
	}

	s.publish(userID, id)
	s.withImageURLs(boost)
	return boost, nil
}

// Feed is the set of boosts relevant to the owner right now: today's and saved
// ones, deduplicated with today's copy winning, filtered by whether today's
// proof is already in.
func (s *BoostService) Feed(userID string) (*BoostFeed, error) {
	now := s.now()

	today, err := s.boostRepo.ForDate(userID, model.DateKey(now, s.loc))
	if err != nil {
		return nil, fmt.Errorf("failed to load today's boosts: %w", err)
	}
	saved, err := s.boostRepo.Saved(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load saved boosts: %w", err)
	}

	completedToday := false
	goal, err := s.goalRepo.ByUserID(userID)
	switch {
	case err == nil:
		completedToday = goal.CompletedOn(now, s.loc)
	case errors.Is(err, repository.ErrGoalNotFound):
	default:
		return nil, fmt.Errorf("failed to load goal: %w", err)
	}

	relevant := RelevantBoosts(today, saved, completedToday)
	s.withImageURLs(relevant...)

	return &BoostFeed{
		Boosts:         relevant,
		CompletedToday: completedToday,
	}, nil
}

// Saved lists every boost the owner kept.
func (s *BoostService) Saved(userID string) ([]*model.Boost, error) {
	boosts, err := s.boostRepo.Saved(userID)
	if err != nil {
		return nil, err
	}
	if boosts == nil {
		boosts = []*model.Boost{}
	}
	s.withImageURLs(boosts...)
	return boosts, nil
}

// withImageURLs resolves download URLs from the stored image keys.
func (s *BoostService) withImageURLs(boosts ...*model.Boost) {
	for _, b := range boosts {
		if b.ImagePath == "" {
			continue
		}
		b.SetImageURL(s.storage.URL(b.ImagePath))
	}
}

func (s *BoostService) publish(userID, id string) {
	s.publisher.Publish(pubsub.Event{Topic: pubsub.TopicBoost, UserIDs: []string{userID}, ID: id})
}

// RelevantBoosts merges today's and saved boosts by id, today's record taking
// precedence, then keeps congrats after completion and motivation before it.
func RelevantBoosts(today, saved []*model.Boost, completedToday bool) []*model.Boost {
	merged := make([]*model.Boost, 0, len(today)+len(saved))
	seen := make(map[string]bool, len(today)+len(saved))

	for _, b := range today {
		if !seen[b.ID] {
			seen[b.ID] = true
			merged = append(merged, b)
		}
	}
	for _, b := range saved {
		if !seen[b.ID] {
			seen[b.ID] = true
			merged = append(merged, b)
		}
	}

	relevant := make([]*model.Boost, 0, len(merged))
	for _, b := range merged {
		if completedToday && b.IsCongrats() {
			relevant = append(relevant, b)
		}
		if !completedToday && b.IsMotivation() {
			relevant = append(relevant, b)
		}
	}
	return relevant
}
