package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/withyou-app/withyou/internal/metrics"
	"github.com/withyou-app/withyou/internal/model"
	"github.com/withyou-app/withyou/internal/pubsub"
	"github.com/withyou-app/withyou/internal/repository"
	"github.com/withyou-app/withyou/internal/storage"
)

var (
	ErrGoalFieldsRequired = errors.New("Goal name and description cannot be empty.")
	ErrNoActiveGoal       = errors.New("You need an active goal to submit proof.")
	ErrAlreadyDoneToday   = errors.New("You already completed today's goal.")
	ErrProofRequired      = errors.New("Please select a photo first.")
	ErrProofUpload        = errors.New("Failed to upload proof. Please try again.")
	ErrMilestoneLocked    = errors.New("Completed milestones can't be edited.")
)

// Upload is a validated file ready for the blob store.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type GoalView struct {
	*model.Goal
	Rank           string `json:"rank"`
	CompletedToday bool   `json:"completed_today"`
	Streak         int    `json:"streak"`
}

type ProofResult struct {
	Entry        model.ProofEntry `json:"entry"`
	HistoryCount int              `json:"history_count"`
	Rank         string           `json:"rank"`
	RankAchieved string           `json:"rank_achieved,omitempty"`
	Streak       int              `json:"streak"`
}

type MilestoneResult struct {
	Milestones    []model.Milestone `json:"milestones"`
	GoalCompleted bool              `json:"goal_completed"`
}

type GoalService struct {
	goalRepo     repository.GoalRepository
	pastGoalRepo repository.PastGoalRepository
	boostRepo    repository.BoostRepository
	profileRepo  repository.ProfileRepository
	friendRepo   repository.FriendRepository
	storage      storage.Storage
	notifier     Notifier
	publisher    pubsub.Publisher
	loc          *time.Location
	now          func() time.Time
}

func NewGoalService(
	goalRepo repository.GoalRepository,
	pastGoalRepo repository.PastGoalRepository,
	boostRepo repository.BoostRepository,
	profileRepo repository.ProfileRepository,
	friendRepo repository.FriendRepository,
	storage storage.Storage,
	notifier Notifier,
	publisher pubsub.Publisher,
	loc *time.Location,
) *GoalService {
	return &GoalService{
		goalRepo:     goalRepo,
		pastGoalRepo: pastGoalRepo,
		boostRepo:    boostRepo,
		profileRepo:  profileRepo,
		friendRepo:   friendRepo,
		storage:      storage,
		notifier:     notifier,
		publisher:    publisher,
		loc:          loc,
		now:          utcNow,
	}
}

// goal loads the live goal, backfilling milestones for goals stored without them.
func (s *GoalService) goal(userID string) (*model.Goal, error) {
	goal, err := s.goalRepo.ByUserID(userID)
	if err != nil {
		return nil, err
	}

	if len(goal.Milestones) == 0 {
		milestones := model.NewMilestones(userID)
		err = s.goalRepo.InitMilestones(userID, milestones)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize milestones: %w", err)
		}
		goal.Milestones = milestones
	}

	return goal, nil
}

func (s *GoalService) Current(userID string) (*GoalView, error) {
	goal, err := s.goal(userID)
	if err != nil {
		return nil, err
	}

	s.withProofURLs(goal.History)

	now := s.now()
	return &GoalView{
		Goal:           goal,
		Rank:           Rank(len(goal.History)),
		CompletedToday: goal.CompletedOn(now, s.loc),
		Streak:         Streak(goal.History, now, s.loc),
	}, nil
}

// Start archives any existing goal and replaces it with a fresh one.
func (s *GoalService) Start(userID, name, description string) (*model.Goal, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" || description == "" {
		return nil, ErrGoalFieldsRequired
	}

	now := s.now()

	var archive *model.PastGoal
	existing, err := s.goalRepo.ByUserID(userID)
	switch {
	case err == nil:
		archive = model.ArchiveGoal(uuid.New().String(), existing, now)
	case errors.Is(err, repository.ErrGoalNotFound):
	default:
		return nil, fmt.Errorf("failed to load current goal: %w", err)
	}

	goal := &model.Goal{
		UserID:      userID,
		Name:        name,
		Description: description,
		Status:      model.GoalStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
		Milestones:  model.NewMilestones(userID),
		History:     []model.ProofEntry{},
	}

	err = s.goalRepo.Replace(goal, archive)
	if err != nil {
		return nil, fmt.Errorf("failed to start goal: %w", err)
	}

	if archive != nil {
		slog.Info("goal archived", "user_id", userID, "past_goal_id", archive.ID, "status", archive.Status)
	}

	s.publishGoal(userID)
	return goal, nil
}

func (s *GoalService) SubmitDailyProof(ctx context.Context, userID string, upload *Upload) (*ProofResult, error) {
	if upload == nil || upload.Body == nil {
		return nil, ErrProofRequired
	}

	goal, err := s.goalRepo.ByUserID(userID)
	if errors.Is(err, repository.ErrGoalNotFound) {
		return nil, ErrNoActiveGoal
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load goal: %w", err)
	}
	if goal.Status != model.GoalStatusActive {
		return nil, ErrNoActiveGoal
	}

	now := s.now()
	if goal.CompletedOn(now, s.loc) {
		return nil, ErrAlreadyDoneToday
	}

	path := storage.ProofPath(userID, now, upload.Filename)
	err = s.storage.Save(ctx, path, upload.Body, upload.ContentType)
	if err != nil {
		slog.Error("failed to upload proof", "error", err, "user_id", userID, "path", path)
		return nil, ErrProofUpload
	}

	entry := model.ProofEntry{
		ID:          uuid.New().String(),
		UserID:      userID,
		CompletedAt: now,
		StoragePath: path,
	}

	err = s.goalRepo.AppendProof(userID, &entry)
	if err != nil {
		delErr := s.storage.Delete(ctx, path)
		if delErr != nil {
			slog.Error("failed to delete proof from storage during cleanup", "error", delErr, "path", path)
		}
		slog.Error("failed to record proof", "error", err, "user_id", userID)
		return nil, ErrProofUpload
	}
	metrics.ProofsSubmitted.Inc()
	entry.ProofURL = s.storage.URL(path)
	s.publishGoal(userID)

	history := append(goal.History, entry)
	result := &ProofResult{
		Entry:        entry,
		HistoryCount: len(history),
		Rank:         Rank(len(history)),
		Streak:       Streak(history, now, s.loc),
	}
	if rank, ok := RankAchieved(len(history)); ok {
		result.RankAchieved = rank
	}

	profile := s.profile(userID)
	s.notifyFriends(ctx, userID, model.Notification{
		FromUserID: userID,
		FromName:   profile.DisplayName("Your Friend"),
		Type:       model.NotificationDailyCompletion,
		Message:    fmt.Sprintf("%s completed their daily goal!", profile.DisplayName("Your friend")),
	})

	return result, nil
}

func (s *GoalService) SaveMilestoneDescription(userID string, id int, description string) (*model.Milestone, error) {
	goal, err := s.goal(userID)
	if err != nil {
		return nil, err
	}

	milestone := goal.Milestone(id)
	if milestone == nil {
		return nil, repository.ErrMilestoneNotFound
	}
	if milestone.Completed {
		return nil, ErrMilestoneLocked
	}

	err = s.goalRepo.UpdateMilestoneDescription(userID, id, description)
	if errors.Is(err, repository.ErrMilestoneNotFound) {
		// Completed between the read and the write.
		return nil, ErrMilestoneLocked
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save milestone: %w", err)
	}

	milestone.Description = description
	s.publishGoal(userID)
	return milestone, nil
}

// CompleteMilestone marks one milestone done. Completing the last one completes
// the goal, purges unsaved boosts and tells friends.
func (s *GoalService) CompleteMilestone(ctx context.Context, userID string, id int) (*MilestoneResult, error) {
	goal, err := s.goal(userID)
	if err != nil {
		return nil, err
	}

	milestone := goal.Milestone(id)
	if milestone == nil {
		return nil, repository.ErrMilestoneNotFound
	}

	result := &MilestoneResult{Milestones: goal.Milestones}
	if milestone.Completed {
		result.GoalCompleted = goal.Status == model.GoalStatusCompleted
		return result, nil
	}

	now := s.now()
	err = s.goalRepo.CompleteMilestone(userID, id, now)
	if err != nil {
		return nil, fmt.Errorf("failed to complete milestone: %w", err)
	}
	milestone.Completed = true
	milestone.CompletedAt = &now

	if goal.Status != model.GoalStatusActive || !goal.AllMilestonesCompleted() {
		result.GoalCompleted = goal.Status == model.GoalStatusCompleted
		s.publishGoal(userID)
		return result, nil
	}

	err = s.goalRepo.MarkCompleted(userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to complete goal: %w", err)
	}
	result.GoalCompleted = true

	purged, err := s.boostRepo.DeleteUnsaved(userID)
	if err != nil {
		slog.Error("failed to purge unsaved boosts", "error", err, "user_id", userID)
	} else {
		slog.Info("goal completed", "user_id", userID, "purged_boosts", purged)
		s.publisher.Publish(pubsub.Event{Topic: pubsub.TopicBoost, UserIDs: []string{userID}})
	}

	profile := s.profile(userID)
	s.notifyFriends(ctx, userID, model.Notification{
		FromUserID: userID,
		FromName:   profile.DisplayName("Your Friend"),
		Type:       model.NotificationGoalCompletion,
		Message:    fmt.Sprintf("%s has completed their goal: %s!", profile.DisplayName("Your friend"), goal.Name),
	})

	s.publishGoal(userID)
	return result, nil
}

// Delete drops the live goal with its history, then removes the proof images.
func (s *GoalService) Delete(ctx context.Context, userID string) error {
	goal, err := s.goalRepo.ByUserID(userID)
	if err != nil {
		return err
	}

	err = s.goalRepo.Delete(userID)
	if err != nil {
		return err
	}

	s.removeProofs(ctx, userID, goal.History)
	s.publishGoal(userID)
	return nil
}

// Activity merges the live goal's history with every past goal's, newest first.
func (s *GoalService) Activity(userID string) ([]model.ActivityItem, error) {
	items := []model.ActivityItem{}

	goal, err := s.goalRepo.ByUserID(userID)
	if err != nil && !errors.Is(err, repository.ErrGoalNotFound) {
		return nil, fmt.Errorf("failed to load goal: %w", err)
	}
	if goal != nil {
		for _, h := range goal.History {
			items = append(items, model.ActivityItem{ID: h.ID, Date: h.CompletedAt, URL: s.storage.URL(h.StoragePath), Source: model.ActivitySourceCurrent})
		}
	}

	pastGoals, err := s.pastGoalRepo.PastGoals(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load past goals: %w", err)
	}
	for _, pg := range pastGoals {
		for _, h := range pg.History {
			items = append(items, model.ActivityItem{ID: h.ID, Date: h.CompletedAt, URL: s.storage.URL(h.StoragePath), Source: pg.ID})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date.After(items[j].Date)
	})
	return items, nil
}

// DeleteActivity removes one history entry from the live goal or a past goal,
// along with its proof image.
func (s *GoalService) DeleteActivity(ctx context.Context, userID, source, id string) error {
	if source == "" || source == model.ActivitySourceCurrent {
		goal, err := s.goalRepo.ByUserID(userID)
		if errors.Is(err, repository.ErrGoalNotFound) {
			return repository.ErrHistoryNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load goal: %w", err)
		}

		entry := findProof(goal.History, id)
		if entry == nil {
			return repository.ErrHistoryNotFound
		}

		err = s.goalRepo.DeleteHistory(userID, id)
		if err != nil {
			return err
		}
		s.removeProofs(ctx, userID, []model.ProofEntry{*entry})
		s.publishGoal(userID)
		return nil
	}

	pastGoal, err := s.pastGoalRepo.ByID(userID, source)
	if err != nil {
		return err
	}

	entry := findProof(pastGoal.History, id)
	if entry == nil {
		return repository.ErrHistoryNotFound
	}

	history := make(model.ProofList, 0, len(pastGoal.History))
	for _, h := range pastGoal.History {
		if h.ID != id {
			history = append(history, h)
		}
	}

	err = s.pastGoalRepo.UpdateHistory(userID, source, history)
	if err != nil {
		return err
	}
	s.removeProofs(ctx, userID, []model.ProofEntry{*entry})
	return nil
}

func (s *GoalService) PastGoals(userID string) ([]*model.PastGoal, error) {
	goals, err := s.pastGoalRepo.PastGoals(userID)
	if err != nil {
		return nil, err
	}
	if goals == nil {
		goals = []*model.PastGoal{}
	}
	for _, g := range goals {
		s.withProofURLs(g.History)
	}
	return goals, nil
}

func (s *GoalService) DeletePastGoal(ctx context.Context, userID, id string) error {
	pastGoal, err := s.pastGoalRepo.ByID(userID, id)
	if err != nil {
		return err
	}

	err = s.pastGoalRepo.Delete(userID, id)
	if err != nil {
		return err
	}

	s.removeProofs(ctx, userID, pastGoal.History)
	return nil
}

// withProofURLs resolves download URLs from the stored object keys.
func (s *GoalService) withProofURLs(history []model.ProofEntry) {
	for i := range history {
		history[i].ProofURL = s.storage.URL(history[i].StoragePath)
	}
}

// removeProofs deletes proof images after their records are gone. Failures
// leave an orphaned object and are only logged.
func (s *GoalService) removeProofs(ctx context.Context, userID string, history []model.ProofEntry) {
	for _, h := range history {
		if h.StoragePath == "" {
			continue
		}
		err := s.storage.Delete(ctx, h.StoragePath)
		if err != nil {
			slog.Error("failed to delete proof from storage", "error", err, "user_id", userID, "path", h.StoragePath)
		}
	}
}

func findProof(history []model.ProofEntry, id string) *model.ProofEntry {
	for i := range history {
		if history[i].ID == id {
			return &history[i]
		}
	}
	return nil
}

// profile returns nil when the profile cannot be loaded; callers only need the display name.
func (s *GoalService) profile(userID string) *model.Profile {
	profile, err := s.profileRepo.ByUserID(userID)
	if err != nil && !errors.Is(err, repository.ErrProfileNotFound) {
		slog.Warn("failed to load profile for notification", "error", err, "user_id", userID)
	}
	return profile
}

func (s *GoalService) notifyFriends(ctx context.Context, userID string, template model.Notification) {
	friendIDs, err := s.friendRepo.FriendIDs(userID)
	if err != nil {
		metrics.NotificationFailures.WithLabelValues("record").Inc()
		slog.Error("failed to load friends for notification", "error", err, "user_id", userID)
		return
	}
	s.notifier.NotifyAll(ctx, friendIDs, template)
}

// publishGoal wakes the owner's streams and every supporter watching the owner.
func (s *GoalService) publishGoal(userID string) {
	audience := []string{userID}
	friendIDs, err := s.friendRepo.FriendIDs(userID)
	if err != nil {
		slog.Warn("failed to load friends for goal event", "error", err, "user_id", userID)
	}
	audience = append(audience, friendIDs...)

	s.publisher.Publish(pubsub.Event{Topic: pubsub.TopicGoal, UserIDs: audience, ID: userID})
}
