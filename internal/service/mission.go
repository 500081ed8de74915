package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
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
	ErrMissionFieldsRequired = errors.New("Please fill in all fields")
	ErrMissionNotFriend      = errors.New("You can only send missions to friends.")
	ErrInvalidTransition     = errors.New("This mission can't do that right now.")
	ErrNotMissionParty       = errors.New("You are not allowed to act on this mission.")
	ErrMissionProofUpload    = errors.New("Failed to upload proof")
)

type MissionAction string

const (
	MissionAccept  MissionAction = "accept"
	MissionReject  MissionAction = "reject"
	MissionSubmit  MissionAction = "submit"
	MissionApprove MissionAction = "approve"
	MissionDeny    MissionAction = "deny"
)

type missionParty int

const (
	partyOwner missionParty = iota
	partySupporter
)

type missionTransition struct {
	from  string
	to    string // empty: the mission is deleted
	actor missionParty
}

// missionTransitions is the complete lifecycle; any other (status, action) pair is rejected.
var missionTransitions = map[MissionAction]missionTransition{
	MissionAccept:  {from: model.MissionStatusPending, to: model.MissionStatusOnGoing, actor: partyOwner},
	MissionReject:  {from: model.MissionStatusPending, to: "", actor: partyOwner},
	MissionSubmit:  {from: model.MissionStatusOnGoing, to: model.MissionStatusVerifying, actor: partyOwner},
	MissionApprove: {from: model.MissionStatusVerifying, to: model.MissionStatusCompleted, actor: partySupporter},
	MissionDeny:    {from: model.MissionStatusVerifying, to: model.MissionStatusOnGoing, actor: partySupporter},
}

type SendMissionInput struct {
	To          string
	Title       string
	Description string
	Deadline    time.Time
	Reward      string
}

type MissionBoard struct {
	Wanted    []model.MissionView `json:"wanted"`
	Completed []model.MissionView `json:"completed"`
}

type SentMissions struct {
	Missions       []model.MissionView `json:"missions"`
	AwaitingReview int                 `json:"awaiting_review"`
}

type MissionService struct {
	missionRepo repository.MissionRepository
	friendRepo  repository.FriendRepository
	profileRepo repository.ProfileRepository
	storage     storage.Storage
	notifier    Notifier
	mailer      Mailer
	publisher   pubsub.Publisher
	now         func() time.Time
}

func NewMissionService(
	missionRepo repository.MissionRepository,
	friendRepo repository.FriendRepository,
	profileRepo repository.ProfileRepository,
	storage storage.Storage,
	notifier Notifier,
	mailer Mailer,
	publisher pubsub.Publisher,
) *MissionService {
	return &MissionService{
		missionRepo: missionRepo,
		friendRepo:  friendRepo,
		profileRepo: profileRepo,
		storage:     storage,
		notifier:    notifier,
		mailer:      mailer,
		publisher:   publisher,
		now:         utcNow,
	}
}

func (s *MissionService) Send(ctx context.Context, fromUserID string, input SendMissionInput) (*model.Mission, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Reward = strings.TrimSpace(input.Reward)
	if input.To == "" || input.Title == "" || input.Description == "" || input.Reward == "" || input.Deadline.IsZero() {
		return nil, ErrMissionFieldsRequired
	}

	friends, err := s.friendRepo.AreFriends(fromUserID, input.To)
	if err != nil {
		return nil, fmt.Errorf("failed to check friendship: %w", err)
	}
	if !friends {
		return nil, ErrMissionNotFriend
	}

	mission := &model.Mission{
		ID:          uuid.New().String(),
		FromUserID:  fromUserID,
		ToUserID:    input.To,
		Title:       input.Title,
		Description: input.Description,
		Deadline:    input.Deadline.UTC(),
		Reward:      input.Reward,
		Status:      model.MissionStatusPending,
		CreatedAt:   s.now(),
	}

	err = s.missionRepo.Create(mission)
	if err != nil {
		return nil, fmt.Errorf("failed to create mission: %w", err)
	}
	metrics.MissionTransitions.WithLabelValues("send").Inc()

	s.notify(ctx, mission, mission.ToUserID, fromUserID, "Your Motivator",
		model.NotificationMissionReceived, fmt.Sprintf("New mission: %s", mission.Title))
	s.email(ctx, mission)
	s.publish(mission)

	return mission, nil
}

// Mission returns a mission visible to userID, which must be one of its parties.
func (s *MissionService) Mission(userID, id string) (*model.MissionView, error) {
	mission, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if mission.FromUserID != userID && mission.ToUserID != userID {
		return nil, ErrNotMissionParty
	}

	view := s.view(mission)
	return &view, nil
}

func (s *MissionService) Accept(ctx context.Context, userID, id string) (*model.Mission, error) {
	return s.transition(ctx, userID, id, MissionAccept, func(m *model.Mission, now time.Time) error {
		m.AcceptedAt = &now
		return nil
	})
}

// Reject deletes a pending mission. The supporter is not notified.
func (s *MissionService) Reject(ctx context.Context, userID, id string) error {
	_, err := s.transition(ctx, userID, id, MissionReject, nil)
	return err
}

// SubmitProof uploads under a fresh key per submission. The upload is removed
// again if the status-guarded write loses, and an earlier proof is removed
// once the new one is recorded.
func (s *MissionService) SubmitProof(ctx context.Context, userID, id string, upload *Upload) (*model.Mission, error) {
	if upload == nil || upload.Body == nil {
		return nil, ErrProofRequired
	}

	var uploaded, replaced string
	mission, err := s.transition(ctx, userID, id, MissionSubmit, func(m *model.Mission, now time.Time) error {
		path := storage.MissionProofPath(userID, m.ID, now)
		err := s.storage.Save(ctx, path, upload.Body, upload.ContentType)
		if err != nil {
			slog.Error("failed to upload mission proof", "error", err, "user_id", userID, "mission_id", m.ID)
			return ErrMissionProofUpload
		}

		uploaded = path
		if m.ProofPath != nil {
			replaced = *m.ProofPath
		}
		m.ProofPath = &path
		m.SubmittedAt = &now
		return nil
	})
	if err != nil {
		s.removeProof(ctx, id, uploaded)
		return nil, err
	}

	s.removeProof(ctx, id, replaced)
	return mission, nil
}

func (s *MissionService) Approve(ctx context.Context, userID, id string) (*model.Mission, error) {
	return s.transition(ctx, userID, id, MissionApprove, func(m *model.Mission, now time.Time) error {
		m.CompletedAt = &now
		return nil
	})
}

// Deny sends the mission back to on-going and discards the proof. The
// submission time is kept.
func (s *MissionService) Deny(ctx context.Context, userID, id string) (*model.Mission, error) {
	var denied string
	mission, err := s.transition(ctx, userID, id, MissionDeny, func(m *model.Mission, now time.Time) error {
		if m.ProofPath != nil {
			denied = *m.ProofPath
		}
		m.ProofPath = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.removeProof(ctx, id, denied)
	return mission, nil
}

func (s *MissionService) removeProof(ctx context.Context, missionID, path string) {
	if path == "" {
		return
	}
	err := s.storage.Delete(ctx, path)
	if err != nil {
		slog.Error("failed to delete mission proof from storage", "error", err, "mission_id", missionID, "path", path)
	}
}

func (s *MissionService) transition(
	ctx context.Context,
	userID, id string,
	action MissionAction,
	apply func(m *model.Mission, now time.Time) error,
) (*model.Mission, error) {
	t, ok := missionTransitions[action]
	if !ok {
		return nil, ErrInvalidTransition
	}

	mission, err := s.missionRepo.ByID(id)
	if err != nil {
		return nil, err
	}
	stored := mission.Status
	normalizeMission(mission)

	actor := mission.ToUserID
	if t.actor == partySupporter {
		actor = mission.FromUserID
	}
	if actor != userID {
		return nil, ErrNotMissionParty
	}
	if mission.Status != t.from {
		return nil, ErrInvalidTransition
	}

	if t.to == "" {
		err = s.missionRepo.Delete(mission.ID, stored)
		if err != nil {
			return nil, s.writeError(err)
		}
		metrics.MissionTransitions.WithLabelValues(string(action)).Inc()
		s.publish(mission)
		return nil, nil
	}

	now := s.now()
	if apply != nil {
		err = apply(mission, now)
		if err != nil {
			return nil, err
		}
	}
	mission.Status = t.to

	err = s.missionRepo.Update(mission, stored)
	if err != nil {
		return nil, s.writeError(err)
	}
	metrics.MissionTransitions.WithLabelValues(string(action)).Inc()

	s.notifyTransition(ctx, mission, action)
	s.publish(mission)

	s.withProofURL(mission)
	return mission, nil
}

func (s *MissionService) writeError(err error) error {
	if errors.Is(err, repository.ErrMissionStateChanged) {
		return ErrInvalidTransition
	}
	return fmt.Errorf("failed to update mission: %w", err)
}

func (s *MissionService) notifyTransition(ctx context.Context, m *model.Mission, action MissionAction) {
	switch action {
	case MissionAccept:
		s.notify(ctx, m, m.FromUserID, m.ToUserID, "Challenger",
			model.NotificationMissionAccepted, fmt.Sprintf("Accepted your mission: %s", m.Title))
	case MissionSubmit:
		s.notify(ctx, m, m.FromUserID, m.ToUserID, "Challenger",
			model.NotificationMissionSubmitted, fmt.Sprintf("Submitted proof for mission: %s", m.Title))
	case MissionApprove:
		s.notify(ctx, m, m.ToUserID, m.FromUserID, "Your Motivator",
			model.NotificationMissionVerified, fmt.Sprintf("Your mission \"%s\" was approved! 🎉", m.Title))
	case MissionDeny:
		s.notify(ctx, m, m.ToUserID, m.FromUserID, "Your Motivator",
			model.NotificationMissionVerified, fmt.Sprintf("Your proof for \"%s\" needs improvement. Please try again.", m.Title))
	}
}

// notify is independent of the mission write: a failure is logged and the transition stands.
func (s *MissionService) notify(ctx context.Context, m *model.Mission, to, from, fallbackName, kind, message string) {
	name := fallbackName
	profile, err := s.profileRepo.ByUserID(from)
	if err == nil {
		name = profile.DisplayName(fallbackName)
	}

	err = s.notifier.Notify(ctx, &model.Notification{
		ToUserID:   to,
		FromUserID: from,
		FromName:   name,
		Type:       kind,
		Message:    message,
	})
	if err != nil {
		slog.Error("failed to send mission notification", "error", err, "mission_id", m.ID, "to", to, "type", kind)
	}
}

// email tells the owner about a new mission when their profile carries an address.
func (s *MissionService) email(ctx context.Context, m *model.Mission) {
	owner, err := s.profileRepo.ByUserID(m.ToUserID)
	if err != nil || owner.Email == "" {
		return
	}

	from := "Your Motivator"
	sender, err := s.profileRepo.ByUserID(m.FromUserID)
	if err == nil {
		from = sender.DisplayName(from)
	}

	err = s.mailer.SendMissionReceivedEmail(ctx, owner.Email, from, m.Title)
	if err != nil {
		metrics.NotificationFailures.WithLabelValues("email").Inc()
		slog.Error("failed to send mission email", "error", err, "mission_id", m.ID, "to", m.ToUserID)
	}
}

func (s *MissionService) publish(m *model.Mission) {
	s.publisher.Publish(pubsub.Event{
		Topic:   pubsub.TopicMission,
		UserIDs: []string{m.FromUserID, m.ToUserID},
		ID:      m.ID,
	})
}

// Board is the owner's view: wanted missions and completed ones, newest first.
func (s *MissionService) Board(userID string) (*MissionBoard, error) {
	missions, err := s.missionRepo.AssignedTo(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load missions: %w", err)
	}

	board := &MissionBoard{Wanted: []model.MissionView{}, Completed: []model.MissionView{}}
	for _, m := range missions {
		normalizeMission(m)
		s.withProofURL(m)
		switch {
		case m.Status == model.MissionStatusCompleted:
			board.Completed = append(board.Completed, s.view(m))
		case m.Active():
			board.Wanted = append(board.Wanted, s.view(m))
		}
	}
	return board, nil
}

// Sent is the supporter's view of missions still in flight.
func (s *MissionService) Sent(userID string) (*SentMissions, error) {
	missions, err := s.missionRepo.SentBy(userID,
		model.MissionStatusPending,
		model.MissionStatusOnGoing,
		model.MissionStatusVerifying,
		model.MissionStatusDenied,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load missions: %w", err)
	}

	sent := &SentMissions{Missions: []model.MissionView{}}
	for _, m := range missions {
		normalizeMission(m)
		s.withProofURL(m)
		if m.Status == model.MissionStatusVerifying {
			sent.AwaitingReview++
		}
		sent.Missions = append(sent.Missions, s.view(m))
	}
	return sent, nil
}

func (s *MissionService) load(id string) (*model.Mission, error) {
	mission, err := s.missionRepo.ByID(id)
	if err != nil {
		return nil, err
	}
	normalizeMission(mission)
	s.withProofURL(mission)
	return mission, nil
}

// withProofURL resolves a download URL from the stored proof key.
func (s *MissionService) withProofURL(m *model.Mission) {
	m.ProofURL = nil
	if m.ProofPath != nil && *m.ProofPath != "" {
		url := s.storage.URL(*m.ProofPath)
		m.ProofURL = &url
	}
}

func (s *MissionService) view(m *model.Mission) model.MissionView {
	return model.MissionView{Mission: m, Expired: m.Expired(s.now())}
}

// normalizeMission reads the legacy denied status as on-going.
func normalizeMission(m *model.Mission) {
	if m.Status == model.MissionStatusDenied {
		m.Status = model.MissionStatusOnGoing
	}
}
