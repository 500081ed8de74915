package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/withyou-app/withyou/internal/model"
	"github.com/withyou-app/withyou/internal/pubsub"
	"github.com/withyou-app/withyou/internal/repository"
	"github.com/withyou-app/withyou/internal/validation"
)

var (
	ErrOnboardingUsername = errors.New("Please enter a username")
	ErrRoleInvalid        = errors.New("Please choose challenger or motivator.")
)

const searchLimit = 20

type ProfileService struct {
	profileRepo repository.ProfileRepository
	publisher   pubsub.Publisher
}

func NewProfileService(profileRepo repository.ProfileRepository, publisher pubsub.Publisher) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
		publisher:   publisher,
	}
}

func (s *ProfileService) ByUserID(userID string) (*model.Profile, error) {
	return s.profileRepo.ByUserID(userID)
}

// Onboard creates or completes the profile for a signed-in identity.
func (s *ProfileService) Onboard(identity *model.Identity, username, role string) (*model.Profile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrOnboardingUsername
	}
	err := validation.ValidateUsername(username)
	if err != nil {
		return nil, err
	}
	if !model.ValidRole(role) {
		return nil, ErrRoleInvalid
	}

	profile := &model.Profile{
		UserID:          identity.UID,
		Username:        username,
		Role:            role,
		Email:           identity.Email,
		PhotoURL:        identity.PhotoURL,
		ShareMilestones: true,
	}

	err = s.profileRepo.Upsert(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	s.publish(identity.UID)
	return s.profileRepo.ByUserID(identity.UID)
}

func (s *ProfileService) UpdateUsername(userID, username string) error {
	username = strings.TrimSpace(username)

	err := validation.ValidateUsername(username)
	if err != nil {
		return err
	}

	err = s.profileRepo.UpdateUsername(userID, username)
	if err != nil {
		return err
	}

	s.publish(userID)
	return nil
}

// SetShareMilestones controls whether friends see milestone descriptions.
func (s *ProfileService) SetShareMilestones(userID string, share bool) error {
	err := s.profileRepo.UpdateShareMilestones(userID, share)
	if err != nil {
		return err
	}

	s.publish(userID)
	return nil
}

// Search finds other users by username prefix.
func (s *ProfileService) Search(userID, query string) ([]*model.Profile, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*model.Profile{}, nil
	}

	profiles, err := s.profileRepo.SearchByUsername(query, userID, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	if profiles == nil {
		profiles = []*model.Profile{}
	}
	return profiles, nil
}

func (s *ProfileService) publish(userID string) {
	s.publisher.Publish(pubsub.Event{Topic: pubsub.TopicProfile, UserIDs: []string{userID}, ID: userID})
}
