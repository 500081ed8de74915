package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/withyou-app/withyou/internal/model"
	"github.com/withyou-app/withyou/internal/pubsub"
	"github.com/withyou-app/withyou/internal/repository"
)

var errBoom = errors.New("boom")

var testNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func upload(name string) *Upload {
	return &Upload{Filename: name, ContentType: "image/png", Body: strings.NewReader("png")}
}

type fakeGoalRepo struct {
	goals          map[string]*model.Goal
	replaceErr     error
	appendErr      error
	archived       []*model.PastGoal
	markCompleted  int
	reminderOwners []string
	reminderSince  time.Time
}

func newFakeGoalRepo() *fakeGoalRepo {
	return &fakeGoalRepo{goals: map[string]*model.Goal{}}
}

func cloneGoal(g *model.Goal) *model.Goal {
	c := *g
	c.Milestones = append([]model.Milestone(nil), g.Milestones...)
	c.History = append([]model.ProofEntry(nil), g.History...)
	return &c
}

func (r *fakeGoalRepo) ByUserID(userID string) (*model.Goal, error) {
	g, ok := r.goals[userID]
	if !ok {
		return nil, repository.ErrGoalNotFound
	}
	return cloneGoal(g), nil
}

func (r *fakeGoalRepo) Replace(goal *model.Goal, archive *model.PastGoal) error {
	if r.replaceErr != nil {
		return r.replaceErr
	}
	if archive != nil {
		r.archived = append(r.archived, archive)
	}
	r.goals[goal.UserID] = cloneGoal(goal)
	return nil
}

func (r *fakeGoalRepo) InitMilestones(userID string, milestones []model.Milestone) error {
	g, ok := r.goals[userID]
	if !ok {
		return repository.ErrGoalNotFound
	}
	g.Milestones = append([]model.Milestone(nil), milestones...)
	return nil
}

func (r *fakeGoalRepo) AppendProof(userID string, entry *model.ProofEntry) error {
	if r.appendErr != nil {
		return r.appendErr
	}
	g, ok := r.goals[userID]
	if !ok {
		return repository.ErrGoalNotFound
	}
	g.History = append(g.History, *entry)
	at := entry.CompletedAt
	g.LastCompletedAt = &at
	return nil
}

func (r *fakeGoalRepo) UpdateMilestoneDescription(userID string, id int, description string) error {
	g, ok := r.goals[userID]
	if !ok {
		return repository.ErrGoalNotFound
	}
	for i := range g.Milestones {
		if g.Milestones[i].ID == id && !g.Milestones[i].Completed {
			g.Milestones[i].Description = description
			return nil
		}
	}
	return repository.ErrMilestoneNotFound
}

func (r *fakeGoalRepo) CompleteMilestone(userID string, id int, at time.Time) error {
	g, ok := r.goals[userID]
	if !ok {
		return repository.ErrGoalNotFound
	}
	for i := range g.Milestones {
		if g.Milestones[i].ID == id {
			g.Milestones[i].Completed = true
			g.Milestones[i].CompletedAt = &at
			return nil
		}
	}
	return repository.ErrMilestoneNotFound
}

func (r *fakeGoalRepo) MarkCompleted(userID string, at time.Time) error {
	g, ok := r.goals[userID]
	if !ok {
		return repository.ErrGoalNotFound
	}
	r.markCompleted++
	g.Status = model.GoalStatusCompleted
	g.CompletedAt = &at
	return nil
}

func (r *fakeGoalRepo) DeleteHistory(userID, id string) error {
	g, ok := r.goals[userID]
	if !ok {
		return repository.ErrGoalNotFound
	}
	for i, h := range g.History {
		if h.ID == id {
			g.History = append(g.History[:i], g.History[i+1:]...)
			return nil
		}
	}
	return repository.ErrHistoryNotFound
}

func (r *fakeGoalRepo) Delete(userID string) error {
	if _, ok := r.goals[userID]; !ok {
		return repository.ErrGoalNotFound
	}
	delete(r.goals, userID)
	return nil
}

func (r *fakeGoalRepo) ActiveOwnersWithoutProofSince(since time.Time) ([]string, error) {
	r.reminderSince = since
	return r.reminderOwners, nil
}

type fakePastGoalRepo struct {
	goals []*model.PastGoal
}

func (r *fakePastGoalRepo) PastGoals(userID string) ([]*model.PastGoal, error) {
	var out []*model.PastGoal
	for _, g := range r.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *fakePastGoalRepo) ByID(userID, id string) (*model.PastGoal, error) {
	for _, g := range r.goals {
		if g.UserID == userID && g.ID == id {
			return g, nil
		}
	}
	return nil, repository.ErrPastGoalNotFound
}

func (r *fakePastGoalRepo) UpdateHistory(userID, id string, history model.ProofList) error {
	g, err := r.ByID(userID, id)
	if err != nil {
		return err
	}
	g.History = history
	return nil
}

func (r *fakePastGoalRepo) Delete(userID, id string) error {
	for i, g := range r.goals {
		if g.UserID == userID && g.ID == id {
			r.goals = append(r.goals[:i], r.goals[i+1:]...)
			return nil
		}
	}
	return repository.ErrPastGoalNotFound
}

type fakeBoostRepo struct {
	boosts      map[string]*model.Boost
	deleteErr   error
	purgedUsers []string
}

func newFakeBoostRepo(boosts ...*model.Boost) *fakeBoostRepo {
	r := &fakeBoostRepo{boosts: map[string]*model.Boost{}}
	for _, b := range boosts {
		r.boosts[b.ID] = b
	}
	return r
}

func (r *fakeBoostRepo) Create(boost *model.Boost) error {
	c := *boost
	r.boosts[boost.ID] = &c
	return nil
}

func (r *fakeBoostRepo) ByID(id string) (*model.Boost, error) {
	b, ok := r.boosts[id]
	if !ok {
		return nil, repository.ErrBoostNotFound
	}
	c := *b
	return &c, nil
}

func (r *fakeBoostRepo) SetSaved(userID, id string, saved bool) error {
	b, ok := r.boosts[id]
	if !ok || b.ToUserID != userID {
		return repository.ErrBoostNotFound
	}
	b.Saved = saved
	return nil
}

func (r *fakeBoostRepo) sorted(keep func(*model.Boost) bool) []*model.Boost {
	var out []*model.Boost
	for _, b := range r.boosts {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeBoostRepo) ForDate(userID, date string) ([]*model.Boost, error) {
	return r.sorted(func(b *model.Boost) bool { return b.ToUserID == userID && b.Date == date }), nil
}

func (r *fakeBoostRepo) Saved(userID string) ([]*model.Boost, error) {
	return r.sorted(func(b *model.Boost) bool { return b.ToUserID == userID && b.Saved }), nil
}

func (r *fakeBoostRepo) DeleteUnsaved(userID string) (int64, error) {
	if r.deleteErr != nil {
		return 0, r.deleteErr
	}
	r.purgedUsers = append(r.purgedUsers, userID)
	var n int64
	for id, b := range r.boosts {
		if b.ToUserID == userID && !b.Saved {
			delete(r.boosts, id)
			n++
		}
	}
	return n, nil
}

type fakeProfileRepo struct {
	profiles map[string]*model.Profile
	err      error
}

func newFakeProfileRepo(profiles ...*model.Profile) *fakeProfileRepo {
	r := &fakeProfileRepo{profiles: map[string]*model.Profile{}}
	for _, p := range profiles {
		r.profiles[p.UserID] = p
	}
	return r
}

func (r *fakeProfileRepo) ByUserID(userID string) (*model.Profile, error) {
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.profiles[userID]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	c := *p
	return &c, nil
}

func (r *fakeProfileRepo) Upsert(profile *model.Profile) error {
	c := *profile
	r.profiles[profile.UserID] = &c
	return nil
}

func (r *fakeProfileRepo) UpdateUsername(userID, username string) error {
	p, ok := r.profiles[userID]
	if !ok {
		return repository.ErrProfileNotFound
	}
	p.Username = username
	return nil
}

func (r *fakeProfileRepo) UpdateShareMilestones(userID string, share bool) error {
	p, ok := r.profiles[userID]
	if !ok {
		return repository.ErrProfileNotFound
	}
	p.ShareMilestones = share
	return nil
}

func (r *fakeProfileRepo) SearchByUsername(prefix, excludeUserID string, limit int) ([]*model.Profile, error) {
	var out []*model.Profile
	for _, p := range r.profiles {
		if p.UserID != excludeUserID && strings.HasPrefix(p.Username, prefix) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeFriendRepo struct {
	edges    map[string]map[string]bool
	requests map[string]*model.FriendRequest
}

func newFakeFriendRepo(pairs ...[2]string) *fakeFriendRepo {
	r := &fakeFriendRepo{edges: map[string]map[string]bool{}, requests: map[string]*model.FriendRequest{}}
	for _, p := range pairs {
		r.link(p[0], p[1])
	}
	return r
}

func (r *fakeFriendRepo) link(a, b string) {
	if r.edges[a] == nil {
		r.edges[a] = map[string]bool{}
	}
	if r.edges[b] == nil {
		r.edges[b] = map[string]bool{}
	}
	r.edges[a][b] = true
	r.edges[b][a] = true
}

func (r *fakeFriendRepo) CreateRequest(req *model.FriendRequest) error {
	c := *req
	r.requests[req.ID] = &c
	return nil
}

func (r *fakeFriendRepo) RequestByID(id string) (*model.FriendRequest, error) {
	req, ok := r.requests[id]
	if !ok {
		return nil, repository.ErrFriendRequestNotFound
	}
	c := *req
	return &c, nil
}

func (r *fakeFriendRepo) PendingRequests(userID string) ([]*model.FriendRequest, error) {
	var out []*model.FriendRequest
	for _, req := range r.requests {
		if req.ToUserID == userID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r *fakeFriendRepo) HasPendingRequest(fromUserID, toUserID string) (bool, error) {
	for _, req := range r.requests {
		if req.FromUserID == fromUserID && req.ToUserID == toUserID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeFriendRepo) Accept(req *model.FriendRequest) error {
	if _, ok := r.requests[req.ID]; !ok {
		return repository.ErrFriendRequestNotFound
	}
	r.link(req.FromUserID, req.ToUserID)
	delete(r.requests, req.ID)
	return nil
}

func (r *fakeFriendRepo) DeleteRequest(userID, id string) error {
	req, ok := r.requests[id]
	if !ok || req.ToUserID != userID {
		return repository.ErrFriendRequestNotFound
	}
	delete(r.requests, id)
	return nil
}

func (r *fakeFriendRepo) Friends(userID string) ([]*model.Friend, error) {
	var out []*model.Friend
	for _, id := range r.sortedIDs(userID) {
		out = append(out, &model.Friend{UserID: id})
	}
	return out, nil
}

func (r *fakeFriendRepo) FriendIDs(userID string) ([]string, error) {
	return r.sortedIDs(userID), nil
}

func (r *fakeFriendRepo) sortedIDs(userID string) []string {
	var ids []string
	for id := range r.edges[userID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *fakeFriendRepo) AreFriends(userID, otherID string) (bool, error) {
	return r.edges[userID][otherID], nil
}

type fakeMissionRepo struct {
	missions     map[string]*model.Mission
	updates      int
	beforeUpdate func()
}

func newFakeMissionRepo(missions ...*model.Mission) *fakeMissionRepo {
	r := &fakeMissionRepo{missions: map[string]*model.Mission{}}
	for _, m := range missions {
		r.missions[m.ID] = m
	}
	return r
}

func (r *fakeMissionRepo) Create(mission *model.Mission) error {
	c := *mission
	r.missions[mission.ID] = &c
	return nil
}

func (r *fakeMissionRepo) ByID(id string) (*model.Mission, error) {
	m, ok := r.missions[id]
	if !ok {
		return nil, repository.ErrMissionNotFound
	}
	c := *m
	return &c, nil
}

func (r *fakeMissionRepo) Update(mission *model.Mission, expectedStatus string) error {
	if r.beforeUpdate != nil {
		r.beforeUpdate()
	}
	m, ok := r.missions[mission.ID]
	if !ok || m.Status != expectedStatus {
		return repository.ErrMissionStateChanged
	}
	r.updates++
	c := *mission
	r.missions[mission.ID] = &c
	return nil
}

func (r *fakeMissionRepo) Delete(id, expectedStatus string) error {
	m, ok := r.missions[id]
	if !ok || m.Status != expectedStatus {
		return repository.ErrMissionStateChanged
	}
	delete(r.missions, id)
	return nil
}

func (r *fakeMissionRepo) AssignedTo(userID string) ([]*model.Mission, error) {
	var out []*model.Mission
	for _, m := range r.missions {
		if m.ToUserID == userID {
			c := *m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeMissionRepo) SentBy(userID string, statuses ...string) ([]*model.Mission, error) {
	var out []*model.Mission
	for _, m := range r.missions {
		if m.FromUserID != userID {
			continue
		}
		for _, s := range statuses {
			if m.Status == s {
				c := *m
				out = append(out, &c)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type fakeNotificationRepo struct {
	created   []*model.Notification
	createErr error
}

func (r *fakeNotificationRepo) Create(n *model.Notification) error {
	if r.createErr != nil {
		return r.createErr
	}
	c := *n
	r.created = append(r.created, &c)
	return nil
}

func (r *fakeNotificationRepo) Notifications(userID string, filter repository.NotificationFilter) ([]*model.Notification, error) {
	var out []*model.Notification
	for _, n := range r.created {
		if n.ToUserID == userID && (!filter.UnreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) CountUnread(userID string) (int, error) {
	count := 0
	for _, n := range r.created {
		if n.ToUserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *fakeNotificationRepo) MarkRead(userID, id string) error {
	for _, n := range r.created {
		if n.ID == id && n.ToUserID == userID {
			n.Read = true
			return nil
		}
	}
	return repository.ErrNotificationNotFound
}

func (r *fakeNotificationRepo) Delete(userID, id string) error {
	for i, n := range r.created {
		if n.ID == id && n.ToUserID == userID {
			r.created = append(r.created[:i], r.created[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotificationNotFound
}

type fakeDeviceTokenRepo struct {
	tokens  map[string]*model.DeviceToken
	deleted []string
}

func newFakeDeviceTokenRepo() *fakeDeviceTokenRepo {
	return &fakeDeviceTokenRepo{tokens: map[string]*model.DeviceToken{}}
}

func (r *fakeDeviceTokenRepo) Register(token *model.DeviceToken) error {
	c := *token
	r.tokens[token.Token] = &c
	return nil
}

func (r *fakeDeviceTokenRepo) Tokens(userID string) ([]*model.DeviceToken, error) {
	var out []*model.DeviceToken
	for _, t := range r.tokens {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out, nil
}

func (r *fakeDeviceTokenRepo) Delete(userID, token string) error {
	if t, ok := r.tokens[token]; ok && t.UserID == userID {
		delete(r.tokens, token)
		r.deleted = append(r.deleted, token)
	}
	return nil
}

type fakeStorage struct {
	objects map[string][]byte
	saveErr error
	deleted []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (s *fakeStorage) Save(ctx context.Context, path string, body io.Reader, contentType string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	var buf bytes.Buffer
	_, err := io.Copy(&buf, body)
	if err != nil {
		return err
	}
	s.objects[path] = buf.Bytes()
	return nil
}

func (s *fakeStorage) Delete(ctx context.Context, path string) error {
	delete(s.objects, path)
	s.deleted = append(s.deleted, path)
	return nil
}

func (s *fakeStorage) URL(path string) string {
	return "https://cdn.test/" + path
}

type recordingNotifier struct {
	sent []model.Notification
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, notification *model.Notification) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, *notification)
	return nil
}

func (n *recordingNotifier) NotifyAll(ctx context.Context, recipients []string, template model.Notification) {
	for _, to := range recipients {
		c := template
		c.ToUserID = to
		_ = n.Notify(ctx, &c)
	}
}

type sentEmail struct {
	kind  string
	to    string
	from  string
	title string
}

type recordingMailer struct {
	sent []sentEmail
	err  error
}

func (m *recordingMailer) SendFriendRequestEmail(ctx context.Context, email, fromName string) error {
	m.sent = append(m.sent, sentEmail{kind: "friend_request", to: email, from: fromName})
	return m.err
}

func (m *recordingMailer) SendMissionReceivedEmail(ctx context.Context, email, fromName, title string) error {
	m.sent = append(m.sent, sentEmail{kind: "mission_received", to: email, from: fromName, title: title})
	return m.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []pubsub.Event
}

func (p *recordingPublisher) Publish(e pubsub.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) topics() []pubsub.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []pubsub.Topic
	for _, e := range p.events {
		out = append(out, e.Topic)
	}
	return out
}
