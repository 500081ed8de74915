package session

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/withyou-app/withyou/internal/model"
	"github.com/withyou-app/withyou/internal/pubsub"
	"github.com/withyou-app/withyou/internal/repository"
)

// State is an immutable snapshot of who is signed in.
type State struct {
	Identity         *model.Identity `json:"identity"`
	Profile          *model.Profile  `json:"profile"`
	IdentityResolved bool            `json:"identity_resolved"`
	ProfileResolved  bool            `json:"profile_resolved"`
}

// Ready reports whether both the identity and the profile lookup have settled.
func (s State) Ready() bool {
	return s.IdentityResolved && s.ProfileResolved
}

// NeedsOnboarding is only true once the profile load has completed and found
// no usable profile. An unknown profile never counts as missing.
func (s State) NeedsOnboarding() bool {
	return s.Identity != nil && s.ProfileResolved && !s.Profile.Onboarded()
}

type ProfileLoader interface {
	ByUserID(userID string) (*model.Profile, error)
}

type Subscriber interface {
	Subscribe(filter pubsub.Filter) (<-chan pubsub.Event, func())
}

// Context holds the session state for one consumer: a request or a stream.
// It must be closed to release its live subscription.
type Context struct {
	loader ProfileLoader
	broker Subscriber

	mu       sync.RWMutex
	state    State
	watchers map[int]chan State
	nextID   int
	cancel   func()
	closed   bool
}

// New resolves the profile for identity synchronously. A nil identity resolves
// to an anonymous, ready session.
func New(identity *model.Identity, loader ProfileLoader, broker Subscriber) *Context {
	c := &Context{
		loader:   loader,
		broker:   broker,
		watchers: make(map[int]chan State),
		state: State{
			Identity:         identity,
			IdentityResolved: true,
		},
	}

	if identity == nil {
		c.state.ProfileResolved = true
		return c
	}

	c.state = c.load(c.state)
	return c
}

func (c *Context) load(prev State) State {
	next := State{Identity: prev.Identity, IdentityResolved: true}

	profile, err := c.loader.ByUserID(prev.Identity.UID)
	switch {
	case err == nil:
		next.Profile = profile
		next.ProfileResolved = true
	case errors.Is(err, repository.ErrProfileNotFound):
		next.ProfileResolved = true
	default:
		slog.Error("failed to load profile", "error", err, "user_id", prev.Identity.UID)
	}

	return next
}

func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Refresh reloads the profile and notifies watchers.
func (c *Context) Refresh() State {
	c.mu.RLock()
	prev := c.state
	closed := c.closed
	c.mu.RUnlock()

	if closed || prev.Identity == nil {
		return prev
	}

	next := c.load(prev)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return next
	}
	c.state = next
	for _, w := range c.watchers {
		select {
		case w <- next:
		default:
			// Watcher is behind; replace its pending snapshot with the latest.
			select {
			case <-w:
			default:
			}
			w <- next
		}
	}
	return next
}

// Watch streams snapshots after every profile change for this identity.
// The live subscription starts with the first watcher and ends on Close.
func (c *Context) Watch() (<-chan State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan State, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextID
	c.nextID++
	c.watchers[id] = ch

	if c.cancel == nil && c.state.Identity != nil && c.broker != nil {
		events, cancel := c.broker.Subscribe(pubsub.Filter{
			Topics: []pubsub.Topic{pubsub.TopicProfile},
			UserID: c.state.Identity.UID,
		})
		c.cancel = cancel
		go c.listen(events)
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if w, ok := c.watchers[id]; ok {
				delete(c.watchers, id)
				close(w)
			}
		})
	}
}

func (c *Context) listen(events <-chan pubsub.Event) {
	for range events {
		c.Refresh()
	}
}

// Close releases the live subscription and ends every watcher.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	for id, w := range c.watchers {
		delete(c.watchers, id)
		close(w)
	}
}
