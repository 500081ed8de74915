package pubsub

import (
	"log/slog"
	"slices"
	"sync"
)

type Topic string

const (
	TopicNotification Topic = "notification"
	TopicMission      Topic = "mission"
	TopicBoost        Topic = "boost"
	TopicProfile      Topic = "profile"
	TopicGoal         Topic = "goal"
	TopicFriend       Topic = "friend"
)

// Event tells subscribers that records of Topic changed for the listed users.
// Subscribers re-query; events carry no payload.
type Event struct {
	Topic   Topic
	UserIDs []string
	ID      string
}

// Filter selects events by topic and audience. Empty fields match everything.
type Filter struct {
	Topics []Topic
	UserID string
}

func (f Filter) Match(e Event) bool {
	if len(f.Topics) > 0 && !slices.Contains(f.Topics, e.Topic) {
		return false
	}
	if f.UserID != "" && !slices.Contains(e.UserIDs, f.UserID) {
		return false
	}
	return true
}

// Publisher is the write side of the broker handed to services.
type Publisher interface {
	Publish(e Event)
}

type subscriber struct {
	filter Filter
	events chan Event
}

// Broker fans events out to in-process subscribers.
// Delivery is best-effort: a subscriber whose buffer is full misses the event.
type Broker struct {
	mu     sync.RWMutex
	subs   map[uint64]*subscriber
	nextID uint64
	buffer int
	closed bool
}

func NewBroker() *Broker {
	return &Broker{
		subs:   make(map[uint64]*subscriber),
		buffer: 16,
	}
}

// Subscribe registers a filter. The returned cancel func unregisters it and closes
// the channel; it is safe to call more than once.
func (b *Broker) Subscribe(filter Filter) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscriber{filter: filter, events: make(chan Event, b.buffer)}
	if b.closed {
		close(sub.events)
		return sub.events, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = sub

	var once sync.Once
	return sub.events, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub.events)
			}
		})
	}
}

func (b *Broker) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if !sub.filter.Match(e) {
			continue
		}
		select {
		case sub.events <- e:
		default:
			slog.Debug("dropped event for slow subscriber", "topic", e.Topic, "id", e.ID)
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close releases every subscription.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.events)
	}
	b.closed = true
}
