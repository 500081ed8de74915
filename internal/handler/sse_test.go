package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/withyou-app/withyou/internal/pubsub"
)

func TestStreamQuery(t *testing.T) {
	broker := pubsub.NewBroker()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/notifications/stream", nil).WithContext(ctx)

	var calls atomic.Int32
	load := func() (any, error) {
		n := calls.Add(1)
		if n == 3 {
			return nil, errors.New("boom")
		}
		return map[string]int32{"call": n}, nil
	}

	filter := pubsub.Filter{Topics: []pubsub.Topic{pubsub.TopicNotification}, UserID: "u1"}
	done := make(chan struct{})
	go func() {
		defer close(done)
		streamQuery(rec, req, broker, filter, "notifications", load)
	}()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	broker.Publish(pubsub.Event{Topic: pubsub.TopicMission, UserIDs: []string{"u1"}})
	broker.Publish(pubsub.Event{Topic: pubsub.TopicNotification, UserIDs: []string{"u2"}})
	broker.Publish(pubsub.Event{Topic: pubsub.TopicNotification, UserIDs: []string{"u1"}})
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	broker.Publish(pubsub.Event{Topic: pubsub.TopicNotification, UserIDs: []string{"u1"}})
	require.Eventually(t, func() bool { return calls.Load() == 3 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Equal(t, 2, strings.Count(body, "event: notifications\n"))
	assert.Contains(t, body, "data: {\"call\":1}\n\n")
	assert.Contains(t, body, "data: {\"call\":2}\n\n")
	assert.Contains(t, body, "event: error\n")
	assert.Zero(t, broker.Subscribers())
}
