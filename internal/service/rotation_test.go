package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/withyou-app/withyou/internal/model"
)

func boostSet(ids ...string) []*model.Boost {
	out := make([]*model.Boost, 0, len(ids))
	for _, id := range ids {
		out = append(out, &model.Boost{ID: id, Type: model.BoostTypeMotivation})
	}
	return out
}

func nextFrame(t *testing.T, out <-chan RotationFrame) RotationFrame {
	t.Helper()
	select {
	case f := <-out:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return RotationFrame{}
	}
}

func startRotator(t *testing.T, interval, fade time.Duration) (chan<- []*model.Boost, <-chan RotationFrame) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	sets := make(chan []*model.Boost, 1)
	out := make(chan RotationFrame)
	done := make(chan struct{})

	go func() {
		defer close(done)
		NewRotator(interval, fade).Run(ctx, sets, out)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})
	return sets, out
}

func TestRotator_SingleBoostNeverTicks(t *testing.T) {
	sets, out := startRotator(t, 10*time.Millisecond, time.Millisecond)

	sets <- boostSet("a")
	frame := nextFrame(t, out)
	assert.Equal(t, RotationFrame{Index: 0, Total: 1, Visible: true, Boost: frame.Boost}, frame)
	assert.Equal(t, "a", frame.Boost.ID)

	select {
	case f := <-out:
		t.Fatalf("unexpected frame %+v", f)
	case <-time.After(80 * time.Millisecond):
	}
}

func TestRotator_EmptySet(t *testing.T) {
	sets, out := startRotator(t, 10*time.Millisecond, time.Millisecond)

	sets <- nil
	frame := nextFrame(t, out)
	assert.Equal(t, RotationFrame{Index: 0, Total: 0, Visible: true}, frame)
}

func TestRotator_FadesThenAdvances(t *testing.T) {
	sets, out := startRotator(t, 20*time.Millisecond, 5*time.Millisecond)

	sets <- boostSet("a", "b", "c")
	first := nextFrame(t, out)
	assert.Equal(t, 0, first.Index)
	assert.True(t, first.Visible)

	hidden := nextFrame(t, out)
	assert.False(t, hidden.Visible)
	assert.Equal(t, 0, hidden.Index)

	shown := nextFrame(t, out)
	assert.True(t, shown.Visible)
	assert.Equal(t, 1, shown.Index)
	assert.Equal(t, "b", shown.Boost.ID)
	assert.Equal(t, 3, shown.Total)
}

func TestRotator_ShrinkingSetStopsTimer(t *testing.T) {
	sets, out := startRotator(t, 20*time.Millisecond, 5*time.Millisecond)

	sets <- boostSet("a", "b")
	nextFrame(t, out)

	sets <- boostSet("a")
	var frame RotationFrame
	for frame.Total != 1 {
		frame = nextFrame(t, out)
	}
	assert.Equal(t, 0, frame.Index)
	assert.True(t, frame.Visible)

	select {
	case f := <-out:
		t.Fatalf("unexpected frame %+v", f)
	case <-time.After(80 * time.Millisecond):
	}
}

func TestRotator_StopsWhenSetsClosed(t *testing.T) {
	sets := make(chan []*model.Boost)
	out := make(chan RotationFrame, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		NewRotator(time.Hour, time.Millisecond).Run(context.Background(), sets, out)
	}()
	close(sets)

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "rotator did not stop")
	}
}
