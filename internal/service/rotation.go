package service

import (
	"context"
	"time"

	"github.com/withyou-app/withyou/internal/model"
)

// RotationFrame is one display state of the boost carousel.
type RotationFrame struct {
	Index   int          `json:"index"`
	Total   int          `json:"total"`
	Visible bool         `json:"visible"`
	Boost   *model.Boost `json:"boost,omitempty"`
}

// Rotator cycles through the relevant boosts: every interval it hides the
// current boost, waits for the fade, then shows the next one. With one or no
// boosts it never ticks and stays on index 0.
type Rotator struct {
	interval time.Duration
	fade     time.Duration
}

func NewRotator(interval, fade time.Duration) *Rotator {
	return &Rotator{interval: interval, fade: fade}
}

// Run consumes boost sets and emits frames until ctx ends or sets is closed.
// The timer restarts whenever the size of the set changes.
func (r *Rotator) Run(ctx context.Context, sets <-chan []*model.Boost, out chan<- RotationFrame) {
	var (
		boosts  []*model.Boost
		index   int
		ticker  *time.Ticker
		tick    <-chan time.Time
		fadeOut <-chan time.Time
	)

	stop := func() {
		if ticker != nil {
			ticker.Stop()
			ticker = nil
		}
		tick = nil
		fadeOut = nil
	}
	defer stop()

	emit := func(visible bool) bool {
		frame := RotationFrame{Index: index, Total: len(boosts), Visible: visible}
		if index < len(boosts) {
			frame.Boost = boosts[index]
		}
		select {
		case out <- frame:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case set, ok := <-sets:
			if !ok {
				return
			}
			resized := len(set) != len(boosts)
			boosts = set

			if resized {
				stop()
				if len(boosts) > 1 {
					ticker = time.NewTicker(r.interval)
					tick = ticker.C
				}
			}
			if len(boosts) <= 1 {
				index = 0
			} else {
				index %= len(boosts)
			}
			if !emit(true) {
				return
			}

		case <-tick:
			if fadeOut != nil {
				continue
			}
			fadeOut = time.After(r.fade)
			if !emit(false) {
				return
			}

		case <-fadeOut:
			fadeOut = nil
			if len(boosts) > 0 {
				index = (index + 1) % len(boosts)
			}
			if !emit(true) {
				return
			}
		}
	}
}
