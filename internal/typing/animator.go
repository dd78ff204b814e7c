// Package typing reveals a reply one character at a time.
//
// Frames is the lazy sequence of partial strings; Animator paces it with a
// Scheduler so tests can drive the reveal without real timers.
package typing

import (
	"context"
	"iter"
	"time"
)

const DefaultInterval = 30 * time.Millisecond

// Frames yields "", the first rune, the first two runes, ... up to text.
func Frames(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if !yield("") {
			return
		}
		// Byte offsets of each rune end, so frames never split a rune.
		for i := range text {
			if i == 0 {
				continue
			}
			if !yield(text[:i]) {
				return
			}
		}
		if text != "" {
			yield(text)
		}
	}
}

// Scheduler abstracts the per-frame delay.
type Scheduler interface {
	After(d time.Duration) <-chan time.Time
}

type ClockScheduler struct{}

func (ClockScheduler) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

type Animator struct {
	Interval  time.Duration
	Scheduler Scheduler
}

func NewAnimator(interval time.Duration) *Animator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Animator{Interval: interval, Scheduler: ClockScheduler{}}
}

// Run emits frame 0 immediately and every following frame one Interval
// later. It returns ctx.Err() if cancelled; no frame is emitted after that.
func (a *Animator) Run(ctx context.Context, text string, emit func(string)) error {
	first := true
	for frame := range Frames(text) {
		if !first {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-a.Scheduler.After(a.Interval):
			}
		}
		first = false

		if err := ctx.Err(); err != nil {
			return err
		}
		emit(frame)
	}
	return nil
}
