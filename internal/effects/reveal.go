package effects

import (
	"context"
	"iter"
	"time"
)

// CharDelay is the pause between revealed characters
const CharDelay = 20 * time.Millisecond

// Prefixes yields every rune prefix of text, shortest first, ending with the
// full text. An N-character text yields exactly N values.
func Prefixes(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
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

// Revealer types text out one character at a time
type Revealer struct {
	Delay time.Duration
}

func NewRevealer(delay time.Duration) *Revealer {
	return &Revealer{Delay: delay}
}

// Reveal calls update with each prefix of text, pausing Delay after each one.
// It returns ctx.Err() if cancelled before the full text was shown.
func (r *Revealer) Reveal(ctx context.Context, text string, update func(partial string)) error {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for partial := range Prefixes(text) {
		if err := ctx.Err(); err != nil {
			return err
		}
		update(partial)

		if r.Delay <= 0 {
			continue
		}
		if timer == nil {
			timer = time.NewTimer(r.Delay)
		} else {
			timer.Reset(r.Delay)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}
