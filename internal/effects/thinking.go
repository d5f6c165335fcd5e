package effects

import (
	"context"
	"sync"
	"time"

	"github.com/Rorical/zoltar/internal/audio"
)

// FrameInterval is the sprite cadence while thinking
const FrameInterval = 150 * time.Millisecond

// RestingFrame is shown whenever the oracle is not thinking
const RestingFrame = 0

// Sequence plays the five sprite frames forward then back down, so the loop
// breathes instead of jumping from the last frame to the first.
var Sequence = []int{0, 1, 2, 3, 4, 3, 2, 1}

// Thinking drives the oracle's thinking animation and its sounds. One
// Thinking belongs to one oracle instance.
type Thinking struct {
	mu       sync.Mutex
	sound    audio.Player
	interval time.Duration
	onFrame  func(frame int)

	frame  int
	cancel context.CancelFunc
	done   chan struct{}
}

// NewThinking creates the presenter. onFrame is called from the animation
// goroutine on every frame change, and with RestingFrame on stop.
func NewThinking(sound audio.Player, interval time.Duration, onFrame func(frame int)) *Thinking {
	if sound == nil {
		sound = audio.Silent{}
	}
	if onFrame == nil {
		onFrame = func(int) {}
	}
	return &Thinking{
		sound:    sound,
		interval: interval,
		onFrame:  onFrame,
		frame:    RestingFrame,
	}
}

// StartThinking starts the loop from the first frame. A running loop is
// stopped first, so there is never more than one.
func (t *Thinking) StartThinking() {
	t.halt()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	t.mu.Lock()
	t.cancel = cancel
	t.done = done
	t.frame = Sequence[0]
	t.mu.Unlock()

	t.sound.StartAmbient()
	t.onFrame(Sequence[0])

	go t.loop(ctx, done)
}

func (t *Thinking) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	step := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			step = (step + 1) % len(Sequence)
			frame := Sequence[step]

			t.mu.Lock()
			t.frame = frame
			t.mu.Unlock()

			t.onFrame(frame)
		}
	}
}

// StopThinking ends the loop, restores the resting frame and silences the
// ambient sound. The reveal chime plays only on success.
func (t *Thinking) StopThinking(success bool) {
	t.halt()

	t.mu.Lock()
	t.frame = RestingFrame
	t.mu.Unlock()

	t.sound.StopAmbient()
	t.onFrame(RestingFrame)
	if success {
		t.sound.PlayReveal()
	}
}

// PlayCoin plays the coin cue
func (t *Thinking) PlayCoin() {
	t.sound.PlayCoin()
}

// halt cancels the running loop and waits for it to exit
func (t *Thinking) halt() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (t *Thinking) Frame() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frame
}

func (t *Thinking) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}
