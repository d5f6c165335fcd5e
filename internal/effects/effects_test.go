package effects

import (
	"context"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPlayer struct {
	mu    sync.Mutex
	calls []string
}

func (p *recordingPlayer) record(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, name)
}

func (p *recordingPlayer) StartAmbient() { p.record("ambient:start") }
func (p *recordingPlayer) StopAmbient()  { p.record("ambient:stop") }
func (p *recordingPlayer) PlayReveal()   { p.record("reveal") }
func (p *recordingPlayer) PlayCoin()     { p.record("coin") }
func (p *recordingPlayer) Close()        {}

func (p *recordingPlayer) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

type frameRecorder struct {
	mu     sync.Mutex
	frames []int
}

func (r *frameRecorder) add(f int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
}

func (r *frameRecorder) Frames() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.frames...)
}

func TestPrefixesYieldsOnePerCharacter(t *testing.T) {
	text := "It burns eternal."
	got := slices.Collect(Prefixes(text))

	require.Len(t, got, len([]rune(text)))
	for i, p := range got {
		assert.True(t, strings.HasPrefix(text, p))
		if i > 0 {
			assert.Greater(t, len(p), len(got[i-1]), "prefix %d is not longer", i)
		}
	}
	assert.Equal(t, text, got[len(got)-1])
}

func TestPrefixesMultibyte(t *testing.T) {
	got := slices.Collect(Prefixes("Zoltar está"))

	require.Len(t, got, 11)
	assert.Equal(t, "Zoltar est", got[9])
	assert.Equal(t, "Zoltar está", got[10])
}

func TestPrefixesEmpty(t *testing.T) {
	assert.Empty(t, slices.Collect(Prefixes("")))
}

func TestPrefixesStopsEarly(t *testing.T) {
	var got []string
	for p := range Prefixes("abcdef") {
		got = append(got, p)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "ab"}, got)
}

func TestRevealProducesAllUpdates(t *testing.T) {
	r := NewRevealer(0)
	var updates []string

	err := r.Reveal(context.Background(), "They are ancient.", func(p string) {
		updates = append(updates, p)
	})

	require.NoError(t, err)
	assert.Len(t, updates, len("They are ancient."))
	assert.Equal(t, "They are ancient.", updates[len(updates)-1])
}

func TestRevealCancelled(t *testing.T) {
	r := NewRevealer(5 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	var updates []string
	err := r.Reveal(ctx, "a long answer from beyond", func(p string) {
		updates = append(updates, p)
		if len(updates) == 3 {
			cancel()
		}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, updates, 3)
}

func TestThinkingLoopsThroughSequence(t *testing.T) {
	player := &recordingPlayer{}
	frames := &frameRecorder{}
	th := NewThinking(player, time.Millisecond, frames.add)

	th.StartThinking()
	require.Eventually(t, func() bool {
		return len(frames.Frames()) > len(Sequence)+1
	}, time.Second, time.Millisecond)
	th.StopThinking(true)

	got := frames.Frames()
	// Frames follow the breathing sequence from frame zero
	for i := 0; i < len(Sequence)+1; i++ {
		assert.Equal(t, Sequence[i%len(Sequence)], got[i], "frame %d", i)
	}
	assert.Equal(t, RestingFrame, got[len(got)-1])
	assert.Equal(t, RestingFrame, th.Frame())
	assert.False(t, th.Running())
	assert.Equal(t, []string{"ambient:start", "ambient:stop", "reveal"}, player.Calls())
}

func TestThinkingStopWithoutSuccessIsSilent(t *testing.T) {
	player := &recordingPlayer{}
	th := NewThinking(player, time.Hour, nil)

	th.StartThinking()
	th.StopThinking(false)

	assert.Equal(t, []string{"ambient:start", "ambient:stop"}, player.Calls())
}

func TestThinkingRestartDoesNotOverlap(t *testing.T) {
	player := &recordingPlayer{}
	frames := &frameRecorder{}
	th := NewThinking(player, time.Millisecond, frames.add)

	th.StartThinking()
	time.Sleep(5 * time.Millisecond)
	th.StartThinking()
	assert.True(t, th.Running())

	th.StopThinking(false)
	stopped := len(frames.Frames())
	time.Sleep(10 * time.Millisecond)

	// No goroutine survives the stop
	assert.Len(t, frames.Frames(), stopped)
	assert.False(t, th.Running())
}

func TestStopWithoutStart(t *testing.T) {
	player := &recordingPlayer{}
	th := NewThinking(player, time.Millisecond, nil)

	th.StopThinking(false)
	th.PlayCoin()

	assert.Equal(t, []string{"ambient:stop", "coin"}, player.Calls())
	assert.Equal(t, RestingFrame, th.Frame())
}
