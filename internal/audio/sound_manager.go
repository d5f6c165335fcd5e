package audio

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
)

const (
	sampleRate = beep.SampleRate(44100)
)

// SoundManager plays the oracle sounds through the system speaker
type SoundManager struct {
	mu             sync.Mutex
	ambientControl *beep.Ctrl
	mixer          *beep.Mixer
	initialized    bool
}

func NewSoundManager() *SoundManager {
	return &SoundManager{
		mixer: &beep.Mixer{},
	}
}

// Initialize sets up the speaker. Safe to call more than once.
func (sm *SoundManager) Initialize() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	if err := speaker.Init(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	speaker.Play(sm.mixer)
	sm.initialized = true
	return nil
}

// Close stops all sounds
func (sm *SoundManager) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized {
		return
	}

	sm.stopAmbientLocked()
	speaker.Lock()
	sm.mixer.Clear()
	speaker.Unlock()
	sm.initialized = false
}

// StartAmbient starts the looping hum played while the oracle thinks.
// Restarting replaces any hum already playing.
func (sm *SoundManager) StartAmbient() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized {
		return
	}

	sm.stopAmbientLocked()

	// The hum generator never ends on its own
	ctrl := &beep.Ctrl{Streamer: NewHumGenerator(sampleRate), Paused: false}
	sm.ambientControl = ctrl
	speaker.Lock()
	sm.mixer.Add(ctrl)
	speaker.Unlock()
}

func (sm *SoundManager) StopAmbient() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.stopAmbientLocked()
}

func (sm *SoundManager) stopAmbientLocked() {
	if sm.ambientControl == nil {
		return
	}
	speaker.Lock()
	sm.ambientControl.Paused = true
	// A nil streamer ends the Ctrl, letting the mixer drop it
	sm.ambientControl.Streamer = nil
	speaker.Unlock()
	sm.ambientControl = nil
}

// PlayReveal plays the chime announcing an answer
func (sm *SoundManager) PlayReveal() {
	sm.playOnce(NewChimeGenerator(sampleRate), 1200*time.Millisecond, 0.8)
}

// PlayCoin plays the coin dropping into the slot
func (sm *SoundManager) PlayCoin() {
	sm.playOnce(NewCoinGenerator(sampleRate), 350*time.Millisecond, 0.6)
}

func (sm *SoundManager) playOnce(s beep.Streamer, d time.Duration, vol float64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized {
		return
	}

	streamer := newVolume(beep.Take(sampleRate.N(d), s), vol)
	speaker.Lock()
	sm.mixer.Add(streamer)
	speaker.Unlock()
}

// newVolume scales a stream linearly; 0 silences it
func newVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}

// HumGenerator is a low drone with a slow swell, two seconds per cycle
type HumGenerator struct {
	sr      beep.SampleRate
	pos     int
	samples int
}

func NewHumGenerator(sr beep.SampleRate) *HumGenerator {
	return &HumGenerator{
		sr:      sr,
		samples: sr.N(2 * time.Second),
	}
}

func (g *HumGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		t := float64(g.pos) / float64(g.sr)
		cyclePos := float64(g.pos%g.samples) / float64(g.samples)

		// Fifth above a low A, breathing with the animation
		amplitude := 0.12 * (0.6 + 0.4*math.Sin(cyclePos*math.Pi*2))
		sample := amplitude * (math.Sin(2*math.Pi*110*t) + 0.5*math.Sin(2*math.Pi*165*t))

		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
	}
	return len(samples), true
}

func (g *HumGenerator) Err() error {
	return nil
}

// ChimeGenerator is a decaying bell (A5 plus overtone)
type ChimeGenerator struct {
	sr  beep.SampleRate
	pos int
}

func NewChimeGenerator(sr beep.SampleRate) *ChimeGenerator {
	return &ChimeGenerator{sr: sr}
}

func (g *ChimeGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		t := float64(g.pos) / float64(g.sr)

		fund := math.Exp(-t*3) * math.Sin(2*math.Pi*880*t)
		over := math.Exp(-t*6) * math.Sin(2*math.Pi*1760*t)
		sample := 0.35*fund + 0.15*over

		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
	}
	return len(samples), true
}

func (g *ChimeGenerator) Err() error {
	return nil
}

// CoinGenerator is two quick metallic clinks
type CoinGenerator struct {
	sr  beep.SampleRate
	pos int
}

func NewCoinGenerator(sr beep.SampleRate) *CoinGenerator {
	return &CoinGenerator{sr: sr}
}

func (g *CoinGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	second := g.sr.N(90 * time.Millisecond)
	for i := range samples {
		t := float64(g.pos) / float64(g.sr)

		freq := 1975.5 // B6
		local := t
		if g.pos >= second {
			freq = 2637.0 // E7
			local = t - float64(second)/float64(g.sr)
		}
		sample := 0.3 * math.Exp(-local*25) * math.Sin(2*math.Pi*freq*t)

		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
	}
	return len(samples), true
}

func (g *CoinGenerator) Err() error {
	return nil
}
