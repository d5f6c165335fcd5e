package audio

import (
	"log/slog"
)

// Player plays the oracle's sound cues
type Player interface {
	StartAmbient()
	StopAmbient()
	PlayReveal()
	PlayCoin()
	Close()
}

// Silent is a Player that plays nothing. Used when muted or when no audio
// device is available.
type Silent struct{}

func (Silent) StartAmbient() {}
func (Silent) StopAmbient()  {}
func (Silent) PlayReveal()   {}
func (Silent) PlayCoin()     {}
func (Silent) Close()        {}

// NewPlayer returns a speaker-backed player, or Silent if disabled or the
// speaker cannot be initialized.
func NewPlayer(enabled bool, logger *slog.Logger) Player {
	if !enabled {
		return Silent{}
	}
	sm := NewSoundManager()
	if err := sm.Initialize(); err != nil {
		logger.Warn("audio unavailable, continuing silently", "error", err)
		return Silent{}
	}
	return sm
}
