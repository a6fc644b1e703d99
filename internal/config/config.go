package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Server
	Port int

	// Waveform analysis
	AudioBaseURL  string        // audio fetched from AudioBaseURL/<trackID>
	FetchTimeout  time.Duration // overall audio download timeout
	StallInterval time.Duration // abort when an interval passes with zero bytes

	// Controller
	MIDIDevice   string // preferred device name pattern (falls back to first input)
	CrossfaderCC int    // control-change number of the crossfader
	PlayNote     int    // note number of the play/pause pads
	CueNote      int    // note number of the cue pads

	// Surfaces
	TickInterval time.Duration // mix re-evaluation cadence
	PrimaryURL   string        // primary surface base URL (mixview only)
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		Port: envInt("MIX_PORT", 8080),

		AudioBaseURL:  envStr("MIX_AUDIO_BASE_URL", "http://localhost:9000/audio"),
		FetchTimeout:  time.Duration(envInt("MIX_FETCH_TIMEOUT", 30)) * time.Second,
		StallInterval: time.Duration(envInt("MIX_STALL_INTERVAL", 5)) * time.Second,

		MIDIDevice:   envStr("MIX_MIDI_DEVICE", "mixdeck mk2"),
		CrossfaderCC: envInt("MIX_CROSSFADER_CC", 51),
		PlayNote:     envInt("MIX_PLAY_NOTE", 11),
		CueNote:      envInt("MIX_CUE_NOTE", 12),

		TickInterval: time.Duration(envInt("MIX_TICK_MS", 50)) * time.Millisecond,
		PrimaryURL:   envStr("MIX_PRIMARY_URL", "http://localhost:8080"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
