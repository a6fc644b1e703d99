package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	envVars := []string{
		"MIX_PORT", "MIX_AUDIO_BASE_URL", "MIX_FETCH_TIMEOUT",
		"MIX_STALL_INTERVAL", "MIX_MIDI_DEVICE", "MIX_CROSSFADER_CC",
		"MIX_PLAY_NOTE", "MIX_CUE_NOTE", "MIX_TICK_MS", "MIX_PRIMARY_URL",
	}
	for _, k := range envVars {
		os.Unsetenv(k)
	}

	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.AudioBaseURL != "http://localhost:9000/audio" {
		t.Errorf("AudioBaseURL = %q, want default", cfg.AudioBaseURL)
	}
	if cfg.FetchTimeout != 30*time.Second {
		t.Errorf("FetchTimeout = %v, want 30s", cfg.FetchTimeout)
	}
	if cfg.StallInterval != 5*time.Second {
		t.Errorf("StallInterval = %v, want 5s", cfg.StallInterval)
	}
	if cfg.MIDIDevice != "mixdeck mk2" {
		t.Errorf("MIDIDevice = %q, want default", cfg.MIDIDevice)
	}
	if cfg.CrossfaderCC != 51 {
		t.Errorf("CrossfaderCC = %d, want 51", cfg.CrossfaderCC)
	}
	if cfg.PlayNote != 11 {
		t.Errorf("PlayNote = %d, want 11", cfg.PlayNote)
	}
	if cfg.CueNote != 12 {
		t.Errorf("CueNote = %d, want 12", cfg.CueNote)
	}
	if cfg.TickInterval != 50*time.Millisecond {
		t.Errorf("TickInterval = %v, want 50ms", cfg.TickInterval)
	}
	if cfg.PrimaryURL != "http://localhost:8080" {
		t.Errorf("PrimaryURL = %q, want default", cfg.PrimaryURL)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MIX_PORT", "3000")
	t.Setenv("MIX_AUDIO_BASE_URL", "http://media.local/tracks")
	t.Setenv("MIX_FETCH_TIMEOUT", "10")
	t.Setenv("MIX_STALL_INTERVAL", "2")
	t.Setenv("MIX_MIDI_DEVICE", "ddj-400")
	t.Setenv("MIX_CROSSFADER_CC", "8")
	t.Setenv("MIX_PLAY_NOTE", "40")
	t.Setenv("MIX_CUE_NOTE", "41")
	t.Setenv("MIX_TICK_MS", "16")
	t.Setenv("MIX_PRIMARY_URL", "http://deck.local:8080")

	cfg := Load()

	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if cfg.AudioBaseURL != "http://media.local/tracks" {
		t.Errorf("AudioBaseURL = %q, want env override", cfg.AudioBaseURL)
	}
	if cfg.FetchTimeout != 10*time.Second {
		t.Errorf("FetchTimeout = %v, want 10s", cfg.FetchTimeout)
	}
	if cfg.StallInterval != 2*time.Second {
		t.Errorf("StallInterval = %v, want 2s", cfg.StallInterval)
	}
	if cfg.MIDIDevice != "ddj-400" {
		t.Errorf("MIDIDevice = %q, want env override", cfg.MIDIDevice)
	}
	if cfg.CrossfaderCC != 8 {
		t.Errorf("CrossfaderCC = %d, want 8", cfg.CrossfaderCC)
	}
	if cfg.PlayNote != 40 {
		t.Errorf("PlayNote = %d, want 40", cfg.PlayNote)
	}
	if cfg.CueNote != 41 {
		t.Errorf("CueNote = %d, want 41", cfg.CueNote)
	}
	if cfg.TickInterval != 16*time.Millisecond {
		t.Errorf("TickInterval = %v, want 16ms", cfg.TickInterval)
	}
	if cfg.PrimaryURL != "http://deck.local:8080" {
		t.Errorf("PrimaryURL = %q, want env override", cfg.PrimaryURL)
	}
}

func TestEnvIntInvalidFallsBack(t *testing.T) {
	t.Setenv("MIX_PORT", "not-a-number")
	cfg := Load()
	if cfg.Port != 8080 {
		t.Errorf("Invalid int env should fallback to default: got %d, want 8080", cfg.Port)
	}
}

func TestEnvStrEmpty(t *testing.T) {
	os.Unsetenv("MIX_AUDIO_BASE_URL")
	cfg := Load()
	if cfg.AudioBaseURL != "http://localhost:9000/audio" {
		t.Errorf("Unset env should use fallback: got %q", cfg.AudioBaseURL)
	}
}
