package state

import (
	"testing"
	"time"

	"github.com/mixdeck/mixdeck/internal/mixer"
)

func TestNewStoreDefaults(t *testing.T) {
	s := NewStore()
	snap := s.Get()
	if snap.Crossfader != 0.5 {
		t.Errorf("initial crossfader = %v, want 0.5", snap.Crossfader)
	}
	if snap.Curve != mixer.CurveFull {
		t.Errorf("initial curve = %q, want %q", snap.Curve, mixer.CurveFull)
	}
	if snap.DeckA.Speed != 1 || snap.DeckB.Speed != 1 {
		t.Error("initial deck speeds should be 1")
	}
}

func TestSetCrossfaderClamps(t *testing.T) {
	s := NewStore()
	tests := []struct{ in, want float64 }{
		{0.3, 0.3},
		{-1, 0},
		{2.7, 1},
	}
	for _, tt := range tests {
		s.SetCrossfader(tt.in)
		if got := s.Get().Crossfader; got != tt.want {
			t.Errorf("SetCrossfader(%v) stored %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestToggleDeck(t *testing.T) {
	s := NewStore()
	s.ToggleDeck(SideA)
	if !s.Get().DeckA.Playing {
		t.Error("deck A should be playing after first toggle")
	}
	if s.Get().DeckB.Playing {
		t.Error("deck B should be unaffected")
	}
	s.ToggleDeck(SideA)
	if s.Get().DeckA.Playing {
		t.Error("deck A should stop after second toggle")
	}
}

func TestCueDeck(t *testing.T) {
	s := NewStore()
	s.LoadDeck(SideB, "track-9", 210)
	s.ToggleDeck(SideB)
	s.CueDeck(SideB)

	d := s.Get().DeckB
	if d.Playing {
		t.Error("cued deck should be stopped")
	}
	if d.Seek == nil || *d.Seek != 0 {
		t.Errorf("cued deck seek = %v, want 0", d.Seek)
	}
	if d.Position != 0 {
		t.Errorf("cued deck position = %v, want 0", d.Position)
	}
}

func TestGetCopiesSeekPointer(t *testing.T) {
	s := NewStore()
	s.CueDeck(SideA)

	snap := s.Get()
	if snap.DeckA.Seek == nil {
		t.Fatal("cued deck should carry a seek target")
	}
	*snap.DeckA.Seek = 42

	if got := *s.Get().DeckA.Seek; got != 0 {
		t.Errorf("store seek mutated through a Get copy: %v", got)
	}
}

func TestApplyCopiesSeekPointer(t *testing.T) {
	s := NewStore()
	seek := 10.0
	s.Apply(Patch{DeckB: &Deck{ID: "x", Seek: &seek, Speed: 1}})

	seek = 99
	if got := *s.Get().DeckB.Seek; got != 10 {
		t.Errorf("store seek aliases the patch pointer: %v", got)
	}
}

func TestSubscriberPatchDoesNotAliasStore(t *testing.T) {
	s := NewStore()
	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	s.CueDeck(SideA)

	select {
	case p := <-ch:
		if p.DeckA == nil || p.DeckA.Seek == nil {
			t.Fatal("cue patch should carry deck A with a seek target")
		}
		*p.DeckA.Seek = 7
		if got := *s.Get().DeckA.Seek; got != 0 {
			t.Errorf("store seek mutated through a subscriber patch: %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for cue patch")
	}
}

func TestApplyShallowMerge(t *testing.T) {
	s := NewStore()
	s.LoadDeck(SideA, "keep-me", 100)
	s.SetCrossfader(0.7)

	s.Apply(Patch{DeckB: &Deck{ID: "incoming", Playing: true, Speed: 1}})

	snap := s.Get()
	if snap.DeckB.ID != "incoming" || !snap.DeckB.Playing {
		t.Errorf("patched deck B = %+v, want incoming/playing", snap.DeckB)
	}
	if snap.DeckA.ID != "keep-me" {
		t.Errorf("deck A was touched by a deck B patch: %+v", snap.DeckA)
	}
	if snap.Crossfader != 0.7 {
		t.Errorf("crossfader was touched: %v, want 0.7", snap.Crossfader)
	}
}

func TestApplyClampsCrossfader(t *testing.T) {
	s := NewStore()
	v := 3.5
	s.Apply(Patch{Crossfader: &v})
	if got := s.Get().Crossfader; got != 1 {
		t.Errorf("applied crossfader = %v, want clamped to 1", got)
	}
}

func TestReplaceWholesale(t *testing.T) {
	s := NewStore()
	s.LoadDeck(SideA, "old", 100)
	s.SetCrossfader(0.9)

	s.Replace(Snapshot{Crossfader: 1.8, Curve: mixer.CurveCut})

	snap := s.Get()
	if snap.DeckA.ID != "" {
		t.Errorf("Replace left old deck A: %+v", snap.DeckA)
	}
	if snap.Crossfader != 1 {
		t.Errorf("Replace crossfader = %v, want clamped to 1", snap.Crossfader)
	}
	if snap.Curve != mixer.CurveCut {
		t.Errorf("Replace curve = %q, want cut", snap.Curve)
	}
}

func TestSetCurveRejectsUnknown(t *testing.T) {
	s := NewStore()
	s.SetCurve(mixer.Curve("bogus"))
	if got := s.Get().Curve; got != mixer.CurveFull {
		t.Errorf("unknown curve stored: %q", got)
	}
	s.SetCurve(mixer.CurveCut)
	if got := s.Get().Curve; got != mixer.CurveCut {
		t.Errorf("curve = %q, want cut", got)
	}
}

func TestSubscribeReceivesPatches(t *testing.T) {
	s := NewStore()
	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	s.SetCrossfader(0.25)

	select {
	case p := <-ch:
		if p.Crossfader == nil || *p.Crossfader != 0.25 {
			t.Errorf("patch = %+v, want crossfader 0.25", p)
		}
		if p.DeckA != nil || p.DeckB != nil {
			t.Error("crossfader patch should not carry deck fields")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for patch")
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	s := NewStore()
	ch := s.Subscribe()
	defer s.Unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ { // well past the buffer size
			s.SetCrossfader(float64(i%100) / 100)
		}
		close(done)
	}()

	select {
	case <-done:
		// writer never blocked
	case <-time.After(2 * time.Second):
		t.Fatal("writer blocked on a slow subscriber")
	}
}
