package stream

import (
	"encoding/json"
	"testing"

	"github.com/mixdeck/mixdeck/internal/mixer"
	"github.com/mixdeck/mixdeck/internal/state"
)

func TestApplyUpdateLeavesOtherFieldsUntouched(t *testing.T) {
	store := state.NewStore()
	store.LoadDeck(state.SideA, "resident", 120)
	store.SetCrossfader(0.7)

	msg := StateUpdate(state.Patch{
		DeckB: &state.Deck{ID: "fresh", Playing: true, Speed: 1},
	})
	data, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := Apply(store, data); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	snap := store.Get()
	if snap.DeckB.ID != "fresh" || !snap.DeckB.Playing {
		t.Errorf("deck B = %+v, want patched", snap.DeckB)
	}
	if snap.DeckA.ID != "resident" {
		t.Errorf("deck A touched by deck B update: %+v", snap.DeckA)
	}
	if snap.Crossfader != 0.7 {
		t.Errorf("crossfader touched by deck update: %v", snap.Crossfader)
	}
}

func TestApplyFullReplacesWholesale(t *testing.T) {
	store := state.NewStore()
	store.LoadDeck(state.SideA, "stale", 300)
	store.ToggleDeck(state.SideA)

	// The snapshot deliberately leaves deck A zero-valued: full sync must
	// still wipe the old value.
	data, err := Encode(FullState(state.Snapshot{
		Crossfader: 0.25,
		Curve:      mixer.CurveCut,
	}))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := Apply(store, data); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	snap := store.Get()
	if snap.DeckA.ID != "" || snap.DeckA.Playing {
		t.Errorf("full sync left stale deck A: %+v", snap.DeckA)
	}
	if snap.Crossfader != 0.25 {
		t.Errorf("crossfader = %v, want 0.25", snap.Crossfader)
	}
	if snap.Curve != mixer.CurveCut {
		t.Errorf("curve = %q, want cut", snap.Curve)
	}
}

func TestApplyClampsCrossfaderAtSyncBoundary(t *testing.T) {
	store := state.NewStore()

	v := 5.0
	data, _ := Encode(StateUpdate(state.Patch{Crossfader: &v}))
	if err := Apply(store, data); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := store.Get().Crossfader; got != 1 {
		t.Errorf("synced crossfader = %v, want clamped to 1", got)
	}

	data, _ = Encode(FullState(state.Snapshot{Crossfader: -2}))
	if err := Apply(store, data); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := store.Get().Crossfader; got != 0 {
		t.Errorf("full-synced crossfader = %v, want clamped to 0", got)
	}
}

func TestApplyRejectsMalformed(t *testing.T) {
	store := state.NewStore()
	before := store.Get()

	tests := []struct {
		name string
		data []byte
	}{
		{"garbage", []byte("{not json")},
		{"unknown type", []byte(`{"type":"gossip"}`)},
		{"full without state", []byte(`{"type":"full"}`)},
		{"update without patch", []byte(`{"type":"update"}`)},
	}
	for _, tt := range tests {
		if err := Apply(store, tt.data); err == nil {
			t.Errorf("%s: Apply accepted, want error", tt.name)
		}
	}

	if store.Get() != before {
		t.Error("malformed messages mutated the store")
	}
}

func TestMessageWireShape(t *testing.T) {
	v := 0.5
	data, err := Encode(StateUpdate(state.Patch{Crossfader: &v}))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("wire form is not a JSON object: %v", err)
	}
	if string(raw["type"]) != `"update"` {
		t.Errorf("type = %s, want \"update\"", raw["type"])
	}
	if _, ok := raw["state"]; ok {
		t.Error("update message carries a state field")
	}
	if _, ok := raw["patch"]; !ok {
		t.Error("update message missing patch field")
	}
}

func TestUpdatesConvergeRegardlessOfFieldOrder(t *testing.T) {
	// Two mirrors receiving the same set of single-field updates in
	// different orders converge: last writer wins per field.
	a, b := state.NewStore(), state.NewStore()

	x := 0.9
	deck := state.Deck{ID: "t1", Playing: true, Speed: 1}
	m1, _ := Encode(StateUpdate(state.Patch{Crossfader: &x}))
	m2, _ := Encode(StateUpdate(state.Patch{DeckA: &deck}))

	Apply(a, m1)
	Apply(a, m2)
	Apply(b, m2)
	Apply(b, m1)

	if a.Get() != b.Get() {
		t.Errorf("mirrors diverged:\n a=%+v\n b=%+v", a.Get(), b.Get())
	}
}
