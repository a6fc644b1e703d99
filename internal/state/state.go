// Package state holds the shared console state: two decks, the crossfader,
// and the active curve. One Store instance is the single writer for its
// process; remote mirrors hold their own Store and converge through sync
// messages.
package state

import (
	"sync"

	"github.com/mixdeck/mixdeck/internal/mixer"
)

// Deck is the per-channel playback record.
type Deck struct {
	ID       string   `json:"id"`
	Playing  bool     `json:"playing"`
	Position float64  `json:"position"` // seconds
	Duration float64  `json:"duration"` // seconds
	Seek     *float64 `json:"seek,omitempty"`
	Speed    float64  `json:"speed"`
	BPM      int      `json:"bpm,omitempty"`
}

// clone returns a copy that shares no pointers with d, so a Deck handed out
// of the store can never alias the live value past the mutex.
func (d Deck) clone() Deck {
	if d.Seek != nil {
		v := *d.Seek
		d.Seek = &v
	}
	return d
}

// Snapshot is the full console state at one instant.
type Snapshot struct {
	DeckA      Deck        `json:"deckA"`
	DeckB      Deck        `json:"deckB"`
	Crossfader float64     `json:"crossfader"`
	Curve      mixer.Curve `json:"curve"`
}

// Patch is a partial snapshot: nil fields are untouched on apply, non-nil
// fields replace the corresponding snapshot field wholesale.
type Patch struct {
	DeckA      *Deck        `json:"deckA,omitempty"`
	DeckB      *Deck        `json:"deckB,omitempty"`
	Crossfader *float64     `json:"crossfader,omitempty"`
	Curve      *mixer.Curve `json:"curve,omitempty"`
}

// Side selects one of the two decks.
type Side int

const (
	SideA Side = iota
	SideB
)

func (s Side) String() string {
	if s == SideB {
		return "B"
	}
	return "A"
}

// Store owns a Snapshot and fans out a Patch to subscribers on every
// mutation. Slow subscribers get patches dropped rather than blocking the
// writer; a dropped patch is recovered by the next full sync.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot

	subMu sync.RWMutex
	subs  map[chan Patch]struct{}
}

// NewStore creates a store at center crossfader with the center-full curve.
func NewStore() *Store {
	return &Store{
		snap: Snapshot{
			DeckA:      Deck{Speed: 1},
			DeckB:      Deck{Speed: 1},
			Crossfader: 0.5,
			Curve:      mixer.CurveFull,
		},
		subs: make(map[chan Patch]struct{}),
	}
}

// Get returns a copy of the current snapshot.
func (s *Store) Get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snap
	snap.DeckA = snap.DeckA.clone()
	snap.DeckB = snap.DeckB.clone()
	return snap
}

// Subscribe registers for mutation patches. The channel is buffered; patches
// are dropped when the buffer is full.
func (s *Store) Subscribe() chan Patch {
	ch := make(chan Patch, 64)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()
	return ch
}

// Unsubscribe removes a subscription channel.
func (s *Store) Unsubscribe(ch chan Patch) {
	s.subMu.Lock()
	delete(s.subs, ch)
	s.subMu.Unlock()
}

func (s *Store) notify(p Patch) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for ch := range s.subs {
		select {
		case ch <- p:
		default:
			// subscriber too slow, drop; next full sync repairs it
		}
	}
}

// SetCrossfader writes a clamped crossfader position.
func (s *Store) SetCrossfader(v float64) {
	v = mixer.Clamp(v)
	s.mu.Lock()
	s.snap.Crossfader = v
	s.mu.Unlock()
	s.notify(Patch{Crossfader: &v})
}

// SetCurve selects the crossfader curve. Unknown names are ignored.
func (s *Store) SetCurve(c mixer.Curve) {
	if !c.Valid() {
		return
	}
	s.mu.Lock()
	s.snap.Curve = c
	s.mu.Unlock()
	s.notify(Patch{Curve: &c})
}

// ToggleDeck flips the playing flag of one deck.
func (s *Store) ToggleDeck(side Side) {
	s.mu.Lock()
	d := s.deck(side)
	d.Playing = !d.Playing
	out := *d
	s.mu.Unlock()
	s.notifyDeck(side, out)
}

// CueDeck stops a deck and seeks it back to the start.
func (s *Store) CueDeck(side Side) {
	zero := 0.0
	s.mu.Lock()
	d := s.deck(side)
	d.Playing = false
	d.Seek = &zero
	d.Position = 0
	out := *d
	s.mu.Unlock()
	s.notifyDeck(side, out)
}

// LoadDeck assigns a track to a deck, resetting playback.
func (s *Store) LoadDeck(side Side, trackID string, duration float64) {
	s.mu.Lock()
	d := s.deck(side)
	*d = Deck{ID: trackID, Duration: duration, Speed: 1}
	out := *d
	s.mu.Unlock()
	s.notifyDeck(side, out)
}

// SetDeckBPM records a detected tempo on a deck. TempoUnknown clears it.
func (s *Store) SetDeckBPM(side Side, bpm int) {
	s.mu.Lock()
	d := s.deck(side)
	d.BPM = bpm
	out := *d
	s.mu.Unlock()
	s.notifyDeck(side, out)
}

// Apply shallow-merges a patch: each non-nil top-level field replaces the
// snapshot field, absent fields stay untouched. The crossfader is clamped
// here as well; every write boundary clamps.
func (s *Store) Apply(p Patch) {
	s.mu.Lock()
	if p.DeckA != nil {
		s.snap.DeckA = p.DeckA.clone()
	}
	if p.DeckB != nil {
		s.snap.DeckB = p.DeckB.clone()
	}
	if p.Crossfader != nil {
		s.snap.Crossfader = mixer.Clamp(*p.Crossfader)
	}
	if p.Curve != nil {
		s.snap.Curve = *p.Curve
	}
	s.mu.Unlock()
	s.notify(p)
}

// Replace overwrites the snapshot wholesale, clamping the crossfader.
func (s *Store) Replace(snap Snapshot) {
	snap.Crossfader = mixer.Clamp(snap.Crossfader)
	snap.DeckA = snap.DeckA.clone()
	snap.DeckB = snap.DeckB.clone()
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

func (s *Store) deck(side Side) *Deck {
	if side == SideB {
		return &s.snap.DeckB
	}
	return &s.snap.DeckA
}

func (s *Store) notifyDeck(side Side, d Deck) {
	d = d.clone()
	if side == SideB {
		s.notify(Patch{DeckB: &d})
		return
	}
	s.notify(Patch{DeckA: &d})
}
