// Package controller turns raw MIDI byte triples from a hardware deck
// controller into semantic console events.
package controller

import (
	"fmt"

	"github.com/mixdeck/mixdeck/internal/mixer"
	"github.com/mixdeck/mixdeck/internal/state"
)

// MIDI status high nibbles handled by the decoder.
const (
	statusNoteOn        = 0x90
	statusControlChange = 0xB0
)

// Mapping names the controller numbers and notes for one device profile.
// The play and cue notes are symmetric across decks: the MIDI channel (0 or
// 1) selects the deck, the note number selects the action.
type Mapping struct {
	CrossfaderCC byte
	PlayNote     byte
	CueNote      byte
}

// DefaultMapping matches the supported two-deck controller profile.
func DefaultMapping() Mapping {
	return Mapping{CrossfaderCC: 51, PlayNote: 11, CueNote: 12}
}

// Event is one decoded controller action.
type Event interface {
	event()
}

// CrossfaderMove is a crossfader position change, normalized from the 7-bit
// controller value to [0,1].
type CrossfaderMove struct {
	Value float64
}

// TransportToggle is a play/pause press for one deck.
type TransportToggle struct {
	Deck state.Side
}

// CueTrigger is a cue press for one deck.
type CueTrigger struct {
	Deck state.Side
}

// Unmapped is any triple the profile does not understand. It is reported,
// not rejected, so new hardware mappings can be discovered from logs.
type Unmapped struct {
	Status, Data1, Data2 byte
}

func (CrossfaderMove) event()  {}
func (TransportToggle) event() {}
func (CueTrigger) event()      {}
func (Unmapped) event()        {}

func (u Unmapped) String() string {
	return fmt.Sprintf("[%02X %02X %02X]", u.Status, u.Data1, u.Data2)
}

// Decode classifies one raw triple under the given mapping. It never fails:
// anything outside the profile comes back as Unmapped.
func Decode(status, data1, data2 byte, m Mapping) Event {
	msgType := status & 0xF0
	channel := status & 0x0F

	switch msgType {
	case statusControlChange:
		if data1 == m.CrossfaderCC {
			// Data bytes are 7-bit; a byte above 127 is malformed and
			// saturates rather than escaping the [0,1] range. The store
			// clamps again on write, but the decoder output itself must
			// already be in range for injected callbacks.
			return CrossfaderMove{Value: mixer.Clamp(float64(data2) / 127)}
		}
	case statusNoteOn:
		// Note-on with velocity 0 is a release on many controllers, not a
		// press; it must not trigger transport. Channels above 1 address
		// decks this console doesn't have.
		if data2 == 0 || channel > 1 {
			break
		}
		deck := state.SideA
		if channel == 1 {
			deck = state.SideB
		}
		switch data1 {
		case m.PlayNote:
			return TransportToggle{Deck: deck}
		case m.CueNote:
			return CueTrigger{Deck: deck}
		}
	}
	return Unmapped{Status: status, Data1: data1, Data2: data2}
}
