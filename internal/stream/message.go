// Package stream synchronizes console state to secondary display surfaces
// over an unordered, at-most-once broadcast transport (WebRTC DataChannels
// with retransmits disabled). A disconnected receiver simply misses updates
// until the next full snapshot.
package stream

import (
	"encoding/json"
	"fmt"

	"github.com/mixdeck/mixdeck/internal/state"
)

// ChannelName is the well-known DataChannel label shared by all cooperating
// surfaces.
const ChannelName = "mixdeck-state"

// Message types.
const (
	TypeFull   = "full"
	TypeUpdate = "update"
)

// Message is the sync wire format: a tagged union of a full snapshot or a
// partial patch.
type Message struct {
	Type  string          `json:"type"`
	State *state.Snapshot `json:"state,omitempty"`
	Patch *state.Patch    `json:"patch,omitempty"`
}

// FullState builds a wholesale-replace message.
func FullState(snap state.Snapshot) Message {
	return Message{Type: TypeFull, State: &snap}
}

// StateUpdate builds a shallow-merge message.
func StateUpdate(p state.Patch) Message {
	return Message{Type: TypeUpdate, Patch: &p}
}

// Encode serializes a message for the wire.
func Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// Apply decodes one wire message and applies it to the local mirror: full
// replaces the snapshot wholesale, update shallow-merges present fields.
// Malformed messages return an error for logging but leave the mirror
// untouched.
func Apply(store *state.Store, data []byte) error {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("decode sync message: %w", err)
	}

	switch m.Type {
	case TypeFull:
		if m.State == nil {
			return fmt.Errorf("full message without state")
		}
		store.Replace(*m.State)
	case TypeUpdate:
		if m.Patch == nil {
			return fmt.Errorf("update message without patch")
		}
		store.Apply(*m.Patch)
	default:
		return fmt.Errorf("unknown sync message type %q", m.Type)
	}
	return nil
}
