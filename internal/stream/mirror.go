package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/mixdeck/mixdeck/internal/state"
)

// Mirror is the receiving side of the sync channel: it dials the primary
// surface's signaling endpoint and applies incoming messages to a local
// store. The local store is exclusively owned by this process; the primary
// never reads it back.
type Mirror struct {
	store     *state.Store
	signalURL string
	http      *http.Client

	mu        sync.Mutex
	pc        *webrtc.PeerConnection
	connected bool
}

// NewMirror creates a mirror applying sync messages to store, negotiating
// via the primary's offer endpoint.
func NewMirror(store *state.Store, signalURL string) *Mirror {
	return &Mirror{
		store:     store,
		signalURL: signalURL,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

// Connected reports whether the sync channel is currently open. False means
// single-window mode: the mirror shows its last known state.
func (m *Mirror) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Open negotiates the connection. The data channel is created unordered
// with retransmits disabled: state sync is last-writer-wins per field, so a
// lost or reordered update is repaired by later traffic, and blocking on
// redelivery would only add latency.
func (m *Mirror) Open(ctx context.Context) error {
	// A reconnect attempt replaces any earlier connection; tear the old one
	// down first so retries do not accumulate dead peers.
	m.mu.Lock()
	old := m.pc
	m.pc = nil
	m.connected = false
	m.mu.Unlock()
	if old != nil {
		old.Close()
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return fmt.Errorf("create peer connection: %w", err)
	}

	ordered := false
	retransmits := uint16(0)
	dc, err := pc.CreateDataChannel(ChannelName, &webrtc.DataChannelInit{
		Ordered:        &ordered,
		MaxRetransmits: &retransmits,
	})
	if err != nil {
		pc.Close()
		return fmt.Errorf("create data channel: %w", err)
	}

	dc.OnOpen(func() {
		m.setConnected(true)
		log.Println("Mirror: sync channel open")
	})
	dc.OnClose(func() {
		m.setConnected(false)
		log.Println("Mirror: sync channel closed")
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if err := Apply(m.store, msg.Data); err != nil {
			log.Printf("Mirror: %v", err)
		}
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		pc.Close()
		return fmt.Errorf("create offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		pc.Close()
		return fmt.Errorf("set local description: %w", err)
	}
	<-webrtc.GatheringCompletePromise(pc)

	answer, err := m.signal(ctx, pc.LocalDescription())
	if err != nil {
		pc.Close()
		return err
	}
	if err := pc.SetRemoteDescription(*answer); err != nil {
		pc.Close()
		return fmt.Errorf("set remote description: %w", err)
	}

	m.mu.Lock()
	m.pc = pc
	m.mu.Unlock()
	return nil
}

// Close tears down the connection.
func (m *Mirror) Close() {
	m.mu.Lock()
	pc := m.pc
	m.pc = nil
	m.connected = false
	m.mu.Unlock()
	if pc != nil {
		pc.Close()
	}
}

// signal exchanges the SDP offer for an answer over the primary's HTTP
// endpoint.
func (m *Mirror) signal(ctx context.Context, offer *webrtc.SessionDescription) (*webrtc.SessionDescription, error) {
	body, err := json.Marshal(offer)
	if err != nil {
		return nil, fmt.Errorf("marshal offer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.signalURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create signal request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("signal primary: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("signal primary: status %d", resp.StatusCode)
	}

	var answer webrtc.SessionDescription
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, fmt.Errorf("decode answer: %w", err)
	}
	return &answer, nil
}

func (m *Mirror) setConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	m.mu.Unlock()
}
