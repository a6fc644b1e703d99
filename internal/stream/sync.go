package stream

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/mixdeck/mixdeck/internal/state"
)

// SyncHandler serves WebRTC SDP negotiation for secondary display surfaces
// and publishes state to every connected peer. Each mutation of the store
// goes out as an update message; a freshly opened peer first receives a full
// snapshot, since it has no prior state.
type SyncHandler struct {
	store *state.Store
	mu    sync.Mutex
	peers []*webrtc.PeerConnection
}

// NewSyncHandler creates a sync signaling handler over the given store.
func NewSyncHandler(store *state.Store) *SyncHandler {
	return &SyncHandler{store: store}
}

// PeerCount returns the number of connected display surfaces.
func (h *SyncHandler) PeerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var offer webrtc.SessionDescription
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
		http.Error(w, "invalid SDP offer", http.StatusBadRequest)
		return
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		http.Error(w, "create peer connection failed", http.StatusInternalServerError)
		return
	}

	// The mirror creates the data channel (unordered, no retransmits); the
	// primary answers and starts publishing once it opens.
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != ChannelName {
			return
		}
		h.publishTo(dc)
	})

	if err := pc.SetRemoteDescription(offer); err != nil {
		pc.Close()
		http.Error(w, "set remote description failed", http.StatusBadRequest)
		return
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		http.Error(w, "create answer failed", http.StatusInternalServerError)
		return
	}

	if err := pc.SetLocalDescription(answer); err != nil {
		pc.Close()
		http.Error(w, "set local description failed", http.StatusInternalServerError)
		return
	}

	gatherComplete := webrtc.GatheringCompletePromise(pc)
	<-gatherComplete

	h.mu.Lock()
	h.peers = append(h.peers, pc)
	h.mu.Unlock()

	log.Printf("Sync: display surface connected (total: %d)", h.PeerCount())

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		if s == webrtc.PeerConnectionStateFailed ||
			s == webrtc.PeerConnectionStateClosed ||
			s == webrtc.PeerConnectionStateDisconnected {
			h.removePeer(pc)
			pc.Close()
			log.Printf("Sync: display surface disconnected (remaining: %d)", h.PeerCount())
		}
	})

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(pc.LocalDescription())
}

// publishTo streams state to one peer: a full snapshot on open, then every
// store patch as an update. Sends are fire-and-forget; the transport drops
// what it drops and the next full sync repairs any gap.
func (h *SyncHandler) publishTo(dc *webrtc.DataChannel) {
	done := make(chan struct{})
	var once sync.Once
	dc.OnClose(func() {
		once.Do(func() { close(done) })
	})

	dc.OnOpen(func() {
		go h.stream(done, func(m Message) { h.send(dc, m) })
	})
}

// stream delivers a full snapshot followed by every subsequent patch. The
// subscription is taken before the snapshot is read: a mutation racing the
// initial send then surfaces as a duplicate patch, which is harmless,
// whereas the reverse order would silently drop it until the field next
// changed.
func (h *SyncHandler) stream(done <-chan struct{}, send func(Message)) {
	patches := h.store.Subscribe()
	defer h.store.Unsubscribe(patches)

	send(FullState(h.store.Get()))

	for {
		select {
		case <-done:
			return
		case p := <-patches:
			send(StateUpdate(p))
		}
	}
}

func (h *SyncHandler) send(dc *webrtc.DataChannel, m Message) {
	data, err := Encode(m)
	if err != nil {
		log.Printf("Sync: encode %s message: %v", m.Type, err)
		return
	}
	if err := dc.Send(data); err != nil {
		log.Printf("Sync: send %s message: %v", m.Type, err)
	}
}

func (h *SyncHandler) removePeer(pc *webrtc.PeerConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, p := range h.peers {
		if p == pc {
			h.peers = append(h.peers[:i], h.peers[i+1:]...)
			return
		}
	}
}
