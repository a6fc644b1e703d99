package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/mixdeck/mixdeck/internal/config"
	"github.com/mixdeck/mixdeck/internal/controller"
	"github.com/mixdeck/mixdeck/internal/mixer"
	"github.com/mixdeck/mixdeck/internal/state"
	"github.com/mixdeck/mixdeck/internal/stream"
	"github.com/mixdeck/mixdeck/internal/waveform"
)

func main() {
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Println("mixdeck starting up...")

	// Shared state: the single writer for this process.
	store := state.NewStore()

	// Waveform analysis service
	analyzer := waveform.NewService(cfg.AudioBaseURL, cfg.FetchTimeout, cfg.StallInterval)

	// Hardware controller: decoded events land in the store, nowhere else.
	ctrl := controller.New(
		controller.Mapping{
			CrossfaderCC: byte(cfg.CrossfaderCC),
			PlayNote:     byte(cfg.PlayNote),
			CueNote:      byte(cfg.CueNote),
		},
		cfg.MIDIDevice,
		controller.Callbacks{
			CrossfaderMove:  store.SetCrossfader,
			TransportToggle: store.ToggleDeck,
			CueTrigger:      store.CueDeck,
		},
	)
	go ctrl.Run(ctx)

	// Sync channel for secondary display surfaces
	syncHandler := stream.NewSyncHandler(store)

	// Render tick: re-evaluate the crossfader law against the latest
	// committed state. Rendering itself is external; the evaluated mix is
	// served from /api/status.
	var mixMu sync.RWMutex
	var latestMix mixer.Mix
	go func() {
		ticker := time.NewTicker(cfg.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				snap := store.Get()
				m := mixer.Evaluate(snap.Crossfader, snap.Curve)
				mixMu.Lock()
				latestMix = m
				mixMu.Unlock()
			}
		}
	}()

	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		snap := store.Get()
		ctrlStatus, device := ctrl.Status()
		mixMu.RLock()
		m := latestMix
		mixMu.RUnlock()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		json.NewEncoder(w).Encode(map[string]any{
			"state":         snap,
			"mix":           m,
			"controller":    ctrlStatus,
			"device":        device,
			"display_peers": syncHandler.PeerCount(),
		})
	})

	mux.HandleFunc("/api/crossfader", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Position float64 `json:"position"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		store.SetCrossfader(req.Position) // clamped at the store boundary
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "position": store.Get().Crossfader})
	})

	mux.HandleFunc("/api/curve", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Curve string `json:"curve"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !mixer.Curve(req.Curve).Valid() {
			http.Error(w, "invalid curve", http.StatusBadRequest)
			return
		}
		store.SetCurve(mixer.Curve(req.Curve))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "curve": req.Curve})
	})

	mux.HandleFunc("/api/transport", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Deck   string `json:"deck"`
			Action string `json:"action"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		side, ok := parseSide(req.Deck)
		if !ok {
			http.Error(w, "deck must be A or B", http.StatusBadRequest)
			return
		}
		switch req.Action {
		case "toggle":
			store.ToggleDeck(side)
		case "cue":
			store.CueDeck(side)
		default:
			http.Error(w, "action must be toggle or cue", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	mux.HandleFunc("/api/load", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Deck     string  `json:"deck"`
			Track    string  `json:"track"`
			Duration float64 `json:"duration"`
			Samples  int     `json:"samples"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Track == "" {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		side, ok := parseSide(req.Deck)
		if !ok {
			http.Error(w, "deck must be A or B", http.StatusBadRequest)
			return
		}
		if req.Duration <= 0 {
			req.Duration = 180
		}
		if req.Samples <= 0 {
			req.Samples = 200
		}

		store.LoadDeck(side, req.Track, req.Duration)

		// Analysis runs out of band; the detected tempo lands back in the
		// store once known.
		go func() {
			res := analyzer.Analyze(ctx, req.Track, req.Samples, req.Duration)
			store.SetDeckBPM(side, res.BPM)
			if res.BPM != waveform.TempoUnknown {
				log.Printf("Track %s: detected %d BPM (synthetic=%v)", req.Track, res.BPM, res.Synthetic)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "deck": side.String(), "track": req.Track})
	})

	mux.Handle("/api/waveform", analyzer)
	mux.Handle("/sync/offer", syncHandler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		server.Close()
	}()

	log.Printf("mixdeck live on %s", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}
}

func parseSide(s string) (state.Side, bool) {
	switch strings.ToUpper(s) {
	case "A":
		return state.SideA, true
	case "B":
		return state.SideB, true
	}
	return state.SideA, false
}
