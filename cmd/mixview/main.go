// mixview is the secondary, controls-free display surface. It mirrors the
// primary console's state over the sync channel and independently
// re-evaluates the crossfader law; only the position travels over the wire.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/mixdeck/mixdeck/internal/config"
	"github.com/mixdeck/mixdeck/internal/mixer"
	"github.com/mixdeck/mixdeck/internal/state"
	"github.com/mixdeck/mixdeck/internal/stream"
)

func main() {
	cfg := config.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Local mirror, exclusively owned by this process.
	store := state.NewStore()
	mirror := stream.NewMirror(store, cfg.PrimaryURL+"/sync/offer")
	defer mirror.Close()

	// Keep the sync channel alive; an unreachable primary means
	// single-window mode, not an error.
	go func() {
		ticker := time.NewTicker(3 * time.Second)
		defer ticker.Stop()
		for {
			if !mirror.Connected() {
				if err := mirror.Open(ctx); err != nil {
					log.Printf("Mirror: primary not reachable (%v), retrying", err)
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	log.Printf("mixview mirroring %s", cfg.PrimaryURL)

	// Status lines at a readable cadence; the mix law itself costs nothing
	// to re-evaluate, so no faster tick is needed without a real renderer.
	interval := cfg.TickInterval
	if interval < 500*time.Millisecond {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("mixview shutting down")
			return
		case <-ticker.C:
			render(store.Get(), mirror.Connected())
		}
	}
}

// render prints one status line per tick. Real rendering is an external
// concern; the display contract here is the evaluated mix, not pixels.
func render(snap state.Snapshot, connected bool) {
	m := mixer.Evaluate(snap.Crossfader, snap.Curve)

	link := "live"
	if !connected {
		link = "single-window"
	}
	log.Printf("[%s] A:%s vol=%.2f op=%.2f | B:%s vol=%.2f op=%.2f | xfade=%.2f",
		link,
		deckLabel(snap.DeckA), m.A.Volume, m.A.Opacity,
		deckLabel(snap.DeckB), m.B.Volume, m.B.Opacity,
		snap.Crossfader)
}

func deckLabel(d state.Deck) string {
	if d.ID == "" {
		return "(empty)"
	}
	label := d.ID
	if d.Playing {
		label += "*"
	}
	return label
}
