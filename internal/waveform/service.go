package waveform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Result is the waveform retrieval response for one (track, sampleCount)
// request.
type Result struct {
	Waveform  []float64 `json:"waveform"`
	Duration  float64   `json:"duration"`
	BPM       int       `json:"bpm,omitempty"`
	Synthetic bool      `json:"synthetic"`
}

// Service fetches track audio, runs the analyzer, and caches results.
// Any retrieval failure (timeout, stall, short read, HTTP error) resolves to
// the deterministic synthetic fallback; analysis never surfaces a hard error.
type Service struct {
	audioURL      func(trackID string) string
	fetchTimeout  time.Duration
	stallInterval time.Duration
	cache         *lru.Cache[string, Result]
	http          *http.Client
}

// NewService creates a waveform service resolving track audio against
// baseURL (audio is fetched from baseURL/<trackID>).
func NewService(baseURL string, fetchTimeout, stallInterval time.Duration) *Service {
	cache, _ := lru.New[string, Result](128)
	return &Service{
		audioURL:      func(trackID string) string { return baseURL + "/" + trackID },
		fetchTimeout:  fetchTimeout,
		stallInterval: stallInterval,
		cache:         cache,
		http:          &http.Client{},
	}
}

// Analyze returns the waveform and tempo for a track, computing it on first
// request and serving the cached series afterwards. The duration argument
// seeds the synthetic fallback and scales tempo detection; it does not have
// to be exact for real audio.
func (s *Service) Analyze(ctx context.Context, trackID string, samples int, duration float64) Result {
	key := fmt.Sprintf("%s:%d", trackID, samples)
	if cached, ok := s.cache.Get(key); ok {
		return cached
	}

	res := s.analyze(ctx, trackID, samples, duration)
	s.cache.Add(key, res)
	return res
}

func (s *Service) analyze(ctx context.Context, trackID string, samples int, duration float64) Result {
	data, err := s.fetch(ctx, trackID)
	if err != nil {
		log.Printf("Waveform: fetch %s failed (%v), using synthetic", trackID, err)
		series := Synthesize(samples, duration, trackID)
		return Result{
			Waveform:  series,
			Duration:  duration,
			BPM:       DetectTempo(series, duration),
			Synthetic: true,
		}
	}

	series := Extract(data, samples)
	return Result{
		Waveform: series,
		Duration: duration,
		BPM:      DetectTempo(series, duration),
	}
}

// fetch downloads the track audio with an overall timeout and a stall
// detector: if a full sampling interval passes with zero bytes received, the
// download is aborted. Both paths cancel the request context, so the read
// loop always unblocks.
func (s *Service) fetch(ctx context.Context, trackID string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.audioURL(trackID), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch audio: status %d", resp.StatusCode)
	}

	var received atomic.Int64
	stallCtx, stallCancel := context.WithCancel(ctx)
	defer stallCancel()

	go func() {
		ticker := time.NewTicker(s.stallInterval)
		defer ticker.Stop()
		last := int64(0)
		for {
			select {
			case <-stallCtx.Done():
				return
			case <-ticker.C:
				now := received.Load()
				if now == last {
					log.Printf("Waveform: download of %s stalled, aborting", trackID)
					cancel()
					return
				}
				last = now
			}
		}
	}()

	data, err := io.ReadAll(&countingReader{r: resp.Body, n: &received})
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("read audio: empty stream")
	}
	return data, nil
}

type countingReader struct {
	r io.Reader
	n *atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

// ServeHTTP exposes the service as the waveform retrieval endpoint:
// GET ?track=<id>&samples=<n>&duration=<seconds>.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	trackID := r.URL.Query().Get("track")
	if trackID == "" {
		http.Error(w, "track required", http.StatusBadRequest)
		return
	}

	samples := 200
	if v, err := strconv.Atoi(r.URL.Query().Get("samples")); err == nil && v > 0 && v <= 4000 {
		samples = v
	}
	duration := 180.0
	if v, err := strconv.ParseFloat(r.URL.Query().Get("duration"), 64); err == nil && v > 0 {
		duration = v
	}

	res := s.Analyze(r.Context(), trackID, samples, duration)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(res)
}
