package waveform

import "math"

// TempoUnknown is returned when no tempo could be determined.
const TempoUnknown = 0

// Tempo search range in BPM.
const (
	tempoMin = 60
	tempoMax = 180
)

// Tie-breaking bias toward club tempos. Harmonically related candidates
// (70 vs 140 BPM) often score nearly equal autocorrelation; weighting
// candidates by distance from 125 BPM picks the danceable one. The
// constants are part of the output contract, not tunables.
const (
	tempoBiasCenter  = 125.0
	tempoBiasWeight  = 0.3
	tempoBiasDivisor = 200.0
)

// DetectTempo estimates BPM from an amplitude series via autocorrelation of
// its onset envelope. Returns TempoUnknown for series shorter than 100
// samples, durations under 10 seconds, or when no candidate lag correlates.
func DetectTempo(series []float64, duration float64) int {
	if len(series) < 100 || duration < 10 {
		return TempoUnknown
	}

	sps := float64(len(series)) / duration

	minLag := int(sps * tempoMin / tempoMax)
	maxLag := int(sps) // lag for 60 BPM: one beat per second
	if minLag < 1 {
		minLag = 1
	}

	envelope := smooth(series, int(math.Max(3, sps/20)))

	// Onset envelope: clamped-positive first difference. Rising energy
	// marks rhythmic events; falling edges carry no beat information.
	onsets := make([]float64, len(envelope)-1)
	for i := range onsets {
		if d := envelope[i+1] - envelope[i]; d > 0 {
			onsets[i] = d
		}
	}

	bestLag := 0
	bestScore := 0.0
	for lag := minLag; lag <= maxLag && lag < len(onsets)/2; lag++ {
		var corr float64
		n := len(onsets) - lag
		for i := 0; i < n; i++ {
			corr += onsets[i] * onsets[i+lag]
		}
		corr /= float64(n)

		bpm := 60 * sps / float64(lag)
		weight := 1 - math.Abs(bpm-tempoBiasCenter)/tempoBiasDivisor
		score := corr * (1 + tempoBiasWeight*weight)

		if score > bestScore {
			bestScore = score
			bestLag = lag
		}
	}

	if bestLag == 0 {
		return TempoUnknown
	}
	return int(math.Round(60 * sps / float64(bestLag)))
}

// smooth applies a centered moving average with the given half-width.
func smooth(series []float64, halfWidth int) []float64 {
	out := make([]float64, len(series))
	for i := range series {
		lo := i - halfWidth
		if lo < 0 {
			lo = 0
		}
		hi := i + halfWidth
		if hi >= len(series) {
			hi = len(series) - 1
		}
		var sum float64
		for j := lo; j <= hi; j++ {
			sum += series[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}
