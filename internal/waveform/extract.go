// Package waveform derives perceptual amplitude envelopes and tempo
// estimates from compressed audio streams, with a deterministic synthetic
// fallback when no stream is available.
package waveform

const (
	// headerSkipMax bounds the container-header region skipped before
	// analysis; compressed-audio headers cluster near the start of a file.
	headerSkipMax = 100

	// silenceFloor is the peak level below which a track is treated as too
	// quiet to analyze.
	silenceFloor = 0.02

	// Breakpoints of the perceptual rescale: raw levels below scaleKnee map
	// into [0, scaleKneeOut], levels above expand into [scaleKneeOut, 1].
	scaleKnee    = 0.4
	scaleKneeOut = 0.15
)

// Extract computes an amplitude envelope of the given length from raw
// compressed-audio bytes. Byte values are treated as a coarse proxy for
// signed amplitude (deviation from 128), not decoded PCM; the result is an
// energy approximation meant for display, normalized to [0,1] and passed
// through a two-segment perceptual rescale that compresses quiet passages
// and expands loud ones.
func Extract(data []byte, samples int) []float64 {
	if samples <= 0 {
		return nil
	}

	series := make([]float64, samples)

	skip := headerSkipMax
	if s := len(data) / 100; s < skip {
		skip = s
	}
	body := data[skip:]
	if len(body) == 0 {
		return series
	}

	window := len(body) / samples
	if window < 1 {
		window = 1
	}

	for i := range series {
		lo := i * window
		if lo >= len(body) {
			break
		}
		hi := lo + window
		if hi > len(body) {
			hi = len(body)
		}

		var dev float64
		for _, b := range body[lo:hi] {
			d := float64(b) - 128
			if d < 0 {
				d = -d
			}
			dev += d
		}
		v := dev / float64(hi-lo) / 80
		if v > 1 {
			v = 1
		}
		series[i] = v
	}

	normalize(series)
	for i, v := range series {
		series[i] = rescale(v)
	}
	return series
}

// normalize stretches the series to span [0,1] using the observed min/max.
// A peak below the silence floor zeroes the series instead of amplifying
// noise.
func normalize(series []float64) {
	min, max := series[0], series[0]
	for _, v := range series {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	if max < silenceFloor {
		for i := range series {
			series[i] = 0
		}
		return
	}
	if span := max - min; span > 0 {
		for i, v := range series {
			series[i] = (v - min) / span
		}
	}
}

// rescale applies the two-segment perceptual stretch.
func rescale(v float64) float64 {
	if v < scaleKnee {
		return v / scaleKnee * scaleKneeOut
	}
	return scaleKneeOut + (v-scaleKnee)/(1-scaleKnee)*(1-scaleKneeOut)
}
