package mixer

// Curve selects a crossfader response curve.
type Curve string

const (
	CurveFull Curve = "full" // both decks at full volume in the center
	CurveCut  Curve = "cut"  // sharp cut near the edges
)

// Valid reports whether c is a known curve name.
func (c Curve) Valid() bool {
	return c == CurveFull || c == CurveCut
}

// Channel is the mix output for one deck: audio gain and visual opacity.
type Channel struct {
	Volume  float64 `json:"volume"`
	Opacity float64 `json:"opacity"`
}

// Mix is the full crossfader output for both decks.
type Mix struct {
	A Channel `json:"a"`
	B Channel `json:"b"`
}

// Clamp saturates v into [0,1].
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Evaluate maps a crossfader position (0 = deck A, 1 = deck B, 0.5 = center)
// to per-deck volume and opacity. Position saturates instead of erroring.
//
// Volume follows the center-full law: the deck on the near side of center
// stays at full volume while the other ramps linearly, so both decks are at
// volume 1 when centered. Opacity is derived from the volume pair and always
// sums to 1.
//
// The curve argument is accepted for wire/state compatibility but does not
// change the law yet; every selectable curve currently evaluates as
// center-full.
func Evaluate(position float64, curve Curve) Mix {
	_ = curve
	p := Clamp(position)

	var volA, volB float64
	if p <= 0.5 {
		volA = 1
		volB = 2 * p
	} else {
		volA = 2 * (1 - p)
		volB = 1
	}

	opA, opB := 0.5, 0.5
	if sum := volA + volB; sum > 0 {
		opA = volA / sum
		opB = volB / sum
	}

	return Mix{
		A: Channel{Volume: volA, Opacity: opA},
		B: Channel{Volume: volB, Opacity: opB},
	}
}
