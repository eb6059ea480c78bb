package devices

import "math/rand"

// rng wraps a per-device random source so each state machine is
// reproducible when seeded and never shares generator state with
// another device.
type rng struct {
	r *rand.Rand
}

func newRNG(seed int64) *rng {
	return &rng{r: rand.New(rand.NewSource(seed))}
}

// uniform draws from [lo, hi).
func (g *rng) uniform(lo, hi float64) float64 {
	return lo + g.r.Float64()*(hi-lo)
}

// uniformInt draws from [lo, hi] inclusive.
func (g *rng) uniformInt(lo, hi int) int {
	return lo + g.r.Intn(hi-lo+1)
}

// chance reports true with probability p.
func (g *rng) chance(p float64) bool {
	return g.r.Float64() < p
}

func (g *rng) pick(options []string) string {
	return options[g.r.Intn(len(options))]
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// round1 and round2 mirror the precision the wire contract uses for
// physical quantities.
func round1(v float64) float64 { return roundTo(v, 10) }
func round2(v float64) float64 { return roundTo(v, 100) }

func roundTo(v float64, factor float64) float64 {
	if v >= 0 {
		return float64(int64(v*factor+0.5)) / factor
	}
	return float64(int64(v*factor-0.5)) / factor
}
