package effects

import "math"

// Limiter keeps summed note output under a ceiling. Both channels share one
// envelope so limiting never shifts the stereo image.
type Limiter struct {
	ceiling float32
	attack  float32 // coefficient
	release float32 // coefficient
	env     float32
}

// NewLimiter creates a limiter.
// ceilingDB: output ceiling in dBFS (e.g., -0.3)
// attackMs: attack time in ms
// releaseMs: release time in ms
func NewLimiter(sampleRate int, ceilingDB, attackMs, releaseMs float32) *Limiter {
	sr := float64(sampleRate)
	return &Limiter{
		ceiling: float32(math.Pow(10, float64(ceilingDB)/20)),
		attack:  coefficient(attackMs, sr),
		release: coefficient(releaseMs, sr),
	}
}

// DefaultLimiter returns the limiter used by the player and exporter.
func DefaultLimiter(sampleRate int) *Limiter {
	return NewLimiter(sampleRate, -0.3, 1, 120)
}

func coefficient(ms float32, sr float64) float32 {
	if ms <= 0 {
		return 1
	}
	return float32(1.0 - math.Exp(-1.0/(float64(ms)*sr/1000.0)))
}

func (l *Limiter) Process(left, right float32) (float32, float32) {
	peak := float32(math.Max(math.Abs(float64(left)), math.Abs(float64(right))))
	if peak > l.env {
		l.env += l.attack * (peak - l.env)
	} else {
		l.env += l.release * (peak - l.env)
	}
	g := l.gain()
	left, right = left*g, right*g
	// The envelope lags transients; a hard ceiling catches what it misses.
	return clampTo(left, l.ceiling), clampTo(right, l.ceiling)
}

func (l *Limiter) gain() float32 {
	if l.env <= l.ceiling || l.ceiling <= 0 {
		return 1
	}
	return l.ceiling / l.env
}

func (l *Limiter) Reset() {
	l.env = 0
}

func clampTo(v, limit float32) float32 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
