package effects

import (
	"math"
	"testing"
)

func TestLimiterHoldsCeiling(t *testing.T) {
	lim := NewLimiter(41100, -0.3, 1, 50)
	ceiling := math.Pow(10, -0.3/20)
	for i := 0; i < 5000; i++ {
		// Three overlapping full-scale notes summed without clamping.
		l, r := lim.Process(3, -2.5)
		if math.Abs(float64(l)) > ceiling+1e-6 || math.Abs(float64(r)) > ceiling+1e-6 {
			t.Fatalf("frame %d exceeded ceiling: l=%f r=%f", i, l, r)
		}
	}
}

func TestLimiterPassesQuietSignal(t *testing.T) {
	lim := DefaultLimiter(41100)
	for i := 0; i < 1000; i++ {
		l, r := lim.Process(0.25, -0.5)
		if l != 0.25 || r != -0.5 {
			t.Fatalf("quiet signal altered: l=%f r=%f", l, r)
		}
	}
}

func TestLimiterKeepsStereoBalance(t *testing.T) {
	lim := NewLimiter(41100, 0, 0, 100)
	var l, r float32
	for i := 0; i < 100; i++ {
		l, r = lim.Process(2, 1)
	}
	if math.Abs(float64(l)/float64(r)-2) > 1e-4 {
		t.Fatalf("limiter changed channel ratio: l=%f r=%f", l, r)
	}
}

func TestSoftClipBounded(t *testing.T) {
	s := NewSoftClip(10, 0.5)
	l, r := s.Process(0.5, -0.5)
	if math.Abs(float64(l)) > 0.5 || math.Abs(float64(r)) > 0.5 {
		t.Error("soft clip output should be bounded by post gain")
	}
	if math.Abs(float64(l)) < 0.01 {
		t.Error("expected non-zero soft clip output")
	}
}

func TestChainAppliesEffectsInOrder(t *testing.T) {
	c := NewChain(Gain(4), NewSoftClip(1, 1))
	buf := []float32{0.5, -0.5, 0.1, 0.2, 7}
	c.ProcessInterleaved(buf)
	if math.Abs(float64(buf[0])-math.Tanh(2)) > 1e-6 {
		t.Errorf("gain should run before soft clip, got %f", buf[0])
	}
	if buf[4] != 7 {
		t.Errorf("trailing odd sample should be untouched, got %f", buf[4])
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	var nilChain *Chain
	nilChain.ProcessInterleaved(buf)
}
