package effects

import "math"

// SoftClip applies tanh waveshaping with pre and post gain.
type SoftClip struct {
	preGain  float32
	postGain float32
}

func NewSoftClip(preGain, postGain float32) *SoftClip {
	return &SoftClip{preGain: preGain, postGain: postGain}
}

func (s *SoftClip) Process(l, r float32) (float32, float32) {
	l = float32(math.Tanh(float64(l*s.preGain))) * s.postGain
	r = float32(math.Tanh(float64(r*s.preGain))) * s.postGain
	return l, r
}

func (s *SoftClip) Reset() {}

// Gain scales both channels by a fixed factor.
type Gain float32

func (g Gain) Process(l, r float32) (float32, float32) {
	return l * float32(g), r * float32(g)
}

func (g Gain) Reset() {}
