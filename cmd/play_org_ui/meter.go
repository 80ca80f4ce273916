package main

import (
	"math"
	"sync"
)

const ringBufLen = 65536

// meter keeps a mono history of what the player generated so the UI can
// show levels for what is audible rather than what was just rendered.
type meter struct {
	mu          sync.Mutex
	ring        []float32
	writePos    int
	totalTapped int64 // mono frames written since the last reset
}

func newMeter() *meter {
	return &meter{ring: make([]float32, ringBufLen)}
}

// Tap runs on the audio thread; it only copies into the ring.
func (m *meter) Tap(samples []float32) {
	m.mu.Lock()
	for i := 0; i+1 < len(samples); i += 2 {
		m.ring[m.writePos] = (samples[i] + samples[i+1]) * 0.5
		m.writePos = (m.writePos + 1) % ringBufLen
		m.totalTapped++
	}
	m.mu.Unlock()
}

func (m *meter) Reset() {
	m.mu.Lock()
	m.totalTapped = 0
	clear(m.ring)
	m.mu.Unlock()
}

// Snapshot copies the n frames ending at playbackPos, the device's current
// output position in frames.
func (m *meter) Snapshot(n int, playbackPos int64) []float32 {
	if n > ringBufLen {
		n = ringBufLen
	}
	out := make([]float32, n)
	m.mu.Lock()
	delay := int(m.totalTapped - playbackPos)
	if delay < 0 {
		delay = 0
	}
	if delay > ringBufLen-n {
		delay = ringBufLen - n
	}
	start := (m.writePos - delay - n + ringBufLen*2) % ringBufLen
	for i := range out {
		out[i] = m.ring[(start+i)%ringBufLen]
	}
	m.mu.Unlock()
	return out
}

// levels returns the peak and RMS magnitude of s.
func levels(s []float32) (peak, rms float64) {
	if len(s) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range s {
		a := math.Abs(float64(v))
		if a > peak {
			peak = a
		}
		sum += a * a
	}
	return peak, math.Sqrt(sum / float64(len(s)))
}

// dbfs converts a linear magnitude to decibels relative to full scale,
// floored at floor.
func dbfs(v, floor float64) float64 {
	if v <= 0 {
		return floor
	}
	return math.Max(20*math.Log10(v), floor)
}
