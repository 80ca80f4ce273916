// Package audio connects a pull-based sample source to a playback device.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// SampleSource fills dst with interleaved stereo float32 samples.
type SampleSource interface {
	Process(dst []float32)
}

// FinishingSource is a SampleSource that can signal when playback has ended.
// When Finished returns true, the stream will return io.EOF on the next Read.
type FinishingSource interface {
	SampleSource
	Finished() bool
}

// bytesPerFrame is one float32 per channel, two channels.
const bytesPerFrame = 8

// StreamReader exposes a SampleSource as float32 little-endian PCM bytes.
type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	buf    []float32
	read   atomic.Int64 // bytes handed to the device
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{source: source}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(p) / bytesPerFrame
	if frames == 0 {
		return 0, nil
	}
	need := frames * 2
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	r.buf = r.buf[:need]
	r.source.Process(r.buf)
	for i := 0; i < need; i++ {
		u := math.Float32bits(r.buf[i])
		binary.LittleEndian.PutUint32(p[i*4:], u)
	}
	n := frames * bytesPerFrame
	r.read.Add(int64(n))
	if fs, ok := r.source.(FinishingSource); ok && fs.Finished() {
		return n, io.EOF
	}
	return n, nil
}

// BytesRead returns the number of PCM bytes produced so far.
func (r *StreamReader) BytesRead() int64 { return r.read.Load() }

func (r *StreamReader) Close() error { return nil }

// Output is a playing device stream.
type Output interface {
	Play()
	Pause()
	IsPlaying() bool
	// Position returns what the listener actually hears.
	Position() time.Duration
	Stop() error
}

// Backend names a device implementation.
type Backend string

const (
	BackendEbiten Backend = "ebiten"
	BackendOto    Backend = "oto"
)

// NewOutput opens a device stream for source on the named backend. Only one
// backend can be used per process: both drive the same platform device
// context, which can be created once.
func NewOutput(backend Backend, sampleRate int, source SampleSource) (Output, error) {
	switch backend {
	case BackendOto:
		return NewOtoOutput(sampleRate, source)
	case BackendEbiten, "":
		return NewEbitenOutput(sampleRate, source)
	}
	return nil, &UnknownBackendError{Name: string(backend)}
}

// UnknownBackendError is returned by NewOutput for an unsupported name.
type UnknownBackendError struct {
	Name string
}

func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("audio: unknown backend %q (expected ebiten|oto)", e.Name)
}
