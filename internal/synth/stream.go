package synth

import (
	"io"
	"sync/atomic"

	"github.com/cbegin/organya-go/internal/notes"
)

// Stream is one render session's cursor over a Renderer. Output is
// interleaved stereo, left first.
type Stream struct {
	r         *Renderer
	click     uint32
	sample    int64 // frame counter shared by both channels
	right     bool
	loopsLeft int
	loopsDone int
	err       error
	finished  bool

	// Notes active at the current click and the one after it; both only
	// change on click boundaries.
	curClick  uint32
	cur       []*notes.Note
	nextClick uint32
	next      []*notes.Note
	cached    bool

	published atomic.Int64 // sample position visible to other goroutines
}

// Read fills dst with interleaved samples and returns how many were written.
// It returns io.EOF once the loop end has been reached, or the first range
// error met while rendering. Output is never clamped.
func (s *Stream) Read(dst []float32) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	defer func() { s.published.Store(s.sample) }()
	end := s.r.endSample()
	for i := range dst {
		if s.sample >= end {
			if !s.rewind() {
				s.finished = true
				return i, io.EOF
			}
		}
		v, err := s.value()
		if err != nil {
			s.err = err
			s.finished = true
			return i, err
		}
		dst[i] = v
		s.advance()
	}
	return len(dst), nil
}

// Process implements the audio SampleSource contract: it always fills dst,
// padding with silence after the end or an error.
func (s *Stream) Process(dst []float32) {
	n, _ := s.Read(dst)
	clear(dst[n:])
}

// Finished reports whether the stream has produced its last sample.
func (s *Stream) Finished() bool { return s.finished }

// LoopsDone returns how many times the stream has jumped back to the loop
// start.
func (s *Stream) LoopsDone() int { return s.loopsDone }

// Err returns the error that stopped the stream, if any.
func (s *Stream) Err() error { return s.err }

// Seek moves the cursor to the start of click, left channel.
func (s *Stream) Seek(click uint32) {
	s.click = click
	s.sample = int64(click) * s.r.samplesPerClick
	s.right = false
	s.cached = false
	s.finished = false
	s.published.Store(s.sample)
}

// Position returns the current click and frame. It may be called from a
// goroutine other than the one reading.
func (s *Stream) Position() (click uint32, frame int64) {
	frame = s.published.Load()
	return uint32(frame / s.r.samplesPerClick), frame
}

func (s *Stream) rewind() bool {
	if s.loopsLeft == 0 || s.r.loopStart >= s.r.loopEnd {
		return false
	}
	if s.loopsLeft > 0 {
		s.loopsLeft--
	}
	s.loopsDone++
	s.Seek(s.r.loopStart)
	return true
}

func (s *Stream) value() (float32, error) {
	cur, next := s.active()
	base, err := s.mix(cur)
	if err != nil {
		return 0, err
	}
	spc := s.r.samplesPerClick
	toNext := spc - s.sample%spc
	if toNext < crossfadeWindow {
		upcoming, err := s.mix(next)
		if err != nil {
			return 0, err
		}
		base = base*float32(toNext)/crossfadeWindow + upcoming*(float32(crossfadeWindow-toNext)/crossfadeWindow)
	}
	return base, nil
}

func (s *Stream) mix(ns []*notes.Note) (float32, error) {
	var sum float32
	for _, n := range ns {
		v, err := s.r.NoteSample(n, s.sample, s.click, s.right)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return sum, nil
}

func (s *Stream) active() (cur, next []*notes.Note) {
	if !s.cached || s.curClick != s.click {
		if s.cached && s.nextClick == s.click {
			s.cur = s.next
		} else {
			s.cur = s.r.index.Query(s.click)
		}
		s.curClick = s.click
		s.nextClick = s.click + 1
		s.next = s.r.index.Query(s.nextClick)
		s.cached = true
	}
	return s.cur, s.next
}

func (s *Stream) advance() {
	if !s.right {
		s.right = true
		return
	}
	s.right = false
	s.sample++
	if s.sample%s.r.samplesPerClick == 0 {
		s.click++
	}
}
