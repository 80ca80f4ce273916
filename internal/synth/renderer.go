// Package synth renders extracted notes to interleaved stereo float32 PCM.
//
// A Renderer is built once per song and never mutated afterwards, so any
// number of Streams may render it concurrently. Each Stream owns its cursor
// and must be used from one goroutine at a time.
package synth

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/cbegin/organya-go/internal/notes"
	"github.com/cbegin/organya-go/internal/org"
)

// DefaultSampleRate is the output rate used when Options leaves it unset.
const DefaultSampleRate = 41100

// crossfadeWindow is the number of sample frames before a click boundary over
// which the output blends into the next click's mix.
const crossfadeWindow = 500

// tuningCenter is the frequency offset that leaves a track at concert pitch.
const tuningCenter = 1000

// PointsPerSecond is the wavetable read rate per semitone, C through B.
var PointsPerSecond = [12]int64{
	33408, // C
	35584, // C#
	37632, // D
	39808, // D#
	42112, // E
	44672, // F
	47488, // F#
	50048, // G
	52992, // G#
	56320, // A
	59648, // A#
	63232, // B
}

// Options configures a Renderer.
type Options struct {
	SampleRate int
}

// Renderer holds the immutable, shareable state of one song render.
type Renderer struct {
	sampleRate      int
	samplesPerClick int64
	loopStart       uint32
	loopEnd         uint32
	index           *notes.Index
}

// New extracts and indexes the notes of song.
func New(song *org.Song, bank org.Bank, opts Options) (*Renderer, error) {
	ns, err := notes.ExtractSong(song, bank)
	if err != nil {
		return nil, errors.WithMessage(err, "extract notes")
	}
	return NewFromNotes(ns, song.ClickLength.Seconds(), song.LoopStart, song.LoopEnd, opts)
}

// NewFromNotes builds a renderer from already extracted notes.
func NewFromNotes(ns []*notes.Note, clickSeconds float64, loopStart, loopEnd uint32, opts Options) (*Renderer, error) {
	if opts.SampleRate == 0 {
		opts.SampleRate = DefaultSampleRate
	}
	if opts.SampleRate < 0 {
		return nil, errors.Errorf("sample rate %d must be positive", opts.SampleRate)
	}
	spc := int64(math.Round(float64(opts.SampleRate) * clickSeconds))
	if spc <= 0 {
		return nil, &org.FormatError{Op: "header", Err: fmt.Errorf("click length %gs yields no samples at %d Hz", clickSeconds, opts.SampleRate)}
	}
	return &Renderer{
		sampleRate:      opts.SampleRate,
		samplesPerClick: spc,
		loopStart:       loopStart,
		loopEnd:         loopEnd,
		index:           notes.NewIndex(ns),
	}, nil
}

func (r *Renderer) SampleRate() int        { return r.sampleRate }
func (r *Renderer) SamplesPerClick() int64 { return r.samplesPerClick }
func (r *Renderer) LoopStart() uint32      { return r.loopStart }
func (r *Renderer) LoopEnd() uint32        { return r.loopEnd }
func (r *Renderer) Index() *notes.Index    { return r.index }

func (r *Renderer) endSample() int64 { return r.samplesPerClick * int64(r.loopEnd) }

// Frames returns the number of stereo frames a non-looping stream produces.
func (r *Renderer) Frames() int64 { return r.endSample() }

// NewStream returns a cursor at click 0 that stops at the loop end.
func (r *Renderer) NewStream() *Stream {
	return &Stream{r: r}
}

// NewLoopingStream returns a cursor that jumps back to the loop start loops
// times on reaching the loop end before stopping. A negative count loops
// forever. Songs whose loop start is not before the loop end never loop.
func (r *Renderer) NewLoopingStream(loops int) *Stream {
	return &Stream{r: r, loopsLeft: loops}
}

// NoteSample returns the contribution of n at the given global sample index,
// using the automation in effect at click and the pan law of the requested
// channel.
func (r *Renderer) NoteSample(n *notes.Note, sample int64, click uint32, right bool) (float32, error) {
	offset := sample - int64(n.Position)*r.samplesPerClick
	pointRate := PointsPerSecond[n.Chroma()] + (int64(n.FrequencyOffset) - tuningCenter)
	pos := float64(pointRate) / float64(r.sampleRate) * float64(offset)

	idx, err := PointIndex(n.Octave(), int64(pos))
	if err != nil {
		return 0, err
	}
	a := unit(n.Instrument.Samples[idx])
	b := unit(n.Instrument.Samples[(idx+1)%org.WaveLen])
	frac := float32(pos - math.Trunc(pos))
	v := (1-frac)*a + frac*b

	gain := VolumeGain(n.VolumeAt(click)) * PanGain(n.PanAt(click), right)
	return gain * v, nil
}

// PointIndex maps an integer wavetable position to a table index for the
// given octave. Low octaves step through the table more slowly, high octaves
// skip ahead, so one fixed-length table serves every pitch.
func PointIndex(octave int, point int64) (int, error) {
	var idx int64
	switch {
	case octave == 0:
		idx = point >> 2
	case octave == 1:
		idx = point >> 1
	case octave >= 2 && octave <= 7:
		idx = (point - point%2) << (octave - 2)
	default:
		return 0, &org.RangeError{What: "octave", Value: int64(octave)}
	}
	idx %= org.WaveLen
	if idx < 0 {
		idx += org.WaveLen
	}
	return int(idx), nil
}

// VolumeGain applies the logarithmic taper: 1 is unity, 0 is one decade down.
func VolumeGain(v float32) float32 {
	return float32(math.Pow(10, float64(v)-1))
}

// PanGain attenuates a channel only when the note is panned toward the
// opposite side. Center pan leaves both channels at unity.
func PanGain(pan float32, right bool) float32 {
	switch {
	case right && pan < 0.5:
		return float32(math.Pow(20, float64(2*pan-1)))
	case !right && pan > 0.5:
		return float32(math.Pow(20, float64(1-2*pan)))
	}
	return 1
}

// unit maps a signed byte from [-128, 127] onto [-1, 1].
func unit(s int8) float32 {
	return (float32(s)+128)*2/255 - 1
}
