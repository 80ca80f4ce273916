package organya

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"

	intfx "github.com/cbegin/organya-go/internal/effects"
	"github.com/cbegin/organya-go/internal/org"
	intsynth "github.com/cbegin/organya-go/internal/synth"
)

// DefaultSampleRate is the output rate of the reference renderer.
const DefaultSampleRate = intsynth.DefaultSampleRate

// renderChunk is the number of interleaved values pulled per write.
const renderChunk = 8192

type (
	Song     = org.Song
	Bank     = org.Bank
	Renderer = intsynth.Renderer
	Stream   = intsynth.Stream
)

// Load decodes a song and the instrument bank it plays with.
func Load(song, bank io.Reader) (*Song, Bank, error) {
	s, err := org.Decode(song)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "decode song")
	}
	b, err := org.DecodeBank(bank)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "decode instrument bank")
	}
	return s, b, nil
}

// LoadFiles is Load for paths on disk.
func LoadFiles(songPath, bankPath string) (*Song, Bank, error) {
	s, err := org.OpenSong(songPath)
	if err != nil {
		return nil, nil, err
	}
	b, err := org.OpenBank(bankPath)
	if err != nil {
		return nil, nil, err
	}
	return s, b, nil
}

// NewRenderer extracts and indexes the notes of song at sampleRate.
func NewRenderer(song *Song, bank Bank, sampleRate int) (*Renderer, error) {
	return intsynth.New(song, bank, intsynth.Options{SampleRate: sampleRate})
}

// RenderSamples renders song once from click 0 to its loop end and returns
// the interleaved stereo output.
func RenderSamples(song *Song, bank Bank, sampleRate int) ([]float32, error) {
	r, err := NewRenderer(song, bank, sampleRate)
	if err != nil {
		return nil, err
	}
	out := make([]float32, 2*r.Frames())
	n, err := r.NewStream().Read(out)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return out[:n], nil
}

// WAVOptions controls file export.
type WAVOptions struct {
	// Loops replays the loop section this many extra times.
	Loops int
	// Limit runs the output through the default limiter before writing.
	Limit bool
	// Gain scales the output before any limiting. Zero means unity.
	Gain float32
	// SoftClip saturates peaks with a tanh curve instead of limiting them.
	SoftClip bool
}

// WriteWAVFloat32 streams the render of r to w as a 32-bit float WAV file.
// The sample count must be known up front, so Loops may not be negative.
func WriteWAVFloat32(w io.Writer, r *Renderer, opts WAVOptions) (frames int64, err error) {
	if opts.Loops < 0 {
		return 0, errors.New("float WAV export needs a finite loop count")
	}
	total := r.Frames()
	if r.LoopStart() < r.LoopEnd() {
		total += int64(opts.Loops) * int64(r.LoopEnd()-r.LoopStart()) * r.SamplesPerClick()
	}
	if _, err := w.Write(wavFloatHeader(int(total)*2, r.SampleRate(), 2)); err != nil {
		return 0, errors.Wrap(err, "write wav header")
	}
	chain := outputChain(r.SampleRate(), opts)
	s := r.NewLoopingStream(opts.Loops)
	buf := make([]float32, renderChunk)
	raw := make([]byte, 4*renderChunk)
	for {
		n, rerr := s.Read(buf)
		chain.ProcessInterleaved(buf[:n])
		for i, v := range buf[:n] {
			binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
		}
		if _, err := w.Write(raw[:n*4]); err != nil {
			return frames, errors.Wrap(err, "write wav samples")
		}
		frames += int64(n / 2)
		if rerr == io.EOF {
			return frames, nil
		}
		if rerr != nil {
			return frames, rerr
		}
	}
}

// WriteWAV16 streams the render of r to w as 16-bit PCM. Values beyond full
// scale are clamped here, at the file boundary.
func WriteWAV16(w io.WriteSeeker, r *Renderer, opts WAVOptions) (frames int64, err error) {
	if opts.Loops < 0 {
		return 0, errors.New("WAV export needs a finite loop count")
	}
	enc := wav.NewEncoder(w, r.SampleRate(), 16, 2, 1)
	chain := outputChain(r.SampleRate(), opts)
	s := r.NewLoopingStream(opts.Loops)
	buf := make([]float32, renderChunk)
	ib := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: r.SampleRate()},
		Data:           make([]int, renderChunk),
		SourceBitDepth: 16,
	}
	for {
		n, rerr := s.Read(buf)
		chain.ProcessInterleaved(buf[:n])
		ib.Data = ib.Data[:n]
		for i, v := range buf[:n] {
			ib.Data[i] = int(math.Round(float64(clamp(v)) * 32767))
		}
		if n > 0 {
			if err := enc.Write(ib); err != nil {
				return frames, errors.Wrap(err, "write wav samples")
			}
		}
		frames += int64(n / 2)
		if rerr != nil && rerr != io.EOF {
			return frames, rerr
		}
		if rerr == io.EOF {
			break
		}
	}
	if err := enc.Close(); err != nil {
		return frames, errors.Wrap(err, "finalize wav")
	}
	return frames, nil
}

func outputChain(sampleRate int, opts WAVOptions) *intfx.Chain {
	var fx []intfx.Effector
	if opts.Gain != 0 && opts.Gain != 1 {
		fx = append(fx, intfx.Gain(opts.Gain))
	}
	if opts.SoftClip {
		fx = append(fx, intfx.NewSoftClip(1, 1))
	}
	if opts.Limit {
		fx = append(fx, intfx.DefaultLimiter(sampleRate))
	}
	if len(fx) == 0 {
		return nil
	}
	return intfx.NewChain(fx...)
}

func clamp(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// EncodeWAVFloat32LE wraps interleaved samples in a 32-bit float WAV file.
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	out := make([]byte, 44+len(samples)*4)
	copy(out, wavFloatHeader(len(samples), sampleRate, channels))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}

func wavFloatHeader(numSamples, sampleRate, channels int) []byte {
	dataSize := numSamples * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	return out
}
