package organya

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	intaudio "github.com/cbegin/organya-go/internal/audio"
	intfx "github.com/cbegin/organya-go/internal/effects"
)

// PlaybackEvent carries playback events from Watch().
type PlaybackEvent struct {
	Kind int // EventLoopCompleted, EventPlaybackEnded or EventRenderFailed
	Loop int // completed loop count for EventLoopCompleted
	Err  error
}

const (
	EventLoopCompleted int = iota
	EventPlaybackEnded
	EventRenderFailed
)

type Backend = intaudio.Backend

const (
	BackendEbiten = intaudio.BackendEbiten
	BackendOto    = intaudio.BackendOto
)

type PlayerOption func(*playerConfig)

type playerConfig struct {
	sampleRate int
	loops      int
	backend    Backend
	limit      bool
	sampleTap  func([]float32)
}

func defaultPlayerConfig() playerConfig {
	return playerConfig{sampleRate: DefaultSampleRate, backend: BackendEbiten}
}

func WithSampleRate(rate int) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleRate = rate
	}
}

// WithLoopCount replays the song's loop section n extra times; a negative
// count loops until Stop.
func WithLoopCount(n int) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.loops = n
	}
}

func WithBackend(b Backend) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.backend = b
	}
}

// WithLimiter keeps the device output under full scale. Overlapping notes
// can sum past it; without a limiter the device clips.
func WithLimiter(enabled bool) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.limit = enabled
	}
}

// WithSampleTap installs a callback invoked with each generated stereo buffer.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) PlayerOption {
	return func(cfg *playerConfig) {
		cfg.sampleTap = tap
	}
}

type Player struct {
	mu         sync.Mutex
	cfg        playerConfig
	audio      intaudio.Output
	source     *streamSource
	volumeBits atomic.Uint64
	done       chan struct{}
	eventCh    chan PlaybackEvent
	eventChMu  sync.Mutex
}

// streamSource adapts a synth stream to the audio SampleSource contract and
// reports loop and end-of-song events.
type streamSource struct {
	stream    *Stream
	gain      *atomic.Uint64
	chain     *intfx.Chain
	sampleTap func([]float32)
	ended     atomic.Bool
	onEvent   func(PlaybackEvent)
}

func (s *streamSource) Process(dst []float32) {
	before := s.stream.LoopsDone()
	s.stream.Process(dst)
	if after := s.stream.LoopsDone(); after > before {
		for l := before + 1; l <= after; l++ {
			s.onEvent(PlaybackEvent{Kind: EventLoopCompleted, Loop: l})
		}
	}
	if g := math.Float64frombits(s.gain.Load()); g != 1 {
		for i := range dst {
			dst[i] *= float32(g)
		}
	}
	s.chain.ProcessInterleaved(dst)
	if s.sampleTap != nil {
		s.sampleTap(dst)
	}
	if s.stream.Finished() && s.ended.CompareAndSwap(false, true) {
		if err := s.stream.Err(); err != nil {
			s.onEvent(PlaybackEvent{Kind: EventRenderFailed, Err: err})
		}
		s.onEvent(PlaybackEvent{Kind: EventPlaybackEnded})
	}
}

func (s *streamSource) Finished() bool {
	return s.stream.Finished()
}

func NewPlayer(opts ...PlayerOption) (*Player, error) {
	cfg := defaultPlayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	switch cfg.backend {
	case BackendEbiten, BackendOto:
	default:
		return nil, &intaudio.UnknownBackendError{Name: string(cfg.backend)}
	}
	p := &Player{cfg: cfg}
	p.volumeBits.Store(math.Float64bits(1))
	return p, nil
}

// Play starts rendering song on the audio device, replacing any current
// playback.
func (p *Player) Play(song *Song, bank Bank) error {
	r, err := NewRenderer(song, bank, p.cfg.sampleRate)
	if err != nil {
		return err
	}
	return p.PlayRenderer(r)
}

// PlayRenderer starts a new stream over an already built renderer.
func (p *Player) PlayRenderer(r *Renderer) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Signal any existing Wait() that the previous playback was replaced
	if p.done != nil {
		close(p.done)
	}
	p.done = make(chan struct{})

	src := &streamSource{
		stream:    r.NewLoopingStream(p.cfg.loops),
		gain:      &p.volumeBits,
		sampleTap: p.cfg.sampleTap,
	}
	if p.cfg.limit {
		src.chain = intfx.NewChain(intfx.DefaultLimiter(r.SampleRate()))
	}
	src.onEvent = func(ev PlaybackEvent) {
		p.sendEvent(ev)
		if ev.Kind == EventPlaybackEnded {
			p.signalDone()
		}
	}

	backend, err := intaudio.NewOutput(p.cfg.backend, r.SampleRate(), src)
	if err != nil {
		return err
	}
	if p.audio != nil {
		_ = p.audio.Stop()
	}
	p.audio = backend
	p.source = src
	p.audio.Play()
	return nil
}

func (p *Player) sendEvent(ev PlaybackEvent) {
	p.eventChMu.Lock()
	ch := p.eventCh
	p.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}

func (p *Player) signalDone() {
	p.mu.Lock()
	done := p.done
	p.done = nil
	p.mu.Unlock()
	if done != nil {
		close(done)
	}
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Pause()
	}
}

func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio != nil {
		p.audio.Play()
	}
}

// IsPlaying reports whether the device is currently pulling samples.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.audio != nil && p.audio.IsPlaying()
}

func (p *Player) Stop() error {
	p.mu.Lock()
	if p.audio == nil {
		p.mu.Unlock()
		return nil
	}
	err := p.audio.Stop()
	p.audio = nil
	p.source = nil
	done := p.done
	p.done = nil
	p.mu.Unlock()
	p.sendEvent(PlaybackEvent{Kind: EventPlaybackEnded})
	if done != nil {
		close(done)
	}
	return err
}

// Wait blocks until the current playback ends. With infinite looping Wait
// blocks until Stop. It returns immediately if nothing is playing.
func (p *Player) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Watch returns a channel that receives playback events. The channel is
// buffered (cap 8); receive in a goroutine to avoid dropping events. Only the
// most recent Watch() channel receives events; call Watch before Play.
func (p *Player) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 8)
	p.eventChMu.Lock()
	p.eventCh = ch
	p.eventChMu.Unlock()
	return ch
}

// SetMasterVolume sets the runtime output scalar. 1.0 is default. It takes
// effect immediately on the audio thread.
func (p *Player) SetMasterVolume(volume float64) {
	if volume < 0 {
		volume = 0
	}
	p.volumeBits.Store(math.Float64bits(volume))
}

func (p *Player) MasterVolume() float64 {
	return math.Float64frombits(p.volumeBits.Load())
}

// RenderPosition returns the click and frame the renderer has reached. It
// runs ahead of what is audible by the device buffer.
func (p *Player) RenderPosition() (click uint32, frame int64) {
	p.mu.Lock()
	src := p.source
	p.mu.Unlock()
	if src == nil {
		return 0, 0
	}
	return src.stream.Position()
}

// PlaybackPosition returns what the listener actually hears right now.
// Returns 0 if not playing.
func (p *Player) PlaybackPosition() time.Duration {
	p.mu.Lock()
	a := p.audio
	p.mu.Unlock()
	if a == nil {
		return 0
	}
	return a.Position()
}

func (p *Player) SampleRate() int { return p.cfg.sampleRate }
