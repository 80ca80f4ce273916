package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

type otoOutput struct {
	player     *oto.Player
	reader     *StreamReader
	sampleRate int
}

var (
	otoContextOnce sync.Once
	otoContext     *oto.Context
	otoContextErr  error
	otoSampleRate  int
)

func sharedOtoContext(sampleRate int) (*oto.Context, error) {
	otoContextOnce.Do(func() {
		otoSampleRate = sampleRate
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 2,
			Format:       oto.FormatFloat32LE,
		})
		if err != nil {
			otoContextErr = err
			return
		}
		<-ready
		otoContext = ctx
	})
	if otoContextErr != nil {
		return nil, otoContextErr
	}
	if otoSampleRate != sampleRate {
		return nil, fmt.Errorf("oto context already initialized at %d Hz (requested %d Hz)", otoSampleRate, sampleRate)
	}
	return otoContext, nil
}

// NewOtoOutput plays source directly through an oto context.
func NewOtoOutput(sampleRate int, source SampleSource) (Output, error) {
	ctx, err := sharedOtoContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := NewStreamReader(source)
	pl := ctx.NewPlayer(reader)
	// 100ms of device buffering.
	pl.SetBufferSize(sampleRate / 10 * bytesPerFrame)
	return &otoOutput{player: pl, reader: reader, sampleRate: sampleRate}, nil
}

func (p *otoOutput) Play()           { p.player.Play() }
func (p *otoOutput) Pause()          { p.player.Pause() }
func (p *otoOutput) IsPlaying() bool { return p.player.IsPlaying() }

// Position subtracts what oto still holds in its buffer from what has been
// pulled from the source.
func (p *otoOutput) Position() time.Duration {
	played := p.reader.BytesRead() - int64(p.player.BufferedSize())
	if played < 0 {
		played = 0
	}
	frames := played / bytesPerFrame
	return time.Duration(frames) * time.Second / time.Duration(p.sampleRate)
}

func (p *otoOutput) Stop() error {
	p.player.Pause()
	if err := p.player.Close(); err != nil {
		return err
	}
	return p.reader.Close()
}
