// Package notes turns raw per-tick track events into notes carrying
// piecewise-constant volume and pan automation, and indexes them by the
// clicks during which they sound.
package notes

import (
	"math"

	"github.com/pkg/errors"

	"github.com/cbegin/organya-go/internal/interval"
	"github.com/cbegin/organya-go/internal/org"
)

// Note is a continuous musical event built from one event group.
//
// Volume and Pan cover every click in [0, math.MaxUint32]. When more than one
// interval covers a click the earliest inserted one wins; well-formed input
// never produces conflicting values.
type Note struct {
	Track           int
	Position        uint32
	Duration        uint32
	Pitch           uint8
	FrequencyOffset uint32
	Instrument      *org.Instrument
	Volume          *interval.Map[uint32, float32]
	Pan             *interval.Map[uint32, float32]
}

// Octave returns pitch / 12.
func (n *Note) Octave() int { return int(n.Pitch) / 12 }

// Chroma returns the semitone within the octave.
func (n *Note) Chroma() int { return int(n.Pitch) % 12 }

// End returns the last click during which the note sounds. It is only
// meaningful for notes with a non-zero duration.
func (n *Note) End() uint32 {
	end := uint64(n.Position) + uint64(n.Duration) - 1
	if end > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(end)
}

// VolumeAt returns the normalized volume in effect at click.
func (n *Note) VolumeAt(click uint32) float32 {
	v, _ := n.Volume.First(click)
	return v
}

// PanAt returns the normalized pan in effect at click (0 left, 1 right).
func (n *Note) PanAt(click uint32) float32 {
	v, _ := n.Pan.First(click)
	return v
}

// NormalizeVolume maps a raw volume byte onto [0, 1].
func NormalizeVolume(raw uint8) float32 { return float32(raw) / org.MaxVolume }

// NormalizePan maps a raw pan byte onto [0, 1].
func NormalizePan(raw uint8) float32 { return float32(raw) / org.MaxPan }

// Extract builds the note described by group. Groups that do not begin with
// a note start carry no pitch and yield ok == false.
func Extract(group []org.Event, track *org.Track, trackIndex int, bank org.Bank) (n *Note, ok bool, err error) {
	if len(group) == 0 || !IsNoteStart(group[0]) {
		return nil, false, nil
	}
	inst, err := bank.Lookup(track.InstrumentID)
	if err != nil {
		return nil, false, err
	}
	first, last := group[0], group[len(group)-1]

	duration := uint32(first.Duration)
	// A trailing event past the nominal end still changes automation, so the
	// note has to stay audible until it.
	if uint64(last.Position) > uint64(first.Position)+uint64(first.Duration) {
		duration = last.Position - first.Position
	}

	volume, err := automation(group, volumeColumn)
	if err != nil {
		return nil, false, errors.WithMessage(err, "volume")
	}
	pan, err := automation(group, panColumn)
	if err != nil {
		return nil, false, errors.WithMessage(err, "pan")
	}
	return &Note{
		Track:           trackIndex,
		Position:        first.Position,
		Duration:        duration,
		Pitch:           first.Pitch,
		FrequencyOffset: track.FrequencyOffset,
		Instrument:      inst,
		Volume:          volume,
		Pan:             pan,
	}, true, nil
}

// column selects one automation lane of an event.
type column struct {
	raw       func(org.Event) uint8
	fallback  uint8
	normalize func(uint8) float32
}

var (
	volumeColumn = column{
		raw:       func(ev org.Event) uint8 { return ev.Volume },
		fallback:  org.DefaultVolume,
		normalize: NormalizeVolume,
	}
	panColumn = column{
		raw:       func(ev org.Event) uint8 { return ev.Pan },
		fallback:  org.DefaultPan,
		normalize: NormalizePan,
	}
)

// value normalizes the lane of ev. Only a group's first event can reach here
// with a sentinel; it takes the format default instead.
func (c column) value(ev org.Event) float32 {
	raw := c.raw(ev)
	if raw == org.Sentinel {
		raw = c.fallback
	}
	return c.normalize(raw)
}

func automation(group []org.Event, c column) (*interval.Map[uint32, float32], error) {
	m := interval.New[uint32, float32]()
	first := group[0]
	prev := first
	for _, ev := range group[1:] {
		if c.raw(ev) == org.Sentinel {
			continue
		}
		// Two changes on the same click leave no room for the earlier one.
		if ev.Position > prev.Position {
			if err := m.Insert(prev.Position, ev.Position-1, c.value(prev)); err != nil {
				return nil, err
			}
		}
		prev = ev
	}
	if err := m.Insert(0, first.Position, c.value(first)); err != nil {
		return nil, err
	}
	if err := m.Insert(prev.Position, math.MaxUint32, c.value(prev)); err != nil {
		return nil, err
	}
	return m, nil
}
