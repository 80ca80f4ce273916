// Package org holds the Organya song and instrument bank records and the
// little-endian readers and writers for both resources.
package org

import (
	"fmt"
	"time"
)

// NumTracks is the fixed number of tracks in every song.
const NumTracks = 16

// Sentinel marks "no change" in the pitch, volume and pan columns.
const Sentinel uint8 = 255

// Format defaults used when a field has never been set.
const (
	DefaultVolume uint8 = 200
	DefaultPan    uint8 = 6
)

// Normalization divisors for volume and pan.
const (
	MaxVolume = 254
	MaxPan    = 12
)

// WaveLen is the length of every instrument wavetable.
const WaveLen = 256

// Version identifies the song container revision.
type Version int

const (
	// Org02 is the original format.
	Org02 Version = iota
	// Org03 adds the later percussion set; the layout is identical.
	Org03
)

var versionTags = map[string]Version{
	"Org-02": Org02,
	"Org-03": Org03,
}

func (v Version) String() string {
	switch v {
	case Org02:
		return "Org-02"
	case Org03:
		return "Org-03"
	}
	return fmt.Sprintf("Version(%d)", int(v))
}

// Event is one tick-indexed record of a track.
type Event struct {
	Position uint32 // click index, non-decreasing within a track
	Pitch    uint8  // 0-95, Sentinel = continuation
	Duration uint8  // clicks
	Volume   uint8  // 0-254, Sentinel = no change
	Pan      uint8  // 0-12 (6 = center), Sentinel = no change
}

// Track is one of the sixteen fixed voices of a song.
type Track struct {
	FrequencyOffset uint32
	InstrumentID    uint8
	Pi              bool // carried through; not used for synthesis
	Events          []Event
}

// Song is a fully decoded container.
type Song struct {
	Version         Version
	ClickLength     time.Duration
	BeatsPerMeasure uint8
	ClicksPerBeat   uint8
	LoopStart       uint32
	LoopEnd         uint32
	Tracks          [NumTracks]Track
}

// EventCount returns the number of events across all tracks.
func (s *Song) EventCount() int {
	n := 0
	for i := range s.Tracks {
		n += len(s.Tracks[i].Events)
	}
	return n
}

// Instrument is a fixed 256-entry signed wavetable. Instruments are never
// modified after the bank is loaded; notes refer to them by pointer.
type Instrument struct {
	ID      int
	Samples [WaveLen]int8
}

// Bank is the ordered instrument set, indexed by instrument id.
type Bank []*Instrument

// Lookup returns the instrument with the given id.
func (b Bank) Lookup(id uint8) (*Instrument, error) {
	if int(id) >= len(b) || b[id] == nil {
		return nil, &RangeError{What: "instrument", Value: int64(id)}
	}
	return b[id], nil
}
