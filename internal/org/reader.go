package org

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
)

type fileHeader struct {
	Tag             [6]byte
	ClickMillis     uint16
	BeatsPerMeasure uint8
	ClicksPerBeat   uint8
	LoopStart       uint32
	LoopEnd         uint32
}

type trackHeader struct {
	Frequency  uint16
	Instrument uint8
	Pi         uint8
	Events     uint16
}

// Decode reads a song container. Any structural problem, including a short
// stream, is reported as a *FormatError before any event is interpreted.
func Decode(r io.Reader) (*Song, error) {
	br := bufio.NewReader(r)

	var hdr fileHeader
	if err := readLE(br, &hdr, "header"); err != nil {
		return nil, err
	}
	version, ok := versionTags[string(hdr.Tag[:])]
	if !ok {
		return nil, &FormatError{Op: "header", Err: fmt.Errorf("unsupported version tag %q", hdr.Tag[:])}
	}

	var ths [NumTracks]trackHeader
	if err := readLE(br, &ths, "track headers"); err != nil {
		return nil, err
	}

	song := &Song{
		Version:         version,
		ClickLength:     time.Duration(hdr.ClickMillis) * time.Millisecond,
		BeatsPerMeasure: hdr.BeatsPerMeasure,
		ClicksPerBeat:   hdr.ClicksPerBeat,
		LoopStart:       hdr.LoopStart,
		LoopEnd:         hdr.LoopEnd,
	}
	for i, th := range ths {
		tr := &song.Tracks[i]
		tr.FrequencyOffset = uint32(th.Frequency)
		tr.InstrumentID = th.Instrument
		tr.Pi = th.Pi != 0
		if err := readEvents(br, i, int(th.Events), tr); err != nil {
			return nil, err
		}
	}
	return song, nil
}

// Columns are stored struct-of-arrays: all positions, then all pitches, and
// so on.
func readEvents(r io.Reader, track, n int, tr *Track) error {
	if n == 0 {
		return nil
	}
	positions := make([]uint32, n)
	if err := readLE(r, positions, fmt.Sprintf("track %d positions", track)); err != nil {
		return err
	}
	cols := make([]byte, 4*n)
	if err := readLE(r, cols, fmt.Sprintf("track %d event columns", track)); err != nil {
		return err
	}
	pitches, durations, volumes, pans := cols[:n], cols[n:2*n], cols[2*n:3*n], cols[3*n:]
	tr.Events = make([]Event, n)
	for i := range tr.Events {
		tr.Events[i] = Event{
			Position: positions[i],
			Pitch:    pitches[i],
			Duration: durations[i],
			Volume:   volumes[i],
			Pan:      pans[i],
		}
	}
	return nil
}

// Encode writes the song in the container layout read by Decode.
func (s *Song) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	hdr := fileHeader{
		ClickMillis:     uint16(s.ClickLength / time.Millisecond),
		BeatsPerMeasure: s.BeatsPerMeasure,
		ClicksPerBeat:   s.ClicksPerBeat,
		LoopStart:       s.LoopStart,
		LoopEnd:         s.LoopEnd,
	}
	copy(hdr.Tag[:], s.Version.String())
	if err := binary.Write(bw, binary.LittleEndian, &hdr); err != nil {
		return errors.Wrap(err, "write header")
	}
	var ths [NumTracks]trackHeader
	for i := range s.Tracks {
		tr := &s.Tracks[i]
		if len(tr.Events) > 0xFFFF {
			return errors.Errorf("track %d: %d events exceed the format limit", i, len(tr.Events))
		}
		ths[i] = trackHeader{
			Frequency:  uint16(tr.FrequencyOffset),
			Instrument: tr.InstrumentID,
			Events:     uint16(len(tr.Events)),
		}
		if tr.Pi {
			ths[i].Pi = 1
		}
	}
	if err := binary.Write(bw, binary.LittleEndian, &ths); err != nil {
		return errors.Wrap(err, "write track headers")
	}
	for i := range s.Tracks {
		evs := s.Tracks[i].Events
		n := len(evs)
		positions := make([]uint32, n)
		cols := make([]byte, 4*n)
		for j, ev := range evs {
			positions[j] = ev.Position
			cols[j] = ev.Pitch
			cols[n+j] = ev.Duration
			cols[2*n+j] = ev.Volume
			cols[3*n+j] = ev.Pan
		}
		if err := binary.Write(bw, binary.LittleEndian, positions); err != nil {
			return errors.Wrapf(err, "write track %d positions", i)
		}
		if _, err := bw.Write(cols); err != nil {
			return errors.Wrapf(err, "write track %d event columns", i)
		}
	}
	return bw.Flush()
}

// OpenSong decodes the song stored at path.
func OpenSong(path string) (*Song, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ResourceError{Path: path, Err: err}
	}
	defer f.Close()
	song, err := Decode(f)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return song, nil
}

func readLE(r io.Reader, data any, op string) error {
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return &FormatError{Op: op, Err: err}
	}
	return nil
}
