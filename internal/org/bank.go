package org

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

// DecodeBank reads an instrument bank: a count byte, three reserved bytes,
// then one 256-sample signed wavetable per instrument.
func DecodeBank(r io.Reader) (Bank, error) {
	br := bufio.NewReader(r)
	var hdr [4]byte
	if err := readLE(br, &hdr, "bank header"); err != nil {
		return nil, err
	}
	bank := make(Bank, hdr[0])
	for i := range bank {
		inst := &Instrument{ID: i}
		if err := readLE(br, &inst.Samples, "bank wavetable"); err != nil {
			return nil, errors.WithMessagef(err, "instrument %d", i)
		}
		bank[i] = inst
	}
	return bank, nil
}

// Encode writes the bank in the layout read by DecodeBank.
func (b Bank) Encode(w io.Writer) error {
	if len(b) > 0xFF {
		return errors.Errorf("bank holds %d instruments, format limit is 255", len(b))
	}
	bw := bufio.NewWriter(w)
	if _, err := bw.Write([]byte{byte(len(b)), 0, 0, 0}); err != nil {
		return errors.Wrap(err, "write bank header")
	}
	for i, inst := range b {
		var samples [WaveLen]int8
		if inst != nil {
			samples = inst.Samples
		}
		if err := binary.Write(bw, binary.LittleEndian, &samples); err != nil {
			return errors.Wrapf(err, "write instrument %d", i)
		}
	}
	return bw.Flush()
}

// OpenBank decodes the instrument bank stored at path.
func OpenBank(path string) (Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ResourceError{Path: path, Err: err}
	}
	defer f.Close()
	bank, err := DecodeBank(f)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return bank, nil
}
