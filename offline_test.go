package organya

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"flag"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/wav"

	"github.com/cbegin/organya-go/internal/org"
)

var updateGolden = flag.Bool("update", false, "rewrite golden hashes in testdata")

func squareBank() Bank {
	inst := &org.Instrument{ID: 0}
	for i := range inst.Samples {
		if i%2 == 0 {
			inst.Samples[i] = 127
		} else {
			inst.Samples[i] = -128
		}
	}
	return Bank{inst}
}

func a440Song() *Song {
	song := &Song{
		Version:     org.Org02,
		ClickLength: 100 * time.Millisecond,
		LoopEnd:     4,
	}
	song.Tracks[0] = org.Track{
		FrequencyOffset: 1000,
		Events: []org.Event{
			{Position: 0, Pitch: 45, Duration: 4, Volume: 254, Pan: 6},
		},
	}
	return song
}

// twoVoiceSong exercises automation, panning, overlap and looping.
func twoVoiceSong() *Song {
	song := &Song{
		Version:     org.Org03,
		ClickLength: 50 * time.Millisecond,
		LoopStart:   4,
		LoopEnd:     8,
	}
	song.Tracks[0] = org.Track{FrequencyOffset: 1000, Events: []org.Event{
		{Position: 0, Pitch: 45, Duration: 3, Volume: 254, Pan: 6},
		{Position: 1, Pitch: org.Sentinel, Volume: 120, Pan: 2},
		{Position: 4, Pitch: 57, Duration: 4, Volume: 200, Pan: 10},
	}}
	song.Tracks[5] = org.Track{FrequencyOffset: 990, Events: []org.Event{
		{Position: 2, Pitch: 21, Duration: 5, Volume: 180, Pan: 6},
	}}
	return song
}

func encodeFixture(t *testing.T, song *Song, bank Bank) (songBytes, bankBytes []byte) {
	t.Helper()
	var sb, bb bytes.Buffer
	if err := song.Encode(&sb); err != nil {
		t.Fatalf("encode song: %v", err)
	}
	if err := bank.Encode(&bb); err != nil {
		t.Fatalf("encode bank: %v", err)
	}
	return sb.Bytes(), bb.Bytes()
}

func TestLoadAndRender(t *testing.T) {
	sb, bb := encodeFixture(t, a440Song(), squareBank())
	song, bank, err := Load(bytes.NewReader(sb), bytes.NewReader(bb))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	samples, err := RenderSamples(song, bank, DefaultSampleRate)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if want := 2 * 4110 * 4; len(samples) != want {
		t.Fatalf("rendered %d values, want %d", len(samples), want)
	}
	if samples[0] != 1 || samples[1] != 1 {
		t.Fatalf("first frame = (%v, %v), want (1, 1)", samples[0], samples[1])
	}
}

func TestLoadFilesMissingBank(t *testing.T) {
	sb, _ := encodeFixture(t, a440Song(), squareBank())
	dir := t.TempDir()
	songPath := filepath.Join(dir, "a440.org")
	if err := os.WriteFile(songPath, sb, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, _, err := LoadFiles(songPath, filepath.Join(dir, "orgsamp.dat"))
	var re *org.ResourceError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want *org.ResourceError", err)
	}
}

func TestRenderSamplesReportsCorruptPitch(t *testing.T) {
	song := a440Song()
	song.Tracks[0].Events[0].Pitch = 120
	_, err := RenderSamples(song, squareBank(), DefaultSampleRate)
	var re *org.RangeError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want *org.RangeError", err)
	}
}

func TestGoldenWAVSnapshot(t *testing.T) {
	cases := []struct {
		name string
		file string
		song *Song
	}{
		{name: "a440_square", file: "golden_a440_square.sha256", song: a440Song()},
		{name: "two_voice", file: "golden_two_voice.sha256", song: twoVoiceSong()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			samples, err := RenderSamples(tc.song, squareBank(), DefaultSampleRate)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			again, err := RenderSamples(tc.song, squareBank(), DefaultSampleRate)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			wav := EncodeWAVFloat32LE(samples, DefaultSampleRate, 2)
			if !bytes.Equal(wav, EncodeWAVFloat32LE(again, DefaultSampleRate, 2)) {
				t.Fatalf("render is not reproducible")
			}
			sum := sha256.Sum256(wav)
			got := hex.EncodeToString(sum[:])
			path := filepath.Join("testdata", tc.file)
			if *updateGolden {
				if err := os.MkdirAll("testdata", 0o755); err != nil {
					t.Fatalf("mkdir: %v", err)
				}
				if err := os.WriteFile(path, []byte(got+"\n"), 0o644); err != nil {
					t.Fatalf("write golden hash: %v", err)
				}
				return
			}
			raw, err := os.ReadFile(path)
			if errors.Is(err, os.ErrNotExist) {
				t.Skipf("no golden hash at %s; run go test -update to record one", path)
			}
			if err != nil {
				t.Fatalf("read golden hash: %v", err)
			}
			want := strings.TrimSpace(string(raw))
			if got != want {
				t.Fatalf("golden mismatch\nwant: %s\ngot:  %s", want, got)
			}
		})
	}
}

func TestWriteWAVFloat32MatchesInMemoryEncoding(t *testing.T) {
	song := twoVoiceSong()
	samples, err := RenderSamples(song, squareBank(), 22050)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	r, err := NewRenderer(song, squareBank(), 22050)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	var buf bytes.Buffer
	frames, err := WriteWAVFloat32(&buf, r, WAVOptions{})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if frames != int64(len(samples)/2) {
		t.Fatalf("frames = %d, want %d", frames, len(samples)/2)
	}
	if !bytes.Equal(buf.Bytes(), EncodeWAVFloat32LE(samples, 22050, 2)) {
		t.Fatalf("streamed WAV differs from in-memory encoding")
	}
}

func TestWriteWAVFloat32WithLoops(t *testing.T) {
	r, err := NewRenderer(twoVoiceSong(), squareBank(), 8000)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	var buf bytes.Buffer
	frames, err := WriteWAVFloat32(&buf, r, WAVOptions{Loops: 2, Limit: true})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	want := r.Frames() + 2*int64(r.LoopEnd()-r.LoopStart())*r.SamplesPerClick()
	if frames != want {
		t.Fatalf("frames = %d, want %d", frames, want)
	}
	dataSize := binary.LittleEndian.Uint32(buf.Bytes()[40:])
	if int64(dataSize) != want*8 || buf.Len() != 44+int(dataSize) {
		t.Fatalf("header data size %d does not match %d frames (file %d bytes)", dataSize, want, buf.Len())
	}
	for i := 44; i < buf.Len(); i += 4 {
		v := math.Float32frombits(binary.LittleEndian.Uint32(buf.Bytes()[i:]))
		if math.Abs(float64(v)) > 1 {
			t.Fatalf("limited output exceeded full scale: %v", v)
		}
	}
}

func TestWriteWAV16(t *testing.T) {
	r, err := NewRenderer(a440Song(), squareBank(), 8000)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	frames, err := WriteWAV16(f, r, WAVOptions{})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if frames != r.Frames() {
		t.Fatalf("frames = %d, want %d", frames, r.Frames())
	}

	in, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer in.Close()
	dec := wav.NewDecoder(in)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dec.NumChans != 2 || dec.SampleRate != 8000 || dec.BitDepth != 16 {
		t.Fatalf("format = %d ch, %d Hz, %d bit", dec.NumChans, dec.SampleRate, dec.BitDepth)
	}
	if int64(len(buf.Data)) != 2*r.Frames() {
		t.Fatalf("decoded %d samples, want %d", len(buf.Data), 2*r.Frames())
	}
	if buf.Data[0] != 32767 || buf.Data[1] != 32767 {
		t.Fatalf("first frame = (%d, %d), want full scale", buf.Data[0], buf.Data[1])
	}
}

func TestWriteWAVRejectsEndlessLoops(t *testing.T) {
	r, err := NewRenderer(a440Song(), squareBank(), 8000)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	if _, err := WriteWAVFloat32(&bytes.Buffer{}, r, WAVOptions{Loops: -1}); err == nil {
		t.Fatalf("expected an error for endless loops")
	}
}

func TestWriteWAVFloat32AppliesGain(t *testing.T) {
	r, err := NewRenderer(a440Song(), squareBank(), 8000)
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	var unity, half bytes.Buffer
	if _, err := WriteWAVFloat32(&unity, r, WAVOptions{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := WriteWAVFloat32(&half, r, WAVOptions{Gain: 0.5}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if unity.Len() != half.Len() {
		t.Fatalf("sizes differ: %d vs %d", unity.Len(), half.Len())
	}
	for i := 44; i < unity.Len(); i += 4 {
		a := math.Float32frombits(binary.LittleEndian.Uint32(unity.Bytes()[i:]))
		b := math.Float32frombits(binary.LittleEndian.Uint32(half.Bytes()[i:]))
		if b != a*0.5 {
			t.Fatalf("sample %d = %v, want %v", (i-44)/4, b, a*0.5)
		}
	}
}
