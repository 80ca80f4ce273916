package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cbegin/organya-go"
)

func main() {
	var (
		bankPath   = flag.String("bank", "orgsamp.dat", "path to the instrument bank")
		outPath    = flag.String("out", "", "output WAV path (default: song name with .wav)")
		sampleRate = flag.Int("sample-rate", organya.DefaultSampleRate, "output sample rate")
		format     = flag.String("format", "f32", "sample format: f32|s16")
		loops      = flag.Int("loops", 0, "replay the loop section N extra times")
		limit      = flag.Bool("limit", false, "run the output through a limiter")
		softClip   = flag.Bool("softclip", false, "saturate peaks with a tanh curve")
		gain       = flag.Float64("gain", 1.0, "output gain applied before clipping or limiting")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: org2wav [flags] song.org\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		log.Fatal("expected exactly one song path")
	}
	songPath := flag.Arg(0)
	if *outPath == "" {
		*outPath = strings.TrimSuffix(songPath, filepath.Ext(songPath)) + ".wav"
	}

	song, bank, err := organya.LoadFiles(songPath, *bankPath)
	if err != nil {
		log.Fatal(err)
	}
	r, err := organya.NewRenderer(song, bank, *sampleRate)
	if err != nil {
		log.Fatal(err)
	}

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatal(err)
	}
	start := time.Now()
	opts := organya.WAVOptions{Loops: *loops, Limit: *limit, Gain: float32(*gain), SoftClip: *softClip}
	var frames int64
	switch strings.ToLower(*format) {
	case "f32":
		frames, err = organya.WriteWAVFloat32(f, r, opts)
	case "s16":
		frames, err = organya.WriteWAV16(f, r, opts)
	default:
		err = fmt.Errorf("invalid -format %q (expected f32|s16)", *format)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(*outPath)
		log.Fatal(err)
	}
	log.Printf("wrote %s: %d frames (%.2fs of audio) in %s",
		*outPath, frames, float64(frames)/float64(r.SampleRate()), time.Since(start).Round(time.Millisecond))
}
