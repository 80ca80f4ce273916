package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/cbegin/organya-go"
)

func main() {
	var (
		bankPath   = flag.String("bank", "orgsamp.dat", "path to the instrument bank")
		backend    = flag.String("backend", "ebiten", "audio backend: ebiten|oto")
		sampleRate = flag.Int("sample-rate", organya.DefaultSampleRate, "output sample rate")
		loops      = flag.Int("loops", 0, "replay the loop section N extra times (-1 = forever)")
		volume     = flag.Float64("volume", 1.0, "master volume scalar")
		limit      = flag.Bool("limit", true, "run the output through a limiter")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: play_org [flags] song.org\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		log.Fatal("expected exactly one song path")
	}

	song, bank, err := organya.LoadFiles(flag.Arg(0), *bankPath)
	if err != nil {
		log.Fatal(err)
	}
	pl, err := organya.NewPlayer(
		organya.WithBackend(organya.Backend(strings.ToLower(*backend))),
		organya.WithSampleRate(*sampleRate),
		organya.WithLoopCount(*loops),
		organya.WithLimiter(*limit),
	)
	if err != nil {
		log.Fatal(err)
	}
	pl.SetMasterVolume(*volume)
	ch := pl.Watch()
	if err := pl.Play(song, bank); err != nil {
		log.Fatal(err)
	}
	log.Printf("playing %s (%s, %d tracks with events, loop %d-%d)",
		flag.Arg(0), song.Version, activeTracks(song), song.LoopStart, song.LoopEnd)
	for event := range ch {
		switch event.Kind {
		case organya.EventLoopCompleted:
			fmt.Printf("loop %d completed\n", event.Loop)
		case organya.EventRenderFailed:
			log.Printf("render stopped: %v", event.Err)
		case organya.EventPlaybackEnded:
			fmt.Println("playback completed")
			goto done
		}
	}
done:
	pl.Wait()
}

func activeTracks(song *organya.Song) int {
	n := 0
	for _, t := range song.Tracks {
		if len(t.Events) > 0 {
			n++
		}
	}
	return n
}
