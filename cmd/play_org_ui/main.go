package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cbegin/organya-go"
)

func main() {
	var (
		bankPath   = flag.String("bank", "orgsamp.dat", "path to the instrument bank")
		backend    = flag.String("backend", "ebiten", "audio backend: ebiten|oto")
		sampleRate = flag.Int("sample-rate", organya.DefaultSampleRate, "output sample rate")
		loops      = flag.Int("loops", -1, "replay the loop section N extra times (-1 = forever)")
		volume     = flag.Float64("volume", 1.0, "master volume scalar")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: play_org_ui [flags] song.org\n")
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
	r, err := organya.NewRenderer(song, bank, *sampleRate)
	if err != nil {
		log.Fatal(err)
	}
	m := newMeter()
	pl, err := organya.NewPlayer(
		organya.WithBackend(organya.Backend(strings.ToLower(*backend))),
		organya.WithSampleRate(*sampleRate),
		organya.WithLoopCount(*loops),
		organya.WithLimiter(true),
		organya.WithSampleTap(m.Tap),
	)
	if err != nil {
		log.Fatal(err)
	}
	pl.SetMasterVolume(*volume)
	events := pl.Watch()
	if err := pl.PlayRenderer(r); err != nil {
		log.Fatal(err)
	}

	prog := tea.NewProgram(newModel(flag.Arg(0), song, r, pl, m, events), tea.WithAltScreen())
	_, runErr := prog.Run()
	if err := pl.Stop(); err != nil {
		log.Printf("stop audio: %v", err)
	}
	if runErr != nil {
		log.Fatal(runErr)
	}
}
