package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cbegin/organya-go"
	"github.com/cbegin/organya-go/internal/org"
)

const (
	meterFrames = 2048
	meterFloor  = -48.0
	volumeStep  = 0.1
	maxVolume   = 2.0
)

var noteNames = [12]string{"C-", "C#", "D-", "D#", "E-", "F-", "F#", "G-", "G#", "A-", "A#", "B-"}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4")).Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	noteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	idleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	meterStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	hotStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

type tickMsg struct{}

type playbackMsg organya.PlaybackEvent

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second/30, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func waitForEvent(ch <-chan organya.PlaybackEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return playbackMsg(ev)
	}
}

type model struct {
	player   *organya.Player
	renderer *organya.Renderer
	song     *organya.Song
	meter    *meter
	events   <-chan organya.PlaybackEvent
	name     string

	width   int
	click   uint32
	peakDB  float64
	rmsDB   float64
	loops   int
	paused  bool
	ended   bool
	status  string
	lastErr error
}

func newModel(path string, song *organya.Song, r *organya.Renderer, pl *organya.Player, m *meter, events <-chan organya.PlaybackEvent) model {
	return model{
		player:   pl,
		renderer: r,
		song:     song,
		meter:    m,
		events:   events,
		name:     filepath.Base(path),
		width:    80,
		peakDB:   meterFloor,
		rmsDB:    meterFloor,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), waitForEvent(m.events))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		if !m.ended {
			m.click, _ = m.player.RenderPosition()
			pos := int64(m.player.PlaybackPosition().Seconds() * float64(m.player.SampleRate()))
			peak, rms := levels(m.meter.Snapshot(meterFrames, pos))
			m.peakDB = decay(m.peakDB, dbfs(peak, meterFloor))
			m.rmsDB = decay(m.rmsDB, dbfs(rms, meterFloor))
		}
		return m, tickCmd()

	case playbackMsg:
		switch msg.Kind {
		case organya.EventLoopCompleted:
			m.loops = msg.Loop
		case organya.EventRenderFailed:
			m.lastErr = msg.Err
		case organya.EventPlaybackEnded:
			m.ended = true
			m.peakDB, m.rmsDB = meterFloor, meterFloor
			m.meter.Reset()
			m.status = "playback completed"
			return m, nil
		}
		return m, waitForEvent(m.events)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case " ":
		if m.ended {
			return m, nil
		}
		if m.paused {
			m.player.Resume()
			m.status = "resumed"
		} else {
			m.player.Pause()
			m.status = "paused"
		}
		m.paused = !m.paused
	case "+", "=":
		m.setVolume(m.player.MasterVolume() + volumeStep)
	case "-", "_":
		m.setVolume(m.player.MasterVolume() - volumeStep)
	}
	return m, nil
}

func (m *model) setVolume(v float64) {
	v = min(max(v, 0), maxVolume)
	m.player.SetMasterVolume(v)
	m.status = fmt.Sprintf("volume %.0f%%", v*100)
}

func (m model) View() string {
	var b strings.Builder
	s := m.song
	b.WriteString(titleStyle.Render("organya " + m.name))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s %s   %s %dms   %s %d/%d   %s %d-%d\n",
		labelStyle.Render("format"), s.Version,
		labelStyle.Render("click"), s.ClickLength.Milliseconds(),
		labelStyle.Render("beat"), s.BeatsPerMeasure, s.ClicksPerBeat,
		labelStyle.Render("loop"), s.LoopStart, s.LoopEnd)
	fmt.Fprintf(&b, "%s %s   %s %d   %s %d\n\n",
		labelStyle.Render("position"), m.positionText(),
		labelStyle.Render("click"), m.click,
		labelStyle.Render("loops"), m.loops)
	b.WriteString(m.progressBar(max(m.width-2, 20)))
	b.WriteString("\n\n")
	b.WriteString(m.trackView())
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("peak ") + m.meterBar(m.peakDB, 40) + fmt.Sprintf(" %6.1f dBFS\n", m.peakDB))
	b.WriteString(labelStyle.Render("rms  ") + m.meterBar(m.rmsDB, 40) + fmt.Sprintf(" %6.1f dBFS\n", m.rmsDB))
	fmt.Fprintf(&b, "%s %.0f%%\n\n", labelStyle.Render("volume"), m.player.MasterVolume()*100)
	if m.lastErr != nil {
		b.WriteString(hotStyle.Render("render error: "+m.lastErr.Error()) + "\n")
	}
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status) + "\n")
	}
	b.WriteString(helpStyle.Render("space pause/resume   +/- volume   q quit"))
	b.WriteString("\n")
	return b.String()
}

// positionText shows the cursor as measure:beat:click.
func (m model) positionText() string {
	cpb := max(uint32(m.song.ClicksPerBeat), 1)
	bpm := max(uint32(m.song.BeatsPerMeasure), 1)
	beat := m.click / cpb
	return fmt.Sprintf("%03d:%d:%d", beat/bpm+1, beat%bpm+1, m.click%cpb+1)
}

func (m model) progressBar(width int) string {
	end := m.song.LoopEnd
	if end == 0 {
		return ""
	}
	cells := make([]rune, width)
	filled := int(min(uint64(m.click), uint64(end)) * uint64(width) / uint64(end))
	loopAt := int(uint64(m.song.LoopStart) * uint64(width) / uint64(end))
	for i := range cells {
		switch {
		case i == loopAt && m.song.LoopStart < end:
			cells[i] = '|'
		case i < filled:
			cells[i] = '='
		default:
			cells[i] = '.'
		}
	}
	return string(cells)
}

func (m model) trackView() string {
	var playing [org.NumTracks]string
	if !m.ended {
		for _, n := range m.renderer.Index().Query(m.click) {
			playing[n.Track] = fmt.Sprintf("%s%d", noteNames[n.Chroma()], n.Octave())
		}
	}
	var b strings.Builder
	for i := range org.NumTracks {
		label := fmt.Sprintf("%02d ", i)
		if i >= org.NumTracks/2 {
			label = fmt.Sprintf("D%d ", i-org.NumTracks/2)
		}
		cell := idleStyle.Render("---")
		if playing[i] != "" {
			cell = noteStyle.Render(playing[i])
		}
		if len(m.song.Tracks[i].Events) == 0 {
			cell = idleStyle.Render("   ")
		}
		b.WriteString(labelStyle.Render(label) + cell + "  ")
		if i%(org.NumTracks/2) == org.NumTracks/2-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m model) meterBar(db float64, width int) string {
	n := int((db - meterFloor) / -meterFloor * float64(width))
	n = min(max(n, 0), width)
	hot := 0
	if db > -3 {
		hot = n - int((-3-meterFloor)/-meterFloor*float64(width))
	}
	hot = max(hot, 0)
	return meterStyle.Render(strings.Repeat("#", n-hot)) +
		hotStyle.Render(strings.Repeat("#", hot)) +
		idleStyle.Render(strings.Repeat(".", width-n))
}

// decay lets the display fall back gradually while rises are immediate.
func decay(shown, now float64) float64 {
	if now >= shown {
		return now
	}
	return max(shown-1.5, now)
}
