package notes

import "github.com/cbegin/organya-go/internal/org"

// IsNoteStart reports whether ev begins a new note.
func IsNoteStart(ev org.Event) bool {
	return ev.Pitch != org.Sentinel
}

// Group splits a track's events into per-note groups. A new group starts at
// every note-start event once the current group holds at least one event, so
// a track that opens with continuation events collects them into a leading
// group of their own. Returned groups alias events.
func Group(events []org.Event) [][]org.Event {
	var groups [][]org.Event
	start := 0
	for i, ev := range events {
		if IsNoteStart(ev) && i > start {
			groups = append(groups, events[start:i:i])
			start = i
		}
	}
	if start < len(events) {
		groups = append(groups, events[start:])
	}
	return groups
}
