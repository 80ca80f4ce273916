package notes

import (
	"github.com/pkg/errors"

	"github.com/cbegin/organya-go/internal/interval"
	"github.com/cbegin/organya-go/internal/org"
)

// ExtractSong extracts every note of every track, in track order.
func ExtractSong(song *org.Song, bank org.Bank) ([]*Note, error) {
	var out []*Note
	for i := range song.Tracks {
		tr := &song.Tracks[i]
		for _, group := range Group(tr.Events) {
			n, ok, err := Extract(group, tr, i, bank)
			if err != nil {
				return nil, errors.WithMessagef(err, "track %d", i)
			}
			if ok {
				out = append(out, n)
			}
		}
	}
	return out, nil
}

// Index answers which notes sound at a given click. It is read-only once
// built and safe for concurrent queries.
type Index struct {
	tree  *interval.Map[uint32, *Note]
	notes []*Note
}

// NewIndex indexes notes by [Position, Position+Duration-1]. Notes with a
// zero duration never sound and are left out.
func NewIndex(notes []*Note) *Index {
	ix := &Index{tree: interval.New[uint32, *Note]()}
	for _, n := range notes {
		if n.Duration == 0 {
			continue
		}
		if err := ix.tree.Insert(n.Position, n.End(), n); err != nil {
			continue
		}
		ix.notes = append(ix.notes, n)
	}
	// Build the search structure now rather than on the first render query.
	ix.tree.Query(0)
	return ix
}

// Query returns the notes active at click, in extraction order.
func (ix *Index) Query(click uint32) []*Note {
	return ix.tree.Query(click)
}

// Len returns the number of indexed notes.
func (ix *Index) Len() int { return len(ix.notes) }

// Notes returns the indexed notes in extraction order.
func (ix *Index) Notes() []*Note { return ix.notes }

// LastClick returns the final click at which any indexed note sounds.
func (ix *Index) LastClick() uint32 {
	var last uint32
	for _, n := range ix.notes {
		if e := n.End(); e > last {
			last = e
		}
	}
	return last
}
