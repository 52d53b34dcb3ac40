package playlist

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Search applies substring_search's documented filter predicate: an exact,
// case-insensitive substring test against each song's display name,
// preserving song order and introducing no duplicates (§4.5/§8). Focus
// resets to the first visible entry; the current selection is untouched
// even if the new filter hides it — it keeps playing, just off-screen.
func (p *Playlist) Search(query string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	needle := strings.ToLower(query)
	if needle == "" {
		p.filterIndices = p.filterIndices[:0]
		for i := range p.songs {
			p.filterIndices = append(p.filterIndices, i)
		}
	} else {
		p.filterIndices = p.filterIndices[:0]
		for i, s := range p.songs {
			if strings.Contains(strings.ToLower(s.DisplayName), needle) {
				p.filterIndices = append(p.filterIndices, i)
			}
		}
	}
	p.focusedFilterIndex = 0
	if p.shuffle {
		p.reshuffleLocked()
	}
}

// RankedSong is a secondary "did-you-mean" ranking result: not the filter
// itself, just a hint the UI may show alongside an empty or narrow exact
// match, per SPEC_FULL.md's DOMAIN STACK note on C5.
type RankedSong struct {
	SongIndex int
	Song      Song
	Distance  int
}

// FuzzyRank scores every song against query by Levenshtein distance (the
// smaller of the distance to the whole display name and to its closest
// single word) and returns the closest matches, nearest first. It never changes
// filter_indices or focus; it is purely an advisory signal for the UI,
// grounded on Alexander-D-Karpov-amp's internal/search scored-match
// pattern (there applied to songs/albums/authors, here to display names).
func (p *Playlist) FuzzyRank(query string, limit int) []RankedSong {
	p.mu.Lock()
	songs := make([]Song, len(p.songs))
	copy(songs, p.songs)
	p.mu.Unlock()

	if query == "" {
		return nil
	}

	needle := strings.ToLower(query)
	ranked := make([]RankedSong, 0, len(songs))
	for i, s := range songs {
		name := strings.ToLower(s.DisplayName)
		distance := fuzzy.LevenshteinDistance(needle, name)
		for _, word := range strings.Fields(name) {
			if d := fuzzy.LevenshteinDistance(needle, word); d < distance {
				distance = d
			}
		}
		if distance > len(needle)/2+1 {
			continue
		}
		ranked = append(ranked, RankedSong{SongIndex: i, Song: s, Distance: distance})
	}

	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Distance < ranked[j].Distance })

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
