package playlist

import "testing"

func searchTestSongs() []Song {
	return []Song{
		{FullPath: "/1.mp3", DisplayName: "Bohemian Rhapsody"},
		{FullPath: "/2.mp3", DisplayName: "Rhapsody in Blue"},
		{FullPath: "/3.mp3", DisplayName: "Yesterday"},
	}
}

func TestSearchIsCaseInsensitiveSubstring(t *testing.T) {
	p := New(searchTestSongs())
	p.Search("rhapsody")
	idx := p.FilterIndices()
	if len(idx) != 2 || idx[0] != 0 || idx[1] != 1 {
		t.Fatalf("FilterIndices() after Search(\"rhapsody\") = %v, want [0 1]", idx)
	}
}

func TestSearchPreservesOriginalOrder(t *testing.T) {
	p := New(searchTestSongs())
	p.Search("a")
	idx := p.FilterIndices()
	// "Bohemian Rhapsody", "Rhapsody in Blue", "Yesterday" all contain "a".
	if len(idx) != 3 || idx[0] != 0 || idx[1] != 1 || idx[2] != 2 {
		t.Fatalf("FilterIndices() after Search(\"a\") = %v, want order-preserved [0 1 2]", idx)
	}
}

func TestSearchEmptyQueryShowsEverything(t *testing.T) {
	p := New(searchTestSongs())
	p.Search("xyz")
	p.Search("")
	idx := p.FilterIndices()
	if len(idx) != 3 {
		t.Fatalf("FilterIndices() after Search(\"\") = %v, want all 3 songs restored", idx)
	}
}

func TestSearchResetsFocusToFirstMatch(t *testing.T) {
	p := New(searchTestSongs())
	p.FocusLast()
	p.Search("rhapsody")
	if got := p.FocusedFilterIndex(); got != 0 {
		t.Fatalf("FocusedFilterIndex() after Search() = %d, want reset to 0", got)
	}
}

func TestSearchDoesNotAffectCurrentSelection(t *testing.T) {
	p := New(searchTestSongs())
	p.Select(2) // "Yesterday"
	p.Search("rhapsody")
	idx, has := p.SelectedSongIndex()
	if !has || idx != 2 {
		t.Fatalf("SelectedSongIndex() = %d, %v after Search() hid it, want unchanged 2, true", idx, has)
	}
}

func TestSearchProducesNoDuplicates(t *testing.T) {
	p := New(searchTestSongs())
	p.Search("rhapsody")
	seen := map[int]bool{}
	for _, i := range p.FilterIndices() {
		if seen[i] {
			t.Fatalf("FilterIndices() contains duplicate index %d", i)
		}
		seen[i] = true
	}
}

func TestFuzzyRankIsAdvisoryAndLeavesFilterAlone(t *testing.T) {
	p := New(searchTestSongs())
	before := p.FilterIndices()

	ranked := p.FuzzyRank("rapsody", 5) // misspelled, close to "Rhapsody"
	if len(ranked) == 0 {
		t.Fatal("FuzzyRank(\"rapsody\") = empty, want at least one close match")
	}

	after := p.FilterIndices()
	if len(before) != len(after) {
		t.Fatalf("FilterIndices() changed after FuzzyRank(): before=%v after=%v", before, after)
	}
}

func TestFuzzyRankOrdersByDistance(t *testing.T) {
	p := New(searchTestSongs())
	ranked := p.FuzzyRank("Yesterday", 5)
	if len(ranked) == 0 {
		t.Fatal("FuzzyRank(\"Yesterday\") = empty, want an exact match first")
	}
	if ranked[0].SongIndex != 2 {
		t.Fatalf("FuzzyRank(\"Yesterday\")[0].SongIndex = %d, want 2 (exact match first)", ranked[0].SongIndex)
	}
}
