package candidate

import (
	"testing"

	"github.com/kanaconv/kkconv/internal/lattice"
	"github.com/kanaconv/kkconv/internal/model"
	"github.com/kanaconv/kkconv/internal/posmatch"
	"github.com/kanaconv/kkconv/internal/viterbi"
)

// buildPath inserts one node per (key,value,lid,rid,wcost) tuple into a
// fresh lattice, back to back starting at byte 0, and returns a single
// viterbi.Path covering all of them plus the lattice they live in.
func buildPath(t *testing.T, entries []struct {
	key, value string
	lid, rid   uint16
	wcost      int16
}) (*lattice.Lattice, viterbi.Path) {
	var key []byte
	for _, e := range entries {
		key = append(key, e.key...)
	}
	lat := lattice.New(key)

	var path viterbi.Path
	pos := 0
	for _, e := range entries {
		n := lattice.Pending()
		n.Start = pos
		n.Span = len(e.key)
		n.Key = e.key
		n.Value = e.value
		n.Lid, n.Rid = e.lid, e.rid
		n.WordCost = e.wcost
		n.Category = lattice.Normal
		id := lat.Insert(n)
		path.Nodes = append(path.Nodes, id)
		path.Cost += int32(e.wcost)
		pos += len(e.key)
	}
	return lat, path
}

// CONVERSION-mode candidates must always carry an empty
// inner_segment_boundary (spec §8 invariant 3).
func TestFromPathsConversionEmptyInnerBoundary(t *testing.T) {
	lat, path := buildPath(t, []struct {
		key, value string
		lid, rid   uint16
		wcost      int16
	}{
		{"わたし", "私", 1, 1, 300},
		{"の", "の", 2, 2, 100},
	})

	s := New(nil, nil)
	perSegment := s.FromPathsConversion(lat, []viterbi.Path{path}, []int{0, len(lat.Key)})
	if len(perSegment) != 1 || len(perSegment[0]) == 0 {
		t.Fatalf("expected one segment with at least one candidate, got %v", perSegment)
	}
	for _, c := range perSegment[0] {
		if len(c.InnerSegmentBoundary) != 0 {
			t.Errorf("CONVERSION candidate has non-empty inner_segment_boundary: %v", c.InnerSegmentBoundary)
		}
	}
}

// PREDICTION mode derives one inner boundary per content word, folding
// directly-trailing functional-word nodes into that boundary's key/value
// span while excluding them from its content span (spec §4.I, §8
// invariant 4).
func TestProjectInnerBoundaryFoldsFunctionalSuffix(t *testing.T) {
	pos := posmatch.New([]posmatch.Entry{
		{Lid: 2, Rid: 2, Group: posmatch.Functional},
	})
	lat, path := buildPath(t, []struct {
		key, value string
		lid, rid   uint16
		wcost      int16
	}{
		{"わたし", "私", 1, 1, 300}, // content
		{"の", "の", 2, 2, 100},     // functional, folds into the content group above
		{"なまえ", "名前", 1, 1, 280}, // content
	})

	s := New(nil, pos)
	c := s.project(lat, path, 0, model.Prediction)

	if len(c.InnerSegmentBoundary) != 2 {
		t.Fatalf("expected 2 inner boundaries (content+suffix, content), got %d: %v", len(c.InnerSegmentBoundary), c.InnerSegmentBoundary)
	}
	first := c.InnerSegmentBoundary[0]
	wantKeyLen := len("わたし") + len("の")
	if first.KeyLen != wantKeyLen {
		t.Errorf("first boundary KeyLen = %d, want %d (content+suffix)", first.KeyLen, wantKeyLen)
	}
	if first.ContentKeyLen != len("わたし") {
		t.Errorf("first boundary ContentKeyLen = %d, want %d (content only)", first.ContentKeyLen, len("わたし"))
	}
	second := c.InnerSegmentBoundary[1]
	if second.KeyLen != len("なまえ") || second.ContentKeyLen != len("なまえ") {
		t.Errorf("second boundary = %+v, want a bare content-word group", second)
	}

	var totalKeyLen, totalValueLen int
	for _, b := range c.InnerSegmentBoundary {
		totalKeyLen += b.KeyLen
		totalValueLen += b.ValueLen
	}
	if totalKeyLen != len(c.Key) {
		t.Errorf("inner boundary KeyLens sum to %d, want candidate key length %d", totalKeyLen, len(c.Key))
	}
	if totalValueLen != len(c.Value) {
		t.Errorf("inner boundary ValueLens sum to %d, want candidate value length %d", totalValueLen, len(c.Value))
	}
}

// InsertDummyCandidates must reach at least 3 candidates from a single
// real one, every synthetic candidate strictly costlier than the
// original top candidate, and always carrying an empty
// inner_segment_boundary (spec §8 invariant 2, scenario S6).
func TestInsertDummyCandidates(t *testing.T) {
	existing := []model.Candidate{
		{Key: "てすと", Value: "test", WCost: 100, Cost: 100},
	}
	toKatakana := func(s string) string { return "カタカナ:" + s }
	toHalfWidth := func(s string) string { return "halfwidth:" + s }

	out := InsertDummyCandidates(existing, "てすと", nil, toKatakana, toHalfWidth)

	if len(out) < 3 {
		t.Fatalf("expected at least 3 candidates, got %d", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[0].WCost >= out[i].WCost {
			t.Errorf("candidate[0].wcost=%d must be < candidate[%d].wcost=%d", out[0].WCost, i, out[i].WCost)
		}
		if len(out[i].InnerSegmentBoundary) != 0 {
			t.Errorf("synthetic candidate[%d] has non-empty inner_segment_boundary", i)
		}
	}
}

// Calling InsertDummyCandidates on an empty candidate list (no real
// candidate at all, spec §7 DictionaryEmpty) must still produce
// candidates rather than panicking on existing[0].
func TestInsertDummyCandidatesEmptyInput(t *testing.T) {
	out := InsertDummyCandidates(nil, "あい", nil, nil, nil)
	if len(out) == 0 {
		t.Fatalf("expected at least one fallback candidate for an empty input")
	}
	if out[0].Value != "あい" {
		t.Errorf("first fallback must be the bare reading, got %q", out[0].Value)
	}
}

// foldNearDuplicates keeps the lower-cost survivor of any near-identical
// pair and leaves clearly-distinct candidates untouched.
func TestFoldNearDuplicates(t *testing.T) {
	in := []model.Candidate{
		{Value: "なかの", Cost: 100},
		{Value: "なかの", Cost: 90}, // identical surface, lower cost
		{Value: "とうきょう", Cost: 50}, // unrelated
	}
	out := foldNearDuplicates(in)
	if len(out) != 2 {
		t.Fatalf("expected the identical pair folded to 1 entry (2 total), got %d: %v", len(out), out)
	}
	for _, c := range out {
		if c.Value == "なかの" && c.Cost != 90 {
			t.Errorf("fold must keep the lower-cost survivor (cost 90), got cost %d", c.Cost)
		}
	}
}
