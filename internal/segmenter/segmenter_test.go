package segmenter

import "testing"

// Classify reads the forbidden bitmap before the required bitmap, so a
// (right,left) pair marked in both is reported Forbidden (spec §4.C: the
// Viterbi engine rejects FORBIDDEN outright, so an ambiguous entry must
// never resolve to anything weaker).
func TestClassifyPriority(t *testing.T) {
	// rows=2 right-ids, cols=2 left-ids
	required := []bool{false, true, false, true}
	forbidden := []bool{false, false, true, true}
	s := New(required, forbidden, 2, 2)

	cases := []struct {
		right, left uint16
		want        Boundary
	}{
		{0, 0, Allowed},
		{0, 1, Required},
		{1, 0, Forbidden},
		{1, 1, Forbidden},
	}
	for _, tc := range cases {
		got := s.Classify(NodeInfo{RightID: tc.right}, NodeInfo{LeftID: tc.left})
		if got != tc.want {
			t.Errorf("Classify(right=%d,left=%d) = %v, want %v", tc.right, tc.left, got, tc.want)
		}
	}
}

// Out-of-range ids and a nil Segmenter both default to Allowed rather
// than panicking or silently forbidding every transition (the lattice
// builder's unknown-char fallback path must stay decodable even without
// segmenter data loaded).
func TestClassifyDefaultsToAllowed(t *testing.T) {
	var nilSeg *Segmenter
	if got := nilSeg.Classify(NodeInfo{RightID: 3}, NodeInfo{LeftID: 4}); got != Allowed {
		t.Errorf("nil Segmenter.Classify = %v, want Allowed", got)
	}

	s := New([]bool{false}, []bool{false}, 1, 1)
	if got := s.Classify(NodeInfo{RightID: 99}, NodeInfo{LeftID: 0}); got != Allowed {
		t.Errorf("out-of-range right-id must default to Allowed, got %v", got)
	}
}
