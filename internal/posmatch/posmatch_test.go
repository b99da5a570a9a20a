package posmatch

import "testing"

// Classify looks a (lid,rid) tag pair up verbatim in the loaded table,
// defaulting to Other for anything not configured (spec §9 Open Question
// (d): "the precise POS-group penalty table is data, not logic").
func TestMatcherClassify(t *testing.T) {
	m := New([]Entry{
		{Lid: 10, Rid: 10, Group: Functional},
		{Lid: 20, Rid: 20, Group: StandaloneNoun},
	})

	if got := m.Classify(10, 10); got != Functional {
		t.Errorf("Classify(10,10) = %v, want Functional", got)
	}
	if got := m.Classify(20, 20); got != StandaloneNoun {
		t.Errorf("Classify(20,20) = %v, want StandaloneNoun", got)
	}
	if got := m.Classify(99, 99); got != Other {
		t.Errorf("Classify on an unconfigured tag pair = %v, want Other", got)
	}
}

// A nil Matcher classifies everything as Other rather than panicking,
// letting a reduced-fidelity Engine (spec §5, converter.NewEngine) run
// with pos == nil.
func TestNilMatcherDefaultsToOther(t *testing.T) {
	var m *Matcher
	if got := m.Classify(1, 1); got != Other {
		t.Errorf("nil Matcher.Classify = %v, want Other", got)
	}
}

// DefaultPenaltyTable encodes spec §4.H's two named examples directly:
// functional-word adjacency is a bonus (negative cost), a bare number
// following a stand-alone noun is a penalty.
func TestDefaultPenaltyTable(t *testing.T) {
	pt := DefaultPenaltyTable()

	if got := pt.Penalty(Other, Functional); got >= 0 {
		t.Errorf("Other->Functional penalty = %d, want a negative bonus", got)
	}
	if got := pt.Penalty(StandaloneNoun, Number); got <= 0 {
		t.Errorf("StandaloneNoun->Number penalty = %d, want a positive penalty", got)
	}
	if got := pt.Penalty(Other, Other); got != 0 {
		t.Errorf("unconfigured group pair must default to 0, got %d", got)
	}
}

// A nil PenaltyTable contributes no cost, same reduced-fidelity
// allowance as a nil Matcher.
func TestNilPenaltyTable(t *testing.T) {
	var pt *PenaltyTable
	if got := pt.Penalty(Functional, Functional); got != 0 {
		t.Errorf("nil PenaltyTable.Penalty = %d, want 0", got)
	}
}
