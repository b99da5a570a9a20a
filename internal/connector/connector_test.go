package connector

import "testing"

// Cost is an O(1) row-major lookup; out-of-range ids and the table's own
// sentinel value both normalise to InvalidCost (spec §4.B).
func TestCostLookup(t *testing.T) {
	// rows=2 right-ids, cols=3 left-ids
	table := []int16{
		10, 20, 30,
		40, 32767, 60, // math.MaxInt16 at (right=1, left=1) is the table's own sentinel
	}
	c := New(table, 2, 3)

	cases := []struct {
		right, left uint16
		want        int32
	}{
		{0, 0, 10},
		{0, 2, 30},
		{1, 0, 40},
		{1, 2, 60},
	}
	for _, tc := range cases {
		if got := c.Cost(tc.right, tc.left); got != tc.want {
			t.Errorf("Cost(%d,%d) = %d, want %d", tc.right, tc.left, got, tc.want)
		}
	}

	if got := c.Cost(1, 1); !IsForbidden(got) {
		t.Errorf("table sentinel (int16 max) must report forbidden, got %d", got)
	}
	if got := c.Cost(5, 0); !IsForbidden(got) {
		t.Errorf("out-of-range right-id must report forbidden, got %d", got)
	}
	if got := c.Cost(0, 9); !IsForbidden(got) {
		t.Errorf("out-of-range left-id must report forbidden, got %d", got)
	}
}

// A nil Connector (no connection-cost table loaded) always reports
// forbidden rather than a misleadingly-small cost; callers that want a
// free-transition fallback must special-case nil themselves (as
// internal/viterbi does), never rely on Connector doing it for them.
func TestNilConnectorIsForbidden(t *testing.T) {
	var c *Connector
	if got := c.Cost(0, 0); !IsForbidden(got) {
		t.Errorf("nil Connector.Cost = %d, want a forbidden value", got)
	}
}

func TestIsForbiddenThreshold(t *testing.T) {
	if IsForbidden(InvalidCost - 1) {
		t.Errorf("a cost strictly below InvalidCost must not be forbidden")
	}
	if !IsForbidden(InvalidCost) {
		t.Errorf("InvalidCost itself must be forbidden")
	}
}
