// Package posmatch classifies dictionary tokens into coarse part-of-speech
// groups used by the Viterbi engine for small additive connection bonuses
// and penalties (spec §2.E, §4.H).
package posmatch

// ID identifies a POS group. The concrete values are data, loaded from the
// POS table blob at construction time; the symbolic names below are the
// only groups the decoder special-cases (spec §9 Open Question (d): the
// full penalty table is data, not logic).
type ID uint8

const (
	Other ID = iota
	Functional
	Number
	Prefix
	Suffix
	StandaloneNoun
	Unknown
)

// Entry is one row of the POS-group table: the (lid, rid) tag pair a
// dictionary token carries, and the coarse group it maps to.
type Entry struct {
	Lid, Rid uint16
	Group    ID
}

// Matcher classifies tokens by (lid, rid) into a coarse POS group.
type Matcher struct {
	byTag map[tagKey]ID
}

type tagKey struct {
	lid, rid uint16
}

// New builds a Matcher from a verbatim-loaded table (spec §9(d): "the
// precise POS-group penalty table is data, not logic, and must be loaded
// verbatim").
func New(entries []Entry) *Matcher {
	m := &Matcher{byTag: make(map[tagKey]ID, len(entries))}
	for _, e := range entries {
		m.byTag[tagKey{e.Lid, e.Rid}] = e.Group
	}
	return m
}

// Classify returns the POS group for a (lid, rid) tag pair, defaulting to
// Other when the table has no entry.
func (m *Matcher) Classify(lid, rid uint16) ID {
	if m == nil {
		return Other
	}
	if g, ok := m.byTag[tagKey{lid, rid}]; ok {
		return g
	}
	return Other
}

// GroupPenalty is the table of additive connection costs between POS
// groups (spec §4.H "POS-group penalty"). Values are signed: negative is
// a bonus (functional-word adjacency), positive is a penalty
// (stand-alone-noun followed directly by a number).
type GroupPenalty struct {
	Left, Right ID
	Cost        int32
}

// PenaltyTable looks up the additive cost for a left->right group
// transition; zero when no rule is configured for the pair.
type PenaltyTable struct {
	rules map[[2]ID]int32
}

func NewPenaltyTable(rows []GroupPenalty) *PenaltyTable {
	t := &PenaltyTable{rules: make(map[[2]ID]int32, len(rows))}
	for _, r := range rows {
		t.rules[[2]ID{r.Left, r.Right}] = r.Cost
	}
	return t
}

func (t *PenaltyTable) Penalty(left, right ID) int32 {
	if t == nil {
		return 0
	}
	return t.rules[[2]ID{left, right}]
}

// DefaultPenaltyTable mirrors spec §4.H's two named examples: functional
// words reduce the cost of the word they attach to, and a bare number
// following a stand-alone noun is slightly discouraged (prefer the number
// to fuse into a compound, spec §4.G step 4, instead).
func DefaultPenaltyTable() *PenaltyTable {
	return NewPenaltyTable([]GroupPenalty{
		{Left: Other, Right: Functional, Cost: -300},
		{Left: StandaloneNoun, Right: Functional, Cost: -200},
		{Left: StandaloneNoun, Right: Number, Cost: 400},
	})
}
