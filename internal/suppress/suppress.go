// Package suppress implements the suppression/suggestion filter of
// spec §2.D: blacklists candidates by reading or surface before they are
// emitted by the candidate synthesiser.
//
// Grounded on the teacher's internal/utils.SuggestionFilter (a
// seen-words set guarding against duplicate/unwanted output), extended
// from "dedupe against the input word" to "reject listed (reading,
// surface) pairs".
package suppress

// Filter blacklists candidates by reading (key) or surface (value).
// Zero value is a filter that rejects nothing.
type Filter struct {
	byKey   map[string]bool
	byValue map[string]bool
	byPair  map[pairKey]bool
}

type pairKey struct{ key, value string }

// New builds a Filter from blacklisted readings, surfaces, and exact
// (reading, surface) pairs loaded verbatim from the suppression data
// blob (spec §6 "Suppression list, suggestion filter bitset").
func New(keys, values []string, pairs [][2]string) *Filter {
	f := &Filter{
		byKey:   make(map[string]bool, len(keys)),
		byValue: make(map[string]bool, len(values)),
		byPair:  make(map[pairKey]bool, len(pairs)),
	}
	for _, k := range keys {
		f.byKey[k] = true
	}
	for _, v := range values {
		f.byValue[v] = true
	}
	for _, p := range pairs {
		f.byPair[pairKey{p[0], p[1]}] = true
	}
	return f
}

// Suppressed reports whether a candidate (key, value) should be dropped
// before emission.
func (f *Filter) Suppressed(key, value string) bool {
	if f == nil {
		return false
	}
	if f.byKey[key] || f.byValue[value] {
		return true
	}
	return f.byPair[pairKey{key, value}]
}
