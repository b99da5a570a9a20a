// Package candidate projects decoded viterbi.Path values into the
// model.Candidate shape the driver hands back to callers (spec §4.I):
// conversion/prediction candidate lists, inner-segment boundaries, auto
// partial suggestions, dummy fallbacks, suppression filtering and
// near-duplicate folding.
//
// Grounded on the teacher's internal/utils.SuggestionFilter dedup
// pattern, reused here directly for the required exact (key,value)
// dedup ahead of internal/suppress's blacklist and MrWong99-glyphoxa's
// internal/transcript/phonetic package for near-duplicate folding
// (github.com/antzucaro/matchr.JaroWinkler).
package candidate

import (
	"github.com/antzucaro/matchr"
	"golang.org/x/exp/slices"

	"github.com/kanaconv/kkconv/internal/lattice"
	"github.com/kanaconv/kkconv/internal/model"
	"github.com/kanaconv/kkconv/internal/posmatch"
	"github.com/kanaconv/kkconv/internal/suppress"
	"github.com/kanaconv/kkconv/internal/utils"
	"github.com/kanaconv/kkconv/internal/viterbi"
)

// DuplicateSimilarityThreshold is the JaroWinkler similarity above which
// two already-distinct (key,value) candidates are folded into one,
// keeping whichever sorts first by cost (spec §4.I "near-duplicate
// candidate folding", layered on top of the required exact dedup).
const DuplicateSimilarityThreshold = 0.97

// Synthesiser turns decoded paths into ranked candidate lists.
type Synthesiser struct {
	Filter *suppress.Filter
	POS    *posmatch.Matcher
}

// New builds a Synthesiser. filter/pos may be nil (no suppression / every
// node classified as posmatch.Other, which project treats as content).
func New(filter *suppress.Filter, pos *posmatch.Matcher) *Synthesiser {
	return &Synthesiser{Filter: filter, POS: pos}
}

// FromPaths projects decoded paths for the conversion region into ranked
// candidates (spec §4.I). Nodes starting before byte offset minStart
// (history) are left out of each candidate; reqType selects CONVERSION vs
// PREDICTION-style boundary insertion, req carries the partial-suggestion
// gate, and maxPrediction (when > 0) caps the list for prediction
// requests.
func (s *Synthesiser) FromPaths(lat *lattice.Lattice, paths []viterbi.Path, minStart int, reqType model.RequestType, req model.Request, maxPrediction int) []model.Candidate {
	var out []model.Candidate
	seenExact := utils.NewSuggestionFilter("")

	for _, p := range paths {
		cand := s.project(lat, p, minStart, reqType)
		if cand.Key == "" {
			continue
		}
		if s.Filter.Suppressed(cand.Key, cand.Value) {
			continue
		}
		exactKey := cand.Key + "\x00" + cand.Value
		if !seenExact.ShouldInclude(exactKey) {
			continue
		}
		out = append(out, cand)
	}

	out = foldNearDuplicates(out)

	slices.SortStableFunc(out, func(a, b model.Candidate) int { return int(a.Cost - b.Cost) })

	if reqType == model.Prediction || reqType == model.PartialPrediction {
		if req.CreatePartialCandidates {
			out = appendPartialSuggestions(out)
		}
		if maxPrediction > 0 && len(out) > maxPrediction {
			out = out[:maxPrediction]
		}
	}

	return out
}

// FromPathsConversion implements spec §4.I's CONVERSION-mode rule: every
// decoded whole-string path is split at the pre-existing segment
// boundaries (bounds, as produced by latticebuilder.Result.SegmentBounds
// restricted to the conversion region), and each segment collects one
// candidate per distinct path that crossed it — with an always-empty
// inner_segment_boundary, per spec. bounds must be sorted ascending and
// start at the first conversion segment's own start offset.
func (s *Synthesiser) FromPathsConversion(lat *lattice.Lattice, paths []viterbi.Path, bounds []int) [][]model.Candidate {
	segCount := len(bounds) - 1
	if segCount <= 0 {
		return nil
	}
	perSegment := make([][]model.Candidate, segCount)
	seen := make([]*utils.SuggestionFilter, segCount)
	for i := range seen {
		seen[i] = utils.NewSuggestionFilter("")
	}

	for _, p := range paths {
		segCandidates := make([]model.Candidate, segCount)
		var cost [1]int32
		cost[0] = p.Cost
		for _, id := range p.Nodes {
			n := lat.Node(id)
			if n.Category == lattice.Sentinel {
				continue
			}
			idx := segmentIndexFor(bounds, n.Start)
			if idx < 0 {
				continue
			}
			segCandidates[idx].Key += n.Key
			segCandidates[idx].Value += n.Value
			segCandidates[idx].ContentKey += n.Key
			segCandidates[idx].ContentValue += n.Value
			segCandidates[idx].WCost += int32(n.WordCost)
			segCandidates[idx].Rid = n.RightID
			if segCandidates[idx].Lid == 0 {
				segCandidates[idx].Lid = n.LeftID
			}
		}
		for i := range segCandidates {
			if segCandidates[i].Key == "" {
				continue
			}
			segCandidates[i].Cost = p.Cost
			if s.Filter.Suppressed(segCandidates[i].Key, segCandidates[i].Value) {
				continue
			}
			k := segCandidates[i].Key + "\x00" + segCandidates[i].Value
			if !seen[i].ShouldInclude(k) {
				continue
			}
			perSegment[i] = append(perSegment[i], segCandidates[i])
		}
	}

	for i := range perSegment {
		perSegment[i] = foldNearDuplicates(perSegment[i])
		slices.SortStableFunc(perSegment[i], func(a, b model.Candidate) int { return int(a.Cost - b.Cost) })
	}
	return perSegment
}

// segmentIndexFor returns which [bounds[i], bounds[i+1]) bucket a node
// starting at byte offset start falls into, or -1 if none (history).
func segmentIndexFor(bounds []int, start int) int {
	for i := 0; i < len(bounds)-1; i++ {
		if start >= bounds[i] && start < bounds[i+1] {
			return i
		}
	}
	return -1
}

// project converts one decoded path into a single candidate: concatenated
// key/value across every real (non-sentinel) node and total cost. For
// prediction-style requests it also derives inner-segment boundaries
// (spec §4.I): consecutive nodes are grouped into one boundary per
// content word, with any immediately-following functional-word nodes
// folded into that same boundary's key/value span but excluded from its
// content_key/content_value span (spec §8 invariant 4, scenario S2).
func (s *Synthesiser) project(lat *lattice.Lattice, p viterbi.Path, minStart int, reqType model.RequestType) model.Candidate {
	c := model.Candidate{Cost: p.Cost}
	var wcost int32
	first := true

	predicting := reqType == model.Prediction || reqType == model.PartialPrediction
	var group model.InnerBoundary
	haveGroup := false
	flush := func() {
		if haveGroup {
			c.InnerSegmentBoundary = append(c.InnerSegmentBoundary, group)
		}
		group = model.InnerBoundary{}
		haveGroup = false
	}

	for _, id := range p.Nodes {
		n := lat.Node(id)
		if n.Category == lattice.Sentinel || n.Start < minStart {
			continue
		}
		c.Key += n.Key
		c.Value += n.Value
		wcost += int32(n.WordCost)

		if predicting {
			isFunctional := s.POS.Classify(n.Lid, n.Rid) == posmatch.Functional
			if isFunctional && haveGroup {
				// Trailing functional word: extends the group's total
				// span but not its content span.
				group.KeyLen += len(n.Key)
				group.ValueLen += len(n.Value)
			} else {
				flush()
				group = model.InnerBoundary{
					KeyLen: len(n.Key), ValueLen: len(n.Value),
					ContentKeyLen: len(n.Key), ContentValueLen: len(n.Value),
				}
				haveGroup = true
			}
		}

		if first {
			c.Lid = n.LeftID
			first = false
		}
		c.Rid = n.RightID
	}
	flush()

	c.WCost = wcost
	c.ContentKey = c.Key
	c.ContentValue = c.Value
	return c
}

// foldNearDuplicates merges candidates whose surfaces are near-identical
// by JaroWinkler similarity, keeping the cheaper of each pair (spec
// §4.I). Candidates are compared pairwise in original (cost) order so the
// survivor of a fold is always the lower-cost one seen so far.
func foldNearDuplicates(in []model.Candidate) []model.Candidate {
	if len(in) < 2 {
		return in
	}
	kept := make([]model.Candidate, 0, len(in))
	for _, c := range in {
		dup := false
		for i := range kept {
			if matchr.JaroWinkler(c.Value, kept[i].Value, false) >= DuplicateSimilarityThreshold {
				if c.Cost < kept[i].Cost {
					kept[i] = c
				}
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, c)
		}
	}
	return kept
}

// appendPartialSuggestions adds PartiallyKeyConsumed candidates for every
// existing candidate whose key is a strict, non-empty byte-prefix of a
// longer sibling candidate's key — an auto partial suggestion gated by
// request.CreatePartialCandidates (spec §4.I).
func appendPartialSuggestions(in []model.Candidate) []model.Candidate {
	out := make([]model.Candidate, len(in))
	copy(out, in)
	for _, c := range in {
		for _, other := range in {
			if len(c.Key) == 0 || len(c.Key) >= len(other.Key) {
				continue
			}
			if other.Key[:len(c.Key)] != c.Key {
				continue
			}
			partial := c
			partial.Attributes |= model.PartiallyKeyConsumed
			out = append(out, partial)
			break
		}
	}
	return out
}

// InsertDummyCandidates appends hiragana/katakana/half-width surface
// fallbacks for a conversion segment (spec §4.I): synthetic candidates
// whose wcost is strictly greater than the top real candidate's, with an
// always-empty inner_segment_boundary. A variant is added only when it is
// non-empty and differs from every surface already present, so the
// result reaches three candidates only when enough distinct variants
// exist; no other fallback is added.
func InsertDummyCandidates(existing []model.Candidate, reading string, toHiragana, toKatakana, toHalfWidth func(string) string) []model.Candidate {
	top := int32(0)
	if len(existing) > 0 {
		top = existing[0].WCost
	}
	dummyCost := top + 1

	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[c.Value] = true
	}

	add := func(surface string) []model.Candidate {
		if surface == "" || seen[surface] {
			return existing
		}
		seen[surface] = true
		return append(existing, model.Candidate{
			Key:        reading,
			Value:      surface,
			ContentKey: reading, ContentValue: surface,
			WCost:      dummyCost,
			Cost:       dummyCost,
			Attributes: model.Dummy,
		})
	}

	if toHiragana != nil {
		existing = add(toHiragana(reading))
	} else {
		existing = add(reading) // reading is assumed already hiragana
	}
	if toKatakana != nil {
		existing = add(toKatakana(reading))
	}
	if toHalfWidth != nil {
		existing = add(toHalfWidth(reading))
	}

	// If the three surface variants above didn't reach three total
	// candidates (e.g. toKatakana/toHalfWidth were nil, or collided with
	// an existing surface), there is no further distinct kana rendering
	// to offer; stop rather than emit exact duplicates.
	return existing
}
