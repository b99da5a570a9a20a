// Package kkconv implements an immutable kana-to-kanji converter: a
// pure, stateless function from a reading (plus optional committed
// history) to ranked kanji/kana candidates, built from a lattice, a
// Viterbi decoder and a candidate synthesiser (spec §1).
//
// The package never retains state across calls (spec §5): Engine holds
// only read-only dictionary/cost/POS data built once at construction,
// and every Convert/ConvertForRequest call builds and discards its own
// lattice arena.
package kkconv

import (
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/kanaconv/kkconv/internal/candidate"
	"github.com/kanaconv/kkconv/internal/connector"
	"github.com/kanaconv/kkconv/internal/dictionary"
	"github.com/kanaconv/kkconv/internal/kana"
	"github.com/kanaconv/kkconv/internal/lattice"
	"github.com/kanaconv/kkconv/internal/latticebuilder"
	stdlogger "github.com/kanaconv/kkconv/internal/logger"
	"github.com/kanaconv/kkconv/internal/model"
	"github.com/kanaconv/kkconv/internal/posmatch"
	"github.com/kanaconv/kkconv/internal/segmenter"
	"github.com/kanaconv/kkconv/internal/suppress"
	"github.com/kanaconv/kkconv/internal/viterbi"
)

// Public data-model aliases (spec §3, §6). Defined once in internal/model
// so internal/latticebuilder, internal/candidate and internal/viterbi can
// all depend on the shared shapes without importing this package (which
// in turn depends on all three) — see internal/model's doc comment.
type (
	Segment       = model.Segment
	Segments      = model.Segments
	Candidate     = model.Candidate
	InnerBoundary = model.InnerBoundary
	Request       = model.Request
	RequestType   = model.RequestType
	SegmentType   = model.SegmentType
	CandidateAttr = model.CandidateAttr
)

const (
	Conversion        = model.Conversion
	Prediction        = model.Prediction
	Suggestion        = model.Suggestion
	PartialPrediction = model.PartialPrediction
	PartialSuggestion = model.PartialSuggestion
)

const (
	Free          = model.Free
	FixedBoundary = model.FixedBoundary
	FixedValue    = model.FixedValue
	HistorySeg    = model.HistorySegment
	Submitted     = model.Submitted
)

const (
	AttrNone             = model.AttrNone
	PartiallyKeyConsumed = model.PartiallyKeyConsumed
	Dummy                = model.Dummy
)

// DefaultRequest returns the convenience request Convert uses.
func DefaultRequest() Request { return model.DefaultRequest() }

// Params bundles the tunable thresholds spec §9's Open Questions leave
// as data rather than hard-coded constants, loaded from internal/config
// by the caller and passed in at NewEngine time.
type Params struct {
	HistoryByteBound            int
	MaxCandidatesSize           int
	MaxPredictionCandidatesSize int
	NBestCostGap                int32
	SegmentBoundaryPenalty      int32
}

// Engine holds every read-only collaborator a conversion call needs:
// system + suffix dictionaries, connection-cost table, segmenter bitmap,
// POS matcher/penalty table, suppression filter, and tunables. Build once
// per process from the loaded dictionary blobs; safe for concurrent use
// by any number of calls (spec §5).
type Engine struct {
	dict       *dictionary.Dictionary
	suffixDict *dictionary.Dictionary
	connector  *connector.Connector
	segmenter  *segmenter.Segmenter
	posMatch   *posmatch.Matcher
	penalties  *posmatch.PenaltyTable
	filter     *suppress.Filter
	params     Params
	logger     *log.Logger

	builder     *latticebuilder.Builder
	synthesiser *candidate.Synthesiser
}

// NewEngine wires the collaborators together. Any of suffixDict, conn,
// seg, pos, penalties and filter may be nil to run with reduced fidelity
// (e.g. a connector-less engine treats every transition as free —
// internal/viterbi special-cases a nil Connector rather than calling into
// it), which is useful for tests that only exercise part of the pipeline.
func NewEngine(dict, suffixDict *dictionary.Dictionary, conn *connector.Connector, seg *segmenter.Segmenter, pos *posmatch.Matcher, penalties *posmatch.PenaltyTable, filter *suppress.Filter, params Params, logger *log.Logger) *Engine {
	if logger == nil {
		logger = stdlogger.New("kkconv")
	}
	e := &Engine{
		dict: dict, suffixDict: suffixDict,
		connector: conn, segmenter: seg,
		posMatch: pos, penalties: penalties,
		filter: filter, params: params, logger: logger,
	}
	e.builder = latticebuilder.New(dict, suffixDict, pos, logger)
	e.synthesiser = candidate.New(filter, pos)
	return e
}

// Convert is the convenience entry point, using DefaultRequest (spec §6).
func (e *Engine) Convert(segments *Segments) bool {
	return e.ConvertForRequest(DefaultRequest(), segments)
}

// ConvertForRequest is the primary entry point (spec §4.J, §6): validates
// segments, recovers from an over-long history, builds the lattice,
// decodes it, synthesises candidates, and writes them back into
// segments.List in place. Returns false on InvalidInput (spec §7); a
// false return leaves segments unmodified.
func (e *Engine) ConvertForRequest(req Request, segments *Segments) bool {
	if !validInput(segments) {
		e.logger.Warnf("kkconv: rejecting invalid input")
		return false
	}

	result, err := e.builder.Build(segments, latticebuilder.Options{
		RequestType:      segments.RequestType,
		HistoryByteBound: e.params.HistoryByteBound,
	})
	if err != nil {
		e.logger.Errorf("kkconv: lattice build failed: %v", err)
		return false
	}

	vEngine := &viterbi.Engine{
		Connector:            e.connector,
		Segmenter:            e.segmenter,
		POS:                  e.posMatch,
		Penalties:            e.penalties,
		SegmentBoundaryBonus: e.params.SegmentBoundaryPenalty,
	}
	vEngine.Run(result.Lattice)

	maxCandidates := e.params.MaxCandidatesSize
	if maxCandidates <= 0 {
		maxCandidates = 200
	}
	paths := vEngine.NBest(result.Lattice, maxCandidates, e.params.NBestCostGap)

	// Mutations land on result.Segments, not segments.List directly:
	// when history was dropped they are different backing arrays (the
	// lattice was built over the trimmed list), and segments.List is
	// repointed to it below; when nothing was dropped they're the same
	// backing array, so this is equivalent to mutating segments.List in
	// place.
	switch segments.RequestType {
	case model.Prediction, model.PartialPrediction:
		e.applyPrediction(req, result, paths, segments.MaxPredictionCandidatesSize)
	default:
		e.applyConversion(result, paths)
	}

	segments.List = result.Segments
	return true
}

func (e *Engine) applyConversion(result *latticebuilder.Result, paths []viterbi.Path) {
	bounds := result.SegmentBounds[result.HistorySegmentCount:]
	perSegment := e.synthesiser.FromPathsConversion(result.Lattice, paths, bounds)

	convIdx := 0
	for i := range result.Segments {
		if result.Segments[i].IsHistory() {
			continue
		}
		if convIdx >= len(perSegment) {
			break
		}
		cands := perSegment[convIdx]
		if len(cands) < 3 {
			cands = candidate.InsertDummyCandidates(cands, result.Segments[i].Key, kana.ToHiragana, kana.ToKatakana, kana.ToHalfWidth)
		}
		result.Segments[i].Candidates = cands
		convIdx++
	}
}

func (e *Engine) applyPrediction(req Request, result *latticebuilder.Result, paths []viterbi.Path, segMaxPrediction int) {
	maxPrediction := e.params.MaxPredictionCandidatesSize
	if segMaxPrediction > 0 {
		maxPrediction = segMaxPrediction
	}
	cands := e.synthesiser.FromPaths(result.Lattice, paths, result.ConversionStart, model.Prediction, req, maxPrediction)
	if len(cands) < 3 {
		readingFallback := ""
		for i := range result.Segments {
			if !result.Segments[i].IsHistory() {
				readingFallback = result.Segments[i].Key
				break
			}
		}
		cands = candidate.InsertDummyCandidates(cands, readingFallback, kana.ToHiragana, kana.ToKatakana, kana.ToHalfWidth)
	}
	for i := range result.Segments {
		if result.Segments[i].IsHistory() {
			continue
		}
		// The preserved request key invariant (spec §4.I): the segment's
		// key is never overwritten, even though candidates may carry a
		// longer composed value via predictive nodes.
		result.Segments[i].Candidates = cands
		break
	}
}

// validInput implements spec §4.J's InvalidInput checks: at least one
// conversion segment, a non-empty reading on every conversion segment,
// and valid UTF-8 in every reading (a history reading may be empty).
func validInput(segments *Segments) bool {
	if segments == nil || len(segments.List) == 0 {
		return false
	}
	hasConversion := false
	for i := range segments.List {
		s := &segments.List[i]
		if s.IsHistory() {
			if !utf8.ValidString(s.Key) {
				return false
			}
			continue
		}
		hasConversion = true
		if s.Key == "" || !utf8.ValidString(s.Key) {
			return false
		}
	}
	return hasConversion
}

// InsertDummyCandidates is exposed for callers that already hold a
// single segment's candidate list and want the fallback behaviour
// without going through a full Convert call (spec §6).
func InsertDummyCandidates(seg *Segment, desiredSize int) {
	for len(seg.Candidates) < desiredSize {
		before := len(seg.Candidates)
		seg.Candidates = candidate.InsertDummyCandidates(seg.Candidates, seg.Key, kana.ToHiragana, kana.ToKatakana, kana.ToHalfWidth)
		if len(seg.Candidates) == before {
			break
		}
	}
}

// MakeLattice is the testable lattice-construction surface (spec §6),
// exposing internal/latticebuilder's Build without requiring a full
// Engine.
func MakeLattice(dict, suffixDict *dictionary.Dictionary, pos *posmatch.Matcher, logger *log.Logger, segments *Segments, historyByteBound int) (*lattice.Lattice, []byte, error) {
	b := latticebuilder.New(dict, suffixDict, pos, logger)
	result, err := b.Build(segments, latticebuilder.Options{RequestType: segments.RequestType, HistoryByteBound: historyByteBound})
	if err != nil {
		return nil, nil, err
	}
	return result.Lattice, result.Key, nil
}

// MakeGroup classifies a (lid,rid) tag pair into its POS group (spec
// §6's testable surface over internal/posmatch.Matcher.Classify).
func MakeGroup(pos *posmatch.Matcher, lid, rid uint16) posmatch.ID {
	return pos.Classify(lid, rid)
}

// MakeLatticeNodesForPredictiveNodes is the testable surface over
// internal/latticebuilder's predictive-node insertion step (spec §4.G
// step 5, §6): it builds a lattice for segments in PREDICTION mode and
// returns only the nodes latticebuilder tagged Predictive.
func MakeLatticeNodesForPredictiveNodes(dict, suffixDict *dictionary.Dictionary, pos *posmatch.Matcher, logger *log.Logger, segments *Segments, historyByteBound int) ([]lattice.Node, error) {
	segments.RequestType = model.Prediction
	b := latticebuilder.New(dict, suffixDict, pos, logger)
	result, err := b.Build(segments, latticebuilder.Options{RequestType: model.Prediction, HistoryByteBound: historyByteBound})
	if err != nil {
		return nil, err
	}
	var out []lattice.Node
	for id := lattice.NodeID(0); int(id) < result.Lattice.NumNodes(); id++ {
		n := result.Lattice.Node(id)
		if n.Category == lattice.Predictive {
			out = append(out, n)
		}
	}
	return out, nil
}

// Viterbi is the testable surface over the forward DP pass plus N-best
// enumeration (spec §6), operating on an already-built lattice.
func Viterbi(lat *lattice.Lattice, conn *connector.Connector, seg *segmenter.Segmenter, pos *posmatch.Matcher, penalties *posmatch.PenaltyTable, boundaryBonus int32, max int, costGap int32) []viterbi.Path {
	e := &viterbi.Engine{Connector: conn, Segmenter: seg, POS: pos, Penalties: penalties, SegmentBoundaryBonus: boundaryBonus}
	e.Run(lat)
	return e.NBest(lat, max, costGap)
}
