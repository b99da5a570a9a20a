// Package model holds the shared data-model types of spec §3 and §6:
// segments, candidates, inner-segment boundaries, and the request shape
// Convert/ConvertForRequest consume and mutate in place.
//
// Split into its own package (rather than living in the root converter
// package) so that internal/latticebuilder, internal/candidate and
// internal/viterbi can all depend on it without an import cycle back to
// the root package, which is what wires them together (spec §4.J). The
// root package re-exports these via type aliases for its public API.
package model

// RequestType selects which of spec §6's five conversion modes a call
// runs in.
type RequestType uint8

const (
	Conversion RequestType = iota
	Prediction
	Suggestion
	PartialPrediction
	PartialSuggestion
)

// SegmentType constrains how the lattice may cross a segment's
// boundaries (spec §3 "Segment").
type SegmentType uint8

const (
	Free SegmentType = iota
	FixedBoundary
	FixedValue
	HistorySegment
	Submitted
)

// CandidateAttr is a bitset of synthesiser-assigned flags.
type CandidateAttr uint32

const (
	AttrNone CandidateAttr = 0
	// PartiallyKeyConsumed marks an auto partial-suggestion candidate
	// whose key is a strict prefix of the segment's reading (spec §4.I).
	PartiallyKeyConsumed CandidateAttr = 1 << iota
	// Dummy marks a synthetic fallback candidate (spec §4.I
	// InsertDummyCandidates).
	Dummy
)

// InnerBoundary is one 4-tuple of spec §3's candidate
// inner_segment_boundary list: (key_len, value_len, content_key_len,
// content_value_len), all in bytes.
type InnerBoundary struct {
	KeyLen          int
	ValueLen        int
	ContentKeyLen   int
	ContentValueLen int
}

// Candidate is one ranked conversion result for a segment (spec §3).
type Candidate struct {
	Key                  string
	Value                string
	ContentKey           string
	ContentValue         string
	WCost                int32
	Cost                 int32
	StructureCost        int32
	Lid, Rid             uint16
	Attributes           CandidateAttr
	InnerSegmentBoundary []InnerBoundary
}

// Segment is one unit of the in/out segments structure (spec §3, §6).
// History segments carry Value as their already-committed surface and
// have no Candidates; conversion segments carry Key (the reading) and,
// after a successful call, Candidates.
type Segment struct {
	Key        string
	Value      string // committed surface, history segments only
	Type       SegmentType
	Candidates []Candidate
}

// IsHistory reports whether this segment is immutable committed input.
func (s *Segment) IsHistory() bool {
	return s.Type == HistorySegment || s.Type == Submitted
}

// Segments is the in/out parameter of Convert/ConvertForRequest (spec
// §6): a request type, an ordered list of segments (zero or more
// history segments followed by one or more conversion segments), and a
// prediction candidate cap.
type Segments struct {
	RequestType                 RequestType
	MaxPredictionCandidatesSize int
	List                        []Segment
}

// ConversionStart returns the index of the first non-history segment, or
// len(List) when every segment is history.
func (s *Segments) ConversionStart() int {
	for i := range s.List {
		if !s.List[i].IsHistory() {
			return i
		}
	}
	return len(s.List)
}

// HistorySegmentsSize reports how many leading history segments remain
// (spec §7/§8 invariant 7: 0 after the history-too-long recovery path).
func (s *Segments) HistorySegmentsSize() int {
	return s.ConversionStart()
}

// Request carries the embedded fields spec §6 lists under "request
// fields consumed". The commands::Request hint bundle the source
// mentions is orthogonal to core decoding and is not modelled here
// (spec §1: UI/session concerns are external collaborators).
type Request struct {
	CreatePartialCandidates bool
}

// DefaultRequest is the convenience request Convert uses.
func DefaultRequest() Request {
	return Request{CreatePartialCandidates: false}
}
