// Package latticebuilder materialises every dictionary hypothesis
// spanning every position of the input into a lattice.Lattice (spec
// §4.G). It is the component most directly grounded on spec §9's
// design notes: a deterministic, allocation-light build pass over the
// dictionary adapter (internal/dictionary) driven by plain callbacks,
// mirroring the teacher's VisitSubtree-callback idiom at every lookup
// site.
package latticebuilder

import (
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/kanaconv/kkconv/internal/dictionary"
	"github.com/kanaconv/kkconv/internal/lattice"
	stdlogger "github.com/kanaconv/kkconv/internal/logger"
	"github.com/kanaconv/kkconv/internal/model"
	"github.com/kanaconv/kkconv/internal/posmatch"
	"github.com/kanaconv/kkconv/internal/utils"
)

// Reserved left/right connection ids for synthetic nodes. Real
// dictionaries reserve a small range of ids for these categories; the
// values here are this module's own convention, loaded nowhere else, so
// any value disjoint from the real token id space works.
const (
	UnknownLeftID  uint16 = 0
	UnknownRightID uint16 = 0
	NumberLeftID   uint16 = 1
	NumberRightID  uint16 = 1
	// HistoryRightID marks a history node's right edge so the segmenter
	// (given a bitmap that special-cases it) can forbid splitting inside
	// committed history (spec §4.G step 1).
	HistoryRightID    uint16 = 2
	FixedValueRightID uint16 = 3
)

// DefaultUnknownWordCost is the fallback per-character cost for the
// unknown-word lattice fallback path (spec §4.G step 3, §7
// DictionaryEmpty). Concrete systems derive this from the POS matcher's
// "default unknown" row; absent richer data we use one fixed value.
const DefaultUnknownWordCost int16 = 3000

// DefaultNumberWordCost is the cost assigned to a fused number-compound
// node (spec §4.G step 4).
const DefaultNumberWordCost int16 = 2000

// Options configures one Build call.
type Options struct {
	RequestType      model.RequestType
	HistoryByteBound int // spec §7 recoverable bound
}

// Builder holds the read-only collaborators the lattice build reads
// from; safe to share across concurrent calls (spec §5).
type Builder struct {
	dict       *dictionary.Dictionary
	suffixDict *dictionary.Dictionary
	posMatch   *posmatch.Matcher
	logger     *log.Logger
}

func New(dict, suffixDict *dictionary.Dictionary, posMatch *posmatch.Matcher, logger *log.Logger) *Builder {
	if logger == nil {
		logger = stdlogger.New("latticebuilder")
	}
	return &Builder{dict: dict, suffixDict: suffixDict, posMatch: posMatch, logger: logger}
}

// Result is everything the Viterbi engine and candidate synthesiser
// need from a build pass.
type Result struct {
	Lattice            *lattice.Lattice
	Key                []byte
	ConversionStart    int // byte offset where conversion segments begin
	SegmentBounds      []int // cumulative byte offsets of every segment (history+conversion), including 0 and len(Key)
	FixedBoundaries    []int // byte offsets that must not be straddled (spec §4.G step 7)
	HistoryDropped     bool
	Segments           []model.Segment // the segment list actually used (history dropped if HistoryDropped)
	HistorySegmentCount int            // len(Segments) entries at the front that are history
}

// Build runs spec §4.G end to end. segs is read but never mutated here;
// the driver (§4.J) is responsible for rewriting it with the final
// candidates after decoding.
func (b *Builder) Build(segs *model.Segments, opts Options) (*Result, error) {
	historyLen := 0
	for i := range segs.List {
		if segs.List[i].IsHistory() {
			historyLen += len(segs.List[i].Key)
		}
	}

	historyDropped := false
	list := segs.List
	if opts.HistoryByteBound > 0 && historyLen > opts.HistoryByteBound {
		b.logger.Warnf("latticebuilder: history reading %d bytes exceeds bound %d, dropping history", historyLen, opts.HistoryByteBound)
		filtered := make([]model.Segment, 0, len(segs.List))
		for i := range segs.List {
			if !segs.List[i].IsHistory() {
				filtered = append(filtered, segs.List[i])
			}
		}
		list = filtered
		historyDropped = true
	}

	bounds := make([]int, 0, len(list)+1)
	bounds = append(bounds, 0)
	var key []byte
	conversionStart := -1
	var fixedBoundaries []int
	for i := range list {
		if conversionStart < 0 && !list[i].IsHistory() {
			conversionStart = len(key)
		}
		key = append(key, list[i].Key...)
		bounds = append(bounds, len(key))
		if list[i].Type == model.FixedBoundary && i > 0 {
			fixedBoundaries = append(fixedBoundaries, bounds[len(bounds)-2])
		}
	}
	if conversionStart < 0 {
		conversionStart = len(key)
	}

	lat := lattice.New(key)

	b.insertHistoryNodes(lat, list, bounds)
	b.insertNormalAndUnknownNodes(lat, key, conversionStart, list, bounds)
	b.insertNumberCompounds(lat, key, conversionStart)
	b.insertSuffixNodes(lat, key)
	if opts.RequestType == model.Prediction || opts.RequestType == model.PartialPrediction {
		lastConversionStart := conversionStart
		if len(list) > 0 && !list[len(list)-1].IsHistory() {
			lastConversionStart = bounds[len(list)-1]
		}
		b.insertPredictiveNodes(lat, key, lastConversionStart)
	}
	b.applyFixedValueSegments(lat, list, bounds)
	b.markWeakConnected(lat, fixedBoundaries)

	b.logger.Debugf("latticebuilder: built %d nodes over %d bytes (conversionStart=%d)", lat.NumNodes(), len(key), conversionStart)

	historySegCount := 0
	for i := range list {
		if list[i].IsHistory() {
			historySegCount++
		}
	}

	return &Result{
		Lattice:              lat,
		Key:                  key,
		ConversionStart:      conversionStart,
		SegmentBounds:        bounds,
		FixedBoundaries:      fixedBoundaries,
		HistoryDropped:       historyDropped,
		Segments:             list,
		HistorySegmentCount:  historySegCount,
	}, nil
}

// insertHistoryNodes implements spec §4.G step 1: one node per history
// segment, spanning its reading, ending exactly at that segment's
// boundary in the concatenated key.
func (b *Builder) insertHistoryNodes(lat *lattice.Lattice, list []model.Segment, bounds []int) {
	for i := range list {
		if !list[i].IsHistory() {
			continue
		}
		start := bounds[i]
		n := lattice.Pending()
		n.Start = start
		n.Span = len(list[i].Key)
		n.Key = list[i].Key
		n.Value = list[i].Value
		n.RightID = HistoryRightID
		n.LeftID = HistoryRightID
		n.Category = lattice.History
		lat.Insert(n)
	}
}

// insertNormalAndUnknownNodes implements spec §4.G steps 2-3: for every
// UTF-8-aligned byte position in the conversion region, query
// lookup_prefix for dictionary hypotheses and always add one
// single-character unknown-word fallback so the lattice stays connected
// even where the dictionary has no entry (spec §7 DictionaryEmpty).
func (b *Builder) insertNormalAndUnknownNodes(lat *lattice.Lattice, key []byte, conversionStart int, list []model.Segment, bounds []int) {
	n := len(key)
	for p := conversionStart; p < n; {
		_, size := utf8.DecodeRune(key[p:])
		if size <= 0 {
			size = 1
		}

		hit := false
		b.dict.LookupPrefix(key[p:], func(tok dictionary.Token) dictionary.ControlFlow {
			hit = true
			nd := lattice.Pending()
			nd.Start = p
			nd.Span = len(tok.Key)
			nd.Key = tok.Key
			nd.Value = tok.Value
			nd.LeftID = tok.LeftID
			nd.RightID = tok.RightID
			nd.WordCost = tok.WordCost
			nd.Lid = tok.Lid
			nd.Rid = tok.Rid
			nd.Category = lattice.Normal
			lat.Insert(nd)
			return dictionary.Continue
		})

		unk := lattice.Pending()
		unk.Start = p
		unk.Span = size
		unk.Key = string(key[p : p+size])
		unk.Value = unk.Key
		unk.LeftID = UnknownLeftID
		unk.RightID = UnknownRightID
		unk.WordCost = b.unknownCost()
		unk.Category = lattice.Unknown
		lat.Insert(unk)
		_ = hit

		p += size
	}
}

func (b *Builder) unknownCost() int16 {
	return DefaultUnknownWordCost
}

// isDigitByte reports an ASCII digit byte, used only to find maximal
// digit runs; kana numerals are matched separately since they are
// multi-byte.
func isDigitByte(c byte) bool { return c >= '0' && c <= '9' }

var kanaNumerals = map[rune]bool{
	'一': true, '二': true, '三': true, '四': true, '五': true,
	'六': true, '七': true, '八': true, '九': true, '十': true,
	'百': true, '千': true, '万': true, '〇': true, '億': true,
}

// insertNumberCompounds implements spec §4.G step 4: fuse consecutive
// digits/kana-numerals into one synthetic node at the left-most
// position of the run, so the decoder need not pay per-character
// unknown-word cost for multi-digit numbers.
func (b *Builder) insertNumberCompounds(lat *lattice.Lattice, key []byte, conversionStart int) {
	n := len(key)
	p := conversionStart
	for p < n {
		start := p
		runLen := 0 // bytes
		chars := 0
		for p < n {
			if isDigitByte(key[p]) {
				runLen++
				chars++
				p++
				continue
			}
			r, size := utf8.DecodeRune(key[p:])
			if kanaNumerals[r] {
				runLen += size
				chars++
				p += size
				continue
			}
			break
		}
		if chars > 1 {
			nd := lattice.Pending()
			nd.Start = start
			nd.Span = runLen
			nd.Key = string(key[start : start+runLen])
			nd.Value = nd.Key
			nd.LeftID = NumberLeftID
			nd.RightID = NumberRightID
			if utils.IsOnlyNumbers(nd.Key) {
				// A run of plain ASCII digits is the common case (typed
				// directly); spelled-out kana numerals carry a small cost
				// penalty relative to the digit run.
				nd.WordCost = DefaultNumberWordCost
			} else {
				nd.WordCost = DefaultNumberWordCost + 200
			}
			nd.Category = lattice.Number
			lat.Insert(nd)
		}
		if runLen == 0 {
			_, size := utf8.DecodeRune(key[p:])
			if size <= 0 {
				size = 1
			}
			p += size
		}
	}
}

// insertSuffixNodes appends functional-word nodes from the suffix
// dictionary (spec §4.A "suffix dictionary") after every real-word node,
// i.e. at every position a normal/number node ends. This lets the
// decoder attach conjugation/particle suffixes the main dictionary
// doesn't itself carry as compounds.
func (b *Builder) insertSuffixNodes(lat *lattice.Lattice, key []byte) {
	if b.suffixDict == nil {
		return
	}
	n := len(key)
	seen := make(map[int]bool)
	for p := 0; p <= n; p++ {
		for _, id := range lat.EndNodes(p) {
			nd := lat.Node(id)
			if nd.Category != lattice.Normal && nd.Category != lattice.Number {
				continue
			}
			if seen[p] || p >= n {
				continue
			}
			seen[p] = true
			b.suffixDict.LookupPrefix(key[p:], func(tok dictionary.Token) dictionary.ControlFlow {
				s := lattice.Pending()
				s.Start = p
				s.Span = len(tok.Key)
				s.Key = tok.Key
				s.Value = tok.Value
				s.LeftID = tok.LeftID
				s.RightID = tok.RightID
				s.WordCost = tok.WordCost
				s.Lid = tok.Lid
				s.Rid = tok.Rid
				s.Category = lattice.Normal
				lat.Insert(s)
				return dictionary.Continue
			})
		}
	}
}

// insertPredictiveNodes implements spec §4.G step 5 and invariant 6
// (spec §8): predictive lookup happens only at byte positions within the
// final conversion segment (never earlier, never inside history), for
// each such position emitting nodes whose full dictionary span exceeds
// what remains of the key. Those nodes are clipped to end exactly at the
// lattice's EOS position (len(key)) so Viterbi can still route through
// them, while Key/Value keep the token's full (longer) text — the
// "virtual extension past |K|" spec §3 describes.
func (b *Builder) insertPredictiveNodes(lat *lattice.Lattice, key []byte, lastConversionSegmentStart int) {
	n := len(key)
	for p := lastConversionSegmentStart; p < n; {
		b.dict.LookupPredictive(key[p:], func(tok dictionary.Token) dictionary.ControlFlow {
			if len(tok.Key) <= n-p {
				// Not actually an extension past the end; a normal
				// lookup_prefix hit already covers this case.
				return dictionary.Continue
			}
			nd := lattice.Pending()
			nd.Start = p
			nd.Span = n - p // clipped so the node still reaches EOS
			nd.Key = tok.Key
			nd.Value = tok.Value
			nd.LeftID = tok.LeftID
			nd.RightID = tok.RightID
			nd.WordCost = tok.WordCost
			nd.Lid = tok.Lid
			nd.Rid = tok.Rid
			nd.Category = lattice.Predictive
			lat.Insert(nd)
			return dictionary.Continue
		})
		_, size := utf8.DecodeRune(key[p:])
		if size <= 0 {
			size = 1
		}
		p += size
	}
}

// applyFixedValueSegments adds, for each FIXED_VALUE segment, one node
// spanning the segment's reading and carrying its fixed surface, with
// FixedValueRightID as both connection ids and word cost 0. The
// normal/unknown nodes already built in that range are not removed and
// still compete with it in Viterbi, and a FIXED_VALUE segment's edges are
// not added to the fixed boundaries, so nodes straddling them are not
// marked WeakConnected.
func (b *Builder) applyFixedValueSegments(lat *lattice.Lattice, list []model.Segment, bounds []int) {
	for i := range list {
		if list[i].Type != model.FixedValue {
			continue
		}
		start := bounds[i]
		nd := lattice.Pending()
		nd.Start = start
		nd.Span = len(list[i].Key)
		nd.Key = list[i].Key
		nd.Value = list[i].Value
		nd.RightID = FixedValueRightID
		nd.LeftID = FixedValueRightID
		nd.WordCost = 0
		nd.Category = lattice.BoundaryOfNode
		lat.Insert(nd)
	}
}

// markWeakConnected implements spec §4.G step 7: a node whose span
// straddles a FIXED_BOUNDARY segment edge can never appear on a decoded
// path, since the boundary must be realised exactly there. Such nodes are
// recategorised once here, and internal/viterbi skips WeakConnected nodes
// in both its forward pass and its N-best walk, so they keep
// Prev == NoNode and never appear on a decoded path.
func (b *Builder) markWeakConnected(lat *lattice.Lattice, fixedBoundaries []int) {
	if len(fixedBoundaries) == 0 {
		return
	}
	for id := lattice.NodeID(0); int(id) < lat.NumNodes(); id++ {
		n := lat.Node(id)
		if n.Category == lattice.Sentinel {
			continue
		}
		end := n.Start + n.Span
		for _, bnd := range fixedBoundaries {
			if n.Start < bnd && bnd < end {
				lat.SetCategory(id, lattice.WeakConnected)
				break
			}
		}
	}
}

