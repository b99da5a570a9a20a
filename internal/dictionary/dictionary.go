// Package dictionary adapts a patricia trie of reading->token entries to
// the prefix/predictive/exact lookup shape spec §4.A and §9 describe: a
// polymorphic dictionary with lookup_prefix, lookup_predictive,
// lookup_exact and lookup_reverse, all driven by a small callback
// interface instead of returning an allocated slice.
//
// Grounded on the teacher's patricia.Trie usage in pkg/suggest/trie.go
// and pkg/suggest/completion.go (VisitSubtree over a
// github.com/tchap/go-patricia/v2/patricia.Trie), generalised from a
// flat word->frequency trie to a reading->[]Token trie.
package dictionary

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"

	stdlogger "github.com/kanaconv/kkconv/internal/logger"
	"github.com/kanaconv/kkconv/internal/posmatch"
)

// ControlFlow is returned by a token callback to say whether lookup
// should keep visiting further hits.
type ControlFlow int

const (
	Continue ControlFlow = iota
	Stop
)

// errStop is the sentinel VisitorFunc error used to unwind go-patricia's
// Visit/VisitSubtree/VisitPrefixes walk early without treating it as a
// real failure.
var errStop = stopError{}

type stopError struct{}

func (stopError) Error() string { return "dictionary: lookup stopped early" }

// Token is an immutable dictionary record (spec §3 "Token").
type Token struct {
	Key        string
	Value      string
	LeftID     uint16
	RightID    uint16
	WordCost   int16
	Lid        uint16
	Rid        uint16
	POSGroup   posmatch.ID
	Attributes uint32
}

// Callback receives one hit per hook invocation and decides whether to
// continue enumeration. No ordering guarantee is provided (spec §4.A).
type Callback func(Token) ControlFlow

// Dictionary is a read-only, reentrant patricia-trie-backed adapter. It
// is safe for concurrent lookups once built: go-patricia's VisitSubtree/
// VisitPrefixes/Get perform no writes.
type Dictionary struct {
	trie        *patricia.Trie
	byVal       map[string][]Token // lookup_reverse index; built lazily on first use
	reverseOnce sync.Once
	logger      *log.Logger
}

// New creates an empty dictionary. Call Add for every token before
// serving lookups; the trie is never mutated again afterwards.
func New(logger *log.Logger) *Dictionary {
	if logger == nil {
		logger = stdlogger.New("dictionary")
	}
	return &Dictionary{
		trie:   patricia.NewTrie(),
		logger: logger,
	}
}

// Add inserts one token. Multiple tokens may share a reading; they
// accumulate under the same trie entry.
func (d *Dictionary) Add(tok Token) {
	key := patricia.Prefix(tok.Key)
	if item := d.trie.Get(key); item != nil {
		existing := item.([]Token)
		d.trie.Delete(key)
		d.trie.Insert(key, append(existing, tok))
		return
	}
	d.trie.Insert(key, []Token{tok})
}

// Len reports how many distinct readings are indexed.
func (d *Dictionary) Len() int {
	n := 0
	d.trie.Visit(func(patricia.Prefix, patricia.Item) error {
		n++
		return nil
	})
	return n
}

func (d *Dictionary) visit(walk func(visitor patricia.VisitorFunc) error, cb Callback) {
	err := walk(func(_ patricia.Prefix, item patricia.Item) error {
		toks := item.([]Token)
		for _, t := range toks {
			if cb(t) == Stop {
				return errStop
			}
		}
		return nil
	})
	if err != nil && err != errStop {
		d.logger.Errorf("dictionary: lookup error: %v", err)
	}
}

// LookupPrefix yields every token whose reading is a byte-prefix of key
// (spec §4.A): "ame" matches tokens keyed "a", "am", "ame".
func (d *Dictionary) LookupPrefix(key []byte, cb Callback) {
	d.visit(func(v patricia.VisitorFunc) error {
		return d.trie.VisitPrefixes(patricia.Prefix(key), v)
	}, cb)
}

// LookupPredictive yields every token whose reading starts with key
// (spec §4.A): used only for prediction-head expansion (spec §4.G step 5).
func (d *Dictionary) LookupPredictive(key []byte, cb Callback) {
	d.visit(func(v patricia.VisitorFunc) error {
		return d.trie.VisitSubtree(patricia.Prefix(key), v)
	}, cb)
}

// LookupExact yields the tokens keyed exactly by key, if any.
func (d *Dictionary) LookupExact(key []byte, cb Callback) {
	item := d.trie.Get(patricia.Prefix(key))
	if item == nil {
		return
	}
	for _, t := range item.([]Token) {
		if cb(t) == Stop {
			return
		}
	}
}

// LookupReverse yields tokens whose surface value equals value. Not used
// by the core decoding path (spec §4.A: "unused by core"); kept for
// adapter-interface completeness and exercised only by tests and tools
// that need surface->reading lookups (e.g. dictionary introspection).
func (d *Dictionary) LookupReverse(value []byte, cb Callback) {
	d.reverseOnce.Do(d.buildReverseIndex)
	for _, t := range d.byVal[string(value)] {
		if cb(t) == Stop {
			return
		}
	}
}

func (d *Dictionary) buildReverseIndex() {
	d.byVal = make(map[string][]Token)
	d.trie.Visit(func(_ patricia.Prefix, item patricia.Item) error {
		for _, t := range item.([]Token) {
			d.byVal[t.Value] = append(d.byVal[t.Value], t)
		}
		return nil
	})
}
