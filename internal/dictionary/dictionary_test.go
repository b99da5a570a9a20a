package dictionary

import (
	"sort"
	"testing"

	"github.com/charmbracelet/log"
)

func newTestDict() *Dictionary {
	d := New(log.Default())
	d.Add(Token{Key: "あ", Value: "亜"})
	d.Add(Token{Key: "あい", Value: "愛"})
	d.Add(Token{Key: "あいだ", Value: "間"})
	d.Add(Token{Key: "あいだに", Value: "間に"})
	return d
}

// LookupPrefix yields every token whose reading is a byte-prefix of the
// query key (spec §4.A): querying "あいだに" must surface all four
// shorter-or-equal readings, never anything longer.
func TestLookupPrefix(t *testing.T) {
	d := newTestDict()
	var got []string
	d.LookupPrefix([]byte("あいだに"), func(tok Token) ControlFlow {
		got = append(got, tok.Key)
		return Continue
	})
	sort.Strings(got)
	want := []string{"あ", "あい", "あいだ", "あいだに"}
	if len(got) != len(want) {
		t.Fatalf("LookupPrefix returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("LookupPrefix returned %v, want %v", got, want)
			break
		}
	}
}

// The callback's Stop return must halt enumeration (spec §4.A "the
// callback... returns {CONTINUE, STOP}").
func TestLookupPrefixStop(t *testing.T) {
	d := newTestDict()
	count := 0
	d.LookupPrefix([]byte("あいだに"), func(tok Token) ControlFlow {
		count++
		return Stop
	})
	if count != 1 {
		t.Errorf("Stop did not halt enumeration after first hit: count=%d", count)
	}
}

// LookupPredictive yields tokens whose reading starts with (extends) the
// query key, the mirror image of LookupPrefix (spec §4.A).
func TestLookupPredictive(t *testing.T) {
	d := newTestDict()
	var got []string
	d.LookupPredictive([]byte("あい"), func(tok Token) ControlFlow {
		got = append(got, tok.Key)
		return Continue
	})
	sort.Strings(got)
	want := []string{"あい", "あいだ", "あいだに"}
	if len(got) != len(want) {
		t.Fatalf("LookupPredictive returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("LookupPredictive returned %v, want %v", got, want)
			break
		}
	}
}

// LookupExact matches only the exact reading, irrespective of any
// shorter prefix or longer extension also present in the dictionary.
func TestLookupExact(t *testing.T) {
	d := newTestDict()
	var got []string
	d.LookupExact([]byte("あい"), func(tok Token) ControlFlow {
		got = append(got, tok.Value)
		return Continue
	})
	if len(got) != 1 || got[0] != "愛" {
		t.Errorf("LookupExact(あい) = %v, want [愛]", got)
	}

	got = nil
	d.LookupExact([]byte("あいう"), func(tok Token) ControlFlow {
		got = append(got, tok.Value)
		return Continue
	})
	if len(got) != 0 {
		t.Errorf("LookupExact on a non-existent key returned %v, want none", got)
	}
}

// Multiple tokens sharing a reading (homophones) must all survive Add
// under the same trie entry, not overwrite one another.
func TestAddAccumulatesHomophones(t *testing.T) {
	d := New(log.Default())
	d.Add(Token{Key: "かんじ", Value: "漢字"})
	d.Add(Token{Key: "かんじ", Value: "感じ"})

	var got []string
	d.LookupExact([]byte("かんじ"), func(tok Token) ControlFlow {
		got = append(got, tok.Value)
		return Continue
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 homophone tokens, got %v", got)
	}
}

// LookupReverse (spec §4.A: "unused by core", kept for adapter-interface
// completeness) finds every token whose surface equals the query value.
func TestLookupReverse(t *testing.T) {
	d := newTestDict()
	var got []string
	d.LookupReverse([]byte("愛"), func(tok Token) ControlFlow {
		got = append(got, tok.Key)
		return Continue
	})
	if len(got) != 1 || got[0] != "あい" {
		t.Errorf("LookupReverse(愛) = %v, want [あい]", got)
	}
}
