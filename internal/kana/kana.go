// Package kana implements the small surface-script transforms the dummy
// candidate synthesiser needs (spec §4.I): hiragana<->katakana and
// half-width kana rendering.
//
// Grounded on williambechard-japaneseparse's katakanaToHiragana helper
// (tokenize/tokenize.go), which shifts by the fixed 0x60 codepoint
// offset between the Hiragana and Katakana Unicode blocks; ToKatakana
// here is that same shift run in the other direction.
package kana

// hiraganaToKatakanaOffset is the codepoint distance between a hiragana
// character and its katakana counterpart (U+3042 あ vs U+30A2 ア, etc).
const hiraganaToKatakanaOffset = 0x60

// ToKatakana renders a hiragana reading as katakana, leaving any
// non-hiragana rune (punctuation, already-katakana, kanji) untouched.
func ToKatakana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x3041 && r <= 0x3096 {
			runes[i] = r + hiraganaToKatakanaOffset
		}
	}
	return string(runes)
}

// ToHiragana renders a katakana string as hiragana; the inverse of
// ToKatakana, grounded directly on the pack's katakanaToHiragana.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - hiraganaToKatakanaOffset
		}
	}
	return string(runes)
}

// halfWidthKatakana maps full-width katakana to their JIS X 0201
// half-width equivalents; unmapped runes pass through unchanged. Only
// the plain gojuon range is covered — voiced/semi-voiced marks combine
// into a separate trailing half-width codepoint in real IMEs, which this
// converter's dummy-candidate use case (a visibly-distinct surface
// fallback, not a lossless round trip) doesn't need.
var halfWidthKatakana = map[rune]rune{
	'ア': 0xFF71, 'イ': 0xFF72, 'ウ': 0xFF73, 'エ': 0xFF74, 'オ': 0xFF75,
	'カ': 0xFF76, 'キ': 0xFF77, 'ク': 0xFF78, 'ケ': 0xFF79, 'コ': 0xFF7A,
	'サ': 0xFF7B, 'シ': 0xFF7C, 'ス': 0xFF7D, 'セ': 0xFF7E, 'ソ': 0xFF7F,
	'タ': 0xFF80, 'チ': 0xFF81, 'ツ': 0xFF82, 'テ': 0xFF83, 'ト': 0xFF84,
	'ナ': 0xFF85, 'ニ': 0xFF86, 'ヌ': 0xFF87, 'ネ': 0xFF88, 'ノ': 0xFF89,
	'ハ': 0xFF8A, 'ヒ': 0xFF8B, 'フ': 0xFF8C, 'ヘ': 0xFF8D, 'ホ': 0xFF8E,
	'マ': 0xFF8F, 'ミ': 0xFF90, 'ム': 0xFF91, 'メ': 0xFF92, 'モ': 0xFF93,
	'ヤ': 0xFF94, 'ユ': 0xFF95, 'ヨ': 0xFF96,
	'ラ': 0xFF97, 'リ': 0xFF98, 'ル': 0xFF99, 'レ': 0xFF9A, 'ロ': 0xFF9B,
	'ワ': 0xFF9C, 'ヲ': 0xFF66, 'ン': 0xFF9D,
	'ー': 0xFF70, '。': 0xFF61, '、': 0xFF64,
}

// ToHalfWidth renders a katakana string in half-width form; hiragana
// input is first converted to katakana, since JIS X 0201 has no
// half-width hiragana block.
func ToHalfWidth(s string) string {
	runes := []rune(ToKatakana(s))
	for i, r := range runes {
		if hw, ok := halfWidthKatakana[r]; ok {
			runes[i] = hw
		}
	}
	return string(runes)
}
