package align

import (
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// Span is a sentence of a text. Start and End are rune offsets, End exclusive;
// trailing whitespace belongs to the span it follows. Text is trimmed.
type Span struct {
	Text  string
	Start int
	End   int
}

// Sentences splits text at Unicode sentence boundaries (UAX #29). Spans made
// only of whitespace are dropped, so offsets may skip over them.
func Sentences(text string) []Span {
	var spans []Span
	state := -1
	pos := 0
	for len(text) > 0 {
		var sentence string
		sentence, text, state = uniseg.FirstSentenceInString(text, state)
		n := utf8.RuneCountInString(sentence)
		if trimmed := strings.TrimSpace(sentence); trimmed != "" {
			spans = append(spans, Span{Text: trimmed, Start: pos, End: pos + n})
		}
		pos += n
	}
	return spans
}
