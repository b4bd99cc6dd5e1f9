// Package align maps recognizer token timings onto the sentences of a
// transcript.
package align

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// TokenTiming is one sub-word token as emitted by a recognizer, with its
// start time in seconds from the beginning of the audio.
type TokenTiming struct {
	Token string  `json:"token"`
	Start float64 `json:"start"`
}

// SentenceTimestamp is a sentence of the transcript and the time it starts.
type SentenceTimestamp struct {
	Sentence string  `json:"sentence"`
	Start    float64 `json:"start"`
}

// wordMarker is the SentencePiece word-boundary symbol some engines leave in
// their tokens.
const wordMarker = "▁"

// Align returns one timestamp per sentence of text. A sentence takes the start
// time of the first token whose text offset lands inside it; sentences no token
// lands in are placed proportionally to their position in the text. Sentences
// are returned as written; only token matching sees the NFC form.
func Align(text string, tokens []TokenTiming, duration float64) []SentenceTimestamp {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	spans := Sentences(text)
	nfc, origin := nfcOffsets(text)
	offsets := TokenOffsets(nfc, tokens)
	if origin != nil {
		for i, off := range offsets {
			if off < len(origin) {
				offsets[i] = origin[off]
			}
		}
	}
	total := utf8.RuneCountInString(text)

	out := make([]SentenceTimestamp, 0, len(spans))
	for _, sp := range spans {
		start, found := 0.0, false
		for i, off := range offsets {
			if off >= sp.Start && off < sp.End {
				start, found = tokens[i].Start, true
				break
			}
		}
		if !found {
			start = float64(sp.Start) / float64(total) * duration
		}
		out = append(out, SentenceTimestamp{Sentence: sp.Text, Start: start})
	}
	return out
}

// TokenOffsets returns, for each token, the rune offset in text of its first
// matched character. Text and tokens are walked once, left to right: text
// characters that don't match the current token character are skipped, so a
// token that matches nothing consumes the rest of the text. Tokens with no
// matched character get offset 0.
func TokenOffsets(text string, tokens []TokenTiming) []int {
	runes := []rune(text)
	offsets := make([]int, len(tokens))
	cursor := 0
	for i, tok := range tokens {
		first := -1
		for _, r := range cleanToken(tok.Token) {
			for cursor < len(runes) {
				c := runes[cursor]
				cursor++
				if unicode.IsSpace(c) || !sameLetter(c, r) {
					continue
				}
				if first < 0 {
					first = cursor - 1
				}
				break
			}
		}
		if first < 0 {
			first = 0
		}
		offsets[i] = first
	}
	return offsets
}

// nfcOffsets returns the NFC form of text and, for each of its runes, the
// rune offset in text of the normalization segment it came from. The slice
// is nil when text is already NFC.
func nfcOffsets(text string) (string, []int) {
	if norm.NFC.IsNormalString(text) {
		return text, nil
	}
	var (
		b      strings.Builder
		origin []int
		runes  int
	)
	for rest := text; rest != ""; {
		n := norm.NFC.NextBoundaryInString(rest, true)
		if n <= 0 {
			n = len(rest)
		}
		seg := norm.NFC.String(rest[:n])
		for range utf8.RuneCountInString(seg) {
			origin = append(origin, runes)
		}
		b.WriteString(seg)
		runes += utf8.RuneCountInString(rest[:n])
		rest = rest[n:]
	}
	return b.String(), origin
}

func cleanToken(tok string) string {
	tok = norm.NFC.String(strings.ReplaceAll(tok, wordMarker, ""))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, tok)
}

func sameLetter(a, b rune) bool {
	return a == b || unicode.ToLower(a) == unicode.ToLower(b) || unicode.ToUpper(a) == unicode.ToUpper(b)
}
