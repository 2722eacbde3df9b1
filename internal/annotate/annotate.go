// Package annotate finds Solana addresses and transaction signatures in
// finished assistant text so front-ends can link them to an explorer.
package annotate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/michaelbrown/ibrl/internal/solana"
)

// Kind classifies an annotation.
type Kind string

const (
	KindAddress     Kind = "address"
	KindTransaction Kind = "transaction"
)

// ExplorerURL is the base for generated links.
var ExplorerURL = "https://solscan.io"

// Annotation is one recognised identifier in a message.
type Annotation struct {
	Kind  Kind   `json:"kind"`
	Value string `json:"value"`
	URL   string `json:"url"`
}

var candidate = regexp.MustCompile(`[1-9A-HJ-NP-Za-km-z]{32,88}`)

// Annotate returns the distinct addresses and signatures in text, in order of first appearance.
func Annotate(text string) []Annotation {
	var out []Annotation
	seen := map[string]bool{}
	for _, loc := range candidate.FindAllStringIndex(text, -1) {
		if !standalone(text, loc[0], loc[1]) {
			continue
		}
		v := text[loc[0]:loc[1]]
		if seen[v] {
			continue
		}

		var a Annotation
		switch {
		case solana.ValidateSignature(v):
			a = Annotation{Kind: KindTransaction, Value: v, URL: ExplorerURL + "/tx/" + v}
		case solana.ValidateAddress(v) && looksLikeKey(v):
			a = Annotation{Kind: KindAddress, Value: v, URL: ExplorerURL + "/account/" + v}
		default:
			continue
		}
		seen[v] = true
		out = append(out, a)
	}
	return out
}

// Render appends an explorer link list to text when it mentions anything linkable.
func Render(text string) string {
	anns := Annotate(text)
	if len(anns) == 0 {
		return text
	}
	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\n🔗 Explorer links:\n")
	for _, a := range anns {
		fmt.Fprintf(&b, "• %s %s: %s\n", a.Kind, solana.Short(a.Value), a.URL)
	}
	return b.String()
}

// standalone rejects matches embedded in longer words, URLs or paths.
func standalone(text string, start, end int) bool {
	if start > 0 && isWordByte(text[start-1]) {
		return false
	}
	if end < len(text) && isWordByte(text[end]) {
		return false
	}
	return true
}

func isWordByte(c byte) bool {
	return c == '/' || c == '_' || c == '-' ||
		('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// looksLikeKey filters long all-letter words; real keys mix digits and both cases.
func looksLikeKey(s string) bool {
	var digit, upper, lower bool
	for _, c := range s {
		switch {
		case '0' <= c && c <= '9':
			digit = true
		case 'A' <= c && c <= 'Z':
			upper = true
		case 'a' <= c && c <= 'z':
			lower = true
		}
	}
	return digit && upper && lower
}
