package scribes

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var defaultStopwords = map[string]bool{
	"a": true, "an": true, "and": true, "as": true, "but": true, "for": true, "in": true, "is": true,
	"of": true, "on": true, "or": true, "than": true, "the": true, "to": true, "with": true,
}

// Slugify makes a lower-case, hyphenated, ASCII slug from a title, dropping
// common stop words.
func Slugify(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	words := strings.FieldsFunc(strings.ToLower(folded), func(r rune) bool {
		return !(r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)))
	})
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if !defaultStopwords[w] {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, "-")
}
