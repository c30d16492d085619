// Package resolve matches player names from the odds feed to reference
// player ids, through an override table and the players table.
package resolve

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// suffixes are generational suffixes dropped from the end of a name.
var suffixes = map[string]bool{"jr": true, "sr": true, "ii": true, "iii": true}

// NormalizeName reduces a display name to its lookup form: accents removed,
// ASCII only, periods dropped, a trailing generational suffix dropped, lowercase,
// single spaces. "Ronald Acuña Jr." becomes "ronald acuna".
func NormalizeName(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, name)
	if err != nil {
		s = name
	}

	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
	s = strings.ToLower(strings.ReplaceAll(s, ".", ""))

	fields := strings.Fields(s)
	if len(fields) > 1 && suffixes[fields[len(fields)-1]] {
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}
