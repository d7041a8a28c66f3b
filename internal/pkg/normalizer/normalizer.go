// Package normalizer canonicalizes team names and scores how similar two names are.
//
// Normalization is cosmetic only: accents, scripts, punctuation, spacing and trailing club-type
// tokens. Age groups (U19, U21), reserve sides (B) and women's markers (W) denote different teams
// and are always kept.
package normalizer

import (
	"regexp"
	"sort"
	"strings"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// clubSuffixes are dropped only when they are the last token ("Real Madrid FC"), never elsewhere ("FC Barcelona").
var clubSuffixes = map[string]bool{
	"fc": true,
	"cf": true,
	"sc": true,
	"ac": true,
}

var (
	// friendly/virtual marker, e.g. "(Γ)" for Greek friendlies, which transliterates to "(g)".
	friendlyMarker = regexp.MustCompile(`\s*\((?:γ|g)\)\s*$`)
	punctuation    = regexp.MustCompile(`[.\-_]`)
	nonWord        = regexp.MustCompile(`[^\w\s]`)
	spaces         = regexp.MustCompile(`\s+`)
)

var lower = cases.Lower(language.Und)

// Normalize returns the canonical form of a team name. Normalize(Normalize(x)) == Normalize(x).
//
// The friendly marker goes before the club suffix, so "Team FC (Γ)" normalizes to "team".
func Normalize(name string) string {
	return stripClubSuffix(cosmetic(name))
}

// cosmetic applies every normalization step except club suffix stripping.
func cosmetic(name string) string {
	if name == "" {
		return ""
	}

	s := lower.String(name)
	s = friendlyMarker.ReplaceAllString(s, "")
	s = strings.ToLower(unidecode.Unidecode(s))
	s = friendlyMarker.ReplaceAllString(s, "")

	s = punctuation.ReplaceAllString(s, " ")
	s = nonWord.ReplaceAllString(s, " ")
	s = spaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func stripClubSuffix(s string) string {
	tokens := strings.Split(s, " ")
	for len(tokens) > 1 && clubSuffixes[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}

// sortedTokens returns the tokens of a name in alphabetical order joined by spaces.
func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// form keeps both spellings of a name used for scoring.
type form struct {
	normalized string
	cosmetic   string
}

func newForm(name string) form {
	c := cosmetic(name)
	return form{normalized: stripClubSuffix(c), cosmetic: c}
}
