package matcher

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	parenthetical     = regexp.MustCompile(`\([^)]*\)`)
	trailingQualifier = regexp.MustCompile(`\s*[-–|].*$`)
	leadingArticle    = regexp.MustCompile(`^(de|het|een)\s+`)
	quotesAndDots     = strings.NewReplacer("’", "", "'", "", "`", "", `"`, "", ".", "", ",", "")
	urlLabelSuffix    = regexp.MustCompile(`(?i)\s*\(https?://[^)]+\)\s*$`)

	// accentFold decomposes to NFD and drops the combining marks, so
	// "Geïnteresseerd" and "Geinteresseerd" canonicalize identically.
	accentFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// StripURLLabel removes a trailing " (https://…)" suffix from a school name.
// The suffix is the normalizer's own artifact on anchor text.
func StripURLLabel(name string) string {
	return strings.TrimSpace(urlLabelSuffix.ReplaceAllString(name, ""))
}

// normalizeName lowercases, folds accents, strips quotes and sentence
// punctuation and collapses whitespace.
func normalizeName(name string) string {
	s := strings.ToLower(name)
	if folded, _, err := transform.String(accentFold, s); err == nil {
		s = folded
	}
	s = quotesAndDots.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// CanonicalKey reduces a school name to its comparable core: normalized,
// parentheticals removed, anything after a dash or pipe separator dropped
// (those usually carry a location qualifier, not the name), and a leading
// Dutch article stripped so "De Voorbeeld School" and "Voorbeeld School"
// land on the same key.
func CanonicalKey(name string) string {
	s := normalizeName(name)
	s = parenthetical.ReplaceAllString(s, " ")
	s = trailingQualifier.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")
	return leadingArticle.ReplaceAllString(s, "")
}

// defaultStopwords are tokens that carry no discriminating signal between
// school names: Dutch articles and prepositions, plus generic schooling
// level and type words that appear in most names.
var defaultStopwords = []string{
	"de", "het", "een", "van", "voor", "op", "in", "en", "aan", "bij", "te",
	"st", "sint",
	"vmbo", "havo", "vwo", "mavo", "praktijk", "college", "lyceum", "school",
}

// tokenize splits a canonical key into its discriminating tokens.
func tokenize(key string, stop map[string]bool) []string {
	var out []string
	for _, t := range strings.Fields(key) {
		if len(t) < 2 || stop[t] {
			continue
		}
		out = append(out, t)
	}
	return out
}

// tokenScore is the intersection-over-minimum-size overlap between two token
// sets. Scoring against the smaller set keeps a name with extra words from
// being penalized for them.
func tokenScore(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	return float64(inter) / float64(minLen)
}

func toSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}
