// Package matcher resolves free-text school names from the listing to
// canonical school directory records.
//
// Matching runs three tiers in order, first success wins:
//
//  1. Domain match: the event's info URL host against each school's website
//     host. Authoritative, so a domain match is trusted even when names disagree.
//  2. Exact canonical match: the canonicalized query name against each
//     school's canonical key.
//  3. Token-overlap fuzzy match: intersection-over-minimum-size similarity
//     between stopword-filtered token sets, accepted at or above a
//     configurable threshold.
//
// The threshold, alias table and stopword list are policy, not logic; they
// live in Config so the matching behavior can be tuned without touching
// parsing code.
package matcher

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// DefaultThreshold is the minimum fuzzy score accepted by default. Below it,
// a false positive (merging two different schools) is judged worse than a
// missed match.
const DefaultThreshold = 0.7

// School is one directory row, as read from the school directory every run.
type School struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	WebsiteURL string `json:"website_url,omitempty"`
}

// Tier identifies which matching tier produced a result.
type Tier string

const (
	TierDomain Tier = "domain"
	TierExact  Tier = "exact"
	TierFuzzy  Tier = "fuzzy"
	TierNone   Tier = "none"
)

// Config holds the tunable matching policy.
type Config struct {
	// Threshold is the minimum accepted fuzzy score. Zero means
	// DefaultThreshold.
	Threshold float64 `json:"threshold,omitempty"`
	// Aliases maps canonical query keys to canonical directory keys, for
	// known naming mismatches between the listing and the directory.
	Aliases map[string]string `json:"aliases,omitempty"`
	// Stopwords overrides the default stopword list when non-empty.
	Stopwords []string `json:"stopwords,omitempty"`
}

// LoadConfig reads a Config from a JSON file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading matcher config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing matcher config: %w", err)
	}
	return cfg, nil
}

func (c Config) threshold() float64 {
	if c.Threshold > 0 {
		return c.Threshold
	}
	return DefaultThreshold
}

func (c Config) stopwords() map[string]bool {
	words := c.Stopwords
	if len(words) == 0 {
		words = defaultStopwords
	}
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// indexedSchool caches the per-school derived forms the fuzzy tier scans.
type indexedSchool struct {
	id     string
	key    string
	tokens map[string]bool
}

// Index is the per-run matching structure built from a directory snapshot.
// It must be rebuilt every run so newly added schools match immediately.
type Index struct {
	cfg     Config
	stop    map[string]bool
	byHost  map[string]string
	byKey   map[string]string
	schools []indexedSchool
}

// NewIndex builds the matching indices from a directory snapshot.
func NewIndex(schools []School, cfg Config) *Index {
	idx := &Index{
		cfg:    cfg,
		stop:   cfg.stopwords(),
		byHost: make(map[string]string, len(schools)),
		byKey:  make(map[string]string, len(schools)),
	}

	for _, s := range schools {
		key := CanonicalKey(s.Name)
		if key != "" {
			idx.byKey[key] = s.ID
		}
		idx.schools = append(idx.schools, indexedSchool{
			id:     s.ID,
			key:    key,
			tokens: toSet(tokenize(key, idx.stop)),
		})
		if h := Host(s.WebsiteURL); h != "" {
			idx.byHost[h] = s.ID
		}
	}

	return idx
}

// QueryKey canonicalizes a listing-side school name the way matching does:
// URL-label suffix stripped, canonical key derived, alias table applied. The
// pipeline also uses this key when deriving event source IDs, so aliased
// names keep one identity.
func (idx *Index) QueryKey(name string) string {
	key := CanonicalKey(StripURLLabel(name))
	if alias, found := idx.cfg.Aliases[key]; found {
		key = alias
	}
	return key
}

// Match resolves a free-text school name, plus an optional info URL found in
// or near its block, to a directory id. ok is false when no tier succeeded.
func (idx *Index) Match(name, infoURL string) (id string, tier Tier, ok bool) {
	key := idx.QueryKey(name)

	if h := Host(infoURL); h != "" {
		if id, found := idx.byHost[h]; found {
			return id, TierDomain, true
		}
	}

	if id, found := idx.byKey[key]; found {
		return id, TierExact, true
	}

	if key != "" {
		if id, found := idx.fuzzy(key); found {
			return id, TierFuzzy, true
		}
	}

	return "", TierNone, false
}

// fuzzy returns the best token-overlap candidate at or above the threshold.
// Equal scores break lexicographically by school id, so the result does not
// depend on directory iteration order.
func (idx *Index) fuzzy(key string) (string, bool) {
	query := toSet(tokenize(key, idx.stop))

	bestID := ""
	bestScore := -1.0
	for _, s := range idx.schools {
		score := tokenScore(query, s.tokens)
		if score > bestScore || (score == bestScore && s.id < bestID) {
			bestID = s.id
			bestScore = score
		}
	}

	if bestID == "" || bestScore < idx.cfg.threshold() {
		return "", false
	}
	return bestID, true
}

// Host extracts the comparison hostname from a URL: lowercased, with a
// leading "www." stripped. Empty for unparseable or empty input.
func Host(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	h := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(h, "www.")
}
