package ingredient

import (
	"math"
	"sort"
)

// Unknown is the sentinel canonical name returned when an input contains
// no usable letters at all. Callers should drop entries that resolve to it.
const Unknown = "unknown"

// Match is the result of resolving a raw ingredient name.
type Match struct {
	CanonicalName string  `json:"canonical_name"`
	Confidence    float64 `json:"confidence"`
}

// Resolver maps raw ingredient text to a canonical name plus a confidence
// score, using an alias table first and edit-distance matching against a
// known vocabulary as a fallback.
type Resolver struct {
	aliases  map[string]string
	vocab    []string // sorted, so fuzzy tie-breaking is deterministic
	vocabSet map[string]struct{}
}

// NewResolver creates a Resolver with the given alias table and vocabulary.
// Alias keys and values, and vocabulary entries, are expected to already be
// normalized (lowercase a-z only). The vocabulary is copied and sorted
// lexicographically; fuzzy matching iterates it in that order and the first
// minimum-distance entry wins.
func NewResolver(aliases map[string]string, vocabulary []string) *Resolver {
	vocab := make([]string, len(vocabulary))
	copy(vocab, vocabulary)
	sort.Strings(vocab)

	vocabSet := make(map[string]struct{}, len(vocab))
	for _, v := range vocab {
		vocabSet[v] = struct{}{}
	}

	aliasCopy := make(map[string]string, len(aliases))
	for k, v := range aliases {
		aliasCopy[k] = v
	}

	return &Resolver{
		aliases:  aliasCopy,
		vocab:    vocab,
		vocabSet: vocabSet,
	}
}

// NewDefaultResolver creates a Resolver with the built-in alias table and
// vocabulary.
func NewDefaultResolver() *Resolver {
	return NewResolver(defaultAliases, defaultVocabulary)
}

// Resolve maps a raw ingredient string to a canonical name and confidence.
//
// Inputs that normalize to the empty string resolve to the Unknown sentinel
// at confidence 0. Anything else always resolves to something: an alias hit
// at 0.95, an exact vocabulary hit at 1.0, the closest vocabulary entry at
// its similarity when that similarity is at least 0.55, or the normalized
// input itself as a new canonical identity at 0.5.
func (r *Resolver) Resolve(rawName string) Match {
	normalized := Normalize(rawName)
	if normalized == "" {
		return Match{CanonicalName: Unknown, Confidence: 0}
	}

	if canonical, ok := r.aliases[normalized]; ok {
		return Match{CanonicalName: canonical, Confidence: 0.95}
	}

	if _, ok := r.vocabSet[normalized]; ok {
		return Match{CanonicalName: normalized, Confidence: 1.0}
	}

	best, bestDist := "", -1
	for _, candidate := range r.vocab {
		d := editDistance(normalized, candidate)
		if bestDist < 0 || d < bestDist {
			best, bestDist = candidate, d
		}
	}

	if best != "" {
		maxLen := len(normalized)
		if len(best) > maxLen {
			maxLen = len(best)
		}
		similarity := 1 - float64(bestDist)/float64(maxLen)
		if similarity >= 0.55 {
			return Match{
				CanonicalName: best,
				Confidence:    math.Round(similarity*100) / 100,
			}
		}
	}

	// Unfamiliar but not unusable: the input becomes its own canonical
	// identity at low confidence rather than being rejected.
	return Match{CanonicalName: normalized, Confidence: 0.5}
}

// Normalize lowercases the input and strips every character outside a-z.
func Normalize(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
			out = append(out, c)
		case c >= 'A' && c <= 'Z':
			out = append(out, c+('a'-'A'))
		}
	}
	return string(out)
}

// editDistance computes the classic Levenshtein distance between a and b
// with unit cost for insertions, deletions and substitutions.
func editDistance(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
