package utils

import "strings"

const (
	// MaxEditDistance is the largest Levenshtein distance a query token
	// may be from a target token and still match.
	MaxEditDistance = 2

	// similarityThreshold is the minimum 1-(distance/maxlen) ratio for
	// an edit-distance token match.
	similarityThreshold = 0.6
)

// accentFold maps accented Latin letters (Spanish, French, German,
// Portuguese coverage) to their ASCII base.
var accentFold = map[rune]string{
	'á': "a", 'à': "a", 'â': "a", 'ä': "a", 'ã': "a", 'å': "a",
	'é': "e", 'è': "e", 'ê': "e", 'ë': "e",
	'í': "i", 'ì': "i", 'î': "i", 'ï': "i",
	'ó': "o", 'ò': "o", 'ô': "o", 'ö': "o", 'õ': "o",
	'ú': "u", 'ù': "u", 'û': "u", 'ü': "u",
	'ñ': "n", 'ç': "c", 'ß': "ss",
	'Á': "a", 'À': "a", 'Â': "a", 'Ä': "a", 'Ã': "a", 'Å': "a",
	'É': "e", 'È': "e", 'Ê': "e", 'Ë': "e",
	'Í': "i", 'Ì': "i", 'Î': "i", 'Ï': "i",
	'Ó': "o", 'Ò': "o", 'Ô': "o", 'Ö': "o", 'Õ': "o",
	'Ú': "u", 'Ù': "u", 'Û': "u", 'Ü': "u",
	'Ñ': "n", 'Ç': "c",
}

// NormalizeString folds accents to ASCII and lower-cases.
func NormalizeString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if folded, ok := accentFold[r]; ok {
			b.WriteString(folded)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FuzzyMatch reports whether query matches target for human name
// lookups. Matching is case- and accent-insensitive; it succeeds when
// the normalised query is a substring of the normalised target, or when
// every whitespace-separated query token matches some target token by
// substring or by edit distance.
func FuzzyMatch(target, query string) bool {
	nq := NormalizeString(strings.TrimSpace(query))
	nt := NormalizeString(target)
	if nq == "" {
		return false
	}
	if strings.Contains(nt, nq) {
		return true
	}

	targetTokens := strings.Fields(nt)
	if len(targetTokens) == 0 {
		return false
	}
	for _, qt := range strings.Fields(nq) {
		if !tokenMatches(qt, targetTokens) {
			return false
		}
	}
	return true
}

func tokenMatches(qt string, targetTokens []string) bool {
	for _, tt := range targetTokens {
		if strings.Contains(tt, qt) {
			return true
		}
		if editMatch(qt, tt) {
			return true
		}
	}
	return false
}

// editMatch applies the distance rule: short tokens need exact or
// distance 1, longer ones distance <= MaxEditDistance with similarity
// above the threshold.
func editMatch(qt, tt string) bool {
	dist := ComputeDistance(qt, tt)
	if len(qt) <= 3 {
		return dist <= 1
	}
	if dist > MaxEditDistance {
		return false
	}
	longest := len(qt)
	if len(tt) > longest {
		longest = len(tt)
	}
	if longest == 0 {
		return false
	}
	similarity := 1.0 - float64(dist)/float64(longest)
	return similarity >= similarityThreshold
}
