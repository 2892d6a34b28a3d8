package utils

// ComputeDistance computes the Levenshtein distance between two strings.
// Inputs are compared as given; callers fold case and accents first via
// NormalizeString.
func ComputeDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)

	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	// Create matrix
	matrix := make([][]int, len(r1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(r2)+1)
	}

	// Initialize first row and column
	for i := 0; i <= len(r1); i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len(r2); j++ {
		matrix[0][j] = j
	}

	// Compute distances
	for i := 1; i <= len(r1); i++ {
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			min := matrix[i-1][j] + 1 // deletion
			if ins := matrix[i][j-1] + 1; ins < min { // insertion
				min = ins
			}
			if sub := matrix[i-1][j-1] + cost; sub < min { // substitution
				min = sub
			}
			matrix[i][j] = min
		}
	}

	return matrix[len(r1)][len(r2)]
}
