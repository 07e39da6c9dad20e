package ui

import (
	"sort"
	"strings"
)

const (
	// maxSuggestionDistance bounds the edit distance a candidate may have
	// to count as a suggestion
	maxSuggestionDistance = 3
	// maxSuggestions bounds how many suggestions FindSimilar returns
	maxSuggestions = 3
)

// FindSimilar returns up to three candidates within edit distance three of
// the target, closest first. Matching is case-insensitive. The debug
// commands use it to suggest message names on typos.
func FindSimilar(target string, candidates []string) []string {
	type scored struct {
		value    string
		distance int
	}

	lowered := strings.ToLower(target)
	var matches []scored
	for _, candidate := range candidates {
		dist := levenshtein(lowered, strings.ToLower(candidate))
		if dist <= maxSuggestionDistance {
			matches = append(matches, scored{value: candidate, distance: dist})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	result := make([]string, 0, maxSuggestions)
	for i := 0; i < len(matches) && i < maxSuggestions; i++ {
		result = append(result, matches[i].value)
	}
	return result
}

// levenshtein computes the edit distance between two strings with a
// two-row table
func levenshtein(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
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
