package analytics

import (
	"sort"
	"strings"
)

// SuggestTags filters a vocabulary by case-insensitive substring match on
// query and ranks the matches by historical usage (highest first), falling
// back to vocabulary order among equally-used tags. An empty query matches
// the whole vocabulary. Pure: no store access, no clock.
func SuggestTags(query string, vocabulary []string, usage []TagCount) []string {
	counts := make(map[string]int, len(usage))
	for _, u := range usage {
		counts[u.Tag] = u.Count
	}

	q := strings.ToLower(query)
	matches := make([]string, 0, len(vocabulary))
	for _, tag := range vocabulary {
		if q == "" || strings.Contains(strings.ToLower(tag), q) {
			matches = append(matches, tag)
		}
	}

	// Stable sort keeps vocabulary order among equally-used tags.
	sort.SliceStable(matches, func(i, j int) bool {
		return counts[matches[i]] > counts[matches[j]]
	})
	return matches
}
