package match

import "strings"

// MatchArtist succeeds if any of: (i) any cleaned element of a equals any
// cleaned element of b, (ii) the space-joined cleaned a contains any
// cleaned element of b (or symmetric), (iii) normalized Levenshtein between
// the space-joined cleaned strings is >= strictness. Symmetric in a/b by
// construction of (i)-(iii).
func MatchArtist(a, b []string, strictness float64) bool {
	cleanA := CleanArtists(a)
	cleanB := CleanArtists(b)

	if containsAny(cleanB, cleanA) {
		return true
	}

	joinedA := strings.Join(cleanA, " ")
	for _, artist := range cleanB {
		if artist != "" && strings.Contains(joinedA, artist) {
			return true
		}
	}

	joinedB := strings.Join(cleanB, " ")
	for _, artist := range cleanA {
		if artist != "" && strings.Contains(joinedB, artist) {
			return true
		}
	}

	acc := NormalizedLevenshtein(joinedA, joinedB)

	return acc >= strictness
}

func containsAny(haystack, needles []string) bool {
	set := make(map[string]struct{}, len(haystack))
	for _, h := range haystack {
		set[h] = struct{}{}
	}

	for _, n := range needles {
		if _, ok := set[n]; ok {
			return true
		}
	}

	return false
}
