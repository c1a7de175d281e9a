package match

import (
	"sort"
	"time"

	"github.com/onetagger/autotagger-core/internal/model"
)

// SortOrder controls how MatchTrack orders multiple accepted candidates.
type SortOrder int

const (
	// SortAccuracy keeps candidates ordered by descending match accuracy
	// (the order SortTracks produces for this policy).
	SortAccuracy SortOrder = iota
	// SortOldest orders candidates by ascending release date, undated
	// candidates left in place relative to each other.
	SortOldest
	// SortNewest orders candidates by descending release date, undated
	// candidates left in place relative to each other.
	SortNewest
)

// CandidateTitle pairs a catalog candidate with the title text, artists, and
// duration used by the cleaning cascade and the duration/artist gates,
// keeping the track lookup separate from the comparison keys.
type CandidateTitle struct {
	Title    string
	Artists  []string
	Duration time.Duration
	Track    *model.Track
}

// Gates bundles the matching parameters every candidate gate reads from
// config, so ExactFallback/MatchTrack don't each need four positional
// bool/float/duration arguments.
type Gates struct {
	Strictness            float64
	MatchDuration         bool
	MaxDurationDifference time.Duration
}

// passesGates applies the duration gate and, when info carries any artists
// to check against, the artist gate: with no artists on the info side there
// is nothing to gate on, so the candidate passes by default.
func passesGates(info *model.AudioFileInfo, c CandidateTitle, gates Gates) bool {
	if !MatchDuration(info, c.Duration, gates.MatchDuration, gates.MaxDurationDifference) {
		return false
	}

	if len(info.Artists) == 0 {
		return true
	}

	return MatchArtist(info.Artists, c.Artists, gates.Strictness)
}

// ExactFallback tries every cleaning step from the mildest to the strictest,
// clean-title-comparing info's title against each candidate. Unlike a normal
// cascade, it does not stop at the first step that yields a hit: it keeps
// walking the remaining steps so a title that only agrees after heavy
// cleaning is still returned. Each candidate is accepted at most once, at
// the mildest step it matches on.
func ExactFallback(info *model.AudioFileInfo, infoTitle string, candidates []CandidateTitle, gates Gates) []model.TrackMatch {
	var matches []model.TrackMatch

	accepted := make(map[*model.Track]struct{}, len(candidates))

	for step := 1; step <= len(Steps); step++ {
		cleanedInfo := CleanToStep(step, infoTitle)

		for _, c := range candidates {
			if _, done := accepted[c.Track]; done {
				continue
			}

			if !passesGates(info, c, gates) {
				continue
			}

			if CleanToStep(step, c.Title) == cleanedInfo {
				accepted[c.Track] = struct{}{}

				matches = append(matches, model.NewExactMatch(c.Track))
			}
		}
	}

	return matches
}

// MatchTrack runs the exact cascade first; if it produced any hits and the
// caller isn't asking for every result, those hits are returned immediately.
// Otherwise a fuzzy pass (Levenshtein over clean_title_matching output, gated
// by strictness, duration, and artist) is appended, duplicates and all.
func MatchTrack(
	info *model.AudioFileInfo,
	infoTitle string,
	candidates []CandidateTitle,
	gates Gates,
	fetchAllResults bool,
) []model.TrackMatch {
	exact := ExactFallback(info, infoTitle, candidates, gates)
	if len(exact) > 0 && !fetchAllResults {
		return exact
	}

	cleanedInfo := CleanTitleMatching(infoTitle)

	var fuzzy []model.TrackMatch

	for _, c := range candidates {
		if !passesGates(info, c, gates) {
			continue
		}

		acc := NormalizedLevenshtein(cleanedInfo, CleanTitleMatching(c.Title))
		if acc >= gates.Strictness {
			fuzzy = append(fuzzy, model.TrackMatch{Accuracy: acc, Track: c.Track, Reason: model.MatchReasonFuzzy})
		}
	}

	return append(exact, fuzzy...)
}

// SortTracks orders matches in place according to order. SortAccuracy sorts
// by descending accuracy; SortOldest/SortNewest sort by release date with
// missing dates compared as equal to everything (stable, so their relative
// order among themselves and against dated entries is left as found).
func SortTracks(matches []model.TrackMatch, order SortOrder) {
	switch order {
	case SortOldest:
		sort.SliceStable(matches, func(i, j int) bool {
			return compareReleaseDate(matches[i].Track, matches[j].Track) < 0
		})
	case SortNewest:
		sort.SliceStable(matches, func(i, j int) bool {
			return compareReleaseDate(matches[i].Track, matches[j].Track) > 0
		})
	case SortAccuracy:
		fallthrough
	default:
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].Accuracy > matches[j].Accuracy
		})
	}
}

// compareReleaseDate returns <0, 0, >0 the way time.Time.Compare does. A nil
// ReleaseDate on either side compares equal (0), matching the reference
// sort's "None is always Equal" behavior.
func compareReleaseDate(a, b *model.Track) int {
	if a.ReleaseDate == nil || b.ReleaseDate == nil {
		return 0
	}

	ad, bd := *a.ReleaseDate, *b.ReleaseDate

	switch {
	case ad.Before(bd):
		return -1
	case ad.After(bd):
		return 1
	default:
		return 0
	}
}
