package match

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// attributesToRemove is the fixed list of promotional attribute tokens
// stripped by step 4, carried verbatim (order and values) so lookups behave
// identically to the system this was ported from.
var attributesToRemove = [23]string{ //nolint:gochecknoglobals // immutable literal table.
	"(intro)", "(clean)", "(intro clean)", "(dirty)", "(intro dirty)", "(clean extended)",
	"(intro outro)", "(extended)", "(instrumental)", "(quick hit)", "(club version)", "(radio version)", "(club)", "(radio)", "(main)",
	"(radio edit)", "(ck cut)", "(super cut)", "(mega cutz)", "(snip hitz)", "(jd live cut)", "(djcity intro)", "(vdj jd edit)",
}

var (
	stepTwoPattern   = regexp.MustCompile(`^( (a|an|the) )`)
	stepThreePattern = regexp.MustCompile(`((\(|\[)*)original( (mix|version|edit))*((\)|\])*)$`)
	stepFivePattern  = regexp.MustCompile(` (\(|\[)?(feat|ft)\.? .+?(\)|\]|\(|$)`)

	multiSpacePattern = regexp.MustCompile(` +`)
)

// CleaningStep is one pure stage in the title-cleaning cascade.
type CleaningStep func(string) string

// Steps is the ordered table of the seven cleaning stages, indexed 0..6 for
// steps 1..7. The exact-fallback cascade iterates this table directly.
var Steps = [7]CleaningStep{ //nolint:gochecknoglobals // immutable function table, the "cascade as data" design.
	cleanStep1, cleanStep2, cleanStep3, cleanStep4, cleanStep5, cleanStep6, cleanStep7,
}

// CleanToStep runs the first n cleaning steps (1-indexed count) over input.
func CleanToStep(steps int, input string) string {
	for i := 0; i < steps && i < len(Steps); i++ {
		input = Steps[i](input)
	}

	return input
}

// CleanTitle applies steps 1 through 5, re-collapsing whitespace between
// stages, matching the reference implementation's `clean_title`.
func CleanTitle(input string) string {
	input = cleanStep1(input)
	input = cleanStep2(input)
	input = cleanStep3(input)
	input = cleanStep4(input)
	input = cleanStep1(input)
	input = cleanStep5(input)

	return cleanStep1(input)
}

// CleanTitleMatching applies the full 1-7 cascade, used for the fuzzy
// comparison pass.
func CleanTitleMatching(input string) string {
	input = CleanTitle(input)
	input = cleanStep6(input)

	return cleanStep7(input)
}

// CleanArtistSearching cleans an artist string for outbound catalog
// searches: lowercase/dash/space collapse, then feat/ft removal.
func CleanArtistSearching(input string) string {
	out := cleanStep1(strings.ToLower(input))
	out = cleanStep5(out)

	return strings.TrimSpace(out)
}

// CleanArtists lowercases, strips special characters, trims, and
// lexicographically sorts a list of artist names for set-style comparison
// in MatchArtist.
func CleanArtists(input []string) []string {
	clean := make([]string, len(input))
	for i, a := range input {
		clean[i] = strings.TrimSpace(RemoveSpecial(strings.ToLower(a)))
	}

	sort.Strings(clean)

	return clean
}

// RemoveSpecial strips the fixed special-character set, collapses double
// spaces, trims, and transliterates to ASCII.
func RemoveSpecial(input string) string {
	const special = ".,()[]&_\"'-/\\^"

	out := input
	for _, c := range special {
		out = strings.ReplaceAll(out, string(c), "")
	}

	out = strings.ReplaceAll(out, "  ", " ")

	return transliterate(strings.TrimSpace(out))
}

func cleanStep1(input string) string {
	out := strings.ReplaceAll(strings.ToLower(input), "-", " ")
	out = multiSpacePattern.ReplaceAllString(out, " ")

	return strings.TrimSpace(out)
}

func cleanStep2(input string) string {
	return stepTwoPattern.ReplaceAllString(input, "")
}

func cleanStep3(input string) string {
	return stepThreePattern.ReplaceAllString(input, "")
}

func cleanStep4(input string) string {
	out := input
	for _, t := range attributesToRemove {
		out = strings.ReplaceAll(out, t, "")
	}

	return out
}

func cleanStep5(input string) string {
	return stepFivePattern.ReplaceAllString(input, "")
}

func cleanStep6(input string) string {
	return strings.ReplaceAll(input, "edit", "")
}

func cleanStep7(input string) string {
	return RemoveSpecial(input)
}

// transliterate folds accented/diacritic characters down to their closest
// ASCII form, mirroring the reference implementation's use of `unidecode`.
func transliterate(input string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	result, _, err := transform.String(t, input)
	if err != nil {
		return input
	}

	return result
}
