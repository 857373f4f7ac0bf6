// Package episode reconciles noisy video titles with logical episode numbers.
package episode

import (
	"regexp"
	"strconv"
	"strings"
)

// Regex patterns for episode-number extraction, in resolution priority order.
var (
	// Trailing standalone "K" is a view-count artifact ("1.2M views · 45K").
	trailingKPattern = regexp.MustCompile(`(?i)\s+k$`)
	// Runs of anything that is not a letter or digit collapse to one space.
	separatorPattern = regexp.MustCompile(`[^a-zA-Z0-9]+`)

	// Matches "3rd last", "2nd Last Episode", counted back from the finale.
	nthLastPattern = regexp.MustCompile(`(?i)\b(\d+)\s*(?:st|nd|rd|th)\s+last\b`)
	// Matches "last episode", "Last Ep".
	lastEpisodePattern = regexp.MustCompile(`(?i)\blast\s+ep(?:isode)?\b`)
	// Matches "Episode 12", "episode12".
	episodeWordPattern = regexp.MustCompile(`(?i)\bepisode\s*(\d+)\b`)
	// Matches compact "Ep12", "Ep 12", "E12" forms.
	compactEpPattern = regexp.MustCompile(`(?i)\b(?:ep|e)\s*(\d+)\b`)
	// Matches a leading "12 - " numeric prefix on the raw title.
	prefixDashPattern = regexp.MustCompile(`^\s*(\d+)\s*-\s`)
)

// CleanTitle normalizes a raw video title for extraction: drops a trailing
// standalone "K" suffix and collapses every non-alphanumeric run to a single
// space.
func CleanTitle(raw string) string {
	s := separatorPattern.ReplaceAllString(raw, " ")
	s = trailingKPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Extract resolves an episode number from a raw title. maxEpisode bounds the
// valid range; pass 0 when the drama's episode count is unknown. The second
// return is false when no rule yields an in-range number.
//
// Rules are ordered most-specific first and an out-of-range candidate never
// ends the search: a permissive later rule must not shadow "Episode N", and
// an over-range "Episode N" must still let the prefix rule have its turn.
func Extract(rawTitle string, maxEpisode int) (int, bool) {
	cleaned := CleanTitle(rawTitle)
	if cleaned == "" {
		return 0, false
	}

	for _, rule := range []func(cleaned, raw string, max int) (int, bool){
		matchBareNumber,
		matchNthLast,
		matchLastEpisode,
		matchEpisodeWord,
		matchCompactEp,
		matchPrefixDash,
	} {
		if n, ok := rule(cleaned, rawTitle, maxEpisode); ok && inRange(n, maxEpisode) {
			return n, true
		}
	}
	return 0, false
}

func inRange(n, max int) bool {
	if n < 1 {
		return false
	}
	return max <= 0 || n <= max
}

func matchBareNumber(cleaned, _ string, _ int) (int, bool) {
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, false
	}
	return n, true
}

func matchNthLast(cleaned, _ string, max int) (int, bool) {
	if max <= 0 {
		return 0, false
	}
	m := nthLastPattern.FindStringSubmatch(cleaned)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 0, false
	}
	return max - (n - 1), true
}

func matchLastEpisode(cleaned, _ string, max int) (int, bool) {
	if max <= 0 || !lastEpisodePattern.MatchString(cleaned) {
		return 0, false
	}
	// "3rd last episode" already resolved above; a bare "last episode" is the finale.
	if nthLastPattern.MatchString(cleaned) {
		return 0, false
	}
	return max, true
}

func matchEpisodeWord(cleaned, _ string, _ int) (int, bool) {
	return firstGroupNumber(episodeWordPattern.FindStringSubmatch(cleaned))
}

func matchCompactEp(cleaned, _ string, _ int) (int, bool) {
	return firstGroupNumber(compactEpPattern.FindStringSubmatch(cleaned))
}

// matchPrefixDash inspects the raw title: the dash it keys on does not
// survive CleanTitle.
func matchPrefixDash(_, raw string, _ int) (int, bool) {
	return firstGroupNumber(prefixDashPattern.FindStringSubmatch(raw))
}

func firstGroupNumber(m []string) (int, bool) {
	if m == nil {
		return 0, false
	}
	for _, g := range m[1:] {
		if g == "" {
			continue
		}
		n, err := strconv.Atoi(g)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
