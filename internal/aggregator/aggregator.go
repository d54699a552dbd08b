package aggregator

import (
	"fmt"
	"strings"

	"s2t-go/internal/types"
)

// UnknownLanguage is reported when no segment carried a language.
const UnknownLanguage = "unknown"

// LanguagePolicy decides the transcript language from per-segment languages.
type LanguagePolicy string

const (
	// LanguageLast takes the language of the final transcribed segment.
	LanguageLast LanguagePolicy = "last"
	// LanguageFirst takes the language of the first transcribed segment.
	LanguageFirst LanguagePolicy = "first"
	// LanguageMajority takes the most frequent language; ties go to the
	// language that reached the winning count first.
	LanguageMajority LanguagePolicy = "majority"
)

func ParseLanguagePolicy(s string) (LanguagePolicy, error) {
	switch p := LanguagePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return LanguageLast, nil
	case LanguageLast, LanguageFirst, LanguageMajority:
		return p, nil
	default:
		return "", fmt.Errorf("unknown language policy %q (last|first|majority)", s)
	}
}

// Aggregate joins segment texts in order with single spaces and resolves
// the language. Failed or skipped segments contribute nothing.
func Aggregate(results []types.SegmentResult, policy LanguagePolicy) (string, string) {
	var parts []string
	var langs []string
	for _, r := range results {
		if !r.OK() {
			continue
		}
		if t := strings.TrimSpace(r.Text); t != "" {
			parts = append(parts, t)
		}
		if l := strings.TrimSpace(r.Language); l != "" {
			langs = append(langs, l)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " ")), Language(langs, policy)
}

// Language applies policy to languages listed in processing order.
func Language(langs []string, policy LanguagePolicy) string {
	if len(langs) == 0 {
		return UnknownLanguage
	}
	switch policy {
	case LanguageFirst:
		return langs[0]
	case LanguageMajority:
		counts := map[string]int{}
		best, bestCount := "", 0
		for _, l := range langs {
			counts[l]++
			if counts[l] > bestCount {
				best, bestCount = l, counts[l]
			}
		}
		return best
	default:
		return langs[len(langs)-1]
	}
}
