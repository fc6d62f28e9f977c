package providers

import (
	"fmt"

	"streamscout/internal/constants"
	"streamscout/internal/parse"
)

// BuildIndexerQueries composes the ranked query variants for a
// full-text indexer: title with the season/episode code in both
// conventional notations, the bare title, the external id, and the
// title+id combination. Variants are deduplicated case- and
// diacritic-insensitively and capped to MaxQueryVariants.
func BuildIndexerQueries(title string, season, episode int, externalID string) []string {
	var raw []string

	if title != "" {
		if season > 0 && episode > 0 {
			raw = append(raw,
				fmt.Sprintf("%s S%02dE%02d", title, season, episode),
				fmt.Sprintf("%s %dx%02d", title, season, episode),
			)
		} else if season > 0 {
			raw = append(raw, fmt.Sprintf("%s S%02d", title, season))
		}
		raw = append(raw, title)
		if externalID != "" {
			raw = append(raw, title+" "+externalID)
		}
	}
	if externalID != "" {
		raw = append(raw, externalID)
	}

	seen := make(map[string]bool, len(raw))
	var queries []string
	for _, q := range raw {
		norm := parse.NormalizeTitle(q)
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		queries = append(queries, q)
		if len(queries) == constants.MaxQueryVariants {
			break
		}
	}
	return queries
}
