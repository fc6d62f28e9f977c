// Package rank collapses duplicate stream candidates and orders the
// survivors by a composite heuristic score.
package rank

import (
	"fmt"

	"streamscout/internal/models"
	"streamscout/internal/parse"
)

// Candidates referring to the same content but with sizes reported at
// different precision still collapse when they round to the same
// 100 MB step.
const sizeRoundStep = 100 * 1024 * 1024

func dedupKey(c *models.StreamCandidate) string {
	if c.InfoHash != "" {
		return "h:" + c.InfoHash
	}
	return fmt.Sprintf("t:%s|%d|%d", parse.NormalizeTitle(c.DisplayName), c.Resolution, c.SizeBytes/sizeRoundStep)
}

// better reports whether a should survive over b when both refer to the
// same content: higher seed count, then higher resolution, then larger
// size. The first criterion that differs wins.
func better(a, b *models.StreamCandidate) bool {
	if a.Seeders != b.Seeders {
		return a.Seeders > b.Seeders
	}
	if a.Resolution != b.Resolution {
		return a.Resolution > b.Resolution
	}
	return a.SizeBytes > b.SizeBytes
}

// Deduplicate collapses candidates that refer to the same underlying
// content: identical info hash, or identical normalized
// title+resolution+rounded size. First-seen order of distinct keys is
// preserved.
func Deduplicate(candidates []models.StreamCandidate) []models.StreamCandidate {
	byKey := make(map[string]int, len(candidates))
	var out []models.StreamCandidate

	for _, cand := range candidates {
		key := dedupKey(&cand)
		if idx, ok := byKey[key]; ok {
			if better(&cand, &out[idx]) {
				out[idx] = cand
			}
			continue
		}
		byKey[key] = len(out)
		out = append(out, cand)
	}
	return out
}
