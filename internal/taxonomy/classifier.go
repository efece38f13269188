package taxonomy

import (
	"strings"

	"citypulse/internal/models"
)

// Classify returns the active pillars whose keywords occur in the item's title or body.
// Matching is a case-insensitive substring test; each pillar is decided independently.
// The result follows the order of active and may be empty. Unknown or repeated active
// names are skipped.
func Classify(item models.ContentItem, t *Taxonomy, active []string) []string {
	text := strings.ToLower(item.Text())
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var matched []string
	seen := make(map[string]struct{}, len(active))
	for _, name := range active {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		i, ok := t.index[name]
		if !ok {
			continue
		}
		for _, kw := range t.pillars[i].Keywords {
			if strings.Contains(text, kw) {
				matched = append(matched, name)
				break
			}
		}
	}
	return matched
}

// Normalize substitutes the General sentinel for an empty classification.
func Normalize(pillars []string) []string {
	if len(pillars) == 0 {
		return []string{models.GeneralPillar}
	}
	return pillars
}

// ClassifyNormalized is Classify followed by Normalize.
func ClassifyNormalized(item models.ContentItem, t *Taxonomy, active []string) []string {
	return Normalize(Classify(item, t, active))
}
