package pipeline

import (
	"strings"

	"citypulse/internal/models"
)

// PlannedQuery is one differently-worded retrieval query and its share of the cap.
type PlannedQuery struct {
	Text  string
	Quota int
}

// PlanQueries builds the query fan-out for one city against one kind of source and
// splits limit across it. Quotas sum exactly to limit: each query gets limit/n and the
// first limit%n queries get one more. No query is planned with a zero quota, so when
// limit is smaller than the number of wordings only the first limit queries are kept.
func PlanQueries(kind models.SourceKind, cityKeyword string, keywords []string, limit int) []PlannedQuery {
	if limit <= 0 {
		return nil
	}

	texts := queryTexts(kind, cityKeyword, keywords)
	if len(texts) > limit {
		texts = texts[:limit]
	}

	n := len(texts)
	base, rem := limit/n, limit%n
	plan := make([]PlannedQuery, n)
	for i, text := range texts {
		plan[i] = PlannedQuery{Text: text, Quota: base}
		if i < rem {
			plan[i].Quota++
		}
	}
	return plan
}

func queryTexts(kind models.SourceKind, kw string, keywords []string) []string {
	var texts []string
	switch kind {
	case models.SourceNews:
		texts = append(texts, kw)
		if len(keywords) > 0 {
			n := len(keywords)
			if n > 3 {
				n = 3
			}
			texts = append(texts, kw+" AND ("+strings.Join(keywords[:n], " OR ")+")")
		}
	default:
		// bare keyword, conjunction, disjunction
		texts = append(texts, kw)
		if len(keywords) > 0 {
			texts = append(texts, kw+" "+keywords[0])
		}
		if len(keywords) > 1 {
			texts = append(texts, kw+" OR "+keywords[1])
		}
	}
	return dedupe(texts)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
