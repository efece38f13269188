package pipeline

import (
	"sort"

	"citypulse/internal/models"
)

type groupKey struct {
	city, pillar, source string
}

// Aggregate recomputes every derived view from the full item table. Only items the
// oracle actually scored contribute to means; neutral substitutes are counted in
// Summary.TotalItems but not averaged. An empty table yields empty views.
//
// Group means sum sorted scores, so the result does not depend on item order.
func Aggregate(items []models.ScoredItem) models.Aggregates {
	byCity := make(map[groupKey][]float64)
	byPillar := make(map[groupKey][]float64)
	byCityPillar := make(map[groupKey][]float64)
	bySourceCity := make(map[groupKey][]float64)

	summary := models.Summary{
		TotalItems: len(items),
		BandCounts: make(map[models.Band]int, len(models.Bands)),
	}
	for _, b := range models.Bands {
		summary.BandCounts[b] = 0
	}

	var all []float64
	positive := 0
	for _, it := range items {
		if !it.Scored {
			continue
		}
		s := it.SentimentScore
		all = append(all, s)
		if s > 0 {
			positive++
		}
		summary.BandCounts[it.Band]++

		byCity[groupKey{city: it.City}] = append(byCity[groupKey{city: it.City}], s)
		sk := groupKey{city: it.City, source: string(it.SourceKind)}
		bySourceCity[sk] = append(bySourceCity[sk], s)

		// An item contributes to every pillar it relates to.
		for _, p := range it.RelatedPillars {
			byPillar[groupKey{pillar: p}] = append(byPillar[groupKey{pillar: p}], s)
			cp := groupKey{city: it.City, pillar: p}
			byCityPillar[cp] = append(byCityPillar[cp], s)
		}
	}

	summary.ScoredItems = len(all)
	if len(all) > 0 {
		summary.MeanSentiment = mean(all)
		summary.PositivePercent = 100 * float64(positive) / float64(len(all))
	}

	agg := models.Aggregates{
		ByCity:       rows(byCity),
		ByPillar:     rows(byPillar),
		ByCityPillar: rows(byCityPillar),
		BySourceCity: rows(bySourceCity),
	}
	summary.CitiesWithData = len(agg.ByCity)
	summary.PillarsWithData = len(agg.ByPillar)
	agg.Summary = summary
	return agg
}

func rows(groups map[groupKey][]float64) []models.AggregateRow {
	out := make([]models.AggregateRow, 0, len(groups))
	for k, scores := range groups {
		out = append(out, models.AggregateRow{
			City:          k.city,
			Pillar:        k.pillar,
			Source:        k.source,
			MeanSentiment: mean(scores),
			Count:         len(scores),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.City != b.City {
			return a.City < b.City
		}
		if a.Pillar != b.Pillar {
			return a.Pillar < b.Pillar
		}
		return a.Source < b.Source
	})
	return out
}

// mean sorts scores in place before summing.
func mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	sort.Float64s(scores)
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}
