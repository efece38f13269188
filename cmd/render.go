package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"citypulse/internal/models"
	"citypulse/internal/util"
)

const titleWidth = 60

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func bandColor(b models.Band) *color.Color {
	switch b {
	case models.BandStronglyNegative:
		return color.New(color.FgRed, color.Bold)
	case models.BandNegative:
		return color.New(color.FgRed)
	case models.BandPositive:
		return color.New(color.FgGreen)
	case models.BandStronglyPositive:
		return color.New(color.FgGreen, color.Bold)
	default:
		return color.New(color.FgYellow)
	}
}

// scoreString colours a mean or item score by its band.
func scoreString(v float64) string {
	return bandColor(models.BandFor(v)).Sprintf("%+.3f", v)
}

func renderItems(w io.Writer, items []models.ScoredItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No items retrieved.")
		return
	}
	table := newTable(w, "City", "Source", "Band", "Score", "Pillars", "Title")
	for _, it := range items {
		band := string(it.Band)
		if !it.Scored {
			band += " (unscored)"
		}
		table.Append([]string{
			it.City,
			it.SourceName,
			bandColor(it.Band).Sprint(band),
			scoreString(it.SentimentScore),
			strings.Join(it.RelatedPillars, ", "),
			util.Truncate(it.Title, titleWidth),
		})
	}
	table.Render()
}

func renderAggregates(w io.Writer, agg models.Aggregates) {
	color.New(color.Bold).Fprintln(w, "\nSentiment by city")
	table := newTable(w, "City", "Mean", "Items")
	for _, r := range agg.ByCity {
		table.Append([]string{r.City, scoreString(r.MeanSentiment), strconv.Itoa(r.Count)})
	}
	table.Render()

	color.New(color.Bold).Fprintln(w, "\nSentiment by pillar")
	table = newTable(w, "Pillar", "Mean", "Items")
	for _, r := range agg.ByPillar {
		table.Append([]string{r.Pillar, scoreString(r.MeanSentiment), strconv.Itoa(r.Count)})
	}
	table.Render()

	color.New(color.Bold).Fprintln(w, "\nSentiment by city and pillar")
	table = newTable(w, "City", "Pillar", "Mean", "Items")
	for _, r := range agg.ByCityPillar {
		table.Append([]string{r.City, r.Pillar, scoreString(r.MeanSentiment), strconv.Itoa(r.Count)})
	}
	table.Render()

	color.New(color.Bold).Fprintln(w, "\nSentiment by source and city")
	table = newTable(w, "Source", "City", "Mean", "Items")
	for _, r := range agg.BySourceCity {
		table.Append([]string{r.Source, r.City, scoreString(r.MeanSentiment), strconv.Itoa(r.Count)})
	}
	table.Render()

	s := agg.Summary
	color.New(color.Bold).Fprintln(w, "\nSummary")
	fmt.Fprintf(w, "  Items: %d (%d scored)  Mean: %s  Positive: %.1f%%  Cities: %d  Pillars: %d\n",
		s.TotalItems, s.ScoredItems, scoreString(s.MeanSentiment), s.PositivePercent, s.CitiesWithData, s.PillarsWithData)
	var bands []string
	for _, b := range models.Bands {
		bands = append(bands, bandColor(b).Sprintf("%s: %d", b, s.BandCounts[b]))
	}
	fmt.Fprintf(w, "  %s\n", strings.Join(bands, "  "))
}

func renderWarnings(w io.Writer, warnings []models.Warning) {
	if len(warnings) == 0 {
		return
	}
	color.New(color.FgYellow, color.Bold).Fprintf(w, "\n%d warning(s)\n", len(warnings))
	for _, wr := range warnings {
		var where []string
		for _, part := range []string{wr.City, wr.Source} {
			if part != "" {
				where = append(where, part)
			}
		}
		prefix := ""
		if len(where) > 0 {
			prefix = "[" + strings.Join(where, "/") + "] "
		}
		if wr.Query != "" {
			prefix += fmt.Sprintf("query %q: ", wr.Query)
		}
		fmt.Fprintf(w, "  - %s%s\n", prefix, wr.Message)
	}
}

func renderOverviews(w io.Writer, runs []models.RunOverview) {
	table := newTable(w, "ID", "Status", "Started", "Cities", "Pillars", "Items", "Mean")
	for _, r := range runs {
		status := string(r.Status)
		if r.Cancelled {
			status += " (cancelled)"
		}
		table.Append([]string{
			r.ID.String(),
			status,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			util.Truncate(strings.Join(r.Cities, ", "), 40),
			strconv.Itoa(len(r.Pillars)),
			strconv.Itoa(r.ItemCount),
			scoreString(r.MeanSentiment),
		})
	}
	table.Render()
}
