// Package report renders the research prompt and markdown exports of stored runs.
package report

import (
	"fmt"
	"strings"
	"time"
)

const daysPerMonth = 30

// JoinNames joins with "and", using an Oxford comma for three or more names.
func JoinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
	}
}

// ResearchPrompt renders the deep-research prompt for a selection. The period runs from
// months*30 days before now until now.
func ResearchPrompt(cities, pillars []string, months int, now time.Time) string {
	start := now.AddDate(0, 0, -months*daysPerMonth)
	multi := len(cities) > 1

	pick := func(many, one string) string {
		if multi {
			return many
		}
		return one
	}
	pillarList := dedupe(pillars)

	var b strings.Builder
	fmt.Fprintf(&b, "You are an impartial, neutral and nuanced urban-policy analyst working for Singapore's Urban Redevelopment Authority. "+
		"Evaluate the current performance of %s in the period %d–%d.\n\n", JoinNames(cities), start.Year(), now.Year())

	b.WriteString("Evaluation framework\n")
	fmt.Fprintf(&b, "Assess %s across the selected Lee Kuan Yew World City Prize pillars—%s—giving each pillar exactly the same weight. "+
		"In addition, highlight any emerging urban factors that materially influence %s, such as digital equity, housing justice, "+
		"nightlife culture, public mental health, climate migration or surveillance.\n\n",
		pick("all cities", "the city"), strings.Join(pillarList, ", "), pick("any city", "the city"))

	b.WriteString("Required output\n")
	fmt.Fprintf(&b, "Present your results in %s Markdown table%s—%s—followed by a %s paragraph of no more than 250 words.\n\n",
		pick("separate", "a single"), pick("s", ""), pick("one for each city", "for the city"), pick("comparative", "summary"))

	b.WriteString("To make the briefing instantly readable and machine-sortable, each table must contain the following columns in the order shown:\n\n")
	b.WriteString("| Pillar | Trend | Key Indicators & Metrics | Concise Findings (≤ 50 words) | Official Sources | Citizen / Unofficial Sources | Publication Dates | Original Language |\n\n")
	b.WriteString("Trend must be labelled Improving, Maintaining or Backsliding.\n\n")
	b.WriteString("Key Indicators & Metrics should list concrete figures (for example \"+3 % QoQ rental growth; 14 µg/m³ annual PM2.5\").\n\n")
	b.WriteString("Official Sources and Citizen / Unofficial Sources should each contain as many hyperlinks as you can credibly provide; there is no upper limit.\n\n")
	fmt.Fprintf(&b, "Publication Dates should show the date range covered by the sources in that row (e.g. \"%s – %s\").\n\n",
		start.Format("2 Jan"), now.Format("2 Jan 2006"))
	b.WriteString("Original Language should state \"EN\", \"ES\", \"EU (Basque)\", etc., or \"Multiple\" if a mixture is cited.\n\n")

	b.WriteString("Source requirements\n")
	fmt.Fprintf(&b, "Cite at least one hundred distinct sources in total (more are welcome) and verify that every one was published between %s and %s. "+
		"Balance official material (municipal portals, UN or OECD datasets, CDP filings, court documents, policy white papers) with citizen perspectives "+
		"(reputable news outlets, LinkedIn insights, Instagram threads, Reddit discussions, Twitter/X posts, local forums). "+
		"When official optimism clashes with grass-roots scepticism, show both views impartially.\n\n",
		start.Format("2 January"), now.Format("2 January 2006"))

	b.WriteString("Methodology\n")
	fmt.Fprintf(&b, "Harvest all relevant material for the target period, translating where necessary and noting the original language. "+
		"Allocate each source to a city and pillar. Cross-check figures to remove duplicates and resolve discrepancies, then decide the trend "+
		"for every pillar based on the balance of evidence. Draft findings in clear, factual UK-English sentences of no more than fifty words, "+
		"embed all hyperlinks, confirm their dates, count your citations, and supply the final tables plus %s paragraph—nothing more.\n\n",
		pick("comparative", "summary"))

	b.WriteString("Style guidance\n")
	b.WriteString("Write exclusively in UK English, omit value-laden adjectives, and never use the expressions complex interplay or critical engagement. " +
		"Keep the entire deliverable concise, scannable and suitable for rapid decision-making by URA reviewers.")
	return b.String()
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
