// Package report renders console summaries of a purification pass and of detected opportunities.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/Vodeneev/surebet/internal/pkg/models"
)

const sampleGroups = 5

// BookmakerCount is the number of events loaded from one bookmaker.
type BookmakerCount struct {
	Bookmaker string
	Events    int
}

// Writer prints reports to out.
type Writer struct {
	out io.Writer
}

// NewWriter returns a Writer on out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Purification prints events per bookmaker, the coverage distribution and a few sample groups.
func (w *Writer) Purification(counts []BookmakerCount, groups []*models.FixtureGroup, minCoverage int) {
	fmt.Fprintf(w.out, "\nDATA PURIFICATION SUMMARY\n")
	fmt.Fprintf(w.out, "Total bookmakers: %d\n\n", len(counts))

	table := tablewriter.NewWriter(w.out)
	table.Header("Bookmaker", "Events")
	for _, c := range counts {
		table.Append(c.Bookmaker, strconv.Itoa(c.Events))
	}
	table.Render()

	fmt.Fprintf(w.out, "\nPurified events (found in %d+ bookmakers): %d\n", minCoverage, len(groups))
	if len(groups) == 0 {
		return
	}

	dist := map[int]int{}
	for _, g := range groups {
		dist[g.Coverage()]++
	}
	coverages := make([]int, 0, len(dist))
	for c := range dist {
		coverages = append(coverages, c)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(coverages)))

	cov := tablewriter.NewWriter(w.out)
	cov.Header("Bookmakers", "Events")
	for _, c := range coverages {
		cov.Append(strconv.Itoa(c), strconv.Itoa(dist[c]))
	}
	cov.Render()

	n := min(sampleGroups, len(groups))
	fmt.Fprintf(w.out, "\nSample purified events (first %d):\n", n)
	sample := tablewriter.NewWriter(w.out)
	sample.Header("#", "Fixture", "Bookmaker", "Quoted as", "1", "X", "2")
	for i, g := range groups[:n] {
		for j, ev := range g.Events() {
			idx, fixture := "", ""
			if j == 0 {
				idx, fixture = strconv.Itoa(i+1), g.Home+" vs "+g.Away
			}
			home, draw, away := formatOutcomes(ev)
			sample.Append(idx, fixture, ev.Booker, ev.Name(), home, draw, away)
		}
	}
	sample.Render()
}

// Opportunities prints the top opportunities with best odds and stake split.
func (w *Writer) Opportunities(opps []models.Opportunity, topN int) {
	fmt.Fprintf(w.out, "\nFound %d arbitrage opportunities\n", len(opps))
	if len(opps) == 0 {
		fmt.Fprintln(w.out, "No arbitrage opportunities found in current data.")
		return
	}
	if topN > 0 && len(opps) > topN {
		opps = opps[:topN]
	}

	table := tablewriter.NewWriter(w.out)
	table.Header("#", "Fixture", "Profit %", "Profit", "Books", "1", "X", "2")
	for i, o := range opps {
		table.Append(
			strconv.Itoa(i+1),
			o.Name(),
			fmt.Sprintf("%.2f%%", o.ArbitragePercentage),
			fmt.Sprintf("%.2f / %.0f", o.Profit, o.TotalStake),
			strconv.Itoa(o.UniqueBookmakers),
			formatLeg(o, models.OutcomeHome),
			formatLeg(o, models.OutcomeDraw),
			formatLeg(o, models.OutcomeAway),
		)
	}
	table.Render()
	fmt.Fprintln(w.out, "  1/X/2 = best odds @ bookmaker (stake)")
}

func formatLeg(o models.Opportunity, outcome string) string {
	pick := o.BestOdds[outcome]
	return fmt.Sprintf("%.2f @ %s (%.2f)", pick.Odds, pick.Bookmaker, o.StakeDistribution[outcome])
}

func formatOutcomes(ev models.Event) (string, string, string) {
	m, ok := ev.MatchResult()
	if !ok {
		return "-", "-", "-"
	}
	var out [3]string
	for i, code := range models.MatchResultOutcomes {
		if v, ok := m.Outcomes[code]; ok {
			out[i] = strconv.FormatFloat(v, 'f', 2, 64)
		} else {
			out[i] = "-"
		}
	}
	return out[0], out[1], out[2]
}
