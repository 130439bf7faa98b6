package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/masahif/corpuscrawl/internal/stats"
)

// Subdomains beyond this many are folded into "other" in the chart
const maxChartSlices = 8

// WriteMarkdown writes a one-page summary of snap to w
func WriteMarkdown(w io.Writer, snap stats.Snapshot) error {
	md := markdown.NewMarkdown(w)

	md.H1("Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Unique pages", strconv.Itoa(len(snap.UniqueURLs))},
			{"Visited pages", strconv.Itoa(snap.Visited)},
			{"Invalid URLs", strconv.Itoa(snap.Invalid)},
			{"Fingerprints", strconv.Itoa(snap.Fingerprints)},
			{"Subdomains", strconv.Itoa(len(snap.Subdomains))},
		},
	})
	md.PlainText("")

	md.H2("Longest Page")
	md.PlainText("")
	if snap.LongestPage.URL == "" {
		md.PlainText("No page was visited.")
	} else {
		md.PlainText(fmt.Sprintf("%s (%d words)", snap.LongestPage.URL, snap.LongestPage.Tokens))
	}
	md.PlainText("")

	md.H2("Most Common Words")
	md.PlainText("")
	if len(snap.TopTokens) == 0 {
		md.PlainText("No tokens recorded.")
	} else {
		rows := make([][]string, 0, len(snap.TopTokens))
		for i, tc := range snap.TopTokens {
			rows = append(rows, []string{strconv.Itoa(i + 1), tc.Token, strconv.Itoa(tc.Count)})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Rank", "Word", "Count"},
			Rows:   rows,
		})
	}
	md.PlainText("")

	md.H2("Subdomains")
	md.PlainText("")
	if len(snap.Subdomains) == 0 {
		md.PlainText("No subdomains recorded.")
	} else {
		rows := make([][]string, 0, len(snap.Subdomains))
		for _, sc := range snap.Subdomains {
			rows = append(rows, []string{sc.Host, strconv.Itoa(sc.Count)})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Host", "Unique pages"},
			Rows:   rows,
		})
		md.PlainText("")
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, subdomainChart(snap.Subdomains))
	}
	md.PlainText("")

	return md.Build()
}

// WriteMarkdownFile writes the summary to dir/summary.md
func WriteMarkdownFile(dir string, snap stats.Snapshot) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(dir, SummaryFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := WriteMarkdown(f, snap); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// subdomainChart renders the largest subdomains as a mermaid pie chart
func subdomainChart(subs []stats.SubdomainCount) string {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Unique pages per subdomain"),
		piechart.WithShowData(true),
	)

	ranked := append([]stats.SubdomainCount(nil), subs...)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Host < ranked[j].Host
	})

	other := 0
	for i, sc := range ranked {
		if i < maxChartSlices {
			chart.LabelAndIntValue(sc.Host, uint64(sc.Count))
			continue
		}
		other += sc.Count
	}
	if other > 0 {
		chart.LabelAndIntValue("other", uint64(other))
	}

	return chart.String()
}
