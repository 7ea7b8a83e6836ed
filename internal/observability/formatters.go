// Package observability provides the logger and the formatted CLI output.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/jonathan/company-brief/internal/crawling"
	"github.com/jonathan/company-brief/internal/fetch"
	"github.com/jonathan/company-brief/internal/search"
	"github.com/jonathan/company-brief/internal/types"
)

const (
	// boxWidth is the display width of formatted output boxes
	boxWidth = 72
	// innerWidth is the usable width inside a box
	innerWidth = boxWidth - 4
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

var (
	highStyle  = color.New(color.FgGreen, color.Bold)
	lowStyle   = color.New(color.FgYellow, color.Bold)
	errorStyle = color.New(color.FgRed)
	titleStyle = color.New(color.Bold)
	dimStyle   = color.New(color.Faint)
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content. Lines are wrapped
// to the box by display width, so Hangul counts as two columns.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, style *color.Color, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", style.Sprint(runewidth.FillRight(runewidth.Truncate(title, innerWidth, "..."), innerWidth)))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		for _, segment := range wrap(line, innerWidth) {
			fmt.Fprintf(p.out, "│ %s │\n", runewidth.FillRight(segment, innerWidth))
		}
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// wrap splits line into segments no wider than width, breaking at spaces
// where possible.
func wrap(line string, width int) []string {
	if runewidth.StringWidth(line) <= width {
		return []string{line}
	}

	var segments []string
	var cur strings.Builder
	curWidth := 0
	flush := func() {
		segments = append(segments, strings.TrimRight(cur.String(), " "))
		cur.Reset()
		curWidth = 0
	}

	for _, word := range strings.Split(line, " ") {
		w := runewidth.StringWidth(word)
		if curWidth > 0 && curWidth+1+w > width {
			flush()
		}
		for w > width {
			// A single word wider than the box is hard-broken.
			head := runewidth.Truncate(word, width, "")
			segments = append(segments, head)
			word = strings.TrimPrefix(word, head)
			w = runewidth.StringWidth(word)
		}
		if curWidth > 0 {
			cur.WriteString(" ")
			curWidth++
		}
		cur.WriteString(word)
		curWidth += w
	}
	if cur.Len() > 0 {
		flush()
	}
	return segments
}

// PrintReport outputs the three topic summaries, their sources and the run's errors.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintReport(report *types.Report) {
	if report == nil {
		return
	}

	header := report.Company.Name
	if report.Company.HasHomepage() {
		header += " (" + report.Company.HomepageURL + ")"
	}
	fmt.Fprintln(p.out, titleStyle.Sprintf("%s 기업 정보 요약", header))
	fmt.Fprintln(p.out)

	for _, topic := range types.AllTopics() {
		p.PrintSummary(report.Result(topic))
		fmt.Fprintln(p.out)
	}

	if len(report.Errors) > 0 {
		p.printBox(fmt.Sprintf("오류 / 경고 (%d)", len(report.Errors)), errorStyle, strings.Join(report.Errors, "\n"))
		fmt.Fprintln(p.out)
	}

	fmt.Fprintln(p.out, dimStyle.Sprintf("run %s · %s", report.RunID, report.Duration.Round(time.Millisecond)))
}

// PrintSummary outputs one topic summary in a box.
func (p *Printer) PrintSummary(res types.SummaryResult) {
	style := highStyle
	if res.LowConfidence() {
		style = lowStyle
	}
	title := fmt.Sprintf("%s [%s]", res.Topic.Title(), res.Confidence)

	var sb strings.Builder
	sb.WriteString(res.Text)
	if len(res.SourceURLs) > 0 {
		sb.WriteString("\n\n출처:\n")
		for _, u := range res.SourceURLs {
			sb.WriteString(fmt.Sprintf("  • %s\n", u))
		}
	}
	p.printBox(title, style, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintProgress outputs a one-line topic state change.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(topic types.Topic, state types.TopicState, message string) {
	line := fmt.Sprintf("[%s] %s", topic, state)
	if message != "" {
		line += ": " + message
	}
	fmt.Fprintln(p.out, dimStyle.Sprint(line))
}

// PrintSearchResults outputs the results of a search provider.
func (p *Printer) PrintSearchResults(provider, query string, results []search.Result) {
	var sb strings.Builder
	if len(results) == 0 {
		sb.WriteString("결과 없음")
	}
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%d. %s\n", r.Position, r.Title))
		if r.Date != "" {
			sb.WriteString(fmt.Sprintf("   [%s]\n", r.Date))
		}
		if r.Snippet != "" {
			sb.WriteString(fmt.Sprintf("   %s\n", r.Snippet))
		}
		sb.WriteString(fmt.Sprintf("   %s\n", r.URL))
	}
	p.printBox(fmt.Sprintf("SEARCH (%s): %s", provider, query), titleStyle, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintPage outputs a fetched page's metadata and the first maxChars characters
// of its text. maxChars <= 0 prints the whole text.
func (p *Printer) PrintPage(page *fetch.Page, maxChars int) {
	if page == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("URL:      %s\n", page.URL))
	if page.FinalURL != "" && page.FinalURL != page.URL {
		sb.WriteString(fmt.Sprintf("Final:    %s\n", page.FinalURL))
	}
	sb.WriteString(fmt.Sprintf("Status:   %d (%s)\n", page.StatusCode, page.ContentType))
	sb.WriteString(fmt.Sprintf("Attempts: %d", page.Attempts))
	if page.Rendered {
		sb.WriteString(" (browser)")
	}
	sb.WriteString("\n\n")

	text := page.Text
	if text == "" {
		text = "(no text)"
	}
	runes := []rune(text)
	if maxChars > 0 && len(runes) > maxChars {
		text = string(runes[:maxChars]) + fmt.Sprintf("\n... and %d more characters", len(runes)-maxChars)
	}
	sb.WriteString(text)

	p.printBox("CRAWLED PAGE", titleStyle, sb.String())
}

// PrintLinks outputs the links that look like a topic subpage, with the topic
// each one was classified under.
func (p *Printer) PrintLinks(links []crawling.Link) {
	var sb strings.Builder
	unclassified := 0
	for _, l := range links {
		topic, ok := crawling.ClassifyLink(l)
		if !ok {
			unclassified++
			continue
		}
		text := l.Text
		if text == "" {
			text = "(no text)"
		}
		sb.WriteString(fmt.Sprintf("%-8s  %s\n          %s\n", topic, text, l.URL))
	}
	if sb.Len() == 0 {
		sb.WriteString("분류된 링크 없음\n")
	}
	if unclassified > 0 {
		sb.WriteString(fmt.Sprintf("\n... and %d unclassified\n", unclassified))
	}

	p.printBox(fmt.Sprintf("LINKS: %d", len(links)), titleStyle, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintEvidence outputs the evidence bundle behind a topic, most relevant first.
func (p *Printer) PrintEvidence(bundle types.EvidenceBundle) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Snippets: %d, characters: %d\n", len(bundle.Snippets), bundle.TotalCharCount))

	count := min(len(bundle.Snippets), maxItemsToShow)
	for i := 0; i < count; i++ {
		s := bundle.Snippets[i]
		sb.WriteString(fmt.Sprintf("\n#%d  %.2f  %s\n    %s\n", i+1, s.RelevanceScore, s.Origin, s.SourceURL))
	}
	if len(bundle.Snippets) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more\n", len(bundle.Snippets)-maxItemsToShow))
	}

	p.printBox(fmt.Sprintf("EVIDENCE: %s", bundle.Topic), titleStyle, strings.TrimSuffix(sb.String(), "\n"))
}
