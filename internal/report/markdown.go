package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeResult(md, summary)
	w.writeLog(md, summary)

	return len(md.String()), md.Build()
}

// writeHeader writes the run identification table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *Summary) {
	md.H1("Crawl Report")
	md.PlainText("")

	theme := summary.ThemeID
	if summary.ThemeName != "" {
		theme = summary.ThemeName + " (" + summary.ThemeID + ")"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Task", "`" + summary.TaskID + "`"},
			{"Theme", theme},
			{"Mode", summary.Mode},
			{"Pages", strconv.Itoa(summary.StartPage) + " to " + strconv.Itoa(summary.EndPage)},
			{"Status", w.statusText(summary)},
		},
	})
	md.PlainText("")
}

// statusText returns the status text based on the run outcome.
func (w *MarkdownWriter) statusText(summary *Summary) string {
	if summary.Error != "" {
		return "❌ " + summary.Status + " - " + summary.Error
	}
	if summary.Status == "completed" {
		return "✅ " + summary.Status
	}
	return summary.Status
}

// writeResult writes the result section.
func (w *MarkdownWriter) writeResult(md *markdown.Markdown, summary *Summary) {
	md.H2("Result")
	md.PlainText("")

	rows := [][]string{
		{"Magnet links", strconv.Itoa(summary.LinkCount)},
		{"Progress", strconv.Itoa(summary.Progress) + "%"},
	}
	if summary.OutputFile != "" {
		rows = append(rows, []string{"Output file", "`" + summary.OutputFile + "`"})
	}
	if d := summary.Duration(); d > 0 {
		rows = append(rows, []string{"Duration", d.String()})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeLog writes the run log as a code block.
func (w *MarkdownWriter) writeLog(md *markdown.Markdown, summary *Summary) {
	if len(summary.Log) == 0 {
		return
	}

	md.H2("Run Log")
	md.PlainText("")

	var log string
	for _, line := range summary.Log {
		log += line + "\n"
	}
	md.CodeBlocks(markdown.SyntaxHighlightText, log)
	md.PlainText("")
}
