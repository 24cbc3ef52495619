package report

import (
	"fmt"
	"io"
	"strings"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// verbose enables the full run log in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output including the run log.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *Summary) (int, error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", 60) + "\n")
	sb.WriteString("CRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 60) + "\n\n")

	theme := summary.ThemeID
	if summary.ThemeName != "" {
		theme = fmt.Sprintf("%s (%s)", summary.ThemeName, summary.ThemeID)
	}

	fmt.Fprintf(&sb, "Task:       %s\n", summary.TaskID)
	fmt.Fprintf(&sb, "Theme:      %s\n", theme)
	fmt.Fprintf(&sb, "Mode:       %s\n", summary.Mode)
	fmt.Fprintf(&sb, "Pages:      %d to %d\n", summary.StartPage, summary.EndPage)
	fmt.Fprintf(&sb, "Status:     %s\n", w.statusText(summary))
	fmt.Fprintf(&sb, "Links:      %d\n", summary.LinkCount)

	if summary.OutputFile != "" {
		fmt.Fprintf(&sb, "Output:     %s\n", summary.OutputFile)
	}
	if d := summary.Duration(); d > 0 {
		fmt.Fprintf(&sb, "Duration:   %s\n", d.Round(0).String())
	}

	if w.verbose && len(summary.Log) > 0 {
		sb.WriteString("\n" + strings.Repeat("-", 60) + "\n")
		sb.WriteString("RUN LOG\n")
		sb.WriteString(strings.Repeat("-", 60) + "\n")
		for _, line := range summary.Log {
			sb.WriteString(line + "\n")
		}
	}

	sb.WriteString("\n")
	return w.output.Write([]byte(sb.String()))
}

// statusText renders the status with the failure message attached.
func (w *SimpleWriter) statusText(summary *Summary) string {
	if summary.Error != "" {
		return fmt.Sprintf("%s - %s", summary.Status, summary.Error)
	}
	return summary.Status
}
