package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/magharvest/magharvest/internal/model"
)

// createTestTask creates a finished task snapshot for testing.
func createTestTask() model.CrawlTask {
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Minute)
	return model.CrawlTask{
		ID: "task_1_1756710000",
		Params: model.CrawlParams{
			ThemeID:   "36",
			Mode:      model.ModeNormal,
			StartPage: 1,
			EndPage:   3,
		},
		Status:     model.TaskCompleted,
		Progress:   100,
		FoundLinks: 42,
		OutputFile: "/data/results/task_1_1756710000.txt",
		StartTime:  &start,
		EndTime:    &end,
		Log: []string{
			"[2026-09-01 09:00:00] INFO: crawling theme 36",
			"[2026-09-01 09:03:00] INFO: found 42 magnet links",
		},
	}
}

// TestNewSummary tests summary derivation from a task snapshot.
func TestNewSummary(t *testing.T) {
	t.Parallel()

	s := NewSummary(createTestTask())
	if s.TaskID != "task_1_1756710000" {
		t.Errorf("unexpected task id %q", s.TaskID)
	}
	if s.ThemeName == "" {
		t.Error("expected the theme name to be resolved from the catalog")
	}
	if s.LinkCount != 42 {
		t.Errorf("expected 42 links, got %d", s.LinkCount)
	}
	if s.Duration() != 3*time.Minute {
		t.Errorf("expected 3m duration, got %v", s.Duration())
	}

	unknown := createTestTask()
	unknown.Params.ThemeID = "999"
	if got := NewSummary(unknown); got.ThemeName != "" {
		t.Errorf("expected empty theme name for unknown id, got %q", got.ThemeName)
	}
}

// TestSimpleWriter tests the human-readable report writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes report header and result", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		if _, err := w.Write(NewSummary(createTestTask())); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "CRAWL REPORT") {
			t.Error("expected output to contain header")
		}
		if !strings.Contains(output, "task_1_1756710000") {
			t.Error("expected output to contain task id")
		}
		if !strings.Contains(output, "Links:      42") {
			t.Error("expected output to contain link count")
		}
	})

	t.Run("includes run log only when verbose", func(t *testing.T) {
		t.Parallel()

		var quiet, verbose bytes.Buffer
		summary := NewSummary(createTestTask())

		if _, err := NewSimpleWriter(&quiet).Write(summary); err != nil {
			t.Fatal(err)
		}
		if _, err := NewSimpleWriter(&verbose, WithVerbose(true)).Write(summary); err != nil {
			t.Fatal(err)
		}

		if strings.Contains(quiet.String(), "RUN LOG") {
			t.Error("expected no log section without verbose")
		}
		if !strings.Contains(verbose.String(), "RUN LOG") {
			t.Error("expected log section with verbose")
		}
	})

	t.Run("includes failure message", func(t *testing.T) {
		t.Parallel()

		task := createTestTask()
		task.Status = model.TaskFailed
		task.ErrorMessage = "no magnet links found"
		task.OutputFile = ""

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(NewSummary(task)); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "no magnet links found") {
			t.Error("expected output to contain the failure message")
		}
	})
}

// TestJSONWriter tests the JSON report writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes valid JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)

		if _, err := w.Write(NewSummary(createTestTask())); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got Summary
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if got.TaskID != "task_1_1756710000" || got.LinkCount != 42 {
			t.Errorf("unexpected decoded summary %+v", got)
		}
	})

	t.Run("pretty print indents output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint())

		if _, err := w.Write(NewSummary(createTestTask())); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "\n  \"task_id\"") {
			t.Error("expected indented output")
		}
	})
}

// TestMarkdownWriter tests the Markdown report writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewMarkdownWriter(&buf)

	if _, err := w.Write(NewSummary(createTestTask())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "# Crawl Report") {
		t.Error("expected markdown H1 header")
	}
	if !strings.Contains(output, "| Property | Value |") {
		t.Error("expected property table")
	}
	if !strings.Contains(output, "## Run Log") {
		t.Error("expected run log section")
	}
}

// TestMultiWriter tests fan-out to multiple writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var text, jsonBuf bytes.Buffer
	mw := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&jsonBuf))

	if _, err := mw.Write(NewSummary(createTestTask())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text.Len() == 0 || jsonBuf.Len() == 0 {
		t.Error("expected both writers to receive output")
	}
}
