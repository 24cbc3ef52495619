package crawl

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/magharvest/magharvest/internal/browser"
	"github.com/magharvest/magharvest/internal/model"
)

// fakeSession serves scripted markup keyed by URL.
type fakeSession struct {
	pages      map[string]string
	current    string
	loaded     bool
	closeCount int
	panicURL   string
}

func (s *fakeSession) Navigate(_ context.Context, url string) error {
	if url == s.panicURL {
		panic("scripted panic: " + url)
	}
	markup, ok := s.pages[url]
	if !ok {
		return errors.New("no such page: " + url)
	}
	s.current = markup
	s.loaded = true
	return nil
}

func (s *fakeSession) Markup() (string, error) {
	if !s.loaded {
		return "", browser.ErrNoPage
	}
	return s.current, nil
}

func (s *fakeSession) Title() (string, error) {
	if !s.loaded {
		return "", browser.ErrNoPage
	}
	return "board", nil
}

func (s *fakeSession) Find(string) (*browser.Control, bool)       { return nil, false }
func (s *fakeSession) FindByText(string) (*browser.Control, bool) { return nil, false }

func (s *fakeSession) Activate(ctx context.Context, c *browser.Control) error {
	return s.Navigate(ctx, c.Href)
}

func (s *fakeSession) Close() error {
	s.closeCount++
	return nil
}

const (
	magnetA = "magnet:?xt=urn:btih:aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	magnetB = "magnet:?xt=urn:btih:bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func testOrchestrator(t *testing.T, r *Registry, s browser.Session) *Orchestrator {
	t.Helper()
	return NewOrchestrator(r,
		func(string) (browser.Session, error) { return s, nil },
		t.TempDir(),
		WithCrawlDelay(0),
		WithSettleDelay(0),
		WithMaxAttempts(1),
	)
}

// TestOrchestratorRun tests the full fetch-extract-aggregate pipeline.
func TestOrchestratorRun(t *testing.T) {
	t.Parallel()

	t.Run("completes and writes deduplicated artifact", func(t *testing.T) {
		t.Parallel()

		s := &fakeSession{pages: map[string]string{
			"https://sehuatang.org/forum-36-1.html": `<html><body>
				<a href="thread-101-1-1.html">one</a>
				<a href="thread-102-1-1.html">two</a>
			</body></html>`,
			"https://sehuatang.org/thread-101-1-1.html": `<p>` + magnetA + `</p><p>` + magnetB + `</p>`,
			"https://sehuatang.org/thread-102-1-1.html": `<p>` + magnetB + `</p>`,
		}}

		r := NewRegistry()
		task, _ := r.Create(model.CrawlParams{ThemeID: "36", Mode: model.ModeNormal, StartPage: 1, EndPage: 1})

		var lastProcessed, lastTotal, lastFound int
		obs := ObserverFunc(func(processed, total, found int) {
			lastProcessed, lastTotal, lastFound = processed, total, found
		})

		o := testOrchestrator(t, r, s)
		if err := o.Run(context.Background(), task.ID, obs); err != nil {
			t.Fatalf("failed to run task: %v", err)
		}

		got, _ := r.Get(task.ID)
		if got.Status != model.TaskCompleted {
			t.Fatalf("expected completed status, got %s (%s)", got.Status, got.ErrorMessage)
		}
		if got.Progress != 100 {
			t.Errorf("expected progress 100, got %d", got.Progress)
		}
		if got.FoundLinks != 2 {
			t.Errorf("expected 2 unique links, got %d", got.FoundLinks)
		}
		if lastProcessed != 2 || lastTotal != 2 || lastFound != 2 {
			t.Errorf("unexpected final observer update (%d, %d, %d)", lastProcessed, lastTotal, lastFound)
		}
		if s.closeCount != 1 {
			t.Errorf("expected session closed exactly once, got %d", s.closeCount)
		}

		data, err := os.ReadFile(got.OutputFile)
		if err != nil {
			t.Fatalf("failed to read artifact: %v", err)
		}
		want := magnetA + "\n" + magnetB + "\n"
		if string(data) != want {
			t.Errorf("unexpected artifact content:\n%q\nwant:\n%q", string(data), want)
		}
	})

	t.Run("hot mode uses the heat-ordered listing", func(t *testing.T) {
		t.Parallel()

		s := &fakeSession{pages: map[string]string{
			"https://sehuatang.org/forum.php?mod=forumdisplay&fid=36&filter=heat&orderby=heats": `<a href="thread-201-1-1.html">hot</a>`,
			"https://sehuatang.org/thread-201-1-1.html":                                        `<p>` + magnetA + `</p>`,
		}}

		r := NewRegistry()
		task, _ := r.Create(model.CrawlParams{ThemeID: "36", Mode: model.ModeHot, StartPage: 1, EndPage: 1})

		o := testOrchestrator(t, r, s)
		if err := o.Run(context.Background(), task.ID, nil); err != nil {
			t.Fatalf("failed to run hot task: %v", err)
		}

		got, _ := r.Get(task.ID)
		if got.Status != model.TaskCompleted {
			t.Errorf("expected completed status, got %s (%s)", got.Status, got.ErrorMessage)
		}
	})

	t.Run("zero links fails the task", func(t *testing.T) {
		t.Parallel()

		s := &fakeSession{pages: map[string]string{
			"https://sehuatang.org/forum-36-1.html":     `<a href="thread-101-1-1.html">one</a>`,
			"https://sehuatang.org/thread-101-1-1.html": `<p>nothing here</p>`,
		}}

		r := NewRegistry()
		task, _ := r.Create(model.CrawlParams{ThemeID: "36", Mode: model.ModeNormal, StartPage: 1, EndPage: 1})

		o := testOrchestrator(t, r, s)
		if err := o.Run(context.Background(), task.ID, nil); err == nil {
			t.Fatal("expected an error for an empty run")
		}

		got, _ := r.Get(task.ID)
		if got.Status != model.TaskFailed {
			t.Errorf("expected failed status, got %s", got.Status)
		}
		if got.ErrorMessage != "no magnet links found" {
			t.Errorf("unexpected error message %q", got.ErrorMessage)
		}
	})

	t.Run("unreachable index page is skipped", func(t *testing.T) {
		t.Parallel()

		// Page 1 is missing; page 2 still yields links.
		s := &fakeSession{pages: map[string]string{
			"https://sehuatang.org/forum-36-2.html":     `<a href="thread-102-1-1.html">two</a>`,
			"https://sehuatang.org/thread-102-1-1.html": `<p>` + magnetA + `</p>`,
		}}

		r := NewRegistry()
		task, _ := r.Create(model.CrawlParams{ThemeID: "36", Mode: model.ModeNormal, StartPage: 1, EndPage: 2})

		o := testOrchestrator(t, r, s)
		if err := o.Run(context.Background(), task.ID, nil); err != nil {
			t.Fatalf("expected run to survive a dead page: %v", err)
		}

		got, _ := r.Get(task.ID)
		if got.Status != model.TaskCompleted {
			t.Errorf("expected completed status, got %s (%s)", got.Status, got.ErrorMessage)
		}
		var loggedError bool
		for _, line := range got.Log {
			if strings.Contains(line, "failed to load page 1") {
				loggedError = true
			}
		}
		if !loggedError {
			t.Error("expected the dead page to be logged")
		}
	})

	t.Run("session factory failure fails the task", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		task, _ := r.Create(model.CrawlParams{ThemeID: "36", Mode: model.ModeNormal, StartPage: 1, EndPage: 1})

		o := NewOrchestrator(r,
			func(string) (browser.Session, error) { return nil, errors.New("driver unavailable") },
			t.TempDir(),
		)
		if err := o.Run(context.Background(), task.ID, nil); err == nil {
			t.Fatal("expected an error when the session cannot open")
		}

		got, _ := r.Get(task.ID)
		if got.Status != model.TaskFailed {
			t.Errorf("expected failed status, got %s", got.Status)
		}
	})

	t.Run("panic is recovered and fails the task", func(t *testing.T) {
		t.Parallel()

		s := &fakeSession{
			pages:    map[string]string{},
			panicURL: "https://sehuatang.org/forum-36-1.html",
		}

		r := NewRegistry()
		task, _ := r.Create(model.CrawlParams{ThemeID: "36", Mode: model.ModeNormal, StartPage: 1, EndPage: 1})

		o := testOrchestrator(t, r, s)
		if err := o.Run(context.Background(), task.ID, nil); err == nil {
			t.Fatal("expected the recovered panic to surface as an error")
		}

		got, _ := r.Get(task.ID)
		if got.Status != model.TaskFailed {
			t.Errorf("expected failed status, got %s", got.Status)
		}
		if !strings.Contains(got.ErrorMessage, "panic") {
			t.Errorf("expected panic message, got %q", got.ErrorMessage)
		}
		if s.closeCount != 1 {
			t.Errorf("expected session closed exactly once, got %d", s.closeCount)
		}
	})

	t.Run("running a second time is rejected", func(t *testing.T) {
		t.Parallel()

		s := &fakeSession{pages: map[string]string{
			"https://sehuatang.org/forum-36-1.html":     `<a href="thread-101-1-1.html">one</a>`,
			"https://sehuatang.org/thread-101-1-1.html": `<p>` + magnetA + `</p>`,
		}}

		r := NewRegistry()
		task, _ := r.Create(model.CrawlParams{ThemeID: "36", Mode: model.ModeNormal, StartPage: 1, EndPage: 1})

		o := testOrchestrator(t, r, s)
		if err := o.Run(context.Background(), task.ID, nil); err != nil {
			t.Fatalf("failed to run task: %v", err)
		}
		if err := o.Run(context.Background(), task.ID, nil); err == nil {
			t.Error("expected rerun of a terminal task to be rejected")
		}
	})
}
