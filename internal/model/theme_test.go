package model

import (
	"strings"
	"testing"
)

// TestThemeCatalog tests the static board catalog.
func TestThemeCatalog(t *testing.T) {
	t.Parallel()

	t.Run("contains all seven boards", func(t *testing.T) {
		t.Parallel()

		got := Themes()
		if len(got) != 7 {
			t.Fatalf("expected 7 themes, got %d", len(got))
		}

		ids := make(map[string]bool)
		for _, th := range got {
			ids[th.ID] = true
		}
		for _, want := range []string{"36", "37", "2", "103", "104", "39", "152"} {
			if !ids[want] {
				t.Errorf("theme %q missing from catalog", want)
			}
		}
	})

	t.Run("lookup by id", func(t *testing.T) {
		t.Parallel()

		th, ok := ThemeByID("103")
		if !ok {
			t.Fatal("expected theme 103 to exist")
		}
		if th.Name == "" {
			t.Error("expected non-empty display name")
		}
		if !th.SupportsHot() {
			t.Error("expected theme 103 to support hot mode")
		}

		if _, ok := ThemeByID("999"); ok {
			t.Error("expected lookup of unknown theme to fail")
		}
	})

	t.Run("index url substitutes page number", func(t *testing.T) {
		t.Parallel()

		th, ok := ThemeByID("36")
		if !ok {
			t.Fatal("expected theme 36 to exist")
		}

		got := th.IndexURL(5)
		want := "https://sehuatang.org/forum-36-5.html"
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("hot mode support matches catalog", func(t *testing.T) {
		t.Parallel()

		hot := map[string]bool{"36": true, "2": true, "103": true, "152": true}
		for _, th := range Themes() {
			if got := th.SupportsHot(); got != hot[th.ID] {
				t.Errorf("theme %s: SupportsHot() = %v, want %v", th.ID, got, hot[th.ID])
			}
			if th.SupportsHot() && !strings.Contains(th.HotURL, "filter=heat") {
				t.Errorf("theme %s: hot URL %q does not request heat ordering", th.ID, th.HotURL)
			}
		}
	})

	t.Run("returned catalog is a copy", func(t *testing.T) {
		t.Parallel()

		first := Themes()
		first[0].Name = "mutated"

		if Themes()[0].Name == "mutated" {
			t.Error("mutating the returned slice changed the catalog")
		}
	})
}
