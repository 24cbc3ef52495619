package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// TestHTTPSessionNavigate tests page loading and state replacement.
func TestHTTPSessionNavigate(t *testing.T) {
	t.Parallel()

	t.Run("loads page and exposes markup and title", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<html><head><title>Board Index</title></head><body><p>hello</p></body></html>`)
		}))
		defer srv.Close()

		s, err := NewHTTPSession(WithTimeout(5 * time.Second))
		if err != nil {
			t.Fatalf("failed to create session: %v", err)
		}
		defer s.Close()

		if err := s.Navigate(context.Background(), srv.URL); err != nil {
			t.Fatalf("failed to navigate: %v", err)
		}

		title, err := s.Title()
		if err != nil {
			t.Fatalf("failed to read title: %v", err)
		}
		if title != "Board Index" {
			t.Errorf("expected title 'Board Index', got %q", title)
		}

		markup, err := s.Markup()
		if err != nil {
			t.Fatalf("failed to read markup: %v", err)
		}
		if len(markup) == 0 {
			t.Error("expected non-empty markup")
		}
	})

	t.Run("reading before navigate fails", func(t *testing.T) {
		t.Parallel()

		s, err := NewHTTPSession()
		if err != nil {
			t.Fatalf("failed to create session: %v", err)
		}
		defer s.Close()

		if _, err := s.Markup(); err == nil {
			t.Error("expected error reading markup before navigate")
		}
		if _, err := s.Title(); err == nil {
			t.Error("expected error reading title before navigate")
		}
	})

	t.Run("sends configured user agent", func(t *testing.T) {
		t.Parallel()

		var gotUA string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			fmt.Fprint(w, "<html><body></body></html>")
		}))
		defer srv.Close()

		s, err := NewHTTPSession(WithUserAgent("magharvest-test"))
		if err != nil {
			t.Fatalf("failed to create session: %v", err)
		}
		defer s.Close()

		if err := s.Navigate(context.Background(), srv.URL); err != nil {
			t.Fatalf("failed to navigate: %v", err)
		}
		if gotUA != "magharvest-test" {
			t.Errorf("expected user agent 'magharvest-test', got %q", gotUA)
		}
	})

	t.Run("server error is reported", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		s, err := NewHTTPSession()
		if err != nil {
			t.Fatalf("failed to create session: %v", err)
		}
		defer s.Close()

		if err := s.Navigate(context.Background(), srv.URL); err == nil {
			t.Error("expected error for 502 response")
		}
	})

	t.Run("decodes gbk body", func(t *testing.T) {
		t.Parallel()

		// "满18岁" encoded as GBK.
		gbk := []byte{0xc2, 0xfa, '1', '8', 0xcb, 0xea}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=gbk")
			w.Write([]byte("<html><body><p>"))
			w.Write(gbk)
			w.Write([]byte("</p></body></html>"))
		}))
		defer srv.Close()

		s, err := NewHTTPSession()
		if err != nil {
			t.Fatalf("failed to create session: %v", err)
		}
		defer s.Close()

		if err := s.Navigate(context.Background(), srv.URL); err != nil {
			t.Fatalf("failed to navigate: %v", err)
		}

		markup, err := s.Markup()
		if err != nil {
			t.Fatalf("failed to read markup: %v", err)
		}
		if want := "满18岁"; !strings.Contains(markup, want) {
			t.Errorf("expected decoded %q in markup", want)
		}
	})
}

// TestHTTPSessionFind tests control lookup and activation.
func TestHTTPSessionFind(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>gate</title></head><body>
			<a class="enter-btn" href="/forum">进入</a>
			<a href="/en">If you are over 18, click here</a>
		</body></html>`)
	})
	mux.HandleFunc("/forum", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>forum</title></head><body></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	t.Run("find by selector resolves relative href", func(t *testing.T) {
		t.Parallel()

		s := mustNavigate(t, srv.URL)
		defer s.Close()

		c, ok := s.Find("a.enter-btn")
		if !ok {
			t.Fatal("expected to find a.enter-btn")
		}
		if want := srv.URL + "/forum"; c.Href != want {
			t.Errorf("expected href %q, got %q", want, c.Href)
		}
	})

	t.Run("find by text", func(t *testing.T) {
		t.Parallel()

		s := mustNavigate(t, srv.URL)
		defer s.Close()

		c, ok := s.FindByText("If you are over 18")
		if !ok {
			t.Fatal("expected to find anchor by text")
		}
		if want := srv.URL + "/en"; c.Href != want {
			t.Errorf("expected href %q, got %q", want, c.Href)
		}
	})

	t.Run("missing control", func(t *testing.T) {
		t.Parallel()

		s := mustNavigate(t, srv.URL)
		defer s.Close()

		if _, ok := s.Find("a.no-such-class"); ok {
			t.Error("expected no match for absent selector")
		}
		if _, ok := s.FindByText("nonexistent"); ok {
			t.Error("expected no match for absent text")
		}
	})

	t.Run("activate follows the control", func(t *testing.T) {
		t.Parallel()

		s := mustNavigate(t, srv.URL)
		defer s.Close()

		c, ok := s.Find("a.enter-btn")
		if !ok {
			t.Fatal("expected to find a.enter-btn")
		}
		if err := s.Activate(context.Background(), c); err != nil {
			t.Fatalf("failed to activate: %v", err)
		}

		title, err := s.Title()
		if err != nil {
			t.Fatalf("failed to read title: %v", err)
		}
		if title != "forum" {
			t.Errorf("expected title 'forum' after activation, got %q", title)
		}
	})
}

// mustNavigate creates a session and loads the given URL, failing the test on
// any error.
func mustNavigate(t *testing.T, url string) *HTTPSession {
	t.Helper()

	s, err := NewHTTPSession()
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if err := s.Navigate(context.Background(), url); err != nil {
		s.Close()
		t.Fatalf("failed to navigate: %v", err)
	}
	return s
}
