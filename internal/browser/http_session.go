package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/proxy"
)

// ErrNoPage is returned when Markup or Title is called before a successful
// Navigate.
var ErrNoPage = errors.New("no page loaded")

// HTTPSession implements Session over net/http. Forum pages are frequently
// served as GBK rather than UTF-8, so response bodies go through charset
// detection before parsing.
type HTTPSession struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64

	// Current page state, replaced wholesale by Navigate.
	currentURL *url.URL
	markup     string
	doc        *goquery.Document
}

// HTTPOption configures an HTTPSession.
type HTTPOption func(*HTTPSession) error

// WithProxy routes the session through the given proxy URL. Supported
// schemes are http, https, and socks5. Empty means direct.
func WithProxy(proxyURL string) HTTPOption {
	return func(s *HTTPSession) error {
		if proxyURL == "" {
			return nil
		}

		u, err := url.Parse(proxyURL)
		if err != nil {
			return fmt.Errorf("invalid proxy URL: %w", err)
		}

		transport, ok := s.client.Transport.(*http.Transport)
		if !ok || transport == nil {
			transport = &http.Transport{}
			s.client.Transport = transport
		}

		switch u.Scheme {
		case "http", "https":
			transport.Proxy = http.ProxyURL(u)
		case "socks5":
			var auth *proxy.Auth
			if u.User != nil {
				password, _ := u.User.Password()
				auth = &proxy.Auth{User: u.User.Username(), Password: password}
			}
			dialer, err := proxy.SOCKS5("tcp", u.Host, auth, &net.Dialer{Timeout: 30 * time.Second})
			if err != nil {
				return fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
			}
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				if cd, ok := dialer.(proxy.ContextDialer); ok {
					return cd.DialContext(ctx, network, addr)
				}
				return dialer.Dial(network, addr)
			}
		default:
			return fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
		}
		return nil
	}
}

// WithUserAgent sets the User-Agent header for all page loads.
func WithUserAgent(ua string) HTTPOption {
	return func(s *HTTPSession) error {
		s.userAgent = ua
		return nil
	}
}

// WithTimeout bounds each page load.
func WithTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPSession) error {
		s.client.Timeout = d
		return nil
	}
}

// WithMaxBodySize limits how much of a response body is read.
func WithMaxBodySize(size int64) HTTPOption {
	return func(s *HTTPSession) error {
		if size > 0 {
			s.maxBodySize = size
		}
		return nil
	}
}

// NewHTTPSession creates a session with its own HTTP client and cookie-free
// state. Callers open one session per crawl run and close it when done.
func NewHTTPSession(opts ...HTTPOption) (*HTTPSession, error) {
	s := &HTTPSession{
		client: &http.Client{
			Transport: &http.Transport{},
			Timeout:   30 * time.Second,
		},
		userAgent:   "Mozilla/5.0 (X11; Linux x86_64) Chrome/139.0.0.0 Safari/537.36",
		maxBodySize: 10 * 1024 * 1024,
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Navigate loads the given URL and replaces the current page state.
func (s *HTTPSession) Navigate(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to load %q: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("failed to load %q: status %d", rawURL, resp.StatusCode)
	}

	// Decode to UTF-8 before parsing; the forum serves GBK depending on
	// the client hints.
	reader, err := charset.NewReader(
		io.LimitReader(resp.Body, s.maxBodySize),
		resp.Header.Get("Content-Type"),
	)
	if err != nil {
		return fmt.Errorf("failed to decode %q: %w", rawURL, err)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", rawURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("failed to parse %q: %w", rawURL, err)
	}

	// resp.Request.URL reflects redirects, keeping relative-link
	// resolution anchored on the final location.
	s.currentURL = resp.Request.URL
	s.markup = string(body)
	s.doc = doc
	return nil
}

// Markup returns the markup of the current page.
func (s *HTTPSession) Markup() (string, error) {
	if s.doc == nil {
		return "", ErrNoPage
	}
	return s.markup, nil
}

// Title returns the title of the current page.
func (s *HTTPSession) Title() (string, error) {
	if s.doc == nil {
		return "", ErrNoPage
	}
	return strings.TrimSpace(s.doc.Find("title").First().Text()), nil
}

// Find locates the first element matching a CSS selector that carries an
// href attribute.
func (s *HTTPSession) Find(selector string) (*Control, bool) {
	if s.doc == nil {
		return nil, false
	}

	sel := s.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, false
	}

	href, _ := sel.Attr("href")
	return &Control{
		Href: s.resolve(href),
		Text: strings.TrimSpace(sel.Text()),
	}, true
}

// FindByText locates the first anchor whose text contains the given string.
func (s *HTTPSession) FindByText(text string) (*Control, bool) {
	if s.doc == nil {
		return nil, false
	}

	var found *Control
	s.doc.Find("a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !strings.Contains(sel.Text(), text) {
			return true
		}
		href, _ := sel.Attr("href")
		found = &Control{
			Href: s.resolve(href),
			Text: strings.TrimSpace(sel.Text()),
		}
		return false
	})
	return found, found != nil
}

// Activate follows the control's target.
func (s *HTTPSession) Activate(ctx context.Context, c *Control) error {
	if c == nil || c.Href == "" {
		return errors.New("control has no target")
	}
	return s.Navigate(ctx, c.Href)
}

// Close releases the session's connections. Safe to call more than once.
func (s *HTTPSession) Close() error {
	s.client.CloseIdleConnections()
	s.doc = nil
	s.markup = ""
	return nil
}

// resolve resolves a possibly relative href against the current page URL.
func (s *HTTPSession) resolve(href string) string {
	if href == "" || s.currentURL == nil {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	return s.currentURL.ResolveReference(u).String()
}
