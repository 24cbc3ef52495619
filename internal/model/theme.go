package model

import "fmt"

// Theme describes one forum board that can be crawled.
// The catalog is static and immutable for the process lifetime; themes are
// only ever looked up, never mutated.
type Theme struct {
	// ID is the forum board identifier as it appears in board URLs.
	ID string

	// Name is the human-readable board label shown in listings.
	Name string

	// IndexURLTemplate is the paginated board index URL. It contains a
	// single %d verb for the page number.
	IndexURLTemplate string

	// HotURL is the heat-ordered board listing. Empty when the board does
	// not support heat ordering.
	HotURL string
}

// IndexURL returns the board index URL for the given page number.
func (t Theme) IndexURL(page int) string {
	return fmt.Sprintf(t.IndexURLTemplate, page)
}

// SupportsHot reports whether the board offers a heat-ordered listing.
func (t Theme) SupportsHot() bool {
	return t.HotURL != ""
}

// themes is the static board catalog.
//
// Design decision: The catalog is a package-level value rather than
// configuration because the boards, their IDs, and their URL shapes are
// properties of the target site. New boards require a code change either way
// (the extraction patterns must be verified against them).
var themes = []Theme{
	{ID: "36", Name: "亚洲无码", IndexURLTemplate: "https://sehuatang.org/forum-36-%d.html", HotURL: "https://sehuatang.org/forum.php?mod=forumdisplay&fid=36&filter=heat&orderby=heats"},
	{ID: "37", Name: "亚洲有码", IndexURLTemplate: "https://sehuatang.org/forum-37-%d.html"},
	{ID: "2", Name: "国产原创", IndexURLTemplate: "https://sehuatang.org/forum-2-%d.html", HotURL: "https://sehuatang.org/forum.php?mod=forumdisplay&fid=2&filter=heat&orderby=heats"},
	{ID: "103", Name: "高清中文字幕", IndexURLTemplate: "https://sehuatang.org/forum-103-%d.html", HotURL: "https://sehuatang.org/forum.php?mod=forumdisplay&fid=103&filter=heat&orderby=heats"},
	{ID: "104", Name: "素人原创", IndexURLTemplate: "https://sehuatang.org/forum-104-%d.html"},
	{ID: "39", Name: "动漫原创", IndexURLTemplate: "https://sehuatang.org/forum-39-%d.html"},
	{ID: "152", Name: "韩国主播", IndexURLTemplate: "https://sehuatang.org/forum-152-%d.html", HotURL: "https://sehuatang.org/forum.php?mod=forumdisplay&fid=152&filter=heat&orderby=heats"},
}

// Themes returns the full board catalog in a stable order.
// The returned slice is a copy; callers may not mutate the catalog.
func Themes() []Theme {
	out := make([]Theme, len(themes))
	copy(out, themes)
	return out
}

// ThemeByID looks up a board by its identifier.
func ThemeByID(id string) (Theme, bool) {
	for _, t := range themes {
		if t.ID == id {
			return t, true
		}
	}
	return Theme{}, false
}
