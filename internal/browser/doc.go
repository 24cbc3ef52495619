// Package browser provides the abstract page-loading capability the crawl
// core consumes: navigate to a URL, read the current markup and title, locate
// and activate controls, and close the session.
//
// The production implementation drives plain HTTP with a proxy-aware client
// and charset-aware body decoding. The interface deliberately mirrors a
// browser-automation driver so that one could be swapped in without touching
// the fetcher or orchestrator.
package browser
