// Package extract contains pure functions over forum markup: canonical
// topic-page URL extraction from board index pages, and magnet URI extraction
// from topic pages. Nothing here touches the network or holds state.
package extract
