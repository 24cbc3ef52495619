// Package scheduler owns recurring crawl definitions: it persists them as a
// JSON document, computes next fire times under the daily, weekly, and
// interval policies, and polls on a fixed interval to launch crawl runs for
// due definitions. Late firings are not compensated; a definition fires once
// and resumes its cadence from that firing.
package scheduler
