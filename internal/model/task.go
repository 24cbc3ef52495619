package model

import "time"

// TaskStatus is the lifecycle state of a crawl task.
type TaskStatus string

// Task lifecycle states. A task starts as pending, moves to running when the
// orchestrator picks it up, and ends in exactly one of the two terminal
// states. Terminal states are absorbing: no transition ever leaves them.
const (
	// TaskPending means the task has been created but not started.
	TaskPending TaskStatus = "pending"

	// TaskRunning means the orchestrator is executing the task.
	TaskRunning TaskStatus = "running"

	// TaskCompleted means the run finished and produced at least one link.
	TaskCompleted TaskStatus = "completed"

	// TaskFailed means the run ended without a usable result.
	TaskFailed TaskStatus = "failed"
)

// IsTerminal reports whether the status is one of the absorbing end states.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// CanTransition reports whether moving from s to next is a legal step in the
// task state machine.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	switch s {
	case TaskPending:
		return next == TaskRunning
	case TaskRunning:
		return next == TaskCompleted || next == TaskFailed
	default:
		return false
	}
}

// CrawlMode selects which board listing a crawl walks.
type CrawlMode string

const (
	// ModeNormal walks the paginated board index.
	ModeNormal CrawlMode = "normal"

	// ModeHot walks the heat-ordered listing. Only valid for themes whose
	// board supports heat ordering.
	ModeHot CrawlMode = "hot"
)

// CrawlParams are the caller-supplied parameters of one crawl.
// The same shape is used by ad-hoc tasks and scheduled definitions; scheduled
// definitions omit the proxy, which is resolved at execution time from the
// global setting.
type CrawlParams struct {
	// ThemeID identifies the board to crawl.
	ThemeID string

	// Mode selects the normal or heat-ordered listing.
	Mode CrawlMode

	// StartPage and EndPage bound the inclusive index page range.
	// StartPage must not exceed EndPage.
	StartPage int
	EndPage   int

	// Proxy is the outbound proxy URL for this run. Empty means direct.
	Proxy string
}

// CrawlTask is one ad-hoc or scheduled crawl invocation. It is owned
// exclusively by the registry that created it and lives until explicit
// deletion or process exit.
//
// Mutable fields are only written through the registry, which serializes
// access; a CrawlTask value handed out by the registry is a snapshot.
type CrawlTask struct {
	// ID is an opaque, generation-ordered task identifier.
	ID string

	// Params are the crawl parameters, fixed at creation.
	Params CrawlParams

	// Status is the current lifecycle state.
	Status TaskStatus

	// Progress is the completion percentage in [0, 100].
	Progress int

	// TotalLinks is the number of topic pages discovered so far. It grows
	// as index pages are processed, so it is an estimate until the run ends.
	TotalLinks int

	// FoundLinks is the number of unique magnet links aggregated so far.
	FoundLinks int

	// ErrorMessage holds the human-readable failure reason for failed tasks.
	ErrorMessage string

	// StartTime and EndTime bracket the run. Nil until the corresponding
	// transition happens.
	StartTime *time.Time
	EndTime   *time.Time

	// Log is the append-only sequence of timestamped run log lines.
	Log []string

	// OutputFile is the path of the persisted link artifact. Set when the
	// task completes.
	OutputFile string
}
