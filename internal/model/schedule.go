package model

import "time"

// ScheduleKind selects how a scheduled task's next fire time is computed.
type ScheduleKind string

const (
	// ScheduleDaily fires once a day at a fixed "HH:MM" time.
	ScheduleDaily ScheduleKind = "daily"

	// ScheduleWeekly fires once a week. The value is either "D" or
	// "D:HH:MM" where D is a weekday index in [0, 6] following Go's
	// time.Weekday numbering (Sunday = 0). The time defaults to 09:00.
	ScheduleWeekly ScheduleKind = "weekly"

	// ScheduleInterval fires every fixed number of minutes, anchored on the
	// previous run when one exists.
	ScheduleInterval ScheduleKind = "interval"
)

// ScheduledTask is a persisted recurring crawl definition. It is owned by the
// scheduler, survives restarts through the definition store, and is mutated
// only via explicit add/update/enable/disable operations.
//
// The JSON tags fix the on-disk document format; reload must reconstruct
// every field, and absent optional timestamps stay nil.
type ScheduledTask struct {
	// ID is an opaque definition identifier.
	ID string `json:"task_id"`

	// Name is the user-facing label.
	Name string `json:"name"`

	// Crawl parameters. The proxy is deliberately absent: scheduled runs
	// resolve it from the global proxy setting at execution time.
	ThemeID   string    `json:"theme_id"`
	Mode      CrawlMode `json:"mode"`
	StartPage int       `json:"start_page"`
	EndPage   int       `json:"end_page"`

	// Kind and Value encode the recurrence rule.
	Kind  ScheduleKind `json:"schedule_type"`
	Value string       `json:"schedule_value"`

	// Enabled gates the poll loop. Disabled definitions are never due.
	Enabled bool `json:"enabled"`

	// LastRunAt is when the previous execution finished, nil before the
	// first run. NextRunAt is the computed next fire time, nil until the
	// first evaluation.
	LastRunAt *time.Time `json:"last_run"`
	NextRunAt *time.Time `json:"next_run"`

	// RunCount increments once per completed or failed execution attempt.
	RunCount int `json:"run_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Params returns the definition's crawl parameters with the given proxy
// resolved in.
func (s *ScheduledTask) Params(proxy string) CrawlParams {
	return CrawlParams{
		ThemeID:   s.ThemeID,
		Mode:      s.Mode,
		StartPage: s.StartPage,
		EndPage:   s.EndPage,
		Proxy:     proxy,
	}
}

// Clone returns a deep copy of the definition. The scheduler hands out
// clones so callers never observe in-place mutation.
func (s *ScheduledTask) Clone() *ScheduledTask {
	out := *s
	if s.LastRunAt != nil {
		t := *s.LastRunAt
		out.LastRunAt = &t
	}
	if s.NextRunAt != nil {
		t := *s.NextRunAt
		out.NextRunAt = &t
	}
	return &out
}
