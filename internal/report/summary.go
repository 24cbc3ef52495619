package report

import (
	"time"

	"github.com/magharvest/magharvest/internal/model"
)

// Summary is the report view of one crawl run. It is derived from a task
// snapshot at reporting time and carries everything the writers need, so no
// writer reaches back into live registry state.
type Summary struct {
	// TaskID identifies the run.
	TaskID string `json:"task_id"`

	// ThemeID and ThemeName identify the crawled board. ThemeName is empty
	// when the id is no longer in the catalog.
	ThemeID   string `json:"theme_id"`
	ThemeName string `json:"theme_name,omitempty"`

	// Mode is the crawl mode, normal or hot.
	Mode string `json:"mode"`

	// StartPage and EndPage are the inclusive crawled page range.
	StartPage int `json:"start_page"`
	EndPage   int `json:"end_page"`

	// Status is the task's terminal (or current) status.
	Status string `json:"status"`

	// Progress is the last reported completion percentage.
	Progress int `json:"progress"`

	// LinkCount is the number of unique magnet links found.
	LinkCount int `json:"link_count"`

	// OutputFile is the result artifact path, empty unless completed.
	OutputFile string `json:"output_file,omitempty"`

	// Error is the failure message, empty unless failed.
	Error string `json:"error,omitempty"`

	// StartedAt and FinishedAt bound the run. Nil when the run has not
	// reached that point.
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Log is the task's append-only run log.
	Log []string `json:"log,omitempty"`
}

// NewSummary builds a Summary from a task snapshot.
func NewSummary(task model.CrawlTask) *Summary {
	s := &Summary{
		TaskID:     task.ID,
		ThemeID:    task.Params.ThemeID,
		Mode:       string(task.Params.Mode),
		StartPage:  task.Params.StartPage,
		EndPage:    task.Params.EndPage,
		Status:     string(task.Status),
		Progress:   task.Progress,
		LinkCount:  task.FoundLinks,
		OutputFile: task.OutputFile,
		Error:      task.ErrorMessage,
		StartedAt:  task.StartTime,
		FinishedAt: task.EndTime,
		Log:        task.Log,
	}
	if theme, ok := model.ThemeByID(task.Params.ThemeID); ok {
		s.ThemeName = theme.Name
	}
	return s
}

// Duration returns the run's elapsed time, zero until the run has both
// endpoints.
func (s *Summary) Duration() time.Duration {
	if s.StartedAt == nil || s.FinishedAt == nil {
		return 0
	}
	return s.FinishedAt.Sub(*s.StartedAt)
}
