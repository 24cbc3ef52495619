package crawl

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/magharvest/magharvest/internal/model"
)

// Registry validation and lookup errors.
var (
	// ErrTaskNotFound is returned when a task id is unknown.
	ErrTaskNotFound = errors.New("task not found")

	// ErrUnknownTheme is returned when the theme id is not in the catalog.
	ErrUnknownTheme = errors.New("unknown theme id")

	// ErrHotModeUnsupported is returned when hot mode is requested for a
	// theme without a heat-ordered listing.
	ErrHotModeUnsupported = errors.New("theme does not support hot mode")

	// ErrInvalidPageRange is returned when start_page exceeds end_page or
	// either is not positive.
	ErrInvalidPageRange = errors.New("invalid page range")
)

// Registry is the in-memory store of ad-hoc crawl tasks. It is mutated from
// multiple goroutines (run loops, completion paths, delete requests), so
// every read-modify-write goes through its mutex; callers only ever see
// snapshots.
//
// Design decision: Explicit state owned by the service object rather than a
// package-level map, so lifetime and locking are injected and visible.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*model.CrawlTask
	order []string
	seq   int
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*model.CrawlTask)}
}

// ValidateParams rejects bad crawl parameters before any run begins.
func ValidateParams(p model.CrawlParams) error {
	theme, ok := model.ThemeByID(p.ThemeID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTheme, p.ThemeID)
	}
	if p.Mode == model.ModeHot && !theme.SupportsHot() {
		return fmt.Errorf("%w: %q", ErrHotModeUnsupported, p.ThemeID)
	}
	if p.StartPage < 1 || p.EndPage < 1 || p.StartPage > p.EndPage {
		return fmt.Errorf("%w: [%d, %d]", ErrInvalidPageRange, p.StartPage, p.EndPage)
	}
	return nil
}

// Create validates the parameters and registers a new pending task.
// Task ids carry a monotonic sequence number; the registry remembers the
// creation order itself, since the textual ids do not sort numerically.
func (r *Registry) Create(p model.CrawlParams) (model.CrawlTask, error) {
	if err := ValidateParams(p); err != nil {
		return model.CrawlTask{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	task := &model.CrawlTask{
		ID:     fmt.Sprintf("task_%d_%d", r.seq, time.Now().Unix()),
		Params: p,
		Status: model.TaskPending,
	}
	r.tasks[task.ID] = task
	r.order = append(r.order, task.ID)
	return *task, nil
}

// Get returns a snapshot of the task with the given id.
func (r *Registry) Get(id string) (model.CrawlTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return model.CrawlTask{}, fmt.Errorf("%w: %q", ErrTaskNotFound, id)
	}
	return snapshot(task), nil
}

// List returns snapshots of all tasks in creation order.
func (r *Registry) List() []model.CrawlTask {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.CrawlTask, 0, len(r.tasks))
	for _, id := range r.order {
		out = append(out, snapshot(r.tasks[id]))
	}
	return out
}

// Delete removes the task record and its output artifact. Deleting a running
// task is permitted; the in-flight run keeps going and its later updates
// become no-ops.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrTaskNotFound, id)
	}
	delete(r.tasks, id)
	for i, ordered := range r.order {
		if ordered == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	if task.OutputFile != "" {
		if err := os.Remove(task.OutputFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove artifact: %w", err)
		}
	}
	return nil
}

// markRunning transitions pending → running and stamps the start time.
func (r *Registry) markRunning(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrTaskNotFound, id)
	}
	if !task.Status.CanTransition(model.TaskRunning) {
		return fmt.Errorf("task %s cannot start from status %s", id, task.Status)
	}
	now := time.Now()
	task.Status = model.TaskRunning
	task.StartTime = &now
	return nil
}

// setProgress updates the task's progress counters. Last write wins;
// a deleted task is silently ignored.
func (r *Registry) setProgress(id string, progress, total, found int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return
	}
	task.Progress = progress
	task.TotalLinks = total
	task.FoundLinks = found
}

// appendLog appends a timestamped line to the task's run log.
func (r *Registry) appendLog(id, level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return
	}
	line := fmt.Sprintf("[%s] %s: %s", time.Now().Format("2006-01-02 15:04:05"), level, message)
	task.Log = append(task.Log, line)
}

// complete transitions running → completed with the final result.
func (r *Registry) complete(id, outputFile string, found int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok || !task.Status.CanTransition(model.TaskCompleted) {
		return
	}
	now := time.Now()
	task.Status = model.TaskCompleted
	task.Progress = 100
	task.FoundLinks = found
	task.OutputFile = outputFile
	task.EndTime = &now
}

// fail transitions the task to failed with a descriptive message.
// A pending task that never started (session setup failed) moves through
// running implicitly so the terminal state is always reachable.
func (r *Registry) fail(id, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok || task.Status.IsTerminal() {
		return
	}
	now := time.Now()
	task.Status = model.TaskFailed
	task.ErrorMessage = message
	task.EndTime = &now
}

// snapshot copies a task so callers never share the registry's mutable state.
func snapshot(task *model.CrawlTask) model.CrawlTask {
	out := *task
	if task.StartTime != nil {
		t := *task.StartTime
		out.StartTime = &t
	}
	if task.EndTime != nil {
		t := *task.EndTime
		out.EndTime = &t
	}
	out.Log = append([]string(nil), task.Log...)
	return out
}
