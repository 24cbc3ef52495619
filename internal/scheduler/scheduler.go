package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/magharvest/magharvest/internal/crawl"
	"github.com/magharvest/magharvest/internal/model"
)

// Scheduler errors.
var (
	// ErrDefinitionNotFound is returned when a definition id is unknown.
	ErrDefinitionNotFound = errors.New("scheduled task not found")

	// ErrAlreadyRunning is returned when a definition already has an
	// execution in flight.
	ErrAlreadyRunning = errors.New("scheduled task is already running")
)

// RunFunc executes one crawl for a due definition. The scheduler does the
// bookkeeping around it (last run, run count, reschedule, persist); the
// function only has to run the crawl and report its outcome.
type RunFunc func(ctx context.Context, def *model.ScheduledTask) error

// Scheduler owns the persisted definition set and the poll loop that fires
// due definitions. All mutation goes through its mutex; executions run on a
// bounded errgroup so a burst of due definitions cannot open arbitrarily
// many browser sessions at once.
type Scheduler struct {
	mu       sync.Mutex
	defs     map[string]*model.ScheduledTask
	inFlight map[string]bool

	store        *Store
	run          RunFunc
	group        *errgroup.Group
	pollInterval time.Duration
	clock        func() time.Time
	logger       *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithPollInterval sets the poll loop cadence.
func WithPollInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithMaxConcurrentRuns caps how many crawl executions may run at once.
func WithMaxConcurrentRuns(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.group.SetLimit(n)
		}
	}
}

// WithClock replaces the time source. Used by tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

// WithLogger sets the logger for scheduler diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// New creates a Scheduler over the given store and run function. A store
// that cannot be read is logged and treated as empty; the in-memory set is
// authoritative for the process lifetime and the next successful save
// repairs durability.
func New(store *Store, run RunFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		defs:         make(map[string]*model.ScheduledTask),
		inFlight:     make(map[string]bool),
		store:        store,
		run:          run,
		group:        &errgroup.Group{},
		pollInterval: 60 * time.Second,
		clock:        time.Now,
	}
	s.group.SetLimit(3)

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	defs, err := store.Load()
	if err != nil {
		s.logger.Warn("failed to load scheduled tasks, starting empty", "error", err)
	}
	for _, def := range defs {
		s.defs[def.ID] = def
	}
	return s
}

// Add validates and registers a new enabled definition, computes its first
// fire time, and persists the set. The proxy in params is ignored; scheduled
// runs resolve the global proxy at execution time.
func (s *Scheduler) Add(name string, params model.CrawlParams, kind model.ScheduleKind, value string) (*model.ScheduledTask, error) {
	params.Proxy = ""
	if err := crawl.ValidateParams(params); err != nil {
		return nil, err
	}
	if err := ValidateSchedule(kind, value); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	next := NextRun(kind, value, nil, now)
	def := &model.ScheduledTask{
		ID:        uuid.NewString(),
		Name:      name,
		ThemeID:   params.ThemeID,
		Mode:      params.Mode,
		StartPage: params.StartPage,
		EndPage:   params.EndPage,
		Kind:      kind,
		Value:     value,
		Enabled:   true,
		NextRunAt: &next,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.defs[def.ID] = def
	s.persistLocked()
	return def.Clone(), nil
}

// Patch is a partial update to a definition. Nil fields are left unchanged.
type Patch struct {
	Name      *string
	ThemeID   *string
	Mode      *model.CrawlMode
	StartPage *int
	EndPage   *int
	Kind      *model.ScheduleKind
	Value     *string
	Enabled   *bool
}

// Update applies the patch, revalidates the definition, recomputes the next
// fire time, and persists. Every update recomputes; even a bare enable may
// be working from a stale next_run.
func (s *Scheduler) Update(id string, patch Patch) (*model.ScheduledTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDefinitionNotFound, id)
	}

	updated := def.Clone()
	if patch.Name != nil {
		updated.Name = *patch.Name
	}
	if patch.ThemeID != nil {
		updated.ThemeID = *patch.ThemeID
	}
	if patch.Mode != nil {
		updated.Mode = *patch.Mode
	}
	if patch.StartPage != nil {
		updated.StartPage = *patch.StartPage
	}
	if patch.EndPage != nil {
		updated.EndPage = *patch.EndPage
	}
	if patch.Kind != nil {
		updated.Kind = *patch.Kind
	}
	if patch.Value != nil {
		updated.Value = *patch.Value
	}
	if patch.Enabled != nil {
		updated.Enabled = *patch.Enabled
	}

	if err := crawl.ValidateParams(updated.Params("")); err != nil {
		return nil, err
	}
	if err := ValidateSchedule(updated.Kind, updated.Value); err != nil {
		return nil, err
	}

	now := s.clock()
	next := NextRun(updated.Kind, updated.Value, updated.LastRunAt, now)
	updated.NextRunAt = &next
	updated.UpdatedAt = now

	s.defs[id] = updated
	s.persistLocked()
	return updated.Clone(), nil
}

// Enable turns a definition back on and recomputes its next fire time.
func (s *Scheduler) Enable(id string) (*model.ScheduledTask, error) {
	enabled := true
	return s.Update(id, Patch{Enabled: &enabled})
}

// Disable stops a definition from firing. An in-flight execution finishes.
func (s *Scheduler) Disable(id string) (*model.ScheduledTask, error) {
	enabled := false
	return s.Update(id, Patch{Enabled: &enabled})
}

// Delete removes a definition and persists the set.
func (s *Scheduler) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.defs[id]; !ok {
		return fmt.Errorf("%w: %q", ErrDefinitionNotFound, id)
	}
	delete(s.defs, id)
	s.persistLocked()
	return nil
}

// Get returns a copy of the definition with the given id.
func (s *Scheduler) Get(id string) (*model.ScheduledTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDefinitionNotFound, id)
	}
	return def.Clone(), nil
}

// List returns copies of all definitions, oldest first.
func (s *Scheduler) List() []*model.ScheduledTask {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.ScheduledTask, 0, len(s.defs))
	for _, def := range s.defs {
		out = append(out, def.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// RunNow fires a definition immediately, regardless of its next fire time or
// enabled state. Normal completion bookkeeping applies.
func (s *Scheduler) RunNow(ctx context.Context, id string) error {
	s.mu.Lock()
	def, ok := s.defs[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrDefinitionNotFound, id)
	}
	if s.inFlight[id] {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrAlreadyRunning, id)
	}
	s.inFlight[id] = true
	clone := def.Clone()
	s.mu.Unlock()

	s.launch(ctx, clone)
	return nil
}

// Wait blocks until all in-flight executions have finished.
func (s *Scheduler) Wait() error {
	return s.group.Wait()
}

// Start runs the poll loop until the context is cancelled, then waits for
// in-flight executions to drain.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "poll_interval", s.pollInterval, "definitions", len(s.List()))

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping, waiting for in-flight runs")
			if err := s.group.Wait(); err != nil {
				s.logger.Warn("run group reported error on drain", "error", err)
			}
			return ctx.Err()
		case <-ticker.C:
			s.dispatchDue(ctx)
		}
	}
}

// dispatchDue launches one execution for every due definition. A definition
// with an execution still in flight is skipped; runs never overlap and the
// cadence simply drifts.
func (s *Scheduler) dispatchDue(ctx context.Context) {
	s.mu.Lock()
	now := s.clock()
	var due []*model.ScheduledTask
	for id, def := range s.defs {
		if !def.Enabled || s.inFlight[id] {
			continue
		}
		if def.NextRunAt == nil {
			// First evaluation after load; compute lazily.
			next := NextRun(def.Kind, def.Value, def.LastRunAt, now)
			def.NextRunAt = &next
		}
		if def.NextRunAt.After(now) {
			continue
		}
		s.inFlight[id] = true
		due = append(due, def.Clone())
	}
	s.mu.Unlock()

	for _, def := range due {
		s.launch(ctx, def)
	}
}

// launch hands a claimed definition to the run group.
func (s *Scheduler) launch(ctx context.Context, def *model.ScheduledTask) {
	s.group.Go(func() error {
		s.execute(ctx, def)
		return nil
	})
}

// execute runs one crawl for the definition and records the outcome. Run
// errors are logged, never propagated; one failing definition must not stop
// the scheduler.
func (s *Scheduler) execute(ctx context.Context, def *model.ScheduledTask) {
	s.logger.Info("running scheduled task", "id", def.ID, "name", def.Name, "theme_id", def.ThemeID)

	if err := s.run(ctx, def); err != nil {
		s.logger.Error("scheduled run failed", "id", def.ID, "name", def.Name, "error", err)
	} else {
		s.logger.Info("scheduled run finished", "id", def.ID, "name", def.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inFlight, def.ID)

	current, ok := s.defs[def.ID]
	if !ok {
		// Deleted while running; nothing to reschedule.
		return
	}
	now := s.clock()
	current.LastRunAt = &now
	current.RunCount++
	next := NextRun(current.Kind, current.Value, current.LastRunAt, now)
	current.NextRunAt = &next
	s.persistLocked()
}

// persistLocked saves the definition set. Persistence failures are logged
// and otherwise ignored; the in-memory set stays authoritative and the next
// successful save repairs the file.
func (s *Scheduler) persistLocked() {
	tasks := make([]*model.ScheduledTask, 0, len(s.defs))
	for _, def := range s.defs {
		tasks = append(tasks, def)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})

	if err := s.store.Save(tasks); err != nil {
		s.logger.Warn("failed to persist scheduled tasks", "error", err)
	}
}
