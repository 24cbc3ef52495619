package crawl

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/magharvest/magharvest/internal/model"
)

func validParams() model.CrawlParams {
	return model.CrawlParams{
		ThemeID:   "36",
		Mode:      model.ModeNormal,
		StartPage: 1,
		EndPage:   2,
	}
}

// TestValidateParams tests parameter validation.
func TestValidateParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*model.CrawlParams)
		wantErr error
	}{
		{
			name:   "valid params",
			mutate: func(*model.CrawlParams) {},
		},
		{
			name:    "unknown theme",
			mutate:  func(p *model.CrawlParams) { p.ThemeID = "999" },
			wantErr: ErrUnknownTheme,
		},
		{
			name: "hot mode on unsupported theme",
			mutate: func(p *model.CrawlParams) {
				p.ThemeID = "37"
				p.Mode = model.ModeHot
			},
			wantErr: ErrHotModeUnsupported,
		},
		{
			name: "hot mode on supported theme",
			mutate: func(p *model.CrawlParams) {
				p.ThemeID = "36"
				p.Mode = model.ModeHot
			},
		},
		{
			name: "start page after end page",
			mutate: func(p *model.CrawlParams) {
				p.StartPage = 3
				p.EndPage = 1
			},
			wantErr: ErrInvalidPageRange,
		},
		{
			name:    "zero start page",
			mutate:  func(p *model.CrawlParams) { p.StartPage = 0 },
			wantErr: ErrInvalidPageRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := validParams()
			tt.mutate(&p)

			err := ValidateParams(p)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestRegistry tests task lifecycle through the registry.
func TestRegistry(t *testing.T) {
	t.Parallel()

	t.Run("create registers a pending task", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		task, err := r.Create(validParams())
		if err != nil {
			t.Fatalf("failed to create task: %v", err)
		}
		if task.Status != model.TaskPending {
			t.Errorf("expected pending status, got %s", task.Status)
		}
		if task.ID == "" {
			t.Error("expected a non-empty task id")
		}

		got, err := r.Get(task.ID)
		if err != nil {
			t.Fatalf("failed to get task: %v", err)
		}
		if got.ID != task.ID {
			t.Errorf("expected task %s, got %s", task.ID, got.ID)
		}
	})

	t.Run("create rejects invalid params", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		p := validParams()
		p.ThemeID = "999"
		if _, err := r.Create(p); !errors.Is(err, ErrUnknownTheme) {
			t.Errorf("expected ErrUnknownTheme, got %v", err)
		}
		if len(r.List()) != 0 {
			t.Error("invalid task must not be registered")
		}
	})

	t.Run("get unknown id", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		if _, err := r.Get("task_1_0"); !errors.Is(err, ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound, got %v", err)
		}
	})

	t.Run("list returns tasks in creation order", func(t *testing.T) {
		t.Parallel()

		// Past nine tasks the sequence becomes two digits, so the ids no
		// longer sort lexicographically (task_10 < task_2). Creation order
		// must still hold.
		r := NewRegistry()
		var created []string
		for i := 0; i < 11; i++ {
			task, err := r.Create(validParams())
			if err != nil {
				t.Fatalf("failed to create task %d: %v", i, err)
			}
			created = append(created, task.ID)
		}

		got := r.List()
		if len(got) != len(created) {
			t.Fatalf("expected %d tasks, got %d", len(created), len(got))
		}
		for i, task := range got {
			if task.ID != created[i] {
				t.Errorf("position %d: expected %s, got %s", i, created[i], task.ID)
			}
		}
	})

	t.Run("list keeps creation order after delete", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		first, _ := r.Create(validParams())
		second, _ := r.Create(validParams())
		third, _ := r.Create(validParams())

		if err := r.Delete(second.ID); err != nil {
			t.Fatal(err)
		}

		got := r.List()
		if len(got) != 2 {
			t.Fatalf("expected 2 tasks, got %d", len(got))
		}
		if got[0].ID != first.ID || got[1].ID != third.ID {
			t.Errorf("expected order [%s %s], got [%s %s]", first.ID, third.ID, got[0].ID, got[1].ID)
		}
	})

	t.Run("delete removes record and artifact", func(t *testing.T) {
		t.Parallel()

		artifact := filepath.Join(t.TempDir(), "result.txt")
		if err := os.WriteFile(artifact, []byte("magnet:?xt=urn:btih:x\n"), 0o600); err != nil {
			t.Fatal(err)
		}

		r := NewRegistry()
		task, _ := r.Create(validParams())
		if err := r.markRunning(task.ID); err != nil {
			t.Fatal(err)
		}
		r.complete(task.ID, artifact, 1)

		if err := r.Delete(task.ID); err != nil {
			t.Fatalf("failed to delete task: %v", err)
		}
		if _, err := r.Get(task.ID); !errors.Is(err, ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound after delete, got %v", err)
		}
		if _, err := os.Stat(artifact); !os.IsNotExist(err) {
			t.Error("expected artifact to be removed")
		}
	})

	t.Run("delete unknown id", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		if err := r.Delete("task_9_0"); !errors.Is(err, ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound, got %v", err)
		}
	})

	t.Run("updates after delete are no-ops", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		task, _ := r.Create(validParams())
		if err := r.markRunning(task.ID); err != nil {
			t.Fatal(err)
		}
		if err := r.Delete(task.ID); err != nil {
			t.Fatal(err)
		}

		// The in-flight run keeps reporting; nothing must resurrect the task.
		r.setProgress(task.ID, 50, 10, 3)
		r.appendLog(task.ID, "INFO", "still running")
		r.complete(task.ID, "", 3)
		if len(r.List()) != 0 {
			t.Error("expected no tasks after delete")
		}
	})

	t.Run("completed task cannot restart", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		task, _ := r.Create(validParams())
		if err := r.markRunning(task.ID); err != nil {
			t.Fatal(err)
		}
		r.complete(task.ID, "", 5)

		if err := r.markRunning(task.ID); err == nil {
			t.Error("expected restart of a completed task to fail")
		}
		got, _ := r.Get(task.ID)
		if got.Status != model.TaskCompleted {
			t.Errorf("expected completed status, got %s", got.Status)
		}
		if got.EndTime == nil {
			t.Error("expected end time to be set")
		}
	})

	t.Run("fail records message and end time", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		task, _ := r.Create(validParams())
		if err := r.markRunning(task.ID); err != nil {
			t.Fatal(err)
		}
		r.fail(task.ID, "no magnet links found")

		got, _ := r.Get(task.ID)
		if got.Status != model.TaskFailed {
			t.Errorf("expected failed status, got %s", got.Status)
		}
		if got.ErrorMessage != "no magnet links found" {
			t.Errorf("unexpected error message %q", got.ErrorMessage)
		}
		if got.EndTime == nil {
			t.Error("expected end time to be set")
		}
	})
}
