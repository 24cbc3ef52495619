package model

import "testing"

// TestTaskStatusTransitions tests the crawl task state machine.
func TestTaskStatusTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from TaskStatus
		to   TaskStatus
		want bool
	}{
		{name: "pending to running", from: TaskPending, to: TaskRunning, want: true},
		{name: "running to completed", from: TaskRunning, to: TaskCompleted, want: true},
		{name: "running to failed", from: TaskRunning, to: TaskFailed, want: true},
		{name: "pending to completed skips running", from: TaskPending, to: TaskCompleted, want: false},
		{name: "pending to failed skips running", from: TaskPending, to: TaskFailed, want: false},
		{name: "completed is absorbing", from: TaskCompleted, to: TaskRunning, want: false},
		{name: "failed is absorbing", from: TaskFailed, to: TaskRunning, want: false},
		{name: "completed cannot fail", from: TaskCompleted, to: TaskFailed, want: false},
		{name: "running cannot revert to pending", from: TaskRunning, to: TaskPending, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

// TestTaskStatusIsTerminal tests terminal state classification.
func TestTaskStatusIsTerminal(t *testing.T) {
	t.Parallel()

	terminal := map[TaskStatus]bool{
		TaskPending:   false,
		TaskRunning:   false,
		TaskCompleted: true,
		TaskFailed:    true,
	}
	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", status, got, want)
		}
	}
}
