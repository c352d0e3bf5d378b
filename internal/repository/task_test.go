package repository

import (
	"testing"

	"taskkeeper/internal/domain"
)

func TestTaskPatchEmpty(t *testing.T) {
	title := "x"
	priority := 0
	status := domain.TaskStatusDone

	tests := []struct {
		name  string
		patch TaskPatch
		want  bool
	}{
		{name: "zero value", patch: TaskPatch{}, want: true},
		{name: "title", patch: TaskPatch{Title: &title}, want: false},
		{name: "zero priority still counts", patch: TaskPatch{Priority: &priority}, want: false},
		{name: "status", patch: TaskPatch{Status: &status}, want: false},
	}

	for _, tc := range tests {
		if got := tc.patch.Empty(); got != tc.want {
			t.Fatalf("%s: Empty() = %v, want %v", tc.name, got, tc.want)
		}
	}
}
