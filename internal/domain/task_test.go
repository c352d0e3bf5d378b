package domain

import "testing"

func TestParseTaskStatus(t *testing.T) {
	tests := []struct {
		raw     string
		want    TaskStatus
		wantErr bool
	}{
		{raw: "pending", want: TaskStatusPending},
		{raw: "done", want: TaskStatusDone},
		{raw: "DONE", wantErr: true},
		{raw: "", wantErr: true},
		{raw: "archived", wantErr: true},
	}

	for _, tc := range tests {
		got, err := ParseTaskStatus(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseTaskStatus(%q) error = nil, want error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseTaskStatus(%q): %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("ParseTaskStatus(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
