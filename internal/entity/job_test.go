package entity

import "testing"

func TestParseJobStatus(t *testing.T) {
	for _, s := range []string{"queued", "processing", "completed", "failed", "max_retries"} {
		got, err := ParseJobStatus(s)
		if err != nil {
			t.Fatalf("ParseJobStatus(%q): %v", s, err)
		}
		if string(got) != s {
			t.Fatalf("ParseJobStatus(%q) = %q", s, got)
		}
	}
	if _, err := ParseJobStatus("cancelled"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestJobStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to JobStatus
		want     bool
	}{
		{StatusQueued, StatusProcessing, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusProcessing, StatusMaxRetries, true},
		{StatusProcessing, StatusQueued, true},
		{StatusFailed, StatusProcessing, true},
		{StatusMaxRetries, StatusProcessing, true},

		{StatusQueued, StatusCompleted, false},
		{StatusQueued, StatusFailed, false},
		{StatusFailed, StatusQueued, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusCompleted, StatusQueued, false},
		{StatusMaxRetries, StatusQueued, false},
	}
	for _, tc := range cases {
		if got := IsTransitionAllowed(tc.from, tc.to); got != tc.want {
			t.Errorf("IsTransitionAllowed(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for _, tc := range []struct {
		status JobStatus
		want   bool
	}{
		{StatusQueued, false},
		{StatusProcessing, false},
		{StatusFailed, false},
		{StatusCompleted, true},
		{StatusMaxRetries, true},
	} {
		if got := IsTerminal(tc.status); got != tc.want {
			t.Errorf("IsTerminal(%s) = %v, want %v", tc.status, got, tc.want)
		}
	}
}
