package dispatch

import (
	"testing"
	"time"

	"comanda/internal/store"
)

func job(status store.JobStatus, lastError string) store.PrintJob {
	j := store.PrintJob{Status: status}
	if lastError != "" {
		j.LastError = &lastError
	}
	return j
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		jobs []store.PrintJob
		want Summary
	}{
		{
			name: "empty batch",
			jobs: nil,
			want: Summary{Status: store.JobStatusPending},
		},
		{
			name: "leased counts as pending",
			jobs: []store.PrintJob{job(store.JobStatusOK, ""), job(store.JobStatusLeased, ""), job(store.JobStatusPending, "")},
			want: Summary{Total: 3, OK: 1, Pending: 2, Status: store.JobStatusPending},
		},
		{
			name: "all printed",
			jobs: []store.PrintJob{job(store.JobStatusOK, ""), job(store.JobStatusOK, ""), job(store.JobStatusOK, "")},
			want: Summary{Total: 3, OK: 3, Status: store.JobStatusOK},
		},
		{
			name: "retrying",
			jobs: []store.PrintJob{job(store.JobStatusOK, ""), job(store.JobStatusOK, ""), job(store.JobStatusPending, "paper jam")},
			want: Summary{Total: 3, OK: 2, Pending: 1, LastError: "paper jam", Status: store.JobStatusPending},
		},
		{
			name: "any error fails the batch",
			jobs: []store.PrintJob{job(store.JobStatusOK, ""), job(store.JobStatusError, "offline"), job(store.JobStatusPending, "reclaimed after timeout")},
			want: Summary{Total: 3, OK: 1, Error: 1, Pending: 1, LastError: "offline", Status: store.JobStatusError},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summarize(tt.jobs); got != tt.want {
				t.Errorf("Summarize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBackoff(t *testing.T) {
	base := 2 * time.Second

	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 2 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{5, 32 * time.Second},
	}
	for _, tt := range tests {
		if got := Backoff(base, tt.attempts); got != tt.want {
			t.Errorf("Backoff(%v, %d) = %v, want %v", base, tt.attempts, got, tt.want)
		}
	}
}

func TestBackoff_Monotonic(t *testing.T) {
	for _, base := range []time.Duration{time.Millisecond, 2 * time.Second, time.Hour} {
		prev := time.Duration(0)
		for attempts := 1; attempts <= 100; attempts++ {
			d := Backoff(base, attempts)
			if d < prev {
				t.Fatalf("base %v: Backoff(%d) = %v is less than previous %v", base, attempts, d, prev)
			}
			if d <= 0 {
				t.Fatalf("base %v: Backoff(%d) overflowed to %v", base, attempts, d)
			}
			prev = d
		}
	}
}
