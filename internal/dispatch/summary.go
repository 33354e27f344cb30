package dispatch

import (
	"math"
	"time"

	"comanda/internal/store"
)

// Summary is the derived state of a batch. It is never stored.
type Summary struct {
	Total   int
	OK      int
	Error   int
	Pending int // includes LEASED
	// LastError is the first error message found in batch order.
	LastError string
	Status    store.JobStatus
}

// Summarize folds the jobs of one batch into a Summary.
// The batch is ERROR if any job failed for good, OK once every job printed,
// and PENDING otherwise.
func Summarize(jobs []store.PrintJob) Summary {
	s := Summary{Total: len(jobs)}

	for _, j := range jobs {
		switch j.Status {
		case store.JobStatusOK:
			s.OK++
		case store.JobStatusError:
			s.Error++
		default:
			s.Pending++
		}
		if s.LastError == "" && j.LastError != nil {
			s.LastError = *j.LastError
		}
	}

	switch {
	case s.Error > 0:
		s.Status = store.JobStatusError
	case s.Total > 0 && s.OK == s.Total:
		s.Status = store.JobStatusOK
	default:
		s.Status = store.JobStatusPending
	}
	return s
}

// maxBackoffShift keeps base << shift from overflowing.
const maxBackoffShift = 30

// Backoff returns the delay before the next attempt of a job that has been
// tried attempts times: base * 2^(attempts-1).
func Backoff(base time.Duration, attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	shift := attempts - 1
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}

	d := base << uint(shift)
	if d>>uint(shift) != base {
		return time.Duration(math.MaxInt64)
	}
	return d
}
