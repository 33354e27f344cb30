package store

import (
	"fmt"
	"time"
)

// JobStatus represents the state of a print job.
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusLeased  JobStatus = "LEASED"
	JobStatusOK      JobStatus = "OK"
	JobStatusError   JobStatus = "ERROR"
)

// ReclaimReason is recorded on jobs whose lease expired.
const ReclaimReason = "reclaimed after timeout"

// ExhaustedReason is recorded on pending jobs healed into ERROR.
const ExhaustedReason = "max attempts exceeded"

// Transition is one edge of the print job state machine.
// Stores write the status column only through a Transition, always as a
// conditional update on the From status.
type Transition int

const (
	// TransitionClaim leases a pending job to a bridge and counts an attempt.
	TransitionClaim Transition = iota + 1
	// TransitionAck marks a leased job as printed.
	TransitionAck
	// TransitionRetry returns a failed job to the queue with a backoff delay.
	TransitionRetry
	// TransitionExhaust marks a failed job without attempts left as terminal.
	TransitionExhaust
	// TransitionReclaim returns a job whose lease expired to the queue.
	TransitionReclaim
	// TransitionHeal marks a pending job that has no attempts left as terminal.
	TransitionHeal
)

var transitionEdges = map[Transition][2]JobStatus{
	TransitionClaim:   {JobStatusPending, JobStatusLeased},
	TransitionAck:     {JobStatusLeased, JobStatusOK},
	TransitionRetry:   {JobStatusLeased, JobStatusPending},
	TransitionExhaust: {JobStatusLeased, JobStatusError},
	TransitionReclaim: {JobStatusLeased, JobStatusPending},
	TransitionHeal:    {JobStatusPending, JobStatusError},
}

var transitionNames = map[Transition]string{
	TransitionClaim:   "claim",
	TransitionAck:     "ack",
	TransitionRetry:   "retry",
	TransitionExhaust: "exhaust",
	TransitionReclaim: "reclaim",
	TransitionHeal:    "heal",
}

// From is the status a job must hold for the transition to apply.
func (t Transition) From() JobStatus { return transitionEdges[t][0] }

// To is the status the job holds afterwards.
func (t Transition) To() JobStatus { return transitionEdges[t][1] }

func (t Transition) String() string {
	if n, ok := transitionNames[t]; ok {
		return n
	}
	return fmt.Sprintf("transition(%d)", int(t))
}

// OwnerGuarded reports whether the transition requires the caller to hold the lease.
func (t Transition) OwnerGuarded() bool {
	return t == TransitionAck || t == TransitionRetry || t == TransitionExhaust
}

// TransitionInput carries the values a transition writes besides the status.
type TransitionInput struct {
	// Owner is the bridge taking the lease (claim) or holding it (ack, retry, exhaust).
	Owner string
	// At is the time of the transition.
	At time.Time
	// NextAttemptAt is when a retried job becomes claimable again.
	NextAttemptAt time.Time
	// Error is the failure reason recorded by retry and exhaust.
	Error string
}

// CanApply reports whether t may be applied to job given in.
func (t Transition) CanApply(job *PrintJob, in TransitionInput) bool {
	if _, ok := transitionEdges[t]; !ok {
		return false
	}
	if job.Status != t.From() {
		return false
	}
	if t.OwnerGuarded() && !job.LeasedBy(in.Owner) {
		return false
	}
	if t == TransitionClaim && job.Exhausted() {
		return false
	}
	if t == TransitionHeal && !job.Exhausted() {
		return false
	}
	return true
}

// Apply performs the transition on job in place. It returns false and leaves
// job untouched when the guard does not hold. The postgres store encodes the
// same rules in SQL; this is the in-process rendition.
func (t Transition) Apply(job *PrintJob, in TransitionInput) bool {
	if !t.CanApply(job, in) {
		return false
	}

	switch t {
	case TransitionClaim:
		owner := in.Owner
		at := in.At
		job.Attempts++
		job.LeaseOwner = &owner
		job.LeasedAt = &at
	case TransitionAck:
		job.LeaseOwner = nil
		job.LeasedAt = nil
		job.LastError = nil
	case TransitionRetry:
		msg := in.Error
		job.LeaseOwner = nil
		job.LeasedAt = nil
		job.NextAttemptAt = in.NextAttemptAt
		job.LastError = &msg
	case TransitionExhaust:
		msg := in.Error
		job.LeaseOwner = nil
		job.LeasedAt = nil
		job.LastError = &msg
	case TransitionReclaim:
		msg := ReclaimReason
		job.LeaseOwner = nil
		job.LeasedAt = nil
		job.LastError = &msg
	case TransitionHeal:
		if job.LastError == nil {
			msg := ExhaustedReason
			job.LastError = &msg
		}
	}

	job.Status = t.To()
	job.UpdatedAt = in.At
	return true
}
