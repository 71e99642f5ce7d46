package service

import (
	"fmt"
	"time"
)

// SubmissionError reports a job request the analysis service rejected
// (bad input reference, quota, malformed options). Submission is never
// retried; the caller decides what to do.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("job submission rejected: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// JobFailedError reports a job that reached the FAILED state. Reason is
// the opaque string the service attached to the failure.
type JobFailedError struct {
	Reason string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("job failed: %s", e.Reason)
}

// TimeoutError reports that the local wait exceeded the configured bound.
// The remote job is left running; the protocol has no cancel operation.
type TimeoutError struct {
	Waited time.Duration
	Polls  int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("job did not complete within %s (%d polls)", e.Waited, e.Polls)
}

// ProtocolError reports behavior the service must never exhibit: a status
// transition out of the monotonic chain, an unknown status value, or a
// continuation-token chain that exceeds the configured page bound.
type ProtocolError struct {
	From   JobStatus
	To     JobStatus
	Reason string
}

func (e *ProtocolError) Error() string {
	if e.Reason != "" {
		return "protocol violation: " + e.Reason
	}
	return fmt.Sprintf("protocol violation: status transition %s -> %s", e.From, e.To)
}

// InvalidStateError reports an operation invoked out of sequence, such as
// collecting pages for a job that has not succeeded.
type InvalidStateError struct {
	Status JobStatus
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("operation not valid in job state %s", e.Status)
}
