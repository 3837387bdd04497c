// Package workers implements the bounded pool that runs diagnostic sessions.
//
// The pool manages a fixed number of goroutines that:
//   - Pull jobs from an unbounded FIFO queue, so Submit never blocks the caller
//   - Run each job to completion, recovering panics
//   - Drain the queue with a cancelled context on shutdown
//
// The health monitor periodically logs pool occupancy and session counts and
// exports them as metrics.
package workers
