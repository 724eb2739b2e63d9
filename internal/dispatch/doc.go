// Package dispatch runs detached terraform executions on a bounded worker pool.
//
// Submissions never queue: when every worker is busy Submit returns
// ErrSaturated and the caller reports back-pressure. Accepted tasks run under a
// context that is detached from the submitting request so a client that hangs
// up after receiving 202 does not abort terraform mid-apply.
//
// Shutdown handling:
//   - Close stops accepting new work
//   - Wait blocks until every accepted task has finished
package dispatch
