// Package batch runs lists of independent tasks against a remote operation with a
// bounded number of concurrent invocations.
//
// A Runner owns the scheduling of one batch at a time over a caller-owned task slice.
// Key features:
//   - FIFO dequeue in input order with a fixed set of worker loops (slots refill as
//     soon as a task settles)
//   - Per-task lifecycle tracking (pending, running, success, failed) with attempt counts
//   - Partial-failure isolation: a failing invocation never aborts the batch
//   - Selective retry of a single failed task or of every failed task, sequentially
//     with a configurable delay between retries
//   - Status, summary and progress callbacks for UI refresh
//   - Context-aware cancellation that still leaves every task in a terminal state
//
// Callers read task fields directly only while no Run or retry is in flight. During a
// run, the status callback delivers immutable Event values instead.
package batch
