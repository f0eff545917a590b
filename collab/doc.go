// Package collab orchestrates multi-agent workflows on top of the bus.
//
// A collaboration is a fixed list of task flow steps worked by a set of
// participants selected from the directory by capability. Matching uses OR
// semantics: an agent qualifies if it holds at least one of the required
// capabilities. A request that cannot fill the participant count fails
// synchronously and stores nothing.
//
// Participants report progress through UpdateStatus. Step reports are
// idempotent, shared context merges last-writer-wins per key, and each
// report is re-broadcast to the other participants as a StatusUpdate — there
// is no direct peer-to-peer visibility into the record. When every step has
// been reported the record transitions to Completed and all participants
// receive a CompletionNotice with the aggregated results. Status transitions
// only move forward.
//
// Records live in memory for the life of the process; nothing evicts them.
package collab
