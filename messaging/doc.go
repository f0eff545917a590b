// Package messaging provides the message primitives exchanged between agents.
//
// A Message is an immutable envelope: routing identifiers, a kind drawn from
// a closed enum, a free-form payload whose interpretation depends on the
// kind, and correlation metadata linking requests to responses or to the
// collaboration they belong to.
//
// # Message Kinds
//
//   - TaskRequest: asks the recipient to execute a task
//   - TaskResponse: carries a task result back, correlated by request ID
//   - CollaborationRequest: invites the recipient into a collaboration
//   - StatusUpdate: progress report, merged into the recipient's memory
//   - ResourceShare: shares data into the recipient's memory
//   - ErrorNotification: reports a failure to the recipient
//   - CompletionNotice: announces a finished collaboration with final results
//
// # Construction
//
// Messages are built with a fluent builder:
//
//	msg := messaging.NewTaskRequest("sales", "analytics", task).
//	    Priority(messaging.PriorityHigh).
//	    RequiresResponse(true).
//	    Build()
//
// IDs are UUIDv7, so they sort by creation time.
//
// # Priority and Expiry
//
// Priority is carried as metadata for handlers; the bus delivers in FIFO
// order regardless of priority. ExpiresAt, when set, is enforced by the
// dispatch loop: expired messages are dropped before routing.
package messaging
