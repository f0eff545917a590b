package bus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bizmesh-labs/agentbus/directory"
	"github.com/bizmesh-labs/agentbus/messaging"
)

// Memory key prefixes under which handlers store delivered payloads.
// Callers poll these keys to observe responses and shared data.
const (
	MemoryKeyResponse   = "response"      // response:<request id>
	MemoryKeyStatus     = "status"        // status:<sender id>
	MemoryKeyShared     = "shared"        // shared:<sender id>:<resource type>
	MemoryKeyError      = "error"         // error:<correlation or message id>
	MemoryKeyInvitation = "collaboration" // collaboration:<id>:invitation
)

func errUnroutableKind(kind messaging.Kind) error {
	return fmt.Errorf("no handler for message kind %q", kind)
}

// handleTaskRequest runs the task on the target agent. When the request
// demands a response, a TaskResponse correlated to the request id re-enters
// the queue with a status derived from the execution outcome.
func (b *Bus) handleTaskRequest(ctx context.Context, target directory.Agent, msg *messaging.Message) error {
	task, ok := msg.Payload["task"].(map[string]any)
	if !ok {
		task = msg.Payload
	}

	result, execErr := target.Execute(ctx, task)

	if msg.RequiresResponse {
		status := "completed"
		if execErr != nil || !result.Success {
			status = "failed"
		}

		payload := map[string]any{
			"status": status,
			"result": result.Data,
		}
		if execErr != nil {
			payload["error"] = execErr.Error()
		}

		b.Send(messaging.NewTaskResponse(msg.To, msg.From, msg.ID, payload).Build())
	}

	if execErr != nil {
		return fmt.Errorf("task execution on %s: %w", target.ID(), execErr)
	}
	return nil
}

// handleTaskResponse stores the result where the original requester can
// poll for it, keyed by the request id the response correlates to.
func (b *Bus) handleTaskResponse(target directory.Agent, msg *messaging.Message) error {
	correlation := msg.CorrelationID
	if correlation == "" {
		correlation = msg.ID
	}

	target.UpdateMemory(fmt.Sprintf("%s:%s", MemoryKeyResponse, correlation), msg.Payload)
	return nil
}

// handleCollaborationRequest records the invitation in the invitee's memory
// and replies with an acceptance. The default admission policy accepts any
// invitation addressed to a registered agent; real vetting belongs to the
// concrete agent, not the bus.
func (b *Bus) handleCollaborationRequest(target directory.Agent, msg *messaging.Message) error {
	collaborationID := msg.CorrelationID
	if collaborationID == "" {
		if fromPayload, ok := msg.Payload["collaboration_id"].(string); ok {
			collaborationID = fromPayload
		}
	}

	target.UpdateMemory(
		fmt.Sprintf("%s:%s:invitation", MemoryKeyInvitation, collaborationID),
		msg.Payload,
	)

	b.Send(messaging.NewTaskResponse(msg.To, msg.From, msg.ID, map[string]any{
		"collaboration_id": collaborationID,
		"accepted":         true,
	}).Build())

	return nil
}

// handleStatusUpdate merges the update into the addressed agent's memory.
// Collaboration-scoped updates are keyed by the collaboration so later
// reports overwrite earlier snapshots; ad-hoc updates are keyed by sender.
func (b *Bus) handleStatusUpdate(target directory.Agent, msg *messaging.Message) error {
	key := fmt.Sprintf("%s:%s", MemoryKeyStatus, msg.From)
	if msg.CorrelationID != "" {
		key = fmt.Sprintf("%s:%s:status", MemoryKeyInvitation, msg.CorrelationID)
	}

	target.UpdateMemory(key, msg.Payload)
	return nil
}

// handleResourceShare stores shared data under a key namespaced by sender
// and resource type, recording access level and share time.
func (b *Bus) handleResourceShare(target directory.Agent, msg *messaging.Message) error {
	resourceType, _ := msg.Payload["resource_type"].(string)
	if resourceType == "" {
		resourceType = "untyped"
	}

	accessLevel, _ := msg.Payload["access_level"].(string)
	if accessLevel == "" {
		accessLevel = "read"
	}

	target.UpdateMemory(fmt.Sprintf("%s:%s:%s", MemoryKeyShared, msg.From, resourceType), map[string]any{
		"data":         msg.Payload["data"],
		"access_level": accessLevel,
		"from":         msg.From,
		"shared_at":    b.now(),
	})

	return nil
}

// handleErrorNotification records the failure for the addressed agent.
func (b *Bus) handleErrorNotification(target directory.Agent, msg *messaging.Message) error {
	correlation := msg.CorrelationID
	if correlation == "" {
		correlation = msg.ID
	}

	b.logger.Warn(
		"error notification delivered",
		slog.String("bus", b.name),
		slog.String("to", msg.To),
		slog.String("from", msg.From),
		slog.String("correlation_id", correlation),
	)

	target.UpdateMemory(fmt.Sprintf("%s:%s", MemoryKeyError, correlation), msg.Payload)
	return nil
}

// handleCompletionNotice stores the final collaboration results for the
// participant.
func (b *Bus) handleCompletionNotice(target directory.Agent, msg *messaging.Message) error {
	collaborationID := msg.CorrelationID
	if collaborationID == "" {
		collaborationID = msg.ID
	}

	target.UpdateMemory(
		fmt.Sprintf("%s:%s:completion", MemoryKeyInvitation, collaborationID),
		msg.Payload,
	)
	return nil
}
