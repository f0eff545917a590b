package collab

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/bizmesh-labs/agentbus/bus"
	"github.com/bizmesh-labs/agentbus/config"
	"github.com/bizmesh-labs/agentbus/directory"
	"github.com/bizmesh-labs/agentbus/messaging"
	"github.com/bizmesh-labs/agentbus/observability"

	"github.com/google/uuid"
)

// Spec describes a collaboration to create.
type Spec struct {
	Name                 string
	Description          string
	Initiator            string
	RequiredCapabilities []string
	TaskFlow             []string
	ParticipantCount     int
	SharedContext        map[string]any
	Priority             messaging.Priority
}

// Update is one participant's progress report.
type Update struct {
	// CompletedStep names a task flow step the reporter finished. Reporting
	// the same step twice is idempotent.
	CompletedStep string

	// Results is the reporter's contribution, stored per agent.
	Results map[string]any

	// ContextUpdate merges into the shared context, key-wise overwrite.
	ContextUpdate map[string]any
}

// Coordinator orchestrates multi-agent workflows over the bus: participant
// selection by capability, invitation fan-out, progress aggregation, and
// completion broadcast.
type Coordinator struct {
	bus       *bus.Bus
	directory *directory.Directory
	metrics   *bus.Metrics

	defaultParticipants int

	logger   *slog.Logger
	observer observability.Observer
	now      func() time.Time

	mu      sync.Mutex
	records map[string]*Record
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithObserver overrides the default no-op observer.
func WithObserver(observer observability.Observer) Option {
	return func(c *Coordinator) { c.observer = observer }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// New creates a Coordinator sending through b and selecting participants
// from dir. Collaboration counters are recorded into the bus's metrics
// register so one snapshot covers both subsystems.
func New(b *bus.Bus, dir *directory.Directory, cfg config.CoordinatorConfig, opts ...Option) *Coordinator {
	defaultParticipants := cfg.DefaultParticipants
	if defaultParticipants <= 0 {
		defaultParticipants = 2
	}

	c := &Coordinator{
		bus:                 b,
		directory:           dir,
		metrics:             b.MetricsRegister(),
		defaultParticipants: defaultParticipants,
		logger:              slog.Default(),
		observer:            observability.NoOpObserver{},
		now:                 time.Now,
		records:             make(map[string]*Record),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Request creates a collaboration and fans out invitations.
//
// Capability matching uses OR semantics: an agent qualifies if it holds any
// one of the required capabilities. When fewer agents qualify than the
// requested participant count, Request fails without storing anything.
func (c *Coordinator) Request(ctx context.Context, spec Spec) (string, error) {
	participantCount := spec.ParticipantCount
	if participantCount <= 0 {
		participantCount = c.defaultParticipants
	}

	qualified := c.directory.MatchAny(spec.RequiredCapabilities)
	if len(qualified) < participantCount {
		return "", fmt.Errorf(
			"%w: need %d, found %d for capabilities %v",
			ErrInsufficientAgents, participantCount, len(qualified), spec.RequiredCapabilities,
		)
	}

	participants := qualified[:participantCount]

	record := &Record{
		ID:                   uuid.Must(uuid.NewV7()).String(),
		Name:                 spec.Name,
		Description:          spec.Description,
		Initiator:            spec.Initiator,
		Participants:         participants,
		RequiredCapabilities: append([]string(nil), spec.RequiredCapabilities...),
		TaskFlow:             append([]string(nil), spec.TaskFlow...),
		SharedContext:        maps.Clone(spec.SharedContext),
		CompletedSteps:       make(map[string]struct{}),
		Results:              make(map[string]map[string]any),
		Status:               StatusPending,
		CreatedAt:            c.now(),
	}
	if record.SharedContext == nil {
		record.SharedContext = make(map[string]any)
	}

	c.mu.Lock()
	c.records[record.ID] = record
	c.mu.Unlock()

	c.observer.OnEvent(ctx, observability.NewEvent(
		observability.EventCollabCreated,
		"collab",
		map[string]any{"id": record.ID, "name": record.Name, "participants": participants},
	))

	c.invite(ctx, record, spec.Priority)

	c.mu.Lock()
	record.Status = StatusActive
	c.mu.Unlock()

	c.metrics.RecordCollaborationStarted()
	c.logger.InfoContext(
		ctx,
		"collaboration started",
		slog.String("collaboration_id", record.ID),
		slog.String("name", record.Name),
		slog.Int("participants", len(participants)),
		slog.Int("steps", len(record.TaskFlow)),
	)

	return record.ID, nil
}

// invite fans one CollaborationRequest out to each participant. Delivery is
// best effort; a failed send is logged and does not stop the rest.
func (c *Coordinator) invite(ctx context.Context, record *Record, priority messaging.Priority) {
	for _, participant := range record.Participants {
		invitation := messaging.New(record.Initiator, participant, messaging.KindCollaborationRequest).
			Payload(map[string]any{
				"collaboration_id":      record.ID,
				"name":                  record.Name,
				"description":           record.Description,
				"required_capabilities": record.RequiredCapabilities,
				"task_flow":             record.TaskFlow,
				"shared_context":        maps.Clone(record.SharedContext),
			}).
			CorrelationID(record.ID).
			Priority(priority).
			Build()

		if !c.bus.Send(invitation) {
			c.logger.WarnContext(
				ctx,
				"failed to send collaboration invitation",
				slog.String("collaboration_id", record.ID),
				slog.String("participant", participant),
			)
			continue
		}

		c.observer.OnEvent(ctx, observability.NewEvent(
			observability.EventCollabInvited,
			"collab",
			map[string]any{"id": record.ID, "participant": participant},
		))
	}
}

// UpdateStatus merges a participant's progress report into the record and
// broadcasts the new state to every other participant. Reporting a step that
// was already reported leaves the completed set unchanged. When all task
// flow steps are reported the collaboration completes and every participant
// receives a CompletionNotice.
func (c *Coordinator) UpdateStatus(ctx context.Context, collaborationID, reporter string, update Update) error {
	c.mu.Lock()
	record, exists := c.records[collaborationID]
	if !exists {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrCollaborationNotFound, collaborationID)
	}

	if update.CompletedStep != "" {
		record.CompletedSteps[update.CompletedStep] = struct{}{}
	}
	if update.Results != nil {
		record.Results[reporter] = maps.Clone(update.Results)
	}
	for key, value := range update.ContextUpdate {
		record.SharedContext[key] = value
	}

	justCompleted := false
	if !record.Status.Terminal() && len(record.CompletedSteps) >= len(record.TaskFlow) {
		record.Status = StatusCompleted
		record.CompletedAt = c.now()
		justCompleted = true
	}

	snapshot := record.snapshot()
	c.mu.Unlock()

	c.observer.OnEvent(ctx, observability.NewEvent(
		observability.EventCollabProgress,
		"collab",
		map[string]any{
			"id":       collaborationID,
			"reporter": reporter,
			"progress": snapshot.ProgressPercentage,
		},
	))

	c.broadcastStatus(ctx, snapshot, reporter)

	if justCompleted {
		c.complete(ctx, snapshot)
	}

	return nil
}

// broadcastStatus sends the merged progress to every participant except the
// reporter; this is how participants learn of each other's progress.
func (c *Coordinator) broadcastStatus(ctx context.Context, snapshot *Snapshot, reporter string) {
	for _, participant := range snapshot.Participants {
		if participant == reporter {
			continue
		}

		status := messaging.NewStatusUpdate(reporter, participant, map[string]any{
			"collaboration_id":    snapshot.ID,
			"completed_steps":     snapshot.CompletedSteps,
			"shared_context":      snapshot.SharedContext,
			"progress_percentage": snapshot.ProgressPercentage,
			"status":              string(snapshot.Status),
		}).CorrelationID(snapshot.ID).Build()

		if !c.bus.Send(status) {
			c.logger.WarnContext(
				ctx,
				"failed to broadcast status update",
				slog.String("collaboration_id", snapshot.ID),
				slog.String("participant", participant),
			)
		}
	}
}

// complete fans a CompletionNotice out to every participant with the final
// results. Fire and forget: no acknowledgement is collected.
func (c *Coordinator) complete(ctx context.Context, snapshot *Snapshot) {
	completedAt := c.now()

	for _, participant := range snapshot.Participants {
		results := make(map[string]any, len(snapshot.Results))
		for agentID, result := range snapshot.Results {
			results[agentID] = result
		}

		notice := messaging.NewCompletionNotice(snapshot.Initiator, participant, map[string]any{
			"collaboration_id": snapshot.ID,
			"name":             snapshot.Name,
			"results":          results,
			"completed_at":     completedAt,
		}).CorrelationID(snapshot.ID).Build()

		if !c.bus.Send(notice) {
			c.logger.WarnContext(
				ctx,
				"failed to send completion notice",
				slog.String("collaboration_id", snapshot.ID),
				slog.String("participant", participant),
			)
		}
	}

	c.metrics.RecordCollaborationCompleted()
	c.observer.OnEvent(ctx, observability.NewEvent(
		observability.EventCollabCompleted,
		"collab",
		map[string]any{"id": snapshot.ID, "name": snapshot.Name},
	))
	c.logger.InfoContext(
		ctx,
		"collaboration completed",
		slog.String("collaboration_id", snapshot.ID),
		slog.String("name", snapshot.Name),
	)
}

// Status returns a snapshot of the collaboration, or nil when the id is
// unknown. Unknown ids are a not-found result, not an error.
func (c *Coordinator) Status(collaborationID string) *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	record, exists := c.records[collaborationID]
	if !exists {
		return nil
	}
	return record.snapshot()
}

// Count returns the number of live records. Records are never evicted, so
// this is every collaboration created since process start.
func (c *Coordinator) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}
