// Package orchestrator assembles the directory, bus, coordinator, and
// delegator into one explicitly constructed runtime instance.
//
// Nothing here is a package-level singleton: construct an Orchestrator at
// process start, hand it to callers, and tests get a fresh instance each.
//
//	o, err := orchestrator.New(cfg)
//	o.RegisterAgent(salesAgent)
//	o.Start()
//	defer o.Stop()
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bizmesh-labs/agentbus/bus"
	"github.com/bizmesh-labs/agentbus/collab"
	"github.com/bizmesh-labs/agentbus/config"
	"github.com/bizmesh-labs/agentbus/delegate"
	"github.com/bizmesh-labs/agentbus/directory"
	"github.com/bizmesh-labs/agentbus/messaging"
	"github.com/bizmesh-labs/agentbus/observability"
)

// Orchestrator owns every subsystem of the message bus runtime and exposes
// the inbound API consumed by an HTTP or CLI layer.
type Orchestrator struct {
	directory   *directory.Directory
	bus         *bus.Bus
	coordinator *collab.Coordinator
	delegator   *delegate.Delegator
	logger      *slog.Logger
}

// Option configures an Orchestrator after config-driven initialization.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	observer  observability.Observer
	directory *directory.Directory
}

// WithLogger overrides the default logger for all subsystems.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithObserver overrides the config-resolved observer.
func WithObserver(observer observability.Observer) Option {
	return func(o *options) { o.observer = observer }
}

// WithDirectory supplies a pre-populated agent directory.
func WithDirectory(dir *directory.Directory) Option {
	return func(o *options) { o.directory = dir }
}

// New builds an Orchestrator from configuration. The configured observer
// name must resolve against the observability registry.
func New(cfg *config.Config, opts ...Option) (*Orchestrator, error) {
	resolved := options{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&resolved)
	}

	if resolved.observer == nil {
		observer, err := observability.GetObserver(cfg.Bus.Observer)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve observer: %w", err)
		}
		resolved.observer = observer
	}

	dir := resolved.directory
	if dir == nil {
		dir = directory.New()
	}

	b := bus.New(dir, cfg.Bus,
		bus.WithLogger(resolved.logger),
		bus.WithObserver(resolved.observer),
	)

	coordinator := collab.New(b, dir, cfg.Coordinator,
		collab.WithLogger(resolved.logger),
		collab.WithObserver(resolved.observer),
	)

	return &Orchestrator{
		directory:   dir,
		bus:         b,
		coordinator: coordinator,
		delegator:   delegate.New(b),
		logger:      resolved.logger,
	}, nil
}

// RegisterAgent adds an agent to the directory.
func (o *Orchestrator) RegisterAgent(ag directory.Agent) error {
	return o.directory.Register(ag)
}

// UnregisterAgent removes an agent from the directory. Messages already
// queued for it will be dropped at dispatch time.
func (o *Orchestrator) UnregisterAgent(agentID string) error {
	return o.directory.Unregister(agentID)
}

// Directory exposes the agent registry.
func (o *Orchestrator) Directory() *directory.Directory {
	return o.directory
}

// Start begins message dispatch. Idempotent.
func (o *Orchestrator) Start() {
	o.bus.Start()
}

// Stop halts message dispatch, letting an in-flight handler finish.
// Idempotent.
func (o *Orchestrator) Stop() {
	o.bus.Stop()
}

// Send enqueues a raw message.
func (o *Orchestrator) Send(msg *messaging.Message) bool {
	return o.bus.Send(msg)
}

// DelegateTask hands a task from one agent to another and returns the
// message id correlating the eventual response.
func (o *Orchestrator) DelegateTask(from, to string, spec delegate.TaskSpec) (string, error) {
	return o.delegator.Delegate(from, to, spec)
}

// RequestCollaboration creates a multi-agent collaboration and returns its
// id.
func (o *Orchestrator) RequestCollaboration(ctx context.Context, spec collab.Spec) (string, error) {
	return o.coordinator.Request(ctx, spec)
}

// UpdateCollaborationStatus merges a participant's progress report.
func (o *Orchestrator) UpdateCollaborationStatus(ctx context.Context, collaborationID, reporter string, update collab.Update) error {
	return o.coordinator.UpdateStatus(ctx, collaborationID, reporter, update)
}

// CollaborationStatus returns a snapshot, or nil for an unknown id.
func (o *Orchestrator) CollaborationStatus(collaborationID string) *collab.Snapshot {
	return o.coordinator.Status(collaborationID)
}

// Metrics returns the combined counters with derived gauges filled in.
func (o *Orchestrator) Metrics() bus.MetricsSnapshot {
	snapshot := o.bus.Metrics()
	snapshot.ActiveCollaborations = int64(o.coordinator.Count())
	return snapshot
}
