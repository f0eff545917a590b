// Package directory provides the registry of agents the bus can route to.
//
// The bus and coordinator consult the directory for recipient lookup and
// capability matching; they never inspect what an agent's tasks mean. Agents
// arrive fully constructed — the directory holds references, it does not
// instantiate.
package directory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// Result is the outcome of an agent executing a task.
type Result struct {
	Success bool
	Data    map[string]any
}

// Agent is the contract every registered worker satisfies. Implementations
// live outside this module; MemoryAgent is the in-repo reference.
type Agent interface {
	// ID returns the stable identifier used for message routing.
	ID() string

	// Capabilities returns the tags describing what tasks the agent can run.
	Capabilities() []string

	// Execute runs one task. The task schema is agreed between callers and
	// the agent; the bus only looks at Result.Success.
	Execute(ctx context.Context, task map[string]any) (Result, error)

	// UpdateMemory stores a value in the agent's private memory.
	// Last write wins.
	UpdateMemory(key string, value any)

	// Memory retrieves a previously stored value.
	Memory(key string) (any, bool)
}

// Info describes a registered agent's id and declared capabilities.
type Info struct {
	ID           string
	Capabilities []string
}

// Directory is a thread-safe registry of agents keyed by id.
type Directory struct {
	mu     sync.RWMutex
	agents map[string]Agent
}

// New creates an empty Directory.
func New() *Directory {
	return &Directory{
		agents: make(map[string]Agent),
	}
}

// Register adds an agent to the directory.
func (d *Directory) Register(ag Agent) error {
	if ag.ID() == "" {
		return ErrEmptyAgentID
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.agents[ag.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrAgentExists, ag.ID())
	}

	d.agents[ag.ID()] = ag
	return nil
}

// Unregister removes an agent from the directory.
func (d *Directory) Unregister(agentID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.agents[agentID]; !exists {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
	}

	delete(d.agents, agentID)
	return nil
}

// Get retrieves an agent by id.
func (d *Directory) Get(agentID string) (Agent, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ag, exists := d.agents[agentID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
	}
	return ag, nil
}

// Capabilities returns the declared capabilities of a registered agent.
func (d *Directory) Capabilities(agentID string) ([]string, error) {
	ag, err := d.Get(agentID)
	if err != nil {
		return nil, err
	}
	return ag.Capabilities(), nil
}

// List returns information about all registered agents, sorted by id.
func (d *Directory) List() []Info {
	d.mu.RLock()
	defer d.mu.RUnlock()

	infos := make([]Info, 0, len(d.agents))
	for id, ag := range d.agents {
		infos = append(infos, Info{
			ID:           id,
			Capabilities: ag.Capabilities(),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ID < infos[j].ID
	})

	return infos
}

// MatchAny returns the ids of agents holding at least one of the given
// capabilities, sorted for determinism. An empty capability list matches
// nothing.
func (d *Directory) MatchAny(capabilities []string) []string {
	if len(capabilities) == 0 {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var matched []string
	for id, ag := range d.agents {
		for _, capability := range ag.Capabilities() {
			if slices.Contains(capabilities, capability) {
				matched = append(matched, id)
				break
			}
		}
	}

	sort.Strings(matched)
	return matched
}

// Len returns the number of registered agents.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.agents)
}
