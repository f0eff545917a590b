package directory

import (
	"context"
	"maps"
	"sync"
)

// ExecuteFunc runs one task on behalf of a MemoryAgent.
type ExecuteFunc func(ctx context.Context, task map[string]any) (Result, error)

// MemoryAgent is a self-contained Agent backed by an in-process memory map
// and a pluggable execute function. The demo binary, examples, and tests use
// it in place of the external business agents.
type MemoryAgent struct {
	id           string
	capabilities []string
	execute      ExecuteFunc

	mu     sync.RWMutex
	memory map[string]any
}

// NewMemoryAgent creates an agent with the given id and capabilities.
// When execute is nil the agent reports success and echoes the task back.
func NewMemoryAgent(id string, capabilities []string, execute ExecuteFunc) *MemoryAgent {
	if execute == nil {
		execute = func(ctx context.Context, task map[string]any) (Result, error) {
			return Result{Success: true, Data: map[string]any{"task": task}}, nil
		}
	}

	return &MemoryAgent{
		id:           id,
		capabilities: capabilities,
		execute:      execute,
		memory:       make(map[string]any),
	}
}

func (a *MemoryAgent) ID() string {
	return a.id
}

func (a *MemoryAgent) Capabilities() []string {
	return a.capabilities
}

func (a *MemoryAgent) Execute(ctx context.Context, task map[string]any) (Result, error) {
	return a.execute(ctx, task)
}

func (a *MemoryAgent) UpdateMemory(key string, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.memory[key] = value
}

func (a *MemoryAgent) Memory(key string) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	value, exists := a.memory[key]
	return value, exists
}

// MemorySnapshot returns a copy of the agent's full memory map.
func (a *MemoryAgent) MemorySnapshot() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return maps.Clone(a.memory)
}
