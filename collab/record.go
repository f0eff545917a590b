package collab

import (
	"fmt"
	"maps"
	"sort"
	"time"
)

// Status is the lifecycle state of a collaboration. Transitions only move
// forward; there is no path out of a terminal state.
type Status string

const (
	// StatusPending: record created, invitations not yet sent.
	StatusPending Status = "pending"
	// StatusActive: invitations sent, participants are working.
	StatusActive Status = "active"
	// StatusCompleted: every task flow step has been reported. Terminal.
	StatusCompleted Status = "completed"
	// StatusFailed: the collaboration was abandoned. Terminal.
	StatusFailed Status = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Record tracks one multi-agent workflow instance. Records live in the
// coordinator's map for the life of the process and are never evicted.
// All mutation happens under the coordinator's lock.
type Record struct {
	ID                   string
	Name                 string
	Description          string
	Initiator            string
	Participants         []string
	RequiredCapabilities []string
	TaskFlow             []string
	SharedContext        map[string]any
	CompletedSteps       map[string]struct{}
	Results              map[string]map[string]any
	Status               Status
	CreatedAt            time.Time
	CompletedAt          time.Time
}

// Snapshot is a caller-facing copy of a record's progress.
type Snapshot struct {
	ID                 string                    `json:"id"`
	Name               string                    `json:"name"`
	Status             Status                    `json:"status"`
	Initiator          string                    `json:"initiator"`
	Participants       []string                  `json:"participants"`
	TaskFlow           []string                  `json:"task_flow"`
	CompletedSteps     []string                  `json:"completed_steps"`
	TotalSteps         int                       `json:"total_steps"`
	ProgressPercentage float64                   `json:"progress_percentage"`
	SharedContext      map[string]any            `json:"shared_context"`
	Results            map[string]map[string]any `json:"results"`
	CreatedAt          time.Time                 `json:"created_at"`
}

// completedStepList returns the reported steps sorted for determinism.
func (r *Record) completedStepList() []string {
	steps := make([]string, 0, len(r.CompletedSteps))
	for step := range r.CompletedSteps {
		steps = append(steps, step)
	}
	sort.Strings(steps)
	return steps
}

// progress computes completed/total*100. An empty task flow counts as one
// step so the percentage never divides by zero; any report then completes
// the collaboration immediately.
func (r *Record) progress() (total int, percentage float64) {
	completed := len(r.CompletedSteps)
	total = len(r.TaskFlow)

	denominator := total
	if denominator == 0 {
		denominator = 1
	}

	return total, float64(completed) / float64(denominator) * 100
}

// snapshot copies the record's visible state.
func (r *Record) snapshot() *Snapshot {
	total, percentage := r.progress()

	results := make(map[string]map[string]any, len(r.Results))
	for agentID, result := range r.Results {
		results[agentID] = maps.Clone(result)
	}

	return &Snapshot{
		ID:                 r.ID,
		Name:               r.Name,
		Status:             r.Status,
		Initiator:          r.Initiator,
		Participants:       append([]string(nil), r.Participants...),
		TaskFlow:           append([]string(nil), r.TaskFlow...),
		CompletedSteps:     r.completedStepList(),
		TotalSteps:         total,
		ProgressPercentage: percentage,
		SharedContext:      maps.Clone(r.SharedContext),
		Results:            results,
		CreatedAt:          r.CreatedAt,
	}
}

func (r *Record) String() string {
	return fmt.Sprintf(
		"Record{ID: %s, Name: %s, Status: %s, Participants: %d, Steps: %d/%d}",
		r.ID, r.Name, r.Status, len(r.Participants), len(r.CompletedSteps), len(r.TaskFlow),
	)
}
