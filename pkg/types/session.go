// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// TaskState is the lifecycle state of one EngineTask. Terminal states
// (Succeeded, Failed, Cancelled) are never left once entered.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskRunning   TaskState = "running"
	TaskSucceeded TaskState = "succeeded"
	TaskFailed    TaskState = "failed"
	TaskCancelled TaskState = "cancelled"
)

// Terminal reports whether the state is one a task never leaves.
func (s TaskState) Terminal() bool {
	return s == TaskSucceeded || s == TaskFailed || s == TaskCancelled
}

// SessionStatus is the lifecycle state of a SearchSession.
type SessionStatus string

const (
	SessionRunning   SessionStatus = "running"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// Tier is a named group of engines run together under one concurrency and
// delay policy. Tiers execute strictly in plan order.
type Tier struct {
	// Name identifies the tier (e.g. "major", "extended", "darknet").
	Name string `json:"name" yaml:"name"`

	// Engines lists the engine identifiers in dispatch order.
	Engines []string `json:"engines" yaml:"engines"`

	// Concurrency caps how many engines run at once within the tier.
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// Delay is the minimum interval between task dispatches in the tier.
	Delay time.Duration `json:"delay" yaml:"delay"`

	// Enabled skips the tier entirely when false.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Sequential marks high-latency back-ends (Tor/I2P gateways) that must
	// run one at a time regardless of Concurrency.
	Sequential bool `json:"sequential,omitempty" yaml:"sequential,omitempty"`
}

// TierPlan is the ordered sequence of tiers a session executes.
type TierPlan struct {
	Tiers []Tier `json:"tiers" yaml:"tiers"`
}

// EngineTask is one (tier, engine) execution unit.
type EngineTask struct {
	// Tier is the tier name; TierIndex its position in the plan.
	Tier      string `json:"tier" yaml:"tier"`
	TierIndex int    `json:"tier_index" yaml:"tier_index"`

	// Engine is the engine identifier; EngineIndex its position in the tier.
	Engine      string `json:"engine" yaml:"engine"`
	EngineIndex int    `json:"engine_index" yaml:"engine_index"`

	// State is the task's current lifecycle state.
	State TaskState `json:"state" yaml:"state"`

	// StartedAt and FinishedAt bound the task's execution window.
	StartedAt  time.Time `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`

	// ResultCount is the number of raw results the adapter returned.
	ResultCount int `json:"result_count" yaml:"result_count"`

	// Error holds the failure detail when State is failed.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// SearchSession is the complete state of one tiered search. The orchestrator
// exclusively mutates a session while it runs; the checkpoint store owns its
// serialized form at rest.
type SearchSession struct {
	// ID uniquely identifies the session.
	ID string `json:"id" yaml:"id"`

	// Query is the structured query the session executes.
	Query SearchQuery `json:"query" yaml:"query"`

	// Plan is the tier plan driving execution.
	Plan TierPlan `json:"plan" yaml:"plan"`

	// Tasks holds one entry per (tier, engine) pair, in plan order.
	Tasks []EngineTask `json:"tasks" yaml:"tasks"`

	// Candidates is the accumulated, deduplicated result set. It grows
	// monotonically while the session is running and is frozen when paused.
	Candidates []CandidateResult `json:"candidates,omitempty" yaml:"candidates,omitempty"`

	// Ranked is the scored output, populated by Finish.
	Ranked []RankedResult `json:"ranked,omitempty" yaml:"ranked,omitempty"`

	// Status is the session lifecycle state.
	Status SessionStatus `json:"status" yaml:"status"`

	// StoppedReason explains a pause: "pause" for a caller request,
	// "timeout" when the global timeout elapsed.
	StoppedReason string `json:"stopped_reason,omitempty" yaml:"stopped_reason,omitempty"`

	// CreatedAt and UpdatedAt are bookkeeping timestamps.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`

	// Elapsed accumulates active running time across pause/resume cycles.
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

// TaskFor returns a pointer to the task for the given tier and engine
// indexes, or nil if no such task exists.
func (s *SearchSession) TaskFor(tierIndex, engineIndex int) *EngineTask {
	for i := range s.Tasks {
		if s.Tasks[i].TierIndex == tierIndex && s.Tasks[i].EngineIndex == engineIndex {
			return &s.Tasks[i]
		}
	}
	return nil
}

// PendingTasks returns the tasks that still need to run: everything except
// those that already succeeded.
func (s *SearchSession) PendingTasks() []EngineTask {
	var pending []EngineTask
	for _, t := range s.Tasks {
		if t.State != TaskSucceeded {
			pending = append(pending, t)
		}
	}
	return pending
}
