// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"fmt"
	"time"

	"github.com/pdiddy/websearch-pro/pkg/types"
)

// Phase is the lifecycle stage a progress event describes.
type Phase string

const (
	PhaseStarted   Phase = "started"
	PhaseProgress  Phase = "progress"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// Event is one progress notification. Events are observational only; a slow
// or absent sink never blocks the orchestrator.
type Event struct {
	Tier    string
	Engine  string
	Phase   Phase
	Message string
	Time    time.Time
}

// ProgressFunc receives progress events. It is called from the
// orchestrator's collection loop, so implementations should return quickly.
type ProgressFunc func(Event)

// PlanError reports a malformed tier plan. It fails Start immediately;
// nothing about a malformed plan is recoverable at run time.
type PlanError struct {
	Reason string
}

func (e *PlanError) Error() string {
	return "invalid tier plan: " + e.Reason
}

// validatePlan rejects plans the run loop cannot execute: no enabled work,
// duplicate engines within a tier, or a nonsensical concurrency limit.
func validatePlan(plan types.TierPlan) error {
	enabled := 0
	for _, tier := range plan.Tiers {
		if !tier.Enabled {
			continue
		}
		if len(tier.Engines) == 0 {
			return &PlanError{Reason: fmt.Sprintf("tier %q has no engines", tier.Name)}
		}
		if tier.Concurrency < 1 {
			return &PlanError{Reason: fmt.Sprintf("tier %q has concurrency %d, want >= 1", tier.Name, tier.Concurrency)}
		}
		seen := make(map[string]bool, len(tier.Engines))
		for _, engine := range tier.Engines {
			if engine == "" {
				return &PlanError{Reason: fmt.Sprintf("tier %q has an empty engine name", tier.Name)}
			}
			if seen[engine] {
				return &PlanError{Reason: fmt.Sprintf("tier %q lists engine %q twice", tier.Name, engine)}
			}
			seen[engine] = true
		}
		enabled++
	}
	if enabled == 0 {
		return &PlanError{Reason: "no enabled tiers"}
	}
	return nil
}
