// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"context"
	"sync"

	"github.com/pdiddy/websearch-pro/pkg/types"
)

// session is the orchestrator's live view of one running search. All
// mutation of sess happens on the run-loop goroutine; the mutex exists only
// so external snapshots don't race with that writer.
type session struct {
	mu   sync.RWMutex
	sess *types.SearchSession

	progress ProgressFunc

	// cancelRun tears down the run context; stopReason records whether the
	// caller asked for the stop ("pause") before cancelling. A global
	// timeout leaves it empty and the run loop fills in "timeout".
	cancelRun  context.CancelFunc
	reasonOnce sync.Once
	stopReason string

	// done closes when the run loop exits. runErr holds the error the run
	// loop could not recover from (today: a failed checkpoint save).
	done   chan struct{}
	runErr error
}

// setStopReason records the first stop reason; later stops keep the first.
func (s *session) setStopReason(reason string) {
	s.reasonOnce.Do(func() { s.stopReason = reason })
}

// snapshot returns a deep-enough copy for external readers: slices are
// copied so the run loop can keep appending.
func (s *session) snapshot() types.SearchSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := *s.sess
	out.Tasks = append([]types.EngineTask(nil), s.sess.Tasks...)
	out.Candidates = append([]types.CandidateResult(nil), s.sess.Candidates...)
	out.Ranked = append([]types.RankedResult(nil), s.sess.Ranked...)
	return out
}

func (s *session) emit(ev Event) {
	if s.progress != nil {
		s.progress(ev)
	}
}

// SessionHandle is the caller's reference to a session started or resumed
// on an Orchestrator.
type SessionHandle struct {
	// ID is the session identifier, also usable as a checkpoint identifier.
	ID string

	s *session
}

// Session returns a point-in-time copy of the session state. Safe to call
// while the session is running.
func (h *SessionHandle) Session() types.SearchSession {
	return h.s.snapshot()
}

// Wait blocks until the session's run loop exits (all tiers done, or the
// session paused) or ctx is cancelled. It returns the run loop's error,
// which is non-nil only when a pause-time checkpoint save failed.
func (h *SessionHandle) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.s.done:
		return h.s.runErr
	}
}

// Done returns a channel closed when the run loop exits.
func (h *SessionHandle) Done() <-chan struct{} {
	return h.s.done
}
