// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package orchestrator executes a tier plan against a structured query. It
// dispatches engine tasks tier by tier, collects their results on a single
// goroutine, hands the accumulated candidates to the deduplicator after each
// tier, and ranks the final set. Sessions can be paused into a checkpoint
// and resumed later without re-running engines that already succeeded.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/pdiddy/websearch-pro/internal/checkpoint"
	"github.com/pdiddy/websearch-pro/internal/dedup"
	"github.com/pdiddy/websearch-pro/internal/engines"
	"github.com/pdiddy/websearch-pro/internal/rank"
	"github.com/pdiddy/websearch-pro/internal/safety"
	"github.com/pdiddy/websearch-pro/pkg/types"
)

const (
	defaultGracePeriod         = 5 * time.Second
	defaultMaxResultsPerEngine = 30

	// StoppedReason values recorded on a paused session.
	ReasonPause   = "pause"
	ReasonTimeout = "timeout"
)

// Orchestrator runs search sessions. Construct one with New; its
// configuration is fixed for its lifetime.
type Orchestrator struct {
	cfg      types.OrchestratorConfig
	dedupCfg types.DedupConfig
	checker  *safety.Checker
	ranker   *rank.Ranker
	registry *engines.Registry
	store    *checkpoint.Store

	mu       sync.Mutex
	sessions map[string]*session
}

// New builds an Orchestrator. Zero grace period and per-engine result cap
// fall back to the defaults (5s, 30).
func New(cfg types.Config, registry *engines.Registry, store *checkpoint.Store) *Orchestrator {
	oc := cfg.Orchestrator
	if oc.GracePeriod <= 0 {
		oc.GracePeriod = defaultGracePeriod
	}
	if oc.MaxResultsPerEngine <= 0 {
		oc.MaxResultsPerEngine = defaultMaxResultsPerEngine
	}
	return &Orchestrator{
		cfg:      oc,
		dedupCfg: cfg.Dedup,
		checker:  safety.New(cfg.Safety),
		ranker:   rank.New(cfg.Rank),
		registry: registry,
		store:    store,
		sessions: make(map[string]*session),
	}
}

// Options adjusts a single Start or Resume call.
type Options struct {
	// Progress receives events as tasks start and finish. May be nil.
	Progress ProgressFunc

	// GlobalTimeout overrides the configured global timeout when positive.
	GlobalTimeout time.Duration
}

// Start begins a new session for the query and plan. It fails fast on a
// malformed plan or an empty query; everything after that is reported
// through task states, not errors.
func (o *Orchestrator) Start(query types.SearchQuery, plan types.TierPlan, opts Options) (*SessionHandle, error) {
	if err := validatePlan(plan); err != nil {
		return nil, err
	}
	if query.IsEmpty() {
		return nil, fmt.Errorf("query has no searchable terms")
	}

	now := time.Now().UTC()
	sess := &types.SearchSession{
		ID:        uuid.NewString(),
		Query:     query,
		Plan:      plan,
		Status:    types.SessionRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for ti, tier := range plan.Tiers {
		if !tier.Enabled {
			continue
		}
		for ei, engine := range tier.Engines {
			sess.Tasks = append(sess.Tasks, types.EngineTask{
				Tier:        tier.Name,
				TierIndex:   ti,
				Engine:      engine,
				EngineIndex: ei,
				State:       types.TaskPending,
			})
		}
	}

	return o.launch(sess, opts), nil
}

// Resume rebuilds a session from a checkpoint and continues it. Tasks that
// already succeeded are not re-run; failed and cancelled tasks get another
// attempt. Load failures (NotFound, Corrupt, VersionMismatch) pass through
// for the caller to distinguish.
func (o *Orchestrator) Resume(checkpointID string, opts Options) (*SessionHandle, error) {
	sess, err := o.store.Load(checkpointID)
	if err != nil {
		return nil, err
	}
	if sess.Status == types.SessionCompleted {
		return nil, fmt.Errorf("session %s already completed", sess.ID)
	}
	if err := validatePlan(sess.Plan); err != nil {
		return nil, err
	}

	for i := range sess.Tasks {
		t := &sess.Tasks[i]
		if t.State == types.TaskFailed || t.State == types.TaskCancelled || t.State == types.TaskRunning {
			t.State = types.TaskPending
			t.Error = ""
			t.ResultCount = 0
			t.StartedAt = time.Time{}
			t.FinishedAt = time.Time{}
		}
	}
	sess.Status = types.SessionRunning
	sess.StoppedReason = ""
	sess.UpdatedAt = time.Now().UTC()

	return o.launch(&sess, opts), nil
}

// launch registers the session and starts its run loop.
func (o *Orchestrator) launch(sess *types.SearchSession, opts Options) *SessionHandle {
	s := &session{
		sess:     sess,
		progress: opts.Progress,
		done:     make(chan struct{}),
	}

	timeout := o.cfg.GlobalTimeout
	if opts.GlobalTimeout > 0 {
		timeout = opts.GlobalTimeout
	}

	var ctx context.Context
	if timeout > 0 {
		// Time spent in earlier runs counts against the global timeout.
		// Once exhausted, the context is already expired and the run loop
		// checkpoints immediately.
		ctx, s.cancelRun = context.WithTimeout(context.Background(), timeout-sess.Elapsed)
	} else {
		ctx, s.cancelRun = context.WithCancel(context.Background())
	}

	o.mu.Lock()
	o.sessions[sess.ID] = s
	o.mu.Unlock()

	go o.run(ctx, s)

	return &SessionHandle{ID: sess.ID, s: s}
}

// Pause stops a session: in-flight tasks get the grace period to wind down,
// then the session is checkpointed as paused. It returns the checkpoint
// identifier. A checkpoint save failure is returned — losing the checkpoint
// would silently break resumability.
func (o *Orchestrator) Pause(sessionID string) (string, error) {
	s, err := o.lookup(sessionID)
	if err != nil {
		return "", err
	}

	s.setStopReason(ReasonPause)
	s.cancelRun()
	<-s.done

	s.mu.Lock()
	status := s.sess.Status
	s.mu.Unlock()
	if status != types.SessionPaused {
		// The run loop finished its tiers before the cancel landed.
		// Checkpoint the completed-but-unranked state anyway so the
		// caller still gets a resumable/inspectable snapshot.
		s.mu.Lock()
		s.sess.Status = types.SessionPaused
		s.sess.StoppedReason = ReasonPause
		s.sess.UpdatedAt = time.Now().UTC()
		s.mu.Unlock()
		if _, err := o.store.Save(s.snapshot()); err != nil {
			return "", fmt.Errorf("saving pause checkpoint: %w", err)
		}
		return sessionID, nil
	}
	return sessionID, s.runErr
}

// Finish waits for the session's tiers to complete, ranks the deduplicated
// candidates, and marks the session completed. Finishing a paused session
// is an error; resume it first.
func (o *Orchestrator) Finish(ctx context.Context, sessionID string) ([]types.RankedResult, error) {
	s, err := o.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess.Status == types.SessionPaused {
		return nil, fmt.Errorf("session %s is paused (%s); resume it before finishing", sessionID, s.sess.StoppedReason)
	}

	s.sess.Ranked = o.ranker.Rank(s.sess.Candidates, s.sess.Query)
	s.sess.Status = types.SessionCompleted
	s.sess.UpdatedAt = time.Now().UTC()

	return append([]types.RankedResult(nil), s.sess.Ranked...), nil
}

// Session returns a snapshot of a tracked session.
func (o *Orchestrator) Session(sessionID string) (types.SearchSession, error) {
	s, err := o.lookup(sessionID)
	if err != nil {
		return types.SearchSession{}, err
	}
	return s.snapshot(), nil
}

func (o *Orchestrator) lookup(sessionID string) (*session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("unknown session %q", sessionID)
	}
	return s, nil
}

// run is the session's single-writer loop: it executes tiers in plan order
// and is the only goroutine that mutates the session.
func (o *Orchestrator) run(ctx context.Context, s *session) {
	defer close(s.done)
	start := time.Now()

	s.mu.RLock()
	query := s.sess.Query
	plan := s.sess.Plan
	s.mu.RUnlock()

	for ti, tier := range plan.Tiers {
		if !tier.Enabled || ctx.Err() != nil {
			continue
		}
		if !o.tierHasPending(s, ti) {
			continue
		}

		raw := o.runTier(ctx, s, ti, tier, query)

		// Candidates that fail the safety screen never reach the
		// accumulated set, so they are neither checkpointed nor ranked.
		screened, flagged := o.checker.Filter(raw)

		s.mu.Lock()
		s.sess.Candidates = dedup.Deduplicate(append(s.sess.Candidates, screened...), o.dedupCfg)
		s.sess.UpdatedAt = time.Now().UTC()
		total := len(s.sess.Candidates)
		s.mu.Unlock()

		msg := fmt.Sprintf("tier complete, %d unique candidates so far", total)
		if flagged > 0 {
			msg += fmt.Sprintf(" (%d dropped by safety filter)", flagged)
		}
		s.emit(Event{
			Tier:    tier.Name,
			Phase:   PhaseProgress,
			Message: msg,
			Time:    time.Now().UTC(),
		})
	}

	s.mu.Lock()
	s.sess.Elapsed += time.Since(start)
	s.sess.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()

	if ctx.Err() == nil {
		return
	}

	// Stopped early: either a caller pause or the global timeout. Either
	// way the session checkpoints rather than fails.
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		s.setStopReason(ReasonTimeout)
	} else {
		s.setStopReason(ReasonPause)
	}

	s.mu.Lock()
	s.sess.Status = types.SessionPaused
	s.sess.StoppedReason = s.stopReason
	s.mu.Unlock()

	if _, err := o.store.Save(s.snapshot()); err != nil {
		s.runErr = fmt.Errorf("saving pause checkpoint: %w", err)
	}
}

// tierHasPending reports whether the tier still has work. When run starts, a
// tier's tasks are either pending or carried over as succeeded from an
// earlier run, so the not-yet-succeeded set is exactly the runnable one.
func (o *Orchestrator) tierHasPending(s *session, tierIndex int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.sess.PendingTasks() {
		if t.TierIndex == tierIndex {
			return true
		}
	}
	return false
}

// taskMsg is what a worker reports back to the collection loop. A worker
// sends one started message and exactly one terminal message.
type taskMsg struct {
	engineIndex int
	started     bool
	results     []types.CandidateResult
	err         error
}

// runTier dispatches the tier's pending tasks under the tier's concurrency
// gate and inter-dispatch delay, then collects results until all workers
// report or the grace period after cancellation expires. Returns the raw
// candidates from tasks that succeeded cleanly.
func (o *Orchestrator) runTier(ctx context.Context, s *session, tierIndex int, tier types.Tier, query types.SearchQuery) []types.CandidateResult {
	weight := int64(tier.Concurrency)
	if tier.Sequential {
		weight = 1
	}
	sem := semaphore.NewWeighted(weight)

	var limiter *rate.Limiter
	if tier.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(tier.Delay), 1)
	}

	var pending []int
	s.mu.RLock()
	for _, t := range s.sess.Tasks {
		if t.TierIndex == tierIndex && t.State == types.TaskPending {
			pending = append(pending, t.EngineIndex)
		}
	}
	s.mu.RUnlock()

	// Two messages per worker; the buffer lets workers exit even if the
	// collector stops reading after the grace period.
	ch := make(chan taskMsg, 2*len(pending))
	var wg sync.WaitGroup

	for _, ei := range pending {
		wg.Add(1)
		go func(ei int, engine string) {
			defer wg.Done()

			if err := sem.Acquire(ctx, 1); err != nil {
				ch <- taskMsg{engineIndex: ei, err: err}
				return
			}
			defer sem.Release(1)

			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					ch <- taskMsg{engineIndex: ei, err: err}
					return
				}
			}

			ch <- taskMsg{engineIndex: ei, started: true}

			adapter, ok := o.registry.Get(engine)
			if !ok {
				ch <- taskMsg{engineIndex: ei, err: fmt.Errorf("unknown engine %q", engine)}
				return
			}

			tctx := ctx
			if o.cfg.TaskTimeout > 0 {
				var cancel context.CancelFunc
				tctx, cancel = context.WithTimeout(ctx, o.cfg.TaskTimeout)
				defer cancel()
			}

			results, err := adapter.Search(tctx, query, o.cfg.MaxResultsPerEngine)
			ch <- taskMsg{engineIndex: ei, results: results, err: err}
		}(ei, tier.Engines[ei])
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	return o.collect(ctx, s, tierIndex, tier, ch)
}

// collect is the single-writer half of runTier: every session mutation for
// the tier happens here, in message order.
func (o *Orchestrator) collect(ctx context.Context, s *session, tierIndex int, tier types.Tier, ch <-chan taskMsg) []types.CandidateResult {
	var raw []types.CandidateResult

	ctxDone := ctx.Done()
	var grace <-chan time.Time

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return raw
			}
			raw = append(raw, o.apply(ctx, s, tierIndex, tier, msg)...)

		case <-ctxDone:
			// Keep collecting, but only for the grace period.
			ctxDone = nil
			grace = time.After(o.cfg.GracePeriod)

		case <-grace:
			o.forceCancel(s, tierIndex, tier)
			return raw
		}
	}
}

// apply folds one worker message into the session and returns any raw
// candidates it contributed. ctx is the session-level run context: a task
// error caused by its cancellation (pause or global timeout) marks the task
// cancelled, while a per-task timeout or adapter error marks it failed.
func (o *Orchestrator) apply(ctx context.Context, s *session, tierIndex int, tier types.Tier, msg taskMsg) []types.CandidateResult {
	now := time.Now().UTC()

	s.mu.Lock()
	task := s.sess.TaskFor(tierIndex, msg.engineIndex)
	if task == nil || task.State.Terminal() {
		s.mu.Unlock()
		return nil
	}

	var ev Event
	var contributed []types.CandidateResult

	switch {
	case msg.started:
		task.State = types.TaskRunning
		task.StartedAt = now
		ev = Event{Tier: tier.Name, Engine: task.Engine, Phase: PhaseStarted, Message: "engine started", Time: now}

	case msg.err != nil:
		task.FinishedAt = now
		sessionStopped := ctx.Err() != nil &&
			(errors.Is(msg.err, context.Canceled) || errors.Is(msg.err, context.DeadlineExceeded))
		if sessionStopped {
			// Cooperative cancellation from a pause or global timeout;
			// partial output from the adapter is discarded so the paused
			// result set is well-defined.
			task.State = types.TaskCancelled
			ev = Event{Tier: tier.Name, Engine: task.Engine, Phase: PhaseProgress, Message: "cancelled", Time: now}
		} else {
			task.State = types.TaskFailed
			task.Error = msg.err.Error()
			ev = Event{Tier: tier.Name, Engine: task.Engine, Phase: PhaseFailed, Message: msg.err.Error(), Time: now}
		}

	default:
		task.State = types.TaskSucceeded
		task.FinishedAt = now
		task.ResultCount = len(msg.results)
		contributed = make([]types.CandidateResult, len(msg.results))
		for i, r := range msg.results {
			r.Tier = tier.Name
			r.TierIndex = tierIndex
			r.EngineIndex = msg.engineIndex
			contributed[i] = r
		}
		ev = Event{Tier: tier.Name, Engine: task.Engine, Phase: PhaseSucceeded, Message: fmt.Sprintf("%d results", len(msg.results)), Time: now}
	}
	s.mu.Unlock()

	s.emit(ev)
	return contributed
}

// forceCancel marks the tier's still-running tasks cancelled after the
// grace period expired. Their output, if any arrives later, is discarded by
// apply's terminal-state check.
func (o *Orchestrator) forceCancel(s *session, tierIndex int, tier types.Tier) {
	now := time.Now().UTC()
	var stragglers []string

	s.mu.Lock()
	for i := range s.sess.Tasks {
		t := &s.sess.Tasks[i]
		if t.TierIndex == tierIndex && t.State == types.TaskRunning {
			t.State = types.TaskCancelled
			t.FinishedAt = now
			stragglers = append(stragglers, t.Engine)
		}
	}
	s.mu.Unlock()

	for _, engine := range stragglers {
		s.emit(Event{Tier: tier.Name, Engine: engine, Phase: PhaseProgress, Message: "cancelled after grace period", Time: now})
	}
}
