// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pdiddy/websearch-pro/internal/checkpoint"
	"github.com/pdiddy/websearch-pro/internal/engines"
	"github.com/pdiddy/websearch-pro/pkg/types"
)

// fakeAdapter is a scriptable engine for orchestrator tests.
type fakeAdapter struct {
	name    string
	results []types.CandidateResult
	err     error

	// blockUntilCancel makes Search wait for ctx cancellation, simulating
	// a slow back-end that cooperates with pause.
	blockUntilCancel bool

	calls     int32
	startOnce sync.Once
	started   chan struct{}
}

func newFakeAdapter(name string, results ...types.CandidateResult) *fakeAdapter {
	return &fakeAdapter{name: name, results: results, started: make(chan struct{})}
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Search(ctx context.Context, q types.SearchQuery, limit int) ([]types.CandidateResult, error) {
	atomic.AddInt32(&f.calls, 1)
	f.startOnce.Do(func() { close(f.started) })

	if f.blockUntilCancel {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}

	out := make([]types.CandidateResult, len(f.results))
	for i, r := range f.results {
		r.Engine = f.name
		r.Rank = i + 1
		r.FetchedAt = time.Now().UTC()
		out[i] = r
	}
	return out, nil
}

func (f *fakeAdapter) callCount() int32 { return atomic.LoadInt32(&f.calls) }

func candidate(url, title string) types.CandidateResult {
	return types.CandidateResult{URL: url, Title: title, Snippet: "about " + title}
}

func testConfig() types.Config {
	return types.Config{
		Orchestrator: types.OrchestratorConfig{
			TaskTimeout: 5 * time.Second,
			GracePeriod: 200 * time.Millisecond,
		},
		Dedup: types.DedupConfig{SimilarityThreshold: 0.8},
	}
}

func testStore(t *testing.T) *checkpoint.Store {
	t.Helper()
	store, err := checkpoint.NewStore(types.CheckpointConfig{SessionsDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func testRegistry(t *testing.T, adapters ...engines.Adapter) *engines.Registry {
	t.Helper()
	r := engines.NewRegistry()
	for _, a := range adapters {
		if err := r.Register(a); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	return r
}

func singleTier(concurrency int, engineNames ...string) types.TierPlan {
	return types.TierPlan{Tiers: []types.Tier{
		{Name: "major", Engines: engineNames, Concurrency: concurrency, Enabled: true},
	}}
}

func pythonQuery() types.SearchQuery {
	return types.SearchQuery{Original: "python tutorial", RequiredTerms: []string{"python", "tutorial"}}
}

func waitDone(t *testing.T, h *SessionHandle) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

// --- plan validation ---

func TestStartRejectsBadPlans(t *testing.T) {
	o := New(testConfig(), testRegistry(t), testStore(t))

	tests := []struct {
		name string
		plan types.TierPlan
	}{
		{"empty plan", types.TierPlan{}},
		{"all tiers disabled", types.TierPlan{Tiers: []types.Tier{{Name: "t", Engines: []string{"a"}, Concurrency: 1}}}},
		{"no engines", types.TierPlan{Tiers: []types.Tier{{Name: "t", Enabled: true, Concurrency: 1}}}},
		{"zero concurrency", types.TierPlan{Tiers: []types.Tier{{Name: "t", Engines: []string{"a"}, Concurrency: 0, Enabled: true}}}},
		{"duplicate engine", types.TierPlan{Tiers: []types.Tier{{Name: "t", Engines: []string{"a", "a"}, Concurrency: 2, Enabled: true}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.Start(pythonQuery(), tt.plan, Options{})
			var planErr *PlanError
			if !errors.As(err, &planErr) {
				t.Errorf("Start error = %v, want a PlanError", err)
			}
		})
	}
}

func TestStartRejectsEmptyQuery(t *testing.T) {
	o := New(testConfig(), testRegistry(t, newFakeAdapter("a")), testStore(t))
	if _, err := o.Start(types.SearchQuery{}, singleTier(1, "a"), Options{}); err == nil {
		t.Error("Start accepted an empty query")
	}
}

// --- happy path ---

func TestRunToCompletion(t *testing.T) {
	a := newFakeAdapter("enginea", candidate("http://x.com/a", "Python Tutorial"))
	b := newFakeAdapter("engineb", candidate("http://y.com/b", "Learn Python"))
	o := New(testConfig(), testRegistry(t, a, b), testStore(t))

	h, err := o.Start(pythonQuery(), singleTier(2, "enginea", "engineb"), Options{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, h)

	ranked, err := o.Finish(context.Background(), h.ID)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("len(ranked) = %d, want 2", len(ranked))
	}

	sess := h.Session()
	if sess.Status != types.SessionCompleted {
		t.Errorf("Status = %s, want completed", sess.Status)
	}
	for _, task := range sess.Tasks {
		if task.State != types.TaskSucceeded {
			t.Errorf("task %s state = %s, want succeeded", task.Engine, task.State)
		}
		if task.ResultCount != 1 {
			t.Errorf("task %s ResultCount = %d, want 1", task.Engine, task.ResultCount)
		}
	}
}

// Mirrors the two-engine duplicate scenario: the same page found through a
// www-prefixed, trailing-slash variant collapses to one candidate credited
// to both engines.
func TestDuplicateCollapsedAcrossEngines(t *testing.T) {
	a := newFakeAdapter("enginea", candidate("http://x.com/a", "Python Tutorial"))
	b := newFakeAdapter("engineb", candidate("http://www.x.com/a/", "Python Tutorial"))
	o := New(testConfig(), testRegistry(t, a, b), testStore(t))

	h, err := o.Start(pythonQuery(), singleTier(2, "enginea", "engineb"), Options{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, h)

	ranked, err := o.Finish(context.Background(), h.ID)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if len(ranked) != 1 {
		t.Fatalf("len(ranked) = %d, want 1", len(ranked))
	}

	r := ranked[0]
	if r.NormalizedURL != "x.com/a" {
		t.Errorf("NormalizedURL = %q, want x.com/a", r.NormalizedURL)
	}
	if len(r.FoundBy) != 2 {
		t.Errorf("FoundBy = %v, want both engines", r.FoundBy)
	}
	// Both required terms appear in the title, so the title factor
	// contributes its full weight.
	if got := r.Breakdown["title_match"]; got != 20 {
		t.Errorf("title_match contribution = %v, want 20", got)
	}
}

// --- failure policy ---

func TestAdapterFailureIsNonFatal(t *testing.T) {
	good := newFakeAdapter("good", candidate("http://x.com/a", "Python Tutorial"))
	bad := newFakeAdapter("bad")
	bad.err = fmt.Errorf("connection refused")
	o := New(testConfig(), testRegistry(t, good, bad), testStore(t))

	h, err := o.Start(pythonQuery(), singleTier(2, "good", "bad"), Options{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, h)

	ranked, err := o.Finish(context.Background(), h.ID)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if len(ranked) != 1 {
		t.Fatalf("len(ranked) = %d, want the good engine's result", len(ranked))
	}

	sess := h.Session()
	if sess.Status != types.SessionCompleted {
		t.Errorf("Status = %s, want completed despite a failed task", sess.Status)
	}
	badTask := sess.TaskFor(0, 1)
	if badTask.State != types.TaskFailed {
		t.Errorf("bad task state = %s, want failed", badTask.State)
	}
	if badTask.Error == "" {
		t.Error("bad task has no recorded error")
	}
}

func TestBlacklistedResultsScreenedOut(t *testing.T) {
	a := newFakeAdapter("a",
		candidate("http://x.com/a", "Python Tutorial"),
		candidate("http://malware.example/py", "Python Tutorial Download"))
	cfg := testConfig()
	cfg.Safety = types.SafetyConfig{Enabled: true, Blacklist: []string{"malware.example"}}
	o := New(cfg, testRegistry(t, a), testStore(t))

	h, err := o.Start(pythonQuery(), singleTier(1, "a"), Options{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, h)

	ranked, err := o.Finish(context.Background(), h.ID)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if len(ranked) != 1 {
		t.Fatalf("len(ranked) = %d, want the blacklisted result dropped", len(ranked))
	}
	if ranked[0].URL != "http://x.com/a" {
		t.Errorf("survivor = %q, want the clean result", ranked[0].URL)
	}

	// The screened result never enters the candidate set either.
	sess := h.Session()
	for _, c := range sess.Candidates {
		if c.URL == "http://malware.example/py" {
			t.Error("blacklisted result found in session candidates")
		}
	}
}

func TestUnknownEngineFailsItsTaskOnly(t *testing.T) {
	good := newFakeAdapter("good", candidate("http://x.com/a", "Python Tutorial"))
	o := New(testConfig(), testRegistry(t, good), testStore(t))

	h, err := o.Start(pythonQuery(), singleTier(2, "good", "ghost"), Options{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, h)

	sess := h.Session()
	ghost := sess.TaskFor(0, 1)
	if ghost.State != types.TaskFailed {
		t.Errorf("ghost task state = %s, want failed", ghost.State)
	}
	if len(sess.Candidates) != 1 {
		t.Errorf("len(Candidates) = %d, want 1", len(sess.Candidates))
	}
}

// --- tier sequencing ---

func TestTiersRunInOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	mkAdapter := func(name string) *recordingAdapter {
		return &recordingAdapter{
			fakeAdapter: newFakeAdapter(name, candidate("http://"+name+".com/", name+" page")),
			mu:          &mu,
			order:       &order,
		}
	}
	a1, a2, b1 := mkAdapter("a1"), mkAdapter("a2"), mkAdapter("b1")
	o := New(testConfig(), testRegistry(t, a1, a2, b1), testStore(t))

	plan := types.TierPlan{Tiers: []types.Tier{
		{Name: "first", Engines: []string{"a1", "a2"}, Concurrency: 2, Enabled: true},
		{Name: "second", Engines: []string{"b1"}, Concurrency: 1, Enabled: true},
	}}
	h, err := o.Start(pythonQuery(), plan, Options{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, h)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 {
		t.Fatalf("order = %v, want 3 calls", order)
	}
	if order[2] != "b1" {
		t.Errorf("order = %v, want the second tier's engine last", order)
	}
}

// recordingAdapter appends its name to a shared slice when invoked.
type recordingAdapter struct {
	*fakeAdapter
	mu    *sync.Mutex
	order *[]string
}

func (r *recordingAdapter) Search(ctx context.Context, q types.SearchQuery, limit int) ([]types.CandidateResult, error) {
	r.mu.Lock()
	*r.order = append(*r.order, r.name)
	r.mu.Unlock()
	return r.fakeAdapter.Search(ctx, q, limit)
}

func TestDisabledTierSkipped(t *testing.T) {
	a := newFakeAdapter("a", candidate("http://a.com/", "a page"))
	skipped := newFakeAdapter("skipped", candidate("http://s.com/", "s page"))
	o := New(testConfig(), testRegistry(t, a, skipped), testStore(t))

	plan := types.TierPlan{Tiers: []types.Tier{
		{Name: "on", Engines: []string{"a"}, Concurrency: 1, Enabled: true},
		{Name: "off", Engines: []string{"skipped"}, Concurrency: 1, Enabled: false},
	}}
	h, err := o.Start(pythonQuery(), plan, Options{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, h)

	if skipped.callCount() != 0 {
		t.Errorf("disabled tier's engine was called %d times", skipped.callCount())
	}
	sess := h.Session()
	if len(sess.Tasks) != 1 {
		t.Errorf("len(Tasks) = %d, want only the enabled tier's task", len(sess.Tasks))
	}
}

// --- pause / resume ---

func TestPauseCheckpointsAndResumeSkipsSucceeded(t *testing.T) {
	fast := newFakeAdapter("fast", candidate("http://x.com/a", "Python Tutorial"))
	slow := newFakeAdapter("slow", candidate("http://y.com/b", "Python Basics"))
	slow.blockUntilCancel = true

	store := testStore(t)
	o := New(testConfig(), testRegistry(t, fast, slow), store)

	plan := types.TierPlan{Tiers: []types.Tier{
		{Name: "first", Engines: []string{"fast"}, Concurrency: 1, Enabled: true},
		{Name: "second", Engines: []string{"slow"}, Concurrency: 1, Enabled: true},
	}}
	h, err := o.Start(pythonQuery(), plan, Options{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Wait until the second tier's engine is actually in flight.
	select {
	case <-slow.started:
	case <-time.After(5 * time.Second):
		t.Fatal("slow engine never started")
	}

	checkpointID, err := o.Pause(h.ID)
	if err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if checkpointID != h.ID {
		t.Errorf("checkpoint id = %q, want session id %q", checkpointID, h.ID)
	}

	sess := h.Session()
	if sess.Status != types.SessionPaused {
		t.Fatalf("Status = %s, want paused", sess.Status)
	}
	if sess.StoppedReason != ReasonPause {
		t.Errorf("StoppedReason = %q, want %q", sess.StoppedReason, ReasonPause)
	}
	if got := sess.TaskFor(0, 0).State; got != types.TaskSucceeded {
		t.Errorf("first tier task state = %s, want succeeded", got)
	}
	if got := sess.TaskFor(1, 0).State; got != types.TaskCancelled {
		t.Errorf("second tier task state = %s, want cancelled", got)
	}
	if len(sess.Candidates) != 1 {
		t.Errorf("len(Candidates) at pause = %d, want the first tier's result", len(sess.Candidates))
	}

	// The checkpoint is durable and loadable.
	if _, err := store.Load(checkpointID); err != nil {
		t.Fatalf("Load after pause: %v", err)
	}

	// Resume with the slow engine now cooperative.
	slow.blockUntilCancel = false
	h2, err := o.Resume(checkpointID, Options{})
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	waitDone(t, h2)

	ranked, err := o.Finish(context.Background(), h2.ID)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("len(ranked) = %d, want results from both tiers", len(ranked))
	}

	// The first tier succeeded before the pause and must not re-run.
	if fast.callCount() != 1 {
		t.Errorf("fast engine called %d times, want 1", fast.callCount())
	}
	if slow.callCount() != 2 {
		t.Errorf("slow engine called %d times, want 2 (cancelled, then re-run)", slow.callCount())
	}
}

func TestGlobalTimeoutPausesWithReason(t *testing.T) {
	slow := newFakeAdapter("slow", candidate("http://y.com/b", "Python Basics"))
	slow.blockUntilCancel = true

	store := testStore(t)
	o := New(testConfig(), testRegistry(t, slow), store)

	h, err := o.Start(pythonQuery(), singleTier(1, "slow"), Options{GlobalTimeout: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, h)

	sess := h.Session()
	if sess.Status != types.SessionPaused {
		t.Fatalf("Status = %s, want paused", sess.Status)
	}
	if sess.StoppedReason != ReasonTimeout {
		t.Errorf("StoppedReason = %q, want %q", sess.StoppedReason, ReasonTimeout)
	}
	if _, err := store.Load(h.ID); err != nil {
		t.Fatalf("Load after timeout: %v", err)
	}
}

func TestFinishPausedSessionErrors(t *testing.T) {
	slow := newFakeAdapter("slow", candidate("http://y.com/b", "Python Basics"))
	slow.blockUntilCancel = true
	o := New(testConfig(), testRegistry(t, slow), testStore(t))

	h, err := o.Start(pythonQuery(), singleTier(1, "slow"), Options{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-slow.started:
	case <-time.After(5 * time.Second):
		t.Fatal("slow engine never started")
	}
	if _, err := o.Pause(h.ID); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	if _, err := o.Finish(context.Background(), h.ID); err == nil {
		t.Error("Finish succeeded on a paused session")
	}
}

func TestResumeCompletedSessionErrors(t *testing.T) {
	store := testStore(t)
	sess := types.SearchSession{
		ID:     "done-session",
		Query:  pythonQuery(),
		Plan:   singleTier(1, "a"),
		Status: types.SessionCompleted,
	}
	if _, err := store.Save(sess); err != nil {
		t.Fatalf("Save: %v", err)
	}

	o := New(testConfig(), testRegistry(t, newFakeAdapter("a")), store)
	if _, err := o.Resume("done-session", Options{}); err == nil {
		t.Error("Resume accepted a completed session")
	}
}

// --- progress events ---

func TestProgressEvents(t *testing.T) {
	a := newFakeAdapter("a", candidate("http://a.com/", "a page"))
	bad := newFakeAdapter("bad")
	bad.err = fmt.Errorf("boom")
	o := New(testConfig(), testRegistry(t, a, bad), testStore(t))

	var mu sync.Mutex
	var events []Event
	progress := func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}

	h, err := o.Start(pythonQuery(), singleTier(2, "a", "bad"), Options{Progress: progress})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitDone(t, h)

	mu.Lock()
	defer mu.Unlock()

	phases := make(map[string]map[Phase]bool)
	for _, ev := range events {
		if ev.Time.IsZero() {
			t.Error("event has no timestamp")
		}
		if phases[ev.Engine] == nil {
			phases[ev.Engine] = make(map[Phase]bool)
		}
		phases[ev.Engine][ev.Phase] = true
	}

	if !phases["a"][PhaseStarted] || !phases["a"][PhaseSucceeded] {
		t.Errorf("engine a phases = %v, want started and succeeded", phases["a"])
	}
	if !phases["bad"][PhaseFailed] {
		t.Errorf("engine bad phases = %v, want failed", phases["bad"])
	}
	if !phases[""][PhaseProgress] {
		t.Errorf("tier-level phases = %v, want a progress event", phases[""])
	}
}

func TestUnknownSession(t *testing.T) {
	o := New(testConfig(), testRegistry(t), testStore(t))
	if _, err := o.Pause("nope"); err == nil {
		t.Error("Pause accepted an unknown session")
	}
	if _, err := o.Finish(context.Background(), "nope"); err == nil {
		t.Error("Finish accepted an unknown session")
	}
	if _, err := o.Session("nope"); err == nil {
		t.Error("Session accepted an unknown session")
	}
}
