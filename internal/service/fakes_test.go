package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alexandreamato/spamanvil/internal/entity"
	"github.com/alexandreamato/spamanvil/internal/provider"
	"github.com/alexandreamato/spamanvil/internal/repository/postgresql"
)

type stubSettings struct {
	enabled         bool
	mode            string
	threshold       int
	autoSpam        int
	batchSize       int
	providers       []string
	anvil           bool
	originEnabled   bool
	originThreshold int
	language        string
	systemPrompt    string
	userPrompt      string
	words           []string
	retentionDays   int
}

func defaultStubSettings() *stubSettings {
	return &stubSettings{
		enabled:         true,
		mode:            "async",
		threshold:       70,
		autoSpam:        95,
		batchSize:       5,
		providers:       []string{"openai"},
		originEnabled:   true,
		originThreshold: 3,
		language:        "en_US",
		systemPrompt:    "system prompt",
		userPrompt:      "score {heuristic_score}: {comment_content}",
		words:           []string{"casino"},
		retentionDays:   30,
	}
}

func (s *stubSettings) Enabled(context.Context) (bool, error)             { return s.enabled, nil }
func (s *stubSettings) Mode(context.Context) (string, error)              { return s.mode, nil }
func (s *stubSettings) SpamThreshold(context.Context) (int, error)        { return s.threshold, nil }
func (s *stubSettings) HeuristicAutoSpam(context.Context) (int, error)    { return s.autoSpam, nil }
func (s *stubSettings) BatchSize(context.Context) (int, error)            { return s.batchSize, nil }
func (s *stubSettings) ProviderOrder(context.Context) ([]string, error)   { return s.providers, nil }
func (s *stubSettings) AnvilMode(context.Context) (bool, error)           { return s.anvil, nil }
func (s *stubSettings) OriginBlockingEnabled(context.Context) (bool, error) {
	return s.originEnabled, nil
}
func (s *stubSettings) OriginBlockThreshold(context.Context) (int, error) {
	return s.originThreshold, nil
}
func (s *stubSettings) SiteLanguage(context.Context) (string, error)    { return s.language, nil }
func (s *stubSettings) SystemPrompt(context.Context) (string, error)    { return s.systemPrompt, nil }
func (s *stubSettings) UserPrompt(context.Context) (string, error)      { return s.userPrompt, nil }
func (s *stubSettings) SpamWords(context.Context) ([]string, error)     { return s.words, nil }
func (s *stubSettings) LogRetentionDays(context.Context) (int, error)   { return s.retentionDays, nil }

// fakeJobs mirrors the repository's SQL semantics in memory.
type fakeJobs struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*entity.Job
	now  func() time.Time
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{byID: make(map[uuid.UUID]*entity.Job), now: time.Now}
}

func activeJob(j *entity.Job) bool {
	switch j.Status {
	case entity.StatusQueued, entity.StatusProcessing, entity.StatusFailed, entity.StatusMaxRetries:
		return true
	}
	return false
}

func (f *fakeJobs) Enqueue(_ context.Context, submissionID uuid.UUID, heuristicScore int) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.byID {
		if j.SubmissionID == submissionID && activeJob(j) {
			return uuid.Nil, postgresql.ErrAlreadyQueued
		}
	}
	j := &entity.Job{
		ID:             uuid.New(),
		SubmissionID:   submissionID,
		Status:         entity.StatusQueued,
		HeuristicScore: heuristicScore,
		CreatedAt:      f.now(),
		UpdatedAt:      f.now(),
	}
	f.byID[j.ID] = j
	return j.ID, nil
}

func (f *fakeJobs) GetByID(_ context.Context, id uuid.UUID) (*entity.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.byID[id]
	if !ok {
		return nil, postgresql.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

// setStatus moves a job along the lifecycle, rejecting edges the SQL
// status guards would never produce.
func (f *fakeJobs) setStatus(j *entity.Job, to entity.JobStatus) error {
	if !entity.IsTransitionAllowed(j.Status, to) {
		return fmt.Errorf("illegal job transition %s -> %s", j.Status, to)
	}
	j.Status = to
	j.UpdatedAt = f.now()
	return nil
}

func (f *fakeJobs) ReclaimStale(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, j := range f.byID {
		if j.Status == entity.StatusProcessing && j.UpdatedAt.Before(cutoff) {
			if err := f.setStatus(j, entity.StatusQueued); err != nil {
				return n, err
			}
			j.RetryAt = nil
			n++
		}
	}
	return n, nil
}

func (f *fakeJobs) SelectClaimable(_ context.Context, limit int, forced bool, now time.Time) ([]entity.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.Job
	for _, j := range f.byID {
		switch j.Status {
		case entity.StatusQueued:
		case entity.StatusFailed:
			if !forced && j.RetryAt != nil && j.RetryAt.After(now) {
				continue
			}
		case entity.StatusMaxRetries:
			if !forced {
				continue
			}
		default:
			continue
		}
		out = append(out, *j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeJobs) MarkProcessing(_ context.Context, ids []uuid.UUID, forced bool) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, id := range ids {
		j, ok := f.byID[id]
		if !ok {
			continue
		}
		claimable := j.Status == entity.StatusQueued || j.Status == entity.StatusFailed ||
			(forced && j.Status == entity.StatusMaxRetries)
		if !claimable {
			continue
		}
		if err := f.setStatus(j, entity.StatusProcessing); err != nil {
			return n, err
		}
		if forced {
			j.Attempts = 0
			j.RetryAt = nil
		}
		n++
	}
	return n, nil
}

func (f *fakeJobs) Complete(_ context.Context, id uuid.UUID, score int, reason, providerName, model string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.byID[id]
	if !ok {
		return postgresql.ErrNotFound
	}
	if err := f.setStatus(j, entity.StatusCompleted); err != nil {
		return err
	}
	j.Score = &score
	j.Reason = reason
	j.Provider = providerName
	j.Model = model
	j.RetryAt = nil
	return nil
}

func (f *fakeJobs) Fail(_ context.Context, id uuid.UUID, attempts int, reason string, retryAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.byID[id]
	if !ok {
		return postgresql.ErrNotFound
	}
	if err := f.setStatus(j, entity.StatusFailed); err != nil {
		return err
	}
	j.Attempts = attempts
	j.Reason = reason
	j.RetryAt = &retryAt
	return nil
}

func (f *fakeJobs) ExhaustRetries(_ context.Context, id uuid.UUID, attempts int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.byID[id]
	if !ok {
		return postgresql.ErrNotFound
	}
	if err := f.setStatus(j, entity.StatusMaxRetries); err != nil {
		return err
	}
	j.Attempts = attempts
	j.Reason = reason
	j.RetryAt = nil
	return nil
}

func (f *fakeJobs) StatusCounts(context.Context) (*entity.QueueStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var qs entity.QueueStatus
	for _, j := range f.byID {
		switch j.Status {
		case entity.StatusQueued:
			qs.Queued++
		case entity.StatusProcessing:
			qs.Processing++
		case entity.StatusFailed:
			qs.Failed++
		case entity.StatusMaxRetries:
			qs.MaxRetries++
		case entity.StatusCompleted:
			qs.Completed++
		}
	}
	return &qs, nil
}

func (f *fakeJobs) DeleteCompletedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, j := range f.byID {
		if entity.IsTerminal(j.Status) && j.UpdatedAt.Before(cutoff) {
			delete(f.byID, id)
			n++
		}
	}
	return n, nil
}

type fakeSubs struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*entity.Submission
	unqueued []entity.Submission
}

func newFakeSubs() *fakeSubs {
	return &fakeSubs{byID: make(map[uuid.UUID]*entity.Submission)}
}

func (f *fakeSubs) Create(_ context.Context, s *entity.Submission) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	cp.ID = uuid.New()
	cp.CreatedAt = time.Now()
	f.byID[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeSubs) GetByID(_ context.Context, id uuid.UUID) (*entity.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return nil, postgresql.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSubs) UpdateStatus(_ context.Context, id uuid.UUID, status entity.SubmissionStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return postgresql.ErrNotFound
	}
	s.Status = status
	return nil
}

func (f *fakeSubs) ListUnqueuedPending(context.Context, int) ([]entity.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unqueued, nil
}

func (f *fakeSubs) add(s entity.Submission) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	f.byID[s.ID] = &s
	return s.ID
}

type fakeLogs struct {
	mu      sync.Mutex
	entries []entity.EvalLogEntry
	pairs   []postgresql.ScoredPair
}

func (f *fakeLogs) Insert(_ context.Context, e *entity.EvalLogEntry) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, *e)
	return e.ID, nil
}

func (f *fakeLogs) List(_ context.Context, _ string, _, _ int) ([]entity.EvalLogEntry, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries, len(f.entries), nil
}

func (f *fakeLogs) ScoredPairs(context.Context) ([]postgresql.ScoredPair, error) {
	return f.pairs, nil
}

func (f *fakeLogs) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.entries[:0]
	var n int64
	for _, e := range f.entries {
		if e.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	f.entries = kept
	return n, nil
}

type fakeLease struct {
	mu   sync.Mutex
	busy bool
}

func (f *fakeLease) Acquire(context.Context, string, time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		return false, nil
	}
	f.busy = true
	return true, nil
}

func (f *fakeLease) Release(context.Context, string) error {
	f.mu.Lock()
	f.busy = false
	f.mu.Unlock()
	return nil
}

type fakeCounters struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFakeCounters() *fakeCounters {
	return &fakeCounters{counts: make(map[string]int)}
}

func (f *fakeCounters) Incr(_ context.Context, key string) {
	f.mu.Lock()
	f.counts[key]++
	f.mu.Unlock()
}

func (f *fakeCounters) get(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[key]
}

type fakeOrigins struct {
	mu     sync.Mutex
	byHash map[string]*entity.OriginRecord
	nextID int64
}

func newFakeOrigins() *fakeOrigins {
	return &fakeOrigins{byHash: make(map[string]*entity.OriginRecord)}
}

func (f *fakeOrigins) GetByHash(_ context.Context, hash string) (*entity.OriginRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.byHash[hash]
	if !ok {
		return nil, postgresql.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeOrigins) Insert(_ context.Context, rec *entity.OriginRecord) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *rec
	cp.ID = f.nextID
	f.byHash[cp.OriginHash] = &cp
	return cp.ID, nil
}

func (f *fakeOrigins) Update(_ context.Context, rec *entity.OriginRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byHash[rec.OriginHash]
	if !ok {
		return postgresql.ErrNotFound
	}
	cp := *rec
	cp.ID = stored.ID
	f.byHash[rec.OriginHash] = &cp
	return nil
}

func (f *fakeOrigins) List(context.Context, int, int) ([]entity.OriginRecord, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.OriginRecord
	for _, rec := range f.byHash {
		out = append(out, *rec)
	}
	return out, len(out), nil
}

func (f *fakeOrigins) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for hash, rec := range f.byHash {
		if rec.ID == id {
			delete(f.byHash, hash)
			return nil
		}
	}
	return postgresql.ErrNotFound
}

// stubProvider returns a fixed result or error.
type stubProvider struct {
	name  string
	model string
	res   *provider.Result
	err   error
	calls int
}

func (p *stubProvider) Name() string  { return p.name }
func (p *stubProvider) Model() string { return p.model }

func (p *stubProvider) Analyze(context.Context, string, string) (*provider.Result, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	cp := *p.res
	return &cp, nil
}

func (p *stubProvider) TestConnection(context.Context) (*provider.TestResult, error) {
	return &provider.TestResult{Model: p.model}, nil
}

type stubFactory struct {
	providers map[string]*stubProvider
	errs      map[string]error
}

func (f *stubFactory) Create(_ context.Context, slug string) (provider.Provider, error) {
	if err, ok := f.errs[slug]; ok {
		return nil, err
	}
	p, ok := f.providers[slug]
	if !ok {
		return nil, &provider.ConfigError{Slug: slug, Field: "api key"}
	}
	return p, nil
}

func scoredResult(slug string, score int) *provider.Result {
	return &provider.Result{Score: score, Reason: "r", Provider: slug, Model: "m", ProcessingTimeMS: 5}
}

// fakeSelector scripts the scoring outcome directly.
type fakeSelector struct {
	result   *provider.Result
	attempts []Attempt
	err      error
	calls    int
}

func (f *fakeSelector) Score(context.Context, []string, bool, string, string) (*provider.Result, []Attempt, error) {
	f.calls++
	return f.result, f.attempts, f.err
}

type fakeReputation struct {
	blocked  bool
	signals  []string
}

func (f *fakeReputation) IsBlocked(context.Context, string) (bool, error) {
	return f.blocked, nil
}

func (f *fakeReputation) RecordSpamSignal(_ context.Context, origin string) error {
	f.signals = append(f.signals, origin)
	return nil
}

type fakeQueueRunner struct {
	jobs         *fakeJobs
	processErr   error
	onProcess    func(jobID uuid.UUID)
	processCalls int
}

func (f *fakeQueueRunner) Enqueue(ctx context.Context, submissionID uuid.UUID, heuristicScore int) (uuid.UUID, error) {
	return f.jobs.Enqueue(ctx, submissionID, heuristicScore)
}

func (f *fakeQueueRunner) ProcessSingle(_ context.Context, jobID uuid.UUID) error {
	f.processCalls++
	if f.processErr != nil {
		return f.processErr
	}
	if f.onProcess != nil {
		f.onProcess(jobID)
	}
	return nil
}
