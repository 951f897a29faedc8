package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alexandreamato/spamanvil/internal/entity"
	"github.com/alexandreamato/spamanvil/internal/heuristics"
	"github.com/alexandreamato/spamanvil/internal/repository/postgresql"
)

// heuristicProvider names eval-log entries produced without a model call.
const heuristicProvider = "heuristic"

// backlogScanLimit bounds one backlog scan pass.
const backlogScanLimit = 50

// QueueRunner is the queue port intake needs.
type QueueRunner interface {
	Enqueue(ctx context.Context, submissionID uuid.UUID, heuristicScore int) (uuid.UUID, error)
	ProcessSingle(ctx context.Context, jobID uuid.UUID) error
}

// ReputationManager is the origin-reputation port intake needs.
type ReputationManager interface {
	IsBlocked(ctx context.Context, origin string) (bool, error)
	RecordSpamSignal(ctx context.Context, origin string) error
}

// Submission outcomes reported to the caller.
const (
	OutcomeBlocked   = "blocked"   // origin is currently blocked, nothing stored
	OutcomeSkipped   = "skipped"   // classification disabled, stored as pending
	OutcomeSpam      = "spam"      // heuristic auto-block, no provider call
	OutcomeQueued    = "queued"    // awaiting asynchronous scoring
	OutcomeProcessed = "processed" // scored synchronously
)

type SubmitRequest struct {
	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email"`
	AuthorURL   string `json:"author_url"`
	Content     string `json:"content"`
	PostTitle   string `json:"post_title"`
	PostExcerpt string `json:"post_excerpt"`
	OriginIP    string `json:"-"`
	// Privileged callers bypass origin blocking; the capability check
	// happens upstream.
	Privileged bool `json:"-"`
}

type SubmitResult struct {
	SubmissionID   uuid.UUID               `json:"submission_id,omitempty"`
	JobID          uuid.UUID               `json:"job_id,omitempty"`
	Outcome        string                  `json:"outcome"`
	Status         entity.SubmissionStatus `json:"status,omitempty"`
	HeuristicScore int                     `json:"heuristic_score"`
}

// ScanReport summarizes one backlog scan.
type ScanReport struct {
	Scanned int `json:"scanned"`
	Blocked int `json:"blocked"`
	Queued  int `json:"queued"`
}

// IntakeService is the entry point for new submissions: origin gate,
// heuristic pre-filter, then auto-block, enqueue or synchronous scoring.
type IntakeService struct {
	subs       SubmissionStore
	queue      QueueRunner
	logs       EvalLogSink
	engine     *heuristics.Engine
	reputation ReputationManager
	counters   Counters
	settings   Settings
	logger     zerolog.Logger
}

func NewIntakeService(
	subs SubmissionStore,
	queue QueueRunner,
	logs EvalLogSink,
	engine *heuristics.Engine,
	reputation ReputationManager,
	counters Counters,
	settings Settings,
	logger zerolog.Logger,
) *IntakeService {
	return &IntakeService{
		subs:       subs,
		queue:      queue,
		logs:       logs,
		engine:     engine,
		reputation: reputation,
		counters:   counters,
		settings:   settings,
		logger:     logger,
	}
}

func (s *IntakeService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	enabled, err := s.settings.Enabled(ctx)
	if err != nil {
		return nil, err
	}

	if enabled && !req.Privileged {
		blocked, err := s.reputation.IsBlocked(ctx, req.OriginIP)
		if err != nil {
			return nil, err
		}
		if blocked {
			s.counters.Incr(ctx, CounterOriginBlocked)
			s.logger.Info().Str("origin", maskOrigin(req.OriginIP)).Msg("submission rejected, origin blocked")
			return &SubmitResult{Outcome: OutcomeBlocked}, nil
		}
	}

	sub := &entity.Submission{
		AuthorName:  req.AuthorName,
		AuthorEmail: req.AuthorEmail,
		AuthorURL:   req.AuthorURL,
		Content:     req.Content,
		PostTitle:   req.PostTitle,
		PostExcerpt: req.PostExcerpt,
		OriginIP:    req.OriginIP,
		Status:      entity.SubmissionPending,
	}
	id, err := s.subs.Create(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("store submission: %w", err)
	}
	sub.ID = id

	if !enabled {
		return &SubmitResult{SubmissionID: id, Outcome: OutcomeSkipped, Status: entity.SubmissionPending}, nil
	}

	s.refreshEngine(ctx)
	analysis := s.engine.Analyze(heuristics.Input{
		Content:     sub.Content,
		AuthorName:  sub.AuthorName,
		AuthorEmail: sub.AuthorEmail,
		AuthorURL:   sub.AuthorURL,
	})

	autoSpam, err := s.settings.HeuristicAutoSpam(ctx)
	if err != nil {
		return nil, err
	}
	if analysis.Score >= autoSpam {
		if err := s.autoBlock(ctx, sub, analysis); err != nil {
			return nil, err
		}
		return &SubmitResult{
			SubmissionID:   id,
			Outcome:        OutcomeSpam,
			Status:         entity.SubmissionSpam,
			HeuristicScore: analysis.Score,
		}, nil
	}

	jobID, err := s.queue.Enqueue(ctx, id, analysis.Score)
	if err != nil {
		if errors.Is(err, postgresql.ErrAlreadyQueued) {
			return &SubmitResult{SubmissionID: id, Outcome: OutcomeQueued, Status: entity.SubmissionPending, HeuristicScore: analysis.Score}, nil
		}
		return nil, err
	}

	mode, err := s.settings.Mode(ctx)
	if err != nil {
		return nil, err
	}
	if mode != "sync" {
		return &SubmitResult{
			SubmissionID:   id,
			JobID:          jobID,
			Outcome:        OutcomeQueued,
			Status:         entity.SubmissionPending,
			HeuristicScore: analysis.Score,
		}, nil
	}

	// Synchronous mode scores inline; a failed attempt leaves the job on
	// the queue for the periodic pass to retry.
	if err := s.queue.ProcessSingle(ctx, jobID); err != nil {
		s.logger.Warn().Stringer("job_id", jobID).Err(err).Msg("synchronous scoring failed, job left queued")
		return &SubmitResult{
			SubmissionID:   id,
			JobID:          jobID,
			Outcome:        OutcomeQueued,
			Status:         entity.SubmissionPending,
			HeuristicScore: analysis.Score,
		}, nil
	}

	final, err := s.subs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{
		SubmissionID:   id,
		JobID:          jobID,
		Outcome:        OutcomeProcessed,
		Status:         final.Status,
		HeuristicScore: analysis.Score,
	}, nil
}

// ScanBacklog enqueues pending submissions that have no active job,
// applying the heuristic auto-block to each first.
func (s *IntakeService) ScanBacklog(ctx context.Context) (*ScanReport, error) {
	pending, err := s.subs.ListUnqueuedPending(ctx, backlogScanLimit)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}

	autoSpam, err := s.settings.HeuristicAutoSpam(ctx)
	if err != nil {
		return nil, err
	}
	s.refreshEngine(ctx)

	report := &ScanReport{Scanned: len(pending)}
	for i := range pending {
		sub := &pending[i]
		analysis := s.engine.Analyze(heuristics.Input{
			Content:     sub.Content,
			AuthorName:  sub.AuthorName,
			AuthorEmail: sub.AuthorEmail,
			AuthorURL:   sub.AuthorURL,
		})

		if analysis.Score >= autoSpam {
			if err := s.autoBlock(ctx, sub, analysis); err != nil {
				s.logger.Warn().Stringer("submission_id", sub.ID).Err(err).Msg("backlog auto-block failed")
				continue
			}
			report.Blocked++
			continue
		}

		if _, err := s.queue.Enqueue(ctx, sub.ID, analysis.Score); err != nil {
			if !errors.Is(err, postgresql.ErrAlreadyQueued) {
				s.logger.Warn().Stringer("submission_id", sub.ID).Err(err).Msg("backlog enqueue failed")
			}
			continue
		}
		report.Queued++
	}
	return report, nil
}

// autoBlock resolves a submission as spam on heuristic evidence alone.
func (s *IntakeService) autoBlock(ctx context.Context, sub *entity.Submission, analysis heuristics.Analysis) error {
	if err := s.subs.UpdateStatus(ctx, sub.ID, entity.SubmissionSpam); err != nil {
		return fmt.Errorf("mark spam: %w", err)
	}

	score := analysis.Score
	entry := entity.EvalLogEntry{
		SubmissionID:     sub.ID,
		Score:            &score,
		Provider:         heuristicProvider,
		Reason:           "heuristic score at or above auto-block threshold",
		HeuristicScore:   &score,
		HeuristicDetails: heuristics.FormatForPrompt(analysis),
	}
	if _, err := s.logs.Insert(ctx, &entry); err != nil {
		s.logger.Warn().Err(err).Msg("eval log write failed")
	}

	s.counters.Incr(ctx, CounterChecked)
	s.counters.Incr(ctx, CounterSpamDetected)
	s.counters.Incr(ctx, CounterHeuristicBlocked)

	if err := s.reputation.RecordSpamSignal(ctx, sub.OriginIP); err != nil {
		s.logger.Warn().Err(err).Msg("origin signal failed")
	}

	s.logger.Info().Stringer("submission_id", sub.ID).Int("heuristic_score", analysis.Score).
		Msg("submission auto-blocked by heuristics")
	return nil
}

func (s *IntakeService) refreshEngine(ctx context.Context) {
	if words, err := s.settings.SpamWords(ctx); err == nil {
		s.engine.SetWordList(words)
	}
	if locale, err := s.settings.SiteLanguage(ctx); err == nil {
		s.engine.SetLocale(locale)
	}
}
