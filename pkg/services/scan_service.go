package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scanmatch-inc/scanmatch-engine/pkg/apperrors"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/llm"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/logging"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/models"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/prompts"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/repositories"
)

// ParseError reports that the oracle's output could not be parsed as a scan
// analysis. Raw carries the unmodified response text so the caller can
// display or log it; the result is never silently coerced into a default
// structure.
type ParseError struct {
	Raw   string
	cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: %v", apperrors.ErrUnparseableResponse, e.cause)
}

// Unwrap lets errors.Is match apperrors.ErrUnparseableResponse.
func (e *ParseError) Unwrap() error {
	return apperrors.ErrUnparseableResponse
}

// QuotaError reports a rejected scan with the usage that caused it, so the
// caller can render an upgrade prompt.
type QuotaError struct {
	Used  int
	Limit int
}

// Error implements the error interface.
func (e *QuotaError) Error() string {
	return fmt.Sprintf("%v: %d of %d scans used", apperrors.ErrScanLimitReached, e.Used, e.Limit)
}

// Unwrap lets errors.Is match apperrors.ErrScanLimitReached.
func (e *QuotaError) Unwrap() error {
	return apperrors.ErrScanLimitReached
}

// ScanOutcome is the result of one scan: the parsed analysis, plus the
// persisted record when the identity is authenticated. Anonymous scans are
// never persisted server-side; the caller mirrors the payload into local
// client storage instead.
type ScanOutcome struct {
	Analysis *models.ScanAnalysis
	Scan     *models.Scan // nil for anonymous identities
	Decision Decision
}

// ScanService orchestrates resume/job-description analysis.
type ScanService interface {
	Analyze(ctx context.Context, identity models.Identity, resumeText, jobDescription string) (*ScanOutcome, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Scan, error)
	GetScan(ctx context.Context, userID, scanID uuid.UUID) (*models.Scan, error)
	DeleteScan(ctx context.Context, userID, scanID uuid.UUID) error

	// InterviewQuestions regenerates a practice question set from a saved
	// scan's resume and job description.
	InterviewQuestions(ctx context.Context, userID, scanID uuid.UUID) ([]models.InterviewQuestion, error)
}

// scanService implements ScanService.
type scanService struct {
	client        llm.Client
	scans         repositories.ScanRepository
	subscriptions SubscriptionService
	gate          UsageGate
	temperature   float64
	callTimeout   time.Duration
	logger        *zap.Logger
}

// NewScanService creates a scan service.
func NewScanService(
	client llm.Client,
	scans repositories.ScanRepository,
	subscriptions SubscriptionService,
	gate UsageGate,
	temperature float64,
	callTimeout time.Duration,
	logger *zap.Logger,
) ScanService {
	return &scanService{
		client:        client,
		scans:         scans,
		subscriptions: subscriptions,
		gate:          gate,
		temperature:   temperature,
		callTimeout:   callTimeout,
		logger:        logger,
	}
}

// Analyze runs one resume/job-description comparison through the oracle.
//
// Validation failures and quota rejections return before any oracle call is
// made. The oracle call is a single attempt: upstream failures surface to
// the caller as retryable without an automatic retry here. Unparseable
// output returns a *ParseError carrying the raw text and persists nothing.
func (s *scanService) Analyze(ctx context.Context, identity models.Identity, resumeText, jobDescription string) (*ScanOutcome, error) {
	resumeText = strings.TrimSpace(resumeText)
	jobDescription = strings.TrimSpace(jobDescription)
	if resumeText == "" {
		return nil, fmt.Errorf("%w: resume text is required", apperrors.ErrValidation)
	}
	if jobDescription == "" {
		return nil, fmt.Errorf("%w: job description is required", apperrors.ErrValidation)
	}

	tier := models.TierFree
	if !identity.IsAnonymous() {
		summary, err := s.subscriptions.Resolve(ctx, identity.UserID())
		if err != nil {
			return nil, fmt.Errorf("failed to resolve subscription: %w", err)
		}
		tier = summary.Tier
	}

	decision, err := s.gate.Allow(ctx, identity, tier)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		limit := 0
		if decision.Limit != nil {
			limit = *decision.Limit
		}
		return nil, &QuotaError{Used: decision.Used, Limit: limit}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	s.logger.Debug("starting scan analysis",
		zap.String("identity", identity.Key()),
		zap.String("tier", tier),
		zap.String("resume_preview", logging.TruncateForLog(resumeText, 80)),
		zap.String("job_preview", logging.TruncateForLog(jobDescription, 80)))

	result, err := s.client.Complete(callCtx, llm.CompletionRequest{
		System: prompts.ScanSystemMessage,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: prompts.BuildScanPrompt(resumeText, jobDescription)},
		},
		Temperature: s.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	analysis, err := llm.ParseJSONResponse[models.ScanAnalysis](result.Content)
	if err != nil {
		s.logger.Warn("scan analysis response was not parseable",
			zap.String("identity", identity.Key()),
			zap.String("response_preview", logging.TruncateForLog(result.Content, 200)),
			zap.Error(err))
		return nil, &ParseError{Raw: result.Content, cause: err}
	}

	outcome := &ScanOutcome{Analysis: &analysis, Decision: decision}

	if !identity.IsAnonymous() {
		scan := &models.Scan{
			UserID:         identity.UserID(),
			ResumeText:     resumeText,
			JobDescription: jobDescription,
			Analysis:       &analysis,
		}
		if err := s.scans.Create(ctx, scan); err != nil {
			// Persistence writes are not retried; the failure is surfaced.
			return nil, fmt.Errorf("failed to persist scan: %w", err)
		}
		outcome.Scan = scan
	}

	if err := s.gate.Record(ctx, identity); err != nil {
		// The scan itself succeeded; a lost increment only loosens the
		// already-soft cap.
		s.logger.Warn("failed to record scan usage",
			zap.String("identity", identity.Key()),
			zap.Error(err))
	}

	return outcome, nil
}

// History lists a user's saved scans, newest first. Durable history is a
// paid feature.
func (s *scanService) History(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Scan, error) {
	summary, err := s.subscriptions.Resolve(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve subscription: %w", err)
	}
	if !models.CanSaveHistory(summary.Tier) {
		return nil, fmt.Errorf("%w: scan history requires a paid plan", apperrors.ErrFeatureNotInTier)
	}

	return s.scans.ListByUserID(ctx, userID, limit)
}

// GetScan retrieves one of the user's saved scans.
func (s *scanService) GetScan(ctx context.Context, userID, scanID uuid.UUID) (*models.Scan, error) {
	return s.scans.GetByID(ctx, userID, scanID)
}

// DeleteScan removes one of the user's saved scans.
func (s *scanService) DeleteScan(ctx context.Context, userID, scanID uuid.UUID) error {
	return s.scans.Delete(ctx, userID, scanID)
}

// InterviewQuestions regenerates practice questions for a saved scan. The
// stored scan is not modified; regenerated sets are returned to the caller
// only.
func (s *scanService) InterviewQuestions(ctx context.Context, userID, scanID uuid.UUID) ([]models.InterviewQuestion, error) {
	scan, err := s.scans.GetByID(ctx, userID, scanID)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	result, err := s.client.Complete(callCtx, llm.CompletionRequest{
		System: prompts.ScanSystemMessage,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: prompts.BuildInterviewPrompt(scan.ResumeText, scan.JobDescription)},
		},
		Temperature: s.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	questions, err := llm.ParseJSONResponse[[]models.InterviewQuestion](result.Content)
	if err != nil {
		s.logger.Warn("interview question response was not parseable",
			zap.String("user_id", userID.String()),
			zap.String("response_preview", logging.TruncateForLog(result.Content, 200)),
			zap.Error(err))
		return nil, &ParseError{Raw: result.Content, cause: err}
	}

	return questions, nil
}
