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
	"github.com/scanmatch-inc/scanmatch-engine/pkg/models"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/prompts"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/repositories"
)

// transcriptContextLimit bounds how many recent messages are replayed as
// model context per coach turn.
const transcriptContextLimit = 20

// CoachService runs the career-coach conversation for paid users.
type CoachService interface {
	// Send appends the user's message, gets the coach's reply from the
	// oracle, and appends it to the transcript.
	Send(ctx context.Context, userID uuid.UUID, message string) (*models.ChatMessage, error)

	// History returns the user's transcript in chronological order.
	History(ctx context.Context, userID uuid.UUID) ([]*models.ChatMessage, error)

	// Reset clears the user's transcript.
	Reset(ctx context.Context, userID uuid.UUID) error
}

// coachService implements CoachService.
type coachService struct {
	client        llm.Client
	chats         repositories.ChatRepository
	scans         repositories.ScanRepository
	subscriptions SubscriptionService
	temperature   float64
	callTimeout   time.Duration
	logger        *zap.Logger
}

// NewCoachService creates a coach service.
func NewCoachService(
	client llm.Client,
	chats repositories.ChatRepository,
	scans repositories.ScanRepository,
	subscriptions SubscriptionService,
	temperature float64,
	callTimeout time.Duration,
	logger *zap.Logger,
) CoachService {
	return &coachService{
		client:        client,
		chats:         chats,
		scans:         scans,
		subscriptions: subscriptions,
		temperature:   temperature,
		callTimeout:   callTimeout,
		logger:        logger,
	}
}

// Send runs one coach turn. The user's most recent scan analysis, when one
// exists, is embedded in the system message as conversational context.
func (c *coachService) Send(ctx context.Context, userID uuid.UUID, message string) (*models.ChatMessage, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", apperrors.ErrValidation)
	}

	summary, err := c.subscriptions.Resolve(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve subscription: %w", err)
	}
	if !models.CanUseCoach(summary.Tier) {
		return nil, fmt.Errorf("%w: the coach requires a paid plan", apperrors.ErrFeatureNotInTier)
	}

	transcript, err := c.chats.ListByUserID(ctx, userID, transcriptContextLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}

	var analysis *models.ScanAnalysis
	if recent, err := c.scans.ListByUserID(ctx, userID, 1); err == nil && len(recent) > 0 {
		analysis = recent[0].Analysis
	}

	messages := make([]llm.Message, 0, len(transcript)+1)
	for _, m := range transcript {
		role := llm.RoleUser
		if m.Role == models.ChatRoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	result, err := c.client.Complete(callCtx, llm.CompletionRequest{
		System:      prompts.BuildCoachSystem(analysis),
		Messages:    messages,
		Temperature: c.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	userMsg := &models.ChatMessage{UserID: userID, Role: models.ChatRoleUser, Content: message}
	if err := c.chats.Append(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to append user message: %w", err)
	}

	reply := &models.ChatMessage{UserID: userID, Role: models.ChatRoleAssistant, Content: result.Content}
	if err := c.chats.Append(ctx, reply); err != nil {
		return nil, fmt.Errorf("failed to append coach reply: %w", err)
	}

	c.logger.Debug("coach turn completed",
		zap.String("user_id", userID.String()),
		zap.Int("context_messages", len(messages)))

	return reply, nil
}

// History returns the user's transcript in chronological order.
func (c *coachService) History(ctx context.Context, userID uuid.UUID) ([]*models.ChatMessage, error) {
	return c.chats.ListByUserID(ctx, userID, 0)
}

// Reset clears the user's transcript.
func (c *coachService) Reset(ctx context.Context, userID uuid.UUID) error {
	return c.chats.Clear(ctx, userID)
}
