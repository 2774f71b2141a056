package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/scanmatch-inc/scanmatch-engine/pkg/apperrors"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/auth"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/models"
	"github.com/scanmatch-inc/scanmatch-engine/pkg/repositories"
)

// Session is a minted session token plus the account it belongs to.
type Session struct {
	Token   string
	Account *models.Account
}

// AccountService handles sign-up and sign-in.
type AccountService interface {
	// SignUp registers a new account and returns a session for it.
	SignUp(ctx context.Context, email, password string) (*Session, error)

	// SignIn verifies credentials and returns a session. Unknown emails and
	// wrong passwords both return apperrors.ErrInvalidCredentials.
	SignIn(ctx context.Context, email, password string) (*Session, error)
}

// accountService implements AccountService.
type accountService struct {
	accounts repositories.AccountRepository
	issuer   *auth.TokenIssuer
	logger   *zap.Logger
}

// NewAccountService creates an account service.
func NewAccountService(accounts repositories.AccountRepository, issuer *auth.TokenIssuer, logger *zap.Logger) AccountService {
	return &accountService{
		accounts: accounts,
		issuer:   issuer,
		logger:   logger,
	}
}

// SignUp registers a new account.
func (a *accountService) SignUp(ctx context.Context, email, password string) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	account := &models.Account{
		Email:        email,
		PasswordHash: hash,
	}
	if err := a.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("%w: email already registered", apperrors.ErrConflict)
		}
		return nil, err
	}

	a.logger.Info("account created", zap.String("user_id", account.ID.String()))

	return a.startSession(account)
}

// SignIn verifies credentials and mints a session.
func (a *accountService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	account, err := a.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Same failure as a wrong password so callers cannot probe for
			// registered emails.
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.CheckPassword(account.PasswordHash, password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	return a.startSession(account)
}

// startSession mints a token for an account.
func (a *accountService) startSession(account *models.Account) (*Session, error) {
	token, err := a.issuer.Generate(account.ID, account.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}
	return &Session{Token: token, Account: account}, nil
}

// normalizeEmail lowercases and validates an email address.
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", apperrors.ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: invalid email address", apperrors.ErrValidation)
	}
	return email, nil
}
