// Package service manages staff accounts, verifies their credentials and mints
// bearer tokens for them.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dsnap/internal/platform/metrics"
	"dsnap/internal/sentinel"
	"dsnap/internal/staff/models"
	id "dsnap/pkg/domain"
	dErrors "dsnap/pkg/domain-errors"
	"dsnap/pkg/platform/validation"
	"dsnap/pkg/requestcontext"
	"dsnap/pkg/secrets"
)

// Store persists staff accounts.
// Error Contract:
//   - FindByID, FindByUsername and SetActive return sentinel.ErrNotFound for unknown accounts
//   - Create returns sentinel.ErrAlreadyUsed when the username is taken
type Store interface {
	Create(ctx context.Context, staff *models.Staff) error
	FindByID(ctx context.Context, staffID id.StaffID) (*models.Staff, error)
	FindByUsername(ctx context.Context, username string) (*models.Staff, error)
	SetActive(ctx context.Context, staffID id.StaffID, active bool) error
}

// TokenIssuer mints signed bearer tokens.
type TokenIssuer interface {
	GenerateAccessToken(ctx context.Context, actor id.Actor, scopes []string) (string, time.Time, error)
	TokenTTL() time.Duration
}

// Token is a minted bearer token.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
	ExpiresIn   time.Duration
	Scopes      []string
}

type Option func(*Service)

type Service struct {
	store   Store
	hasher  *secrets.Hasher
	tokens  TokenIssuer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(store Store, hasher *secrets.Hasher, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{store: store, hasher: hasher, logger: logger}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// WithTokenIssuer enables IssueToken.
func WithTokenIssuer(tokens TokenIssuer) Option {
	return func(s *Service) {
		s.tokens = tokens
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// Authenticate verifies a username/password pair. Unknown users, wrong
// passwords and inactive accounts all fail with the same unauthorized error.
func (s *Service) Authenticate(ctx context.Context, username, password string) (id.Actor, error) {
	staff, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncAuthFailure(metrics.ReasonUnknownUser)
			return id.Actor{}, s.hasher.VerifyNothing(password)
		}
		return id.Actor{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load staff")
	}
	if err := s.hasher.Verify(password, staff.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			s.metrics.IncAuthFailure(metrics.ReasonBadPassword)
		}
		return id.Actor{}, err
	}
	if !staff.Active {
		s.metrics.IncAuthFailure(metrics.ReasonInactive)
		return id.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	return staff.Actor(), nil
}

// IsActive reports whether the account may still act. Unknown accounts are inactive.
func (s *Service) IsActive(ctx context.Context, staffID id.StaffID) (bool, error) {
	staff, err := s.store.FindByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load staff")
	}
	return staff.Active, nil
}

// Create adds an active staff account.
func (s *Service) Create(ctx context.Context, username, password string) (*models.Staff, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	staff := models.NewStaff(username, hash, requestcontext.Now(ctx))
	if err := s.store.Create(ctx, staff); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "username already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save staff")
	}

	s.metrics.IncStaffCreated()
	s.logger.InfoContext(ctx, "staff created",
		"staff_id", staff.ID,
		"username", staff.Username,
	)
	return staff, nil
}

// EnsureBootstrap creates the configured admin account unless that username exists.
func (s *Service) EnsureBootstrap(ctx context.Context, username, password string) (bool, error) {
	if username == "" {
		return false, nil
	}
	_, err := s.store.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load staff")
	}
	if _, err := s.Create(ctx, username, password); err != nil {
		// Another instance seeded it first.
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Deactivate blocks the account from authenticating. Outstanding tokens stop
// working on their next use.
func (s *Service) Deactivate(ctx context.Context, staffID id.StaffID) error {
	if err := s.store.SetActive(ctx, staffID, false); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "staff not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update staff")
	}
	s.logger.InfoContext(ctx, "staff deactivated", "staff_id", staffID)
	return nil
}

// IssueToken mints a bearer token for an authenticated actor. An empty scope
// list grants every scope the actor holds.
func (s *Service) IssueToken(ctx context.Context, actor id.Actor, scopes []string) (*Token, error) {
	s.metrics.IncTokenRequest()
	if s.tokens == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "token issuance is not configured")
	}
	if !actor.IsAuthenticated() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if len(scopes) == 0 {
		scopes = actor.Scopes
	}
	for _, scope := range scopes {
		if !id.IsKnownScope(scope) {
			s.metrics.IncAuthFailure(metrics.ReasonScopeRejected)
			return nil, dErrors.New(dErrors.CodeBadRequest, "unknown scope: "+scope)
		}
		if !actor.HasScope(scope) {
			s.metrics.IncAuthFailure(metrics.ReasonScopeRejected)
			return nil, dErrors.New(dErrors.CodeForbidden, "scope not granted: "+scope)
		}
	}

	token, expiresAt, err := s.tokens.GenerateAccessToken(ctx, actor, scopes)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint token")
	}
	s.metrics.IncTokenIssued()
	s.logger.InfoContext(ctx, "token issued",
		"staff_id", actor.StaffID,
		"scopes", scopes,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &Token{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		ExpiresIn:   s.tokens.TokenTTL(),
		Scopes:      scopes,
	}, nil
}

func validateCredentials(username, password string) error {
	var violations []string
	if username == "" {
		violations = append(violations, "username is required")
	} else if err := validation.CheckStringLength("username", username, validation.MaxUsernameLength); err != nil {
		violations = append(violations, err.Error())
	}
	if len(password) < validation.MinPasswordLength {
		violations = append(violations, fmt.Sprintf("password must be at least %d characters", validation.MinPasswordLength))
	} else if err := validation.CheckStringLength("password", password, validation.MaxPasswordLength); err != nil {
		violations = append(violations, err.Error())
	}
	if len(violations) > 0 {
		return dErrors.NewValidation(violations[0], violations)
	}
	return nil
}
