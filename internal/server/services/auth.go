// Package services contains server-side business logic. This file implements
// AuthService, which handles signup, credential verification, token issuance
// and principal resolution.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tasktracker/internal/common"
	"github.com/dmitrijs2005/tasktracker/internal/cryptox"
	"github.com/dmitrijs2005/tasktracker/internal/logging"
	"github.com/dmitrijs2005/tasktracker/internal/server/auth"
	"github.com/dmitrijs2005/tasktracker/internal/server/models"
	"github.com/dmitrijs2005/tasktracker/internal/server/repositories/repomanager"
)

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	Token     string
	ExpiresIn time.Duration
}

type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      cryptox.PasswordHasher
	tokens      *auth.TokenService
	logger      logging.Logger
	now         func() time.Time
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, hasher cryptox.PasswordHasher,
	tokens *auth.TokenService, logger logging.Logger) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		tokens:      tokens,
		logger:      logger,
		now:         time.Now,
	}
}

// Signup registers a new user. Email is checked before username, so a request
// where both are taken reports the email.
func (s *AuthService) Signup(ctx context.Context, username, email, password string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	if err := s.ensureAbsent(ctx, repo.GetUserByEmail, email, "email"); err != nil {
		return nil, err
	}
	if err := s.ensureAbsent(ctx, repo.GetUserByUsername, username, "username"); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	u, err := repo.Create(ctx, &models.User{UserName: username, Email: email, PasswordHash: hash})
	if err != nil {
		var dup *common.DuplicateCredentialError
		if errors.As(err, &dup) {
			s.logger.Info(ctx, "signup lost insert race", "field", dup.Field)
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

func (s *AuthService) ensureAbsent(ctx context.Context,
	lookup func(context.Context, string) (*models.User, error), value, field string) error {
	_, err := lookup(ctx, value)
	switch {
	case err == nil:
		return common.NewDuplicateCredential(field, value)
	case errors.Is(err, common.ErrorNotFound):
		return nil
	default:
		return fmt.Errorf("error looking up user by %s: %w", field, err)
	}
}

// Authenticate verifies email and password. An unknown email and a wrong
// password both yield common.ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Info(ctx, "authentication failed", "reason", "unknown email")
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.logger.Info(ctx, "authentication failed", "reason", "password mismatch", "user_id", user.ID)
		return nil, common.ErrInvalidCredentials
	}

	return user, nil
}

// Login authenticates and issues a bearer token for the user.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("error issuing token: %w", err)
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return &LoginResult{Token: token, ExpiresIn: s.tokens.ExpirationTTL()}, nil
}

// ValidateToken checks a bearer token against the current time and returns
// its subject.
func (s *AuthService) ValidateToken(token string) (int64, error) {
	return s.tokens.Validate(token, s.now())
}

// ResolvePrincipal loads the user named by a token subject. A subject whose
// user no longer exists is common.ErrUnauthenticated.
func (s *AuthService) ResolvePrincipal(ctx context.Context, userID int64) (auth.Principal, error) {
	user, err := s.repomanager.Users(s.db).GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return auth.Principal{}, common.ErrUnauthenticated
		}
		return auth.Principal{}, fmt.Errorf("error resolving principal: %w", err)
	}
	return auth.Principal{ID: user.ID, Username: user.UserName, Email: user.Email}, nil
}
