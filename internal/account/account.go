// Package account signs users in and out and manages their profile.
package account

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/myflix/internal/auth"
	"github.com/desertthunder/myflix/internal/models"
	"github.com/desertthunder/myflix/internal/services"
	"github.com/desertthunder/myflix/internal/session"
	"github.com/desertthunder/myflix/internal/shared"
)

// API is the subset of the catalog API used for account operations.
type API interface {
	Login(ctx context.Context, username, password string) (*services.LoginResponse, error)
	Register(ctx context.Context, req services.RegisterRequest) (*models.User, error)
	UpdateUser(ctx context.Context, token, username string, update services.ProfileUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, token, username string) error
}

// Service performs account operations against the API and keeps the session in step.
type Service struct {
	api    API
	store  *session.Store
	gate   *auth.Gate
	logger *log.Logger
}

// NewService creates an account service.
func NewService(api API, store *session.Store, gate *auth.Gate, logger *log.Logger) *Service {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Service{api: api, store: store, gate: gate, logger: logger}
}

// Login signs in and starts a new session.
//
// A rejected login (400 or 401) or a response without a token is [shared.ErrInvalidCredentials].
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password", shared.ErrMissingArgument)
	}

	resp, err := s.api.Login(ctx, username, password)
	if err != nil {
		if errors.Is(err, shared.ErrAuthorization) || errors.Is(err, shared.ErrValidation) {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("login discarded: %w", ctx.Err())
	}
	if resp.Token == "" || resp.User.Validate() != nil {
		return nil, fmt.Errorf("%w: no token in response", shared.ErrInvalidCredentials)
	}

	if err := s.store.SetAuthenticated(resp.User, resp.Token); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	s.logger.Info("logged in", "username", resp.User.Username)
	return resp.User, nil
}

// Register creates an account. It does not sign in.
func (s *Service) Register(ctx context.Context, req services.RegisterRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Password == "" || req.Email == "" {
		return nil, fmt.Errorf("%w: username, password and email", shared.ErrMissingArgument)
	}

	user, err := s.api.Register(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}
	s.logger.Info("registered", "username", req.Username)
	return user, nil
}

// UpdateProfile sends update and replaces the session user with the server's answer.
//
// Empty username, email or birthday fields keep their current values; an empty password is left out.
func (s *Service) UpdateProfile(ctx context.Context, update services.ProfileUpdate) (*models.User, error) {
	snap, err := s.gate.Require("profile")
	if err != nil {
		return nil, err
	}

	current := snap.User
	if strings.TrimSpace(update.Username) == "" {
		update.Username = current.Username
	}
	if strings.TrimSpace(update.Email) == "" {
		update.Email = current.Email
	}
	if strings.TrimSpace(update.Birthday) == "" {
		update.Birthday = current.BirthDate()
	}

	updated, err := s.api.UpdateUser(ctx, snap.Token, current.Username, update)
	if ctx.Err() != nil {
		return nil, fmt.Errorf("profile update discarded: %w", ctx.Err())
	}
	if err != nil {
		if errors.Is(err, shared.ErrAuthorization) {
			return nil, fmt.Errorf("profile update: %w", shared.ErrSessionEnded)
		}
		return nil, fmt.Errorf("profile update failed: %w", err)
	}
	if err := updated.Validate(); err != nil {
		return nil, fmt.Errorf("profile update failed: %w: %v", shared.ErrTransport, err)
	}

	if err := s.store.ReplaceUserAt(snap.Epoch, updated); err != nil {
		if errors.Is(err, shared.ErrStaleSession) || errors.Is(err, shared.ErrNoActiveSession) {
			return nil, fmt.Errorf("profile update: %w", shared.ErrSessionEnded)
		}
		return nil, fmt.Errorf("failed to store profile: %w", err)
	}
	s.logger.Info("profile updated", "username", updated.Username)
	return updated, nil
}

// DeleteAccount deregisters the signed-in user and ends the session.
func (s *Service) DeleteAccount(ctx context.Context) error {
	snap, err := s.gate.Require("profile")
	if err != nil {
		return err
	}

	if err := s.api.DeleteUser(ctx, snap.Token, snap.Username()); err != nil {
		if errors.Is(err, shared.ErrAuthorization) {
			return fmt.Errorf("delete account: %w", shared.ErrSessionEnded)
		}
		return fmt.Errorf("delete account failed: %w", err)
	}

	s.logger.Info("account deleted", "username", snap.Username())
	return s.gate.End(auth.ReasonAccountDeleted)
}

// Logout ends the session.
func (s *Service) Logout() error {
	return s.gate.Logout()
}

// Current returns the session snapshot.
func (s *Service) Current() session.Snapshot {
	return s.store.Snapshot()
}
