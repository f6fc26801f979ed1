package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/tripmate/internal/metrics"
	"github.com/iliyamo/tripmate/internal/model"
	"github.com/iliyamo/tripmate/internal/queue"
	"github.com/iliyamo/tripmate/internal/repository"
	"github.com/iliyamo/tripmate/internal/token"
	"github.com/iliyamo/tripmate/internal/utils"
)

// CredentialStore is the persistence the session operations need.
// repository.UserRepo implements it.
type CredentialStore interface {
	Create(ctx context.Context, fullName, email, password string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByID(ctx context.Context, id string) (model.User, error)
	SetRefreshToken(ctx context.Context, id string, token *string) error
	RotateRefreshToken(ctx context.Context, id, presented, next string) error
	SetPasswordHash(ctx context.Context, id, hash string) error
	HashPassword(plain string) (string, error)
	VerifyPassword(u model.User, plain string) bool
}

// Tokens issues and verifies access and refresh tokens.
type Tokens interface {
	IssuePair(userID, email string) (token.Pair, error)
	Verify(raw string, kind token.Kind) (*token.Claims, error)
}

const publishTimeout = 5 * time.Second

// AuthService is the session manager.  It holds no per-user state; the
// current refresh token of each user lives in the credential store.
type AuthService struct {
	store   CredentialStore
	tokens  Tokens
	events  queue.Publisher
	metrics *metrics.Metrics
	log     *slog.Logger
	now     func() time.Time
}

// NewAuthService wires the session manager.  events, m and logger may be
// nil.
func NewAuthService(store CredentialStore, tokens Tokens, events queue.Publisher, m *metrics.Metrics, logger *slog.Logger) *AuthService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		store:   store,
		tokens:  tokens,
		events:  events,
		metrics: m,
		log:     logger.With("component", "auth"),
		now:     time.Now,
	}
}

type RegisterInput struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ChangePasswordInput struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// Session is the result of a login or a refresh.
type Session struct {
	User   model.PublicUser
	Tokens token.Pair
}

// Register creates an account and returns it sanitized.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (_ model.PublicUser, err error) {
	defer func() { s.metrics.Record(metrics.OpRegister, err) }()

	if blank(in.FullName, in.Email, in.Password) {
		return model.PublicUser{}, Validation("All fields are required")
	}
	if err := checkPassword(in.Password); err != nil {
		return model.PublicUser{}, err
	}

	u, err := s.store.Create(ctx, in.FullName, in.Email, in.Password)
	switch {
	case errors.Is(err, repository.ErrConflict):
		return model.PublicUser{}, Conflict("User with email or username already exists", err)
	case err != nil:
		return model.PublicUser{}, Internal("Something went wrong while registering the user", err)
	}

	s.log.InfoContext(ctx, "user registered", "user_id", u.ID)
	s.publishRegistered(ctx, u)
	return u.Public(), nil
}

// publishRegistered outlives a cancelled request but never its deadline,
// and never more than publishTimeout.
func (s *AuthService) publishRegistered(ctx context.Context, u model.User) {
	timeout := publishTimeout
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		timeout = time.Until(deadline)
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	ev := queue.NewAccountRegisteredEvent(u.ID, u.Email, u.FullName, s.now())
	if err := s.events.PublishAccountRegistered(ctx, ev); err != nil {
		s.log.WarnContext(ctx, "account.registered not published", "user_id", u.ID, "error", err)
	}
}

// Login checks the credentials, issues a new token pair and stores the
// refresh token, replacing any previous session.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (_ Session, err error) {
	defer func() { s.metrics.Record(metrics.OpLogin, err) }()

	if blank(in.Email, in.Password) {
		return Session{}, Validation("Email and password are required")
	}

	u, err := s.store.FindByEmail(ctx, in.Email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return Session{}, NotFound("User does not exist", err)
	case err != nil:
		return Session{}, Internal("Something went wrong while logging in", err)
	}

	if !s.store.VerifyPassword(u, in.Password) {
		return Session{}, Unauthorized("Invalid user credentials", nil)
	}

	pair, err := s.startSession(ctx, u)
	if err != nil {
		return Session{}, err
	}
	s.log.InfoContext(ctx, "user logged in", "user_id", u.ID)
	return Session{User: u.Public(), Tokens: pair}, nil
}

func (s *AuthService) startSession(ctx context.Context, u model.User) (token.Pair, error) {
	pair, err := s.tokens.IssuePair(u.ID, u.Email)
	if err != nil {
		return token.Pair{}, Internal("Something went wrong while generating refresh and access tokens", err)
	}
	if err := s.store.SetRefreshToken(ctx, u.ID, &pair.Refresh.Token); err != nil {
		return token.Pair{}, Internal("Something went wrong while generating refresh and access tokens", err)
	}
	return pair, nil
}

// Refresh exchanges the user's current refresh token for a new pair.  A
// token that was already rotated out, or cleared by logout, is rejected.
// Of several concurrent refreshes presenting the same token exactly one
// succeeds.
func (s *AuthService) Refresh(ctx context.Context, presented string) (_ Session, err error) {
	defer func() { s.metrics.Record(metrics.OpRefresh, err) }()

	presented = strings.TrimSpace(presented)
	if presented == "" {
		return Session{}, Validation("Refresh token is required")
	}

	claims, err := s.tokens.Verify(presented, token.Refresh)
	switch {
	case errors.Is(err, token.ErrExpiredToken):
		return Session{}, Unauthorized("Refresh token is expired", err)
	case err != nil:
		return Session{}, Unauthorized("Invalid refresh token", err)
	}

	u, err := s.store.FindByID(ctx, claims.UserID())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return Session{}, Unauthorized("Invalid refresh token", err)
	case err != nil:
		return Session{}, Internal("Something went wrong while refreshing the session", err)
	}

	if u.RefreshToken == nil || subtle.ConstantTimeCompare([]byte(*u.RefreshToken), []byte(presented)) != 1 {
		return Session{}, s.reused(ctx, u.ID, nil)
	}

	pair, err := s.tokens.IssuePair(u.ID, u.Email)
	if err != nil {
		return Session{}, Internal("Something went wrong while generating refresh and access tokens", err)
	}
	err = s.store.RotateRefreshToken(ctx, u.ID, presented, pair.Refresh.Token)
	switch {
	case errors.Is(err, repository.ErrStaleRefreshToken):
		return Session{}, s.reused(ctx, u.ID, err)
	case err != nil:
		return Session{}, Internal("Something went wrong while refreshing the session", err)
	}
	return Session{User: u.Public(), Tokens: pair}, nil
}

func (s *AuthService) reused(ctx context.Context, userID string, cause error) error {
	s.metrics.RecordRefreshReuse()
	s.log.WarnContext(ctx, "stale refresh token presented", "user_id", userID)
	return Unauthorized("Refresh token is expired or used", cause)
}

// Logout ends the user's session by clearing the stored refresh token.
// Access tokens already issued stay valid until they expire.
func (s *AuthService) Logout(ctx context.Context, userID string) (err error) {
	defer func() { s.metrics.Record(metrics.OpLogout, err) }()

	err = s.store.SetRefreshToken(ctx, userID, nil)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return Unauthorized("Unauthorized request", err)
	case err != nil:
		return Internal("Something went wrong while logging out", err)
	}
	s.log.InfoContext(ctx, "user logged out", "user_id", userID)
	return nil
}

// ChangePassword replaces the user's password after checking the old one.
// The current session is left as is.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, in ChangePasswordInput) (err error) {
	defer func() { s.metrics.Record(metrics.OpChangePassword, err) }()

	if blank(in.OldPassword, in.NewPassword) {
		return Validation("Old and new password are required")
	}
	if err := checkPassword(in.NewPassword); err != nil {
		return err
	}

	u, err := s.store.FindByID(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return NotFound("User does not exist", err)
	case err != nil:
		return Internal("Something went wrong while changing the password", err)
	}

	if !s.store.VerifyPassword(u, in.OldPassword) {
		return Validation("Invalid old password")
	}

	hash, err := s.store.HashPassword(in.NewPassword)
	if err != nil {
		return Internal("Something went wrong while changing the password", err)
	}
	err = s.store.SetPasswordHash(ctx, u.ID, hash)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return NotFound("User does not exist", err)
	case err != nil:
		return Internal("Something went wrong while changing the password", err)
	}
	s.log.InfoContext(ctx, "password changed", "user_id", u.ID)
	return nil
}

func blank(fields ...string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return true
		}
	}
	return false
}

func checkPassword(p string) error {
	if len(p) > utils.MaxPasswordBytes {
		return Validation("Password must be at most 72 bytes")
	}
	return nil
}
