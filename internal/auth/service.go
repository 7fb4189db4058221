package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/radiusfinancial/radius-api/internal/apperr"
	"github.com/radiusfinancial/radius-api/internal/email"
	"github.com/radiusfinancial/radius-api/internal/events"
	"github.com/radiusfinancial/radius-api/internal/logging"
	"github.com/radiusfinancial/radius-api/internal/user"
)

var (
	ErrInvalidCredentials  = apperr.Authentication("invalid_credentials", "Unable to log in with provided credentials.")
	ErrAccountNotValidated = apperr.Authentication("account_not_validated", "Account has not been validated.")
	ErrInvalidRefreshToken = apperr.Authentication("invalid_refresh_token", "Invalid or expired refresh token.")
	ErrAuthTokenInvalid    = apperr.Authentication("invalid_token", "Invalid token.")
	ErrAuthTokenExpired    = apperr.Authentication("token_expired", "Token has expired.")
	ErrPasswordMissing     = apperr.Validation("missing", "Missing password.")
	ErrPasswordMismatch    = apperr.Validation("mismatch", "Passwords do not match.")
)

// Mailer sends one templated notification to a user.
type Mailer interface {
	Send(ctx context.Context, templateID string, data map[string]any, recipient *user.User) error
}

// Options configures link targets, token lifetimes and login policy.
type Options struct {
	SiteURL              string
	FrontendURL          string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	RequireValidated     bool
	PasswordMinLength    int
}

// AccountOptions are operator-only settings applied when an account is
// created outside the public registration endpoint.
type AccountOptions struct {
	Superuser bool
	Developer bool
	Validated bool
}

// Service implements account creation, the validation and password reset
// workflow, and token issuance.
type Service struct {
	users         user.Store
	refreshTokens RefreshTokenRepository
	tokens        TokenService
	mailer        Mailer
	events        events.Publisher
	logger        *logging.Logger
	opts          Options
	now           func() time.Time
}

func NewService(
	users user.Store,
	refreshTokens RefreshTokenRepository,
	tokens TokenService,
	mailer Mailer,
	publisher events.Publisher,
	logger *logging.Logger,
	opts Options,
) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{
		users:         users,
		refreshTokens: refreshTokens,
		tokens:        tokens,
		mailer:        mailer,
		events:        publisher,
		logger:        logger,
		opts:          opts,
		now:           time.Now,
	}
}

// Register creates an account from the public payload and, unless the
// account is already validated, sends the validation email.
func (s *Service) Register(ctx context.Context, reg user.Registration) (*user.User, error) {
	return s.CreateAccount(ctx, reg, AccountOptions{})
}

// CreateAccount validates reg, stores the account and issues the validation
// token for unvalidated accounts.
func (s *Service) CreateAccount(ctx context.Context, reg user.Registration, opts AccountOptions) (*user.User, error) {
	if err := reg.Validate(s.opts.PasswordMinLength); err != nil {
		return nil, err
	}

	passwordHash, err := HashPassword(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	params, err := reg.Params(passwordHash)
	if err != nil {
		return nil, err
	}
	params.IsSuperuser = opts.Superuser
	params.IsDeveloper = opts.Developer
	if opts.Validated {
		now := s.now().UTC()
		params.ValidatedAt = &now
	}

	newUser, err := s.users.Create(ctx, params)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.publish(ctx, events.UserRegistered, newUser)

	if !newUser.IsValidated() {
		if err := s.IssueValidationToken(ctx, newUser); err != nil {
			return newUser, err
		}
	}

	return newUser, nil
}

// IssueValidationToken replaces the user's key with a new validation key and
// emails the validation link.
func (s *Service) IssueValidationToken(ctx context.Context, u *user.User) error {
	key := user.NewKey(user.PurposeValidation, s.now().UTC())
	if err := s.users.SetKey(ctx, u.ID, key); err != nil {
		return fmt.Errorf("failed to store validation key: %w", err)
	}
	u.Key = &key

	link := fmt.Sprintf("%s/validations/%s", s.opts.SiteURL, key.Value)
	if err := s.mailer.Send(ctx, email.TemplateUserValidation, map[string]any{"URL": link}, u); err != nil {
		return err
	}

	s.logger.Info("validation email sent", "user_id", u.ID)
	return nil
}

// ConsumeValidationToken validates the account holding token. A token can
// be consumed once; later calls return a not found error.
func (s *Service) ConsumeValidationToken(ctx context.Context, token string) (*user.User, error) {
	u, err := s.users.GetByKey(ctx, token, user.PurposeValidation)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.users.ConsumeValidationKey(ctx, u.ID, u.Key.Value, now); err != nil {
		return nil, err
	}
	u.Key = nil
	if u.ValidatedAt == nil {
		u.ValidatedAt = &now
	}

	s.publish(ctx, events.UserValidated, u)

	if err := s.mailer.Send(ctx, email.TemplateUserValidated, nil, u); err != nil {
		return u, err
	}
	return u, nil
}

// ResendValidation issues a fresh validation token for the account with
// address. Validated accounts are left alone.
func (s *Service) ResendValidation(ctx context.Context, address string) error {
	u, err := s.users.GetByEmail(ctx, address)
	if err != nil {
		return err
	}
	if u.IsValidated() {
		s.logger.Debug("validation resend skipped for validated account", "user_id", u.ID)
		return nil
	}
	return s.IssueValidationToken(ctx, u)
}

// MarkValidated validates the account with address without a key or email,
// for operators and trusted identity providers. A pending validation key is
// dropped.
func (s *Service) MarkValidated(ctx context.Context, address string) (*user.User, error) {
	u, err := s.users.GetByEmail(ctx, address)
	if err != nil {
		return nil, err
	}
	if u.IsValidated() {
		return u, nil
	}

	now := s.now().UTC()
	if err := s.users.MarkValidated(ctx, u.ID, now); err != nil {
		return nil, fmt.Errorf("failed to mark user validated: %w", err)
	}
	u.ValidatedAt = &now
	if u.Key != nil && u.Key.Purpose == user.PurposeValidation {
		u.Key = nil
	}

	s.publish(ctx, events.UserValidated, u)
	return u, nil
}

// RequestPasswordReset issues a reset key for the account with address and
// emails the reset link. Any pending key is replaced.
func (s *Service) RequestPasswordReset(ctx context.Context, address string) error {
	u, err := s.users.GetByEmail(ctx, address)
	if err != nil {
		return err
	}

	key := user.NewKey(user.PurposeReset, s.now().UTC())
	if err := s.users.SetKey(ctx, u.ID, key); err != nil {
		return fmt.Errorf("failed to store reset key: %w", err)
	}
	u.Key = &key

	s.publish(ctx, events.PasswordResetRequested, u)

	link := fmt.Sprintf("%s/login/reset-password;validation_key=%s", s.opts.FrontendURL, key.Value)
	return s.mailer.Send(ctx, email.TemplateUserResetPassword, map[string]any{"URL": link}, u)
}

// LookupResetToken returns the email of the account holding reset token.
func (s *Service) LookupResetToken(ctx context.Context, token string) (string, error) {
	u, err := s.users.GetByKey(ctx, token, user.PurposeReset)
	if err != nil {
		return "", err
	}
	return u.Email, nil
}

// ConfirmPasswordReset sets a new password for the account holding token.
// The inputs are checked before the token; nothing changes on failure.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, password, confirm string) error {
	if password == "" {
		return ErrPasswordMissing
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	if minLen := s.opts.PasswordMinLength; minLen > 0 && len(password) < minLen {
		return apperr.ValidationFields(map[string][]string{
			"password": {fmt.Sprintf("Ensure this field has at least %d characters.", minLen)},
		})
	}

	u, err := s.users.GetByKey(ctx, token, user.PurposeReset)
	if err != nil {
		return err
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.ConsumeResetKey(ctx, u.ID, u.Key.Value, passwordHash); err != nil {
		return err
	}
	u.PasswordHash = passwordHash
	u.Key = nil

	if err := s.refreshTokens.RevokeAllUserTokens(ctx, u.ID); err != nil {
		s.logger.Warn("failed to revoke all user tokens after password reset", "user_id", u.ID, "error", err)
	}

	s.publish(ctx, events.PasswordChanged, u)

	return s.mailer.Send(ctx, email.TemplateUserResetPasswordSuccess, nil, u)
}

// ObtainToken authenticates address and password and issues tokens.
func (s *Service) ObtainToken(ctx context.Context, address, password string) (*AuthTokens, *user.User, error) {
	if address == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	u, err := s.users.GetByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !VerifyPassword(u.PasswordHash, password) {
		return nil, nil, ErrInvalidCredentials
	}

	if s.opts.RequireValidated && !u.IsValidated() {
		return nil, nil, ErrAccountNotValidated
	}

	tokens, err := s.generateTokens(ctx, u)
	if err != nil {
		return nil, nil, err
	}

	if err := s.users.RecordLogin(ctx, u.ID, s.now().UTC()); err != nil {
		s.logger.Warn("failed to record login", "user_id", u.ID, "error", err)
	}

	return tokens, u, nil
}

// TokensFor issues tokens for u without a password, for impersonation by
// operators.
func (s *Service) TokensFor(ctx context.Context, u *user.User) (*AuthTokens, error) {
	return s.generateTokens(ctx, u)
}

// RefreshAccessToken rotates refreshToken and issues a new token pair.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	rt, err := s.refreshTokens.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) || errors.Is(err, ErrRefreshTokenRevoked) ||
			errors.Is(err, ErrRefreshTokenExpired) || errors.Is(err, ErrInvalidToken) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	if !rt.IsValid() {
		return nil, ErrInvalidRefreshToken
	}

	// Revoke before issuing so a leaked token cannot be replayed.
	if err := s.refreshTokens.RevokeRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to revoke old refresh token: %w", err)
	}

	u, err := s.users.GetByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return s.generateTokens(ctx, u)
}

// Logout revokes refreshToken. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	err := s.refreshTokens.RevokeRefreshToken(ctx, refreshToken)
	if err != nil && !errors.Is(err, ErrRefreshTokenNotFound) {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// Authenticate resolves an access token to its user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*user.User, error) {
	claims, err := s.tokens.VerifyToken(accessToken)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return nil, ErrAuthTokenExpired
		}
		return nil, ErrAuthTokenInvalid
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, ErrAuthTokenInvalid
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// UserFromToken returns the user an access token was issued to. Unknown or
// expired tokens are reported as not found.
func (s *Service) UserFromToken(ctx context.Context, accessToken string) (*user.User, error) {
	u, err := s.Authenticate(ctx, accessToken)
	if err != nil {
		if errors.Is(err, apperr.ErrAuthentication) {
			return nil, apperr.NotFound("")
		}
		return nil, err
	}
	return u, nil
}

// DeleteAccount removes the account and revokes its refresh tokens.
func (s *Service) DeleteAccount(ctx context.Context, u *user.User) error {
	if err := s.users.Delete(ctx, u.ID); err != nil {
		return err
	}
	if err := s.refreshTokens.RevokeAllUserTokens(ctx, u.ID); err != nil {
		s.logger.Warn("failed to revoke tokens of deleted user", "user_id", u.ID, "error", err)
	}
	s.publish(ctx, events.UserDeleted, u)
	return nil
}

// generateTokens creates both access and refresh tokens
func (s *Service) generateTokens(ctx context.Context, u *user.User) (*AuthTokens, error) {
	accessToken, err := s.tokens.CreateToken(u.ID, u.Email, s.opts.AccessTokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := generateRandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	expiresAt := s.now().Add(s.opts.RefreshTokenDuration)
	if err := s.refreshTokens.StoreRefreshToken(ctx, u.ID, refreshToken, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.opts.AccessTokenDuration.Seconds()),
	}, nil
}

func (s *Service) publish(ctx context.Context, typ string, u *user.User) {
	if err := s.events.Publish(ctx, events.New(typ, u.ID, u.Email)); err != nil {
		s.logger.Warn("failed to publish event", "type", typ, "user_id", u.ID, "error", err)
	}
}
