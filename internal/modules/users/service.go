package users

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/TylerPac/SolaceStudio/internal/modules/tokens"
	"github.com/TylerPac/SolaceStudio/internal/shared/apperr"
)

// Store is the persistence boundary the auth service needs.
type Store interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	MarkEmailVerified(ctx context.Context, userID string) error
	UpdatePasswordHash(ctx context.Context, userID, hash string) error
}

// Guard applies the request-rate and credential-lockout checks around login.
type Guard interface {
	IsIPRateLimited(ctx context.Context, ip string) (bool, error)
	IsCredentialLocked(ctx context.Context, username, ip string) (bool, error)
	RecordFailure(ctx context.Context, username, ip string) error
	RecordSuccess(ctx context.Context, username, ip string) error
}

// TokenVault issues and redeems single-use purpose-scoped tokens.
type TokenVault interface {
	Issue(ctx context.Context, userID, purpose string, ttl time.Duration) (string, error)
	Consume(ctx context.Context, rawSecret, purpose string) (string, error)
	IsAlreadyRedeemed(ctx context.Context, rawSecret string) (bool, error)
	RevokeForUser(ctx context.Context, userID, purpose string) error
}

// Mailer delivers the account emails. Failures are logged, never fatal.
type Mailer interface {
	VerificationEmail(ctx context.Context, u *User, token string) error
	PasswordResetEmail(ctx context.Context, u *User, token string) error
}

type AuthService struct {
	store    Store
	guard    Guard
	vault    TokenVault
	minter   *TokenMinter
	notifier Mailer
	logger   *slog.Logger

	refreshTTL time.Duration
	verifyTTL  time.Duration
	resetTTL   time.Duration
}

func NewAuthService(store Store, guard Guard, vault TokenVault, minter *TokenMinter, notifier Mailer, logger *slog.Logger, refreshTTL, verifyTTL, resetTTL time.Duration) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		store:      store,
		guard:      guard,
		vault:      vault,
		minter:     minter,
		notifier:   notifier,
		logger:     logger,
		refreshTTL: refreshTTL,
		verifyTTL:  verifyTTL,
		resetTTL:   resetTTL,
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*User, error) {
	taken, err := s.store.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.ConflictErr("email already registered")
	}

	if existing, err := s.store.FindByUsername(ctx, in.Username); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	} else if existing != nil {
		return nil, apperr.ConflictErr("username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, err
	}

	s.sendVerification(ctx, u)
	return u, nil
}

// Login authenticates a username/password pair. The per-IP rate limit and
// the per-credential lockout both answer 429 before the password is ever
// checked; a lookup miss and a password mismatch are indistinguishable to
// the caller and both count as lockout failures.
func (s *AuthService) Login(ctx context.Context, username, password, ip string) (*AuthTokens, error) {
	limited, err := s.guard.IsIPRateLimited(ctx, ip)
	if err != nil {
		return nil, err
	}
	if limited {
		return nil, apperr.TooManyErr("too many requests, slow down")
	}

	locked, err := s.guard.IsCredentialLocked(ctx, username, ip)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, apperr.TooManyErr("too many failed attempts, try again later")
	}

	u, err := s.store.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		if ferr := s.guard.RecordFailure(ctx, username, ip); ferr != nil {
			s.logger.ErrorContext(ctx, "recording login failure failed", "err", ferr)
		}
		return nil, apperr.UnauthorizedErr("invalid credentials")
	}

	if err := s.guard.RecordSuccess(ctx, username, ip); err != nil {
		s.logger.ErrorContext(ctx, "clearing login failures failed", "err", err)
	}

	// checked after the password so an unverified account still clears its
	// lockout counter and the response never leaks whether a username exists
	if !u.EmailVerified {
		return nil, apperr.ForbiddenErr("verify your email address first")
	}

	return s.issueTokens(ctx, u)
}

// Refresh rotates the refresh token: the presented one is consumed and a
// fresh pair is returned.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	userID, err := s.vault.Consume(ctx, refreshToken, tokens.PurposeRefreshSession)
	if err != nil {
		if errors.Is(err, tokens.ErrInvalidOrExpired) {
			return nil, apperr.UnauthorizedErr("session expired, sign in again")
		}
		return nil, err
	}

	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.UnauthorizedErr("session expired, sign in again")
		}
		return nil, err
	}

	return s.issueTokens(ctx, u)
}

func (s *AuthService) issueTokens(ctx context.Context, u *User) (*AuthTokens, error) {
	access, err := s.minter.Mint(u)
	if err != nil {
		return nil, err
	}
	refresh, err := s.vault.Issue(ctx, u.ID, tokens.PurposeRefreshSession, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.minter.TTL().Seconds()),
	}, nil
}

// VerifyEmail redeems a verification token. A token that was already
// redeemed reports success so re-clicking the email link stays harmless.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	userID, err := s.vault.Consume(ctx, token, tokens.PurposeEmailVerification)
	if err == nil {
		return s.store.MarkEmailVerified(ctx, userID)
	}
	if !errors.Is(err, tokens.ErrInvalidOrExpired) {
		return err
	}

	redeemed, rerr := s.vault.IsAlreadyRedeemed(ctx, token)
	if rerr != nil {
		return rerr
	}
	if redeemed {
		return nil
	}
	return apperr.InvalidErr("verification link is invalid or expired", nil)
}

// ResendVerification issues a fresh verification token. Unknown and already
// verified addresses report success so the endpoint cannot be used to probe
// for accounts.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if u.EmailVerified {
		return nil
	}
	s.sendVerification(ctx, u)
	return nil
}

// RequestPasswordReset issues a reset token. Unknown addresses report
// success for the same reason as ResendVerification.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}

	token, err := s.vault.Issue(ctx, u.ID, tokens.PurposePasswordReset, s.resetTTL)
	if err != nil {
		return err
	}
	if err := s.notifier.PasswordResetEmail(ctx, u, token); err != nil {
		s.logger.WarnContext(ctx, "password reset email failed", "user_id", u.ID, "err", err)
	}
	return nil
}

// ResetPassword redeems a reset token, replaces the password and revokes
// every refresh session the account holds.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	userID, err := s.vault.Consume(ctx, token, tokens.PurposePasswordReset)
	if err != nil {
		if errors.Is(err, tokens.ErrInvalidOrExpired) {
			return apperr.InvalidErr("reset link is invalid or expired", nil)
		}
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePasswordHash(ctx, userID, string(hash)); err != nil {
		return err
	}

	if err := s.vault.RevokeForUser(ctx, userID, tokens.PurposeRefreshSession); err != nil {
		s.logger.ErrorContext(ctx, "revoking refresh sessions failed", "user_id", userID, "err", err)
	}
	return nil
}

func (s *AuthService) sendVerification(ctx context.Context, u *User) {
	token, err := s.vault.Issue(ctx, u.ID, tokens.PurposeEmailVerification, s.verifyTTL)
	if err != nil {
		s.logger.ErrorContext(ctx, "issuing verification token failed", "user_id", u.ID, "err", err)
		return
	}
	if err := s.notifier.VerificationEmail(ctx, u, token); err != nil {
		s.logger.WarnContext(ctx, "verification email failed", "user_id", u.ID, "err", err)
	}
}
