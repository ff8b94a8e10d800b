// Package tokens issues and redeems single-use, purpose-scoped secrets
// (email verification, password reset, refresh sessions). Only the SHA-256
// hash of a secret is ever stored; the raw value is returned to the caller
// once at issue time.
package tokens

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidOrExpired = errors.New("invalid or expired token")

// Store is the persistence boundary. All mutating methods passed through Tx
// run inside one transaction.
type Store interface {
	Tx(ctx context.Context, fn func(Store) error) error
	DeleteByUserAndPurpose(ctx context.Context, userID, purpose string) error
	Create(ctx context.Context, t *Token) error
	// FindActive returns the unused, unexpired token matching hash and
	// purpose, locking the row for update. Returns nil when there is none.
	FindActive(ctx context.Context, hash, purpose string, now time.Time) (*Token, error)
	// MarkUsed sets used_at if it is still NULL and reports whether the
	// update changed a row.
	MarkUsed(ctx context.Context, id string, at time.Time) (bool, error)
	// RedeemedVerificationForVerifiedUser reports whether hash matches an
	// already-used EMAIL_VERIFICATION token whose owner is verified.
	RedeemedVerificationForVerifiedUser(ctx context.Context, hash string) (bool, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service { return &Service{store: store} }

// Issue replaces any existing token for (user, purpose) with a fresh one and
// returns the raw secret. The raw value is never persisted.
func (s *Service) Issue(ctx context.Context, userID, purpose string, ttl time.Duration) (string, error) {
	raw, err := generateSecret()
	if err != nil {
		return "", err
	}

	now := time.Now()
	t := Token{
		ID:        uuid.NewString(),
		UserID:    userID,
		Purpose:   purpose,
		TokenHash: hashSecret(raw),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	err = s.store.Tx(ctx, func(tx Store) error {
		if err := tx.DeleteByUserAndPurpose(ctx, userID, purpose); err != nil {
			return err
		}
		return tx.Create(ctx, &t)
	})
	if err != nil {
		return "", err
	}
	return raw, nil
}

// Consume redeems a raw secret exactly once and returns the owning user id.
// A second redemption of the same secret fails with ErrInvalidOrExpired.
func (s *Service) Consume(ctx context.Context, rawSecret, purpose string) (string, error) {
	hash := hashSecret(rawSecret)

	var userID string
	err := s.store.Tx(ctx, func(tx Store) error {
		t, err := tx.FindActive(ctx, hash, purpose, time.Now())
		if err != nil {
			return err
		}
		if t == nil {
			return ErrInvalidOrExpired
		}

		changed, err := tx.MarkUsed(ctx, t.ID, time.Now())
		if err != nil {
			return err
		}
		if !changed {
			// lost the race against a concurrent redeem
			return ErrInvalidOrExpired
		}
		userID = t.UserID
		return nil
	})
	if err != nil {
		return "", err
	}
	return userID, nil
}

// IsAlreadyRedeemed distinguishes "verification link already clicked" from
// "link never existed": it is true only when the secret matches a used
// verification token whose owner is verified by now.
func (s *Service) IsAlreadyRedeemed(ctx context.Context, rawSecret string) (bool, error) {
	return s.store.RedeemedVerificationForVerifiedUser(ctx, hashSecret(rawSecret))
}

// RevokeForUser drops all tokens for (user, purpose).
func (s *Service) RevokeForUser(ctx context.Context, userID, purpose string) error {
	return s.store.DeleteByUserAndPurpose(ctx, userID, purpose)
}

// generateSecret returns 32 random bytes as unpadded URL-safe base64.
func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// hashSecret is lowercase-hex SHA-256 of the raw secret.
func hashSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
