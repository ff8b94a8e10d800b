// Package security implements the persisted abuse counters that run in front
// of every authentication attempt: a per-IP request rate limit and a
// username|ip brute-force lockout. All state lives in the store; every check
// is a locked read-modify-write inside one transaction.
package security

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/TylerPac/SolaceStudio/internal/metrics"
)

const (
	rateWindow    = time.Minute
	failureWindow = 15 * time.Minute

	// maxConflictRetries bounds the retry loop on first-insert races. Past
	// the bound the conflict surfaces as ErrContention instead of recursing
	// forever.
	maxConflictRetries = 3
)

var (
	// ErrDuplicate is returned by stores when an insert loses a unique-key
	// race; the service retries the whole operation.
	ErrDuplicate = errors.New("duplicate row")

	// ErrContention surfaces when a check keeps losing insert races.
	ErrContention = errors.New("persistent write contention")
)

// Store is the persistence boundary. Reads inside Tx hold row locks for the
// duration of the transaction.
type Store interface {
	Tx(ctx context.Context, fn func(Store) error) error

	GetBucketForUpdate(ctx context.Context, ip string) (*RateLimitBucket, error)
	CreateBucket(ctx context.Context, b *RateLimitBucket) error
	UpdateBucket(ctx context.Context, b *RateLimitBucket) error

	GetLockForUpdate(ctx context.Context, key string) (*LoginLock, error)
	CreateLock(ctx context.Context, l *LoginLock) error
	UpdateLock(ctx context.Context, l *LoginLock) error
	DeleteLock(ctx context.Context, key string) error
}

type Service struct {
	store   Store
	metrics metrics.Recorder

	maxRequestsPerMinute int
	maxFailures          int
	lockDuration         time.Duration
}

func NewService(store Store, rec metrics.Recorder, maxRequestsPerMinute, maxFailures int, lockDuration time.Duration) *Service {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Service{
		store:                store,
		metrics:              rec,
		maxRequestsPerMinute: maxRequestsPerMinute,
		maxFailures:          maxFailures,
		lockDuration:         lockDuration,
	}
}

// IsIPRateLimited counts the request against ip's current window and reports
// whether the post-increment count exceeds the ceiling.
func (s *Service) IsIPRateLimited(ctx context.Context, ip string) (bool, error) {
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		limited, err := s.countRequest(ctx, ip)
		if errors.Is(err, ErrDuplicate) {
			continue
		}
		if err != nil {
			return false, err
		}
		if limited {
			s.metrics.RecordRateLimitRejection()
		}
		return limited, nil
	}
	return false, ErrContention
}

func (s *Service) countRequest(ctx context.Context, ip string) (bool, error) {
	var limited bool
	err := s.store.Tx(ctx, func(tx Store) error {
		now := time.Now()

		b, err := tx.GetBucketForUpdate(ctx, ip)
		if err != nil {
			return err
		}
		isNew := b == nil
		if isNew {
			b = &RateLimitBucket{ID: uuid.NewString(), IPAddress: ip, WindowStart: now}
		}

		if now.After(b.WindowStart.Add(rateWindow)) {
			b.WindowStart = now
			b.RequestCount = 0
		}
		b.RequestCount++

		if isNew {
			err = tx.CreateBucket(ctx, b)
		} else {
			err = tx.UpdateBucket(ctx, b)
		}
		if err != nil {
			return err
		}
		limited = b.RequestCount > s.maxRequestsPerMinute
		return nil
	})
	return limited, err
}

// IsCredentialLocked reports whether (username, ip) is under an active
// lockout. An expired lock is cleared as a side effect, not merely ignored.
func (s *Service) IsCredentialLocked(ctx context.Context, username, ip string) (bool, error) {
	var locked bool
	err := s.store.Tx(ctx, func(tx Store) error {
		l, err := tx.GetLockForUpdate(ctx, LockKey(username, ip))
		if err != nil {
			return err
		}
		if l == nil || l.LockedUntil == nil {
			return nil
		}

		now := time.Now()
		if now.After(*l.LockedUntil) {
			l.LockedUntil = nil
			l.FailureCount = 0
			l.WindowStart = now
			return tx.UpdateLock(ctx, l)
		}

		locked = true
		return nil
	})
	return locked, err
}

// RecordFailure counts a failed authentication for (username, ip). Reaching
// the threshold arms the lock and resets the counter so every lockout starts
// from a clean count. A failure during an active lock is a no-op.
func (s *Service) RecordFailure(ctx context.Context, username, ip string) error {
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err := s.countFailure(ctx, username, ip)
		if errors.Is(err, ErrDuplicate) {
			continue
		}
		return err
	}
	return ErrContention
}

func (s *Service) countFailure(ctx context.Context, username, ip string) error {
	return s.store.Tx(ctx, func(tx Store) error {
		now := time.Now()
		key := LockKey(username, ip)

		l, err := tx.GetLockForUpdate(ctx, key)
		if err != nil {
			return err
		}
		isNew := l == nil
		if isNew {
			l = &LoginLock{ID: uuid.NewString(), LockKey: key, WindowStart: now}
		}

		if l.LockedUntil != nil && now.Before(*l.LockedUntil) {
			// already locked: don't extend the lock or recount
			return nil
		}

		if now.After(l.WindowStart.Add(failureWindow)) {
			l.WindowStart = now
			l.FailureCount = 0
			l.LockedUntil = nil
		}

		l.FailureCount++
		if l.FailureCount >= s.maxFailures {
			until := now.Add(s.lockDuration)
			l.LockedUntil = &until
			l.FailureCount = 0
			s.metrics.RecordLockout()
		}

		if isNew {
			return tx.CreateLock(ctx, l)
		}
		return tx.UpdateLock(ctx, l)
	})
}

// RecordSuccess clears all failure history for (username, ip).
func (s *Service) RecordSuccess(ctx context.Context, username, ip string) error {
	return s.store.DeleteLock(ctx, LockKey(username, ip))
}
