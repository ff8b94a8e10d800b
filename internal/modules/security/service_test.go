package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TylerPac/SolaceStudio/internal/metrics"
)

type memStore struct {
	buckets map[string]*RateLimitBucket
	locks   map[string]*LoginLock

	// failCreates makes the next n bucket/lock inserts lose a unique race.
	failCreates int
}

func newMemStore() *memStore {
	return &memStore{
		buckets: map[string]*RateLimitBucket{},
		locks:   map[string]*LoginLock{},
	}
}

func (m *memStore) Tx(ctx context.Context, fn func(Store) error) error { return fn(m) }

func (m *memStore) GetBucketForUpdate(_ context.Context, ip string) (*RateLimitBucket, error) {
	if b, ok := m.buckets[ip]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) CreateBucket(_ context.Context, b *RateLimitBucket) error {
	if m.failCreates > 0 {
		m.failCreates--
		return ErrDuplicate
	}
	cp := *b
	m.buckets[b.IPAddress] = &cp
	return nil
}

func (m *memStore) UpdateBucket(_ context.Context, b *RateLimitBucket) error {
	cp := *b
	m.buckets[b.IPAddress] = &cp
	return nil
}

func (m *memStore) GetLockForUpdate(_ context.Context, key string) (*LoginLock, error) {
	if l, ok := m.locks[key]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

func (m *memStore) CreateLock(_ context.Context, l *LoginLock) error {
	if m.failCreates > 0 {
		m.failCreates--
		return ErrDuplicate
	}
	cp := *l
	m.locks[l.LockKey] = &cp
	return nil
}

func (m *memStore) UpdateLock(_ context.Context, l *LoginLock) error {
	cp := *l
	m.locks[l.LockKey] = &cp
	return nil
}

func (m *memStore) DeleteLock(_ context.Context, key string) error {
	delete(m.locks, key)
	return nil
}

func newTestService(store Store) *Service {
	return NewService(store, metrics.Nop{}, 60, 5, 15*time.Minute)
}

func TestRateLimitCeiling(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()

	for i := 1; i <= 60; i++ {
		limited, err := svc.IsIPRateLimited(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.False(t, limited, "request %d should pass", i)
	}

	limited, err := svc.IsIPRateLimited(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, limited, "61st request in the window is rejected")

	// other IPs are unaffected
	limited, err = svc.IsIPRateLimited(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.False(t, limited)
}

func TestRateLimitWindowReset(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()

	for i := 0; i <= 60; i++ {
		_, err := svc.IsIPRateLimited(ctx, "10.0.0.1")
		require.NoError(t, err)
	}

	// age the window past one minute
	store.buckets["10.0.0.1"].WindowStart = time.Now().Add(-61 * time.Second)

	limited, err := svc.IsIPRateLimited(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, limited, "a request after the window elapses passes again")
	assert.Equal(t, 1, store.buckets["10.0.0.1"].RequestCount)
}

func TestRateLimitInsertRaceRetries(t *testing.T) {
	store := newMemStore()
	store.failCreates = 1
	svc := newTestService(store)

	limited, err := svc.IsIPRateLimited(context.Background(), "10.0.0.9")
	require.NoError(t, err)
	assert.False(t, limited)
}

func TestRateLimitContentionBound(t *testing.T) {
	store := newMemStore()
	store.failCreates = 10
	svc := newTestService(store)

	_, err := svc.IsIPRateLimited(context.Background(), "10.0.0.9")
	assert.ErrorIs(t, err, ErrContention)
}

func TestLockoutAfterThreshold(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, svc.RecordFailure(ctx, "alice", "10.0.0.1"))
		locked, err := svc.IsCredentialLocked(ctx, "alice", "10.0.0.1")
		require.NoError(t, err)
		assert.False(t, locked, "not locked before the threshold")
	}

	require.NoError(t, svc.RecordFailure(ctx, "alice", "10.0.0.1"))

	locked, err := svc.IsCredentialLocked(ctx, "alice", "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, locked, "fifth failure arms the lock")

	l := store.locks[LockKey("alice", "10.0.0.1")]
	require.NotNil(t, l.LockedUntil)
	assert.Equal(t, 0, l.FailureCount, "lockout starts from a clean count")

	// same username from another IP is a separate key
	locked, err = svc.IsCredentialLocked(ctx, "alice", "10.0.0.2")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestFailureDuringActiveLockIsNoop(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()

	until := time.Now().Add(10 * time.Minute)
	store.locks[LockKey("alice", "ip")] = &LoginLock{
		ID: "l1", LockKey: LockKey("alice", "ip"),
		WindowStart: time.Now(), LockedUntil: &until,
	}

	require.NoError(t, svc.RecordFailure(ctx, "alice", "ip"))

	l := store.locks[LockKey("alice", "ip")]
	assert.Equal(t, 0, l.FailureCount)
	assert.Equal(t, until.Unix(), l.LockedUntil.Unix(), "active lock is not extended")
}

func TestExpiredLockClearedOnCheck(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()

	until := time.Now().Add(-time.Second)
	store.locks[LockKey("alice", "ip")] = &LoginLock{
		ID: "l1", LockKey: LockKey("alice", "ip"),
		WindowStart: time.Now().Add(-20 * time.Minute),
		LockedUntil: &until, FailureCount: 3,
	}

	locked, err := svc.IsCredentialLocked(ctx, "alice", "ip")
	require.NoError(t, err)
	assert.False(t, locked)

	l := store.locks[LockKey("alice", "ip")]
	assert.Nil(t, l.LockedUntil, "expired lock is cleared, not merely ignored")
	assert.Equal(t, 0, l.FailureCount)
}

func TestFailureWindowReset(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()

	require.NoError(t, svc.RecordFailure(ctx, "alice", "ip"))
	require.NoError(t, svc.RecordFailure(ctx, "alice", "ip"))

	// 15 minutes of quiet elapse
	store.locks[LockKey("alice", "ip")].WindowStart = time.Now().Add(-16 * time.Minute)

	require.NoError(t, svc.RecordFailure(ctx, "alice", "ip"))
	assert.Equal(t, 1, store.locks[LockKey("alice", "ip")].FailureCount)
}

func TestRecordSuccessDeletesLock(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()

	require.NoError(t, svc.RecordFailure(ctx, "alice", "ip"))
	require.NoError(t, svc.RecordSuccess(ctx, "alice", "ip"))

	_, ok := store.locks[LockKey("alice", "ip")]
	assert.False(t, ok, "success clears all history for the key")
}
