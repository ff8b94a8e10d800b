package security

import (
	"context"
	"errors"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on MySQL. Reads take SELECT ... FOR UPDATE row
// locks so the read-modify-write in the service is atomic per row.
type GormStore struct{ db *gorm.DB }

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (s *GormStore) Tx(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) GetBucketForUpdate(ctx context.Context, ip string) (*RateLimitBucket, error) {
	var b RateLimitBucket
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&b, "ip_address = ?", ip).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (s *GormStore) CreateBucket(ctx context.Context, b *RateLimitBucket) error {
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		if isDup(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *GormStore) UpdateBucket(ctx context.Context, b *RateLimitBucket) error {
	return s.db.WithContext(ctx).Model(&RateLimitBucket{}).
		Where("id = ?", b.ID).
		Updates(map[string]any{
			"window_start":  b.WindowStart,
			"request_count": b.RequestCount,
		}).Error
}

func (s *GormStore) GetLockForUpdate(ctx context.Context, key string) (*LoginLock, error) {
	var l LoginLock
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&l, "lock_key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

func (s *GormStore) CreateLock(ctx context.Context, l *LoginLock) error {
	if err := s.db.WithContext(ctx).Create(l).Error; err != nil {
		if isDup(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

func (s *GormStore) UpdateLock(ctx context.Context, l *LoginLock) error {
	return s.db.WithContext(ctx).Model(&LoginLock{}).
		Where("id = ?", l.ID).
		Updates(map[string]any{
			"window_start":  l.WindowStart,
			"failure_count": l.FailureCount,
			"locked_until":  l.LockedUntil,
		}).Error
}

func (s *GormStore) DeleteLock(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("lock_key = ?", key).Delete(&LoginLock{}).Error
}

func isDup(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
