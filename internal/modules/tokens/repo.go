package tokens

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on MySQL through GORM.
type GormStore struct{ db *gorm.DB }

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (s *GormStore) Tx(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) DeleteByUserAndPurpose(ctx context.Context, userID, purpose string) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND purpose = ?", userID, purpose).
		Delete(&Token{}).Error
}

func (s *GormStore) Create(ctx context.Context, t *Token) error {
	return s.db.WithContext(ctx).Create(t).Error
}

func (s *GormStore) FindActive(ctx context.Context, hash, purpose string, now time.Time) (*Token, error) {
	var t Token
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&t, "token_hash = ? AND purpose = ? AND used_at IS NULL AND expires_at > ?", hash, purpose, now).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (s *GormStore) MarkUsed(ctx context.Context, id string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&Token{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) RedeemedVerificationForVerifiedUser(ctx context.Context, hash string) (bool, error) {
	var cnt int64
	err := s.db.WithContext(ctx).Model(&Token{}).
		Joins("JOIN users ON users.id = user_tokens.user_id").
		Where("user_tokens.token_hash = ? AND user_tokens.purpose = ? AND user_tokens.used_at IS NOT NULL AND users.email_verified = ?",
			hash, PurposeEmailVerification, true).
		Count(&cnt).Error
	if err != nil {
		return false, err
	}
	return cnt > 0, nil
}
