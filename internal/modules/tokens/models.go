package tokens

import "time"

// Token purposes. A user holds at most one active token per purpose.
const (
	PurposeEmailVerification = "EMAIL_VERIFICATION"
	PurposePasswordReset     = "PASSWORD_RESET"
	PurposeRefreshSession    = "REFRESH_SESSION"
)

type Token struct {
	ID        string `gorm:"type:char(36);primaryKey"`
	UserID    string `gorm:"type:char(36);not null;index:ix_user_tokens_user_purpose,priority:1"`
	Purpose   string `gorm:"type:varchar(32);not null;index:ix_user_tokens_user_purpose,priority:2"`
	TokenHash string `gorm:"type:char(64);not null;uniqueIndex:ux_user_tokens_hash"`

	CreatedAt time.Time  `gorm:"type:datetime(3);not null"`
	ExpiresAt time.Time  `gorm:"type:datetime(3);not null"`
	UsedAt    *time.Time `gorm:"type:datetime(3)"`
}

func (Token) TableName() string { return "user_tokens" }
