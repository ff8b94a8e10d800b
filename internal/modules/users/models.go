package users

import "time"

type User struct {
	ID               string  `gorm:"type:char(36);primaryKey"`
	Username         string  `gorm:"type:varchar(64);not null;uniqueIndex:ux_users_username"`
	Email            string  `gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	PasswordHash     string  `gorm:"type:varchar(100);not null"`
	EmailVerified    bool    `gorm:"not null;default:0"`
	StripeCustomerID *string `gorm:"type:varchar(64)"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (User) TableName() string { return "users" }
