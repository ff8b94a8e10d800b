package security

import "time"

// RateLimitBucket is the per-IP fixed-window request counter.
type RateLimitBucket struct {
	ID           string    `gorm:"type:char(36);primaryKey"`
	IPAddress    string    `gorm:"type:varchar(45);not null;uniqueIndex:ux_rate_limit_buckets_ip"`
	WindowStart  time.Time `gorm:"type:datetime(3);not null"`
	RequestCount int       `gorm:"not null"`
}

func (RateLimitBucket) TableName() string { return "auth_rate_limit_buckets" }

// LoginLock tracks authentication failures per username|ip composite key.
type LoginLock struct {
	ID           string     `gorm:"type:char(36);primaryKey"`
	LockKey      string     `gorm:"type:varchar(321);not null;uniqueIndex:ux_login_locks_key"`
	WindowStart  time.Time  `gorm:"type:datetime(3);not null"`
	FailureCount int        `gorm:"not null"`
	LockedUntil  *time.Time `gorm:"type:datetime(3)"`
}

func (LoginLock) TableName() string { return "auth_login_locks" }

// LockKey builds the composite brute-force key.
func LockKey(username, ip string) string { return username + "|" + ip }
