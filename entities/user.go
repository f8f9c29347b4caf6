package entities

import "time"

// User is an account allowed to obtain access tokens.
type User struct {
	ID            uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username      string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	PasswordHash  string     `gorm:"type:varchar(120);not null" json:"-"`
	Enabled       bool       `gorm:"not null" json:"enabled"`
	CreatedDate   time.Time  `gorm:"not null;autoCreateTime" json:"created_date"`
	LastLoginDate *time.Time `json:"last_login_date,omitempty"`
}
