package model

import "time"

// User is a registered author/reader. PasswordHash is a bcrypt digest; ResetTokenHash is the
// SHA-256 of an outstanding reset token and is only meaningful together with ResetExpires.
type User struct {
	Id             int        `json:"id" gorm:"primaryKey;autoIncrement"`
	Username       string     `json:"username" gorm:"uniqueIndex;size:20;not null"`
	Email          string     `json:"-" gorm:"uniqueIndex;not null"`
	PasswordHash   string     `json:"-" gorm:"not null"`
	Bio            string     `json:"bio" gorm:"size:200"`
	Avatar         string     `json:"avatar"`
	ResetTokenHash *string    `json:"-" gorm:"index"`
	ResetExpires   *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}
