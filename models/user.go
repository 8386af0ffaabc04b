package models

import (
	"time"
)

// User repräsentiert ein registriertes Benutzerkonto.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`

	Email        string     `json:"email" gorm:"uniqueIndex;not null"`
	FullName     string     `json:"full_name"`
	PasswordHash string     `json:"-" gorm:"not null"`
	IsActive     bool       `json:"is_active" gorm:"default:true"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// UserStats fasst die Nutzungsstatistik eines Benutzerkontos zusammen.
type UserStats struct {
	TotalExtractions  int64  `json:"total_extractions"`
	TotalAnalyses     int64  `json:"total_analyses"`
	RecentExtractions int64  `json:"recent_extractions"`
	UserID            uint   `json:"user_id"`
	UserEmail         string `json:"user_email"`
	UserName          string `json:"user_name"`
}

// PasswordResetToken ist ein einmaliger, zeitlich begrenzter Reset-Token.
type PasswordResetToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	UserID    uint      `json:"user_id" gorm:"index;not null"`
	Token     string    `json:"-" gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
}
