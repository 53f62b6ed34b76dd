package model

import (
	"time"

	"github.com/google/uuid"
)

type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Preferences is the free-form preference document embedded on a user row.
type Preferences struct {
	AgeRange    *AgeRange `json:"age_range,omitempty"`
	MaxDistance *int      `json:"max_distance,omitempty"`
}

type User struct {
	ID           uuid.UUID    `json:"id" validate:"required"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone"`
	Age          int          `json:"age" validate:"gte=0,lte=150"`
	Bio          string       `json:"bio"`
	Location     string       `json:"location"`
	Latitude     *float64     `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64     `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Verified     bool         `json:"verified"`
	IsTestUser   bool         `json:"is_test_user"`
	IsDummyUser  bool         `json:"is_dummy_user"`
	LastActiveAt *time.Time   `json:"last_active_at,omitempty"`
	Preferences  *Preferences `json:"preferences,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

func (u User) HasCoordinates() bool {
	return u.Latitude != nil && u.Longitude != nil
}

// UserFilter is the optional per-user record that overrides embedded preferences.
type UserFilter struct {
	UserID       uuid.UUID `json:"user_id" validate:"required"`
	AgeMin       int       `json:"age_min" validate:"gte=0"`
	AgeMax       int       `json:"age_max" validate:"gte=0"`
	MaxDistance  int       `json:"max_distance" validate:"gte=0"`
	VerifiedOnly bool      `json:"verified_only"`
}

type UserSummary struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone"`
	Age      int       `json:"age"`
	Bio      string    `json:"bio"`
	Location string    `json:"location"`
	Verified bool      `json:"verified"`
}

type LowQueueUser struct {
	User         UserSummary `json:"user"`
	ActiveSwipes int         `json:"active_swipes"`
}
