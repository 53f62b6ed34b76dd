package auth

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
)

const (
	RoleOwner     = "OWNER"
	RoleSupport   = "SUPPORT"
	RoleModerator = "MODERATOR"
)

type AccessClaims struct {
	Subject   string
	SID       string
	Role      string
	ExpiresAt time.Time
}

func NormalizeRole(role string) string {
	return strings.ToUpper(strings.TrimSpace(role))
}
