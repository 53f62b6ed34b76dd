package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/porcelaincode/mocha-admin-sub000/internal/domain/enums"
)

type Swipe struct {
	ID         uuid.UUID         `json:"id" validate:"required"`
	FromUserID uuid.UUID         `json:"from_user_id" validate:"required"`
	ToUserID   uuid.UUID         `json:"to_user_id" validate:"required"`
	Action     enums.SwipeAction `json:"action" validate:"oneof=like pass superlike"`
	Status     enums.SwipeStatus `json:"status" validate:"oneof=active expired revoked"`
	Note       *string           `json:"note,omitempty"`
	CreatedAt  time.Time         `json:"created_at" validate:"required"`
	ExpiresAt  *time.Time        `json:"expires_at,omitempty"`
}

// QueueEntry is an active swipe enriched with the candidate profile.
type QueueEntry struct {
	Swipe
	ToUser UserSummary `json:"to_user"`
}
