package dto

import (
	"time"

	"github.com/porcelaincode/mocha-admin-sub000/internal/domain/model"
	"github.com/porcelaincode/mocha-admin-sub000/internal/services/swipequeue"
)

type UserSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Age      int    `json:"age"`
	Bio      string `json:"bio"`
	Location string `json:"location"`
	Verified bool   `json:"verified"`
}

type Swipe struct {
	ID         string     `json:"id"`
	FromUserID string     `json:"from_user_id"`
	ToUserID   string     `json:"to_user_id"`
	Action     string     `json:"action"`
	Status     string     `json:"status"`
	Note       *string    `json:"note"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

type QueueEntry struct {
	Swipe
	ToUser UserSummary `json:"to_user"`
}

type QueueResponse struct {
	Success  bool         `json:"success"`
	UserID   string       `json:"user_id"`
	Count    int          `json:"count"`
	Capacity int          `json:"capacity"`
	Items    []QueueEntry `json:"items"`
}

type GenerateResponse struct {
	Success   bool `json:"success"`
	Created   int  `json:"created"`
	Remaining int  `json:"remaining"`
}

type LowQueueUser struct {
	UserSummary
	ActiveSwipes int `json:"active_swipes"`
}

type LowQueueResponse struct {
	Success   bool           `json:"success"`
	Threshold int            `json:"threshold"`
	Items     []LowQueueUser `json:"items"`
}

type SwipeListResponse struct {
	Success bool    `json:"success"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
	Items   []Swipe `json:"items"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type SwipeResponse struct {
	Success bool  `json:"success"`
	Swipe   Swipe `json:"swipe"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type BatchStatusRequest struct {
	IDs    []string `json:"ids" validate:"required,min=1,max=500,dive,uuid"`
	Status string   `json:"status" validate:"required"`
}

type BatchStatusItem struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Swipe   *Swipe `json:"swipe,omitempty"`
}

type BatchStatusResponse struct {
	Success bool              `json:"success"`
	Updated int               `json:"updated"`
	Failed  int               `json:"failed"`
	Items   []BatchStatusItem `json:"items"`
}

type SweepResponse struct {
	Success bool  `json:"success"`
	Updated int64 `json:"updated"`
}

func NewUserSummary(u model.UserSummary) UserSummary {
	return UserSummary{
		ID:       u.ID.String(),
		Name:     u.Name,
		Email:    u.Email,
		Phone:    u.Phone,
		Age:      u.Age,
		Bio:      u.Bio,
		Location: u.Location,
		Verified: u.Verified,
	}
}

func NewSwipe(s model.Swipe) Swipe {
	return Swipe{
		ID:         s.ID.String(),
		FromUserID: s.FromUserID.String(),
		ToUserID:   s.ToUserID.String(),
		Action:     string(s.Action),
		Status:     string(s.Status),
		Note:       s.Note,
		CreatedAt:  s.CreatedAt,
		ExpiresAt:  s.ExpiresAt,
	}
}

func NewQueueEntries(entries []model.QueueEntry) []QueueEntry {
	out := make([]QueueEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, QueueEntry{
			Swipe:  NewSwipe(entry.Swipe),
			ToUser: NewUserSummary(entry.ToUser),
		})
	}
	return out
}

func NewLowQueueUsers(users []model.LowQueueUser) []LowQueueUser {
	out := make([]LowQueueUser, 0, len(users))
	for _, item := range users {
		out = append(out, LowQueueUser{
			UserSummary:  NewUserSummary(item.User),
			ActiveSwipes: item.ActiveSwipes,
		})
	}
	return out
}

func NewSwipes(swipes []model.Swipe) []Swipe {
	out := make([]Swipe, 0, len(swipes))
	for _, s := range swipes {
		out = append(out, NewSwipe(s))
	}
	return out
}

func NewBatchStatusResponse(results []swipequeue.BatchItemResult) BatchStatusResponse {
	resp := BatchStatusResponse{
		Success: true,
		Items:   make([]BatchStatusItem, 0, len(results)),
	}
	for _, item := range results {
		out := BatchStatusItem{
			ID:      item.ID.String(),
			Success: item.Success,
			Error:   item.Error,
		}
		if item.Swipe != nil {
			swipe := NewSwipe(*item.Swipe)
			out.Swipe = &swipe
		}
		if item.Success {
			resp.Updated++
		} else {
			resp.Failed++
		}
		resp.Items = append(resp.Items, out)
	}
	return resp
}
