package postgres

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/porcelaincode/mocha-admin-sub000/internal/domain/enums"
	"github.com/porcelaincode/mocha-admin-sub000/internal/domain/model"
	"github.com/porcelaincode/mocha-admin-sub000/internal/pkg/validate"
)

var ErrInvalidRow = errors.New("invalid row")

const userColumns = `
	u.id,
	u.name,
	u.email,
	u.phone,
	u.age,
	u.bio,
	u.location,
	u.latitude,
	u.longitude,
	u.verified,
	u.is_test_user,
	u.is_dummy_user,
	u.last_active_at,
	u.preferences,
	u.created_at`

const swipeColumns = `
	s.id,
	s.from_user_id,
	s.to_user_id,
	s.action,
	s.status,
	s.note,
	s.created_at,
	s.expires_at`

type userRow struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Phone        string
	Age          int
	Bio          string
	Location     string
	Latitude     *float64
	Longitude    *float64
	Verified     bool
	IsTestUser   bool
	IsDummyUser  bool
	LastActiveAt *time.Time
	Preferences  []byte
	CreatedAt    time.Time
}

func (r *userRow) targets() []any {
	return []any{
		&r.ID,
		&r.Name,
		&r.Email,
		&r.Phone,
		&r.Age,
		&r.Bio,
		&r.Location,
		&r.Latitude,
		&r.Longitude,
		&r.Verified,
		&r.IsTestUser,
		&r.IsDummyUser,
		&r.LastActiveAt,
		&r.Preferences,
		&r.CreatedAt,
	}
}

func (r userRow) toModel() (model.User, error) {
	user := model.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		Phone:        r.Phone,
		Age:          r.Age,
		Bio:          r.Bio,
		Location:     r.Location,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
		Verified:     r.Verified,
		IsTestUser:   r.IsTestUser,
		IsDummyUser:  r.IsDummyUser,
		LastActiveAt: utcPtr(r.LastActiveAt),
		CreatedAt:    r.CreatedAt.UTC(),
	}

	if len(r.Preferences) > 0 && string(r.Preferences) != "null" {
		var prefs model.Preferences
		if err := json.Unmarshal(r.Preferences, &prefs); err != nil {
			return model.User{}, fmt.Errorf("%w: user %s preferences: %v", ErrInvalidRow, r.ID, err)
		}
		user.Preferences = &prefs
	}

	if err := validate.Struct(user); err != nil {
		return model.User{}, fmt.Errorf("%w: user %s: %v", ErrInvalidRow, r.ID, err)
	}
	return user, nil
}

type swipeRow struct {
	ID         uuid.UUID
	FromUserID uuid.UUID
	ToUserID   uuid.UUID
	Action     string
	Status     string
	Note       *string
	CreatedAt  time.Time
	ExpiresAt  *time.Time
}

func (r *swipeRow) targets() []any {
	return []any{
		&r.ID,
		&r.FromUserID,
		&r.ToUserID,
		&r.Action,
		&r.Status,
		&r.Note,
		&r.CreatedAt,
		&r.ExpiresAt,
	}
}

func (r swipeRow) toModel() (model.Swipe, error) {
	action, ok := enums.ParseSwipeAction(r.Action)
	if !ok {
		return model.Swipe{}, fmt.Errorf("%w: swipe %s action %q", ErrInvalidRow, r.ID, r.Action)
	}
	status, ok := enums.ParseSwipeStatus(r.Status)
	if !ok {
		return model.Swipe{}, fmt.Errorf("%w: swipe %s status %q", ErrInvalidRow, r.ID, r.Status)
	}
	if r.FromUserID == r.ToUserID {
		return model.Swipe{}, fmt.Errorf("%w: swipe %s targets its issuer", ErrInvalidRow, r.ID)
	}

	swipe := model.Swipe{
		ID:         r.ID,
		FromUserID: r.FromUserID,
		ToUserID:   r.ToUserID,
		Action:     action,
		Status:     status,
		Note:       r.Note,
		CreatedAt:  r.CreatedAt.UTC(),
		ExpiresAt:  utcPtr(r.ExpiresAt),
	}
	if err := validate.Struct(swipe); err != nil {
		return model.Swipe{}, fmt.Errorf("%w: swipe %s: %v", ErrInvalidRow, r.ID, err)
	}
	return swipe, nil
}

func scanSwipe(row pgx.Row) (model.Swipe, error) {
	var raw swipeRow
	if err := row.Scan(raw.targets()...); err != nil {
		return model.Swipe{}, err
	}
	return raw.toModel()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

func utcPtr(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	value := v.UTC()
	return &value
}
