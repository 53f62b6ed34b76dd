package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/porcelaincode/mocha-admin-sub000/internal/domain/enums"
	"github.com/porcelaincode/mocha-admin-sub000/internal/domain/model"
)

var (
	ErrSwipeNotFound   = errors.New("swipe not found")
	ErrSwipePairExists = errors.New("swipe already exists for this user pair")
)

const (
	DefaultSwipePageSize = 50
	MaxSwipePageSize     = 500
)

type SwipeRepo struct {
	pool *pgxpool.Pool
}

func NewSwipeRepo(pool *pgxpool.Pool) *SwipeRepo {
	return &SwipeRepo{pool: pool}
}

type NewSwipe struct {
	FromUserID uuid.UUID
	ToUserID   uuid.UUID
	Action     enums.SwipeAction
	Status     enums.SwipeStatus
	CreatedAt  time.Time
	ExpiresAt  *time.Time
}

type SwipeFilter struct {
	FromUserID *uuid.UUID
	ToUserID   *uuid.UUID
	Status     enums.SwipeStatus
	Action     enums.SwipeAction
	Limit      int
	Offset     int
}

// SwipePage carries the limit and offset actually applied to the query.
type SwipePage struct {
	Items  []model.Swipe
	Total  int
	Limit  int
	Offset int
}

func (r *SwipeRepo) CountActiveByUser(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, fmt.Errorf("invalid user id")
	}
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}

	var count int
	err := tx.QueryRow(ctx, `
SELECT COUNT(*)
FROM swipes
WHERE from_user_id = $1 AND status = 'active'
`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active swipes: %w", err)
	}
	return count, nil
}

// Create inserts a swipe. An inactive swipe for the same pair is reactivated
// in place and keeps its id; an active one yields ErrSwipePairExists.
func (r *SwipeRepo) Create(ctx context.Context, tx pgx.Tx, in NewSwipe) (model.Swipe, error) {
	if in.FromUserID == uuid.Nil || in.ToUserID == uuid.Nil || in.FromUserID == in.ToUserID {
		return model.Swipe{}, fmt.Errorf("invalid swipe payload")
	}
	if tx == nil {
		return model.Swipe{}, fmt.Errorf("transaction is required")
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}
	if in.Status == "" {
		in.Status = enums.SwipeStatusActive
	}

	swipe, err := scanSwipe(tx.QueryRow(ctx, `
INSERT INTO swipes AS s (
	id,
	from_user_id,
	to_user_id,
	action,
	status,
	created_at,
	expires_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $6)
ON CONFLICT ON CONSTRAINT swipes_pair_unique DO UPDATE
SET
	action = EXCLUDED.action,
	status = EXCLUDED.status,
	created_at = EXCLUDED.created_at,
	expires_at = EXCLUDED.expires_at,
	updated_at = EXCLUDED.updated_at
WHERE s.status <> 'active'
RETURNING `+swipeColumns+`
`, uuid.New(), in.FromUserID, in.ToUserID, string(in.Action), string(in.Status), in.CreatedAt.UTC(), utcPtr(in.ExpiresAt)))
	if err != nil {
		// An active row for the pair leaves the conflict update with no row to return.
		if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
			return model.Swipe{}, ErrSwipePairExists
		}
		return model.Swipe{}, fmt.Errorf("create swipe: %w", err)
	}

	return swipe, nil
}

func (r *SwipeRepo) ListActiveQueue(ctx context.Context, userID uuid.UUID) ([]model.QueueEntry, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+swipeColumns+`,
	u.id,
	u.name,
	u.email,
	u.phone,
	u.age,
	u.bio,
	u.location,
	u.verified
FROM swipes s
JOIN users u ON u.id = s.to_user_id
WHERE s.from_user_id = $1 AND s.status = 'active'
ORDER BY s.created_at ASC, s.id ASC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list active queue: %w", err)
	}
	defer rows.Close()

	entries := make([]model.QueueEntry, 0, 8)
	for rows.Next() {
		var raw swipeRow
		var toUser model.UserSummary
		targets := append(raw.targets(),
			&toUser.ID,
			&toUser.Name,
			&toUser.Email,
			&toUser.Phone,
			&toUser.Age,
			&toUser.Bio,
			&toUser.Location,
			&toUser.Verified,
		)
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan queue entry: %w", err)
		}
		swipe, err := raw.toModel()
		if err != nil {
			return nil, err
		}
		entries = append(entries, model.QueueEntry{Swipe: swipe, ToUser: toUser})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue entries: %w", err)
	}

	return entries, nil
}

func (r *SwipeRepo) UpdateStatus(ctx context.Context, swipeID uuid.UUID, status enums.SwipeStatus, now time.Time) (model.Swipe, error) {
	if swipeID == uuid.Nil {
		return model.Swipe{}, fmt.Errorf("invalid swipe id")
	}
	if r.pool == nil {
		return model.Swipe{}, fmt.Errorf("postgres pool is nil")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	swipe, err := scanSwipe(r.pool.QueryRow(ctx, `
UPDATE swipes AS s
SET status = $2, updated_at = $3
WHERE s.id = $1
RETURNING `+swipeColumns+`
`, swipeID, string(status), now.UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Swipe{}, ErrSwipeNotFound
		}
		return model.Swipe{}, fmt.Errorf("update swipe status: %w", err)
	}

	return swipe, nil
}

func (r *SwipeRepo) Delete(ctx context.Context, swipeID uuid.UUID) error {
	if swipeID == uuid.Nil {
		return fmt.Errorf("invalid swipe id")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	result, err := r.pool.Exec(ctx, `
DELETE FROM swipes
WHERE id = $1
`, swipeID)
	if err != nil {
		return fmt.Errorf("delete swipe: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSwipeNotFound
	}
	return nil
}

// ExpireCreatedBefore moves active swipes created before cutoff to expired.
func (r *SwipeRepo) ExpireCreatedBefore(ctx context.Context, cutoff, now time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}
	if cutoff.IsZero() {
		return 0, fmt.Errorf("expiry cutoff is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	result, err := r.pool.Exec(ctx, `
UPDATE swipes
SET status = 'expired', updated_at = $2
WHERE status = 'active' AND created_at < $1
`, cutoff.UTC(), now.UTC())
	if err != nil {
		return 0, fmt.Errorf("expire stale swipes: %w", err)
	}
	return result.RowsAffected(), nil
}

func (r *SwipeRepo) List(ctx context.Context, f SwipeFilter) (SwipePage, error) {
	if r.pool == nil {
		return SwipePage{}, fmt.Errorf("postgres pool is nil")
	}
	if f.Limit <= 0 {
		f.Limit = DefaultSwipePageSize
	}
	if f.Limit > MaxSwipePageSize {
		f.Limit = MaxSwipePageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	const where = `
WHERE ($1::uuid IS NULL OR s.from_user_id = $1)
	AND ($2::uuid IS NULL OR s.to_user_id = $2)
	AND ($3::text = '' OR s.status = $3)
	AND ($4::text = '' OR s.action = $4)
`
	args := []any{f.FromUserID, f.ToUserID, string(f.Status), string(f.Action)}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM swipes s`+where, args...).Scan(&total); err != nil {
		return SwipePage{}, fmt.Errorf("count swipes: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+swipeColumns+`
FROM swipes s`+where+`
ORDER BY s.created_at DESC, s.id DESC
LIMIT $5 OFFSET $6
`, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return SwipePage{}, fmt.Errorf("list swipes: %w", err)
	}
	defer rows.Close()

	items := make([]model.Swipe, 0, f.Limit)
	for rows.Next() {
		swipe, err := scanSwipe(rows)
		if err != nil {
			return SwipePage{}, fmt.Errorf("scan swipe: %w", err)
		}
		items = append(items, swipe)
	}
	if err := rows.Err(); err != nil {
		return SwipePage{}, fmt.Errorf("iterate swipes: %w", err)
	}

	return SwipePage{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}
