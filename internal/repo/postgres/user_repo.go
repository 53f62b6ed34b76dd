package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/porcelaincode/mocha-admin-sub000/internal/domain/model"
	"github.com/porcelaincode/mocha-admin-sub000/internal/pkg/validate"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

type CandidateQuery struct {
	UserID          uuid.UUID
	AgeMin          int
	AgeMax          int
	VerifiedOnly    bool
	ExcludeAllPrior bool

	// Origin enables the distance filter when set together with MaxDistanceKM.
	OriginLat     *float64
	OriginLon     *float64
	MaxDistanceKM int
	Limit         int
}

// LockByID loads the user and holds a row lock until tx ends.
func (r *UserRepo) LockByID(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (model.User, error) {
	if userID == uuid.Nil {
		return model.User{}, fmt.Errorf("invalid user id")
	}
	if tx == nil {
		return model.User{}, fmt.Errorf("transaction is required")
	}

	return r.getUser(ctx, tx, `
SELECT `+userColumns+`
FROM users u
WHERE u.id = $1
FOR UPDATE
`, userID)
}

func (r *UserRepo) getUser(ctx context.Context, q querier, sql string, userID uuid.UUID) (model.User, error) {
	var raw userRow
	if err := q.QueryRow(ctx, sql, userID).Scan(raw.targets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return raw.toModel()
}

// GetFilter returns nil when the user has no filter record.
func (r *UserRepo) GetFilter(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*model.UserFilter, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("invalid user id")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction is required")
	}

	var filter model.UserFilter
	err := tx.QueryRow(ctx, `
SELECT user_id, age_min, age_max, max_distance, verified_only
FROM user_filters
WHERE user_id = $1
`, userID).Scan(
		&filter.UserID,
		&filter.AgeMin,
		&filter.AgeMax,
		&filter.MaxDistance,
		&filter.VerifiedOnly,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user filter: %w", err)
	}
	if err := validate.Struct(filter); err != nil {
		return nil, fmt.Errorf("%w: user filter %s: %v", ErrInvalidRow, userID, err)
	}

	return &filter, nil
}

func (r *UserRepo) ListCandidates(ctx context.Context, tx pgx.Tx, q CandidateQuery) ([]model.User, error) {
	if q.UserID == uuid.Nil {
		return nil, fmt.Errorf("invalid user id")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction is required")
	}
	if q.Limit <= 0 {
		return []model.User{}, nil
	}

	applyDistance := q.OriginLat != nil && q.OriginLon != nil && q.MaxDistanceKM > 0
	var originLat, originLon float64
	if applyDistance {
		originLat, originLon = *q.OriginLat, *q.OriginLon
	}

	rows, err := tx.Query(ctx, `
SELECT `+userColumns+`
FROM users u
WHERE
	u.id <> $1
	AND u.is_dummy_user = FALSE
	AND u.is_test_user = FALSE
	AND u.age BETWEEN $2 AND $3
	AND ($4::boolean = FALSE OR u.verified = TRUE)
	AND NOT EXISTS (
		SELECT 1
		FROM swipes s
		WHERE s.from_user_id = $1
			AND s.to_user_id = u.id
			AND ($5::boolean = TRUE OR s.status = 'active')
	)
	AND (
		$6::boolean = FALSE
		OR u.latitude IS NULL
		OR u.longitude IS NULL
		OR 6371.0 * ACOS(LEAST(1.0, GREATEST(-1.0,
			COS(RADIANS($7::float8)) * COS(RADIANS(u.latitude)) * COS(RADIANS(u.longitude) - RADIANS($8::float8))
			+ SIN(RADIANS($7::float8)) * SIN(RADIANS(u.latitude))
		))) <= $9::float8
	)
ORDER BY u.last_active_at DESC NULLS LAST, u.id ASC
LIMIT $10
`,
		q.UserID,
		q.AgeMin,
		q.AgeMax,
		q.VerifiedOnly,
		q.ExcludeAllPrior,
		applyDistance,
		originLat,
		originLon,
		float64(q.MaxDistanceKM),
		q.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	candidates := make([]model.User, 0, q.Limit)
	for rows.Next() {
		var raw userRow
		if err := rows.Scan(raw.targets()...); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		user, err := raw.toModel()
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}

	return candidates, nil
}

// ListLowQueue returns real users whose active swipe count is below threshold,
// fewest first.
func (r *UserRepo) ListLowQueue(ctx context.Context, threshold int) ([]model.LowQueueUser, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	u.id,
	u.name,
	u.email,
	u.phone,
	u.age,
	u.bio,
	u.location,
	u.verified,
	COUNT(s.id)::int AS active_swipes
FROM users u
LEFT JOIN swipes s ON s.from_user_id = u.id AND s.status = 'active'
WHERE u.is_test_user = FALSE AND u.is_dummy_user = FALSE
GROUP BY u.id
HAVING COUNT(s.id) < $1
ORDER BY active_swipes ASC, u.created_at ASC, u.id ASC
`, threshold)
	if err != nil {
		return nil, fmt.Errorf("list low queue users: %w", err)
	}
	defer rows.Close()

	out := make([]model.LowQueueUser, 0, 16)
	for rows.Next() {
		var item model.LowQueueUser
		if err := rows.Scan(
			&item.User.ID,
			&item.User.Name,
			&item.User.Email,
			&item.User.Phone,
			&item.User.Age,
			&item.User.Bio,
			&item.User.Location,
			&item.User.Verified,
			&item.ActiveSwipes,
		); err != nil {
			return nil, fmt.Errorf("scan low queue user: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate low queue users: %w", err)
	}

	return out, nil
}
