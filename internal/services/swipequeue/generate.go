package swipequeue

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/porcelaincode/mocha-admin-sub000/internal/domain/enums"
	"github.com/porcelaincode/mocha-admin-sub000/internal/domain/model"
	"github.com/porcelaincode/mocha-admin-sub000/internal/domain/rules"
	pgrepo "github.com/porcelaincode/mocha-admin-sub000/internal/repo/postgres"
)

type scoredCandidate struct {
	user  model.User
	score float64
}

// Generate fills the free slots of a user's active queue with the best scored
// candidates. The whole read-check-insert sequence runs in one transaction
// holding a lock on the user row, so concurrent calls for one user serialise.
func (s *Service) Generate(ctx context.Context, userID uuid.UUID) (GenerateResult, error) {
	if userID == uuid.Nil {
		return GenerateResult{}, validationError("user id is required")
	}
	if s.tx == nil || s.swipes == nil || s.users == nil {
		return GenerateResult{}, s.storeFailure("generate", errors.New("queue stores are not configured"))
	}

	if s.rateLimiter != nil {
		retryAfter, allowed, err := s.rateLimiter.AllowGenerate(ctx, userID)
		if err != nil {
			s.logger.Warn("generate rate limiter unavailable", zap.String("user_id", userID.String()), zap.Error(err))
		} else if !allowed {
			return GenerateResult{}, &TooFastError{RetryAfterSec: retryAfter}
		}
	}

	var result GenerateResult
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		created, remaining, err := s.generateInTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		result = GenerateResult{Created: created, Remaining: remaining}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrQueueFull), errors.Is(err, ErrUserNotFound), errors.Is(err, ErrNoCandidates):
			return GenerateResult{}, err
		default:
			return GenerateResult{}, s.storeFailure("generate", err)
		}
	}

	s.logger.Info("swipe queue generated",
		zap.String("user_id", userID.String()),
		zap.Int("created", result.Created),
		zap.Int("remaining", result.Remaining),
	)
	return result, nil
}

func (s *Service) generateInTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int, int, error) {
	// The capacity check must win over a missing user, so the lookup error is held back.
	user, lookupErr := s.users.LockByID(ctx, tx, userID)
	if lookupErr != nil && !errors.Is(lookupErr, pgrepo.ErrUserNotFound) {
		return 0, 0, &StoreError{Op: "lock user", Err: lookupErr}
	}

	active, err := s.swipes.CountActiveByUser(ctx, tx, userID)
	if err != nil {
		return 0, 0, &StoreError{Op: "count active swipes", Err: err}
	}
	remainingSlots := s.cfg.Capacity - active
	if remainingSlots <= 0 {
		return 0, 0, ErrQueueFull
	}
	if lookupErr != nil {
		return 0, 0, ErrUserNotFound
	}

	filter, err := s.users.GetFilter(ctx, tx, userID)
	if err != nil {
		return 0, 0, &StoreError{Op: "get user filter", Err: err}
	}
	prefs := rules.ResolvePreferences(user, filter, rules.Defaults{
		AgeMin:      s.cfg.DefaultAgeMin,
		AgeMax:      s.cfg.DefaultAgeMax,
		MaxDistance: s.cfg.DefaultMaxDistance,
	})

	query := pgrepo.CandidateQuery{
		UserID:          userID,
		AgeMin:          prefs.AgeMin,
		AgeMax:          prefs.AgeMax,
		VerifiedOnly:    prefs.VerifiedOnly,
		ExcludeAllPrior: s.cfg.ExclusionPolicy == enums.ExclusionAllPrior,
		Limit:           remainingSlots * s.cfg.CandidateMultiplier,
	}
	if s.cfg.ApplyDistanceFilter && user.HasCoordinates() {
		query.OriginLat = user.Latitude
		query.OriginLon = user.Longitude
		query.MaxDistanceKM = prefs.MaxDistance
	}

	pool, err := s.users.ListCandidates(ctx, tx, query)
	if err != nil {
		return 0, 0, &StoreError{Op: "list candidates", Err: err}
	}
	pool = eligibleCandidates(user, pool, prefs)
	if len(pool) == 0 {
		return 0, 0, ErrNoCandidates
	}

	selected := s.rankCandidates(user, pool, remainingSlots)

	now := s.now().UTC()
	expiresAt := now.Add(s.cfg.Expiry)
	created := 0
	for _, candidate := range selected {
		_, err := s.swipes.Create(ctx, tx, pgrepo.NewSwipe{
			FromUserID: userID,
			ToUserID:   candidate.ID,
			Action:     enums.SwipeActionLike,
			Status:     enums.SwipeStatusActive,
			CreatedAt:  now,
			ExpiresAt:  &expiresAt,
		})
		if err != nil {
			return 0, 0, &StoreError{Op: "create swipe", Err: err}
		}
		created++
	}

	return created, remainingSlots - created, nil
}

// eligibleCandidates re-applies the pool rules to store results.
func eligibleCandidates(requester model.User, pool []model.User, prefs rules.EffectivePreferences) []model.User {
	seen := make(map[uuid.UUID]struct{}, len(pool))
	out := make([]model.User, 0, len(pool))
	for _, candidate := range pool {
		if candidate.ID == uuid.Nil || candidate.ID == requester.ID {
			continue
		}
		if candidate.IsTestUser || candidate.IsDummyUser {
			continue
		}
		if candidate.Age < prefs.AgeMin || candidate.Age > prefs.AgeMax {
			continue
		}
		if prefs.VerifiedOnly && !candidate.Verified {
			continue
		}
		if _, ok := seen[candidate.ID]; ok {
			continue
		}
		seen[candidate.ID] = struct{}{}
		out = append(out, candidate)
	}
	return out
}

func (s *Service) rankCandidates(requester model.User, pool []model.User, limit int) []model.User {
	now := s.now().UTC()
	ranked := make([]scoredCandidate, 0, len(pool))
	for _, candidate := range pool {
		ranked = append(ranked, scoredCandidate{
			user:  candidate,
			score: rules.Score(requester, candidate, now, s.jitter()),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if limit > len(ranked) {
		limit = len(ranked)
	}
	out := make([]model.User, 0, limit)
	for _, item := range ranked[:limit] {
		out = append(out, item.user)
	}
	return out
}
