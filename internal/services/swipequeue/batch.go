package swipequeue

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/porcelaincode/mocha-admin-sub000/internal/domain/enums"
	"github.com/porcelaincode/mocha-admin-sub000/internal/domain/model"
)

type BatchItemResult struct {
	ID      uuid.UUID
	Success bool
	Swipe   *model.Swipe
	Error   string
}

// BatchUpdateStatus runs one independent status update per id. A failed item
// does not stop or undo the others; outcomes keep the order of ids.
func (s *Service) BatchUpdateStatus(ctx context.Context, ids []uuid.UUID, status enums.SwipeStatus) ([]BatchItemResult, error) {
	if len(ids) == 0 {
		return nil, validationError("at least one swipe id is required")
	}
	if len(ids) > MaxBatchSize {
		return nil, validationError("at most %d swipe ids are allowed", MaxBatchSize)
	}
	if _, ok := enums.ParseSwipeStatus(string(status)); !ok {
		return nil, validationError("unsupported status %q", status)
	}

	results := make([]BatchItemResult, len(ids))
	var g errgroup.Group
	g.SetLimit(s.cfg.BatchConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			swipe, err := s.UpdateStatus(ctx, id, status)
			if err != nil {
				results[i] = BatchItemResult{ID: id, Error: Message(err)}
				return nil
			}
			results[i] = BatchItemResult{ID: id, Success: true, Swipe: &swipe}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, item := range results {
		if !item.Success {
			failed++
		}
	}
	if failed > 0 {
		s.logger.Warn("batch status update partially failed",
			zap.String("status", string(status)),
			zap.Int("total", len(ids)),
			zap.Int("failed", failed),
		)
	}

	return results, nil
}
