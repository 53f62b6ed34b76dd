package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/porcelaincode/mocha-admin-sub000/internal/domain/enums"
	"github.com/porcelaincode/mocha-admin-sub000/internal/domain/model"
	"github.com/porcelaincode/mocha-admin-sub000/internal/pkg/validate"
	pgrepo "github.com/porcelaincode/mocha-admin-sub000/internal/repo/postgres"
	authsvc "github.com/porcelaincode/mocha-admin-sub000/internal/services/auth"
	"github.com/porcelaincode/mocha-admin-sub000/internal/services/swipequeue"
	"github.com/porcelaincode/mocha-admin-sub000/internal/transport/http/dto"
	httperrors "github.com/porcelaincode/mocha-admin-sub000/internal/transport/http/errors"
)

type SwipeQueueEngine interface {
	GetQueue(ctx context.Context, userID uuid.UUID) ([]model.QueueEntry, error)
	Generate(ctx context.Context, userID uuid.UUID) (swipequeue.GenerateResult, error)
	UpdateStatus(ctx context.Context, swipeID uuid.UUID, status enums.SwipeStatus) (model.Swipe, error)
	DeleteSwipe(ctx context.Context, swipeID uuid.UUID) error
	SweepExpired(ctx context.Context) (swipequeue.SweepResult, error)
	FindLowQueueUsers(ctx context.Context, threshold int) ([]model.LowQueueUser, error)
	ListSwipes(ctx context.Context, q swipequeue.ListSwipesQuery) (pgrepo.SwipePage, error)
	BatchUpdateStatus(ctx context.Context, ids []uuid.UUID, status enums.SwipeStatus) ([]swipequeue.BatchItemResult, error)
}

type SwipeQueueHandlerConfig struct {
	Capacity          int
	LowQueueThreshold int
}

type SwipeQueueHandler struct {
	engine SwipeQueueEngine
	cfg    SwipeQueueHandlerConfig
	logger *zap.Logger
}

func NewSwipeQueueHandler(engine SwipeQueueEngine, cfg SwipeQueueHandlerConfig, logger *zap.Logger) *SwipeQueueHandler {
	if cfg.Capacity <= 0 {
		cfg.Capacity = swipequeue.DefaultCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SwipeQueueHandler{engine: engine, cfg: cfg, logger: logger}
}

func (h *SwipeQueueHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	userID, ok := uuidURLParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		return
	}

	entries, err := h.engine.GetQueue(r.Context(), userID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.QueueResponse{
		Success:  true,
		UserID:   userID.String(),
		Count:    len(entries),
		Capacity: h.cfg.Capacity,
		Items:    dto.NewQueueEntries(entries),
	})
}

func (h *SwipeQueueHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	userID, ok := uuidURLParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		return
	}

	result, err := h.engine.Generate(r.Context(), userID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	h.audit(r, "QUEUE_GENERATE", zap.String("user_id", userID.String()), zap.Int("created", result.Created))

	httperrors.Write(w, http.StatusOK, dto.GenerateResponse{
		Success:   true,
		Created:   result.Created,
		Remaining: result.Remaining,
	})
}

func (h *SwipeQueueHandler) LowQueueUsers(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	threshold := h.cfg.LowQueueThreshold
	if raw := strings.TrimSpace(r.URL.Query().Get("threshold")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeBadRequest(w, "VALIDATION_ERROR", "threshold must be a non-negative integer")
			return
		}
		threshold = parsed
	}

	users, err := h.engine.FindLowQueueUsers(r.Context(), threshold)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.LowQueueResponse{
		Success:   true,
		Threshold: threshold,
		Items:     dto.NewLowQueueUsers(users),
	})
}

func (h *SwipeQueueHandler) ListSwipes(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	query := r.URL.Query()

	from, ok := optionalUUIDQuery(r, "from")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid from user id")
		return
	}
	to, ok := optionalUUIDQuery(r, "to")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid to user id")
		return
	}
	limit, ok := optionalInt(query.Get("limit"))
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid limit")
		return
	}
	offset, ok := optionalInt(query.Get("offset"))
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid offset")
		return
	}

	page, err := h.engine.ListSwipes(r.Context(), swipequeue.ListSwipesQuery{
		FromUserID: from,
		ToUserID:   to,
		Status:     strings.TrimSpace(query.Get("status")),
		Action:     strings.TrimSpace(query.Get("action")),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.SwipeListResponse{
		Success: true,
		Total:   page.Total,
		Limit:   page.Limit,
		Offset:  page.Offset,
		Items:   dto.NewSwipes(page.Items),
	})
}

func (h *SwipeQueueHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	swipeID, ok := uuidURLParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid swipe id")
		return
	}

	var req dto.UpdateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid json body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}

	swipe, err := h.engine.UpdateStatus(r.Context(), swipeID, enums.SwipeStatus(strings.ToLower(strings.TrimSpace(req.Status))))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	h.audit(r, "SWIPE_STATUS_UPDATE", zap.String("swipe_id", swipeID.String()), zap.String("status", string(swipe.Status)))

	httperrors.Write(w, http.StatusOK, dto.SwipeResponse{
		Success: true,
		Swipe:   dto.NewSwipe(swipe),
	})
}

func (h *SwipeQueueHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	swipeID, ok := uuidURLParam(r, "id")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid swipe id")
		return
	}

	if err := h.engine.DeleteSwipe(r.Context(), swipeID); err != nil {
		writeEngineError(w, err)
		return
	}
	h.audit(r, "SWIPE_DELETE", zap.String("swipe_id", swipeID.String()))

	httperrors.Write(w, http.StatusOK, dto.SuccessResponse{Success: true})
}

func (h *SwipeQueueHandler) BatchStatus(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	var req dto.BatchStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid json body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", err.Error())
		return
	}

	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid swipe id")
			return
		}
		ids = append(ids, id)
	}

	results, err := h.engine.BatchUpdateStatus(r.Context(), ids, enums.SwipeStatus(strings.ToLower(strings.TrimSpace(req.Status))))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	resp := dto.NewBatchStatusResponse(results)
	h.audit(r, "SWIPE_BATCH_STATUS",
		zap.String("status", req.Status),
		zap.Int("updated", resp.Updated),
		zap.Int("failed", resp.Failed),
	)

	httperrors.Write(w, http.StatusOK, resp)
}

func (h *SwipeQueueHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}

	result, err := h.engine.SweepExpired(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	h.audit(r, "SWIPE_SWEEP", zap.Int64("updated", result.Updated))

	httperrors.Write(w, http.StatusOK, dto.SweepResponse{
		Success: true,
		Updated: result.Updated,
	})
}

func (h *SwipeQueueHandler) ready(w http.ResponseWriter) bool {
	if h.engine == nil {
		writeInternal(w, "SWIPE_QUEUE_UNAVAILABLE", "swipe queue service is unavailable")
		return false
	}
	return true
}

func (h *SwipeQueueHandler) audit(r *http.Request, action string, fields ...zap.Field) {
	identity, _ := authsvc.IdentityFromContext(r.Context())
	fields = append(fields,
		zap.String("action", action),
		zap.String("actor", identity.Subject),
		zap.String("role", identity.Role),
	)
	h.logger.Info("admin_audit", fields...)
}

func writeEngineError(w http.ResponseWriter, err error) {
	message := swipequeue.Message(err)

	var tooFast *swipequeue.TooFastError
	switch {
	case errors.As(err, &tooFast):
		w.Header().Set("Retry-After", strconv.FormatInt(tooFast.RetryAfterSec, 10))
		httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
			Code:          "TOO_FAST",
			Message:       message,
			RetryAfterSec: tooFast.RetryAfterSec,
		})
	case errors.Is(err, swipequeue.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", message)
	case errors.Is(err, swipequeue.ErrQueueFull):
		httperrors.Fail(w, http.StatusConflict, "QUEUE_FULL", message)
	case errors.Is(err, swipequeue.ErrUserNotFound):
		writeNotFound(w, "USER_NOT_FOUND", message)
	case errors.Is(err, swipequeue.ErrNotFound):
		writeNotFound(w, "NOT_FOUND", message)
	case errors.Is(err, swipequeue.ErrNoCandidates):
		httperrors.Fail(w, http.StatusUnprocessableEntity, "NO_CANDIDATES", message)
	default:
		writeInternal(w, "INTERNAL_ERROR", message)
	}
}

func optionalInt(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
