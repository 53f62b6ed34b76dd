package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/porcelaincode/mocha-admin-sub000/internal/domain/enums"
	"github.com/porcelaincode/mocha-admin-sub000/internal/domain/model"
	pgrepo "github.com/porcelaincode/mocha-admin-sub000/internal/repo/postgres"
	authsvc "github.com/porcelaincode/mocha-admin-sub000/internal/services/auth"
	"github.com/porcelaincode/mocha-admin-sub000/internal/services/swipequeue"
	"github.com/porcelaincode/mocha-admin-sub000/internal/transport/http/dto"
)

func TestGetQueueReturnsEnrichedEntries(t *testing.T) {
	userID := uuid.New()
	target := model.UserSummary{ID: uuid.New(), Name: "Kate", Email: "kate@example.com", Age: 27}
	engine := &engineStub{
		queue: []model.QueueEntry{{
			Swipe: model.Swipe{
				ID:         uuid.New(),
				FromUserID: userID,
				ToUserID:   target.ID,
				Action:     enums.SwipeActionLike,
				Status:     enums.SwipeStatusActive,
				CreatedAt:  time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
			},
			ToUser: target,
		}},
	}
	handler := NewSwipeQueueHandler(engine, SwipeQueueHandlerConfig{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/users/"+userID.String()+"/queue", nil)
	req = req.WithContext(withURLParam(req.Context(), "id", userID.String()))
	rr := httptest.NewRecorder()
	handler.GetQueue(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}
	var resp dto.QueueResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Count != 1 || resp.Capacity != 5 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Items[0].ToUser.Email != "kate@example.com" || resp.Items[0].Status != "active" {
		t.Fatalf("unexpected entry: %+v", resp.Items[0])
	}
	if engine.lastUserID != userID {
		t.Fatalf("engine called with %s", engine.lastUserID)
	}
}

func TestGenerateMapsEngineErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{name: "queue full", err: swipequeue.ErrQueueFull, wantStatus: http.StatusConflict, wantCode: "QUEUE_FULL", wantMsg: "user already has maximum swipes in queue"},
		{name: "user missing", err: swipequeue.ErrUserNotFound, wantStatus: http.StatusNotFound, wantCode: "USER_NOT_FOUND", wantMsg: "user not found"},
		{name: "no candidates", err: swipequeue.ErrNoCandidates, wantStatus: http.StatusUnprocessableEntity, wantCode: "NO_CANDIDATES", wantMsg: "no eligible candidates found"},
		{name: "store", err: &swipequeue.StoreError{Op: "generate", Err: errors.New("dial tcp 10.0.0.1:5432")}, wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR", wantMsg: "operation failed"},
		{name: "too fast", err: &swipequeue.TooFastError{RetryAfterSec: 12}, wantStatus: http.StatusTooManyRequests, wantCode: "TOO_FAST"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewSwipeQueueHandler(&engineStub{generateErr: tc.err}, SwipeQueueHandlerConfig{}, nil)
			userID := uuid.New()

			req := httptest.NewRequest(http.MethodPost, "/admin/users/"+userID.String()+"/queue/generate", nil)
			req = req.WithContext(withURLParam(req.Context(), "id", userID.String()))
			rr := httptest.NewRecorder()
			handler.Generate(rr, req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("unexpected status: got %d want %d", rr.Code, tc.wantStatus)
			}
			body := decodeBody(t, rr)
			if body["success"] != false || body["code"] != tc.wantCode {
				t.Fatalf("unexpected body: %v", body)
			}
			if tc.wantMsg != "" && body["error"] != tc.wantMsg {
				t.Fatalf("unexpected error message: %v", body["error"])
			}
			if tc.wantStatus == http.StatusTooManyRequests && rr.Header().Get("Retry-After") != "12" {
				t.Fatalf("expected Retry-After header, got %q", rr.Header().Get("Retry-After"))
			}
		})
	}
}

func TestGenerateSuccess(t *testing.T) {
	handler := NewSwipeQueueHandler(&engineStub{generated: swipequeue.GenerateResult{Created: 3, Remaining: 0}}, SwipeQueueHandlerConfig{}, nil)
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/admin/users/"+userID.String()+"/queue/generate", nil)
	req = req.WithContext(withURLParam(req.Context(), "id", userID.String()))
	req = req.WithContext(authsvc.WithIdentity(req.Context(), authsvc.Identity{Subject: "admin-1", Role: "OWNER"}))
	rr := httptest.NewRecorder()
	handler.Generate(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}
	var resp dto.GenerateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Created != 3 || resp.Remaining != 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestRejectsInvalidPathID(t *testing.T) {
	handler := NewSwipeQueueHandler(&engineStub{}, SwipeQueueHandlerConfig{}, nil)

	for _, raw := range []string{"", "42", "not-a-uuid", uuid.Nil.String()} {
		req := httptest.NewRequest(http.MethodDelete, "/admin/swipes/x", nil)
		req = req.WithContext(withURLParam(req.Context(), "id", raw))
		rr := httptest.NewRecorder()
		handler.Delete(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("id %q: unexpected status %d", raw, rr.Code)
		}
	}
}

func TestUpdateStatus(t *testing.T) {
	swipeID := uuid.New()
	engine := &engineStub{}
	handler := NewSwipeQueueHandler(engine, SwipeQueueHandlerConfig{}, nil)

	req := httptest.NewRequest(http.MethodPatch, "/admin/swipes/"+swipeID.String(), strings.NewReader(`{"status":"Revoked"}`))
	req = req.WithContext(withURLParam(req.Context(), "id", swipeID.String()))
	rr := httptest.NewRecorder()
	handler.UpdateStatus(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d body=%s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if engine.lastStatus != enums.SwipeStatusRevoked {
		t.Fatalf("expected normalized status, got %q", engine.lastStatus)
	}

	bad := []string{`{"status":""}`, `{"state":"active"}`, `not json`}
	for _, body := range bad {
		req := httptest.NewRequest(http.MethodPatch, "/admin/swipes/"+swipeID.String(), strings.NewReader(body))
		req = req.WithContext(withURLParam(req.Context(), "id", swipeID.String()))
		rr := httptest.NewRecorder()
		handler.UpdateStatus(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("body %s: unexpected status %d", body, rr.Code)
		}
	}

	engine.updateErr = swipequeue.ErrNotFound
	req = httptest.NewRequest(http.MethodPatch, "/admin/swipes/"+swipeID.String(), strings.NewReader(`{"status":"active"}`))
	req = req.WithContext(withURLParam(req.Context(), "id", swipeID.String()))
	rr = httptest.NewRecorder()
	handler.UpdateStatus(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unexpected status for missing swipe: %d", rr.Code)
	}
}

func TestBatchStatus(t *testing.T) {
	okID, missingID := uuid.New(), uuid.New()
	engine := &engineStub{
		batch: []swipequeue.BatchItemResult{
			{ID: okID, Success: true, Swipe: &model.Swipe{ID: okID, Status: enums.SwipeStatusExpired}},
			{ID: missingID, Error: "swipe not found"},
		},
	}
	handler := NewSwipeQueueHandler(engine, SwipeQueueHandlerConfig{}, nil)

	body := `{"ids":["` + okID.String() + `","` + missingID.String() + `"],"status":"expired"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/swipes/batch-status", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler.BatchStatus(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp dto.BatchStatusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Updated != 1 || resp.Failed != 1 || len(resp.Items) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Items[1].Success || resp.Items[1].Error != "swipe not found" {
		t.Fatalf("unexpected failed item: %+v", resp.Items[1])
	}

	for _, bad := range []string{`{"ids":[],"status":"expired"}`, `{"ids":["nope"],"status":"expired"}`, `{"ids":["` + okID.String() + `"]}`} {
		req := httptest.NewRequest(http.MethodPost, "/admin/swipes/batch-status", strings.NewReader(bad))
		rr := httptest.NewRecorder()
		handler.BatchStatus(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("body %s: unexpected status %d", bad, rr.Code)
		}
	}
}

func TestLowQueueUsersThreshold(t *testing.T) {
	engine := &engineStub{low: []model.LowQueueUser{{User: model.UserSummary{ID: uuid.New(), Name: "A"}, ActiveSwipes: 0}}}
	handler := NewSwipeQueueHandler(engine, SwipeQueueHandlerConfig{LowQueueThreshold: 2}, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/users/low-queue", nil)
	rr := httptest.NewRecorder()
	handler.LowQueueUsers(rr, req)
	if rr.Code != http.StatusOK || engine.lastThreshold != 2 {
		t.Fatalf("expected default threshold 2, got status=%d threshold=%d", rr.Code, engine.lastThreshold)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/users/low-queue?threshold=4", nil)
	rr = httptest.NewRecorder()
	handler.LowQueueUsers(rr, req)
	if engine.lastThreshold != 4 {
		t.Fatalf("expected explicit threshold 4, got %d", engine.lastThreshold)
	}
	var resp dto.LowQueueResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ActiveSwipes != 0 || resp.Items[0].Name != "A" {
		t.Fatalf("unexpected items: %+v", resp.Items)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/users/low-queue?threshold=-1", nil)
	rr = httptest.NewRecorder()
	handler.LowQueueUsers(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status for negative threshold: %d", rr.Code)
	}
}

func TestListSwipesParsesQuery(t *testing.T) {
	from := uuid.New()
	engine := &engineStub{page: pgrepo.SwipePage{Total: 7, Limit: 10, Offset: 20, Items: []model.Swipe{{ID: uuid.New()}}}}
	handler := NewSwipeQueueHandler(engine, SwipeQueueHandlerConfig{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/swipes?from="+from.String()+"&status=active&limit=10&offset=20", nil)
	rr := httptest.NewRecorder()
	handler.ListSwipes(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	q := engine.lastList
	if q.FromUserID == nil || *q.FromUserID != from || q.Status != "active" || q.Limit != 10 || q.Offset != 20 {
		t.Fatalf("unexpected query: %+v", q)
	}

	var resp dto.SwipeListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 7 || resp.Limit != 10 || resp.Offset != 20 || len(resp.Items) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	for _, raw := range []string{"?from=bad", "?limit=abc", "?offset=-2"} {
		req := httptest.NewRequest(http.MethodGet, "/admin/swipes"+raw, nil)
		rr := httptest.NewRecorder()
		handler.ListSwipes(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("query %s: unexpected status %d", raw, rr.Code)
		}
	}
}

func TestListSwipesReportsAppliedPageSize(t *testing.T) {
	engine := &engineStub{page: pgrepo.SwipePage{Total: 120, Limit: pgrepo.DefaultSwipePageSize}}
	handler := NewSwipeQueueHandler(engine, SwipeQueueHandlerConfig{}, nil)

	rr := httptest.NewRecorder()
	handler.ListSwipes(rr, httptest.NewRequest(http.MethodGet, "/admin/swipes", nil))

	var resp dto.SwipeListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if engine.lastList.Limit != 0 {
		t.Fatalf("omitted limit must reach the engine as zero, got %d", engine.lastList.Limit)
	}
	if resp.Limit != 50 || resp.Offset != 0 {
		t.Fatalf("expected applied page size 50, got limit=%d offset=%d", resp.Limit, resp.Offset)
	}
}

func TestSweepAndDelete(t *testing.T) {
	engine := &engineStub{swept: 3}
	handler := NewSwipeQueueHandler(engine, SwipeQueueHandlerConfig{}, nil)

	rr := httptest.NewRecorder()
	handler.Sweep(rr, httptest.NewRequest(http.MethodPost, "/admin/swipes/sweep", nil))
	var sweepResp dto.SweepResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &sweepResp); err != nil {
		t.Fatalf("decode sweep response: %v", err)
	}
	if rr.Code != http.StatusOK || !sweepResp.Success || sweepResp.Updated != 3 {
		t.Fatalf("unexpected sweep response: %d %+v", rr.Code, sweepResp)
	}

	swipeID := uuid.New()
	req := httptest.NewRequest(http.MethodDelete, "/admin/swipes/"+swipeID.String(), nil)
	req = req.WithContext(withURLParam(req.Context(), "id", swipeID.String()))
	rr = httptest.NewRecorder()
	handler.Delete(rr, req)
	if rr.Code != http.StatusOK || decodeBody(t, rr)["success"] != true {
		t.Fatalf("unexpected delete response: %d %s", rr.Code, rr.Body.String())
	}
}

func TestHandlerWithoutEngine(t *testing.T) {
	handler := NewSwipeQueueHandler(nil, SwipeQueueHandlerConfig{}, nil)
	rr := httptest.NewRecorder()
	handler.Sweep(rr, httptest.NewRequest(http.MethodPost, "/admin/swipes/sweep", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
}

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHealthHandler().Get(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || decodeBody(t, rr)["success"] != true {
		t.Fatalf("unexpected health response: %d %s", rr.Code, rr.Body.String())
	}
}

type engineStub struct {
	queue       []model.QueueEntry
	generated   swipequeue.GenerateResult
	generateErr error
	updateErr   error
	low         []model.LowQueueUser
	page        pgrepo.SwipePage
	batch       []swipequeue.BatchItemResult
	swept       int64

	lastUserID    uuid.UUID
	lastStatus    enums.SwipeStatus
	lastThreshold int
	lastList      swipequeue.ListSwipesQuery
}

func (s *engineStub) GetQueue(_ context.Context, userID uuid.UUID) ([]model.QueueEntry, error) {
	s.lastUserID = userID
	return s.queue, nil
}

func (s *engineStub) Generate(_ context.Context, userID uuid.UUID) (swipequeue.GenerateResult, error) {
	s.lastUserID = userID
	return s.generated, s.generateErr
}

func (s *engineStub) UpdateStatus(_ context.Context, swipeID uuid.UUID, status enums.SwipeStatus) (model.Swipe, error) {
	s.lastStatus = status
	if s.updateErr != nil {
		return model.Swipe{}, s.updateErr
	}
	return model.Swipe{ID: swipeID, Status: status}, nil
}

func (s *engineStub) DeleteSwipe(context.Context, uuid.UUID) error {
	return nil
}

func (s *engineStub) SweepExpired(context.Context) (swipequeue.SweepResult, error) {
	return swipequeue.SweepResult{Updated: s.swept}, nil
}

func (s *engineStub) FindLowQueueUsers(_ context.Context, threshold int) ([]model.LowQueueUser, error) {
	s.lastThreshold = threshold
	return s.low, nil
}

func (s *engineStub) ListSwipes(_ context.Context, q swipequeue.ListSwipesQuery) (pgrepo.SwipePage, error) {
	s.lastList = q
	return s.page, nil
}

func (s *engineStub) BatchUpdateStatus(_ context.Context, _ []uuid.UUID, status enums.SwipeStatus) ([]swipequeue.BatchItemResult, error) {
	s.lastStatus = status
	return s.batch, nil
}

func withURLParam(ctx context.Context, key, value string) context.Context {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}
