package tenderhandler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tender-server/internal/domain/company"
	"tender-server/internal/domain/query"
	"tender-server/internal/domain/tender"
	"tender-server/internal/interfaces/httpserver/handlers/tenderhandler"
	"tender-server/internal/interfaces/httpserver/middlewares"
	"tender-server/internal/interfaces/httpserver/responses"
	"tender-server/internal/utils/platformerrors"
)

// MockTenderService implements tenderhandler.TenderService with overridable funcs.
type MockTenderService struct {
	CreateTenderFunc          func(ctx context.Context, companyID string, t *tender.Tender) (*tender.Tender, error)
	GetTenderFunc             func(ctx context.Context, id string) (*tender.Tender, error)
	ListTendersFunc           func(ctx context.Context, filter tender.Filter, pagination query.Pagination) ([]*tender.Tender, int64, error)
	UpdateTenderFunc          func(ctx context.Context, companyID, id string, patch tender.Patch) (*tender.Tender, error)
	CancelTenderFunc          func(ctx context.Context, companyID, id string) (*tender.Tender, error)
	SubmitRequestFunc         func(ctx context.Context, companyID, tenderID string, r *tender.Request) (*tender.Request, error)
	ListRequestsForTenderFunc func(ctx context.Context, companyID, tenderID string) ([]*tender.Request, error)
	ListMyRequestsFunc        func(ctx context.Context, companyID string, pagination query.Pagination) ([]*tender.Request, int64, error)
	WithdrawRequestFunc       func(ctx context.Context, companyID, requestID string) (*tender.Request, error)
	AcceptRequestFunc         func(ctx context.Context, companyID, requestID string) (*tender.Acceptance, error)
}

func (m *MockTenderService) CreateTender(ctx context.Context, companyID string, t *tender.Tender) (*tender.Tender, error) {
	if m.CreateTenderFunc != nil {
		return m.CreateTenderFunc(ctx, companyID, t)
	}
	return nil, nil
}

func (m *MockTenderService) GetTender(ctx context.Context, id string) (*tender.Tender, error) {
	if m.GetTenderFunc != nil {
		return m.GetTenderFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockTenderService) ListTenders(ctx context.Context, filter tender.Filter, pagination query.Pagination) ([]*tender.Tender, int64, error) {
	if m.ListTendersFunc != nil {
		return m.ListTendersFunc(ctx, filter, pagination)
	}
	return nil, 0, nil
}

func (m *MockTenderService) UpdateTender(ctx context.Context, companyID, id string, patch tender.Patch) (*tender.Tender, error) {
	if m.UpdateTenderFunc != nil {
		return m.UpdateTenderFunc(ctx, companyID, id, patch)
	}
	return nil, nil
}

func (m *MockTenderService) CancelTender(ctx context.Context, companyID, id string) (*tender.Tender, error) {
	if m.CancelTenderFunc != nil {
		return m.CancelTenderFunc(ctx, companyID, id)
	}
	return nil, nil
}

func (m *MockTenderService) SubmitRequest(ctx context.Context, companyID, tenderID string, r *tender.Request) (*tender.Request, error) {
	if m.SubmitRequestFunc != nil {
		return m.SubmitRequestFunc(ctx, companyID, tenderID, r)
	}
	return nil, nil
}

func (m *MockTenderService) ListRequestsForTender(ctx context.Context, companyID, tenderID string) ([]*tender.Request, error) {
	if m.ListRequestsForTenderFunc != nil {
		return m.ListRequestsForTenderFunc(ctx, companyID, tenderID)
	}
	return nil, nil
}

func (m *MockTenderService) ListMyRequests(ctx context.Context, companyID string, pagination query.Pagination) ([]*tender.Request, int64, error) {
	if m.ListMyRequestsFunc != nil {
		return m.ListMyRequestsFunc(ctx, companyID, pagination)
	}
	return nil, 0, nil
}

func (m *MockTenderService) WithdrawRequest(ctx context.Context, companyID, requestID string) (*tender.Request, error) {
	if m.WithdrawRequestFunc != nil {
		return m.WithdrawRequestFunc(ctx, companyID, requestID)
	}
	return nil, nil
}

func (m *MockTenderService) AcceptRequest(ctx context.Context, companyID, requestID string) (*tender.Acceptance, error) {
	if m.AcceptRequestFunc != nil {
		return m.AcceptRequestFunc(ctx, companyID, requestID)
	}
	return nil, nil
}

var caller = &company.Company{ID: "cmp_caller", Name: "Caller Ltd"}

func setupRouter(service tenderhandler.TenderService, withCompany bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if withCompany {
		router.Use(func(c *gin.Context) {
			middlewares.SetCompany(c, caller)
			c.Next()
		})
	}
	h := tenderhandler.NewTenderHandler(service)
	router.POST("/v1/tenders", h.Create)
	router.GET("/v1/tenders", h.List)
	router.GET("/v1/tenders/:id", h.Get)
	router.PATCH("/v1/tenders/:id", h.Update)
	router.POST("/v1/tenders/:id/cancel", h.Cancel)
	router.POST("/v1/tenders/:id/requests", h.SubmitRequest)
	router.GET("/v1/tenders/:id/requests", h.ListRequests)
	router.GET("/v1/tender-requests/mine", h.ListMine)
	router.POST("/v1/tender-requests/:id/accept", h.Accept)
	router.POST("/v1/tender-requests/:id/withdraw", h.Withdraw)
	return router
}

func perform(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) responses.ErrorResponse {
	t.Helper()
	var resp responses.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreateTender(t *testing.T) {
	deadline := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)
	var gotCompany string
	var got *tender.Tender
	service := &MockTenderService{
		CreateTenderFunc: func(_ context.Context, companyID string, t *tender.Tender) (*tender.Tender, error) {
			gotCompany = companyID
			got = t
			t.ID = "tnd_1"
			t.CompanyID = companyID
			t.Status = tender.StatusOpen
			return t, nil
		},
	}
	router := setupRouter(service, true)

	w := perform(router, http.MethodPost, "/v1/tenders", map[string]any{
		"title":    "Office fit-out",
		"budget":   "15000.00",
		"currency": "EUR",
		"deadline": deadline.Format(time.RFC3339),
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "cmp_caller", gotCompany)
	require.NotNil(t, got)
	assert.Equal(t, "Office fit-out", got.Title)
	assert.True(t, decimal.RequireFromString("15000").Equal(got.Budget))
	assert.True(t, deadline.Equal(got.Deadline))

	var body tender.Tender
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "tnd_1", body.ID)
	assert.Equal(t, tender.StatusOpen, body.Status)
}

func TestCreateTenderValidation(t *testing.T) {
	called := false
	service := &MockTenderService{
		CreateTenderFunc: func(_ context.Context, _ string, t *tender.Tender) (*tender.Tender, error) {
			called = true
			return t, nil
		},
	}
	router := setupRouter(service, true)

	tests := []struct {
		name string
		body any
	}{
		{"missing title", map[string]any{"currency": "EUR", "deadline": time.Now().Add(time.Hour).Format(time.RFC3339)}},
		{"bad currency", map[string]any{"title": "x", "currency": "EURO", "deadline": time.Now().Add(time.Hour).Format(time.RFC3339)}},
		{"bad attachment url", map[string]any{"title": "x", "currency": "EUR", "deadline": time.Now().Add(time.Hour).Format(time.RFC3339), "attachment_urls": []string{"not a url"}}},
		{"malformed json", "{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(router, http.MethodPost, "/v1/tenders", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeError(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, string(platformerrors.ErrorTypeValidation), resp.Error.Type)
		})
	}
	assert.False(t, called)
}

func TestCreateTenderWithoutCompany(t *testing.T) {
	router := setupRouter(&MockTenderService{}, false)

	w := perform(router, http.MethodPost, "/v1/tenders", map[string]any{"title": "x"})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, string(platformerrors.ErrorTypeForbidden), decodeError(t, w).Error.Type)
}

func TestListTendersPassesFilterAndPagination(t *testing.T) {
	var gotFilter tender.Filter
	var gotPagination query.Pagination
	service := &MockTenderService{
		ListTendersFunc: func(_ context.Context, filter tender.Filter, pagination query.Pagination) ([]*tender.Tender, int64, error) {
			gotFilter = filter
			gotPagination = pagination
			return []*tender.Tender{{ID: "tnd_1"}, {ID: "tnd_2"}}, 7, nil
		},
	}
	router := setupRouter(service, true)

	w := perform(router, http.MethodGet, "/v1/tenders?status=open&category=construction&limit=2&offset=4", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, gotFilter.Status)
	assert.Equal(t, tender.StatusOpen, *gotFilter.Status)
	require.NotNil(t, gotFilter.Category)
	assert.Equal(t, "construction", *gotFilter.Category)
	assert.Nil(t, gotFilter.Search)
	assert.Equal(t, query.Pagination{Limit: 2, Offset: 4}, gotPagination)

	var body responses.ListResponse[tender.Tender]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Data, 2)
	assert.Equal(t, int64(7), body.Total)
	assert.Equal(t, 2, body.Limit)
	assert.Equal(t, 4, body.Offset)
}

func TestListTendersRejectsBadPagination(t *testing.T) {
	router := setupRouter(&MockTenderService{}, true)

	w := perform(router, http.MethodGet, "/v1/tenders?limit=abc", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDomainErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name      string
		errorType platformerrors.ErrorType
		want      int
	}{
		{"not found", platformerrors.ErrorTypeNotFound, http.StatusNotFound},
		{"forbidden", platformerrors.ErrorTypeForbidden, http.StatusForbidden},
		{"conflict", platformerrors.ErrorTypeConflict, http.StatusConflict},
		{"expired", platformerrors.ErrorTypeExpired, http.StatusGone},
		{"validation", platformerrors.ErrorTypeValidation, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &MockTenderService{
				SubmitRequestFunc: func(ctx context.Context, _, _ string, _ *tender.Request) (*tender.Request, error) {
					return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, tt.errorType, "rejected", nil, "test-code")
				},
			}
			router := setupRouter(service, true)

			w := perform(router, http.MethodPost, "/v1/tenders/tnd_1/requests", map[string]any{
				"proposal": "We can do it",
				"price":    "9000",
			})

			assert.Equal(t, tt.want, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, string(tt.errorType), resp.Error.Type)
			assert.Equal(t, "rejected", resp.Error.Message)
			assert.Equal(t, "test-code", resp.Error.Code)
		})
	}
}

func TestSubmitRequest(t *testing.T) {
	var gotTender string
	service := &MockTenderService{
		SubmitRequestFunc: func(_ context.Context, companyID, tenderID string, r *tender.Request) (*tender.Request, error) {
			gotTender = tenderID
			r.ID = "bid_1"
			r.TenderID = tenderID
			r.CompanyID = companyID
			r.Status = tender.RequestPending
			return r, nil
		},
	}
	router := setupRouter(service, true)

	w := perform(router, http.MethodPost, "/v1/tenders/tnd_9/requests", map[string]any{
		"proposal": "Fast delivery",
		"price":    "12500.50",
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "tnd_9", gotTender)
	var body tender.Request
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "bid_1", body.ID)
	assert.Equal(t, "cmp_caller", body.CompanyID)
	assert.True(t, decimal.RequireFromString("12500.50").Equal(body.Price))
}

func TestUpdateTenderPassesPatch(t *testing.T) {
	var gotPatch tender.Patch
	service := &MockTenderService{
		UpdateTenderFunc: func(_ context.Context, _, id string, patch tender.Patch) (*tender.Tender, error) {
			gotPatch = patch
			return &tender.Tender{ID: id, Title: *patch.Title}, nil
		},
	}
	router := setupRouter(service, true)

	w := perform(router, http.MethodPatch, "/v1/tenders/tnd_1", map[string]any{"title": "Renamed"})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, gotPatch.Title)
	assert.Equal(t, "Renamed", *gotPatch.Title)
	assert.Nil(t, gotPatch.Budget)
	assert.Nil(t, gotPatch.Deadline)
}

func TestAcceptRequest(t *testing.T) {
	awarded := "bid_1"
	service := &MockTenderService{
		AcceptRequestFunc: func(_ context.Context, companyID, requestID string) (*tender.Acceptance, error) {
			assert.Equal(t, "cmp_caller", companyID)
			return &tender.Acceptance{
				Tender:   &tender.Tender{ID: "tnd_1", Status: tender.StatusAwarded, AwardedRequestID: &awarded},
				Accepted: &tender.Request{ID: requestID, Status: tender.RequestAccepted},
				Rejected: []*tender.Request{{ID: "bid_2", Status: tender.RequestRejected}},
			}, nil
		},
	}
	router := setupRouter(service, true)

	w := perform(router, http.MethodPost, "/v1/tender-requests/bid_1/accept", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body tender.Acceptance
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, tender.StatusAwarded, body.Tender.Status)
	assert.Equal(t, "bid_1", body.Accepted.ID)
	require.Len(t, body.Rejected, 1)
	assert.Equal(t, tender.RequestRejected, body.Rejected[0].Status)
}

func TestListRequestsWrapsData(t *testing.T) {
	service := &MockTenderService{
		ListRequestsForTenderFunc: func(_ context.Context, _, tenderID string) ([]*tender.Request, error) {
			return []*tender.Request{{ID: "bid_1", TenderID: tenderID}}, nil
		},
	}
	router := setupRouter(service, true)

	w := perform(router, http.MethodGet, "/v1/tenders/tnd_1/requests", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body tenderhandler.RequestListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "tnd_1", body.Data[0].TenderID)
}
