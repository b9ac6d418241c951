package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"construction-pos/internal/middleware"
	"construction-pos/internal/model"
	"construction-pos/internal/service"
	"construction-pos/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSaleService struct {
	mock.Mock
}

func (m *mockSaleService) ProcessSale(ctx context.Context, actor service.Actor, req service.SaleRequest) (*service.SaleResult, error) {
	args := m.Called(ctx, actor, req)
	result, _ := args.Get(0).(*service.SaleResult)
	return result, args.Error(1)
}

func (m *mockSaleService) GetSale(ctx context.Context, id uint) (*model.Sale, error) {
	args := m.Called(ctx, id)
	sale, _ := args.Get(0).(*model.Sale)
	return sale, args.Error(1)
}

func (m *mockSaleService) GetSaleByNumber(ctx context.Context, number string) (*model.Sale, error) {
	args := m.Called(ctx, number)
	sale, _ := args.Get(0).(*model.Sale)
	return sale, args.Error(1)
}

func (m *mockSaleService) ListSales(ctx context.Context, q service.SaleListQuery) ([]model.Sale, int64, error) {
	args := m.Called(ctx, q)
	sales, _ := args.Get(0).([]model.Sale)
	return sales, args.Get(1).(int64), args.Error(2)
}

func (m *mockSaleService) Receipt(ctx context.Context, id uint) (*service.Receipt, error) {
	args := m.Called(ctx, id)
	receipt, _ := args.Get(0).(*service.Receipt)
	return receipt, args.Error(1)
}

type mockStockService struct {
	mock.Mock
}

func (m *mockStockService) ApplyMovement(ctx context.Context, actor service.Actor, req service.MovementRequest) (*service.MovementResult, error) {
	args := m.Called(ctx, actor, req)
	result, _ := args.Get(0).(*service.MovementResult)
	return result, args.Error(1)
}

type mockReportService struct {
	mock.Mock
}

func (m *mockReportService) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(*model.DashboardStats)
	return stats, args.Error(1)
}

func (m *mockReportService) SalesSummary(ctx context.Context, from, to time.Time) (*model.SalesSummary, error) {
	args := m.Called(ctx, from, to)
	summary, _ := args.Get(0).(*model.SalesSummary)
	return summary, args.Error(1)
}

func (m *mockReportService) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]model.ProductRanking, error) {
	args := m.Called(ctx, from, to, limit)
	rankings, _ := args.Get(0).([]model.ProductRanking)
	return rankings, args.Error(1)
}

func (m *mockReportService) InventoryValuation(ctx context.Context, categoryID *uint) (*model.InventoryValuation, error) {
	args := m.Called(ctx, categoryID)
	report, _ := args.Get(0).(*model.InventoryValuation)
	return report, args.Error(1)
}

// staticParser accepts "<role>-token" and rejects everything else.
type staticParser struct{}

func (staticParser) ParseToken(token string) (*service.Claims, error) {
	role, ok := strings.CutSuffix(token, "-token")
	if !ok {
		return nil, errors.New("invalid token")
	}
	return &service.Claims{
		Username:         role + "1",
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "7"},
	}, nil
}

func newRouter(register func(api *gin.RouterGroup)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api", middleware.Authenticate(staticParser{}))
	register(api)
	return r
}

func do(r http.Handler, method, path, token, body string) (*httptest.ResponseRecorder, response.Response) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var resp response.Response
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

const cartJSON = `{"payment_method":"cash","amount_paid":"5000","items":[{"product_id":1,"quantity":"2"}]}`

func TestProcessSaleErrorMapping(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
		wantMsg    string
	}{
		{
			name:       "validation",
			err:        &service.ValidationError{Field: "items[0].quantity", Reason: "must be greater than 0"},
			wantStatus: http.StatusBadRequest,
			wantKind:   "validation",
		},
		{
			name:       "unknown product",
			err:        &service.ReferenceNotFoundError{Entity: "product", ID: uint(1)},
			wantStatus: http.StatusNotFound,
			wantKind:   "reference_not_found",
		},
		{
			name: "insufficient stock",
			err: &service.InsufficientStockError{
				ProductID: 1, ProductName: "Cement 50kg",
				Requested: decimal.NewFromInt(2), Available: decimal.NewFromInt(1),
			},
			wantStatus: http.StatusConflict,
			wantKind:   "insufficient_stock",
		},
		{
			name:       "credit limit",
			err:        &service.CreditLimitError{CustomerID: 3, Limit: decimal.NewFromInt(3000), Requested: decimal.NewFromInt(3540)},
			wantStatus: http.StatusConflict,
			wantKind:   "credit_limit",
		},
		{
			name:       "duplicate number",
			err:        &service.ConflictError{Entity: "sale", Field: "sale_number", Value: "POS202405010042"},
			wantStatus: http.StatusConflict,
			wantKind:   "conflict",
		},
		{
			name:       "storage failure hides its cause",
			err:        &service.PersistenceError{Op: "insert sale", Err: errors.New("disk I/O error")},
			wantStatus: http.StatusInternalServerError,
			wantKind:   "persistence",
			wantMsg:    "The operation failed and was rolled back",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sales := new(mockSaleService)
			sales.On("ProcessSale", mock.Anything, mock.Anything, mock.Anything).Return(nil, tc.err)
			r := newRouter(NewSaleHandler(sales).RegisterRoutes)

			rec, resp := do(r, http.MethodPost, "/api/sales", "cashier-token", cartJSON)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.ErrorDetail)
			assert.Equal(t, tc.wantKind, resp.ErrorDetail.Kind)
			if tc.wantMsg != "" {
				assert.Equal(t, tc.wantMsg, resp.Error)
				assert.NotContains(t, rec.Body.String(), "disk I/O")
			}
		})
	}
}

func TestProcessSalePassesActorAndCart(t *testing.T) {
	sales := new(mockSaleService)
	userID := uint(7)
	sales.On("ProcessSale", mock.Anything, service.Actor{UserID: &userID, Username: "cashier1", Role: "cashier"}, mock.MatchedBy(func(req service.SaleRequest) bool {
		return req.PaymentMethod == model.PaymentCash &&
			len(req.Items) == 1 &&
			req.Items[0].Quantity.Equal(decimal.NewFromInt(2))
	})).Return(&service.SaleResult{Sale: model.Sale{ID: 11, SaleNumber: "POS202405010001"}}, nil)
	r := newRouter(NewSaleHandler(sales).RegisterRoutes)

	rec, resp := do(r, http.MethodPost, "/api/sales", "cashier-token", cartJSON)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "success", resp.Status)
	assert.Contains(t, rec.Body.String(), "POS202405010001")
	sales.AssertExpectations(t)
}

func TestProcessSaleMalformedBody(t *testing.T) {
	sales := new(mockSaleService)
	r := newRouter(NewSaleHandler(sales).RegisterRoutes)

	rec, resp := do(r, http.MethodPost, "/api/sales", "cashier-token", `{"items":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, resp.ErrorDetail)
	assert.Equal(t, "validation", resp.ErrorDetail.Kind)
	sales.AssertNotCalled(t, "ProcessSale", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetSaleBadID(t *testing.T) {
	sales := new(mockSaleService)
	r := newRouter(NewSaleHandler(sales).RegisterRoutes)

	rec, _ := do(r, http.MethodGet, "/api/sales/abc", "cashier-token", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	sales.AssertNotCalled(t, "GetSale", mock.Anything, mock.Anything)
}

func TestListSalesPaging(t *testing.T) {
	sales := new(mockSaleService)
	sales.On("ListSales", mock.Anything, mock.MatchedBy(func(q service.SaleListQuery) bool {
		return q.Page == 2 && q.Limit == 5 && q.CustomerID != nil && *q.CustomerID == 4 && q.From != nil && q.To != nil
	})).Return([]model.Sale{{ID: 1}}, int64(6), nil)
	r := newRouter(NewSaleHandler(sales).RegisterRoutes)

	rec, _ := do(r, http.MethodGet, "/api/sales?page=2&limit=5&customer_id=4&from=2024-05-01&to=2024-05-31", "manager-token", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data response.Page `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(6), body.Data.Total)
	assert.Equal(t, 2, body.Data.Page)
	sales.AssertExpectations(t)
}

func TestStockMovementRoles(t *testing.T) {
	testCases := []struct {
		name       string
		token      string
		wantStatus int
		wantCall   bool
	}{
		{name: "no token", token: "", wantStatus: http.StatusUnauthorized},
		{name: "bad token", token: "garbage", wantStatus: http.StatusUnauthorized},
		{name: "cashier forbidden", token: "cashier-token", wantStatus: http.StatusForbidden},
		{name: "manager allowed", token: "manager-token", wantStatus: http.StatusCreated, wantCall: true},
		{name: "admin allowed", token: "admin-token", wantStatus: http.StatusCreated, wantCall: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stock := new(mockStockService)
			stock.On("ApplyMovement", mock.Anything, mock.Anything, mock.Anything).
				Return(&service.MovementResult{ProductName: "Sand"}, nil)
			r := newRouter(NewStockHandler(stock, nil).RegisterRoutes)

			rec, _ := do(r, http.MethodPost, "/api/stock/movements", tc.token,
				`{"product_id":1,"movement_type":"in","quantity":"5"}`)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantCall {
				stock.AssertNumberOfCalls(t, "ApplyMovement", 1)
			} else {
				stock.AssertNotCalled(t, "ApplyMovement", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestUnknownErrorIsInternal(t *testing.T) {
	stock := new(mockStockService)
	stock.On("ApplyMovement", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("boom"))
	r := newRouter(NewStockHandler(stock, nil).RegisterRoutes)

	rec, resp := do(r, http.MethodPost, "/api/stock/movements", "manager-token",
		`{"product_id":1,"movement_type":"out","quantity":"5"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", resp.Error)
}

func TestInventoryReport(t *testing.T) {
	reports := new(mockReportService)
	reports.On("InventoryValuation", mock.Anything, mock.MatchedBy(func(id *uint) bool {
		return id != nil && *id == 3
	})).Return(&model.InventoryValuation{ProductCount: 2, StockValueRetail: decimal.NewFromInt(1125)}, nil)
	reports.On("InventoryValuation", mock.Anything, (*uint)(nil)).
		Return(&model.InventoryValuation{ProductCount: 5}, nil)
	r := newRouter(NewReportHandler(reports).RegisterRoutes)

	rec, resp := do(r, http.MethodGet, "/api/reports/inventory?category_id=3", "manager-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 2, data["product_count"])
	assert.Equal(t, "1125", data["stock_value_retail"])

	rec, resp = do(r, http.MethodGet, "/api/reports/inventory", "admin-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 5, resp.Data.(map[string]interface{})["product_count"])

	rec, _ = do(r, http.MethodGet, "/api/reports/inventory?category_id=abc", "manager-token", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(r, http.MethodGet, "/api/reports/inventory", "cashier-token", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	reports.AssertNumberOfCalls(t, "InventoryValuation", 2)
}
