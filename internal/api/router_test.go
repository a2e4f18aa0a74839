package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flexprice/billing/internal/api/dto"
	v1 "github.com/flexprice/billing/internal/api/v1"
	"github.com/flexprice/billing/internal/cache"
	"github.com/flexprice/billing/internal/pyroscope"
	"github.com/flexprice/billing/internal/rest/middleware"
	"github.com/flexprice/billing/internal/service"
	"github.com/flexprice/billing/internal/testutil"
	"github.com/flexprice/billing/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
)

type RouterSuite struct {
	testutil.BaseServiceTestSuite
	router *gin.Engine
}

func TestRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	stores := s.GetStores()
	params := service.ServiceParams{
		Logger:          s.GetLogger(),
		Config:          s.GetConfig(),
		DB:              s.GetDB(),
		CustomerRepo:    stores.CustomerRepo,
		ProductRepo:     stores.ProductRepo,
		InvoiceRepo:     stores.InvoiceRepo,
		InvoiceItemRepo: stores.InvoiceItemRepo,
		PaymentRepo:     stores.PaymentRepo,
		AllocationRepo:  stores.AllocationRepo,
		SequenceRepo:    stores.SequenceRepo,
		LedgerPublisher: s.GetPublisher(),
	}

	log := s.GetLogger()
	s.router = NewRouter(Handlers{
		Health:   v1.NewHealthHandler(nil, log),
		Customer: v1.NewCustomerHandler(service.NewCustomerService(params), service.NewLedgerService(params), log),
		Product:  v1.NewProductHandler(service.NewProductService(params), log),
		Invoice:  v1.NewInvoiceHandler(service.NewInvoiceService(params), log),
		Payment:  v1.NewPaymentHandler(service.NewPaymentService(params), service.NewAllocatorService(params), log),
	}, s.GetConfig(), log, cache.NewInMemoryCache(s.GetConfig()), pyroscope.NewProfiler(s.GetConfig(), log))
}

func (s *RouterSuite) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *RouterSuite) decode(rec *httptest.ResponseRecorder, into any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), into), rec.Body.String())
}

func (s *RouterSuite) TestLedgerFlow() {
	rec := s.do(http.MethodPost, "/v1/customers", map[string]any{"code": "acme", "name": "Acme"})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	s.NotEmpty(rec.Header().Get(types.HeaderRequestID))
	var cust dto.CustomerResponse
	s.decode(rec, &cust)

	rec = s.do(http.MethodPost, "/v1/invoices", map[string]any{
		"customer_id": cust.ID,
		"paid_amount": "25",
		"items":       []map[string]any{{"description": "hosting", "quantity": "2", "unit_price": "50"}},
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var inv dto.InvoiceResponse
	s.decode(rec, &inv)
	s.Equal("INV1", inv.InvoiceNumber)
	s.Equal(types.InvoiceStatusPartial, inv.InvoiceStatus)
	s.Require().NotNil(inv.Payment)
	s.Equal("PAY1", inv.Payment.PaymentNumber)

	rec = s.do(http.MethodPost, "/v1/payments/allocation-preview", map[string]any{
		"customer_id": cust.ID,
		"amount":      "100",
	})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var preview dto.AllocationPreviewResponse
	s.decode(rec, &preview)
	s.Require().Len(preview.Shares, 1)
	s.Equal(inv.ID, preview.Shares[0].InvoiceID)
	s.Equal("25", preview.Remainder.String())

	rec = s.do(http.MethodGet, "/v1/customers/"+cust.ID+"/verify", nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var report dto.LedgerVerificationResponse
	s.decode(rec, &report)
	s.True(report.Consistent)
	s.Equal("75", report.StoredBalance.String())
}

func (s *RouterSuite) TestErrorEnvelope() {
	rec := s.do(http.MethodPost, "/v1/payments", map[string]any{"customer_id": "cust_missing", "amount": "-5"})
	s.Require().Equal(http.StatusBadRequest, rec.Code)

	var resp middleware.ErrorResponse
	s.decode(rec, &resp)
	s.False(resp.Success)
	s.Equal("validation_error", resp.Error.Code)
	s.Equal("amount", resp.Error.Details["field"])
	s.NotEmpty(resp.Error.Display)

	rec = s.do(http.MethodGet, "/v1/invoices/inv_missing", nil)
	s.Equal(http.StatusNotFound, rec.Code)
	s.decode(rec, &resp)
	s.Equal("not_found", resp.Error.Code)
}

func (s *RouterSuite) TestTenantHeaderScopesRequests() {
	rec := s.do(http.MethodPost, "/v1/customers", map[string]any{"code": "acme", "name": "Acme"},
		types.HeaderTenantID, "tenant_a")
	s.Require().Equal(http.StatusCreated, rec.Code)
	var cust dto.CustomerResponse
	s.decode(rec, &cust)
	s.Equal("tenant_a", cust.TenantID)

	rec = s.do(http.MethodGet, "/v1/customers/"+cust.ID, nil)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/v1/customers/"+cust.ID, nil, types.HeaderTenantID, "tenant_a")
	s.Equal(http.StatusOK, rec.Code)
}

func (s *RouterSuite) TestDeleteReferencedCustomerConflicts() {
	rec := s.do(http.MethodPost, "/v1/customers", map[string]any{"code": "acme", "name": "Acme"})
	var cust dto.CustomerResponse
	s.decode(rec, &cust)

	rec = s.do(http.MethodPost, "/v1/payments", map[string]any{"customer_id": cust.ID, "amount": "10"})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodDelete, "/v1/customers/"+cust.ID, nil)
	s.Equal(http.StatusConflict, rec.Code)

	var resp middleware.ErrorResponse
	s.decode(rec, &resp)
	s.Equal("conflict", resp.Error.Code)
}

func (s *RouterSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *RouterSuite) TestIdempotentPaymentIsReplayed() {
	rec := s.do(http.MethodPost, "/v1/customers", map[string]any{"code": "acme", "name": "Acme"})
	var cust dto.CustomerResponse
	s.decode(rec, &cust)

	body := map[string]any{"customer_id": cust.ID, "amount": "10"}
	first := s.do(http.MethodPost, "/v1/payments", body, middleware.HeaderIdempotencyKey, "pay-once")
	s.Require().Equal(http.StatusCreated, first.Code, first.Body.String())
	s.Empty(first.Header().Get(middleware.HeaderIdempotencyReplayed))

	second := s.do(http.MethodPost, "/v1/payments", body, middleware.HeaderIdempotencyKey, "pay-once")
	s.Require().Equal(http.StatusCreated, second.Code, second.Body.String())
	s.Equal("true", second.Header().Get(middleware.HeaderIdempotencyReplayed))
	s.JSONEq(first.Body.String(), second.Body.String())

	rec = s.do(http.MethodGet, "/v1/customers/"+cust.ID+"/verify", nil)
	var report dto.LedgerVerificationResponse
	s.decode(rec, &report)
	s.Equal(1, report.PaymentsChecked)
	s.Equal("-10", report.StoredBalance.String())

	// same key, different body
	rec = s.do(http.MethodPost, "/v1/payments", map[string]any{"customer_id": cust.ID, "amount": "20"},
		middleware.HeaderIdempotencyKey, "pay-once")
	s.Equal(http.StatusConflict, rec.Code)

	// the key is scoped to the tenant
	rec = s.do(http.MethodPost, "/v1/payments", body,
		middleware.HeaderIdempotencyKey, "pay-once", types.HeaderTenantID, "tenant_other")
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *RouterSuite) TestFailedIdempotentRequestCanBeRetried() {
	body := map[string]any{"code": "acme"}
	rec := s.do(http.MethodPost, "/v1/customers", body, middleware.HeaderIdempotencyKey, "cust-1")
	s.Require().Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/v1/customers", body, middleware.HeaderIdempotencyKey, "cust-1")
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Empty(rec.Header().Get(middleware.HeaderIdempotencyReplayed))
}
