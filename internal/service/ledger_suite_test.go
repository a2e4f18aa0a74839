package service

import (
	"time"

	"github.com/flexprice/billing/internal/api/dto"
	"github.com/flexprice/billing/internal/domain/customer"
	"github.com/flexprice/billing/internal/domain/invoice"
	"github.com/flexprice/billing/internal/domain/payment"
	"github.com/flexprice/billing/internal/testutil"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ledgerSuite wires every ledger service over the shared in-memory stores
type ledgerSuite struct {
	testutil.BaseServiceTestSuite

	params    ServiceParams
	customers CustomerService
	products  ProductService
	invoices  InvoiceService
	payments  PaymentService
	allocator AllocatorService
	ledger    LedgerService
}

func (s *ledgerSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	stores := s.GetStores()
	s.params = ServiceParams{
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

	s.customers = NewCustomerService(s.params)
	s.products = NewProductService(s.params)
	s.invoices = NewInvoiceService(s.params)
	s.payments = NewPaymentService(s.params)
	s.allocator = NewAllocatorService(s.params)
	s.ledger = NewLedgerService(s.params)
}

func amount(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func line(qty, unitPrice string) dto.InvoiceItemRequest {
	return dto.InvoiceItemRequest{
		Description: "service",
		Quantity:    amount(qty),
		UnitPrice:   lo.ToPtr(amount(unitPrice)),
	}
}

func (s *ledgerSuite) assertAmount(expected string, actual decimal.Decimal, msgAndArgs ...interface{}) {
	s.T().Helper()
	s.True(amount(expected).Equal(actual), append([]interface{}{"expected %s, got %s", expected, actual.String()}, msgAndArgs...)...)
}

func (s *ledgerSuite) createCustomer(code string) *customer.Customer {
	s.T().Helper()
	resp, err := s.customers.CreateCustomer(s.GetContext(), dto.CreateCustomerRequest{
		Code:  code,
		Name:  "Customer " + code,
		Email: code + "@example.com",
	})
	s.Require().NoError(err)
	return resp.Customer
}

func (s *ledgerSuite) createInvoice(customerID string, date time.Time, paid string, items ...dto.InvoiceItemRequest) *dto.InvoiceResponse {
	s.T().Helper()
	resp, err := s.invoices.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID:  customerID,
		InvoiceDate: lo.ToPtr(date),
		PaidAmount:  amount(paid),
		Items:       items,
	})
	s.Require().NoError(err)
	return resp
}

func (s *ledgerSuite) createPayment(customerID string, value string) *dto.PaymentResponse {
	s.T().Helper()
	resp, err := s.payments.CreatePayment(s.GetContext(), dto.CreatePaymentRequest{
		CustomerID: customerID,
		Amount:     amount(value),
	})
	s.Require().NoError(err)
	return resp
}

func (s *ledgerSuite) balance(customerID string) decimal.Decimal {
	s.T().Helper()
	c, err := s.GetStores().CustomerRepo.Get(s.GetContext(), customerID)
	s.Require().NoError(err)
	return c.Balance
}

func (s *ledgerSuite) invoice(id string) *invoice.Invoice {
	s.T().Helper()
	inv, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), id)
	s.Require().NoError(err)
	return inv
}

func (s *ledgerSuite) payment(id string) *payment.Payment {
	s.T().Helper()
	p, err := s.GetStores().PaymentRepo.Get(s.GetContext(), id)
	s.Require().NoError(err)
	return p
}

// assertConsistent runs the ledger verification and fails on any violation
func (s *ledgerSuite) assertConsistent(customerIDs ...string) {
	s.T().Helper()
	for _, id := range customerIDs {
		report, err := s.ledger.VerifyCustomer(s.GetContext(), id)
		s.Require().NoError(err)
		s.True(report.Consistent, "customer %s: %+v", id, report.Violations)
	}
}

// assertInvoiceInvariants checks paid + balance due == net and the derived status
func (s *ledgerSuite) assertInvoiceInvariants(inv *invoice.Invoice) {
	s.T().Helper()
	s.True(inv.PaidAmount.Add(inv.BalanceDue).Equal(inv.NetAmount),
		"invoice %s: paid %s + balance due %s != net %s", inv.ID, inv.PaidAmount, inv.BalanceDue, inv.NetAmount)
	s.Equal(invoice.DeriveStatus(inv.PaidAmount, inv.BalanceDue), inv.InvoiceStatus)
}
