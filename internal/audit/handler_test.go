package audit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/cockroachdb/errors"
	"github.com/flexprice/billing/internal/api/dto"
	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/flexprice/billing/internal/pubsub/memory"
	"github.com/flexprice/billing/internal/service"
	"github.com/flexprice/billing/internal/testutil"
	"github.com/flexprice/billing/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type HandlerSuite struct {
	testutil.BaseServiceTestSuite

	customers service.CustomerService
	invoices  service.InvoiceService
	handler   *handler
}

func TestHandler(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
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

	s.customers = service.NewCustomerService(params)
	s.invoices = service.NewInvoiceService(params)
	s.handler = NewHandler(
		memory.NewPubSub(s.GetConfig(), s.GetLogger()),
		s.GetConfig(),
		service.NewLedgerService(params),
		s.GetLogger(),
	).(*handler)
}

// createInvoice creates a customer with one invoice and returns the published event as it
// would arrive on the wire
func (s *HandlerSuite) createInvoice() (*dto.InvoiceResponse, *message.Message) {
	c, err := s.customers.CreateCustomer(s.GetContext(), dto.CreateCustomerRequest{Code: "acme", Name: "Acme"})
	s.Require().NoError(err)

	inv, err := s.invoices.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID:  c.ID,
		InvoiceDate: lo.ToPtr(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)),
		Items: []dto.InvoiceItemRequest{{
			Description: "hosting",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   lo.ToPtr(decimal.NewFromInt(100)),
		}},
	})
	s.Require().NoError(err)

	events := s.GetPublisher().EventsNamed(types.LedgerEventInvoiceCreated)
	s.Require().Len(events, 1)
	return inv, s.toMessage(events[0])
}

func (s *HandlerSuite) toMessage(event *types.LedgerEvent) *message.Message {
	raw, err := json.Marshal(event)
	s.Require().NoError(err)
	return message.NewMessage(watermill.NewUUID(), raw)
}

func (s *HandlerSuite) TestConsistentLedgerIsAcked() {
	_, msg := s.createInvoice()
	s.NoError(s.handler.processMessage(msg))
}

func (s *HandlerSuite) TestViolationsAreReported() {
	inv, msg := s.createInvoice()

	stored, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.Require().NoError(err)
	stored.BalanceDue = decimal.NewFromInt(60)
	s.Require().NoError(s.GetStores().InvoiceRepo.Update(s.GetContext(), stored))

	err = s.handler.processMessage(msg)
	s.Require().Error(err)
	s.True(ierr.IsInvalidOperation(err))
	s.Contains(errors.FlattenHints(err), inv.CustomerID)
}

func (s *HandlerSuite) TestMalformedMessagesAreDropped() {
	s.NoError(s.handler.processMessage(message.NewMessage(watermill.NewUUID(), []byte("not json"))))

	event := &types.LedgerEvent{ID: "evt_1", EventName: types.LedgerEventPaymentCreated, Payload: json.RawMessage(`"oops"`)}
	s.NoError(s.handler.processMessage(s.toMessage(event)))
}

func (s *HandlerSuite) TestMissingCustomerIsSkipped() {
	payload, err := json.Marshal(types.LedgerEventPayload{
		EntityID:         "pay_1",
		CustomerBalances: map[string]decimal.Decimal{"cust_gone": decimal.Zero},
	})
	s.Require().NoError(err)

	event := &types.LedgerEvent{
		ID:        "evt_1",
		EventName: types.LedgerEventPaymentDeleted,
		TenantID:  types.DefaultTenantID,
		Payload:   payload,
	}
	s.NoError(s.handler.processMessage(s.toMessage(event)))
}
