package service

import (
	"testing"

	"github.com/flexprice/billing/internal/api/dto"
	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/flexprice/billing/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type InvoiceServiceSuite struct {
	ledgerSuite
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) TestCreateInvoice() {
	c := s.createCustomer("acme")

	resp, err := s.invoices.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID:     c.ID,
		InvoiceDate:    lo.ToPtr(day(1)),
		Notes:          "first order",
		DiscountAmount: amount("10"),
		Items:          []dto.InvoiceItemRequest{line("2", "50"), line("1", "30")},
	})
	s.Require().NoError(err)

	s.Equal("INV1", resp.InvoiceNumber)
	s.assertAmount("130", resp.TotalAmount)
	s.assertAmount("120", resp.NetAmount)
	s.assertAmount("0", resp.PaidAmount)
	s.assertAmount("120", resp.BalanceDue)
	s.Equal(types.InvoiceStatusPending, resp.InvoiceStatus)
	s.Nil(resp.Payment)
	s.Require().Len(resp.Items, 2)
	s.Equal(0, resp.Items[0].Position)
	s.assertAmount("100", resp.Items[0].Amount)
	s.Equal(1, resp.Items[1].Position)

	s.assertAmount("120", s.balance(c.ID))
	s.assertConsistent(c.ID)

	events := s.GetPublisher().EventsNamed(types.LedgerEventInvoiceCreated)
	s.Require().Len(events, 1)
	s.Contains(string(events[0].Payload), resp.ID)
	s.Contains(string(events[0].Payload), `"customer_balances"`)
}

func (s *InvoiceServiceSuite) TestCreateInvoice_WithPaidAmount() {
	tests := []struct {
		name           string
		paid           string
		expectedStatus types.InvoiceStatus
		expectedDue    string
	}{
		{"partially_paid", "40", types.InvoiceStatusPartial, "60"},
		{"fully_paid", "100", types.InvoiceStatusPaid, "0"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			c := s.createCustomer(tt.name)

			resp := s.createInvoice(c.ID, day(1), tt.paid, line("1", "100"))

			s.assertAmount(tt.paid, resp.PaidAmount)
			s.assertAmount(tt.expectedDue, resp.BalanceDue)
			s.Equal(tt.expectedStatus, resp.InvoiceStatus)

			// the paid amount is recorded as a real payment allocated to the invoice
			s.Require().NotNil(resp.Payment)
			s.assertAmount(tt.paid, resp.Payment.Amount)
			s.Require().Len(resp.Payment.Allocations, 1)
			s.Equal(resp.ID, resp.Payment.Allocations[0].InvoiceID)
			s.assertAmount("0", resp.Payment.UnallocatedAmount)

			s.assertAmount(tt.expectedDue, s.balance(c.ID))
			s.assertConsistent(c.ID)
		})
	}
}

func (s *InvoiceServiceSuite) TestCreateInvoice_PaidAmountGoesToNewInvoiceFirst() {
	c := s.createCustomer("acme")
	older := s.createInvoice(c.ID, day(1), "0", line("1", "50"))

	newer := s.createInvoice(c.ID, day(2), "30", line("1", "30"))

	s.Equal(types.InvoiceStatusPaid, newer.InvoiceStatus)
	s.Equal(types.InvoiceStatusPending, s.invoice(older.ID).InvoiceStatus)
	s.assertAmount("50", s.balance(c.ID))
}

func (s *InvoiceServiceSuite) TestCreateInvoice_UsesProductPrice() {
	c := s.createCustomer("acme")
	p, err := s.products.CreateProduct(s.GetContext(), dto.CreateProductRequest{
		Code:      "widget",
		Name:      "Widget",
		UnitPrice: amount("25"),
	})
	s.Require().NoError(err)

	resp, err := s.invoices.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		CustomerID: c.ID,
		Items: []dto.InvoiceItemRequest{
			{ProductID: lo.ToPtr(p.ID), Quantity: amount("2")},
			{ProductID: lo.ToPtr(p.ID), Quantity: amount("1"), UnitPrice: lo.ToPtr(amount("20"))},
		},
	})
	s.Require().NoError(err)

	s.assertAmount("50", resp.Items[0].Amount)
	s.assertAmount("20", resp.Items[1].Amount)
	s.assertAmount("70", resp.NetAmount)
	s.Equal(p.ID, lo.FromPtr(resp.Items[0].ProductID))
}

func (s *InvoiceServiceSuite) TestCreateInvoice_RejectedBeforeAnyWrite() {
	c := s.createCustomer("acme")

	tests := []struct {
		name     string
		req      dto.CreateInvoiceRequest
		check    func(error) bool
		contains string
	}{
		{
			name:     "missing_customer",
			req:      dto.CreateInvoiceRequest{Items: []dto.InvoiceItemRequest{line("1", "10")}},
			check:    ierr.IsValidation,
			contains: dto.ReasonRequired,
		},
		{
			name:     "no_items",
			req:      dto.CreateInvoiceRequest{CustomerID: c.ID},
			check:    ierr.IsValidation,
			contains: dto.ReasonRequired,
		},
		{
			name:     "zero_quantity",
			req:      dto.CreateInvoiceRequest{CustomerID: c.ID, Items: []dto.InvoiceItemRequest{line("0", "10")}},
			check:    ierr.IsValidation,
			contains: dto.ReasonNotPositive,
		},
		{
			name:     "sub_precision_quantity",
			req:      dto.CreateInvoiceRequest{CustomerID: c.ID, Items: []dto.InvoiceItemRequest{line("0.0000001", "10")}},
			check:    ierr.IsValidation,
			contains: dto.ReasonNotPositive,
		},
		{
			name:     "sub_precision_unit_price",
			req:      dto.CreateInvoiceRequest{CustomerID: c.ID, Items: []dto.InvoiceItemRequest{line("1", "0.0000001")}},
			check:    ierr.IsValidation,
			contains: dto.ReasonNotPositive,
		},
		{
			name: "missing_unit_price",
			req: dto.CreateInvoiceRequest{CustomerID: c.ID, Items: []dto.InvoiceItemRequest{
				{Description: "free text", Quantity: amount("1")},
			}},
			check:    ierr.IsValidation,
			contains: dto.ReasonRequired,
		},
		{
			name:     "negative_unit_price",
			req:      dto.CreateInvoiceRequest{CustomerID: c.ID, Items: []dto.InvoiceItemRequest{line("1", "-5")}},
			check:    ierr.IsValidation,
			contains: dto.ReasonNotPositive,
		},
		{
			name:     "negative_discount",
			req:      dto.CreateInvoiceRequest{CustomerID: c.ID, DiscountAmount: amount("-1"), Items: []dto.InvoiceItemRequest{line("1", "10")}},
			check:    ierr.IsValidation,
			contains: dto.ReasonNegative,
		},
		{
			name:     "discount_above_subtotal",
			req:      dto.CreateInvoiceRequest{CustomerID: c.ID, DiscountAmount: amount("11"), Items: []dto.InvoiceItemRequest{line("1", "10")}},
			check:    ierr.IsValidation,
			contains: dto.ReasonDiscountTooLarge,
		},
		{
			name:     "paid_above_net",
			req:      dto.CreateInvoiceRequest{CustomerID: c.ID, PaidAmount: amount("10.5"), Items: []dto.InvoiceItemRequest{line("1", "10")}},
			check:    ierr.IsValidation,
			contains: dto.ReasonPaidTooLarge,
		},
		{
			name: "item_id_on_create",
			req: dto.CreateInvoiceRequest{CustomerID: c.ID, Items: []dto.InvoiceItemRequest{
				{ID: lo.ToPtr("item_1"), Quantity: amount("1"), UnitPrice: lo.ToPtr(amount("1"))},
			}},
			check:    ierr.IsValidation,
			contains: dto.ReasonUnknownItem,
		},
		{
			name:  "unknown_customer",
			req:   dto.CreateInvoiceRequest{CustomerID: "cust_missing", Items: []dto.InvoiceItemRequest{line("1", "10")}},
			check: ierr.IsNotFound,
		},
		{
			name: "unknown_product",
			req: dto.CreateInvoiceRequest{CustomerID: c.ID, Items: []dto.InvoiceItemRequest{
				{ProductID: lo.ToPtr("prod_missing"), Quantity: amount("1")},
			}},
			check: ierr.IsNotFound,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.invoices.CreateInvoice(s.GetContext(), tt.req)
			s.Require().Error(err)
			s.True(tt.check(err), "unexpected error: %v", err)
			if tt.contains != "" {
				s.Contains(err.Error(), tt.contains)
			}

			n, err := s.GetStores().InvoiceRepo.Count(s.GetContext(), nil)
			s.NoError(err)
			s.Zero(n)
			s.Zero(s.GetStores().SequenceRepo.Current(s.GetContext(), types.SequenceKindInvoice))
			s.assertAmount("0", s.balance(c.ID))
		})
	}
}

func (s *InvoiceServiceSuite) TestUpdateInvoice_KeepsUnchangedItems() {
	c := s.createCustomer("acme")
	created := s.createInvoice(c.ID, day(1), "0", line("1", "100"), line("2", "50"))
	first, second := created.Items[0], created.Items[1]

	resp, err := s.invoices.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		Items: []dto.InvoiceItemRequest{
			{ID: lo.ToPtr(first.ID), Description: first.Description, Quantity: first.Quantity, UnitPrice: lo.ToPtr(first.UnitPrice)},
			line("1", "25"),
		},
	})
	s.Require().NoError(err)

	s.Require().Len(resp.Items, 2)
	s.Equal(first.ID, resp.Items[0].ID)
	s.NotEqual(second.ID, resp.Items[1].ID)
	s.assertAmount("125", resp.NetAmount)
	s.assertAmount("125", s.balance(c.ID))

	items, err := s.GetStores().InvoiceItemRepo.ListByInvoice(s.GetContext(), created.ID)
	s.NoError(err)
	s.Len(items, 2)
	s.assertConsistent(c.ID)
}

func (s *InvoiceServiceSuite) TestUpdateInvoice_ThenRevert() {
	c := s.createCustomer("acme")
	created := s.createInvoice(c.ID, day(1), "30", line("2", "100"))
	original := created.Items[0]
	s.assertAmount("200", created.NetAmount)
	s.assertAmount("170", s.balance(c.ID))

	edited, err := s.invoices.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		PaidAmount: amount("30"),
		Items: []dto.InvoiceItemRequest{
			{ID: lo.ToPtr(original.ID), Description: original.Description, Quantity: amount("1.5"), UnitPrice: lo.ToPtr(original.UnitPrice)},
		},
	})
	s.Require().NoError(err)
	s.assertAmount("150", edited.NetAmount)
	s.assertAmount("120", s.balance(c.ID), "balance moves by -50")

	reverted, err := s.invoices.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		PaidAmount: amount("30"),
		Items: []dto.InvoiceItemRequest{
			{ID: lo.ToPtr(original.ID), Description: original.Description, Quantity: original.Quantity, UnitPrice: lo.ToPtr(original.UnitPrice)},
		},
	})
	s.Require().NoError(err)

	s.assertAmount("200", reverted.NetAmount)
	s.assertAmount("170", reverted.BalanceDue)
	s.Equal(created.InvoiceStatus, reverted.InvoiceStatus)
	s.Equal(original.ID, reverted.Items[0].ID)
	s.assertAmount("170", s.balance(c.ID))
	s.Nil(reverted.Payment)
	s.assertConsistent(c.ID)
}

func (s *InvoiceServiceSuite) TestUpdateInvoice_PaidIncreaseRecordsPayment() {
	c := s.createCustomer("acme")
	created := s.createInvoice(c.ID, day(1), "10", line("1", "100"))

	resp, err := s.invoices.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		PaidAmount: amount("50"),
		Items:      []dto.InvoiceItemRequest{line("1", "100")},
	})
	s.Require().NoError(err)

	s.assertAmount("50", resp.PaidAmount)
	s.assertAmount("50", resp.BalanceDue)
	s.Equal(types.InvoiceStatusPartial, resp.InvoiceStatus)
	s.Require().NotNil(resp.Payment)
	s.assertAmount("40", resp.Payment.Amount)
	s.Equal("PAY2", resp.Payment.PaymentNumber)
	s.assertAmount("50", s.balance(c.ID))
	s.assertConsistent(c.ID)
}

func (s *InvoiceServiceSuite) TestUpdateInvoice_PaidDecreaseRejected() {
	c := s.createCustomer("acme")
	created := s.createInvoice(c.ID, day(1), "40", line("1", "100"))

	_, err := s.invoices.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		PaidAmount: amount("20"),
		Items:      []dto.InvoiceItemRequest{line("1", "100")},
	})
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
	s.Contains(err.Error(), dto.ReasonPaidAmountDecrease)

	inv := s.invoice(created.ID)
	s.assertAmount("40", inv.PaidAmount)
	s.Equal(created.Items[0].ID, inv.Items[0].ID)
	s.assertAmount("60", s.balance(c.ID))
}

func (s *InvoiceServiceSuite) TestUpdateInvoice_RejectsForeignItem() {
	c := s.createCustomer("acme")
	a := s.createInvoice(c.ID, day(1), "0", line("1", "10"))
	b := s.createInvoice(c.ID, day(2), "0", line("1", "20"))

	_, err := s.invoices.UpdateInvoice(s.GetContext(), a.ID, dto.UpdateInvoiceRequest{
		Items: []dto.InvoiceItemRequest{
			{ID: lo.ToPtr(b.Items[0].ID), Quantity: amount("1"), UnitPrice: lo.ToPtr(amount("5"))},
		},
	})
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
	s.Contains(err.Error(), dto.ReasonUnknownItem)
	s.assertAmount("30", s.balance(c.ID))
}

func (s *InvoiceServiceSuite) TestUpdateInvoice_NetBelowPaidRejected() {
	c := s.createCustomer("acme")
	created := s.createInvoice(c.ID, day(1), "80", line("1", "100"))

	_, err := s.invoices.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		PaidAmount: amount("80"),
		Items:      []dto.InvoiceItemRequest{line("1", "50")},
	})
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
	s.Contains(err.Error(), dto.ReasonPaidTooLarge)
	s.assertAmount("20", s.balance(c.ID))
}

func (s *InvoiceServiceSuite) TestUpdateInvoice_ReopensPaidInvoice() {
	c := s.createCustomer("acme")
	created := s.createInvoice(c.ID, day(1), "100", line("1", "100"))
	s.Equal(types.InvoiceStatusPaid, created.InvoiceStatus)

	resp, err := s.invoices.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		PaidAmount: amount("100"),
		Items:      []dto.InvoiceItemRequest{line("1", "100"), line("1", "40")},
	})
	s.Require().NoError(err)

	s.Equal(types.InvoiceStatusPartial, resp.InvoiceStatus)
	s.assertAmount("40", resp.BalanceDue)
	s.assertAmount("40", s.balance(c.ID))
	s.assertConsistent(c.ID)
}

func (s *InvoiceServiceSuite) TestUpdateInvoice_ChangeCustomer() {
	from := s.createCustomer("from")
	to := s.createCustomer("to")
	created := s.createInvoice(from.ID, day(1), "30", line("1", "100"))
	s.assertAmount("70", s.balance(from.ID))

	resp, err := s.invoices.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		CustomerID: lo.ToPtr(to.ID),
		PaidAmount: amount("50"),
		Items:      []dto.InvoiceItemRequest{line("1", "100")},
	})
	s.Require().NoError(err)

	s.Equal(to.ID, resp.CustomerID)
	s.assertAmount("50", resp.BalanceDue)
	s.Require().NotNil(resp.Payment)
	s.Equal(to.ID, resp.Payment.CustomerID)

	// the old customer keeps only its payment, the new one owes the remaining balance due
	s.assertAmount("0", s.balance(from.ID))
	s.assertAmount("50", s.balance(to.ID))
	s.assertConsistent(from.ID, to.ID)

	events := s.GetPublisher().EventsNamed(types.LedgerEventInvoiceUpdated)
	s.Require().Len(events, 1)
	s.Contains(string(events[0].Payload), from.ID)
	s.Contains(string(events[0].Payload), to.ID)
}

func (s *InvoiceServiceSuite) TestUpdateInvoice_UnknownTargetCustomer() {
	c := s.createCustomer("acme")
	created := s.createInvoice(c.ID, day(1), "0", line("1", "100"))

	_, err := s.invoices.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{
		CustomerID: lo.ToPtr("cust_missing"),
		Items:      []dto.InvoiceItemRequest{line("1", "100")},
	})
	s.Require().Error(err)
	s.True(ierr.IsNotFound(err))
	s.Equal(c.ID, s.invoice(created.ID).CustomerID)
}

func (s *InvoiceServiceSuite) TestDeleteInvoice_ReversesBalanceDue() {
	c := s.createCustomer("acme")
	created := s.createInvoice(c.ID, day(1), "40", line("1", "100"))
	s.assertAmount("60", s.balance(c.ID))

	s.Require().NoError(s.invoices.DeleteInvoice(s.GetContext(), created.ID))

	// only the balance due is reversed; the 40 already collected stays as credit
	s.assertAmount("0", s.balance(c.ID))

	_, err := s.invoices.GetInvoice(s.GetContext(), created.ID)
	s.True(ierr.IsNotFound(err))

	items, err := s.GetStores().InvoiceItemRepo.ListByInvoice(s.GetContext(), created.ID)
	s.NoError(err)
	s.Empty(items)

	p := s.payment(created.Payment.ID)
	s.Empty(p.Allocations)
	s.assertAmount("40", p.Unallocated())

	report, err := s.ledger.VerifyCustomer(s.GetContext(), c.ID)
	s.Require().NoError(err)
	s.True(report.Consistent)
	s.assertAmount("-40", report.OpenDocumentBalance)
	s.assertAmount("40", report.BalanceDrift)

	s.Len(s.GetPublisher().EventsNamed(types.LedgerEventInvoiceDeleted), 1)
}

func (s *InvoiceServiceSuite) TestDeleteInvoice_NotFound() {
	err := s.invoices.DeleteInvoice(s.GetContext(), "inv_missing")
	s.Require().Error(err)
	s.True(ierr.IsNotFound(err))
	s.Empty(s.GetPublisher().Events())
}

func (s *InvoiceServiceSuite) TestListInvoices() {
	a := s.createCustomer("a")
	b := s.createCustomer("b")
	s.createInvoice(a.ID, day(1), "0", line("1", "10"))
	s.createInvoice(a.ID, day(2), "10", line("1", "10"))
	s.createInvoice(a.ID, day(3), "5", line("1", "10"))
	s.createInvoice(b.ID, day(1), "0", line("1", "10"))

	filter := types.NewInvoiceFilter()
	filter.CustomerID = a.ID
	resp, err := s.invoices.ListInvoices(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Equal(3, resp.Pagination.Total)
	s.Require().Len(resp.Items, 3)
	// newest first by default
	s.True(resp.Items[0].InvoiceDate.Equal(day(3)))

	filter.InvoiceStatus = []types.InvoiceStatus{types.InvoiceStatusPaid}
	resp, err = s.invoices.ListInvoices(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Require().Len(resp.Items, 1)
	s.True(resp.Items[0].InvoiceDate.Equal(day(2)))

	filter = types.NewInvoiceFilter()
	filter.Limit = lo.ToPtr(2)
	resp, err = s.invoices.ListInvoices(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Len(resp.Items, 2)
	s.Equal(4, resp.Pagination.Total)
}
