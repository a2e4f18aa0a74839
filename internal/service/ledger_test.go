package service

import (
	"testing"

	"github.com/flexprice/billing/internal/api/dto"
	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/flexprice/billing/internal/types"
	"github.com/stretchr/testify/suite"
)

type LedgerServiceSuite struct {
	ledgerSuite
}

func TestLedgerService(t *testing.T) {
	suite.Run(t, new(LedgerServiceSuite))
}

func (s *LedgerServiceSuite) TestVerifyCustomer_Consistent() {
	c := s.createCustomer("acme")
	s.createInvoice(c.ID, day(1), "20", line("1", "100"))
	s.createInvoice(c.ID, day(2), "0", line("3", "10"))
	s.createPayment(c.ID, "150")

	report, err := s.ledger.VerifyCustomer(s.GetContext(), c.ID)
	s.Require().NoError(err)

	s.True(report.Consistent)
	s.Empty(report.Violations)
	s.Equal(2, report.InvoicesChecked)
	s.Equal(2, report.PaymentsChecked)
	s.assertAmount("-40", report.StoredBalance)
	s.assertAmount("-40", report.OpenDocumentBalance)
	s.assertAmount("0", report.BalanceDrift)
}

func (s *LedgerServiceSuite) TestVerifyCustomer_DetectsCorruptInvoice() {
	c := s.createCustomer("acme")
	created := s.createInvoice(c.ID, day(1), "0", line("1", "100"))

	// write a paid amount that no allocation backs, bypassing the ledger
	inv := s.invoice(created.ID)
	inv.PaidAmount = amount("30")
	s.Require().NoError(s.GetStores().InvoiceRepo.Update(s.GetContext(), inv))

	report, err := s.ledger.VerifyCustomer(s.GetContext(), c.ID)
	s.Require().NoError(err)

	s.False(report.Consistent)
	rules := make(map[string]bool)
	for _, v := range report.Violations {
		s.Equal(created.ID, v.EntityID)
		rules[v.Rule] = true
	}
	s.True(rules[RuleInvoiceBalance])
	s.True(rules[RuleInvoiceStatus])
	s.True(rules[RuleInvoiceAllocations])
	s.False(rules[RuleInvoiceTotals])
}

func (s *LedgerServiceSuite) TestVerifyCustomer_DetectsStaleTotals() {
	c := s.createCustomer("acme")
	created := s.createInvoice(c.ID, day(1), "0", line("2", "10"))

	inv := s.invoice(created.ID)
	inv.TotalAmount = amount("25")
	s.Require().NoError(s.GetStores().InvoiceRepo.Update(s.GetContext(), inv))

	report, err := s.ledger.VerifyCustomer(s.GetContext(), c.ID)
	s.Require().NoError(err)
	s.False(report.Consistent)
	s.Require().Len(report.Violations, 1)
	s.Equal(RuleInvoiceTotals, report.Violations[0].Rule)
	s.assertAmount("20", report.Violations[0].Expected)
	s.assertAmount("25", report.Violations[0].Actual)
}

func (s *LedgerServiceSuite) TestVerifyCustomer_Errors() {
	_, err := s.ledger.VerifyCustomer(s.GetContext(), "")
	s.True(ierr.IsValidation(err))

	_, err = s.ledger.VerifyCustomer(s.GetContext(), "cust_missing")
	s.True(ierr.IsNotFound(err))
}

func (s *LedgerServiceSuite) TestAllocatePreview() {
	c := s.createCustomer("acme")
	b := s.createInvoice(c.ID, day(2), "0", line("1", "30"))
	a := s.createInvoice(c.ID, day(1), "0", line("1", "50"))
	s.createInvoice(c.ID, day(3), "10", line("1", "10"))

	resp, err := s.allocator.Allocate(s.GetContext(), dto.AllocationPreviewRequest{
		CustomerID: c.ID,
		Amount:     amount("100"),
	})
	s.Require().NoError(err)

	s.Require().Len(resp.Shares, 2)
	s.Equal(a.ID, resp.Shares[0].InvoiceID)
	s.assertAmount("50", resp.Shares[0].Amount)
	s.Equal(b.ID, resp.Shares[1].InvoiceID)
	s.assertAmount("30", resp.Shares[1].Amount)
	s.assertAmount("20", resp.Remainder)
	s.assertAmount("80", resp.Allocated())

	// nothing was recorded
	s.Equal(types.InvoiceStatusPending, s.invoice(a.ID).InvoiceStatus)
	s.assertAmount("80", s.balance(c.ID))
	s.Equal(int64(1), s.GetStores().SequenceRepo.Current(s.GetContext(), types.SequenceKindPayment))
}

func (s *LedgerServiceSuite) TestAllocatePreview_Validation() {
	c := s.createCustomer("acme")

	_, err := s.allocator.Allocate(s.GetContext(), dto.AllocationPreviewRequest{CustomerID: c.ID})
	s.True(ierr.IsValidation(err))

	_, err = s.allocator.Allocate(s.GetContext(), dto.AllocationPreviewRequest{CustomerID: "cust_missing", Amount: amount("1")})
	s.True(ierr.IsNotFound(err))
}
