package service

import (
	"testing"

	"github.com/flexprice/billing/internal/api/dto"
	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/flexprice/billing/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

type CustomerServiceSuite struct {
	ledgerSuite
}

func TestCustomerService(t *testing.T) {
	suite.Run(t, new(CustomerServiceSuite))
}

func (s *CustomerServiceSuite) TestCreateCustomer() {
	testCases := []struct {
		name          string
		request       dto.CreateCustomerRequest
		expectedError bool
		errorCode     string
	}{
		{
			name:    "successful_creation",
			request: dto.CreateCustomerRequest{Code: "acme", Name: "Acme Inc", Email: "billing@acme.test"},
		},
		{
			name:          "duplicate_code",
			request:       dto.CreateCustomerRequest{Code: "acme", Name: "Another Acme"},
			expectedError: true,
			errorCode:     ierr.ErrCodeAlreadyExists,
		},
		{
			name:          "missing_name",
			request:       dto.CreateCustomerRequest{Code: "nameless"},
			expectedError: true,
			errorCode:     ierr.ErrCodeValidation,
		},
		{
			name:          "invalid_email",
			request:       dto.CreateCustomerRequest{Code: "bad-mail", Name: "Bad Mail", Email: "not-an-email"},
			expectedError: true,
			errorCode:     ierr.ErrCodeValidation,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			resp, err := s.customers.CreateCustomer(s.GetContext(), tc.request)
			if tc.expectedError {
				s.Require().Error(err)
				s.Equal(tc.errorCode, ierr.CodeFromErr(err))
				return
			}

			s.Require().NoError(err)
			s.NotEmpty(resp.ID)
			s.Equal(tc.request.Code, resp.Code)
			s.assertAmount("0", resp.Balance)
			s.Equal(types.DefaultTenantID, resp.TenantID)
		})
	}
}

func (s *CustomerServiceSuite) TestUpdateCustomer_KeepsBalance() {
	c := s.createCustomer("acme")
	s.createInvoice(c.ID, day(1), "0", line("1", "100"))

	resp, err := s.customers.UpdateCustomer(s.GetContext(), c.ID, dto.UpdateCustomerRequest{
		Name: lo.ToPtr("Acme Holdings"),
	})
	s.Require().NoError(err)
	s.Equal("Acme Holdings", resp.Name)
	s.Equal("acme", resp.Code)
	s.assertAmount("100", s.balance(c.ID))
}

func (s *CustomerServiceSuite) TestUpdateCustomer_DuplicateCode() {
	s.createCustomer("taken")
	c := s.createCustomer("acme")

	_, err := s.customers.UpdateCustomer(s.GetContext(), c.ID, dto.UpdateCustomerRequest{Code: lo.ToPtr("taken")})
	s.Require().Error(err)
	s.True(ierr.IsAlreadyExists(err))

	resp, err := s.customers.GetCustomer(s.GetContext(), c.ID)
	s.Require().NoError(err)
	s.Equal("acme", resp.Code)
}

func (s *CustomerServiceSuite) TestDeleteCustomer() {
	free := s.createCustomer("free")
	withInvoice := s.createCustomer("invoiced")
	withPayment := s.createCustomer("paying")
	s.createInvoice(withInvoice.ID, day(1), "0", line("1", "10"))
	s.createPayment(withPayment.ID, "10")

	s.Require().NoError(s.customers.DeleteCustomer(s.GetContext(), free.ID))
	_, err := s.customers.GetCustomer(s.GetContext(), free.ID)
	s.True(ierr.IsNotFound(err))

	for _, id := range []string{withInvoice.ID, withPayment.ID} {
		err := s.customers.DeleteCustomer(s.GetContext(), id)
		s.Require().Error(err)
		s.True(ierr.IsConflict(err))
		s.Equal(ierr.ErrCodeConflict, ierr.CodeFromErr(err))

		_, err = s.customers.GetCustomer(s.GetContext(), id)
		s.NoError(err)
	}
}

func (s *CustomerServiceSuite) TestGetCustomers() {
	for _, code := range []string{"a", "b", "c"} {
		s.createCustomer(code)
	}

	filter := types.NewCustomerFilter()
	filter.Limit = lo.ToPtr(2)
	resp, err := s.customers.GetCustomers(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Len(resp.Items, 2)
	s.Equal(3, resp.Pagination.Total)

	filter = types.NewCustomerFilter()
	filter.Code = "b"
	resp, err = s.customers.GetCustomers(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Require().Len(resp.Items, 1)
	s.Equal("b", resp.Items[0].Code)
}
