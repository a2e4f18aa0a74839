package testutil

import (
	"context"
	"time"

	"github.com/flexprice/billing/internal/config"
	"github.com/flexprice/billing/internal/logger"
	"github.com/flexprice/billing/internal/types"
	"github.com/flexprice/billing/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds the in-memory repositories used by service tests
type Stores struct {
	CustomerRepo    *InMemoryCustomerStore
	ProductRepo     *InMemoryProductStore
	InvoiceRepo     *InMemoryInvoiceStore
	InvoiceItemRepo *InMemoryInvoiceItemStore
	PaymentRepo     *InMemoryPaymentStore
	AllocationRepo  *InMemoryAllocationStore
	SequenceRepo    *InMemorySequenceStore
}

// DefaultLockTimeout bounds how long a test transaction waits for the in-memory lock
const DefaultLockTimeout = 2 * time.Second

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	stores    Stores
	publisher *InMemoryLedgerPublisher
	db        *InMemoryDB
	logger    *logger.Logger
	config    *config.Configuration
	now       time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelInfo

	var err error
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.config = config.GetDefaultConfig()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupStores() {
	items := NewInMemoryInvoiceItemStore()
	allocations := NewInMemoryAllocationStore()

	s.stores = Stores{
		CustomerRepo:    NewInMemoryCustomerStore(),
		ProductRepo:     NewInMemoryProductStore(),
		InvoiceRepo:     NewInMemoryInvoiceStore(items),
		InvoiceItemRepo: items,
		PaymentRepo:     NewInMemoryPaymentStore(allocations),
		AllocationRepo:  allocations,
		SequenceRepo:    NewInMemorySequenceStore(),
	}

	s.db = NewInMemoryDB(s.logger, DefaultLockTimeout,
		s.stores.CustomerRepo,
		s.stores.ProductRepo,
		s.stores.InvoiceRepo,
		s.stores.InvoiceItemRepo,
		s.stores.PaymentRepo,
		s.stores.AllocationRepo,
		s.stores.SequenceRepo,
	)
	s.publisher = NewInMemoryLedgerPublisher()
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.CustomerRepo.Clear()
	s.stores.ProductRepo.Clear()
	s.stores.InvoiceRepo.Clear()
	s.stores.InvoiceItemRepo.Clear()
	s.stores.PaymentRepo.Clear()
	s.stores.AllocationRepo.Clear()
	s.stores.SequenceRepo.Clear()
	s.publisher.Clear()
}

func (s *BaseServiceTestSuite) ClearStores() {
	s.clearStores()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration. Tests may change it before building services.
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetPublisher returns the capturing ledger publisher
func (s *BaseServiceTestSuite) GetPublisher() *InMemoryLedgerPublisher {
	return s.publisher
}

// GetDB returns the in-memory transactional database
func (s *BaseServiceTestSuite) GetDB() *InMemoryDB {
	return s.db
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now.UTC()
}

// GetUUID returns a new UUID string
func (s *BaseServiceTestSuite) GetUUID() string {
	return types.GenerateUUID()
}
