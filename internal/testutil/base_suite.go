package testutil

import (
	"context"

	"github.com/flexprice/plansync/internal/cache"
	"github.com/flexprice/plansync/internal/config"
	"github.com/flexprice/plansync/internal/lock"
	"github.com/flexprice/plansync/internal/logger"
	"github.com/flexprice/plansync/internal/types"
	"github.com/stretchr/testify/suite"
)

// Stores holds the in-memory collaborators of a service under test
type Stores struct {
	Catalog     *InMemoryCatalog
	PlanHistory *InMemoryPlanHistoryStore
}

// BaseServiceTestSuite wires fresh fakes before every test
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	config *config.Configuration
	logger *logger.Logger
	client *FakePayvalidaClient
	guard  *lock.InProcessGuard
	cache  cache.Cache
	stores Stores
}

func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = types.SetRequestID(context.Background(), types.GenerateUUID())
	s.config = config.GetDefaultConfig()
	s.logger = logger.NewNopLogger()
	s.client = NewFakePayvalidaClient()
	s.guard = lock.NewInProcessGuard()
	s.cache = cache.NewInMemoryCache()
	s.stores = Stores{
		Catalog:     NewInMemoryCatalog(),
		PlanHistory: NewInMemoryPlanHistoryStore(),
	}
}

func (s *BaseServiceTestSuite) GetContext() context.Context      { return s.ctx }
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration { return s.config }
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger        { return s.logger }
func (s *BaseServiceTestSuite) GetClient() *FakePayvalidaClient  { return s.client }
func (s *BaseServiceTestSuite) GetGuard() *lock.InProcessGuard   { return s.guard }
func (s *BaseServiceTestSuite) GetCache() cache.Cache            { return s.cache }
func (s *BaseServiceTestSuite) GetStores() Stores                { return s.stores }
