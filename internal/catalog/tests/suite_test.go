package tests

import (
	"testing"
	"time"

	"github.com/sakashimaa/go-event-shop/internal/catalog/migrations"
	"github.com/sakashimaa/go-event-shop/internal/catalog/repository"
	"github.com/sakashimaa/go-event-shop/internal/catalog/service"
	"github.com/sakashimaa/go-event-shop/pkg/db"
	"github.com/sakashimaa/go-event-shop/pkg/testsuite"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type IntegrationTestSuite struct {
	testsuite.BaseSuite

	CatalogService service.CatalogService
	CachedService  service.CatalogService
}

func (s *IntegrationTestSuite) SetupSuite() {
	s.SkipIfShort()
	s.SetupPostgres()
	s.SetupRedis()

	s.Require().NoError(db.Migrate(migrations.FS, ".", s.DbURL))
	// a second run is a no-op
	s.Require().NoError(db.Migrate(migrations.FS, ".", s.DbURL))
}

func (s *IntegrationTestSuite) TearDownSuite() {
	s.TearDownInfrastructure()
}

func (s *IntegrationTestSuite) SetupTest() {
	s.TruncateTable("products")
	s.FlushRedis()

	logger := zap.NewNop()
	productRepo := repository.NewProductRepository(s.DbPool, logger)

	s.CatalogService = service.NewCatalogService(productRepo, logger)
	s.CachedService = service.NewCachedCatalogService(s.CatalogService, s.RedisClient, time.Minute, logger)
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationTestSuite))
}
