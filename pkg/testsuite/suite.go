package testsuite

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BaseSuite starts only the containers a suite asks for. Suites skip
// themselves under -short since every container needs a docker daemon.
type BaseSuite struct {
	suite.Suite
	PgContainer    *postgres.PostgresContainer
	RedisContainer *redis.RedisContainer
	KafkaContainer *kafka.KafkaContainer
	MongoContainer *mongodb.MongoDBContainer
	DbPool         *pgxpool.Pool
	DbURL          string
	RedisClient    *goredis.Client
	KafkaBrokers   []string
	MongoClient    *mongo.Client
	Ctx            context.Context
}

func (s *BaseSuite) SetupPostgres() {
	s.ensureCtx()

	var err error
	s.PgContainer, err = postgres.Run(
		s.Ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)

	s.DbURL, err = s.PgContainer.ConnectionString(s.Ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.DbPool, err = pgxpool.New(s.Ctx, s.DbURL)
	s.Require().NoError(err)
}

func (s *BaseSuite) SetupRedis() {
	s.ensureCtx()

	var err error
	s.RedisContainer, err = redis.Run(s.Ctx, "redis:7-alpine")
	s.Require().NoError(err)

	endpoint, err := s.RedisContainer.Endpoint(s.Ctx, "")
	s.Require().NoError(err)

	s.RedisClient = goredis.NewClient(&goredis.Options{Addr: endpoint})
	s.Require().NoError(s.RedisClient.Ping(s.Ctx).Err())
}

func (s *BaseSuite) SetupKafka() {
	s.ensureCtx()

	var err error
	s.KafkaContainer, err = kafka.Run(
		s.Ctx,
		"confluentinc/cp-kafka:7.5.0",
		kafka.WithClusterID("test-cluster"),
	)
	s.Require().NoError(err)

	s.KafkaBrokers, err = s.KafkaContainer.Brokers(s.Ctx)
	s.Require().NoError(err)
}

func (s *BaseSuite) SetupMongo() {
	s.ensureCtx()

	var err error
	s.MongoContainer, err = mongodb.Run(s.Ctx, "mongo:7")
	s.Require().NoError(err)

	uri, err := s.MongoContainer.ConnectionString(s.Ctx)
	s.Require().NoError(err)

	s.MongoClient, err = mongo.Connect(s.Ctx, options.Client().ApplyURI(uri))
	s.Require().NoError(err)
	s.Require().NoError(s.MongoClient.Ping(s.Ctx, nil))
}

func (s *BaseSuite) TearDownInfrastructure() {
	if s.DbPool != nil {
		s.DbPool.Close()
	}
	if s.RedisClient != nil {
		_ = s.RedisClient.Close()
	}
	if s.MongoClient != nil {
		_ = s.MongoClient.Disconnect(s.Ctx)
	}
	for name, container := range map[string]testcontainers.Container{
		"postgres": s.PgContainer,
		"redis":    s.RedisContainer,
		"kafka":    s.KafkaContainer,
		"mongo":    s.MongoContainer,
	} {
		if isNilContainer(container) {
			continue
		}
		if err := container.Terminate(s.Ctx); err != nil {
			log.Printf("Failed to terminate %s container: %v", name, err)
		}
	}
}

func (s *BaseSuite) TruncateTable(tableName string) {
	_, err := s.DbPool.Exec(s.Ctx, fmt.Sprintf("TRUNCATE %s CASCADE", tableName))
	s.Require().NoError(err)
}

func (s *BaseSuite) FlushRedis() {
	s.Require().NoError(s.RedisClient.FlushAll(s.Ctx).Err())
}

func (s *BaseSuite) DropMongo(database string) {
	s.Require().NoError(s.MongoClient.Database(database).Drop(s.Ctx))
}

func (s *BaseSuite) ensureCtx() {
	if s.Ctx == nil {
		s.Ctx = context.Background()
	}
}
