//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fletes-app/service-quote/internal/application"
	"github.com/fletes-app/service-quote/internal/common/database"
	"github.com/fletes-app/service-quote/internal/domain/agenda"
	"github.com/fletes-app/service-quote/internal/domain/quote"
	"github.com/fletes-app/service-quote/internal/notify"
	"github.com/fletes-app/service-quote/internal/repository/dynamo"
	"github.com/fletes-app/service-quote/migrations"
)

// setupPostgres starts a PostgreSQL container, applies the migrations and returns a
// connected GORM DB.
func setupPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "test_quote",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := database.PostgresConfig{
		Host:     host,
		Port:     port.Port(),
		User:     "test",
		Password: "test",
		DBName:   "test_quote",
		SSLMode:  "disable",
	}

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		db, err = database.Connect(cfg, zap.NewNop())
		return err == nil
	}, 30*time.Second, time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, database.RunMigrations(cfg.DatabaseURL(), migrations.FS, zap.NewNop()))
	return db
}

// setupDynamo starts DynamoDB Local and returns a store with its tables created.
func setupDynamo(t *testing.T) *dynamo.Store {
	t.Helper()
	ctx := context.Background()

	ddbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "amazon/dynamodb-local:2.5.2",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"-jar", "DynamoDBLocal.jar", "-inMemory", "-sharedDb"},
			WaitingFor:   wait.ForListeningPort("8000/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start DynamoDB Local container")
	t.Cleanup(func() {
		if err := ddbContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate DynamoDB Local container: %v", err)
		}
	})

	endpoint, err := ddbContainer.PortEndpoint(ctx, "8000/tcp", "http")
	require.NoError(t, err)

	client, err := database.ConnectDynamoDB(ctx, database.DynamoConfig{
		Region:    "us-east-1",
		Endpoint:  endpoint,
		AccessKey: "local",
		SecretKey: "local",
	})
	require.NoError(t, err)

	store := dynamo.NewStore(client, dynamo.Tables{})
	require.NoError(t, store.EnsureTables(ctx))
	return store
}

// setupKafka starts a Kafka container and pre-creates topics.
func setupKafka(t *testing.T, topics ...string) []string {
	t.Helper()
	ctx := context.Background()

	// confluent-local supports KRaft natively.
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, brokers, topics...)
	return brokers
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	require.NoError(t, controllerConn.CreateTopics(topicConfigs...), "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(time.Second)
}

// newLedger wires a ledger over the given store with a fixed "today".
func newLedger(quotes quote.Repository, ag agenda.Repository, today time.Time, publisher application.EventPublisher) *application.SlotLedger {
	log := zap.NewNop()
	return application.NewSlotLedger(quotes, ag, agenda.FixedCalendar(time.UTC, today),
		application.NewEventEmitter(publisher, 5*time.Second, log), log)
}

// newSentQuote builds a preview quote for a slot, ready to be reserved.
func newSentQuote(t *testing.T, date, slot string) *quote.Quote {
	t.Helper()
	q, err := quote.NewQuote(quote.Request{
		CustomerName: "Integración",
		Phone:        "3515550000",
		CargoType:    "mudanza",
		Origin:       "Av. Colón 1000",
		Destination:  "Villa Carlos Paz",
		SlotDate:     date,
		SlotTime:     slot,
	}, quote.Estimate{DistanceKm: 42, DrivingMin: 60})
	require.NoError(t, err)
	return q
}

// recordingSender collects notification texts.
type recordingSender struct {
	mu    sync.Mutex
	texts []string
}

func (s *recordingSender) Send(_ context.Context, text string) notify.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return notify.Result{OK: true, Provider: "test"}
}

func (s *recordingSender) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}
