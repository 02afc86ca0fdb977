package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/music-billing/internal/migrations"
	"github.com/magabrotheeeer/music-billing/internal/models"
)

// TestDataFactory содержит методы для создания тестовых данных
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создает новую фабрику тестовых данных
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создает тестового пользователя и возвращает его ID
func (f *TestDataFactory) CreateUser(t *testing.T) string {
	id := uuid.New().String()
	_, err := f.storage.DB.Exec(`INSERT INTO users (id, full_name) VALUES ($1, $2)`, id, "Test User")
	require.NoError(t, err)
	return id
}

// CreateProductWithPrice создает активный продукт с одной месячной ценой
func (f *TestDataFactory) CreateProductWithPrice(t *testing.T, productID, priceID string, amount int64) {
	ctx := context.Background()
	require.NoError(t, f.storage.UpsertProduct(ctx, models.Product{
		ID:     productID,
		Active: true,
		Name:   "Premium " + productID,
	}))
	interval := "month"
	count := int64(1)
	require.NoError(t, f.storage.UpsertPrice(ctx, models.Price{
		ID:            priceID,
		ProductID:     productID,
		Active:        true,
		Currency:      "usd",
		Type:          models.PriceTypeRecurring,
		UnitAmount:    &amount,
		Interval:      &interval,
		IntervalCount: &count,
	}))
}

// GetTestSubscription возвращает подписку со стандартными тестовыми данными
func GetTestSubscription(id, userID, priceID string, status models.SubscriptionStatus) models.Subscription {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return models.Subscription{
		ID:                 id,
		UserID:             userID,
		Status:             status,
		Metadata:           models.Metadata{"source": "test"},
		PriceID:            priceID,
		Quantity:           1,
		Created:            start,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   start.AddDate(0, 1, 0),
	}
}

// TestVerification содержит общие функции для проверки результатов тестов
type TestVerification struct {
	storage *Storage
}

// NewTestVerification создает новый объект для проверки результатов
func NewTestVerification(storage *Storage) *TestVerification {
	return &TestVerification{storage: storage}
}

// VerifyRowCount проверяет число строк в таблице
func (v *TestVerification) VerifyRowCount(t *testing.T, table string, expected int) {
	var count int
	err := v.storage.DB.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, expected, count)
}

// setupTestDatabase создает тестовую БД с контейнером PostgreSQL и применяет миграции
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "testdb",
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		).WithDeadline(3 * time.Minute),
	}

	postgresContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start container")

	host, err := postgresContainer.Host(ctx)
	require.NoError(t, err, "Failed to get host")
	port, err := postgresContainer.MappedPort(ctx, "5432")
	require.NoError(t, err, "Failed to get port")

	connStr := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	// Пробуем подключиться несколько раз с ретраями
	var storage *Storage
	for range 10 {
		storage, err = New(connStr)
		if err == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, err, "Failed to create storage after retries")

	migrationsPath, err := filepath.Abs("../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath), "Failed to apply migrations")
	require.NoError(t, CheckDatabaseReady(storage))

	cleanup := func() {
		if storage != nil && storage.DB != nil {
			_ = storage.DB.Close()
		}
		if postgresContainer != nil {
			_ = postgresContainer.Terminate(ctx)
		}
	}

	return storage, cleanup
}
