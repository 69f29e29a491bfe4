package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/hanzi-trainer/internal/migrations"
	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
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
	t.Helper()
	id, err := f.storage.CreateUser(context.Background(), models.User{
		OpenID:   "openid-" + uuid.NewString(),
		Nickname: "tester",
	})
	require.NoError(t, err)
	return id
}

// CreateMember создает пользователя с действующим членством
func (f *TestDataFactory) CreateMember(t *testing.T, memberType int, expire time.Time) string {
	t.Helper()
	id := f.CreateUser(t)
	require.NoError(t, f.storage.UpdateMembership(context.Background(), id, memberType, expire))
	return id
}

// CreateCard создает неиспользованную карту активации
func (f *TestDataFactory) CreateCard(t *testing.T, cardNo string, memberType, days int) {
	t.Helper()
	_, err := f.storage.DB.Exec(`INSERT INTO cards (card_no, member_type, days) VALUES ($1, $2, $3)`,
		cardNo, memberType, days)
	require.NoError(t, err)
}

// CreateUnit создает урок учебника и возвращает его ID
func (f *TestDataFactory) CreateUnit(t *testing.T, name, chars string) int {
	t.Helper()
	var id int
	err := f.storage.DB.QueryRow(`INSERT INTO textbook_units (name, chars) VALUES ($1, $2) RETURNING id`,
		name, chars).Scan(&id)
	require.NoError(t, err)
	return id
}

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции
func setupTestDatabase(t *testing.T) (*Storage, func()) {
	if testing.Short() {
		t.Skip("skipping postgres integration test")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Пробуем подключиться несколько раз с ретраями
	var storage *Storage
	for range 10 {
		storage, err = New(connStr)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err, "Failed to create storage after retries")

	migrationsPath, err := filepath.Abs("../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath), "Failed to apply migrations")

	cleanup := func() {
		if storage != nil && storage.DB != nil {
			_ = storage.DB.Close()
		}
		_ = pgContainer.Terminate(ctx)
	}

	return storage, cleanup
}
