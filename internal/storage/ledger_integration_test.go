package storage_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/hanzi-trainer/internal/apperr"
	"github.com/magabrotheeeer/hanzi-trainer/internal/cache"
	"github.com/magabrotheeeer/hanzi-trainer/internal/config"
	"github.com/magabrotheeeer/hanzi-trainer/internal/metrics"
	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
	"github.com/magabrotheeeer/hanzi-trainer/internal/paymentprovider"
	membershipservice "github.com/magabrotheeeer/hanzi-trainer/internal/services/membership"
	orderservice "github.com/magabrotheeeer/hanzi-trainer/internal/services/order"
	"github.com/magabrotheeeer/hanzi-trainer/internal/storage"
)

type stubGateway struct{}

func (stubGateway) CreateJSAPIPayment(_ context.Context, req paymentprovider.PrepayRequest) (*paymentprovider.PayParams, error) {
	return &paymentprovider.PayParams{Package: "prepay_id=" + req.OrderNo}, nil
}

type recordingCache struct {
	mu          sync.Mutex
	invalidated []string
}

func (c *recordingCache) InvalidateProfile(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, userID)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRedisCache(t *testing.T) *cache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := cache.InitServer(context.Background(), config.RedisConnection{AddressRedis: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newLedger(t *testing.T, db *storage.Storage) (*orderservice.Service, *membershipservice.Service) {
	t.Helper()
	membership := membershipservice.New(db, newRedisCache(t), nil, metrics.Nop(), discardLogger())
	orders := orderservice.New(db, membership, stubGateway{}, models.DefaultCatalog(), metrics.Nop(), discardLogger())
	return orders, membership
}

func countPeriods(t *testing.T, db *storage.Storage, userID string) int {
	t.Helper()
	var n int
	require.NoError(t, db.DB.QueryRow(`SELECT count(*) FROM membership_periods WHERE user_id = $1`, userID).Scan(&n))
	return n
}

func countOrders(t *testing.T, db *storage.Storage, userID string, status int) int {
	t.Helper()
	var n int
	require.NoError(t, db.DB.QueryRow(`SELECT count(*) FROM orders WHERE user_id = $1 AND status = $2`,
		userID, status).Scan(&n))
	return n
}

func TestLedger_ConcurrentCardExchange(t *testing.T) {
	db, cleanup := storage.SetupTestDatabase(t)
	defer cleanup()
	factory := storage.NewTestDataFactory(db)
	orders, _ := newLedger(t, db)
	ctx := context.Background()

	first := factory.CreateUser(t)
	second := factory.CreateUser(t)
	factory.CreateCard(t, "CARD-RACE", 2, 30)

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, 2)
	)
	for i, userID := range []string{first, second} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = orders.ExchangeCard(ctx, userID, "CARD-RACE")
		}()
	}
	close(start)
	wg.Wait()

	var succeeded, rejected int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrCardAlreadyUsed)
		rejected++
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	assert.Equal(t, 1, countPeriods(t, db, first)+countPeriods(t, db, second))
	assert.Equal(t, 1, countOrders(t, db, first, models.OrderStatusPaid)+countOrders(t, db, second, models.OrderStatusPaid))

	card, err := db.GetCardByNo(ctx, "CARD-RACE")
	require.NoError(t, err)
	assert.Equal(t, models.CardStatusUsed, card.Status)
	require.NotNil(t, card.UsedUserID)
	winner := *card.UsedUserID
	assert.Equal(t, 1, countPeriods(t, db, winner))

	user, err := db.GetUser(ctx, winner)
	require.NoError(t, err)
	assert.Equal(t, 2, user.MemberType)
}

func TestLedger_SettlePaymentTwice(t *testing.T) {
	db, cleanup := storage.SetupTestDatabase(t)
	defer cleanup()
	factory := storage.NewTestDataFactory(db)
	orders, _ := newLedger(t, db)
	ctx := context.Background()

	userID := factory.CreateUser(t)
	created, err := orders.CreateOrder(ctx, userID, 2)
	require.NoError(t, err)

	require.NoError(t, orders.SettlePayment(ctx, created.OrderNo, "4200000001"))
	afterFirst, err := db.GetUser(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, afterFirst.ExpireTime)

	err = orders.SettlePayment(ctx, created.OrderNo, "4200000001")
	assert.ErrorIs(t, err, apperr.ErrAlreadySettled)

	assert.Equal(t, 1, countPeriods(t, db, userID))
	afterSecond, err := db.GetUser(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, afterSecond.ExpireTime)
	assert.True(t, afterFirst.ExpireTime.Equal(*afterSecond.ExpireTime), "second notification must not extend membership")

	o, err := db.GetOrderByNo(ctx, created.OrderNo)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, o.Status)
}

func TestLedger_Tier2PurchaseExtendsFromMaxOfNowAndExpiry(t *testing.T) {
	db, cleanup := storage.SetupTestDatabase(t)
	defer cleanup()
	factory := storage.NewTestDataFactory(db)
	orders, _ := newLedger(t, db)
	ctx := context.Background()

	t.Run("no membership counts from now", func(t *testing.T) {
		userID := factory.CreateUser(t)
		created, err := orders.CreateOrder(ctx, userID, 2)
		require.NoError(t, err)

		before := time.Now()
		require.NoError(t, orders.SettlePayment(ctx, created.OrderNo, "tx-"+uuid.NewString()))
		after := time.Now()

		user, err := db.GetUser(ctx, userID)
		require.NoError(t, err)
		require.NotNil(t, user.ExpireTime)
		assert.Equal(t, 2, user.MemberType)
		assert.False(t, user.ExpireTime.Before(before.AddDate(0, 0, 30).Truncate(time.Microsecond)))
		assert.False(t, user.ExpireTime.After(after.AddDate(0, 0, 30)))
	})

	t.Run("expired membership counts from now", func(t *testing.T) {
		userID := factory.CreateMember(t, 1, time.Now().AddDate(0, 0, -3))
		created, err := orders.CreateOrder(ctx, userID, 2)
		require.NoError(t, err)

		before := time.Now()
		require.NoError(t, orders.SettlePayment(ctx, created.OrderNo, "tx-"+uuid.NewString()))
		after := time.Now()

		user, err := db.GetUser(ctx, userID)
		require.NoError(t, err)
		assert.False(t, user.ExpireTime.Before(before.AddDate(0, 0, 30).Truncate(time.Microsecond)))
		assert.False(t, user.ExpireTime.After(after.AddDate(0, 0, 30)))
	})

	t.Run("active membership is extended from its expiry", func(t *testing.T) {
		prior := time.Now().AddDate(0, 0, 10).Truncate(time.Second)
		userID := factory.CreateMember(t, 1, prior)
		created, err := orders.CreateOrder(ctx, userID, 2)
		require.NoError(t, err)

		require.NoError(t, orders.SettlePayment(ctx, created.OrderNo, "tx-"+uuid.NewString()))

		user, err := db.GetUser(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, 2, user.MemberType)
		assert.True(t, prior.AddDate(0, 0, 30).Equal(*user.ExpireTime), "got %s", user.ExpireTime)
		assert.Equal(t, 1, countPeriods(t, db, userID))
	})
}

// brokenPeriods пишет историю от имени несуществующего пользователя:
// Postgres отклоняет вставку по внешнему ключу внутри той же транзакции.
type brokenPeriods struct {
	*storage.Storage
}

func (b brokenPeriods) InsertMembershipPeriod(ctx context.Context, _ string, memberType int, expire time.Time) error {
	return b.Storage.InsertMembershipPeriod(ctx, uuid.NewString(), memberType, expire)
}

func TestLedger_GrantRollsBackWhenPeriodInsertFails(t *testing.T) {
	db, cleanup := storage.SetupTestDatabase(t)
	defer cleanup()
	factory := storage.NewTestDataFactory(db)
	ctx := context.Background()

	prior := time.Now().AddDate(0, 0, 5).Truncate(time.Second)
	userID := factory.CreateMember(t, 1, prior)

	profiles := &recordingCache{}
	membership := membershipservice.New(brokenPeriods{db}, profiles, nil, metrics.Nop(), discardLogger())

	_, err := membership.Grant(ctx, userID, 3, 365)
	require.Error(t, err)

	user, err := db.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, user.MemberType, "tier must not change")
	require.NotNil(t, user.ExpireTime)
	assert.True(t, prior.Equal(*user.ExpireTime), "expiry must not change, got %s", user.ExpireTime)
	assert.Zero(t, countPeriods(t, db, userID))
	assert.Empty(t, profiles.invalidated, "after-commit hooks must not run on rollback")
}

func TestLedger_CardExchangeRollsBackWhenGrantFails(t *testing.T) {
	db, cleanup := storage.SetupTestDatabase(t)
	defer cleanup()
	factory := storage.NewTestDataFactory(db)
	ctx := context.Background()

	userID := factory.CreateUser(t)
	factory.CreateCard(t, "CARD-ROLLBACK", 2, 30)

	membership := membershipservice.New(brokenPeriods{db}, &recordingCache{}, nil, metrics.Nop(), discardLogger())
	orders := orderservice.New(db, membership, stubGateway{}, models.DefaultCatalog(), metrics.Nop(), discardLogger())

	_, err := orders.ExchangeCard(ctx, userID, "CARD-ROLLBACK")
	require.Error(t, err)

	card, err := db.GetCardByNo(ctx, "CARD-ROLLBACK")
	require.NoError(t, err)
	assert.Equal(t, models.CardStatusUnused, card.Status, "card stays usable after a failed exchange")
	assert.Zero(t, countOrders(t, db, userID, models.OrderStatusPaid))

	user, err := db.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, user.MemberType)
	assert.Nil(t, user.ExpireTime)
}
