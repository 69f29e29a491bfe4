// Package hanziserver собирает HTTP-приложение: хранилище, кеш, брокер,
// клиенты внешних сервисов, сервисы журнала и маршруты.
package hanziserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/hanzi-trainer/internal/cache"
	"github.com/magabrotheeeer/hanzi-trainer/internal/config"
	"github.com/magabrotheeeer/hanzi-trainer/internal/http/middlewarectx"
	"github.com/magabrotheeeer/hanzi-trainer/internal/kouzi"
	"github.com/magabrotheeeer/hanzi-trainer/internal/lib/jwt"
	"github.com/magabrotheeeer/hanzi-trainer/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/hanzi-trainer/internal/lib/sl"
	"github.com/magabrotheeeer/hanzi-trainer/internal/metrics"
	"github.com/magabrotheeeer/hanzi-trainer/internal/migrations"
	"github.com/magabrotheeeer/hanzi-trainer/internal/oss"
	"github.com/magabrotheeeer/hanzi-trainer/internal/paymentprovider"
	exerciseservice "github.com/magabrotheeeer/hanzi-trainer/internal/services/exercise"
	membershipservice "github.com/magabrotheeeer/hanzi-trainer/internal/services/membership"
	orderservice "github.com/magabrotheeeer/hanzi-trainer/internal/services/order"
	pointsservice "github.com/magabrotheeeer/hanzi-trainer/internal/services/points"
	referralservice "github.com/magabrotheeeer/hanzi-trainer/internal/services/referral"
	userservice "github.com/magabrotheeeer/hanzi-trainer/internal/services/user"
	"github.com/magabrotheeeer/hanzi-trainer/internal/storage"
	"github.com/magabrotheeeer/hanzi-trainer/internal/wechat"
)

const shutdownTimeout = 15 * time.Second

// App — HTTP-приложение сервиса.
type App struct {
	server    *http.Server
	logger    *slog.Logger
	db        *storage.Storage
	cache     *cache.Cache
	amqpConn  *amqp.Connection
	publisher *rabbitmq.Publisher
}

// New подключает зависимости и собирает приложение.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "hanziserver.New"

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	app := &App{logger: logger, db: db}
	// До успешной сборки всё открытое закрывается на любом выходе с ошибкой.
	built := false
	defer func() {
		if !built {
			app.close()
		}
	}()

	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = storage.CheckDatabaseReady(db); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	app.cache = cacheRedis

	// Без брокера события выдачи членства не публикуются.
	var publisher membershipservice.Publisher
	if cfg.RabbitMQ.URL != "" {
		conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.amqpConn = conn
		ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetLedgerQueues())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.publisher = rabbitmq.NewPublisher(ch)
		publisher = app.publisher
	} else {
		logger.Warn("rabbitmq url is empty, ledger events are disabled")
	}

	ossClient, err := oss.New(ctx, cfg.OSS)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	payClient, err := paymentprovider.NewClient(ctx, cfg.WeChatPay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	wechatClient := wechat.NewClient(cfg.WeChat)
	kouziClient := kouzi.NewClient(cfg.Kouzi)
	tokens := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	m := metrics.New(prometheus.DefaultRegisterer)

	membershipService := membershipservice.New(db, cacheRedis, publisher, m, logger)
	pointsService := pointsservice.New(db, cacheRedis, m, loc, logger)
	referralService := referralservice.New(db, membershipService, m, loc, logger)
	orderService := orderservice.New(db, membershipService, payClient, catalog, m, logger)
	userService := userservice.New(db, wechatClient, referralService, tokens, cacheRedis, m, logger)
	exerciseService := exerciseservice.New(db, pointsService, kouziClient, ossClient, m, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Services: Services{
			User:     userService,
			Points:   pointsService,
			Exercise: exerciseService,
			Order:    orderService,
			Referral: referralService,
		},
		Tokens:        tokens,
		Notifications: payClient,
		Limiter:       middlewarectx.NewLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	built = true
	return app, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("failed to close amqp channel", sl.Err(err))
		}
	}
	if a.amqpConn != nil {
		if err := a.amqpConn.Close(); err != nil {
			a.logger.Warn("failed to close amqp connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("failed to close redis", sl.Err(err))
		}
	}
	if a.db != nil {
		if err := a.db.DB.Close(); err != nil {
			a.logger.Warn("failed to close database", sl.Err(err))
		}
	}
}
