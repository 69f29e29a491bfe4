package hanziserver

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/hanzi-trainer/internal/http/handlers/exercise/generate"
	"github.com/magabrotheeeer/hanzi-trainer/internal/http/handlers/exercise/history"
	"github.com/magabrotheeeer/hanzi-trainer/internal/http/handlers/exercise/remove"
	"github.com/magabrotheeeer/hanzi-trainer/internal/http/handlers/exercise/shuffle"
	"github.com/magabrotheeeer/hanzi-trainer/internal/http/handlers/member/cardexchange"
	"github.com/magabrotheeeer/hanzi-trainer/internal/http/handlers/member/cardinfo"
	"github.com/magabrotheeeer/hanzi-trainer/internal/http/handlers/member/ordercreate"
	"github.com/magabrotheeeer/hanzi-trainer/internal/http/handlers/member/ordernotify"
	"github.com/magabrotheeeer/hanzi-trainer/internal/http/handlers/member/orderquery"
	"github.com/magabrotheeeer/hanzi-trainer/internal/http/handlers/share/code"
	"github.com/magabrotheeeer/hanzi-trainer/internal/http/handlers/share/invite"
	"github.com/magabrotheeeer/hanzi-trainer/internal/http/handlers/share/stats"
	"github.com/magabrotheeeer/hanzi-trainer/internal/http/handlers/user/info"
	"github.com/magabrotheeeer/hanzi-trainer/internal/http/handlers/user/login"
	"github.com/magabrotheeeer/hanzi-trainer/internal/http/handlers/user/pointsrecords"
	"github.com/magabrotheeeer/hanzi-trainer/internal/http/handlers/user/pointstoday"
	"github.com/magabrotheeeer/hanzi-trainer/internal/http/middlewarectx"
	exerciseservice "github.com/magabrotheeeer/hanzi-trainer/internal/services/exercise"
	orderservice "github.com/magabrotheeeer/hanzi-trainer/internal/services/order"
	pointsservice "github.com/magabrotheeeer/hanzi-trainer/internal/services/points"
	referralservice "github.com/magabrotheeeer/hanzi-trainer/internal/services/referral"
	userservice "github.com/magabrotheeeer/hanzi-trainer/internal/services/user"
)

// Services — сервисы, которые обслуживают маршруты API.
type Services struct {
	User     *userservice.Service
	Points   *pointsservice.Service
	Exercise *exerciseservice.Service
	Order    *orderservice.Service
	Referral *referralservice.Service
}

// Deps — всё, что нужно для регистрации маршрутов.
type Deps struct {
	Services
	Tokens        middlewarectx.TokenParser
	Notifications ordernotify.NotificationParser
	Limiter       *middlewarectx.Limiter
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/user/login", login.New(logger, d.User).ServeHTTP)
		r.Post("/member/order/notify", ordernotify.New(logger, d.Notifications, d.Order).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(d.Tokens, logger))

			r.Get("/user/info", info.New(logger, d.User).ServeHTTP)
			r.Get("/user/points/today", pointstoday.New(logger, d.Points).ServeHTTP)
			r.Get("/user/points/records", pointsrecords.New(logger, d.Points).ServeHTTP)

			r.With(middlewarectx.RateLimitMiddleware(d.Limiter, logger)).
				Post("/exercise/generate", generate.New(logger, d.Exercise).ServeHTTP)
			r.Post("/exercise/shuffle", shuffle.New(logger, d.Exercise).ServeHTTP)
			r.Get("/exercise/history", history.New(logger, d.Exercise).ServeHTTP)
			r.Delete("/exercise/history/{id}", remove.New(logger, d.Exercise).ServeHTTP)

			r.Post("/member/order/create", ordercreate.New(logger, d.Order).ServeHTTP)
			r.Get("/member/order/query/{orderNo}", orderquery.New(logger, d.Order).ServeHTTP)
			r.Post("/member/card/exchange", cardexchange.New(logger, d.Order).ServeHTTP)
			r.Get("/member/card/info/{cardNo}", cardinfo.New(logger, d.Order).ServeHTTP)

			r.Get("/share/code", code.New(logger, d.Referral).ServeHTTP)
			r.Post("/share/invite", invite.New(logger, d.Referral).ServeHTTP)
			r.Get("/share/stats", stats.New(logger, d.Referral).ServeHTTP)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
