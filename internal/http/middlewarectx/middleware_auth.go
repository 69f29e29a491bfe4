// Package middlewarectx содержит HTTP middleware сервиса.
//
// JWTMiddleware проверяет JWT токен из заголовка Authorization и кладёт
// идентификатор пользователя в контекст запроса. RateLimitMiddleware
// ограничивает частоту запросов одного пользователя.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/hanzi-trainer/internal/http/response"
	"github.com/magabrotheeeer/hanzi-trainer/internal/lib/jwt"
	"github.com/magabrotheeeer/hanzi-trainer/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// UserID — ключ идентификатора пользователя в контексте.
const UserID Key = "user_id"

// TokenParser разбирает токен сессии.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.CustomClaims, error)
}

// WithUserID возвращает контекст с идентификатором пользователя.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserID, userID)
}

// UserIDFrom возвращает идентификатор пользователя из контекста.
func UserIDFrom(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserID).(string)
	return userID, ok && userID != ""
}

// JWTMiddleware возвращает HTTP middleware, который проверяет JWT в заголовке Authorization.
//
// Если токен валиден, добавляет идентификатор пользователя в контекст запроса,
// иначе отвечает 401 Unauthorized.
func JWTMiddleware(tokens TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Info("missing or invalid authorization header")
				response.WriteError(w, r, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := tokens.ParseToken(tokenStr)
			if err != nil {
				log.Info("invalid or expired token", sl.Err(err))
				response.WriteError(w, r, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID)))
		})
	}
}
