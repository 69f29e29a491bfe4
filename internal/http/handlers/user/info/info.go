// Package info реализует HTTP-обработчик получения профиля пользователя.
package info

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/hanzi-trainer/internal/http/middlewarectx"
	"github.com/magabrotheeeer/hanzi-trainer/internal/http/response"
	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
)

// Handler обрабатывает GET /user/info.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает получение профиля.
type Service interface {
	Profile(ctx context.Context, userID string) (*models.Profile, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Профиль пользователя
// @Tags User
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response "Профиль"
// @Failure 401 {object} response.ErrorResponse "Не авторизован"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /user/info [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.info"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		log.Error("user id not found in context")
		response.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	profile, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		response.Fail(w, r, log, err, "failed to get user info")
		return
	}
	response.WriteOK(w, r, profile)
}
