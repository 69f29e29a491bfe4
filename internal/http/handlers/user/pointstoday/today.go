// Package pointstoday реализует HTTP-обработчик сводки баллов за текущие сутки.
package pointstoday

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/hanzi-trainer/internal/http/middlewarectx"
	"github.com/magabrotheeeer/hanzi-trainer/internal/http/response"
	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
)

// Handler обрабатывает GET /user/points/today.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает сводку баллов.
type Service interface {
	Today(ctx context.Context, userID string) (models.TodayPoints, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Баллы за сегодня
// @Description Возвращает заработанные за сутки баллы и остаток до дневного лимита.
// @Tags User
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Router /user/points/today [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.pointstoday"

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

	res, err := h.service.Today(r.Context(), userID)
	if err != nil {
		response.Fail(w, r, log, err, "failed to get today points")
		return
	}
	response.WriteOK(w, r, res)
}
