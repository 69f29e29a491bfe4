// Package history реализует HTTP-обработчик истории упражнений.
package history

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/hanzi-trainer/internal/http/middlewarectx"
	"github.com/magabrotheeeer/hanzi-trainer/internal/http/request"
	"github.com/magabrotheeeer/hanzi-trainer/internal/http/response"
	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
)

// Handler обрабатывает GET /exercise/history.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает постраничную выдачу истории.
type Service interface {
	History(ctx context.Context, userID string, p models.Pagination) (models.Page[models.ExerciseView], error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary История упражнений
// @Tags Exercise
// @Produce  json
// @Security BearerAuth
// @Param page query int false "Номер страницы" default(1)
// @Param size query int false "Размер страницы" default(20)
// @Success 200 {object} response.Response
// @Router /exercise/history [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.exercise.history"

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

	page, err := h.service.History(r.Context(), userID, request.Pagination(r))
	if err != nil {
		response.Fail(w, r, log, err, "failed to list exercises")
		return
	}
	response.WriteOK(w, r, page)
}
