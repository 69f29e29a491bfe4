// Package remove реализует HTTP-обработчик удаления упражнения из истории.
package remove

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/hanzi-trainer/internal/http/middlewarectx"
	"github.com/magabrotheeeer/hanzi-trainer/internal/http/response"
)

// Handler обрабатывает DELETE /exercise/history/{id}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает удаление упражнения.
type Service interface {
	Delete(ctx context.Context, userID, exerciseID string) error
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Удалить упражнение
// @Tags Exercise
// @Produce  json
// @Security BearerAuth
// @Param id path string true "Идентификатор упражнения"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Упражнение не найдено"
// @Router /exercise/history/{id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.exercise.remove"

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

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		response.WriteError(w, r, http.StatusNotFound, "exercise not found")
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		response.Fail(w, r, log, err, "failed to delete exercise")
		return
	}

	log.Info("exercise deleted", slog.String("exercise_id", id))
	response.WriteOK(w, r, nil)
}
