// Package stats реализует HTTP-обработчик статистики приглашений.
package stats

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/hanzi-trainer/internal/http/middlewarectx"
	"github.com/magabrotheeeer/hanzi-trainer/internal/http/response"
	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
)

// Handler обрабатывает GET /share/stats.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает статистику приглашений.
type Service interface {
	Stats(ctx context.Context, userID string) (models.ShareStats, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Статистика приглашений
// @Tags Share
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /share/stats [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.share.stats"

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

	stats, err := h.service.Stats(r.Context(), userID)
	if err != nil {
		response.Fail(w, r, log, err, "failed to get share stats")
		return
	}
	response.WriteOK(w, r, stats)
}
