// Package orderquery реализует HTTP-обработчик запроса статуса заказа.
package orderquery

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/hanzi-trainer/internal/http/middlewarectx"
	"github.com/magabrotheeeer/hanzi-trainer/internal/http/response"
	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
)

// Handler обрабатывает GET /member/order/query/{orderNo}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает запрос статуса заказа.
type Service interface {
	QueryOrder(ctx context.Context, userID, orderNo string) (models.OrderState, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Статус заказа
// @Tags Member
// @Produce  json
// @Security BearerAuth
// @Param orderNo path string true "Номер заказа"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Заказ не найден"
// @Router /member/order/query/{orderNo} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.member.orderquery"

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

	state, err := h.service.QueryOrder(r.Context(), userID, chi.URLParam(r, "orderNo"))
	if err != nil {
		response.Fail(w, r, log, err, "failed to query order")
		return
	}
	response.WriteOK(w, r, state)
}
