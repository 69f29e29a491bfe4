// Package ordercreate реализует HTTP-обработчик создания заказа на членство.
//
// Заказ создаётся неоплаченным, клиент получает параметры для вызова
// оплаты в мини-программе. Членство выдаётся только по уведомлению шлюза.
package ordercreate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/hanzi-trainer/internal/http/middlewarectx"
	"github.com/magabrotheeeer/hanzi-trainer/internal/http/response"
	"github.com/magabrotheeeer/hanzi-trainer/internal/lib/sl"
	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
)

// Handler обрабатывает POST /member/order/create.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает создание заказа.
type Service interface {
	CreateOrder(ctx context.Context, userID string, memberType int) (*models.CreatedOrder, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать заказ
// @Tags Member
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.DummyOrder true "Уровень членства"
// @Success 200 {object} response.Response "Номер заказа и параметры оплаты"
// @Failure 400 {object} response.ErrorResponse "Неизвестный уровень"
// @Failure 500 {object} response.ErrorResponse "Ошибка платёжного шлюза"
// @Router /member/order/create [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.member.ordercreate"

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

	var req models.DummyOrder
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.WriteValidationError(w, r, err)
		return
	}

	created, err := h.service.CreateOrder(r.Context(), userID, req.MemberType)
	if err != nil {
		response.Fail(w, r, log, err, "failed to create order")
		return
	}

	log.Info("order created", slog.String("order_no", created.OrderNo), slog.Int("member_type", created.MemberType))
	response.WriteOK(w, r, created)
}
