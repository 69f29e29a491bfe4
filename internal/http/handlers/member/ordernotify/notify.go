// Package ordernotify реализует приём уведомлений платёжного шлюза об оплате.
//
// Подпись уведомления проверяется до разбора тела. Ответ имеет формат,
// который ожидает шлюз: {"code":"SUCCESS"} или {"code":"FAIL","message":...}.
// На ответ с кодом 5xx шлюз повторяет доставку, поэтому сбои хранилища
// отдаются как 500, а повторное уведомление по оплаченному заказу как 400.
package ordernotify

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/hanzi-trainer/internal/http/response"
	"github.com/magabrotheeeer/hanzi-trainer/internal/lib/sl"
	"github.com/magabrotheeeer/hanzi-trainer/internal/paymentprovider"
)

const maxBodyBytes = 1 << 16

// Reply — ответ шлюзу.
type Reply struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// NotificationParser проверяет подпись уведомления и расшифровывает его.
type NotificationParser interface {
	ParseNotification(header http.Header, body []byte) (*paymentprovider.Transaction, error)
}

// Service описывает проведение оплаты.
type Service interface {
	SettlePayment(ctx context.Context, orderNo, transactionID string) error
}

// Handler обрабатывает POST /member/order/notify.
type Handler struct {
	log     *slog.Logger
	parser  NotificationParser
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, parser NotificationParser, service Service) *Handler {
	return &Handler{log: log, parser: parser, service: service}
}

func reply(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	if status == http.StatusOK {
		render.JSON(w, r, Reply{Code: "SUCCESS"})
		return
	}
	render.JSON(w, r, Reply{Code: "FAIL", Message: msg})
}

// ServeHTTP godoc
// @Summary Уведомление об оплате
// @Description Вызывается платёжным шлюзом. Повторное уведомление по оплаченному заказу не выдаёт членство повторно.
// @Tags Member
// @Accept  json
// @Produce  json
// @Success 200 {object} Reply
// @Failure 400 {object} Reply "Заказ не найден или уже оплачен"
// @Failure 401 {object} Reply "Неверная подпись"
// @Failure 500 {object} Reply "Внутренняя ошибка, шлюз повторит доставку"
// @Router /member/order/notify [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.member.ordernotify"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to read notification body", sl.Err(err))
		reply(w, r, http.StatusBadRequest, "invalid body")
		return
	}
	defer r.Body.Close()

	tx, err := h.parser.ParseNotification(r.Header, body)
	if err != nil {
		log.Warn("rejected payment notification", sl.Err(err))
		reply(w, r, http.StatusUnauthorized, "invalid signature")
		return
	}
	log = log.With(slog.String("order_no", tx.OutTradeNo), slog.String("transaction_id", tx.TransactionID))

	if tx.TradeState != paymentprovider.TradeStateSuccess {
		log.Info("ignored payment notification", slog.String("trade_state", tx.TradeState))
		reply(w, r, http.StatusOK, "")
		return
	}

	if err := h.service.SettlePayment(r.Context(), tx.OutTradeNo, tx.TransactionID); err != nil {
		status := response.StatusOf(err)
		if status >= http.StatusInternalServerError {
			log.Error("failed to settle payment", sl.Err(err))
			reply(w, r, status, "internal error")
			return
		}
		log.Info("payment notification rejected", sl.Err(err))
		reply(w, r, http.StatusBadRequest, "invalid order")
		return
	}

	log.Info("payment settled")
	reply(w, r, http.StatusOK, "")
}
