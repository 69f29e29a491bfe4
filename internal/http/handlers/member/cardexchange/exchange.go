// Package cardexchange реализует HTTP-обработчик активации карты членства.
package cardexchange

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

// Handler обрабатывает POST /member/card/exchange.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает активацию карты.
type Service interface {
	ExchangeCard(ctx context.Context, userID, cardNo string) (models.Exchanged, error)
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
// @Summary Активировать карту
// @Tags Member
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.DummyCardExchange true "Номер карты"
// @Success 200 {object} response.Response "Уровень, дни и новый срок членства"
// @Failure 400 {object} response.ErrorResponse "Карта уже использована"
// @Failure 404 {object} response.ErrorResponse "Карта не найдена"
// @Router /member/card/exchange [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.member.cardexchange"

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

	var req models.DummyCardExchange
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.WriteValidationError(w, r, err)
		return
	}

	res, err := h.service.ExchangeCard(r.Context(), userID, req.CardNo)
	if err != nil {
		response.Fail(w, r, log, err, "failed to exchange card")
		return
	}

	log.Info("card exchanged", slog.String("card_no", req.CardNo), slog.Int("days", res.Days))
	response.WriteOK(w, r, res)
}
