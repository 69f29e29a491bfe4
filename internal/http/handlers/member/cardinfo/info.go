// Package cardinfo реализует HTTP-обработчик просмотра карты членства.
package cardinfo

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/hanzi-trainer/internal/http/response"
	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
)

// Handler обрабатывает GET /member/card/info/{cardNo}.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает просмотр карты.
type Service interface {
	CardInfo(ctx context.Context, cardNo string) (models.CardInfo, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Информация о карте
// @Tags Member
// @Produce  json
// @Security BearerAuth
// @Param cardNo path string true "Номер карты"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Карта не найдена"
// @Router /member/card/info/{cardNo} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.member.cardinfo"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	info, err := h.service.CardInfo(r.Context(), chi.URLParam(r, "cardNo"))
	if err != nil {
		response.Fail(w, r, log, err, "failed to get card info")
		return
	}
	response.WriteOK(w, r, info)
}
