// Package invite реализует HTTP-обработчик применения кода приглашения.
//
// Код можно применить один раз за всё время. Обе стороны получают дни
// членства первого уровня.
package invite

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

// Handler обрабатывает POST /share/invite.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает применение кода приглашения.
type Service interface {
	RedeemInvite(ctx context.Context, inviteeID, code string) (models.InviteReward, error)
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
// @Summary Применить код приглашения
// @Tags Share
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.DummyInvite true "Код приглашения"
// @Success 200 {object} response.Response "Дни вознаграждения и новый срок членства"
// @Failure 400 {object} response.ErrorResponse "Код уже применён или исчерпан лимит приглашающего"
// @Failure 404 {object} response.ErrorResponse "Неверный код"
// @Router /share/invite [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.share.invite"

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

	var req models.DummyInvite
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.WriteValidationError(w, r, err)
		return
	}

	reward, err := h.service.RedeemInvite(r.Context(), userID, req.InviteCode)
	if err != nil {
		response.Fail(w, r, log, err, "failed to redeem invite")
		return
	}
	response.WriteOK(w, r, reward)
}
