// Package code реализует HTTP-обработчик получения кода приглашения.
package code

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/hanzi-trainer/internal/http/middlewarectx"
	"github.com/magabrotheeeer/hanzi-trainer/internal/http/response"
)

// Handler обрабатывает GET /share/code.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service выдаёт код приглашения пользователя.
type Service interface {
	InviteCode(userID string) string
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Код приглашения
// @Tags Share
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /share/code [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.share.code"

	userID, ok := middlewarectx.UserIDFrom(r.Context())
	if !ok {
		h.log.Error("user id not found in context",
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		response.WriteError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	response.WriteOK(w, r, map[string]string{"invite_code": h.service.InviteCode(userID)})
}
