// Package login реализует HTTP-обработчик входа через WeChat.
//
// Код авторизации мини-программы обменивается на данные пользователя,
// новый пользователь создаётся автоматически. В ответе возвращается JWT
// и краткий профиль.
package login

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/hanzi-trainer/internal/http/response"
	"github.com/magabrotheeeer/hanzi-trainer/internal/lib/sl"
	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
)

// Handler обрабатывает HTTP-запросы на вход.
type Handler struct {
	log      *slog.Logger        // Логгер для записи операций и ошибок
	service  Service             // Сервис входа
	validate *validator.Validate // Валидатор для проверки входных данных
}

// Service описывает интерфейс бизнес-логики входа.
type Service interface {
	Login(ctx context.Context, code, phone, inviteCode string) (*models.LoginResult, error)
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
// @Summary Вход через WeChat
// @Description Обменивает код авторизации на сессию. Новый пользователь создаётся автоматически.
// @Tags User
// @Accept  json
// @Produce  json
// @Param request body models.DummyLogin true "Код авторизации"
// @Success 200 {object} response.Response "Токен и профиль"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /user/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyLogin
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Info("invalid request", sl.Err(err))
		response.WriteValidationError(w, r, err)
		return
	}

	res, err := h.service.Login(r.Context(), req.Code, req.Phone, req.InviteCode)
	if err != nil {
		response.Fail(w, r, log, err, "login failed")
		return
	}

	log.Info("user logged in", slog.Bool("is_new_user", res.IsNewUser))
	response.WriteOK(w, r, res)
}
