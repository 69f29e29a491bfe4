// Package generate реализует HTTP-обработчик генерации упражнения.
//
// Handler проверяет тело запроса и передаёт его сервису упражнений, который
// проверяет дневной лимит баллов, обращается к сервису контента и сохраняет
// результат.
package generate

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
	"github.com/magabrotheeeer/hanzi-trainer/internal/services/exercise"
)

// Handler обрабатывает POST /exercise/generate.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает генерацию упражнения.
type Service interface {
	Generate(ctx context.Context, userID string, req exercise.GenerateRequest) (models.ExerciseView, error)
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
// @Summary Генерация упражнения
// @Description Первая генерация за сутки доступна всем, последующие только участникам программы членства.
// @Tags Exercise
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.DummyGenerate true "Параметры генерации"
// @Success 200 {object} response.Response "Упражнение"
// @Failure 400 {object} response.ErrorResponse "Некорректный запрос или лимит баллов"
// @Failure 403 {object} response.ErrorResponse "Требуется членство"
// @Failure 429 {object} response.ErrorResponse "Слишком много запросов"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /exercise/generate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.exercise.generate"

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

	var req models.DummyGenerate
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

	view, err := h.service.Generate(r.Context(), userID, exercise.GenerateRequest{
		Type:       req.Type,
		Chars:      req.Chars,
		UnitID:     req.UnitID,
		Difficulty: req.Difficulty,
		Style:      req.Style,
	})
	if err != nil {
		response.Fail(w, r, log, err, "failed to generate exercise")
		return
	}

	log.Info("exercise generated", slog.String("exercise_id", view.ID))
	response.WriteOK(w, r, view)
}
