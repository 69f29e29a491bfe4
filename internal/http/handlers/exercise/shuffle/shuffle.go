// Package shuffle реализует HTTP-обработчик перемешивания упражнения.
package shuffle

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

// Handler обрабатывает POST /exercise/shuffle.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает перемешивание упражнения.
type Service interface {
	Shuffle(ctx context.Context, userID, exerciseID string) (models.ExerciseView, error)
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
// @Summary Перемешать упражнение
// @Description Перемешивает строки каждого уровня и заново озвучивает их.
// @Tags Exercise
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.DummyShuffle true "Идентификатор упражнения"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse "Упражнение не найдено"
// @Router /exercise/shuffle [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.exercise.shuffle"

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

	var req models.DummyShuffle
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.WriteValidationError(w, r, err)
		return
	}

	view, err := h.service.Shuffle(r.Context(), userID, req.ExerciseID)
	if err != nil {
		response.Fail(w, r, log, err, "failed to shuffle exercise")
		return
	}
	response.WriteOK(w, r, view)
}
