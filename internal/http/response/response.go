// Package response формирует единый JSON-ответ обработчиков
// {code, message, data} и переводит ошибки сервисов в HTTP-статусы.
package response

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/hanzi-trainer/internal/apperr"
	"github.com/magabrotheeeer/hanzi-trainer/internal/lib/sl"
)

// Response описывает стандартную структуру JSON-ответа.
// Code равен 0 при успехе, иначе совпадает с HTTP-статусом.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse — структура ошибки для Swagger-документации.
type ErrorResponse struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"invalid request body"`
}

// OK возвращает успешный ответ с данными.
func OK(data any) Response {
	return Response{Code: 0, Data: data}
}

// Error возвращает ответ с ошибкой.
func Error(code int, msg string) Response {
	return Response{Code: code, Message: msg}
}

// WriteOK отправляет успешный ответ.
func WriteOK(w http.ResponseWriter, r *http.Request, data any) {
	render.JSON(w, r, OK(data))
}

// WriteError отправляет ответ с ошибкой и статусом code.
func WriteError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	render.Status(r, code)
	render.JSON(w, r, Error(code, msg))
}

// StatusOf возвращает HTTP-статус для ошибки сервиса.
func StatusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindConflict:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Fail логирует ошибку сервиса и отправляет ответ с соответствующим статусом.
// Клиент видит сообщение бизнес-ошибки или fallback для внутренних сбоев.
func Fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, fallback string) {
	code := StatusOf(err)
	if code >= http.StatusInternalServerError {
		log.Error(fallback, sl.Err(err))
	} else {
		log.Info("request rejected", sl.Err(err))
	}
	WriteError(w, r, code, apperr.Message(err, fallback))
}

// ValidationError формирует ответ 400 на основе ошибок валидации.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "uuid":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only uuid", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of [%s]", err.Field(), err.Param()))
		case "min", "gte":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s", err.Field(), err.Param()))
		case "max", "lte":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Error(http.StatusBadRequest, strings.Join(errsMsgs, ", "))
}

// WriteValidationError отправляет ответ 400 для ошибки validator.Struct.
func WriteValidationError(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, http.StatusBadRequest)
	if errs, ok := err.(validator.ValidationErrors); ok {
		render.JSON(w, r, ValidationError(errs))
		return
	}
	render.JSON(w, r, Error(http.StatusBadRequest, "invalid request"))
}
