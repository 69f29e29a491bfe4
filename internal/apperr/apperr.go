// Package apperr описывает таксономию ошибок сервиса. Бизнес-ошибки
// объявлены как значения *Error с видом (Kind), HTTP-слой по виду выбирает
// статус ответа. Сбои внешних сервисов оборачиваются в *UpstreamError.
package apperr

import (
	"errors"
	"fmt"
)

// Kind — категория ошибки.
type Kind int

const (
	// KindInternal — сбой хранилища или транзакции.
	KindInternal Kind = iota
	// KindValidation — некорректный запрос.
	KindValidation
	// KindNotFound — запись не найдена.
	KindNotFound
	// KindConflict — запрещённое текущим состоянием действие.
	KindConflict
	// KindForbidden — действие доступно только участникам программы членства.
	KindForbidden
	// KindUnauthorized — нет или недействительна сессия.
	KindUnauthorized
	// KindUpstream — сбой внешнего сервиса.
	KindUpstream
)

// Error — бизнес-ошибка с видом и сообщением для клиента.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// New создаёт бизнес-ошибку.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

var (
	ErrInvalidTier           = New(KindValidation, "invalid member type")
	ErrInvalidGenerationType = New(KindValidation, "invalid generation type")
	ErrEmptyChars            = New(KindValidation, "chars must not be empty")

	ErrUserNotFound     = New(KindNotFound, "user not found")
	ErrOrderNotFound    = New(KindNotFound, "order not found")
	ErrCardNotFound     = New(KindNotFound, "card not found")
	ErrExerciseNotFound = New(KindNotFound, "exercise not found")
	ErrUnitNotFound     = New(KindNotFound, "unit not found")
	ErrInvalidCode      = New(KindNotFound, "invalid invite code")

	ErrAlreadySettled      = New(KindConflict, "order already settled")
	ErrCardAlreadyUsed     = New(KindConflict, "card has been used")
	ErrAlreadyInvited      = New(KindConflict, "you have already used an invite code")
	ErrSharerQuotaExceeded = New(KindConflict, "sharer has reached monthly reward limit")
	ErrQuotaExceeded       = New(KindConflict, "daily points limit reached")

	ErrMembershipRequired = New(KindForbidden, "membership required for multiple generations per day")

	ErrUnauthorized = New(KindUnauthorized, "unauthorized")
)

// UpstreamError — сбой обращения к внешнему сервису.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Upstream оборачивает ошибку внешнего сервиса.
func Upstream(service string, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Service: service, Err: err}
}

// KindOf возвращает вид ошибки. Всё, что не распознано, считается внутренним сбоем.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return KindUpstream
	}
	return KindInternal
}

// Message возвращает сообщение, которое можно показать клиенту.
func Message(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return fallback
}
