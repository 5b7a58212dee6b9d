package service

import (
	"errors"
	"fmt"

	"taskManager/internal/repository"
)

const (
	CodeNotFound        = "NOT_FOUND"
	CodeValidation      = "VALIDATION_ERROR"
	CodeForbidden       = "FORBIDDEN"
	CodeVersionConflict = "VERSION_CONFLICT"
	CodeTimerRunning    = "TIMER_ALREADY_RUNNING"
	CodeTimerStopped    = "TIMER_ALREADY_STOPPED"
	CodeUserInactive    = "USER_INACTIVE"
)

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}

	return busErr
}

func NewNotFound(resource Resource, id string) *BusinessError {
	return &BusinessError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %s не найден(а)", resource, id),
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func NewForbidden(resource Resource, id string) *BusinessError {
	return &BusinessError{
		Code:    CodeForbidden,
		Message: fmt.Sprintf("нет доступа к %s %s", resource, id),
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

// NewValidationError: ошибка одного поля; Details хранит field -> причина.
func NewValidationError(field, reason string) *BusinessError {
	return NewValidationErrors(map[string]string{field: reason})
}

func NewValidationErrors(fields map[string]string) *BusinessError {
	details := make(map[string]any, len(fields))
	for field, reason := range fields {
		details[field] = reason
	}
	return &BusinessError{
		Code:    CodeValidation,
		Message: "Переданные данные не прошли проверку",
		Details: details,
	}
}

type Resource string

const (
	ResourceTask      Resource = "задача"
	ResourceCategory  Resource = "категория"
	ResourceTag       Resource = "тег"
	ResourceTimeEntry Resource = "запись времени"
	ResourceUser      Resource = "пользователь"
)

// translate превращает ошибки хранилища в бизнес-ошибки там, где это возможно.
func translate(err error, resource Resource, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return NewNotFound(resource, id)
	case errors.Is(err, repository.ErrVersionConflict):
		return &BusinessError{
			Code:    CodeVersionConflict,
			Message: "запись была изменена параллельно, повторите запрос",
			Details: map[string]any{"resource": resource, "id": id},
			Err:     err,
		}
	default:
		return err
	}
}

func AsBusinessError(err error) (*BusinessError, bool) {
	var busErr *BusinessError
	if errors.As(err, &busErr) {
		return busErr, true
	}
	return nil, false
}
