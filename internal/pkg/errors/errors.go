package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены (например, код сессии не существует).
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок авторизации (неверный токен, нет прав).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия
	// (например, не-хост пытается переключить слайд).
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrOutOfRange используется при попытке перейти за границы колоды слайдов.
	// Обрабатывается локально, не показывается пользователю как ошибка.
	ErrOutOfRange = errors.New("slide index out of range")

	// ErrDuplicateSubmission используется, когда участник уже ответил на этот слайд.
	ErrDuplicateSubmission = errors.New("answer already submitted for this slide")

	// ErrConflict используется для конфликтов состояния (например, коллизия кода сессии).
	ErrConflict = errors.New("resource state conflict")
)
