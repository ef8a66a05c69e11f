package repository

import "errors"

var (
	// ErrCodeTaken означает, что сгенерированный код сессии уже занят.
	// Уникальность кодов best-effort: вызывающая сторона повторяет с новым кодом.
	ErrCodeTaken = errors.New("session code already taken")
)
