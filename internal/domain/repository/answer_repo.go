package repository

import (
	"context"

	"github.com/yourusername/classroom-api/internal/domain/entity"
)

// AnswerWithParticipant представляет ответ вместе с именем участника.
// Явный join answers.user_id -> users.id (кардинальность many-to-one),
// вместо неявных join-ов на каждом месте вызова.
type AnswerWithParticipant struct {
	entity.Answer
	DisplayName string `json:"display_name"`
}

// AnswerRepository определяет методы для работы с ответами участников.
// Ответы append-only: только Create и выборки.
type AnswerRepository interface {
	// Create сохраняет ответ. Повторный ответ того же участника на тот же слайд
	// нарушает уникальный индекс и возвращается как ErrDuplicateSubmission.
	Create(ctx context.Context, answer *entity.Answer) error

	// GetBySessionAndSlide возвращает все ответы сессии на конкретный слайд
	// с именами участников, в порядке создания.
	GetBySessionAndSlide(ctx context.Context, sessionID string, slideIndex int) ([]AnswerWithParticipant, error)

	// GetByParticipant возвращает все ответы участника в сессии (история для восстановления UI).
	GetByParticipant(ctx context.Context, sessionID, userID string) ([]entity.Answer, error)

	// GetBySession возвращает все ответы сессии (для экспорта результатов).
	GetBySession(ctx context.Context, sessionID string) ([]AnswerWithParticipant, error)
}
