package repository

import (
	"context"

	"github.com/yourusername/classroom-api/internal/domain/entity"
)

// SessionRepository определяет методы для работы с сессиями презентаций.
// Строка сессии имеет единственного писателя (хоста) и много читателей.
type SessionRepository interface {
	// Create вставляет новую сессию. При коллизии кода возвращает ErrCodeTaken,
	// чтобы вызывающая сторона могла сгенерировать новый код и повторить.
	Create(ctx context.Context, session *entity.Session) error

	GetByID(ctx context.Context, id string) (*entity.Session, error)

	// GetByCode ищет сессию по коду подключения без учета регистра.
	GetByCode(ctx context.Context, code string) (*entity.Session, error)

	// UpdateSlideIndex точечно обновляет current_slide_index, не трогая остальные поля.
	UpdateSlideIndex(ctx context.Context, sessionID string, index int) error
}
