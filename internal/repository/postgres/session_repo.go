package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/yourusername/classroom-api/internal/domain/entity"
	"github.com/yourusername/classroom-api/internal/domain/repository"
	apperrors "github.com/yourusername/classroom-api/internal/pkg/errors"
)

// SessionRepo реализует repository.SessionRepository
type SessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo создает новый репозиторий сессий
func NewSessionRepo(db *gorm.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create вставляет новую сессию. Коллизия кода возвращается как ErrCodeTaken.
func (r *SessionRepo) Create(ctx context.Context, session *entity.Session) error {
	err := r.db.WithContext(ctx).Create(session).Error
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: code %s", repository.ErrCodeTaken, session.Code)
		}
		return err
	}
	return nil
}

// GetByID возвращает сессию по id
func (r *SessionRepo) GetByID(ctx context.Context, id string) (*entity.Session, error) {
	var session entity.Session
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// GetByCode ищет сессию по коду подключения без учета регистра
func (r *SessionRepo) GetByCode(ctx context.Context, code string) (*entity.Session, error) {
	var session entity.Session
	err := r.db.WithContext(ctx).Where("code = ?", strings.ToUpper(code)).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// UpdateSlideIndex точечно обновляет current_slide_index без full Save
func (r *SessionRepo) UpdateSlideIndex(ctx context.Context, sessionID string, index int) error {
	result := r.db.WithContext(ctx).Model(&entity.Session{}).
		Where("id = ?", sessionID).
		Update("current_slide_index", index)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: session %s", apperrors.ErrNotFound, sessionID)
	}
	return nil
}

// isUniqueViolation проверяет Postgres unique violation (23505) для pgconn и lib/pq драйверов
func isUniqueViolation(err error) bool {
	// pgx driver (pgconn.PgError)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// lib/pq driver
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}
