package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/classroom-api/internal/domain/entity"
	"github.com/yourusername/classroom-api/internal/domain/repository"
	apperrors "github.com/yourusername/classroom-api/internal/pkg/errors"
)

// AnswerRepo реализует repository.AnswerRepository
type AnswerRepo struct {
	db *gorm.DB
}

// NewAnswerRepo создает новый репозиторий ответов
func NewAnswerRepo(db *gorm.DB) *AnswerRepo {
	return &AnswerRepo{db: db}
}

// Create сохраняет ответ участника. Инвариант "не больше одного ответа на
// (сессия, участник, слайд)" обеспечивается уникальным индексом в БД:
// его нарушение возвращается как ErrDuplicateSubmission.
func (r *AnswerRepo) Create(ctx context.Context, answer *entity.Answer) error {
	err := r.db.WithContext(ctx).Create(answer).Error
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: session %s, user %s, slide %d",
				apperrors.ErrDuplicateSubmission, answer.SessionID, answer.UserID, answer.SlideIndex)
		}
		return err
	}
	return nil
}

// GetBySessionAndSlide возвращает все ответы сессии на слайд с именами
// участников. Явный join answers.user_id -> users.id, many-to-one.
func (r *AnswerRepo) GetBySessionAndSlide(ctx context.Context, sessionID string, slideIndex int) ([]repository.AnswerWithParticipant, error) {
	var answers []repository.AnswerWithParticipant
	err := r.db.WithContext(ctx).Model(&entity.Answer{}).
		Select("answers.*, users.display_name").
		Joins("JOIN users ON users.id = answers.user_id").
		Where("answers.session_id = ? AND answers.slide_index = ?", sessionID, slideIndex).
		Order("answers.created_at").
		Scan(&answers).Error
	return answers, err
}

// GetByParticipant возвращает все ответы участника в сессии в порядке создания
func (r *AnswerRepo) GetByParticipant(ctx context.Context, sessionID, userID string) ([]entity.Answer, error) {
	var answers []entity.Answer
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Order("created_at").
		Find(&answers).Error
	return answers, err
}

// GetBySession возвращает все ответы сессии с именами участников (для экспорта)
func (r *AnswerRepo) GetBySession(ctx context.Context, sessionID string) ([]repository.AnswerWithParticipant, error) {
	var answers []repository.AnswerWithParticipant
	err := r.db.WithContext(ctx).Model(&entity.Answer{}).
		Select("answers.*, users.display_name").
		Joins("JOIN users ON users.id = answers.user_id").
		Where("answers.session_id = ?", sessionID).
		Order("answers.user_id, answers.slide_index").
		Scan(&answers).Error
	return answers, err
}
