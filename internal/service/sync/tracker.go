package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yourusername/classroom-api/internal/domain/entity"
	"github.com/yourusername/classroom-api/internal/domain/repository"
	apperrors "github.com/yourusername/classroom-api/internal/pkg/errors"
)

// ResponseTracker отслеживает, на какие слайды участник уже ответил,
// и проводит новые ответы под строгим правилом "один ответ на слайд".
// Один экземпляр на пару (сессия, участник).
type ResponseTracker struct {
	answers   repository.AnswerRepository
	deck      *entity.Deck
	sessionID string
	userID    string

	mu      sync.Mutex
	history map[int]string // slideIndex -> selectedOptionID
}

// NewResponseTracker создает трекер ответов участника
func NewResponseTracker(answers repository.AnswerRepository, deck *entity.Deck, sessionID, userID string) *ResponseTracker {
	return &ResponseTracker{
		answers:   answers,
		deck:      deck,
		sessionID: sessionID,
		userID:    userID,
		history:   make(map[int]string),
	}
}

// LoadHistory выполняет bulk fetch всех прошлых ответов участника в сессии
// и заменяет локальную историю. Используется при первом подключении и после
// перезагрузки клиента: UI восстанавливает "уже отвечено" без повторной отправки.
func (t *ResponseTracker) LoadHistory(ctx context.Context) (map[int]string, error) {
	fetched, err := t.answers.GetByParticipant(ctx, t.sessionID, t.userID)
	if err != nil {
		return nil, fmt.Errorf("fetch answer history for user %s in session %s: %w", t.userID, t.sessionID, err)
	}

	history := make(map[int]string, len(fetched))
	for _, answer := range fetched {
		history[answer.SlideIndex] = answer.SelectedOptionID
	}

	t.mu.Lock()
	t.history = history
	t.mu.Unlock()

	out := make(map[int]string, len(history))
	for k, v := range history {
		out[k] = v
	}
	return out, nil
}

// Answered возвращает выбранный вариант, если на слайд уже есть ответ
func (t *ResponseTracker) Answered(slideIndex int) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	optionID, ok := t.history[slideIndex]
	return optionID, ok
}

// Submit проводит ответ участника на слайд.
//
// Индекс слайда фиксируется в момент вызова и используется на протяжении всей
// операции: переход хоста на другой слайд во время отправки не может привести
// к записи ответа не на тот слайд.
//
// Отклоняется локально, без сетевого вызова: если на слайд уже есть ответ
// (ErrDuplicateSubmission), если слайд не вопрос или без ключа правильного
// ответа, либо вариант не существует (ErrValidation).
//
// Персист и обновление локальной истории — логически одна единица: при ошибке
// персиста история не обновляется, и участник может повторить отправку.
func (t *ResponseTracker) Submit(ctx context.Context, slideIndex int, optionID string) (*entity.Answer, error) {
	t.mu.Lock()
	if _, ok := t.history[slideIndex]; ok {
		t.mu.Unlock()
		return nil, fmt.Errorf("%w: slide %d", apperrors.ErrDuplicateSubmission, slideIndex)
	}
	t.mu.Unlock()

	slide, ok := t.deck.Slide(slideIndex)
	if !ok {
		return nil, fmt.Errorf("%w: slide %d does not exist", apperrors.ErrValidation, slideIndex)
	}
	if !slide.HasAnswerKey() {
		return nil, fmt.Errorf("%w: slide %d is not an answerable question", apperrors.ErrValidation, slideIndex)
	}
	if !slide.HasOption(optionID) {
		return nil, fmt.Errorf("%w: option %q is not on slide %d", apperrors.ErrValidation, optionID, slideIndex)
	}

	answer := &entity.Answer{
		SessionID:        t.sessionID,
		UserID:           t.userID,
		SlideIndex:       slideIndex,
		SelectedOptionID: optionID,
		IsCorrect:        slide.IsCorrect(optionID),
	}

	if err := t.answers.Create(ctx, answer); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateSubmission) {
			// Гонка двух отправок одного участника: строка уже существует,
			// фиксируем факт ответа локально, чтобы не ходить в сеть повторно
			t.mu.Lock()
			t.history[slideIndex] = optionID
			t.mu.Unlock()
			return nil, err
		}
		return nil, fmt.Errorf("persist answer for slide %d: %w", slideIndex, err)
	}

	t.mu.Lock()
	t.history[slideIndex] = optionID
	t.mu.Unlock()

	return answer, nil
}
