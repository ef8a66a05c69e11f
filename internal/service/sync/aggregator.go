package sync

import (
	"context"
	"fmt"
	"sync"

	"github.com/yourusername/classroom-api/internal/domain/entity"
	"github.com/yourusername/classroom-api/internal/domain/repository"
)

// AnswerAggregator хранит для хоста точный набор ответов текущего слайда.
// Базовое состояние устанавливается bulk fetch-ом (Initialize), дальше
// набор пополняется инкрементальными событиями фида (OnIncomingAnswer).
// Ответы чужих слайдов, в том числе опоздавшие после перехода, отбрасываются.
type AnswerAggregator struct {
	answers   repository.AnswerRepository
	sessionID string

	mu          sync.RWMutex
	activeIndex int
	set         []repository.AnswerWithParticipant
}

// NewAnswerAggregator создает агрегатор ответов для сессии
func NewAnswerAggregator(answers repository.AnswerRepository, sessionID string) *AnswerAggregator {
	return &AnswerAggregator{
		answers:     answers,
		sessionID:   sessionID,
		activeIndex: -1,
	}
}

// Initialize выполняет полную выборку ответов слайда и заменяет (не сливает)
// локальный набор. Вызывается при старте и при каждой смене активного слайда,
// чтобы не тащить за собой устаревшие счетчики.
func (a *AnswerAggregator) Initialize(ctx context.Context, slideIndex int) ([]repository.AnswerWithParticipant, error) {
	fetched, err := a.answers.GetBySessionAndSlide(ctx, a.sessionID, slideIndex)
	if err != nil {
		return nil, fmt.Errorf("fetch answers for session %s slide %d: %w", a.sessionID, slideIndex, err)
	}

	a.mu.Lock()
	a.activeIndex = slideIndex
	a.set = make([]repository.AnswerWithParticipant, len(fetched))
	copy(a.set, fetched)
	a.mu.Unlock()

	return fetched, nil
}

// Reset очищает локальный набор и переключает активный слайд без выборки.
// Используется как немедленная реакция на смену слайда, до того как
// Initialize установит новое базовое состояние.
func (a *AnswerAggregator) Reset(slideIndex int) {
	a.mu.Lock()
	a.activeIndex = slideIndex
	a.set = nil
	a.mu.Unlock()
}

// OnIncomingAnswer применяет входящее событие вставки ответа.
// Ответ попадает в набор, только если его слайд совпадает с активным —
// это правило защиты от загрязнения опоздавшими ответами прошлых слайдов.
// Событие строки, уже пришедшей bulk fetch-ом, отбрасывается: уникальный
// индекс хранилища гарантирует одну строку на участника на слайд, поэтому
// совпадение по UserID означает дубль, а не второй голос.
// Возвращает true, если ответ был добавлен.
func (a *AnswerAggregator) OnIncomingAnswer(answer repository.AnswerWithParticipant) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if answer.SessionID != a.sessionID || answer.SlideIndex != a.activeIndex {
		return false
	}
	for _, existing := range a.set {
		if existing.UserID == answer.UserID {
			return false
		}
	}
	a.set = append(a.set, answer)
	return true
}

// ActiveIndex возвращает индекс слайда, на который сейчас скопирован агрегатор
func (a *AnswerAggregator) ActiveIndex() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.activeIndex
}

// Answers возвращает копию текущего набора ответов в порядке поступления
func (a *AnswerAggregator) Answers() []repository.AnswerWithParticipant {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]repository.AnswerWithParticipant, len(a.set))
	copy(out, a.set)
	return out
}

// Tally детерминированно сводит текущий набор к счетчикам голосов по вариантам.
// Варианты без голосов присутствуют в результате со счетчиком 0, поэтому
// представление результатов стабильно независимо от порядка голосов.
func (a *AnswerAggregator) Tally(options []entity.SlideOption) map[string]int {
	counts := make(map[string]int, len(options))
	for _, opt := range options {
		counts[opt.ID] = 0
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, answer := range a.set {
		if _, ok := counts[answer.SelectedOptionID]; ok {
			counts[answer.SelectedOptionID]++
		}
	}
	return counts
}
