package service

import (
	"context"
	"fmt"
	"log"
	gosync "sync"

	"github.com/yourusername/classroom-api/internal/changefeed"
	"github.com/yourusername/classroom-api/internal/domain/entity"
	"github.com/yourusername/classroom-api/internal/domain/repository"
	"github.com/yourusername/classroom-api/internal/service/sync"
)

// AnswerService проводит ответы участников через их трекеры и публикует
// события вставки в фид. Трекер создается лениво на пару (сессия, участник)
// и живет, пока сессия активна: локальная история позволяет отклонять
// повторные отправки без сетевого вызова.
type AnswerService struct {
	answers repository.AnswerRepository
	users   repository.UserRepository
	deck    *entity.Deck
	feed    changefeed.Feed

	mu       gosync.Mutex
	trackers map[string]*sync.ResponseTracker
}

// NewAnswerService создает сервис ответов
func NewAnswerService(
	answers repository.AnswerRepository,
	users repository.UserRepository,
	deck *entity.Deck,
	feed changefeed.Feed,
) *AnswerService {
	return &AnswerService{
		answers:  answers,
		users:    users,
		deck:     deck,
		feed:     feed,
		trackers: make(map[string]*sync.ResponseTracker),
	}
}

// Submit проводит ответ участника на слайд. Индекс слайда — тот, что участник
// видел в момент отправки; он фиксируется на всю операцию (см. ResponseTracker).
func (s *AnswerService) Submit(ctx context.Context, sessionID, userID string, slideIndex int, optionID string) (*entity.Answer, error) {
	tracker, err := s.tracker(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	answer, err := tracker.Submit(ctx, slideIndex, optionID)
	if err != nil {
		return nil, err
	}

	// Строка закоммичена — публикуем insert-событие в фид.
	// Агрегатор хоста сам отбросит его, если слайд уже сменился.
	s.publishAnswer(ctx, answer)

	return answer, nil
}

// History возвращает карту slideIndex -> selectedOptionID прошлых ответов
// участника в сессии. Всегда перечитывает из стора: используется при
// восстановлении UI после перезагрузки или разрыва подписки.
func (s *AnswerService) History(ctx context.Context, sessionID, userID string) (map[int]string, error) {
	tracker, err := s.tracker(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	return tracker.LoadHistory(ctx)
}

// ReleaseSession выбрасывает трекеры сессии (комната опустела)
func (s *AnswerService) ReleaseSession(sessionID string) {
	prefix := sessionID + ":"
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.trackers {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			delete(s.trackers, key)
		}
	}
}

// tracker возвращает трекер пары (сессия, участник), создавая его при
// первом обращении с загрузкой истории из стора
func (s *AnswerService) tracker(ctx context.Context, sessionID, userID string) (*sync.ResponseTracker, error) {
	key := sessionID + ":" + userID

	s.mu.Lock()
	tracker, ok := s.trackers[key]
	s.mu.Unlock()
	if ok {
		return tracker, nil
	}

	tracker = sync.NewResponseTracker(s.answers, s.deck, sessionID, userID)
	if _, err := tracker.LoadHistory(ctx); err != nil {
		return nil, fmt.Errorf("load history for tracker %s: %w", key, err)
	}

	s.mu.Lock()
	// Гонка двух первых запросов: оставляем уже сохраненный трекер
	if existing, ok := s.trackers[key]; ok {
		tracker = existing
	} else {
		s.trackers[key] = tracker
	}
	s.mu.Unlock()

	return tracker, nil
}

// publishAnswer публикует событие вставки ответа с именем участника.
// Ошибки не фатальны: live-набор хоста восстановится следующим bulk fetch.
func (s *AnswerService) publishAnswer(ctx context.Context, answer *entity.Answer) {
	displayName := ""
	if user, err := s.users.GetByID(ctx, answer.UserID); err == nil {
		displayName = user.DisplayName
	} else {
		log.Printf("[AnswerService] Не удалось получить имя участника %s: %v", answer.UserID, err)
	}

	event, err := changefeed.NewAnswerEvent(&repository.AnswerWithParticipant{
		Answer:      *answer,
		DisplayName: displayName,
	})
	if err != nil {
		log.Printf("[AnswerService] Ошибка сборки события ответа #%d: %v", answer.ID, err)
		return
	}
	if err := s.feed.Publish(ctx, event); err != nil {
		log.Printf("[AnswerService] Ошибка публикации события ответа #%d: %v", answer.ID, err)
	}
}
