package sync

import (
	"context"
	"fmt"
	"log"

	"github.com/yourusername/classroom-api/internal/changefeed"
	"github.com/yourusername/classroom-api/internal/domain/entity"
	"github.com/yourusername/classroom-api/internal/domain/repository"
	apperrors "github.com/yourusername/classroom-api/internal/pkg/errors"
)

// Synchronizer владеет правом хоста двигать указатель текущего слайда.
// Участники наблюдают изменения через фид (Observe), сами ничего не пишут.
type Synchronizer struct {
	sessions repository.SessionRepository
	deck     *entity.Deck
	feed     changefeed.Feed
}

// NewSynchronizer создает синхронизатор сессий
func NewSynchronizer(sessions repository.SessionRepository, deck *entity.Deck, feed changefeed.Feed) *Synchronizer {
	return &Synchronizer{
		sessions: sessions,
		deck:     deck,
		feed:     feed,
	}
}

// Advance переводит сессию на следующий слайд.
// На последнем слайде возвращает ErrOutOfRange, ничего не персистя.
func (s *Synchronizer) Advance(ctx context.Context, session *entity.Session) (*entity.Session, error) {
	return s.move(ctx, session, +1)
}

// Retreat переводит сессию на предыдущий слайд.
// На нулевом слайде возвращает ErrOutOfRange, ничего не персистя.
func (s *Synchronizer) Retreat(ctx context.Context, session *entity.Session) (*entity.Session, error) {
	return s.move(ctx, session, -1)
}

// move выполняет переход указателя слайда: проверка границ, персист, публикация.
// Переданная сессия не мутируется: при ошибке персиста состояние вызывающей
// стороны остается прежним и операцию можно безопасно повторить.
func (s *Synchronizer) move(ctx context.Context, session *entity.Session, delta int) (*entity.Session, error) {
	target := session.CurrentSlideIndex + delta
	if !s.deck.ValidIndex(target) {
		return nil, fmt.Errorf("%w: index %d, deck length %d", apperrors.ErrOutOfRange, target, s.deck.Len())
	}

	if err := s.sessions.UpdateSlideIndex(ctx, session.ID, target); err != nil {
		return nil, fmt.Errorf("persist slide index for session %s: %w", session.ID, err)
	}

	updated := *session
	updated.CurrentSlideIndex = target

	// Публикация после успешного коммита: наблюдатели узнают о переходе из фида.
	// Ошибка публикации не откатывает переход — подписчики догонят состояние
	// при следующем событии или повторном bulk fetch (last-value-wins).
	event, err := changefeed.NewSessionEvent(changefeed.OpUpdate, &updated)
	if err != nil {
		log.Printf("[Synchronizer] Ошибка сборки события для сессии %s: %v", session.ID, err)
		return &updated, nil
	}
	if err := s.feed.Publish(ctx, event); err != nil {
		log.Printf("[Synchronizer] Ошибка публикации перехода слайда сессии %s: %v", session.ID, err)
	}

	return &updated, nil
}

// Observe возвращает ленивую последовательность снапшотов сессии: новый снапшот
// на каждое изменение указателя слайда. Быстрые подряд идущие обновления
// коалесцируются — потребитель всегда доверяет абсолютному индексу последнего
// события и не рассчитывает увидеть каждый промежуточный.
// Возвращенная подписка закрывается потребителем (Close идемпотентен).
func (s *Synchronizer) Observe(ctx context.Context, sessionID string) (<-chan entity.Session, *changefeed.Subscription, error) {
	sub, err := s.feed.Subscribe(ctx, changefeed.Filter{
		Table:     changefeed.TableSessions,
		SessionID: sessionID,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe to session %s: %w", sessionID, err)
	}

	out := make(chan entity.Session, 1)
	go func() {
		defer close(out)
		for event := range sub.Events() {
			session, err := event.DecodeSession()
			if err != nil {
				log.Printf("[Synchronizer] Некорректное событие сессии %s: %v", sessionID, err)
				continue
			}
			// Коалесценция: если потребитель не успел забрать предыдущий
			// снапшот, он вытесняется более новым.
			select {
			case out <- *session:
			default:
				select {
				case <-out:
				default:
				}
				out <- *session
			}
		}
	}()

	return out, sub, nil
}
