package sync

import (
	"context"
	"encoding/json"
	"log"

	"github.com/yourusername/classroom-api/internal/changefeed"
	"github.com/yourusername/classroom-api/internal/domain/entity"
	"github.com/yourusername/classroom-api/internal/domain/repository"
)

// Типы событий, рассылаемых клиентам сессии
const (
	EventSlideChanged   = "session:slide_changed"
	EventAnswerReceived = "answer:received"
)

// Broadcaster доставляет события подключенным клиентам сессии.
// Реализуется WebSocket-хабом.
type Broadcaster interface {
	// BroadcastToSession отправляет сообщение всем клиентам сессии
	BroadcastToSession(sessionID string, message []byte)

	// BroadcastToHost отправляет сообщение только хост-клиентам сессии
	BroadcastToHost(sessionID string, message []byte)
}

// pushEvent — формат события для клиента
type pushEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Monitor — серверный цикл реакции одной сессии. Одна горутина последовательно
// применяет события фида к агрегатору и рассылает их клиентам, поэтому
// наблюдение смены слайда и сброс агрегатора происходят как одна атомарная
// реакция: опоздавшее событие ответа старого слайда не может вклиниться между ними.
type Monitor struct {
	sessionID  string
	sessions   repository.SessionRepository
	aggregator *AnswerAggregator
	sync       *Synchronizer
	feed       changefeed.Feed
	broadcast  Broadcaster

	cancel context.CancelFunc
	done   chan struct{}
}

// NewMonitor создает монитор сессии
func NewMonitor(
	sessionID string,
	sessions repository.SessionRepository,
	answers repository.AnswerRepository,
	synchronizer *Synchronizer,
	feed changefeed.Feed,
	broadcast Broadcaster,
) *Monitor {
	return &Monitor{
		sessionID:  sessionID,
		sessions:   sessions,
		aggregator: NewAnswerAggregator(answers, sessionID),
		sync:       synchronizer,
		feed:       feed,
		broadcast:  broadcast,
		done:       make(chan struct{}),
	}
}

// Aggregator возвращает агрегатор ответов этого монитора (для live tally хоста)
func (m *Monitor) Aggregator() *AnswerAggregator {
	return m.aggregator
}

// Start запускает цикл реакции: подписки на фид и начальный bulk fetch.
// Возвращает ошибку только если подписки не удалось установить.
func (m *Monitor) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	slides, slideSub, err := m.sync.Observe(runCtx, m.sessionID)
	if err != nil {
		cancel()
		close(m.done)
		return err
	}

	answerSub, err := m.feed.Subscribe(runCtx, changefeed.Filter{
		Table:     changefeed.TableAnswers,
		SessionID: m.sessionID,
	})
	if err != nil {
		slideSub.Close()
		cancel()
		close(m.done)
		return err
	}

	// Базовое состояние: текущий слайд из стора, затем полный набор его ответов
	session, err := m.sessions.GetByID(runCtx, m.sessionID)
	if err != nil {
		slideSub.Close()
		answerSub.Close()
		cancel()
		close(m.done)
		return err
	}
	if _, err := m.aggregator.Initialize(runCtx, session.CurrentSlideIndex); err != nil {
		log.Printf("[Monitor] Сессия %s: ошибка начальной выборки ответов: %v", m.sessionID, err)
	}

	go m.run(runCtx, slides, answerSub, slideSub)
	return nil
}

// Stop завершает цикл реакции. Безопасен при повторных вызовах.
func (m *Monitor) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}

// run — единственная горутина, применяющая события к состоянию сессии
func (m *Monitor) run(ctx context.Context, slides <-chan entity.Session, answerSub, slideSub *changefeed.Subscription) {
	defer close(m.done)
	defer slideSub.Close()
	defer answerSub.Close()

	log.Printf("[Monitor] Сессия %s: цикл реакции запущен", m.sessionID)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Monitor] Сессия %s: цикл реакции остановлен", m.sessionID)
			return

		case session, ok := <-slides:
			if !ok {
				return
			}
			m.onSlideChanged(ctx, &session)

		case event, ok := <-answerSub.Events():
			if !ok {
				return
			}
			m.onAnswerEvent(&event)
		}
	}
}

// onSlideChanged — атомарная реакция на смену слайда: сброс агрегатора,
// повторный bulk fetch под новый индекс, затем уведомление клиентов.
func (m *Monitor) onSlideChanged(ctx context.Context, session *entity.Session) {
	if session.CurrentSlideIndex == m.aggregator.ActiveIndex() {
		return
	}

	m.aggregator.Reset(session.CurrentSlideIndex)
	if _, err := m.aggregator.Initialize(ctx, session.CurrentSlideIndex); err != nil {
		// Набор остается пустым; следующее событие или запрос tally
		// сработают по уже переключенному индексу
		log.Printf("[Monitor] Сессия %s: ошибка выборки ответов слайда %d: %v",
			m.sessionID, session.CurrentSlideIndex, err)
	}

	m.push(session.ID, EventSlideChanged, session, false)
}

// onAnswerEvent применяет событие вставки ответа: мимо активного слайда — дроп
func (m *Monitor) onAnswerEvent(event *changefeed.Event) {
	answer, err := event.DecodeAnswer()
	if err != nil {
		log.Printf("[Monitor] Сессия %s: некорректное событие ответа: %v", m.sessionID, err)
		return
	}

	if !m.aggregator.OnIncomingAnswer(*answer) {
		// Ответ чужого или уже прошедшего слайда: в live-наборе ему не место,
		// он остается доступен только через историю
		return
	}

	// Ответы видит только хост: участникам чужие голоса не рассылаются
	m.push(m.sessionID, EventAnswerReceived, answer, true)
}

// push сериализует и рассылает событие клиентам сессии
func (m *Monitor) push(sessionID, eventType string, data interface{}, hostOnly bool) {
	message, err := json.Marshal(pushEvent{Type: eventType, Data: data})
	if err != nil {
		log.Printf("[Monitor] Сессия %s: ошибка сериализации события %s: %v", sessionID, eventType, err)
		return
	}
	if hostOnly {
		m.broadcast.BroadcastToHost(sessionID, message)
	} else {
		m.broadcast.BroadcastToSession(sessionID, message)
	}
}
