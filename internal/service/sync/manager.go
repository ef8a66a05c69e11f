package sync

import (
	"context"
	"log"
	"sync"

	"github.com/yourusername/classroom-api/internal/changefeed"
	"github.com/yourusername/classroom-api/internal/domain/repository"
)

// roomChange — переход занятости комнаты сессии, наблюдаемый хабом
type roomChange struct {
	sessionID string
	occupied  bool
}

// MonitorManager управляет жизненным циклом мониторов: один монитор на сессию,
// запускается при первом подключившемся клиенте, останавливается когда
// комната пустеет или приложение завершается.
//
// Переходы занятости (RoomChanged) обрабатываются одной горутиной строго
// в порядке поступления. Поэтому переподключение клиента сразу после
// опустошения комнаты не гонится с остановкой монитора: сначала будет
// обработано опустошение (монитор остановлен), затем занятость
// (монитор пересоздан), и живой клиент никогда не остается без монитора.
type MonitorManager struct {
	sessions  repository.SessionRepository
	answers   repository.AnswerRepository
	sync      *Synchronizer
	feed      changefeed.Feed
	broadcast Broadcaster

	mu       sync.Mutex
	monitors map[string]*Monitor
	pending  []roomChange
	rootCtx  context.Context

	wake chan struct{}
}

// NewMonitorManager создает менеджер мониторов сессий и запускает
// обработчик переходов занятости комнат
func NewMonitorManager(
	ctx context.Context,
	sessions repository.SessionRepository,
	answers repository.AnswerRepository,
	synchronizer *Synchronizer,
	feed changefeed.Feed,
	broadcast Broadcaster,
) *MonitorManager {
	mm := &MonitorManager{
		sessions:  sessions,
		answers:   answers,
		sync:      synchronizer,
		feed:      feed,
		broadcast: broadcast,
		monitors:  make(map[string]*Monitor),
		rootCtx:   ctx,
		wake:      make(chan struct{}, 1),
	}
	go mm.watchRooms()
	return mm
}

// Ensure возвращает монитор сессии, запуская его при необходимости
func (mm *MonitorManager) Ensure(sessionID string) (*Monitor, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if monitor, ok := mm.monitors[sessionID]; ok {
		return monitor, nil
	}

	monitor := NewMonitor(sessionID, mm.sessions, mm.answers, mm.sync, mm.feed, mm.broadcast)
	if err := monitor.Start(mm.rootCtx); err != nil {
		return nil, err
	}
	mm.monitors[sessionID] = monitor
	log.Printf("[MonitorManager] Монитор сессии %s запущен", sessionID)
	return monitor, nil
}

// Get возвращает запущенный монитор сессии, если он есть
func (mm *MonitorManager) Get(sessionID string) (*Monitor, bool) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	monitor, ok := mm.monitors[sessionID]
	return monitor, ok
}

// RoomChanged ставит переход занятости комнаты в очередь обработки.
// Не блокируется: вызывается из горутины хаба.
func (mm *MonitorManager) RoomChanged(sessionID string, occupied bool) {
	mm.mu.Lock()
	mm.pending = append(mm.pending, roomChange{sessionID: sessionID, occupied: occupied})
	mm.mu.Unlock()

	select {
	case mm.wake <- struct{}{}:
	default:
	}
}

// Release останавливает монитор сессии
func (mm *MonitorManager) Release(sessionID string) {
	mm.mu.Lock()
	monitor, ok := mm.monitors[sessionID]
	if ok {
		delete(mm.monitors, sessionID)
	}
	mm.mu.Unlock()

	if ok {
		monitor.Stop()
		log.Printf("[MonitorManager] Монитор сессии %s остановлен", sessionID)
	}
}

// StopAll останавливает все мониторы (graceful shutdown)
func (mm *MonitorManager) StopAll() {
	mm.mu.Lock()
	monitors := make([]*Monitor, 0, len(mm.monitors))
	for id, monitor := range mm.monitors {
		monitors = append(monitors, monitor)
		delete(mm.monitors, id)
	}
	mm.mu.Unlock()

	for _, monitor := range monitors {
		monitor.Stop()
	}
}

// watchRooms — единственная горутина, применяющая переходы занятости в порядке
// поступления: опустевшая комната освобождает монитор, вновь занятая —
// пересоздает его
func (mm *MonitorManager) watchRooms() {
	for {
		select {
		case <-mm.rootCtx.Done():
			return
		case <-mm.wake:
		}

		for {
			mm.mu.Lock()
			if len(mm.pending) == 0 {
				mm.mu.Unlock()
				break
			}
			change := mm.pending[0]
			mm.pending = mm.pending[1:]
			mm.mu.Unlock()

			if change.occupied {
				if _, err := mm.Ensure(change.sessionID); err != nil {
					log.Printf("[MonitorManager] Не удалось запустить монитор сессии %s: %v", change.sessionID, err)
				}
			} else {
				mm.Release(change.sessionID)
			}
		}
	}
}
