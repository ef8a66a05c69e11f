package changefeed

import (
	"context"
	"sync"
)

// MemoryFeed реализует Feed внутри одного процесса без внешнего транспорта.
// Используется в одиночном режиме (Redis отключен) и в тестах: события
// проходят тот же путь publish -> filter -> subscription, что и в RedisFeed,
// поэтому редьюсеры потребителей можно проверять воспроизведением событий.
type MemoryFeed struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]chan Event
	closed bool
}

// NewMemoryFeed создает внутрипроцессный фид
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{
		subs: make(map[string]map[*Subscription]chan Event),
	}
}

// Publish доставляет событие всем активным подпискам его канала
func (f *MemoryFeed) Publish(ctx context.Context, event Event) error {
	channel := Filter{Table: event.Table, SessionID: event.SessionID}.Channel()

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil
	}
	for _, ch := range f.subs[channel] {
		select {
		case ch <- event:
		default:
			// Медленный подписчик: событие отброшено, как и в Redis-фиде
		}
	}
	return nil
}

// Subscribe подписывается по фильтру
func (f *MemoryFeed) Subscribe(ctx context.Context, filter Filter) (*Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	events := make(chan Event, subscriptionBuffer)
	sub := &Subscription{filter: filter, events: events, cancel: cancel}
	channel := filter.Channel()

	f.mu.Lock()
	if f.subs[channel] == nil {
		f.subs[channel] = make(map[*Subscription]chan Event)
	}
	f.subs[channel][sub] = events
	f.mu.Unlock()

	go func() {
		<-subCtx.Done()
		f.mu.Lock()
		if _, ok := f.subs[channel][sub]; ok {
			delete(f.subs[channel], sub)
			close(events)
		}
		f.mu.Unlock()
	}()

	return sub, nil
}

// Close закрывает фид и все активные подписки
func (f *MemoryFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	for channel, subs := range f.subs {
		for sub, ch := range subs {
			delete(subs, sub)
			close(ch)
		}
		delete(f.subs, channel)
	}
	return nil
}
