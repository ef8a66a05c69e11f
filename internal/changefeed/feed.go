package changefeed

import (
	"context"
	"sync"
)

// Feed определяет интерфейс push-механизма доставки событий изменения строк.
// Подписчики получают события по фильтру; доставка после разрыва соединения
// не гарантирует пропущенные события — потребитель, которому нужна полная
// консистентность, обязан повторить bulk fetch после переподключения.
type Feed interface {
	// Publish публикует событие всем подписчикам соответствующего фильтра
	Publish(ctx context.Context, event Event) error

	// Subscribe подписывается по фильтру. Подписка живет до Close()
	// или отмены контекста и сама переподписывается при разрыве транспорта.
	Subscribe(ctx context.Context, filter Filter) (*Subscription, error)

	// Close закрывает все подписки и освобождает ресурсы
	Close() error
}

// Subscription представляет активную подписку на фид.
// Close идемпотентен: безопасно вызывать многократно и после закрытия транспорта.
type Subscription struct {
	filter Filter
	events chan Event
	cancel context.CancelFunc
	once   sync.Once
}

// Filter возвращает фильтр, с которым была создана подписка
func (s *Subscription) Filter() Filter {
	return s.filter
}

// Events возвращает канал событий. Канал закрывается после Close()
// или отмены контекста подписки.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close завершает подписку
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
}

// NoOpFeed реализует Feed для одиночного режима и тестов.
// Публикация уходит в никуда, подписка никогда не получает событий.
type NoOpFeed struct{}

// Publish реализует Feed.Publish для NoOpFeed
func (f *NoOpFeed) Publish(ctx context.Context, event Event) error {
	return nil
}

// Subscribe реализует Feed.Subscribe для NoOpFeed
func (f *NoOpFeed) Subscribe(ctx context.Context, filter Filter) (*Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	events := make(chan Event)
	go func() {
		<-subCtx.Done()
		close(events)
	}()
	return &Subscription{filter: filter, events: events, cancel: cancel}, nil
}

// Close реализует Feed.Close для NoOpFeed
func (f *NoOpFeed) Close() error {
	return nil
}
