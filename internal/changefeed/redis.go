package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// Размер буфера канала событий подписки
	subscriptionBuffer = 100

	// Параметры backoff при переподписке после разрыва транспорта
	resubscribeMinDelay = 250 * time.Millisecond
	resubscribeMaxDelay = 8 * time.Second
)

// RedisFeed реализует Feed поверх Redis Pub/Sub.
// Каждый фильтр отображается в отдельный канал Redis (см. Filter.Channel),
// поэтому фильтрация происходит на стороне сервера, а не подписчика.
type RedisFeed struct {
	client redis.UniversalClient
	ctx    context.Context
	cancel context.CancelFunc
}

// NewRedisFeed создает фид поверх существующего Redis-клиента
func NewRedisFeed(client redis.UniversalClient) (*RedisFeed, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil for RedisFeed")
	}

	// Проверяем соединение перед использованием
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis client failed ping check: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &RedisFeed{
		client: client,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Publish публикует событие в канал, соответствующий его таблице и сессии
func (f *RedisFeed) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal changefeed event: %w", err)
	}

	channel := Filter{Table: event.Table, SessionID: event.SessionID}.Channel()
	if err := f.client.Publish(ctx, channel, data).Err(); err != nil {
		log.Printf("[RedisFeed] Ошибка публикации в канал '%s': %v", channel, err)
		return fmt.Errorf("publish to channel %s: %w", channel, err)
	}
	return nil
}

// Subscribe подписывается на канал фильтра. Горутина подписки сама
// переподписывается при разрыве транспорта, не требуя от потребителя
// повторно указывать фильтр. Пропущенные за время разрыва события не
// доставляются — потребитель должен повторить свой bulk fetch.
func (f *RedisFeed) Subscribe(ctx context.Context, filter Filter) (*Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	events := make(chan Event, subscriptionBuffer)
	channel := filter.Channel()

	go func() {
		defer close(events)

		delay := resubscribeMinDelay
		for {
			pubsub := f.client.Subscribe(subCtx, channel)

			// Ждем подтверждения подписки
			if _, err := pubsub.Receive(subCtx); err != nil {
				pubsub.Close()
				if subCtx.Err() != nil || f.ctx.Err() != nil {
					return
				}
				log.Printf("[RedisFeed] Не удалось подписаться на '%s': %v, повтор через %v", channel, err, delay)
				select {
				case <-time.After(delay):
				case <-subCtx.Done():
					return
				case <-f.ctx.Done():
					return
				}
				if delay *= 2; delay > resubscribeMaxDelay {
					delay = resubscribeMaxDelay
				}
				continue
			}

			delay = resubscribeMinDelay
			log.Printf("[RedisFeed] Подписка на канал '%s' установлена", channel)

			if !f.pump(subCtx, pubsub, events, channel) {
				return
			}
			// Транспорт разорван — тихо переподписываемся с тем же фильтром
			log.Printf("[RedisFeed] Канал '%s' разорван, переподписка...", channel)
		}
	}()

	return &Subscription{filter: filter, events: events, cancel: cancel}, nil
}

// pump пересылает сообщения Redis в канал подписки.
// Возвращает false, если подписку нужно завершить, true — если переподписаться.
func (f *RedisFeed) pump(ctx context.Context, pubsub *redis.PubSub, events chan Event, channel string) bool {
	defer pubsub.Close()

	redisCh := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-f.ctx.Done():
			return false
		case msg, ok := <-redisCh:
			if !ok {
				// Канал закрыт со стороны Redis — сигнал к переподписке
				return true
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("[RedisFeed] Ошибка десериализации события из '%s': %v", channel, err)
				continue
			}
			select {
			case events <- event:
			default:
				// Потребитель не успевает: событие отбрасывается, актуальное
				// состояние восстанавливается повторным bulk fetch
				log.Printf("[RedisFeed] Буфер подписки '%s' переполнен, событие отброшено", channel)
			}
		}
	}
}

// Close закрывает фид и все его подписки
func (f *RedisFeed) Close() error {
	log.Println("[RedisFeed] Закрытие фида и всех подписок...")
	f.cancel()
	return nil
}
