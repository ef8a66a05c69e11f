package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/classroom-api/internal/changefeed"
	"github.com/yourusername/classroom-api/internal/domain/entity"
	apperrors "github.com/yourusername/classroom-api/internal/pkg/errors"
)

func TestSynchronizer_Advance(t *testing.T) {
	sessions := new(MockSessionRepo)
	feed := changefeed.NewMemoryFeed()
	defer feed.Close()
	sync := NewSynchronizer(sessions, testDeck(), feed)

	session := &entity.Session{ID: "s1", Code: "ABC123", HostID: "h1", CurrentSlideIndex: 1}
	sessions.On("UpdateSlideIndex", mock.Anything, "s1", 2).Return(nil).Once()

	updated, err := sync.Advance(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.CurrentSlideIndex)

	// Исходная сессия не мутируется
	assert.Equal(t, 1, session.CurrentSlideIndex)
	sessions.AssertExpectations(t)
}

func TestSynchronizer_AdvancePastLastSlide(t *testing.T) {
	sessions := new(MockSessionRepo)
	feed := changefeed.NewMemoryFeed()
	defer feed.Close()
	sync := NewSynchronizer(sessions, testDeck(), feed)

	// Колода из 4 слайдов, сессия на последнем
	session := &entity.Session{ID: "s1", CurrentSlideIndex: 3}

	updated, err := sync.Advance(context.Background(), session)
	assert.ErrorIs(t, err, apperrors.ErrOutOfRange)
	assert.Nil(t, updated)
	assert.Equal(t, 3, session.CurrentSlideIndex)

	// Отказ по границе — чисто локальное решение, без записи в стор
	sessions.AssertNotCalled(t, "UpdateSlideIndex", mock.Anything, mock.Anything, mock.Anything)
}

func TestSynchronizer_RetreatAtFirstSlide(t *testing.T) {
	sessions := new(MockSessionRepo)
	feed := changefeed.NewMemoryFeed()
	defer feed.Close()
	sync := NewSynchronizer(sessions, testDeck(), feed)

	session := &entity.Session{ID: "s1", CurrentSlideIndex: 0}

	updated, err := sync.Retreat(context.Background(), session)
	assert.ErrorIs(t, err, apperrors.ErrOutOfRange)
	assert.Nil(t, updated)
	sessions.AssertNotCalled(t, "UpdateSlideIndex", mock.Anything, mock.Anything, mock.Anything)
}

func TestSynchronizer_PersistFailureLeavesStateUnchanged(t *testing.T) {
	sessions := new(MockSessionRepo)
	feed := changefeed.NewMemoryFeed()
	defer feed.Close()
	sync := NewSynchronizer(sessions, testDeck(), feed)

	session := &entity.Session{ID: "s1", CurrentSlideIndex: 1}
	sessions.On("UpdateSlideIndex", mock.Anything, "s1", 2).Return(errors.New("connection reset")).Once()

	updated, err := sync.Advance(context.Background(), session)
	require.Error(t, err)
	assert.Nil(t, updated)
	assert.Equal(t, 1, session.CurrentSlideIndex)

	// Повтор после восстановления связи проходит
	sessions.On("UpdateSlideIndex", mock.Anything, "s1", 2).Return(nil).Once()
	updated, err = sync.Advance(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.CurrentSlideIndex)
	sessions.AssertExpectations(t)
}

func TestSynchronizer_AdvanceWithPropagationDisabled(t *testing.T) {
	sessions := new(MockSessionRepo)
	// Фид-заглушка: переходы персистятся, но никому не рассылаются
	sync := NewSynchronizer(sessions, testDeck(), &changefeed.NoOpFeed{})

	session := &entity.Session{ID: "s1", CurrentSlideIndex: 0}
	sessions.On("UpdateSlideIndex", mock.Anything, "s1", 1).Return(nil).Once()

	updated, err := sync.Advance(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.CurrentSlideIndex)
	sessions.AssertExpectations(t)
}

func TestSynchronizer_AdvancePublishesUpdate(t *testing.T) {
	sessions := new(MockSessionRepo)
	feed := changefeed.NewMemoryFeed()
	defer feed.Close()
	sync := NewSynchronizer(sessions, testDeck(), feed)

	sub, err := feed.Subscribe(context.Background(), changefeed.Filter{
		Table:     changefeed.TableSessions,
		SessionID: "s1",
	})
	require.NoError(t, err)
	defer sub.Close()

	session := &entity.Session{ID: "s1", CurrentSlideIndex: 0}
	sessions.On("UpdateSlideIndex", mock.Anything, "s1", 1).Return(nil).Once()

	_, err = sync.Advance(context.Background(), session)
	require.NoError(t, err)

	select {
	case event := <-sub.Events():
		assert.Equal(t, changefeed.TableSessions, event.Table)
		assert.Equal(t, changefeed.OpUpdate, event.Op)
		decoded, err := event.DecodeSession()
		require.NoError(t, err)
		assert.Equal(t, 1, decoded.CurrentSlideIndex)
	case <-time.After(time.Second):
		t.Fatal("событие перехода слайда не было опубликовано")
	}
}

func TestSynchronizer_ObserveDeliversLatestSnapshot(t *testing.T) {
	sessions := new(MockSessionRepo)
	feed := changefeed.NewMemoryFeed()
	defer feed.Close()
	sync := NewSynchronizer(sessions, testDeck(), feed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots, sub, err := sync.Observe(ctx, "s1")
	require.NoError(t, err)
	defer sub.Close()

	// Три быстрых перехода подряд; потребитель не читает
	for _, idx := range []int{1, 2, 3} {
		event, err := changefeed.NewSessionEvent(changefeed.OpUpdate, &entity.Session{ID: "s1", CurrentSlideIndex: idx})
		require.NoError(t, err)
		require.NoError(t, feed.Publish(context.Background(), event))
	}

	// Промежуточные снапшоты могут быть вытеснены, но последний обязан дойти
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snapshot := <-snapshots:
			if snapshot.CurrentSlideIndex == 3 {
				return
			}
		case <-deadline:
			t.Fatal("последний снапшот так и не был доставлен")
		}
	}
}

func TestSynchronizer_ObserveIgnoresMalformedEvents(t *testing.T) {
	sessions := new(MockSessionRepo)
	feed := changefeed.NewMemoryFeed()
	defer feed.Close()
	sync := NewSynchronizer(sessions, testDeck(), feed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots, sub, err := sync.Observe(ctx, "s1")
	require.NoError(t, err)
	defer sub.Close()

	// Битый payload отбрасывается, последовательность продолжает работать
	require.NoError(t, feed.Publish(context.Background(), changefeed.Event{
		Table:     changefeed.TableSessions,
		Op:        changefeed.OpUpdate,
		SessionID: "s1",
		Payload:   []byte("{not json"),
	}))

	event, err := changefeed.NewSessionEvent(changefeed.OpUpdate, &entity.Session{ID: "s1", CurrentSlideIndex: 2})
	require.NoError(t, err)
	require.NoError(t, feed.Publish(context.Background(), event))

	select {
	case snapshot := <-snapshots:
		assert.Equal(t, 2, snapshot.CurrentSlideIndex)
	case <-time.After(time.Second):
		t.Fatal("валидное событие после битого не было доставлено")
	}
}
