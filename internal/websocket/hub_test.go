package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// registerTestClient регистрирует клиента напрямую, без сетевого соединения:
// насосы не запускаются, канал send читается тестом
func registerTestClient(t *testing.T, hub *Hub, userID, sessionID string, isHost bool) *Client {
	t.Helper()
	client := NewClient(hub, nil, userID, sessionID, isHost, DefaultClientConfig())
	select {
	case hub.register <- client:
	case <-time.After(time.Second):
		t.Fatal("хаб не принял регистрацию клиента")
	}
	return client
}

func receiveMessage(t *testing.T, client *Client) []byte {
	t.Helper()
	select {
	case message := <-client.send:
		return message
	case <-time.After(time.Second):
		t.Fatalf("клиент %s не получил сообщение", client.UserID)
		return nil
	}
}

func assertNoMessage(t *testing.T, client *Client) {
	t.Helper()
	select {
	case message := <-client.send:
		t.Fatalf("клиент %s получил неожиданное сообщение: %s", client.UserID, message)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_BroadcastToSession(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	host := registerTestClient(t, hub, "h1", "s1", true)
	participant := registerTestClient(t, hub, "u1", "s1", false)
	stranger := registerTestClient(t, hub, "u2", "other", false)

	hub.BroadcastToSession("s1", []byte("slide changed"))

	assert.Equal(t, []byte("slide changed"), receiveMessage(t, host))
	assert.Equal(t, []byte("slide changed"), receiveMessage(t, participant))
	// Клиент другой комнаты ничего не получает
	assertNoMessage(t, stranger)
}

func TestHub_BroadcastToHostOnly(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	host := registerTestClient(t, hub, "h1", "s1", true)
	participant := registerTestClient(t, hub, "u1", "s1", false)

	hub.BroadcastToHost("s1", []byte("answer received"))

	assert.Equal(t, []byte("answer received"), receiveMessage(t, host))
	assertNoMessage(t, participant)
}

// roomTransition — записанный переход занятости комнаты
type roomTransition struct {
	sessionID string
	occupied  bool
}

func TestHub_RoomChangeCallbackTracksOccupancy(t *testing.T) {
	hub := NewHub()
	transitions := make(chan roomTransition, 8)
	hub.SetRoomChangeCallback(func(sessionID string, occupied bool) {
		transitions <- roomTransition{sessionID: sessionID, occupied: occupied}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	host := registerTestClient(t, hub, "h1", "s1", true)
	select {
	case tr := <-transitions:
		assert.Equal(t, roomTransition{sessionID: "s1", occupied: true}, tr)
	case <-time.After(time.Second):
		t.Fatal("колбэк занятой комнаты не сработал")
	}

	// Второй клиент не меняет занятость
	participant := registerTestClient(t, hub, "u1", "s1", false)
	select {
	case tr := <-transitions:
		t.Fatalf("неожиданный переход: %+v", tr)
	case <-time.After(50 * time.Millisecond):
	}

	hub.unregister <- host
	// Комната еще не пуста
	select {
	case tr := <-transitions:
		t.Fatalf("колбэк сработал слишком рано: %+v", tr)
	case <-time.After(50 * time.Millisecond):
	}

	hub.unregister <- participant
	select {
	case tr := <-transitions:
		assert.Equal(t, roomTransition{sessionID: "s1", occupied: false}, tr)
	case <-time.After(time.Second):
		t.Fatal("колбэк опустевшей комнаты не сработал")
	}

	// Каналы отключенных клиентов закрыты
	_, ok := <-host.send
	assert.False(t, ok)
}

func TestHub_SlowClientIsDisconnected(t *testing.T) {
	hub := NewHub()
	released := make(chan string, 2)
	hub.SetRoomChangeCallback(func(sessionID string, occupied bool) {
		if !occupied {
			released <- sessionID
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	config := DefaultClientConfig()
	config.BufferSize = 1
	slow := NewClient(hub, nil, "u1", "s1", false, config)
	hub.register <- slow

	// Первое сообщение помещается в буфер, второе переполняет его
	hub.BroadcastToSession("s1", []byte("one"))
	hub.BroadcastToSession("s1", []byte("two"))

	select {
	case id := <-released:
		require.Equal(t, "s1", id)
	case <-time.After(time.Second):
		t.Fatal("медленный клиент не был отключен")
	}
}

func TestHub_ShutdownClosesAllClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	host := registerTestClient(t, hub, "h1", "s1", true)
	participant := registerTestClient(t, hub, "u1", "s2", false)

	cancel()

	for _, client := range []*Client{host, participant} {
		select {
		case _, ok := <-client.send:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatalf("канал клиента %s не был закрыт при остановке хаба", client.UserID)
		}
	}
}
