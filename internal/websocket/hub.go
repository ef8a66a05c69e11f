package websocket

import (
	"context"
	"log"
)

// roomMessage — исходящее сообщение для комнаты сессии
type roomMessage struct {
	sessionID string
	payload   []byte
	hostOnly  bool
}

// Hub управляет комнатами сессий: регистрация и отключение клиентов,
// рассылка сообщений всем клиентам комнаты либо только хостам.
// Карта комнат принадлежит единственной горутине Run, поэтому
// дополнительная синхронизация не нужна.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan roomMessage

	// rooms: sessionID -> подключенные клиенты
	rooms map[string]map[*Client]bool

	// onRoomChange вызывается на переходах занятости комнаты:
	// первый клиент подключился (occupied=true), последний отключился (false)
	onRoomChange func(sessionID string, occupied bool)
}

// NewHub создает новый хаб
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan roomMessage, 256),
		rooms:      make(map[string]map[*Client]bool),
	}
}

// SetRoomChangeCallback задает обработчик переходов занятости комнат.
// Должен быть вызван до Run. Обработчик вызывается из горутины хаба
// строго в порядке переходов и не должен блокироваться.
func (h *Hub) SetRoomChangeCallback(fn func(sessionID string, occupied bool)) {
	h.onRoomChange = fn
}

// Run обрабатывает регистрацию, отключение и рассылку до отмены контекста
func (h *Hub) Run(ctx context.Context) {
	log.Printf("[Hub] Запущен")
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			log.Printf("[Hub] Остановлен")
			return

		case client := <-h.register:
			room, ok := h.rooms[client.SessionID]
			if !ok {
				room = make(map[*Client]bool)
				h.rooms[client.SessionID] = room
			}
			room[client] = true
			if len(room) == 1 && h.onRoomChange != nil {
				h.onRoomChange(client.SessionID, true)
			}
			log.Printf("[Hub] Клиент %s (ConnID: %s) подключен к сессии %s (host: %t, всего: %d)",
				client.UserID, client.ConnectionID, client.SessionID, client.IsHost, len(room))

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

// BroadcastToSession отправляет сообщение всем клиентам сессии
func (h *Hub) BroadcastToSession(sessionID string, message []byte) {
	h.broadcast <- roomMessage{sessionID: sessionID, payload: message}
}

// BroadcastToHost отправляет сообщение только хост-клиентам сессии
func (h *Hub) BroadcastToHost(sessionID string, message []byte) {
	h.broadcast <- roomMessage{sessionID: sessionID, payload: message, hostOnly: true}
}

// removeClient убирает клиента из комнаты; опустевшая комната удаляется
func (h *Hub) removeClient(client *Client) {
	room, ok := h.rooms[client.SessionID]
	if !ok || !room[client] {
		return
	}
	delete(room, client)
	client.closeSend()
	log.Printf("[Hub] Клиент %s (ConnID: %s) отключен от сессии %s (осталось: %d)",
		client.UserID, client.ConnectionID, client.SessionID, len(room))

	if len(room) == 0 {
		delete(h.rooms, client.SessionID)
		if h.onRoomChange != nil {
			// Переходы занятости доставляются в порядке их наблюдения хабом:
			// переподключение после опустошения не может быть обработано
			// раньше самого опустошения
			h.onRoomChange(client.SessionID, false)
		}
	}
}

// deliver раскладывает сообщение по каналам клиентов комнаты.
// Клиент с переполненным буфером отключается: медленный потребитель
// не должен тормозить всю комнату.
func (h *Hub) deliver(message roomMessage) {
	room, ok := h.rooms[message.sessionID]
	if !ok {
		return
	}
	for client := range room {
		if message.hostOnly && !client.IsHost {
			continue
		}
		select {
		case client.send <- message.payload:
		default:
			log.Printf("[Hub] Буфер клиента %s (ConnID: %s) переполнен, отключаем",
				client.UserID, client.ConnectionID)
			h.removeClient(client)
		}
	}
}

// closeAll закрывает каналы всех клиентов при остановке хаба
func (h *Hub) closeAll() {
	for sessionID, room := range h.rooms {
		for client := range room {
			client.closeSend()
		}
		delete(h.rooms, sessionID)
	}
}
