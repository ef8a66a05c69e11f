package websocket

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Время, которое разрешено писать сообщение клиенту.
	writeWait = 10 * time.Second

	// Время, которое разрешено клиенту читать следующее сообщение.
	defaultPongWait = 30 * time.Second

	// Периодичность отправки ping-сообщений клиенту.
	defaultPingInterval = (defaultPongWait * 9) / 10

	// Максимальный размер входящего сообщения
	defaultMaxMessageSize = 4096

	// Размер буфера по умолчанию для канала отправки сообщений клиенту
	defaultClientBufferSize = 128
)

// ClientConfig содержит настройки для клиента
type ClientConfig struct {
	// BufferSize определяет размер буфера канала отправки сообщений
	BufferSize int

	// PingInterval определяет интервал между ping-сообщениями
	PingInterval time.Duration

	// PongWait определяет время ожидания pong-ответа
	PongWait time.Duration

	// WriteWait определяет тайм-аут для записи сообщений
	WriteWait time.Duration

	// MaxMessageSize определяет максимальный размер сообщения
	MaxMessageSize int64
}

// DefaultClientConfig возвращает конфигурацию клиента по умолчанию
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BufferSize:     defaultClientBufferSize,
		PingInterval:   defaultPingInterval,
		PongWait:       defaultPongWait,
		WriteWait:      writeWait,
		MaxMessageSize: defaultMaxMessageSize,
	}
}

// Client является посредником между WebSocket соединением и хабом.
// Клиент привязан к одной сессии на все время жизни соединения.
type Client struct {
	// ID пользователя
	UserID string

	// Уникальный ID для каждого соединения
	ConnectionID string

	// ID сессии, к комнате которой подключен клиент
	SessionID string

	// IsHost — клиент является хостом сессии; только такие клиенты
	// получают события входящих ответов
	IsHost bool

	hub  *Hub
	conn *websocket.Conn

	// Буферизованный канал для исходящих сообщений
	send chan []byte

	// Флаг, указывающий что канал send закрыт (для предотвращения panic)
	sendClosed atomic.Bool

	config ClientConfig
}

// NewClient создает нового клиента комнаты сессии
func NewClient(hub *Hub, conn *websocket.Conn, userID, sessionID string, isHost bool, config ClientConfig) *Client {
	if config.BufferSize <= 0 {
		config.BufferSize = defaultClientBufferSize
	}
	if config.PongWait <= 0 {
		config.PongWait = defaultPongWait
	}
	if config.PingInterval <= 0 {
		config.PingInterval = (config.PongWait * 9) / 10
	}
	if config.WriteWait <= 0 {
		config.WriteWait = writeWait
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = defaultMaxMessageSize
	}

	return &Client{
		UserID:       userID,
		ConnectionID: uuid.New().String(),
		SessionID:    sessionID,
		IsHost:       isHost,
		hub:          hub,
		conn:         conn,
		send:         make(chan []byte, config.BufferSize),
		config:       config,
	}
}

// StartPumps регистрирует клиента в хабе и запускает горутины чтения и записи
func (c *Client) StartPumps() {
	c.hub.register <- c
	go c.writePump()
	go c.readPump()
}

// readPump читает сообщения от клиента. Входящие данные не несут команд
// (все действия идут через REST), цикл нужен для обработки pong и
// обнаружения разрыва соединения.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
		log.Printf("[WebSocket] Read pump остановлен (UserID: %s, ConnID: %s)", c.UserID, c.ConnectionID)
	}()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WebSocket] Ошибка чтения (UserID: %s, ConnID: %s): %v", c.UserID, c.ConnectionID, err)
			}
			return
		}
	}
}

// writePump отправляет сообщения клиенту из канала send
func (c *Client) writePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				// Хаб закрыл канал клиента
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WebSocket] Ошибка записи (UserID: %s, ConnID: %s): %v", c.UserID, c.ConnectionID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// closeSend безопасно закрывает канал send (только один раз)
func (c *Client) closeSend() {
	if c.sendClosed.CompareAndSwap(false, true) {
		close(c.send)
	}
}
