package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/yourusername/classroom-api/internal/service"
	"github.com/yourusername/classroom-api/internal/service/sync"
	"github.com/yourusername/classroom-api/internal/websocket"
	"github.com/yourusername/classroom-api/pkg/auth"
)

// WSHandler обрабатывает WebSocket соединения комнат сессий
type WSHandler struct {
	hub            *websocket.Hub
	monitors       *sync.MonitorManager
	sessionService *service.SessionService
	jwtService     *auth.JWTService
	clientConfig   websocket.ClientConfig
}

// NewWSHandler создает новый обработчик WebSocket
func NewWSHandler(
	hub *websocket.Hub,
	monitors *sync.MonitorManager,
	sessionService *service.SessionService,
	jwtService *auth.JWTService,
	clientConfig websocket.ClientConfig,
) *WSHandler {
	return &WSHandler{
		hub:            hub,
		monitors:       monitors,
		sessionService: sessionService,
		jwtService:     jwtService,
		clientConfig:   clientConfig,
	}
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Origin пустой — не браузерный клиент (мобильное приложение, curl и т.д.)
		return true
	},
	EnableCompression: true,
}

// HandleConnection обрабатывает входящее WebSocket соединение комнаты сессии.
// Браузер не может передать Authorization header при апгрейде,
// поэтому токен принимается query-параметром.
// GET /ws/sessions/:id?token=...
func (h *WSHandler) HandleConnection(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authentication token parameter"})
		return
	}

	claims, err := h.jwtService.ParseToken(token)
	if err != nil {
		log.Printf("[WSHandler] Невалидный токен при подключении: %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	session, err := h.sessionService.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	// Монитор сессии должен работать до регистрации клиента:
	// первое же событие смены слайда обязано дойти до этого клиента
	if _, err := h.monitors.Ensure(session.ID); err != nil {
		log.Printf("[WSHandler] Не удалось запустить монитор сессии %s: %v", session.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start session monitor"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WSHandler] Ошибка апгрейда соединения: %v", err)
		return
	}

	isHost := session.HostID == claims.UserID
	client := websocket.NewClient(h.hub, conn, claims.UserID, session.ID, isHost, h.clientConfig)
	client.StartPumps()

	log.Printf("[WSHandler] Клиент %s подключен к сессии %s (host: %t)", claims.UserID, session.ID, isHost)
}
