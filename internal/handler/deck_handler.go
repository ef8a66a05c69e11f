package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/classroom-api/internal/service"
)

// DeckHandler отдает колоду презентации
type DeckHandler struct {
	deckService *service.DeckService
}

// NewDeckHandler создает новый обработчик колоды
func NewDeckHandler(deckService *service.DeckService) *DeckHandler {
	return &DeckHandler{deckService: deckService}
}

// Get возвращает колоду без ключей правильных ответов.
// Полную колоду хост получает через GET /api/sessions/:id/deck.
// GET /api/deck
func (h *DeckHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.deckService.PublicDeck())
}
