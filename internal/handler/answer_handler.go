package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/classroom-api/internal/service"
)

// AnswerHandler обрабатывает запросы ответов участников
type AnswerHandler struct {
	answerService  *service.AnswerService
	sessionService *service.SessionService
}

// NewAnswerHandler создает новый обработчик ответов
func NewAnswerHandler(answerService *service.AnswerService, sessionService *service.SessionService) *AnswerHandler {
	return &AnswerHandler{
		answerService:  answerService,
		sessionService: sessionService,
	}
}

// SubmitAnswerRequest представляет запрос на отправку ответа.
// SlideIndex — слайд, который участник видел в момент отправки.
type SubmitAnswerRequest struct {
	SlideIndex *int   `json:"slide_index" binding:"required"`
	OptionID   string `json:"option_id" binding:"required"`
}

// Submit обрабатывает отправку ответа на вопрос слайда
// POST /api/sessions/:id/answers
func (h *AnswerHandler) Submit(c *gin.Context) {
	var req SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Убеждаемся, что сессия существует, прежде чем проводить ответ
	session, err := h.sessionService.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	answer, err := h.answerService.Submit(c.Request.Context(), session.ID, currentUserID(c), *req.SlideIndex, req.OptionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, answer)
}

// MyAnswers возвращает карту slideIndex -> optionID прошлых ответов участника.
// Используется клиентом для восстановления состояния "уже отвечено".
// GET /api/sessions/:id/my-answers
func (h *AnswerHandler) MyAnswers(c *gin.Context) {
	session, err := h.sessionService.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	history, err := h.answerService.History(c.Request.Context(), session.ID, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"answers": history})
}
