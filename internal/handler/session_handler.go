package handler

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/classroom-api/internal/domain/entity"
	"github.com/yourusername/classroom-api/internal/domain/repository"
	"github.com/yourusername/classroom-api/internal/service"
	"github.com/yourusername/classroom-api/internal/service/sync"
)

// SessionHandler обрабатывает запросы управления сессиями презентации
type SessionHandler struct {
	sessionService *service.SessionService
	deckService    *service.DeckService
	synchronizer   *sync.Synchronizer
	monitors       *sync.MonitorManager
	answers        repository.AnswerRepository
}

// NewSessionHandler создает новый обработчик сессий
func NewSessionHandler(
	sessionService *service.SessionService,
	deckService *service.DeckService,
	synchronizer *sync.Synchronizer,
	monitors *sync.MonitorManager,
	answers repository.AnswerRepository,
) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		deckService:    deckService,
		synchronizer:   synchronizer,
		monitors:       monitors,
		answers:        answers,
	}
}

// Create создает новую сессию для текущего пользователя (он становится хостом)
// POST /api/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	session, err := h.sessionService.CreateSession(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// ResolveCode находит сессию по коду подключения
// GET /api/sessions/code/:code
func (h *SessionHandler) ResolveCode(c *gin.Context) {
	session, err := h.sessionService.ResolveCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Get возвращает сессию по id
// GET /api/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessionService.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Advance переводит сессию на следующий слайд (только хост)
// PUT /api/sessions/:id/advance
func (h *SessionHandler) Advance(c *gin.Context) {
	h.move(c, h.synchronizer.Advance)
}

// Retreat переводит сессию на предыдущий слайд (только хост)
// PUT /api/sessions/:id/retreat
func (h *SessionHandler) Retreat(c *gin.Context) {
	h.move(c, h.synchronizer.Retreat)
}

func (h *SessionHandler) move(c *gin.Context, op func(context.Context, *entity.Session) (*entity.Session, error)) {
	session, err := h.hostSession(c)
	if err != nil {
		respondError(c, err)
		return
	}

	updated, err := op(c.Request.Context(), session)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Deck возвращает полную колоду с ключами правильных ответов (только хост)
// GET /api/sessions/:id/deck
func (h *SessionHandler) Deck(c *gin.Context) {
	if _, err := h.hostSession(c); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.deckService.Deck())
}

// Answers возвращает live-набор ответов текущего слайда (только хост)
// GET /api/sessions/:id/answers
func (h *SessionHandler) Answers(c *gin.Context) {
	session, err := h.hostSession(c)
	if err != nil {
		respondError(c, err)
		return
	}

	answers, err := h.liveAnswers(c.Request.Context(), session)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"slide_index": session.CurrentSlideIndex,
		"answers":     answers,
	})
}

// TallyResponse представляет сводку голосов текущего слайда
type TallyResponse struct {
	SlideIndex int            `json:"slide_index"`
	Counts     map[string]int `json:"counts"`
	Total      int            `json:"total"`
}

// Tally возвращает счетчики голосов по вариантам текущего слайда (только хост).
// Варианты без голосов присутствуют со счетчиком 0.
// GET /api/sessions/:id/tally
func (h *SessionHandler) Tally(c *gin.Context) {
	session, err := h.hostSession(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var options []entity.SlideOption
	if slide, ok := h.deckService.Deck().Slide(session.CurrentSlideIndex); ok && slide.IsQuestion() {
		options = slide.Options
	}

	// Горячий путь: запущенный монитор уже держит набор текущего слайда
	if monitor, ok := h.monitors.Get(session.ID); ok && monitor.Aggregator().ActiveIndex() == session.CurrentSlideIndex {
		counts := monitor.Aggregator().Tally(options)
		c.JSON(http.StatusOK, TallyResponse{
			SlideIndex: session.CurrentSlideIndex,
			Counts:     counts,
			Total:      len(monitor.Aggregator().Answers()),
		})
		return
	}

	// Монитор не запущен (никто не подключен по WebSocket) — прямая выборка
	answers, err := h.answers.GetBySessionAndSlide(c.Request.Context(), session.ID, session.CurrentSlideIndex)
	if err != nil {
		respondError(c, err)
		return
	}
	counts := make(map[string]int, len(options))
	for _, opt := range options {
		counts[opt.ID] = 0
	}
	for _, answer := range answers {
		if _, ok := counts[answer.SelectedOptionID]; ok {
			counts[answer.SelectedOptionID]++
		}
	}
	c.JSON(http.StatusOK, TallyResponse{
		SlideIndex: session.CurrentSlideIndex,
		Counts:     counts,
		Total:      len(answers),
	})
}

// Export экспортирует все ответы сессии в CSV или Excel формате (только хост)
// GET /api/sessions/:id/export?format=csv|xlsx
func (h *SessionHandler) Export(c *gin.Context) {
	session, err := h.hostSession(c)
	if err != nil {
		respondError(c, err)
		return
	}

	answers, err := h.answers.GetBySession(c.Request.Context(), session.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("session_%s_answers_%s", session.Code, time.Now().Format("2006-01-02"))

	switch c.DefaultQuery("format", "csv") {
	case "xlsx":
		h.exportXLSX(c, answers, filename)
	default:
		h.exportCSV(c, answers, filename)
	}
}

// exportCSV экспортирует ответы в CSV с правильным экранированием спецсимволов
func (h *SessionHandler) exportCSV(c *gin.Context, answers []repository.AnswerWithParticipant, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write([]string{"Участник", "Слайд", "Вариант", "Верно", "Время ответа"})

	for _, a := range answers {
		correct := "Нет"
		if a.IsCorrect {
			correct = "Да"
		}
		writer.Write([]string{
			sanitizeForExcel(a.DisplayName),
			strconv.Itoa(a.SlideIndex),
			sanitizeForExcel(a.SelectedOptionID),
			correct,
			a.CreatedAt.Format(time.RFC3339),
		})
	}
}

// exportXLSX экспортирует ответы в Excel с использованием StreamWriter
func (h *SessionHandler) exportXLSX(c *gin.Context, answers []repository.AnswerWithParticipant, filename string) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Ответы"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[SessionHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := []interface{}{"Участник", "Слайд", "Вариант", "Верно", "Время ответа"}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[SessionHandler] Ошибка записи заголовков: %v", err)
	}

	for i, a := range answers {
		correct := "Нет"
		if a.IsCorrect {
			correct = "Да"
		}
		cell := fmt.Sprintf("A%d", i+2)
		row := []interface{}{
			sanitizeForExcel(a.DisplayName),
			a.SlideIndex,
			sanitizeForExcel(a.SelectedOptionID),
			correct,
			a.CreatedAt.Format(time.RFC3339),
		}
		if err := sw.SetRow(cell, row); err != nil {
			log.Printf("[SessionHandler] Ошибка записи строки %d: %v", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[SessionHandler] Ошибка при Flush: %v", err)
	}
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[SessionHandler] Ошибка записи Excel в response: %v", err)
	}
}

// hostSession загружает сессию из пути и проверяет, что запросил ее хост
func (h *SessionHandler) hostSession(c *gin.Context) (*entity.Session, error) {
	session, err := h.sessionService.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, err
	}
	if err := h.sessionService.RequireHost(session, currentUserID(c)); err != nil {
		return nil, err
	}
	return session, nil
}

// liveAnswers возвращает набор ответов текущего слайда: из монитора, если он
// запущен и смотрит на тот же слайд, иначе прямой выборкой из стора
func (h *SessionHandler) liveAnswers(ctx context.Context, session *entity.Session) ([]repository.AnswerWithParticipant, error) {
	if monitor, ok := h.monitors.Get(session.ID); ok && monitor.Aggregator().ActiveIndex() == session.CurrentSlideIndex {
		return monitor.Aggregator().Answers(), nil
	}
	return h.answers.GetBySessionAndSlide(ctx, session.ID, session.CurrentSlideIndex)
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}
