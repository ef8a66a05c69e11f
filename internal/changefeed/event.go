package changefeed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/yourusername/classroom-api/internal/domain/entity"
	"github.com/yourusername/classroom-api/internal/domain/repository"
)

// Имена таблиц, по которым рассылаются события
const (
	TableSessions = "sessions"
	TableAnswers  = "answers"
)

// Операции над строками
const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
)

// Event представляет событие изменения строки (insert/update),
// доставляемое подписчикам фида. Payload содержит новую версию строки.
type Event struct {
	Table     string          `json:"table"`
	Op        string          `json:"op"`
	SessionID string          `json:"session_id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewSessionEvent собирает событие обновления сессии
func NewSessionEvent(op string, session *entity.Session) (Event, error) {
	payload, err := json.Marshal(session)
	if err != nil {
		return Event{}, fmt.Errorf("marshal session payload: %w", err)
	}
	return Event{
		Table:     TableSessions,
		Op:        op,
		SessionID: session.ID,
		Payload:   payload,
		Timestamp: time.Now(),
	}, nil
}

// NewAnswerEvent собирает событие вставки ответа
func NewAnswerEvent(answer *repository.AnswerWithParticipant) (Event, error) {
	payload, err := json.Marshal(answer)
	if err != nil {
		return Event{}, fmt.Errorf("marshal answer payload: %w", err)
	}
	return Event{
		Table:     TableAnswers,
		Op:        OpInsert,
		SessionID: answer.SessionID,
		Payload:   payload,
		Timestamp: time.Now(),
	}, nil
}

// DecodeSession разбирает payload события таблицы sessions
func (e *Event) DecodeSession() (*entity.Session, error) {
	if e.Table != TableSessions {
		return nil, fmt.Errorf("event is for table %q, not %q", e.Table, TableSessions)
	}
	var session entity.Session
	if err := json.Unmarshal(e.Payload, &session); err != nil {
		return nil, fmt.Errorf("decode session payload: %w", err)
	}
	return &session, nil
}

// DecodeAnswer разбирает payload события таблицы answers
func (e *Event) DecodeAnswer() (*repository.AnswerWithParticipant, error) {
	if e.Table != TableAnswers {
		return nil, fmt.Errorf("event is for table %q, not %q", e.Table, TableAnswers)
	}
	var answer repository.AnswerWithParticipant
	if err := json.Unmarshal(e.Payload, &answer); err != nil {
		return nil, fmt.Errorf("decode answer payload: %w", err)
	}
	return &answer, nil
}

// Filter определяет серверный предикат подписки: таблица плюс равенство по сессии.
type Filter struct {
	Table     string
	SessionID string
}

// Channel возвращает имя канала фида для этого фильтра
func (f Filter) Channel() string {
	return fmt.Sprintf("changefeed:%s:%s", f.Table, f.SessionID)
}

// Matches проверяет событие на соответствие фильтру
func (f Filter) Matches(e *Event) bool {
	return e.Table == f.Table && e.SessionID == f.SessionID
}
