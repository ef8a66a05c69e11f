package entity

import (
	"time"
)

// Answer представляет ответ участника на конкретный слайд конкретной сессии.
// Записи append-only: никогда не изменяются и не удаляются.
// Уникальность (session_id, user_id, slide_index) гарантируется индексом в БД.
type Answer struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	SessionID        string    `gorm:"type:uuid;not null;index:idx_answers_submission,unique,priority:1" json:"session_id"`
	UserID           string    `gorm:"type:uuid;not null;index:idx_answers_submission,unique,priority:2" json:"user_id"`
	SlideIndex       int       `gorm:"not null;index:idx_answers_submission,unique,priority:3" json:"slide_index"`
	SelectedOptionID string    `gorm:"size:64;not null" json:"selected_option_id"`
	IsCorrect        bool      `gorm:"not null" json:"is_correct"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Answer) TableName() string {
	return "answers"
}
