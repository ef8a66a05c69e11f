package entity

import (
	"time"
)

// Session представляет один живой запуск презентации.
// Единственное изменяемое поле — CurrentSlideIndex, и меняет его только хост.
type Session struct {
	ID                string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Code              string    `gorm:"size:6;not null;uniqueIndex" json:"code"`
	HostID            string    `gorm:"type:uuid;not null;index" json:"host_id"`
	CurrentSlideIndex int       `gorm:"not null;default:0" json:"current_slide_index"`
	CreatedAt         time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Session) TableName() string {
	return "sessions"
}
