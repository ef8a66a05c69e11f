package entity

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User представляет учетную запись (хост или участник).
// Ядро синхронизации использует только ID и DisplayName.
type User struct {
	ID           string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	DisplayName  string    `gorm:"size:100;not null" json:"display_name"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (User) TableName() string {
	return "users"
}

// SetPassword хеширует и устанавливает пароль пользователя
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword проверяет, соответствует ли пароль хешу
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}
