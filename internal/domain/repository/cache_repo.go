package repository

import "time"

// CacheRepository определяет методы для работы с кешем (Redis).
// Используется для горячего маппинга код сессии -> id,
// чтобы не ходить в Postgres на каждый join по коду.
type CacheRepository interface {
	Set(key string, value interface{}, expiration time.Duration) error
	Get(key string) (string, error)
	Delete(key string) error
}
