package memory

import (
	"fmt"
	"sync"
	"time"

	apperrors "github.com/yourusername/classroom-api/internal/pkg/errors"
)

// CacheRepo реализует repository.CacheRepository в памяти процесса.
// Используется в одиночном режиме, когда Redis отключен.
type CacheRepo struct {
	mu    sync.RWMutex
	items map[string]cacheItem
}

type cacheItem struct {
	value     string
	expiresAt time.Time // нулевое время — без истечения
}

// NewCacheRepo создает внутрипроцессный кеш
func NewCacheRepo() *CacheRepo {
	return &CacheRepo{items: make(map[string]cacheItem)}
}

// Set сохраняет значение в кеше
func (r *CacheRepo) Set(key string, value interface{}, expiration time.Duration) error {
	item := cacheItem{value: fmt.Sprintf("%v", value)}
	if expiration > 0 {
		item.expiresAt = time.Now().Add(expiration)
	}

	r.mu.Lock()
	r.items[key] = item
	r.mu.Unlock()
	return nil
}

// Get получает значение из кеша
func (r *CacheRepo) Get(key string) (string, error) {
	r.mu.RLock()
	item, ok := r.items[key]
	r.mu.RUnlock()

	if !ok {
		return "", apperrors.ErrNotFound
	}
	if !item.expiresAt.IsZero() && time.Now().After(item.expiresAt) {
		r.mu.Lock()
		delete(r.items, key)
		r.mu.Unlock()
		return "", apperrors.ErrNotFound
	}
	return item.value, nil
}

// Delete удаляет значение из кеша
func (r *CacheRepo) Delete(key string) error {
	r.mu.Lock()
	delete(r.items, key)
	r.mu.Unlock()
	return nil
}
