package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yourusername/classroom-api/internal/domain/entity"
	"github.com/yourusername/classroom-api/internal/domain/repository"
	apperrors "github.com/yourusername/classroom-api/internal/pkg/errors"
)

const (
	// Длина кода подключения (как вводят участники)
	sessionCodeLength = 6

	// Алфавит кода: без строчных, вводится с телефона
	sessionCodeCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// Количество попыток при коллизии кода. Уникальность best-effort.
	sessionCodeAttempts = 5

	// TTL кеша маппинга код -> id сессии
	codeCacheTTL = 12 * time.Hour

	codeCachePrefix = "session_code:"
)

// SessionService отвечает за создание сессий и резолв кодов подключения
type SessionService struct {
	sessions repository.SessionRepository
	cache    repository.CacheRepository
}

// NewSessionService создает сервис сессий
func NewSessionService(sessions repository.SessionRepository, cache repository.CacheRepository) *SessionService {
	return &SessionService{
		sessions: sessions,
		cache:    cache,
	}
}

// CreateSession создает сессию для хоста с новым кодом подключения.
// При коллизии кода генерирует новый и повторяет (ограниченное число попыток).
func (s *SessionService) CreateSession(ctx context.Context, hostID string) (*entity.Session, error) {
	for attempt := 0; attempt < sessionCodeAttempts; attempt++ {
		code, err := generateSessionCode()
		if err != nil {
			return nil, fmt.Errorf("generate session code: %w", err)
		}

		session := &entity.Session{
			Code:              code,
			HostID:            hostID,
			CurrentSlideIndex: 0,
		}
		err = s.sessions.Create(ctx, session)
		if err == nil {
			s.cacheCode(session)
			log.Printf("[SessionService] Сессия %s создана хостом %s, код %s", session.ID, hostID, code)
			return session, nil
		}
		if errors.Is(err, repository.ErrCodeTaken) {
			log.Printf("[SessionService] Коллизия кода %s (попытка %d), генерируем новый", code, attempt+1)
			continue
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	return nil, fmt.Errorf("%w: could not allocate unique session code after %d attempts",
		apperrors.ErrConflict, sessionCodeAttempts)
}

// ResolveCode находит сессию по коду подключения (без учета регистра).
// Несуществующий код — ErrNotFound, никакого состояния при этом не создается.
func (s *SessionService) ResolveCode(ctx context.Context, code string) (*entity.Session, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if len(normalized) != sessionCodeLength {
		return nil, fmt.Errorf("%w: session code %q", apperrors.ErrNotFound, code)
	}

	// Горячий путь: маппинг код -> id в кеше (коды неизменяемы)
	if id, err := s.cache.Get(codeCachePrefix + normalized); err == nil && id != "" {
		session, err := s.sessions.GetByID(ctx, id)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		// Кеш указывает на несуществующую сессию — чистим и идем в БД
		if err := s.cache.Delete(codeCachePrefix + normalized); err != nil {
			log.Printf("[SessionService] Ошибка очистки кеша кода %s: %v", normalized, err)
		}
	}

	session, err := s.sessions.GetByCode(ctx, normalized)
	if err != nil {
		return nil, err
	}
	s.cacheCode(session)
	return session, nil
}

// GetSession возвращает сессию по id
func (s *SessionService) GetSession(ctx context.Context, id string) (*entity.Session, error) {
	return s.sessions.GetByID(ctx, id)
}

// RequireHost проверяет, что пользователь является хостом сессии
func (s *SessionService) RequireHost(session *entity.Session, userID string) error {
	if session.HostID != userID {
		return fmt.Errorf("%w: user %s is not the host of session %s", apperrors.ErrForbidden, userID, session.ID)
	}
	return nil
}

// cacheCode сохраняет маппинг код -> id; ошибки кеша не фатальны
func (s *SessionService) cacheCode(session *entity.Session) {
	if err := s.cache.Set(codeCachePrefix+session.Code, session.ID, codeCacheTTL); err != nil {
		log.Printf("[SessionService] Ошибка кеширования кода %s: %v", session.Code, err)
	}
}

// generateSessionCode генерирует случайный код подключения
func generateSessionCode() (string, error) {
	buf := make([]byte, sessionCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	code := make([]byte, sessionCodeLength)
	for i, b := range buf {
		code[i] = sessionCodeCharset[int(b)%len(sessionCodeCharset)]
	}
	return string(code), nil
}
