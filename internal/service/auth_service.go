package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/yourusername/classroom-api/internal/domain/entity"
	"github.com/yourusername/classroom-api/internal/domain/repository"
	apperrors "github.com/yourusername/classroom-api/internal/pkg/errors"
	"github.com/yourusername/classroom-api/pkg/auth"
)

// AuthService отвечает за регистрацию и вход пользователей.
// Ядру синхронизации от identity нужны только id и display_name.
type AuthService struct {
	users repository.UserRepository
	jwt   *auth.JWTService
}

// NewAuthService создает сервис аутентификации
func NewAuthService(users repository.UserRepository, jwt *auth.JWTService) *AuthService {
	return &AuthService{
		users: users,
		jwt:   jwt,
	}
}

// Register создает пользователя и возвращает его вместе с токеном доступа
func (s *AuthService) Register(ctx context.Context, email, displayName, password string) (*entity.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || displayName == "" || len(password) < 6 {
		return nil, "", fmt.Errorf("%w: email, display name and password (min 6 chars) are required", apperrors.ErrValidation)
	}

	user := &entity.User{
		Email:       email,
		DisplayName: displayName,
	}
	if err := user.SetPassword(password); err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, "", fmt.Errorf("%w: email already registered", apperrors.ErrConflict)
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}

	log.Printf("[AuthService] Зарегистрирован пользователь %s (%s)", user.ID, email)
	return user, token, nil
}

// Login проверяет учетные данные и возвращает пользователя с токеном
func (s *AuthService) Login(ctx context.Context, email, password string) (*entity.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, "", apperrors.ErrUnauthorized
		}
		return nil, "", err
	}

	if !user.CheckPassword(password) {
		return nil, "", apperrors.ErrUnauthorized
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}

	return user, token, nil
}

// GetUser возвращает пользователя по id
func (s *AuthService) GetUser(ctx context.Context, id string) (*entity.User, error) {
	return s.users.GetByID(ctx, id)
}
