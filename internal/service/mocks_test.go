package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/classroom-api/internal/domain/entity"
	"github.com/yourusername/classroom-api/internal/domain/repository"
)

// MockSessionRepo — мок repository.SessionRepository
type MockSessionRepo struct {
	mock.Mock
}

func (m *MockSessionRepo) Create(ctx context.Context, session *entity.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepo) GetByID(ctx context.Context, id string) (*entity.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Session), args.Error(1)
}

func (m *MockSessionRepo) GetByCode(ctx context.Context, code string) (*entity.Session, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Session), args.Error(1)
}

func (m *MockSessionRepo) UpdateSlideIndex(ctx context.Context, sessionID string, index int) error {
	args := m.Called(ctx, sessionID, index)
	return args.Error(0)
}

// MockUserRepo — мок repository.UserRepository
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, user *entity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

// MockAnswerRepo — мок repository.AnswerRepository
type MockAnswerRepo struct {
	mock.Mock
}

func (m *MockAnswerRepo) Create(ctx context.Context, answer *entity.Answer) error {
	args := m.Called(ctx, answer)
	return args.Error(0)
}

func (m *MockAnswerRepo) GetBySessionAndSlide(ctx context.Context, sessionID string, slideIndex int) ([]repository.AnswerWithParticipant, error) {
	args := m.Called(ctx, sessionID, slideIndex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.AnswerWithParticipant), args.Error(1)
}

func (m *MockAnswerRepo) GetByParticipant(ctx context.Context, sessionID, userID string) ([]entity.Answer, error) {
	args := m.Called(ctx, sessionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Answer), args.Error(1)
}

func (m *MockAnswerRepo) GetBySession(ctx context.Context, sessionID string) ([]repository.AnswerWithParticipant, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.AnswerWithParticipant), args.Error(1)
}
