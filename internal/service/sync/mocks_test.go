package sync

import (
	"context"
	"sync"

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

// recordingBroadcaster собирает разосланные сообщения для проверок
type recordingBroadcaster struct {
	mu       sync.Mutex
	toAll    [][]byte
	toHost   [][]byte
	notifyCh chan struct{}
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{notifyCh: make(chan struct{}, 64)}
}

func (b *recordingBroadcaster) BroadcastToSession(sessionID string, message []byte) {
	b.mu.Lock()
	b.toAll = append(b.toAll, message)
	b.mu.Unlock()
	b.notifyCh <- struct{}{}
}

func (b *recordingBroadcaster) BroadcastToHost(sessionID string, message []byte) {
	b.mu.Lock()
	b.toHost = append(b.toHost, message)
	b.mu.Unlock()
	b.notifyCh <- struct{}{}
}

func (b *recordingBroadcaster) allMessages() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]byte, len(b.toAll))
	copy(out, b.toAll)
	return out
}

func (b *recordingBroadcaster) hostMessages() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]byte, len(b.toHost))
	copy(out, b.toHost)
	return out
}

// testDeck — колода для тестов: контентный слайд, два вопроса, финальный слайд
func testDeck() *entity.Deck {
	return &entity.Deck{Slides: []entity.Slide{
		{Type: entity.SlideTypeContent, Title: "intro"},
		{
			Type:     entity.SlideTypeQuestion,
			Title:    "q1",
			Question: "first?",
			Options: []entity.SlideOption{
				{ID: "a", Text: "A"},
				{ID: "b", Text: "B"},
				{ID: "c", Text: "C"},
			},
			CorrectOptionID: "a",
		},
		{
			Type:     entity.SlideTypeQuestion,
			Title:    "q2",
			Question: "second?",
			Options: []entity.SlideOption{
				{ID: "x", Text: "X"},
				{ID: "y", Text: "Y"},
			},
			CorrectOptionID: "y",
		},
		{Type: entity.SlideTypeContent, Title: "outro"},
	}}
}
