package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/classroom-api/internal/changefeed"
	"github.com/yourusername/classroom-api/internal/domain/entity"
	apperrors "github.com/yourusername/classroom-api/internal/pkg/errors"
)

func questionDeck() *entity.Deck {
	return &entity.Deck{Slides: []entity.Slide{
		{Type: entity.SlideTypeContent, Title: "intro"},
		{
			Type:     entity.SlideTypeQuestion,
			Title:    "q1",
			Question: "first?",
			Options: []entity.SlideOption{
				{ID: "a", Text: "A"},
				{ID: "b", Text: "B"},
			},
			CorrectOptionID: "a",
		},
	}}
}

func TestAnswerService_SubmitPublishesAnswerEvent(t *testing.T) {
	answers := new(MockAnswerRepo)
	users := new(MockUserRepo)
	feed := changefeed.NewMemoryFeed()
	defer feed.Close()

	answers.On("GetByParticipant", mock.Anything, "s1", "u1").Return([]entity.Answer{}, nil).Once()
	answers.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	users.On("GetByID", mock.Anything, "u1").Return(&entity.User{ID: "u1", DisplayName: "Alice"}, nil).Once()

	sub, err := feed.Subscribe(context.Background(), changefeed.Filter{
		Table:     changefeed.TableAnswers,
		SessionID: "s1",
	})
	require.NoError(t, err)
	defer sub.Close()

	svc := NewAnswerService(answers, users, questionDeck(), feed)
	answer, err := svc.Submit(context.Background(), "s1", "u1", 1, "b")
	require.NoError(t, err)
	assert.False(t, answer.IsCorrect)

	select {
	case event := <-sub.Events():
		decoded, err := event.DecodeAnswer()
		require.NoError(t, err)
		assert.Equal(t, "Alice", decoded.DisplayName)
		assert.Equal(t, "b", decoded.SelectedOptionID)
	case <-time.After(time.Second):
		t.Fatal("событие ответа не было опубликовано")
	}
}

func TestAnswerService_DuplicateNotPublished(t *testing.T) {
	answers := new(MockAnswerRepo)
	users := new(MockUserRepo)
	feed := changefeed.NewMemoryFeed()
	defer feed.Close()

	answers.On("GetByParticipant", mock.Anything, "s1", "u1").Return([]entity.Answer{
		{SessionID: "s1", UserID: "u1", SlideIndex: 1, SelectedOptionID: "a"},
	}, nil).Once()

	sub, err := feed.Subscribe(context.Background(), changefeed.Filter{
		Table:     changefeed.TableAnswers,
		SessionID: "s1",
	})
	require.NoError(t, err)
	defer sub.Close()

	svc := NewAnswerService(answers, users, questionDeck(), feed)
	_, err = svc.Submit(context.Background(), "s1", "u1", 1, "b")
	assert.ErrorIs(t, err, apperrors.ErrDuplicateSubmission)

	// Отклоненный ответ не производит события
	select {
	case event := <-sub.Events():
		t.Fatalf("неожиданное событие: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
	answers.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAnswerService_TrackerReusedAcrossCalls(t *testing.T) {
	answers := new(MockAnswerRepo)
	users := new(MockUserRepo)
	feed := changefeed.NewMemoryFeed()
	defer feed.Close()

	// Первая загрузка истории пуста; после освобождения сессии
	// повторная загрузка видит уже записанный ответ
	answers.On("GetByParticipant", mock.Anything, "s1", "u1").Return([]entity.Answer{}, nil).Once()
	answers.On("GetByParticipant", mock.Anything, "s1", "u1").Return([]entity.Answer{
		{SessionID: "s1", UserID: "u1", SlideIndex: 1, SelectedOptionID: "a"},
	}, nil).Once()
	answers.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	users.On("GetByID", mock.Anything, "u1").Return(&entity.User{ID: "u1", DisplayName: "Alice"}, nil)

	svc := NewAnswerService(answers, users, questionDeck(), feed)

	_, err := svc.Submit(context.Background(), "s1", "u1", 1, "a")
	require.NoError(t, err)
	answers.AssertNumberOfCalls(t, "GetByParticipant", 1)

	// Дубликат ловится локальной историей того же трекера
	_, err = svc.Submit(context.Background(), "s1", "u1", 1, "a")
	assert.ErrorIs(t, err, apperrors.ErrDuplicateSubmission)
	answers.AssertNumberOfCalls(t, "GetByParticipant", 1)

	// После освобождения сессии трекер создается заново
	svc.ReleaseSession("s1")
	_, err = svc.Submit(context.Background(), "s1", "u1", 1, "a")
	assert.ErrorIs(t, err, apperrors.ErrDuplicateSubmission)
	answers.AssertNumberOfCalls(t, "GetByParticipant", 2)
	answers.AssertExpectations(t)
}

func TestAnswerService_HistoryRereadsStore(t *testing.T) {
	answers := new(MockAnswerRepo)
	users := new(MockUserRepo)
	feed := changefeed.NewMemoryFeed()
	defer feed.Close()

	answers.On("GetByParticipant", mock.Anything, "s1", "u1").Return([]entity.Answer{
		{SessionID: "s1", UserID: "u1", SlideIndex: 1, SelectedOptionID: "a"},
	}, nil).Twice()

	svc := NewAnswerService(answers, users, questionDeck(), feed)

	history, err := svc.History(context.Background(), "s1", "u1")
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "a"}, history)

	// Повторный запрос истории — повторный bulk fetch (восстановление UI)
	_, err = svc.History(context.Background(), "s1", "u1")
	require.NoError(t, err)
	answers.AssertNumberOfCalls(t, "GetByParticipant", 2)
}
