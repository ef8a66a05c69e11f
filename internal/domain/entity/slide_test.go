package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDeck() Deck {
	return Deck{Slides: []Slide{
		{Type: SlideTypeContent, Title: "intro"},
		{
			Type:     SlideTypeQuestion,
			Title:    "q1",
			Question: "pick one",
			Options: []SlideOption{
				{ID: "a", Text: "A"},
				{ID: "b", Text: "B"},
			},
			CorrectOptionID: "a",
		},
		{
			Type:     SlideTypeQuestion,
			Title:    "poll",
			Question: "no right answer",
			Options: []SlideOption{
				{ID: "x", Text: "X"},
				{ID: "y", Text: "Y"},
			},
			// Без ключа: опрос, ответы не принимаются
		},
	}}
}

func TestSlide_AnswerKey(t *testing.T) {
	deck := sampleDeck()

	content, _ := deck.Slide(0)
	assert.False(t, content.IsQuestion())
	assert.False(t, content.HasAnswerKey())

	question, _ := deck.Slide(1)
	assert.True(t, question.IsQuestion())
	assert.True(t, question.HasAnswerKey())
	assert.True(t, question.IsCorrect("a"))
	assert.False(t, question.IsCorrect("b"))
	assert.True(t, question.HasOption("b"))
	assert.False(t, question.HasOption("z"))

	poll, _ := deck.Slide(2)
	assert.True(t, poll.IsQuestion())
	assert.False(t, poll.HasAnswerKey())
	assert.False(t, poll.IsCorrect("x"))
}

func TestDeck_ValidIndex(t *testing.T) {
	deck := sampleDeck()

	assert.True(t, deck.ValidIndex(0))
	assert.True(t, deck.ValidIndex(2))
	assert.False(t, deck.ValidIndex(-1))
	assert.False(t, deck.ValidIndex(3))

	_, ok := deck.Slide(3)
	assert.False(t, ok)
}

func TestDeck_Sanitized(t *testing.T) {
	deck := sampleDeck()
	public := deck.Sanitized()

	require.Equal(t, deck.Len(), public.Len())
	for _, slide := range public.Slides {
		assert.Empty(t, slide.CorrectOptionID)
	}

	// Исходная колода не тронута
	original, _ := deck.Slide(1)
	assert.Equal(t, "a", original.CorrectOptionID)
}
