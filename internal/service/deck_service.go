package service

import (
	"fmt"
	"log"

	"github.com/spf13/viper"

	"github.com/yourusername/classroom-api/internal/domain/entity"
)

// DeckService отдает статичную колоду презентации.
// Колода грузится один раз при старте и никогда не мутируется:
// она одинакова для всех клиентов и не участвует в синхронизации.
type DeckService struct {
	deck entity.Deck
}

// NewDeckService грузит колоду из YAML-файла; при пустом пути или
// отсутствии файла используется встроенная демонстрационная колода.
func NewDeckService(deckPath string) (*DeckService, error) {
	if deckPath == "" {
		log.Println("[DeckService] Путь к колоде не задан, используется встроенная колода")
		return &DeckService{deck: defaultDeck()}, nil
	}

	vip := viper.New()
	vip.SetConfigFile(deckPath)
	if err := vip.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read deck file %s: %w", deckPath, err)
	}

	var deck entity.Deck
	if err := vip.Unmarshal(&deck); err != nil {
		return nil, fmt.Errorf("unmarshal deck file %s: %w", deckPath, err)
	}
	if err := validateDeck(&deck); err != nil {
		return nil, fmt.Errorf("invalid deck file %s: %w", deckPath, err)
	}

	log.Printf("[DeckService] Колода загружена из %s: %d слайдов", deckPath, deck.Len())
	return &DeckService{deck: deck}, nil
}

// Deck возвращает полную колоду (с ключами правильных ответов) — для хоста
// и внутренних потребителей
func (s *DeckService) Deck() *entity.Deck {
	return &s.deck
}

// PublicDeck возвращает колоду без ключей правильных ответов — для участников
func (s *DeckService) PublicDeck() entity.Deck {
	return s.deck.Sanitized()
}

// validateDeck проверяет согласованность колоды при загрузке
func validateDeck(deck *entity.Deck) error {
	if deck.Len() == 0 {
		return fmt.Errorf("deck has no slides")
	}
	for i := range deck.Slides {
		slide := &deck.Slides[i]
		switch slide.Type {
		case entity.SlideTypeContent:
		case entity.SlideTypeQuestion:
			if len(slide.Options) < 2 {
				return fmt.Errorf("question slide %d has fewer than 2 options", i)
			}
			if slide.CorrectOptionID != "" && !slide.HasOption(slide.CorrectOptionID) {
				return fmt.Errorf("question slide %d: correct option %q is not among options", i, slide.CorrectOptionID)
			}
		default:
			return fmt.Errorf("slide %d has unknown type %q", i, slide.Type)
		}
	}
	return nil
}

// defaultDeck — встроенная демонстрационная презентация
func defaultDeck() entity.Deck {
	return entity.Deck{Slides: []entity.Slide{
		{
			Type:  entity.SlideTypeContent,
			Title: "Welcome to Interactive Learning!",
			Content: []string{
				"This is a demonstration of an interactive presentation.",
				"The host controls the slides, participants follow along.",
				"Get ready to answer some questions!",
			},
			Image: "https://picsum.photos/800/450?random=1",
		},
		{
			Type:     entity.SlideTypeQuestion,
			Title:    "Question 1: Go",
			Question: "What company originally developed the Go programming language?",
			Options: []entity.SlideOption{
				{ID: "a", Text: "Google"},
				{ID: "b", Text: "Meta"},
				{ID: "c", Text: "Microsoft"},
				{ID: "d", Text: "Apple"},
			},
			CorrectOptionID: "a",
		},
		{
			Type:  entity.SlideTypeContent,
			Title: "Concurrency in Go",
			Content: []string{
				"Goroutines are lightweight threads managed by the Go runtime.",
				"Channels let goroutines communicate without explicit locks.",
				"This server pushes slide changes to you through exactly such channels.",
			},
			Image: "https://picsum.photos/800/450?random=2",
		},
		{
			Type:     entity.SlideTypeQuestion,
			Title:    "Question 2: Channels",
			Question: "Which statement sends a value into a channel?",
			Options: []entity.SlideOption{
				{ID: "a", Text: "ch -> v"},
				{ID: "b", Text: "ch <- v"},
				{ID: "c", Text: "v <- ch"},
				{ID: "d", Text: "send(ch, v)"},
			},
			CorrectOptionID: "b",
		},
		{
			Type:  entity.SlideTypeContent,
			Title: "Thank you for participating!",
			Content: []string{
				"Interactive sessions make learning more engaging and effective.",
				"You can check your score on your device.",
			},
			Image: "https://picsum.photos/800/450?random=3",
		},
	}}
}
