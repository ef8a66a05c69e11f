package entity

// Типы слайдов
const (
	SlideTypeContent  = "content"
	SlideTypeQuestion = "question"
)

// SlideOption представляет один вариант ответа на слайде-вопросе
type SlideOption struct {
	ID   string `json:"id" mapstructure:"id"`
	Text string `json:"text" mapstructure:"text"`
}

// Slide представляет один слайд статичной колоды.
// Либо контентный слайд (заголовок, абзацы, картинка),
// либо вопрос (текст вопроса, варианты, правильный вариант).
type Slide struct {
	Type            string        `json:"type" mapstructure:"type"`
	Title           string        `json:"title" mapstructure:"title"`
	Content         []string      `json:"content,omitempty" mapstructure:"content"`
	Image           string        `json:"image,omitempty" mapstructure:"image"`
	Question        string        `json:"question,omitempty" mapstructure:"question"`
	Options         []SlideOption `json:"options,omitempty" mapstructure:"options"`
	CorrectOptionID string        `json:"correct_option_id,omitempty" mapstructure:"correct_option_id"`
}

// IsQuestion возвращает true, если слайд является вопросом
func (s *Slide) IsQuestion() bool {
	return s.Type == SlideTypeQuestion
}

// HasAnswerKey возвращает true, если у слайда настроен правильный вариант.
// Без ключа ответы не принимаются: невозможно вычислить is_correct.
func (s *Slide) HasAnswerKey() bool {
	return s.IsQuestion() && s.CorrectOptionID != ""
}

// IsCorrect проверяет, является ли выбранный вариант правильным
func (s *Slide) IsCorrect(optionID string) bool {
	return s.HasAnswerKey() && s.CorrectOptionID == optionID
}

// HasOption проверяет, что вариант с таким ID вообще есть на слайде
func (s *Slide) HasOption(optionID string) bool {
	for _, opt := range s.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

// Sanitized возвращает копию слайда без ключа правильного ответа.
// Отдается участникам: ключ не должен утекать на клиент.
func (s Slide) Sanitized() Slide {
	s.CorrectOptionID = ""
	return s
}

// Deck представляет упорядоченную статичную колоду слайдов.
// Колода одинакова для всех клиентов и никогда не мутируется.
type Deck struct {
	Slides []Slide `json:"slides" mapstructure:"slides"`
}

// Len возвращает количество слайдов в колоде
func (d *Deck) Len() int {
	return len(d.Slides)
}

// ValidIndex проверяет инвариант 0 <= index < deckLength
func (d *Deck) ValidIndex(index int) bool {
	return index >= 0 && index < len(d.Slides)
}

// Slide возвращает слайд по индексу и признак его существования
func (d *Deck) Slide(index int) (*Slide, bool) {
	if !d.ValidIndex(index) {
		return nil, false
	}
	return &d.Slides[index], true
}

// Sanitized возвращает копию колоды без ключей правильных ответов
func (d *Deck) Sanitized() Deck {
	out := Deck{Slides: make([]Slide, 0, len(d.Slides))}
	for _, s := range d.Slides {
		out.Slides = append(out.Slides, s.Sanitized())
	}
	return out
}
