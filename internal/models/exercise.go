package models

import "time"

const (
	// GenerateByChars — генерация по введённым иероглифам.
	GenerateByChars = 1
	// GenerateByUnit — генерация по уроку учебника.
	GenerateByUnit = 2
)

// ExerciseContent — четыре уровня упражнения.
type ExerciseContent struct {
	Level1 []string `json:"level_1"`
	Level2 []string `json:"level_2"`
	Level3 []string `json:"level_3"`
	Level4 []string `json:"level_4"`
}

// Levels возвращает указатели на уровни в порядке 1..4.
func (c *ExerciseContent) Levels() [4]*[]string {
	return [4]*[]string{&c.Level1, &c.Level2, &c.Level3, &c.Level4}
}

// Exercise — сгенерированное упражнение пользователя.
type Exercise struct {
	ID         string          `json:"id"`
	UserID     string          `json:"-"`
	BaseChars  string          `json:"base_chars"`
	Difficulty int             `json:"difficulty"`
	Style      int             `json:"style"`
	Content    ExerciseContent `json:"content"`
	AudioURLs  [4]string       `json:"-"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ExerciseView — представление упражнения в ответах API.
type ExerciseView struct {
	ID         string          `json:"id,omitempty"`
	BaseChars  string          `json:"base_chars,omitempty"`
	Difficulty int             `json:"difficulty,omitempty"`
	Content    ExerciseContent `json:"content"`
	AudioURL1  string          `json:"audio_url_1"`
	AudioURL2  string          `json:"audio_url_2"`
	AudioURL3  string          `json:"audio_url_3"`
	AudioURL4  string          `json:"audio_url_4"`
	CreatedAt  *time.Time      `json:"created_at,omitempty"`
}

// View собирает представление упражнения.
func (e *Exercise) View() ExerciseView {
	v := ExerciseView{
		ID:         e.ID,
		BaseChars:  e.BaseChars,
		Difficulty: e.Difficulty,
		Content:    e.Content,
		AudioURL1:  e.AudioURLs[0],
		AudioURL2:  e.AudioURLs[1],
		AudioURL3:  e.AudioURLs[2],
		AudioURL4:  e.AudioURLs[3],
	}
	if !e.CreatedAt.IsZero() {
		created := e.CreatedAt
		v.CreatedAt = &created
	}
	return v
}

// DummyGenerate — тело запроса POST /exercise/generate.
type DummyGenerate struct {
	Type       int    `json:"type" validate:"required,oneof=1 2"`
	Chars      string `json:"chars" validate:"max=200"`
	UnitID     int    `json:"unitId" validate:"gte=0"`
	Difficulty int    `json:"difficulty" validate:"omitempty,min=1,max=4"`
	Style      int    `json:"style" validate:"omitempty,min=1,max=4"`
}

// DummyShuffle — тело запроса POST /exercise/shuffle.
type DummyShuffle struct {
	ExerciseID string `json:"exerciseId" validate:"required,uuid"`
}
