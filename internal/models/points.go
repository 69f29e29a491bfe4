package models

import "time"

const (
	// PointsTypeGeneration — баллы, начисленные за генерацию упражнения.
	PointsTypeGeneration = 1
	// DailyPointsCap — дневной лимит баллов за генерацию.
	DailyPointsCap = 100
	// GenerationReward — баллы за одну генерацию.
	GenerationReward = 10
	// GenerationRemark — примечание к записи о начислении за генерацию.
	GenerationRemark = "生成题目"
)

// PointsRecord — неизменяемая запись журнала баллов.
type PointsRecord struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"-"`
	Points    int       `json:"points"` // Знаковое изменение баланса
	Type      int       `json:"type"`
	Remark    string    `json:"remark"`
	CreatedAt time.Time `json:"created_at"`
}

// TodayPoints — сводка баллов пользователя за текущие сутки.
type TodayPoints struct {
	TodayPoints  int `json:"today_points"`
	RemainPoints int `json:"remain_points"`
}

// Page описывает страницу результатов списка.
type Page[T any] struct {
	Total int `json:"total"`
	List  []T `json:"list"`
}

// Pagination — параметры постраничной выборки из query-строки.
type Pagination struct {
	Page int `validate:"gte=1"`
	Size int `validate:"gte=1,lte=100"`
}

// Offset возвращает смещение для SQL-запроса.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Size
}
