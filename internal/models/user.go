// Package models содержит доменные структуры сервиса: пользователей, записи
// баллов, периоды членства, заказы, карты, реферальные записи и упражнения.
// Структуры используются в бизнес-логике, хранилище и HTTP-слое.
package models

import "time"

// User представляет пользователя мини-программы.
type User struct {
	ID         string     `json:"id"`          // Идентификатор пользователя (uuid), он же код приглашения
	OpenID     string     `json:"-"`           // Идентификатор пользователя у провайдера WeChat
	Phone      string     `json:"phone"`       // Телефон
	Nickname   string     `json:"nickname"`    // Отображаемое имя
	Avatar     string     `json:"avatar"`      // URL аватара
	Points     int        `json:"points"`      // Накопленные баллы
	MemberType int        `json:"member_type"` // Текущий уровень членства, 0 — нет
	ExpireTime *time.Time `json:"expire_time"` // Дата окончания членства
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsMember сообщает, действует ли членство пользователя на момент now.
func (u *User) IsMember(now time.Time) bool {
	return u.MemberType > 0 && u.ExpireTime != nil && u.ExpireTime.After(now)
}

// Profile — ответ для GET /user/info, хранится в кеше.
type Profile struct {
	Nickname   string     `json:"nickname"`
	Avatar     string     `json:"avatar"`
	Points     int        `json:"points"`
	Phone      string     `json:"phone"`
	MemberType int        `json:"member_type"`
	ExpireTime *time.Time `json:"expire_time"`
}

// LoginInfo — краткие данные пользователя, возвращаемые при входе.
type LoginInfo struct {
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
	Points   int    `json:"points"`
	IsMember bool   `json:"is_member"`
}

// LoginResult — результат входа через WeChat.
type LoginResult struct {
	Token     string    `json:"token"`
	IsNewUser bool      `json:"is_new_user"`
	UserInfo  LoginInfo `json:"user_info"`
}

// DummyLogin используется для приёма тела запроса POST /user/login.
type DummyLogin struct {
	Code       string `json:"code" validate:"required"`
	Phone      string `json:"phone" validate:"omitempty,max=20"`
	InviteCode string `json:"invite_code" validate:"omitempty,uuid"`
}
