package models

import "time"

const (
	// CardStatusUnused — карта ещё не активирована.
	CardStatusUnused = 0
	// CardStatusUsed — карта активирована.
	CardStatusUsed = 1
)

// Card — карта активации членства, выпускается вне сервиса.
type Card struct {
	ID         int64      `json:"id"`
	CardNo     string     `json:"card_no"`
	MemberType int        `json:"member_type"`
	Days       int        `json:"days"`
	Status     int        `json:"status"`
	UsedUserID *string    `json:"-"`
	UsedTime   *time.Time `json:"used_time,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// DummyCardExchange — тело запроса POST /member/card/exchange.
type DummyCardExchange struct {
	CardNo string `json:"cardNo" validate:"required,max=64"`
}

// CardInfo — публичные данные карты.
type CardInfo struct {
	MemberType int `json:"member_type"`
	Days       int `json:"days"`
	Status     int `json:"status"`
}

// Exchanged — результат активации карты.
type Exchanged struct {
	MemberType int       `json:"member_type"`
	Days       int       `json:"days"`
	ExpireTime time.Time `json:"expire_time"`
}
