package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// ReferralRewardTier — уровень членства, выдаваемый за приглашение.
	ReferralRewardTier = 1
	// ReferralRewardDays — дни членства за приглашение каждой стороне.
	ReferralRewardDays = 7
	// MonthlyReferralQuota — лимит вознаграждаемых приглашений в месяц.
	MonthlyReferralQuota = 10
)

// MembershipPeriod — запись истории выдачи членства.
type MembershipPeriod struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	MemberType int       `json:"member_type"`
	ExpireTime time.Time `json:"expire_time"`
	CreatedAt  time.Time `json:"created_at"`
}

// Tier описывает позицию каталога членства.
type Tier struct {
	MemberType int             // Номер уровня
	Days       int             // Количество дней
	Amount     decimal.Decimal // Цена в юанях
	Name       string          // Название для описания платежа
}

// AmountFen возвращает цену в фэнях (минимальных единицах).
func (t Tier) AmountFen() int64 {
	return t.Amount.Shift(2).Round(0).IntPart()
}

// Catalog — фиксированный каталог уровней членства.
type Catalog map[int]Tier

// Lookup возвращает уровень по номеру.
func (c Catalog) Lookup(memberType int) (Tier, bool) {
	t, ok := c[memberType]
	return t, ok
}

// DefaultCatalog возвращает каталог по умолчанию.
func DefaultCatalog() Catalog {
	return Catalog{
		1: {MemberType: 1, Days: 7, Amount: decimal.RequireFromString("9.9"), Name: "7天会员"},
		2: {MemberType: 2, Days: 30, Amount: decimal.RequireFromString("29.9"), Name: "30天会员"},
		3: {MemberType: 3, Days: 365, Amount: decimal.RequireFromString("299"), Name: "365天会员"},
	}
}

// GrantEvent публикуется в брокер после выдачи членства.
type GrantEvent struct {
	UserID     string    `json:"user_id"`
	MemberType int       `json:"member_type"`
	Days       int       `json:"days"`
	ExpireTime time.Time `json:"expire_time"`
}
