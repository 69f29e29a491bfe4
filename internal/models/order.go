package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// OrderStatusUnpaid — заказ создан, оплата не поступила.
	OrderStatusUnpaid = 0
	// OrderStatusPaid — заказ оплачен, конечное состояние.
	OrderStatusPaid = 1

	// OrderSourcePurchase — покупка через платёжный шлюз.
	OrderSourcePurchase = 1
	// OrderSourceCard — активация карты.
	OrderSourceCard = 2
)

// Order — заказ на членство.
type Order struct {
	ID            int64           `json:"id"`
	UserID        string          `json:"user_id"`
	OrderNo       string          `json:"order_no"`
	Amount        decimal.Decimal `json:"amount"`
	MemberType    int             `json:"member_type"`
	Days          int             `json:"days"`
	SourceType    int             `json:"type"`
	Status        int             `json:"status"`
	TransactionID *string         `json:"transaction_id,omitempty"`
	PayTime       *time.Time      `json:"pay_time,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// DummyOrder используется для приёма тела запроса POST /member/order/create.
type DummyOrder struct {
	Type       int `json:"type" validate:"omitempty,eq=1"`
	MemberType int `json:"memberType" validate:"required"`
}

// CreatedOrder — результат создания заказа.
type CreatedOrder struct {
	OrderNo    string          `json:"order_no"`
	Amount     decimal.Decimal `json:"amount"`
	MemberType int             `json:"member_type"`
	Days       int             `json:"days"`
	PayParams  any             `json:"pay_params"`
}

// OrderState — результат запроса статуса заказа.
type OrderState struct {
	Status     int        `json:"status"`
	MemberType int        `json:"member_type"`
	ExpireTime *time.Time `json:"expire_time"`
}
