package models

import "time"

// ShareRecord — запись о приглашении. На одного приглашённого не больше одной записи.
type ShareRecord struct {
	ID         int64     `json:"id"`
	SharerID   string    `json:"sharer_id"`
	InviteeID  string    `json:"invitee_id"`
	RewardDays int       `json:"reward_days"`
	CreatedAt  time.Time `json:"created_at"`
}

// ShareStats — статистика приглашений пользователя.
type ShareStats struct {
	TotalInvites     int `json:"total_invites"`
	MonthInvites     int `json:"month_invites"`
	TotalRewardDays  int `json:"total_reward_days"`
	MonthRemainTimes int `json:"month_remain_times"`
}

// DummyInvite — тело запроса POST /share/invite.
type DummyInvite struct {
	InviteCode string `json:"inviteCode" validate:"required"`
}

// InviteReward — результат применения кода приглашения.
type InviteReward struct {
	RewardDays int       `json:"reward_days"`
	ExpireTime time.Time `json:"expire_time"`
}
