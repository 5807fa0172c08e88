// Package models содержит доменные структуры: пользователь, подписка,
// промокод, покупка, а также вспомогательные типы для приёма данных
// из внешних источников (JSON-запросы) и ответов движка.
package models

import "time"

// Допустимые типы подписки. Trial не продаётся, остальные перечислены
// в таблице subscription_types вместе с ценой и длительностью.
const (
	SubtypeTrial      = "trial"
	SubtypeDaily      = "daily"
	SubtypeMonthly    = "monthly"
	SubtypeQuarterly  = "quarterly"
	SubtypeHalfYearly = "half-yearly"
	SubtypeYearly     = "yearly"
)

// Subscription представляет авторитетную запись о праве доступа пользователя.
// EndDate может быть nil — подписка ни разу не активировалась.
// Поле Active достоверно только пока EndDate в будущем: просроченная запись
// с active=1 трактуется читающими путями как неактивная.
type Subscription struct {
	UserID      int64      `json:"user_id"`
	EndDate     *time.Time `json:"end_date"`
	Active      bool       `json:"active"`
	TrialUsed   bool       `json:"trial_used"`
	AutoRenewal bool       `json:"auto_renewal"`
	Lang        string     `json:"lang"`
	Subtype     string     `json:"subtype"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SubscriptionUpdate описывает частичное обновление записи подписки.
// nil-поле означает "не трогать текущее значение". TrialUsed выставляется
// только в true и назад не откатывается.
type SubscriptionUpdate struct {
	UserID      int64
	EndDate     *time.Time
	Active      *bool
	TrialUsed   *bool
	AutoRenewal *bool
	Subtype     *string
	Lang        *string
}

// SubscriptionType строка тарифной таблицы: цена в звёздах и длительность в днях.
type SubscriptionType struct {
	Name         string `json:"name"`
	Price        int    `json:"price"`
	DurationDays int    `json:"duration_days"`
}

// ExpiringEntitlement запись для планировщика напоминаний о продлении.
type ExpiringEntitlement struct {
	UserID  int64     `json:"user_id"`
	EndDate time.Time `json:"end_date"`
	Subtype string    `json:"subtype"`
	Lang    string    `json:"lang"`
}
