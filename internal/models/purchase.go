package models

import "time"

// Purchase строка журнала покупок. Записи только добавляются,
// никогда не изменяются и не удаляются.
type Purchase struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Subtype   string    `json:"subscription"`
	Price     int       `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}

// DummyActivate используется для приёма данных вебхука платёжного провайдера.
type DummyActivate struct {
	UserID    int64  `json:"user_id" validate:"required"`
	Subtype   string `json:"subscription_type" validate:"required"`
	IsRenewal bool   `json:"is_renewal"`
}
