package models

import "time"

// PromoCode описывает промокод. DiscountDays — количество дней, на которое
// продлевается подписка. Used — глобальный выключатель кода, выставляется
// оператором; повторные применения одним пользователем ловит журнал попыток.
type PromoCode struct {
	Code           string     `json:"code"`
	DiscountDays   int        `json:"discount_days"`
	ExpirationDate *time.Time `json:"expiration_date"`
	Used           bool       `json:"used"`
}

// PromoResult итог успешного применения промокода.
type PromoResult struct {
	DaysAdded  int       `json:"days_added"`
	NewEndDate time.Time `json:"new_end_date"`
}

// DummyPromoApply используется для приёма кода из JSON-запроса.
type DummyPromoApply struct {
	Code string `json:"code" validate:"required,alphanum"`
}
