// Package errs определяет закрытый набор доменных ошибок движка доступа.
// Обработчики сопоставляют их через errors.Is и не заглядывают внутрь:
// текст ошибки аутентификации намеренно не различает причину отказа.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthenticationFailed подпись неверна, assertion устарел или токен не живой.
	ErrAuthenticationFailed = errors.New("authentication failed")
	// ErrInvalidSubscriptionType неизвестный тип подписки.
	ErrInvalidSubscriptionType = errors.New("invalid subscription type")
	// ErrPromoNotFound промокод не существует.
	ErrPromoNotFound = errors.New("promo code not found")
	// ErrPromoExpired промокод просрочен или отключён.
	ErrPromoExpired = errors.New("promo code expired")
	// ErrPromoAlreadyUsed пользователь уже применял этот промокод.
	ErrPromoAlreadyUsed = errors.New("promo code already used")
	// ErrTrialAlreadyUsed пробный период уже был выдан.
	ErrTrialAlreadyUsed = errors.New("trial already used")
	// ErrNoSubscription у пользователя нет записи подписки.
	ErrNoSubscription = errors.New("no subscription")
	// ErrPersistence сбой долговременного хранилища, транзакция откатилась.
	ErrPersistence = errors.New("persistence error")
	// ErrCacheUnavailable кеш недоступен, токен не выпущен.
	ErrCacheUnavailable = errors.New("cache unavailable")
)

// Persist оборачивает сбой хранилища так, чтобы errors.Is находил ErrPersistence,
// а текст причины не терялся в логах.
func Persist(err error) error {
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

// IsDomain сообщает, относится ли ошибка к доменной таксономии.
// Всё остальное движок трактует как сбой хранилища.
func IsDomain(err error) bool {
	for _, target := range []error{
		ErrAuthenticationFailed,
		ErrInvalidSubscriptionType,
		ErrPromoNotFound,
		ErrPromoExpired,
		ErrPromoAlreadyUsed,
		ErrTrialAlreadyUsed,
		ErrNoSubscription,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
