package repository

import (
	"context"
	"time"

	"github.com/mishkagorka/subscription-access/internal/models"
)

// Querier перечисляет все операции хранилища. Реализуется Queries
// и передаётся в WithTx, чтобы бизнес-логика не знала о транзакциях.
type Querier interface {
	GetOrCreateUser(ctx context.Context, user models.User) (*models.User, error)
	GetUser(ctx context.Context, userID int64) (*models.User, error)

	GetSubscription(ctx context.Context, userID int64) (*models.Subscription, error)
	UpsertSubscription(ctx context.Context, upd models.SubscriptionUpdate) error
	SetAutoRenewal(ctx context.Context, userID int64, enabled bool) error
	FindExpiringWithin(ctx context.Context, within time.Duration) ([]models.ExpiringEntitlement, error)

	GetPromoCode(ctx context.Context, code string) (*models.PromoCode, error)
	CreatePromoCode(ctx context.Context, promo models.PromoCode) error
	MarkPromoUsed(ctx context.Context, code string) error
	HasUsedPromo(ctx context.Context, userID int64, code string) (bool, error)
	AddPromoAttempt(ctx context.Context, userID int64, code string) error

	GetSubscriptionType(ctx context.Context, name string) (*models.SubscriptionType, error)
	AddPurchase(ctx context.Context, userID int64, subtype string, price int) (int64, error)
	ListPurchases(ctx context.Context, userID int64) ([]models.Purchase, error)
}

var _ Querier = (*Queries)(nil)
