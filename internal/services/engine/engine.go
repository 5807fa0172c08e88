// Package engine реализует бизнес-логику согласованности подписок и токенов.
//
// Порядок всегда один: сначала фиксация в долговременном хранилище, потом
// кеш токенов. Если кеш недоступен после успешной записи, операция всё равно
// считается выполненной — токен довыпустится позже из долговременных данных.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/mishkagorka/subscription-access/internal/config"
	"github.com/mishkagorka/subscription-access/internal/errs"
	"github.com/mishkagorka/subscription-access/internal/lib/sl"
	"github.com/mishkagorka/subscription-access/internal/lib/tgauth"
	"github.com/mishkagorka/subscription-access/internal/lib/token"
	"github.com/mishkagorka/subscription-access/internal/models"
	"github.com/mishkagorka/subscription-access/internal/storage/repository"
)

// Ledger описывает нужную движку часть долговременного хранилища.
type Ledger interface {
	WithTx(ctx context.Context, fn func(q repository.Querier) error) error
	GetSubscription(ctx context.Context, userID int64) (*models.Subscription, error)
	SetAutoRenewal(ctx context.Context, userID int64, enabled bool) error
	ListPurchases(ctx context.Context, userID int64) ([]models.Purchase, error)
}

// TokenCache описывает эфемерное хранилище токенов доступа.
type TokenCache interface {
	SetUserToken(ctx context.Context, userID int64, tok string, ttl time.Duration) error
	UserToken(ctx context.Context, userID int64) (string, bool, error)
	TokenUser(ctx context.Context, tok string) (int64, bool, error)
	ExtendUserToken(ctx context.Context, userID int64, tok string, ttl time.Duration) error
	RevokeUser(ctx context.Context, userID int64) error
}

// Engine связывает проверку подписи, хранилище и кеш токенов.
type Engine struct {
	ledger Ledger
	cache  TokenCache
	tokens token.Maker
	log    *slog.Logger

	botToken   string
	authMaxAge time.Duration
	sessionTTL time.Duration
	trialDays  int

	// Подменяется в тестах.
	now func() time.Time
}

// New создаёт движок подписок.
func New(ledger Ledger, cache TokenCache, tokens token.Maker, cfg *config.Config, log *slog.Logger) *Engine {
	return &Engine{
		ledger:     ledger,
		cache:      cache,
		tokens:     tokens,
		log:        log,
		botToken:   cfg.Telegram.BotToken,
		authMaxAge: cfg.Telegram.AuthMaxAge,
		sessionTTL: cfg.AccessToken.SessionTTL,
		trialDays:  cfg.Subscription.TrialDays,
		now:        time.Now,
	}
}

// Authenticate проверяет подпись данных входа, создаёт либо обновляет
// пользователя и выпускает токен доступа. Время жизни токена равно остатку
// оплаченного периода, а при его отсутствии — длине обычной сессии.
func (e *Engine) Authenticate(ctx context.Context, fields map[string]string) (*models.AuthResult, error) {
	const op = "engine.Authenticate"

	if !tgauth.Verify(fields, e.botToken) {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrAuthenticationFailed)
	}
	authDate, err := strconv.ParseInt(fields["auth_date"], 10, 64)
	if err != nil || !tgauth.FreshEnough(authDate, e.authMaxAge, e.now()) {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrAuthenticationFailed)
	}
	userID, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrAuthenticationFailed)
	}

	err = e.ledger.WithTx(ctx, func(q repository.Querier) error {
		_, err = q.GetOrCreateUser(ctx, models.User{
			ID:        userID,
			FirstName: fields["first_name"],
			LastName:  fields["last_name"],
			Username:  fields["username"],
			PhotoURL:  fields["photo_url"],
		})
		return err
	})
	if err != nil {
		return nil, errs.Persist(fmt.Errorf("%s: %w", op, err))
	}

	sub, err := e.ledger.GetSubscription(ctx, userID)
	if err != nil && !errors.Is(err, errs.ErrNoSubscription) {
		return nil, errs.Persist(fmt.Errorf("%s: %w", op, err))
	}

	ttl := e.sessionTTL
	if remaining := e.entitlementRemaining(sub); remaining > 0 {
		ttl = remaining
	}
	tok, err := e.issueToken(ctx, userID, ttl)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrCacheUnavailable)
	}

	e.log.Info("user authenticated", slog.Int64("user_id", userID))
	return &models.AuthResult{Token: tok, UserID: userID, Subscription: e.reported(sub)}, nil
}

// ResolveToken возвращает владельца токена. Токен жив, только если его
// подпись верна и связка ещё присутствует в кеше.
func (e *Engine) ResolveToken(ctx context.Context, tok string) (int64, error) {
	const op = "engine.ResolveToken"

	claims, err := e.tokens.Parse(tok)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, errs.ErrAuthenticationFailed)
	}
	userID, found, err := e.cache.TokenUser(ctx, tok)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, errs.ErrCacheUnavailable)
	}
	if !found || userID != claims.UserID {
		return 0, fmt.Errorf("%s: %w", op, errs.ErrAuthenticationFailed)
	}
	return userID, nil
}

// GrantTrial выдаёт пробный период. Операция одноразовая на всю жизнь
// пользователя: повторный запрос отклоняется независимо от того, чем
// закончился первый пробный период.
func (e *Engine) GrantTrial(ctx context.Context, userID int64) (*models.AuthResult, error) {
	const op = "engine.GrantTrial"

	endDate := e.now().UTC().AddDate(0, 0, e.trialDays)
	active, trialUsed := true, true
	subtype := models.SubtypeTrial

	err := e.ledger.WithTx(ctx, func(q repository.Querier) error {
		sub, err := q.GetSubscription(ctx, userID)
		if err != nil && !errors.Is(err, errs.ErrNoSubscription) {
			return err
		}
		if sub != nil && sub.TrialUsed {
			return errs.ErrTrialAlreadyUsed
		}
		return q.UpsertSubscription(ctx, models.SubscriptionUpdate{
			UserID:    userID,
			EndDate:   &endDate,
			Active:    &active,
			TrialUsed: &trialUsed,
			Subtype:   &subtype,
		})
	})
	if err != nil {
		if errs.IsDomain(err) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return nil, errs.Persist(fmt.Errorf("%s: %w", op, err))
	}

	e.log.Info("trial granted", slog.Int64("user_id", userID), slog.Time("end_date", endDate))
	return e.resultWithToken(ctx, op, userID)
}

// Activate применяет оплаченную покупку: пишет строку журнала и продлевает
// подписку. База продления — большее из текущего момента и прежней даты
// окончания, оставшиеся дни никогда не сгорают.
func (e *Engine) Activate(ctx context.Context, req models.DummyActivate) (*models.AuthResult, error) {
	const op = "engine.Activate"

	now := e.now().UTC()
	var newEnd time.Time

	err := e.ledger.WithTx(ctx, func(q repository.Querier) error {
		st, err := q.GetSubscriptionType(ctx, req.Subtype)
		if err != nil {
			return err
		}
		if _, err = q.AddPurchase(ctx, req.UserID, st.Name, st.Price); err != nil {
			return err
		}

		sub, err := q.GetSubscription(ctx, req.UserID)
		if err != nil && !errors.Is(err, errs.ErrNoSubscription) {
			return err
		}

		base := now
		if sub != nil && sub.Active && sub.EndDate != nil && sub.EndDate.After(now) {
			base = sub.EndDate.UTC()
		}
		newEnd = base.AddDate(0, 0, st.DurationDays)

		active := true
		return q.UpsertSubscription(ctx, models.SubscriptionUpdate{
			UserID:  req.UserID,
			EndDate: &newEnd,
			Active:  &active,
			Subtype: &st.Name,
		})
	})
	if err != nil {
		if errs.IsDomain(err) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return nil, errs.Persist(fmt.Errorf("%s: %w", op, err))
	}

	e.log.Info("subscription activated",
		slog.Int64("user_id", req.UserID),
		slog.String("subtype", req.Subtype),
		slog.Bool("is_renewal", req.IsRenewal),
		slog.Time("end_date", newEnd))
	return e.resultWithToken(ctx, op, req.UserID)
}

// ApplyPromo активирует промокод и добавляет его дни к подписке.
// Каждый код активируется пользователем не более одного раза; арбитром
// при гонке служит уникальная запись об активации в хранилище.
func (e *Engine) ApplyPromo(ctx context.Context, userID int64, code string) (*models.PromoResult, error) {
	const op = "engine.ApplyPromo"

	now := e.now().UTC()
	var result models.PromoResult

	err := e.ledger.WithTx(ctx, func(q repository.Querier) error {
		promo, err := q.GetPromoCode(ctx, code)
		if err != nil {
			return err
		}
		if promo.Used {
			return errs.ErrPromoExpired
		}
		if promo.ExpirationDate != nil && promo.ExpirationDate.Before(now) {
			return errs.ErrPromoExpired
		}

		used, err := q.HasUsedPromo(ctx, userID, code)
		if err != nil {
			return err
		}
		if used {
			return errs.ErrPromoAlreadyUsed
		}

		sub, err := q.GetSubscription(ctx, userID)
		if err != nil {
			return err
		}

		base := now
		if sub.EndDate != nil && sub.EndDate.After(now) {
			base = sub.EndDate.UTC()
		}
		newEnd := base.AddDate(0, 0, promo.DiscountDays)

		active := true
		if err = q.UpsertSubscription(ctx, models.SubscriptionUpdate{
			UserID:  userID,
			EndDate: &newEnd,
			Active:  &active,
		}); err != nil {
			return err
		}
		if err = q.AddPromoAttempt(ctx, userID, code); err != nil {
			return err
		}

		result = models.PromoResult{DaysAdded: promo.DiscountDays, NewEndDate: newEnd}
		return nil
	})
	if err != nil {
		if errs.IsDomain(err) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return nil, errs.Persist(fmt.Errorf("%s: %w", op, err))
	}

	e.log.Info("promo applied",
		slog.Int64("user_id", userID),
		slog.Int("days_added", result.DaysAdded))
	e.refreshToken(ctx, userID)
	return &result, nil
}

// DisableAutoRenewal выключает автопродление; доступ сохраняется
// до конца оплаченного периода.
func (e *Engine) DisableAutoRenewal(ctx context.Context, userID int64) error {
	const op = "engine.DisableAutoRenewal"

	if err := e.ledger.SetAutoRenewal(ctx, userID, false); err != nil {
		if errs.IsDomain(err) {
			return fmt.Errorf("%s: %w", op, err)
		}
		return errs.Persist(fmt.Errorf("%s: %w", op, err))
	}
	e.log.Info("auto renewal disabled", slog.Int64("user_id", userID))
	return nil
}

// Status возвращает состояние подписки. Запись с истёкшей датой окончания
// отдаётся как неактивная, само хранилище при чтении не изменяется.
func (e *Engine) Status(ctx context.Context, userID int64) (*models.Subscription, error) {
	const op = "engine.Status"

	sub, err := e.ledger.GetSubscription(ctx, userID)
	if err != nil {
		if errs.IsDomain(err) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return nil, errs.Persist(fmt.Errorf("%s: %w", op, err))
	}
	return e.reported(sub), nil
}

// Purchases возвращает историю покупок пользователя.
func (e *Engine) Purchases(ctx context.Context, userID int64) ([]models.Purchase, error) {
	const op = "engine.Purchases"

	purchases, err := e.ledger.ListPurchases(ctx, userID)
	if err != nil {
		return nil, errs.Persist(fmt.Errorf("%s: %w", op, err))
	}
	return purchases, nil
}

// ReissueToken восстанавливает токен из долговременных данных, например
// после потери содержимого кеша.
func (e *Engine) ReissueToken(ctx context.Context, userID int64) (string, error) {
	const op = "engine.ReissueToken"

	sub, err := e.ledger.GetSubscription(ctx, userID)
	if err != nil {
		if errs.IsDomain(err) {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		return "", errs.Persist(fmt.Errorf("%s: %w", op, err))
	}
	remaining := e.entitlementRemaining(sub)
	if remaining <= 0 {
		return "", fmt.Errorf("%s: %w", op, errs.ErrNoSubscription)
	}

	tok, err := e.issueToken(ctx, userID, remaining)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, errs.ErrCacheUnavailable)
	}
	return tok, nil
}

// resultWithToken выпускает токен после успешной долговременной записи.
// Отказ кеша не отменяет операцию: возвращается результат без токена.
func (e *Engine) resultWithToken(ctx context.Context, op string, userID int64) (*models.AuthResult, error) {
	sub, err := e.ledger.GetSubscription(ctx, userID)
	if err != nil {
		return nil, errs.Persist(fmt.Errorf("%s: %w", op, err))
	}

	result := &models.AuthResult{UserID: userID, Subscription: e.reported(sub)}
	remaining := e.entitlementRemaining(sub)
	if remaining <= 0 {
		return result, nil
	}

	tok, err := e.issueToken(ctx, userID, remaining)
	if err != nil {
		e.log.Warn("token cache unavailable, returning without token",
			slog.Int64("user_id", userID), sl.Err(err))
		return result, nil
	}
	result.Token = tok
	return result, nil
}

// refreshToken продлевает живой токен до нового конца подписки, best-effort.
func (e *Engine) refreshToken(ctx context.Context, userID int64) {
	sub, err := e.ledger.GetSubscription(ctx, userID)
	if err != nil {
		return
	}
	remaining := e.entitlementRemaining(sub)
	if remaining <= 0 {
		return
	}
	tok, found, err := e.cache.UserToken(ctx, userID)
	if err != nil || !found {
		return
	}
	if err := e.cache.ExtendUserToken(ctx, userID, tok, remaining); err != nil {
		e.log.Warn("failed to extend token", slog.Int64("user_id", userID), sl.Err(err))
	}
}

func (e *Engine) issueToken(ctx context.Context, userID int64, ttl time.Duration) (string, error) {
	tok, err := e.tokens.Generate(userID, ttl)
	if err != nil {
		return "", err
	}
	if err := e.cache.SetUserToken(ctx, userID, tok, ttl); err != nil {
		return "", err
	}
	return tok, nil
}

// entitlementRemaining возвращает остаток оплаченного периода.
func (e *Engine) entitlementRemaining(sub *models.Subscription) time.Duration {
	if sub == nil || !sub.Active || sub.EndDate == nil {
		return 0
	}
	return sub.EndDate.Sub(e.now())
}

// reported приводит запись к виду для выдачи наружу: истёкшая подписка
// показывается неактивной, даже если ленивое списание ещё не произошло.
func (e *Engine) reported(sub *models.Subscription) *models.Subscription {
	if sub == nil {
		return nil
	}
	out := *sub
	if out.Active && out.EndDate != nil && !out.EndDate.After(e.now()) {
		out.Active = false
	}
	return &out
}
