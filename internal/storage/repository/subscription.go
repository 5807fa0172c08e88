package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mishkagorka/subscription-access/internal/errs"
	"github.com/mishkagorka/subscription-access/internal/models"
)

// GetSubscription возвращает запись подписки пользователя.
func (q *Queries) GetSubscription(ctx context.Context, userID int64) (*models.Subscription, error) {
	const op = "repository.GetSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_id, end_date, active, lang, trial_used, auto_renewal, subtype,
			      created_at, updated_at
			  FROM subscriptions
			  WHERE user_id = ?1`
	sub := &models.Subscription{}
	row := q.db.QueryRowContext(ctx, query, userID)

	var endDate sql.NullTime
	if err := row.Scan(&sub.UserID, &endDate, &sub.Active, &sub.Lang, &sub.TrialUsed,
		&sub.AutoRenewal, &sub.Subtype, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, errs.ErrNoSubscription)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if endDate.Valid {
		sub.EndDate = &endDate.Time
	}
	return sub, nil
}

// UpsertSubscription создаёт или изменяет запись подписки. Нулевые указатели
// в upd оставляют соответствующие поля нетронутыми. Два поля защищены на
// уровне запроса: trial_used никогда не сбрасывается обратно в ложь,
// а end_date никогда не уменьшается.
func (q *Queries) UpsertSubscription(ctx context.Context, upd models.SubscriptionUpdate) error {
	const op = "repository.UpsertSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (user_id, end_date, active, trial_used, auto_renewal, subtype, lang)
			  VALUES (?1, ?2, COALESCE(?3, 0), COALESCE(?4, 0), COALESCE(?5, 1),
			      COALESCE(?6, 'trial'), COALESCE(?7, 'ru'))
			  ON CONFLICT(user_id) DO UPDATE SET
			      end_date = CASE
			          WHEN ?2 IS NULL THEN subscriptions.end_date
			          WHEN subscriptions.end_date IS NULL THEN ?2
			          WHEN ?2 > subscriptions.end_date THEN ?2
			          ELSE subscriptions.end_date
			      END,
			      active       = COALESCE(?3, subscriptions.active),
			      trial_used   = subscriptions.trial_used OR COALESCE(?4, 0),
			      auto_renewal = COALESCE(?5, subscriptions.auto_renewal),
			      subtype      = COALESCE(?6, subscriptions.subtype),
			      lang         = COALESCE(?7, subscriptions.lang),
			      updated_at   = CURRENT_TIMESTAMP`

	var endDate any
	if upd.EndDate != nil {
		endDate = upd.EndDate.UTC()
	}
	_, err := q.db.ExecContext(ctx, query,
		upd.UserID, endDate, upd.Active, upd.TrialUsed, upd.AutoRenewal, upd.Subtype, upd.Lang)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetAutoRenewal переключает флаг автопродления, не трогая остальные поля.
func (q *Queries) SetAutoRenewal(ctx context.Context, userID int64, enabled bool) error {
	const op = "repository.SetAutoRenewal"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET auto_renewal = ?2, updated_at = CURRENT_TIMESTAMP
			  WHERE user_id = ?1`
	result, err := q.db.ExecContext(ctx, query, userID, enabled)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, errs.ErrNoSubscription)
	}
	return nil
}

// FindExpiringWithin возвращает активные подписки, срок которых истекает
// в ближайший интервал. Используется планировщиком напоминаний.
func (q *Queries) FindExpiringWithin(ctx context.Context, within time.Duration) ([]models.ExpiringEntitlement, error) {
	const op = "repository.FindExpiringWithin"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	now := time.Now().UTC()
	deadline := now.Add(within)

	query := `SELECT user_id, end_date, subtype, lang
			  FROM subscriptions
			  WHERE active = 1
			      AND auto_renewal = 1
			      AND end_date IS NOT NULL
			      AND end_date > ?1
			      AND end_date <= ?2
			  ORDER BY end_date`
	rows, err := q.db.QueryContext(ctx, query, now, deadline)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.ExpiringEntitlement
	for rows.Next() {
		var e models.ExpiringEntitlement
		if err = rows.Scan(&e.UserID, &e.EndDate, &e.Subtype, &e.Lang); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
