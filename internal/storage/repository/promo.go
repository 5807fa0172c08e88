package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mishkagorka/subscription-access/internal/errs"
	"github.com/mishkagorka/subscription-access/internal/models"
)

// GetPromoCode возвращает промокод по его значению.
func (q *Queries) GetPromoCode(ctx context.Context, code string) (*models.PromoCode, error) {
	const op = "repository.GetPromoCode"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT code, discount_days, expiration_date, used
			  FROM promo_codes
			  WHERE code = ?1`
	promo := &models.PromoCode{}
	row := q.db.QueryRowContext(ctx, query, code)

	var expiration sql.NullTime
	if err := row.Scan(&promo.Code, &promo.DiscountDays, &expiration, &promo.Used); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, errs.ErrPromoNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if expiration.Valid {
		promo.ExpirationDate = &expiration.Time
	}
	return promo, nil
}

// CreatePromoCode сохраняет новый промокод.
func (q *Queries) CreatePromoCode(ctx context.Context, promo models.PromoCode) error {
	const op = "repository.CreatePromoCode"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO promo_codes (code, discount_days, expiration_date, used)
			  VALUES (?1, ?2, ?3, ?4)`
	var expiration any
	if promo.ExpirationDate != nil {
		expiration = promo.ExpirationDate.UTC()
	}
	if _, err := q.db.ExecContext(ctx, query, promo.Code, promo.DiscountDays, expiration, promo.Used); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// MarkPromoUsed выставляет флаг used: такой код больше никому не выдаётся.
func (q *Queries) MarkPromoUsed(ctx context.Context, code string) error {
	const op = "repository.MarkPromoUsed"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE promo_codes SET used = 1 WHERE code = ?1`
	result, err := q.db.ExecContext(ctx, query, code)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, errs.ErrPromoNotFound)
	}
	return nil
}

// HasUsedPromo сообщает, активировал ли пользователь этот код раньше.
func (q *Queries) HasUsedPromo(ctx context.Context, userID int64, code string) (bool, error) {
	const op = "repository.HasUsedPromo"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*) FROM promo_attempts WHERE user_id = ?1 AND code = ?2`
	var count int
	if err := q.db.QueryRowContext(ctx, query, userID, code).Scan(&count); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return count > 0, nil
}

// AddPromoAttempt фиксирует активацию кода пользователем. Уникальный индекс
// по (user_id, code) — арбитр гонки: из двух одновременных активаций
// вставку выполнит ровно одна, вторая получит ErrPromoAlreadyUsed.
func (q *Queries) AddPromoAttempt(ctx context.Context, userID int64, code string) error {
	const op = "repository.AddPromoAttempt"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO promo_attempts (user_id, code) VALUES (?1, ?2)`
	if _, err := q.db.ExecContext(ctx, query, userID, code); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, errs.ErrPromoAlreadyUsed)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
