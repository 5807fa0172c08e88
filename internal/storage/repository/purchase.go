package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mishkagorka/subscription-access/internal/errs"
	"github.com/mishkagorka/subscription-access/internal/models"
)

// GetSubscriptionType возвращает тариф по его имени.
func (q *Queries) GetSubscriptionType(ctx context.Context, name string) (*models.SubscriptionType, error) {
	const op = "repository.GetSubscriptionType"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT name, price, duration_days FROM subscription_types WHERE name = ?1`
	st := &models.SubscriptionType{}
	row := q.db.QueryRowContext(ctx, query, name)
	if err := row.Scan(&st.Name, &st.Price, &st.DurationDays); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, errs.ErrInvalidSubscriptionType)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return st, nil
}

// AddPurchase записывает строку журнала покупок и возвращает её ID.
// Журнал только растёт: записи никогда не изменяются и не удаляются.
func (q *Queries) AddPurchase(ctx context.Context, userID int64, subtype string, price int) (int64, error) {
	const op = "repository.AddPurchase"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO purchases (user_id, subscription, price) VALUES (?1, ?2, ?3)`
	result, err := q.db.ExecContext(ctx, query, userID, subtype, price)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	newID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListPurchases возвращает историю покупок пользователя, новые первыми.
func (q *Queries) ListPurchases(ctx context.Context, userID int64) ([]models.Purchase, error) {
	const op = "repository.ListPurchases"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_id, subscription, price, created_at
			  FROM purchases
			  WHERE user_id = ?1
			  ORDER BY created_at DESC, id DESC`
	rows, err := q.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.Purchase
	for rows.Next() {
		var p models.Purchase
		if err = rows.Scan(&p.ID, &p.UserID, &p.Subtype, &p.Price, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
