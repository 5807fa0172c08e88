package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mishkagorka/subscription-access/internal/models"
)

// GetOrCreateUser сохраняет пользователя при первом входе, при повторном —
// обновляет профильные поля и возвращает актуальную запись.
func (q *Queries) GetOrCreateUser(ctx context.Context, user models.User) (*models.User, error) {
	const op = "repository.GetOrCreateUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (user_id, first_name, last_name, username, photo_url, lang)
			  VALUES (?1, ?2, ?3, ?4, ?5, COALESCE(NULLIF(?6, ''), 'ru'))
			  ON CONFLICT(user_id) DO UPDATE SET
			      first_name = excluded.first_name,
			      last_name  = excluded.last_name,
			      username   = excluded.username,
			      photo_url  = excluded.photo_url,
			      updated_at = CURRENT_TIMESTAMP`
	if _, err := q.db.ExecContext(ctx, query,
		user.ID, user.FirstName, user.LastName, user.Username, user.PhotoURL, user.Lang); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return q.GetUser(ctx, user.ID)
}

// GetUser возвращает пользователя по его идентификатору.
func (q *Queries) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	const op = "repository.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_id, first_name, last_name, username, photo_url, lang, created_at, updated_at
			  FROM users
			  WHERE user_id = ?1`
	u := &models.User{}
	row := q.db.QueryRowContext(ctx, query, userID)
	if err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username,
		&u.PhotoURL, &u.Lang, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: user %d not found", op, userID)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}
