// Package repository реализует долговременное хранилище данных на основе
// SQLite для управления пользователями, подписками, промокодами и покупками.
// Факт записи здесь — единственный источник истины о праве доступа;
// кеш токенов лишь производная от этих данных.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Регистрация драйвера sqlite для использования с database/sql.
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DBTX объединяет *sql.DB и *sql.Tx: запросы пишутся один раз
// и работают как вне транзакции, так и внутри неё.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries реализует все операции хранилища поверх DBTX.
type Queries struct {
	db DBTX
}

// Storage инкапсулирует соединение с базой данных SQLite.
// Path хранится для снятия файловых резервных копий.
type Storage struct {
	*Queries
	DB   *sql.DB
	Path string
}

// New открывает базу данных SQLite по указанному пути.
// Транзакции записи начинаются немедленно (_txlock=immediate),
// поэтому конкурентные изменения сериализуются самой базой.
func New(path string) (*Storage, error) {
	const op = "repository.New"

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		Queries: &Queries{db: db},
		DB:      db,
		Path:    path,
	}, nil
}

// CheckDatabaseReady проверяет готовность базы данных.
func CheckDatabaseReady(storage *Storage) error {
	var name string
	err := storage.DB.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'subscriptions'`,
	).Scan(&name)
	if err != nil {
		return fmt.Errorf("required table subscriptions missing or query error: %w", err)
	}
	return nil
}

// WithTx выполняет fn в одной транзакции: либо все изменения
// фиксируются, либо ни одно из них.
func (s *Storage) WithTx(ctx context.Context, fn func(q Querier) error) error {
	const op = "repository.WithTx"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := fn(&Queries{db: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%s: %w (rollback: %v)", op, err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// isUniqueViolation распознаёт нарушение уникального ограничения SQLite.
func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	return errors.As(err, &serr) && serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
