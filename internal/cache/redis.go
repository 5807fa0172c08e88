// Package cache реализует эфемерное хранилище токенов доступа поверх Redis.
//
// Токен и пользователь связаны в обе стороны (token:<tok> и user:<id>:token),
// обе записи живут ровно столько, сколько остаётся оплаченного периода, и
// исчезают сами. Перезапуск Redis теряет все токены — это штатная ситуация:
// токены довыпускаются из долговременного хранилища.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mishkagorka/subscription-access/internal/config"
)

// Cache инкапсулирует клиент Redis.
type Cache struct {
	Db *redis.Client
}

// InitServer подключается к Redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Db: db}, nil
}

func userTokenKey(userID int64) string {
	return fmt.Sprintf("user:%d:token", userID)
}

func tokenKey(token string) string {
	return "token:" + token
}

// SetUserToken записывает обе стороны связки токен-пользователь с одинаковым
// TTL одним конвейером. Прежний токен пользователя просто перезаписывается
// в user:<id>:token, его обратная запись доживает свой TTL непрочитанной.
func (c *Cache) SetUserToken(ctx context.Context, userID int64, token string, ttl time.Duration) error {
	const op = "cache.SetUserToken"
	pipe := c.Db.TxPipeline()
	pipe.Set(ctx, userTokenKey(userID), token, ttl)
	pipe.Set(ctx, tokenKey(token), userID, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UserToken возвращает живой токен пользователя, если он есть.
func (c *Cache) UserToken(ctx context.Context, userID int64) (string, bool, error) {
	const op = "cache.UserToken"
	val, err := c.Db.Get(ctx, userTokenKey(userID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	return val, true, nil
}

// TokenUser возвращает пользователя по токену, если связка ещё жива.
func (c *Cache) TokenUser(ctx context.Context, token string) (int64, bool, error) {
	const op = "cache.TokenUser"
	val, err := c.Db.Get(ctx, tokenKey(token)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", op, err)
	}
	return userID, true, nil
}

// ExtendUserToken продлевает существующий токен: тот же конвейер, что и при
// выпуске, только токен переиспользуется, а TTL выставляется заново.
func (c *Cache) ExtendUserToken(ctx context.Context, userID int64, token string, ttl time.Duration) error {
	return c.SetUserToken(ctx, userID, token, ttl)
}

// RevokeUser удаляет обе стороны связки. Операция best-effort:
// отсутствие ключей ошибкой не считается.
func (c *Cache) RevokeUser(ctx context.Context, userID int64) error {
	const op = "cache.RevokeUser"
	keys := []string{userTokenKey(userID)}
	if token, found, err := c.UserToken(ctx, userID); err == nil && found {
		keys = append(keys, tokenKey(token))
	}
	if err := c.Db.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// IncrementAndGet атомарно увеличивает счётчик и возвращает новое значение.
// Срок жизни выставляется только при создании ключа (EXPIRE NX), поэтому
// окно не продлевается повторными запросами и гонки check-then-increment нет.
func (c *Cache) IncrementAndGet(ctx context.Context, key string, window time.Duration) (int64, error) {
	const op = "cache.IncrementAndGet"
	pipe := c.Db.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return incr.Val(), nil
}

// Close закрывает соединение с Redis.
func (c *Cache) Close() error {
	return c.Db.Close()
}
