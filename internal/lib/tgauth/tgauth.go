// Package tgauth проверяет подпись данных Telegram Login Widget.
//
// Строка проверки собирается из всех полей, кроме hash, в виде "key=value",
// отсортированных по ключу и соединённых переводом строки. Ключ подписи —
// SHA256 от токена бота, сверка дайджестов выполняется за постоянное время.
package tgauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// Verify проверяет, что поле hash соответствует HMAC-SHA256 от канонической
// строки проверки. Порядок ключей во входной мапе значения не имеет:
// сортировка — часть канонизации, а не обязанность вызывающего.
func Verify(fields map[string]string, botToken string) bool {
	hash, ok := fields["hash"]
	if !ok || hash == "" {
		return false
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
	}

	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(b.String()))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(hash))
}

// FreshEnough проверяет, что assertion выпущен не раньше, чем maxAge назад.
func FreshEnough(authDate int64, maxAge time.Duration, now time.Time) bool {
	return now.Unix()-authDate <= int64(maxAge/time.Second)
}
