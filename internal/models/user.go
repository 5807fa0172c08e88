package models

import "time"

// User представляет пользователя, созданного при первой успешной
// проверке подписи Telegram. В штатной работе не удаляется.
type User struct {
	ID        int64     // Идентификатор Telegram
	FirstName string    // Имя
	LastName  string    // Фамилия (может быть пустой)
	Username  string    // Ник в Telegram (может быть пустым)
	PhotoURL  string    // Ссылка на аватар (может быть пустой)
	Lang      string    // Язык интерфейса
	CreatedAt time.Time // Время создания записи
	UpdatedAt time.Time // Время последнего обновления
}
