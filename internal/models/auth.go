package models

// AuthResult ответ движка на аутентификацию или выдачу токена.
// Token может быть пустым при деградации кеша: право доступа уже записано
// в долговременное хранилище, токен довыпускается повторным запросом.
type AuthResult struct {
	Token        string        `json:"token,omitempty"`
	UserID       int64         `json:"user_id"`
	Subscription *Subscription `json:"subscription,omitempty"`
}
