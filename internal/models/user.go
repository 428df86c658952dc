package models

import "time"

// User представляет пользователя сервера документов
type User struct {
	CreatedAt    time.Time `json:"created_at"`    // время создания
	UpdatedAt    time.Time `json:"updated_at"`    // время последнего обновления
	ID           string    `json:"id"`            // UUID пользователя, он же identity в путях users/{id}
	Username     string    `json:"username"`      // уникальный username
	PasswordHash string    `json:"password_hash"` // argon2id хеш пароля (hex)
	Salt         string    `json:"salt"`          // base64 encoded salt
}
