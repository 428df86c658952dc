package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Параметры Argon2id для хеширования паролей
const (
	// Argon2Time - количество итераций (time cost)
	Argon2Time = 1
	// Argon2Memory - объем памяти в KB (64MB = 64*1024 KB)
	Argon2Memory = 64 * 1024
	// Argon2Threads - количество параллельных потоков
	Argon2Threads = 4
	// Argon2KeyLen - длина выходного ключа в байтах
	Argon2KeyLen = 32
	// SaltSize - размер соли в байтах
	SaltSize = 32
)

// GenerateSalt генерирует криптографически случайную соль и возвращает ее в Base64
func GenerateSalt() (string, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(salt), nil
}

// HashPassword derives an argon2id hash of the password with a base64 salt.
// The result is hex encoded.
func HashPassword(password, salt string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	rawSalt, err := decodeSalt(salt)
	if err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), rawSalt, Argon2Time, Argon2Memory, Argon2Threads, Argon2KeyLen)
	return hex.EncodeToString(key), nil
}

// VerifyPassword сравнивает пароль с сохраненным хешем за постоянное время
func VerifyPassword(password, salt, hashed string) (bool, error) {
	if hashed == "" {
		return false, fmt.Errorf("hashed password cannot be empty")
	}
	computed, err := HashPassword(password, salt)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hashed)) == 1, nil
}

func decodeSalt(salt string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	if len(raw) != SaltSize {
		return nil, fmt.Errorf("salt must be %d bytes, got %d", SaltSize, len(raw))
	}
	return raw, nil
}
