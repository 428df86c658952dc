package api

// RegisterRequest представляет запрос на регистрацию нового пользователя
type RegisterRequest struct {
	Username string `json:"username"` // username пользователя
	Password string `json:"password"` // пароль, сервер хранит только argon2id хеш
}

// RegisterResponse представляет ответ на успешную регистрацию
type RegisterResponse struct {
	UserID  string `json:"user_id"` // UUID пользователя, identity в путях users/{id}
	Message string `json:"message"` // сообщение об успешной регистрации
}

// LoginRequest представляет запрос на аутентификацию
type LoginRequest struct {
	Username string `json:"username"` // username пользователя
	Password string `json:"password"` // пароль
}

// TokenResponse представляет ответ с токеном доступа
type TokenResponse struct {
	AccessToken string `json:"access_token"` // JWT access token
	UserID      string `json:"user_id"`      // UUID пользователя
	ExpiresIn   int64  `json:"expires_in"`   // время жизни access token в секундах
}

// Error codes carried in ErrorResponse.Code
const (
	CodeNotFound         = "not-found"
	CodePermissionDenied = "permission-denied"
	CodeUnauthenticated  = "unauthenticated"
	CodeInvalidArgument  = "invalid-argument"
	CodeUnavailable      = "unavailable"
	CodeConflict         = "already-exists"
	CodeInternal         = "internal"
)

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Code    string `json:"code,omitempty"`    // машинно-читаемый код
	Message string `json:"message,omitempty"` // дополнительное сообщение
}

// HealthResponse представляет ответ health check
type HealthResponse struct {
	Status string `json:"status"`
}
