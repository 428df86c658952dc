package api

import "time"

// Document представляет документ хранилища на проводе
type Document struct {
	UpdatedAt time.Time      `json:"updated_at"`
	Fields    map[string]any `json:"fields"`
	Path      string         `json:"path"`
	ID        string         `json:"id"`
}

// WriteRequest тело PUT/PATCH /documents/{path}
type WriteRequest struct {
	Fields map[string]any `json:"fields"`
}

// AddResponse ответ на POST /collections/{path}
type AddResponse struct {
	Path string `json:"path"`
	ID   string `json:"id"`
}

// ListResponse ответ на GET /collections/{path}
type ListResponse struct {
	Documents []Document `json:"documents"`
}

// BatchWrite одна операция пакетной записи
type BatchWrite struct {
	Fields map[string]any `json:"fields"`
	Path   string         `json:"path"`
	Merge  bool           `json:"merge"`
}

// BatchRequest тело POST /batch, применяется атомарно
type BatchRequest struct {
	Writes []BatchWrite `json:"writes"`
}

// Subscription message types
const (
	MessageSnapshot = "snapshot"
	MessageError    = "error"
)

// SubscriptionMessage сообщение websocket подписки на коллекцию
type SubscriptionMessage struct {
	Error      *ErrorResponse `json:"error,omitempty"`
	Type       string         `json:"type"`
	Collection string         `json:"collection"`
	Documents  []Document     `json:"documents,omitempty"`
}

// AutofixResponse ответ на POST /workspaces/{id}/permissions/autofix
type AutofixResponse struct {
	Workspace string `json:"workspace"`
	Granted   bool   `json:"granted"`
}
