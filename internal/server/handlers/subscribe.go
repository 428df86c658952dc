package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/iudanet/plansync/internal/models"
	"github.com/iudanet/plansync/internal/server/access"
	"github.com/iudanet/plansync/internal/server/hub"
	"github.com/iudanet/plansync/internal/server/storage"
	"github.com/iudanet/plansync/pkg/api"
)

const writeTimeout = 10 * time.Second

// SubscribeHandler streams collection snapshots over a websocket.
type SubscribeHandler struct {
	logger *slog.Logger
	docs   storage.DocumentStorage
	policy *access.Policy
	hub    *hub.Hub
}

// NewSubscribeHandler создает handler подписок
func NewSubscribeHandler(logger *slog.Logger, docs storage.DocumentStorage, policy *access.Policy, h *hub.Hub) *SubscribeHandler {
	return &SubscribeHandler{logger: logger, docs: docs, policy: policy, hub: h}
}

// Subscribe обрабатывает GET /api/v1/subscribe?path=collection
// Отказ в доступе возвращается обычным HTTP ответом до upgrade.
// После upgrade каждая запись в коллекцию дает новый snapshot; потеря доступа
// завершает подписку сообщением error.
func (h *SubscribeHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := GetUserID(ctx)
	if !ok {
		sendError(h.logger, w, http.StatusUnauthorized, api.CodeUnauthenticated, "authentication required")
		return
	}
	collection, err := models.ParseCollectionPath(r.URL.Query().Get("path"))
	if err != nil {
		sendFailure(h.logger, w, r, err)
		return
	}

	// подписываемся до первого snapshot, чтобы не пропустить запись между ними
	sub, unsubscribe := h.hub.Subscribe(collection.String())
	defer unsubscribe()

	first, err := Snapshot(ctx, h.docs, h.policy, uid, collection)
	if err != nil {
		sendFailure(h.logger, w, r, err)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.WarnContext(ctx, "websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer func() {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	// клиент ничего не присылает; CloseRead отменяет контекст при закрытии соединения
	ctx = conn.CloseRead(ctx)

	h.logger.InfoContext(ctx, "subscription started",
		slog.String("collection", collection.String()),
		slog.String("user_id", uid))

	if err := h.send(ctx, conn, snapshotMessage(collection, first)); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			h.logger.DebugContext(ctx, "subscription ended", slog.String("collection", collection.String()))
			return
		case <-sub.C:
			docs, err := Snapshot(ctx, h.docs, h.policy, uid, collection)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				status, code := classify(err)
				msg := "subscription failed"
				if errors.Is(err, access.ErrPermissionDenied) {
					msg = "access revoked"
				}
				body := ErrorBody(status, code, msg)
				_ = h.send(ctx, conn, api.SubscriptionMessage{Type: api.MessageError, Collection: collection.String(), Error: &body})
				h.logger.WarnContext(ctx, "subscription terminated",
					slog.String("collection", collection.String()),
					slog.String("user_id", uid),
					slog.Any("error", err))
				return
			}
			if err := h.send(ctx, conn, snapshotMessage(collection, docs)); err != nil {
				return
			}
		}
	}
}

func (h *SubscribeHandler) send(ctx context.Context, conn *websocket.Conn, msg api.SubscriptionMessage) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(writeCtx, conn, msg); err != nil {
		h.logger.DebugContext(ctx, "failed to write subscription message", slog.Any("error", err))
		return err
	}
	return nil
}

func snapshotMessage(collection models.CollectionPath, docs []api.Document) api.SubscriptionMessage {
	return api.SubscriptionMessage{Type: api.MessageSnapshot, Collection: collection.String(), Documents: docs}
}
