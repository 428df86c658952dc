package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/iudanet/plansync/internal/server/access"
	"github.com/iudanet/plansync/internal/server/hub"
	"github.com/iudanet/plansync/pkg/api"
)

type subEnv struct {
	*docEnv
	hub *hub.Hub
	url string
}

// setupSubEnv поднимает сервер, в котором пользователь берется из заголовка X-User
func setupSubEnv(t *testing.T) *subEnv {
	t.Helper()
	e := setupDocEnv(t)
	h := hub.New(setupTestLogger())
	handler := NewSubscribeHandler(setupTestLogger(), e.store, e.policy, h)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if uid := r.Header.Get("X-User"); uid != "" {
			r = r.WithContext(WithUser(r.Context(), uid, uid))
		}
		handler.Subscribe(w, r)
	}))
	t.Cleanup(ts.Close)
	return &subEnv{docEnv: e, hub: h, url: "ws" + strings.TrimPrefix(ts.URL, "http")}
}

func (e *subEnv) dial(t *testing.T, uid, collection string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	header := http.Header{}
	header.Set("X-User", uid)
	return websocket.Dial(ctx, e.url+"/?path="+url.QueryEscape(collection), &websocket.DialOptions{HTTPHeader: header})
}

func readMessage(t *testing.T, conn *websocket.Conn) api.SubscriptionMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var msg api.SubscriptionMessage
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	return msg
}

func TestSubscribeHandler_SnapshotsAndRevocation(t *testing.T) {
	e := setupSubEnv(t)
	e.seed(t, "weddings/W", map[string]any{access.FieldOwner: "alice", access.FieldAuthorizedUsers: []any{"alice", "bob"}})
	e.seed(t, "weddings/W/guests/g1", map[string]any{"name": "Ana"})

	conn, _, err := e.dial(t, "bob", "weddings/W/guests")
	require.NoError(t, err)
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	msg := readMessage(t, conn)
	assert.Equal(t, api.MessageSnapshot, msg.Type)
	assert.Equal(t, "weddings/W/guests", msg.Collection)
	require.Len(t, msg.Documents, 1)
	assert.Equal(t, "g1", msg.Documents[0].ID)

	e.seed(t, "weddings/W/guests/g2", map[string]any{"name": "Luis"})
	e.hub.Publish("weddings/W/guests/g2")
	msg = readMessage(t, conn)
	assert.Equal(t, api.MessageSnapshot, msg.Type)
	assert.Len(t, msg.Documents, 2)

	// bob исключен из workspace
	e.seed(t, "weddings/W", map[string]any{access.FieldAuthorizedUsers: []any{"alice"}})
	e.hub.Publish("weddings/W")
	msg = readMessage(t, conn)
	assert.Equal(t, api.MessageError, msg.Type)
	require.NotNil(t, msg.Error)
	assert.Equal(t, api.CodePermissionDenied, msg.Error.Code)
	assert.Equal(t, "access revoked", msg.Error.Message)

	assert.Eventually(t, func() bool { return e.hub.Len() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestSubscribeHandler_RejectedBeforeUpgrade(t *testing.T) {
	e := setupSubEnv(t)
	e.seed(t, "weddings/W", map[string]any{access.FieldOwner: "alice", access.FieldAuthorizedUsers: []any{"alice"}})

	tests := []struct {
		name       string
		uid        string
		collection string
		wantStatus int
	}{
		{name: "non member", uid: "bob", collection: "weddings/W/guests", wantStatus: http.StatusForbidden},
		{name: "document path", uid: "alice", collection: "weddings/W", wantStatus: http.StatusBadRequest},
		{name: "anonymous", collection: "weddings/W/guests", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := e.dial(t, tt.uid, tt.collection)
			require.Error(t, err)
			assert.Nil(t, conn)
			require.NotNil(t, resp)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
	assert.Equal(t, 0, e.hub.Len())
}
