package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/iudanet/plansync/internal/client/remote"
	"github.com/iudanet/plansync/internal/models"
	"github.com/iudanet/plansync/pkg/api"
)

// Subscribe implements remote.Store over a websocket. The server pushes the full
// collection after every committed change.
func (c *Client) Subscribe(ctx context.Context, collection models.CollectionPath, onSnapshot func([]models.Document), onError func(error)) (func(), error) {
	header := http.Header{}
	if token := c.bearer(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	subCtx, cancel := context.WithCancel(ctx)
	conn, resp, err := websocket.Dial(subCtx, c.subscribeURL(collection), &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		cancel()
		if resp != nil {
			if s := sentinel("", resp.StatusCode); s != nil {
				return nil, fmt.Errorf("failed to subscribe to %s: %w", collection, s)
			}
		}
		return nil, fmt.Errorf("failed to subscribe to %s: %w: %v", collection, remote.ErrUnavailable, err)
	}
	conn.SetReadLimit(16 << 20)

	go func() {
		defer func() {
			_ = conn.Close(websocket.StatusNormalClosure, "")
		}()
		for {
			var msg api.SubscriptionMessage
			if err := wsjson.Read(subCtx, conn, &msg); err != nil {
				if subCtx.Err() != nil {
					return
				}
				c.logger.Debug("Subscription closed", "collection", collection.String(), "error", err)
				if onError != nil {
					onError(fmt.Errorf("%w: subscription closed: %v", remote.ErrUnavailable, err))
				}
				return
			}

			switch msg.Type {
			case api.MessageSnapshot:
				docs, err := fromWireList(msg.Documents)
				if err != nil {
					c.logger.Warn("Dropping malformed snapshot", "collection", collection.String(), "error", err)
					continue
				}
				onSnapshot(docs)
			case api.MessageError:
				if onError != nil {
					onError(errorFromResponse(msg.Error))
				}
				return
			default:
				c.logger.Debug("Ignoring subscription message", "type", msg.Type)
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

func (c *Client) subscribeURL(collection models.CollectionPath) string {
	base := c.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/api/v1/subscribe?path=" + url.QueryEscape(collection.String())
}
