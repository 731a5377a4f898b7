package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/gorilla/websocket"

	"tracksync/logger"
	"tracksync/model"
)

// Watch subscribes to the server's change feed and calls fn for each
// event, in order, until ctx is done or the server closes the connection.
// A clean close or cancellation returns nil.
func (c *Client) Watch(ctx context.Context, fn func(model.ChangeEvent)) error {
	wsURL, err := c.eventsURL()
	if err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.httpClient.Timeout}
	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial change feed: %w", &APIError{StatusCode: resp.StatusCode})
		}
		return fmt.Errorf("dial change feed: %w", err)
	}
	defer conn.Close()

	logger.Info("watching tracker changes", logger.String("url", wsURL))

	// closing the connection unblocks ReadMessage when ctx ends
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read change feed: %w", err)
		}

		var ev model.ChangeEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			logger.Warn("skipping malformed change event", logger.ErrorField(err))
			continue
		}
		fn(ev)
	}
}

func (c *Client) eventsURL() (string, error) {
	u, err := url.Parse(c.baseURL + eventsPath)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.New("base URL must use http or https")
	}
	return u.String(), nil
}
