package server

import (
	"net/http"

	"tracksync/core/feed"
	"tracksync/logger"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// FeedHandler upgrades GET /trackers/events to a change-feed subscription.
func FeedHandler(hub *feed.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already answered the request
			logger.Warn("change feed upgrade failed", logger.ErrorField(err))
			return
		}

		client := feed.NewClient(hub, conn)
		hub.Register(client)
		logger.Debug("change feed subscribed",
			logger.String("client", client.ID),
			logger.String("request_id", requestIDFrom(r.Context())))

		go client.WritePump()
		go client.ReadPump()
	}
}
