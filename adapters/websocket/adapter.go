package websocket

import (
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"loyaltykit/core"
	"loyaltykit/realtime"
)

const writeTimeout = 5 * time.Second

// Handler returns an http.Handler that upgrades to WebSocket and streams
// loyalty events from the hub. An optional ?account= query parameter scopes
// the stream to a single account.
func Handler(hub *realtime.Hub) http.Handler {
	upgrader := gorillaws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var (
			id int
			ch <-chan core.Event
		)
		if account := r.URL.Query().Get("account"); account != "" {
			normalized, err := core.NormalizeAccountID(core.AccountID(account))
			if err != nil {
				_ = conn.WriteControl(gorillaws.CloseMessage,
					gorillaws.FormatCloseMessage(gorillaws.ClosePolicyViolation, "invalid account"),
					time.Now().Add(writeTimeout))
				return
			}
			id, ch = hub.SubscribeAccount(256, normalized)
		} else {
			id, ch = hub.Subscribe(256)
		}
		defer hub.Unsubscribe(id)

		for ev := range ch {
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(gorillaws.TextMessage, realtime.MarshalJSON(ev)); err != nil {
				return
			}
		}
	})
}
