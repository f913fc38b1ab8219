package api

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/labstack/echo"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/fitlab/doorman/pkg/api/resource"
)

func (h *Handler) realtimeEventsHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, _, _, err := ws.UpgradeHTTP(c.Request(), c.Response())
		if err != nil {
			log.Error("api: failed to upgrade to websocket: ", err)
			return nil
		}
		defer conn.Close()

		closed := make(chan struct{})
		var closeOnce sync.Once

		sub, err := h.nc.Subscribe("doorman.acs.v1.events.*", func(msg *nats.Msg) {
			// Get topic from NATS subject
			topic := strings.TrimPrefix(msg.Subject, "doorman.acs.v1.events.")

			// Parse the message and send it
			var data interface{}
			if err := json.Unmarshal(msg.Data, &data); err == nil {
				event := resource.NewRealtimeEvent(topic, data)
				out, _ := json.Marshal(event)
				if err := wsutil.WriteServerMessage(conn, ws.OpText, out); err != nil {
					log.Error("api: failed to send realtime event: ", err)
					closeOnce.Do(func() { close(closed) })
				}
			}
		})
		if err != nil {
			log.Error("api: failed to subscribe for realtime events: ", err)
			return nil
		}
		defer sub.Unsubscribe()

		// Drain client frames until the peer goes away so the subscription
		// lives as long as the websocket.
		go func() {
			for {
				if _, _, err := wsutil.ReadClientData(conn); err != nil {
					closeOnce.Do(func() { close(closed) })
					return
				}
			}
		}()

		<-closed
		return nil
	}
}
