package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"relaychat/internal/app/chat"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/limiter"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/resp"
)

const (
	wsReadBufferSize  = 1024
	wsWriteBufferSize = 1024
)

// newUpgrader builds the websocket upgrader with an origin policy matching
// the configured allow list. In development every origin is accepted.
func newUpgrader(deps *AppDeps) *websocket.Upgrader {
	allowed := make(map[string]struct{}, len(deps.Config.AllowedOrigins))
	for _, origin := range deps.Config.AllowedOrigins {
		allowed[origin] = struct{}{}
	}

	development := deps.Config.Environment == "development"

	return &websocket.Upgrader{
		ReadBufferSize:  wsReadBufferSize,
		WriteBufferSize: wsWriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			if development {
				return true
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser clients send no Origin header.
				return true
			}

			_, ok := allowed[origin]
			return ok
		},
	}
}

// HandleWebSocket upgrades the connection and starts the client pumps.
// The socket carries no identity at this point; the client introduces
// itself in-band with an auth event.
func HandleWebSocket(deps *AppDeps, wsLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	upgrader := newUpgrader(deps)

	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := limiter.ClientIP(r)
		if !wsLimiter.GetLimiter(clientIP).Allow() {
			logx.Warn("Websocket connection rate limited", "ip", clientIP)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error response.
			logx.Error(err, "Websocket upgrade failed", "ip", clientIP)
			return
		}

		client := chat.NewClient(deps.Hub, conn)

		go client.WritePump()
		client.ReadPump()
	}
}
