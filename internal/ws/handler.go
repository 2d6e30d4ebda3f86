package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fcavalcantirj/jarls-sub005/internal/hub"
	"github.com/fcavalcantirj/jarls-sub005/internal/lobby"
	"github.com/fcavalcantirj/jarls-sub005/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	pingInterval = 20 * time.Second
)

// Handler upgrades GET /ws?game=<id>[&player=<id>]. The connection receives every
// snapshot of the game; a player-bound connection also marks that player connected.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := r.URL.Query().Get("game")
		if gameID == "" {
			http.Error(w, "missing game", http.StatusBadRequest)
			return
		}
		playerID := r.URL.Query().Get("player")

		reply := make(chan *lobby.Lobby, 1)
		h.Inbox() <- hub.GetGame{ID: gameID, Reply: reply}
		lb := <-reply
		if lb == nil {
			http.Error(w, "game not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		log := log.With(zap.String("game_id", gameID), zap.String("client_id", clientID))

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan lobby.Snapshot, 8)
		if !lb.Send(ctx, lobby.Join{ClientID: clientID, PlayerID: playerID, Outbox: out}) {
			conn.Close(websocket.StatusGoingAway, "game closed")
			return
		}
		defer lb.Send(context.Background(), lobby.Leave{ClientID: clientID})
		log.Debug("client joined", zap.String("player_id", playerID))

		// Writer goroutine
		go func() {
			defer cancel()
			ticker := time.NewTicker(pingInterval)
			defer ticker.Stop()
			for {
				select {
				case snap, ok := <-out:
					if !ok {
						// Dropped as slow, or the game shut down.
						conn.Close(websocket.StatusGoingAway, "snapshot stream closed")
						return
					}
					if err := write(ctx, conn, types.Snapshot(snap.Version, snap.State)); err != nil {
						return
					}
				case <-ticker.C:
					pctx, pcancel := context.WithTimeout(ctx, writeTimeout)
					err := conn.Ping(pctx)
					pcancel()
					if err != nil {
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					if !errors.Is(err, context.Canceled) {
						log.Debug("read failed", zap.Error(err))
					}
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = write(ctx, conn, types.ServerMessage{Type: "Error", Error: "BadRequest", Message: "bad json"})
				continue
			}

			action, err := types.ToAction(cm, playerID)
			if err != nil {
				_ = write(ctx, conn, types.Error(err))
				continue
			}

			res, err := lb.Apply(ctx, action)
			if err != nil {
				return
			}
			if res.Err != nil {
				// Rejections go to the sender only; accepted actions arrive via out.
				_ = write(ctx, conn, types.Error(res.Err))
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
