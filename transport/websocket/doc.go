// Package websocket streams Blockfall game updates to browser and terminal
// clients.
//
// The package uses a hub-and-spoke model where a central Hub owns all
// connections. The Hub's Run goroutine is the only code that touches the
// client registry; everything else talks to it through channels. Each
// client connection has a read pump and a write pump goroutine.
//
// Message Protocol:
//
//   - Incoming: {"action": "left"}; any engine action or "reset"
//   - Outgoing: {"session_id", "event", "action", "outcome", "game_state"}
//
// Several outgoing messages may share one frame, separated by newlines.
// The first message a client receives is a "welcome" carrying its client
// ID. Failed inbound actions are answered with an "error" event to that
// client only.
//
// Usage:
//
//	hub := websocket.NewHub()
//	hub.SetInputHandler(func(ctx context.Context, id, action string) error {
//		_, err := gameService.Act(ctx, id, action, false)
//		return err
//	})
//	go hub.Run(ctx)
//
//	sessions := session.NewManager(session.WithListener(hub.Publish))
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("sessionId"))
//	})
//
// Publish never blocks. When the hub queue is full, updates are dropped
// and logged; a client whose own buffer is full is disconnected.
package websocket
