package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/mcp-training/blockfall/game/driver"
	"github.com/wricardo/mcp-training/blockfall/game/engine"
	"github.com/wricardo/mcp-training/blockfall/game/service"
	ws "github.com/wricardo/mcp-training/blockfall/transport/websocket"
)

// Frame is one state change to draw.
type Frame struct {
	Outcome  engine.Outcome
	Snapshot engine.Snapshot
	Err      string
}

// Backend produces frames and accepts player input.
type Backend interface {
	// Frames is closed when the backend stops.
	Frames() <-chan Frame
	Send(ctx context.Context, action engine.Action) error
	Title() string
	Close() error
}

const frameBuffer = 64

// localBackend runs an engine in-process behind a driver.
type localBackend struct {
	drv    *driver.Driver
	title  string
	frames chan Frame
	cancel context.CancelFunc
	done   chan struct{}
}

func newLocalBackend(ctx context.Context, cfg *engine.GameConfig, spawner engine.Spawner) (*localBackend, error) {
	eng, err := engine.NewEngineWithSpawner(cfg, spawner)
	if err != nil {
		return nil, err
	}

	b := &localBackend{
		title:  cfg.Name,
		frames: make(chan Frame, frameBuffer),
		done:   make(chan struct{}),
	}
	b.drv = driver.New(eng, driver.WithListener(func(u driver.Update) {
		b.push(Frame{Outcome: u.Outcome, Snapshot: u.Snapshot})
	}))

	// The first frame is queued before the loop can produce any other
	b.frames <- Frame{Snapshot: eng.Snapshot()}

	ctx, b.cancel = context.WithCancel(ctx)
	go func() {
		defer close(b.done)
		defer close(b.frames)
		b.drv.Run(ctx)
	}()
	return b, nil
}

// push never blocks the driver loop; frames are dropped when the UI lags.
func (b *localBackend) push(f Frame) {
	select {
	case b.frames <- f:
	default:
	}
}

func (b *localBackend) Frames() <-chan Frame { return b.frames }

func (b *localBackend) Title() string { return b.title + " (local)" }

func (b *localBackend) Send(ctx context.Context, action engine.Action) error {
	_, err := b.drv.Apply(ctx, action)
	return err
}

func (b *localBackend) Close() error {
	b.cancel()
	<-b.done
	return nil
}

// remoteBackend plays a session on a Blockfall server. State arrives over
// the websocket and input is sent back on the same connection.
type remoteBackend struct {
	sessionID string
	conn      *websocket.Conn
	frames    chan Frame
	done      chan struct{}
}

// attachSession creates a session (empty sessionID) or checks an existing
// one over REST and returns its ID and config name.
func attachSession(ctx context.Context, baseURL, sessionID, configID string) (*service.SessionInfo, error) {
	method, path := http.MethodGet, "/api/sessions/"+url.PathEscape(sessionID)
	var body []byte
	if sessionID == "" {
		method, path = http.MethodPost, "/api/sessions"
		body, _ = json.Marshal(map[string]string{"config_id": configID})
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimSuffix(baseURL, "/")+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return nil, errors.New(msg)
		}
		return nil, fmt.Errorf("API error: %d", resp.StatusCode)
	}

	var info service.SessionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}

// websocketURL turns http(s)://host into ws(s)://host/ws?session=id.
func websocketURL(baseURL, sessionID string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"session": {sessionID}}.Encode()
	return u.String(), nil
}

func newRemoteBackend(ctx context.Context, baseURL, sessionID, configID string) (*remoteBackend, error) {
	info, err := attachSession(ctx, baseURL, sessionID, configID)
	if err != nil {
		return nil, fmt.Errorf("attach session: %w", err)
	}

	wsURL, err := websocketURL(baseURL, info.ID)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}

	b := &remoteBackend{
		sessionID: info.ID,
		conn:      conn,
		frames:    make(chan Frame, frameBuffer),
		done:      make(chan struct{}),
	}
	if info.GameState != nil {
		b.frames <- Frame{Snapshot: *info.GameState}
	}
	go b.readLoop()
	return b, nil
}

// readLoop decodes newline-batched hub messages until the connection closes.
func (b *remoteBackend) readLoop() {
	defer close(b.done)
	defer close(b.frames)

	for {
		_, data, err := b.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] read error: %v", err)
			}
			return
		}

		for _, part := range bytes.Split(data, []byte{'\n'}) {
			if len(bytes.TrimSpace(part)) == 0 {
				continue
			}
			var msg ws.Message
			if err := json.Unmarshal(part, &msg); err != nil {
				log.Printf("[WS] bad message: %v", err)
				continue
			}
			if f, ok := frameFromMessage(&msg); ok {
				select {
				case b.frames <- f:
				default:
				}
			}
		}
	}
}

// frameFromMessage converts a hub message into a frame, if it carries one.
func frameFromMessage(msg *ws.Message) (Frame, bool) {
	switch msg.Event {
	case ws.EventStateUpdate:
		if msg.GameState == nil {
			return Frame{}, false
		}
		return Frame{Outcome: msg.Outcome, Snapshot: *msg.GameState}, true
	case ws.EventError:
		return Frame{Err: fmt.Sprint(msg.Data)}, true
	}
	return Frame{}, false
}

func (b *remoteBackend) Frames() <-chan Frame { return b.frames }

func (b *remoteBackend) Title() string { return "session " + b.sessionID }

func (b *remoteBackend) Send(ctx context.Context, action engine.Action) error {
	data, err := json.Marshal(ws.InboundMessage{Action: string(action)})
	if err != nil {
		return err
	}
	b.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return b.conn.WriteMessage(websocket.TextMessage, data)
}

func (b *remoteBackend) Close() error {
	b.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := b.conn.Close()
	<-b.done
	return err
}
