package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// LiveStateAPI maintains an in-memory snapshot of assist_satellite
// entities fed by Home Assistant's websocket event stream, so RoomDetector
// never blocks a request on a synchronous /api/states HTTP call.
//
// Grounded on agent/streaming/ws_adapter.go's WebSocketStreamConnection:
// same dial-then-read-loop shape and mutex-guarded single writer, re-
// grounded here for Home Assistant's auth/subscribe_events handshake
// instead of a bidirectional chunk stream.
type LiveStateAPI struct {
	url    string
	token  string
	logger *zap.Logger

	mu    sync.RWMutex
	state map[string]SatelliteState
}

// NewLiveStateAPI builds a LiveStateAPI. Call Run in a goroutine to start
// the connect/subscribe/read loop; AssistSatellites is safe to call before
// the first successful connection, returning an empty snapshot.
func NewLiveStateAPI(url, token string, logger *zap.Logger) *LiveStateAPI {
	return &LiveStateAPI{
		url:    url,
		token:  token,
		logger: logger.With(zap.String("component", "gateway_room_ws")),
		state:  make(map[string]SatelliteState),
	}
}

// AssistSatellites implements StateAPI by returning the current snapshot.
func (l *LiveStateAPI) AssistSatellites(ctx context.Context) ([]SatelliteState, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]SatelliteState, 0, len(l.state))
	for _, s := range l.state {
		out = append(out, s)
	}
	return out, nil
}

// haMessage is the subset of Home Assistant's websocket envelope this
// client needs to dispatch on "type".
type haMessage struct {
	Type  string          `json:"type"`
	Event json.RawMessage `json:"event,omitempty"`
}

type haStateChangedEvent struct {
	EventType string `json:"event_type"`
	Data      struct {
		EntityID string `json:"entity_id"`
		NewState *struct {
			State       string         `json:"state"`
			LastChanged time.Time      `json:"last_changed"`
			Attributes  map[string]any `json:"attributes"`
		} `json:"new_state"`
	} `json:"data"`
}

// Run dials url, performs the auth handshake, subscribes to state_changed
// events, and applies every assist_satellite update to the in-memory
// snapshot until ctx is cancelled or the connection drops. Callers should
// loop Run with a backoff to reconnect after a drop.
func (l *LiveStateAPI) Run(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, l.url, nil)
	if err != nil {
		return fmt.Errorf("ha websocket dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "closing")

	if err := l.authenticate(ctx, conn); err != nil {
		return err
	}
	if err := l.subscribe(ctx, conn); err != nil {
		return err
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("ha websocket read: %w", err)
		}
		l.handleMessage(data)
	}
}

func (l *LiveStateAPI) authenticate(ctx context.Context, conn *websocket.Conn) error {
	// Home Assistant sends auth_required first, then expects an auth
	// frame carrying the long-lived access token before any subscription
	// is accepted.
	if _, _, err := conn.Read(ctx); err != nil {
		return fmt.Errorf("ha websocket auth_required: %w", err)
	}
	auth, _ := json.Marshal(map[string]string{"type": "auth", "access_token": l.token})
	if err := conn.Write(ctx, websocket.MessageText, auth); err != nil {
		return fmt.Errorf("ha websocket auth write: %w", err)
	}
	_, resp, err := conn.Read(ctx)
	if err != nil {
		return fmt.Errorf("ha websocket auth response: %w", err)
	}
	var ack haMessage
	if err := json.Unmarshal(resp, &ack); err == nil && ack.Type == "auth_invalid" {
		return fmt.Errorf("ha websocket auth rejected")
	}
	return nil
}

func (l *LiveStateAPI) subscribe(ctx context.Context, conn *websocket.Conn) error {
	sub, _ := json.Marshal(map[string]any{"id": 1, "type": "subscribe_events", "event_type": "state_changed"})
	return conn.Write(ctx, websocket.MessageText, sub)
}

func (l *LiveStateAPI) handleMessage(data []byte) {
	var msg haMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "event" {
		return
	}
	var evt haStateChangedEvent
	if err := json.Unmarshal(msg.Event, &evt); err != nil || evt.Data.NewState == nil {
		return
	}
	if !isAssistSatellite(evt.Data.EntityID) {
		return
	}

	friendlyName, _ := evt.Data.NewState.Attributes["friendly_name"].(string)
	l.mu.Lock()
	l.state[evt.Data.EntityID] = SatelliteState{
		EntityID:     evt.Data.EntityID,
		State:        evt.Data.NewState.State,
		FriendlyName: friendlyName,
		LastChanged:  evt.Data.NewState.LastChanged,
	}
	l.mu.Unlock()
}

func isAssistSatellite(entityID string) bool {
	return len(entityID) > len("assist_satellite.") && entityID[:len("assist_satellite.")] == "assist_satellite."
}
