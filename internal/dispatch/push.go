package dispatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Notifier delivers an event to a user by whatever channel is available.
type Notifier interface {
	Notify(userID string, ev Event) error
}

// PushDispatcher tries the live websocket first and falls back to posting the
// event to a webhook endpoint (push-provider relay). Delivery is best effort;
// clients poll anyway, the push only shortens the wait.
type PushDispatcher struct {
	WS       *WSRegistry
	Endpoint string
	Client   *http.Client
}

func NewPushDispatcher(ws *WSRegistry, endpoint string) *PushDispatcher {
	return &PushDispatcher{WS: ws, Endpoint: endpoint, Client: &http.Client{Timeout: 3 * time.Second}}
}

func (p *PushDispatcher) Notify(userID string, ev Event) error {
	if p.WS != nil {
		if err := p.WS.Notify(userID, ev); err == nil {
			return nil
		} else if !errors.Is(err, ErrNoSession) {
			return err
		}
	}
	if p.Endpoint == "" {
		return nil
	}
	b, _ := json.Marshal(map[string]any{"user_id": userID, "event": ev})
	resp, err := p.Client.Post(p.Endpoint, "application/json", bytes.NewReader(b))
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
