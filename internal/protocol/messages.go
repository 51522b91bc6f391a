package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ent0n29/imagechat/internal/chat"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeClientControl MessageType = "client_control"
	TypeStateSnapshot MessageType = "state_snapshot"
	TypeSystemEvent   MessageType = "system_event"
	TypeErrorEvent    MessageType = "error_event"
)

// Client control actions.
const (
	ActionPing    = "ping"
	ActionRefresh = "refresh"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

type ClientControl struct {
	Type   MessageType `json:"type"`
	Action string      `json:"action"`
}

// TurnView is a turn as rendered by the browser. Image bytes are fetched
// separately through ImageURL.
type TurnView struct {
	Index     int       `json:"index"`
	Role      chat.Role `json:"role"`
	Text      string    `json:"text"`
	ImageURL  string    `json:"image_url,omitempty"`
	ImageMIME string    `json:"image_mime,omitempty"`
	At        time.Time `json:"at"`
}

// StateView is the browser-facing form of chat.State.
type StateView struct {
	UserID    string      `json:"user_id"`
	SessionID string      `json:"session_id"`
	Status    chat.Status `json:"status"`
	Error     string      `json:"error,omitempty"`
	Notice    string      `json:"notice,omitempty"`
	Turns     []TurnView  `json:"turns"`
}

type StateSnapshot struct {
	Type    MessageType `json:"type"`
	Version uint64      `json:"version"`
	State   StateView   `json:"state"`
}

type SystemEvent struct {
	Type   MessageType `json:"type"`
	Code   string      `json:"code"`
	Detail string      `json:"detail,omitempty"`
}

type ErrorEvent struct {
	Type      MessageType `json:"type"`
	Code      string      `json:"code"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

// ImageURL is the route serving the image of turn index.
func ImageURL(index int) string {
	return fmt.Sprintf("/v1/chat/turns/%d/image", index)
}

// NewStateView converts st for the wire.
func NewStateView(st *chat.State) StateView {
	v := StateView{
		UserID:    st.UserID,
		SessionID: st.SessionID,
		Status:    st.Status,
		Error:     st.Error,
		Notice:    st.Notice,
		Turns:     make([]TurnView, 0, len(st.Turns)),
	}
	for i, t := range st.Turns {
		tv := TurnView{Index: i, Role: t.Role, Text: t.Text, At: t.At}
		if t.Image != nil {
			tv.ImageURL = ImageURL(i)
			tv.ImageMIME = t.Image.MIMEType
		}
		v.Turns = append(v.Turns, tv)
	}
	return v
}

func NewStateSnapshot(version uint64, st *chat.State) StateSnapshot {
	return StateSnapshot{Type: TypeStateSnapshot, Version: version, State: NewStateView(st)}
}

func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeClientControl:
		var msg ClientControl
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		switch msg.Action {
		case ActionPing, ActionRefresh:
			return msg, nil
		default:
			return nil, fmt.Errorf("invalid client_control action %q", msg.Action)
		}
	default:
		return nil, ErrUnsupportedType
	}
}
