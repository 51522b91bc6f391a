package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ent0n29/imagechat/internal/observability"
	"github.com/ent0n29/imagechat/internal/protocol"
	"github.com/ent0n29/imagechat/internal/session"
)

const (
	subscriberQueue = 64
	wsReadTimeout   = 120 * time.Second
	wsWriteTimeout  = 10 * time.Second
	wsPingInterval  = 50 * time.Second
)

// hub fans state snapshots out to the websocket connections of each client.
type hub struct {
	mu      sync.Mutex
	subs    map[string]map[*subscriber]struct{}
	metrics *observability.Metrics
}

type subscriber struct {
	out chan any
}

func newHub(metrics *observability.Metrics) *hub {
	return &hub{subs: make(map[string]map[*subscriber]struct{}), metrics: metrics}
}

func (h *hub) subscribe(clientID string) *subscriber {
	sub := &subscriber{out: make(chan any, subscriberQueue)}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[clientID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[clientID] = set
	}
	set[sub] = struct{}{}
	return sub
}

func (h *hub) unsubscribe(clientID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[clientID]
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, clientID)
	}
}

func (h *hub) subscriberCount(clientID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[clientID])
}

// publish is the session manager's change hook.
func (h *hub) publish(snap session.Snapshot) {
	msg := protocol.NewStateSnapshot(snap.Version, snap.State)
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[snap.ClientID] {
		sub.send(msg, h.metrics)
	}
}

func (sub *subscriber) send(msg any, metrics *observability.Metrics) {
	select {
	case sub.out <- msg:
	default:
		// Slow reader. It can recover with a refresh.
		if metrics != nil {
			metrics.WSMessages.WithLabelValues("outbound", "dropped").Inc()
		}
	}
}

func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	known, ok := s.knownClient(r)
	if !ok {
		respondError(w, http.StatusNotFound, "client_not_found", "load /v1/chat/state first")
		return
	}
	clientID := known.ClientID

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.countSessionEvent("ws_connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Subscribe before reading the initial snapshot so no update falls in
	// between. The writer drops whichever copy is older.
	sub := s.hub.subscribe(clientID)
	defer s.hub.unsubscribe(clientID, sub)
	snap, err := s.sessions.Get(clientID)
	if err != nil {
		snap = known
	}
	sub.send(protocol.NewStateSnapshot(snap.Version, snap.State), s.metrics)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ping := time.NewTicker(s.wsPingInterval)
		defer ping.Stop()
		var lastVersion uint64
		for {
			select {
			case <-ctx.Done():
				return
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					if s.metrics != nil {
						s.metrics.WSWriteErrors.Inc()
					}
					cancel()
					return
				}
			case msg := <-sub.out:
				if st, ok := msg.(protocol.StateSnapshot); ok {
					if st.Version < lastVersion {
						continue
					}
					lastVersion = st.Version
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
				if err := conn.WriteJSON(msg); err != nil {
					if s.metrics != nil {
						s.metrics.WSWriteErrors.Inc()
					}
					cancel()
					return
				}
				s.countWSMessage("outbound", messageTypeOf(msg))
			}
		}
	}()

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(s.wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(s.wsReadTimeout))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.wsReadTimeout))
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			sub.send(protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   "invalid_client_message",
				Detail: err.Error(),
			}, s.metrics)
			continue
		}
		ctrl := parsed.(protocol.ClientControl)
		s.countWSMessage("inbound", string(ctrl.Type))
		_ = s.sessions.Touch(clientID)

		switch ctrl.Action {
		case protocol.ActionPing:
			sub.send(protocol.SystemEvent{Type: protocol.TypeSystemEvent, Code: "pong"}, s.metrics)
		case protocol.ActionRefresh:
			current, err := s.sessions.Get(clientID)
			if err != nil {
				sub.send(protocol.ErrorEvent{
					Type:   protocol.TypeErrorEvent,
					Code:   "client_not_found",
					Detail: "client expired, reload the page",
				}, s.metrics)
				continue
			}
			sub.send(protocol.NewStateSnapshot(current.Version, current.State), s.metrics)
		}
	}

	cancel()
	<-writerDone
	s.countSessionEvent("ws_disconnected")
}

func messageTypeOf(msg any) string {
	switch m := msg.(type) {
	case protocol.StateSnapshot:
		return string(m.Type)
	case protocol.SystemEvent:
		return string(m.Type)
	case protocol.ErrorEvent:
		return string(m.Type)
	default:
		return "unknown"
	}
}

func (s *Server) countWSMessage(direction, msgType string) {
	if s.metrics != nil {
		s.metrics.WSMessages.WithLabelValues(direction, msgType).Inc()
	}
}

func (s *Server) countSessionEvent(event string) {
	if s.metrics != nil {
		s.metrics.SessionEvents.WithLabelValues(event).Inc()
	}
}
