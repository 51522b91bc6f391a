package session

import (
	"time"

	"github.com/ent0n29/imagechat/internal/chat"
)

// Snapshot is a consistent copy of one client's chat state.
type Snapshot struct {
	ClientID string
	// Version increases on every update of the client, so consumers can
	// discard snapshots that arrive out of order.
	Version        uint64
	State          *chat.State
	CreatedAt      time.Time
	LastActivityAt time.Time
}
