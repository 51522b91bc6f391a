// Package chat implements the client side of a multimodal conversation with a
// hosted agent: session creation, turn submission and reply extraction.
//
// All conversation data lives in an explicit State value. The package does not
// lock; the owner of a State serializes access to it.
package chat

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Status is the lifecycle of the most recent turn submission.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending"
	StatusError   Status = "error"
)

// Image is an uploaded picture kept for re-display.
type Image struct {
	Data     []byte
	MIMEType string
}

// Turn is one visible message. Turns are append-only.
type Turn struct {
	Role  Role
	Text  string
	Image *Image
	At    time.Time
}

// State is everything one browser knows about its conversation.
type State struct {
	UserID    string
	SessionID string
	Turns     []Turn
	Status    Status
	// Error is the last user-visible failure, cleared by the next action.
	Error string
	// Notice is informational, e.g. a turn that produced no text reply.
	Notice string

	turnSeq       uint64
	lastIDUnix    int64
	idsThisSecond int
}

// NewUserID returns a fresh user identifier of the form user-<uuid>.
func NewUserID() string {
	return "user-" + uuid.NewString()
}

// NewState returns an idle state with a fresh user id and no session.
func NewState() *State {
	return &State{UserID: NewUserID(), Status: StatusIdle}
}

// HasSession reports whether a session was created successfully.
func (s *State) HasSession() bool { return s.SessionID != "" }

// Clone returns a copy whose Turns slice can be read without holding the
// owner's lock. Image bytes are shared; they are never mutated.
func (s *State) Clone() *State {
	c := *s
	if s.Turns != nil {
		c.Turns = make([]Turn, len(s.Turns))
		copy(c.Turns, s.Turns)
	}
	return &c
}
