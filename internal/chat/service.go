package chat

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ent0n29/imagechat/internal/agentapi"
	"github.com/ent0n29/imagechat/internal/log"
	"github.com/ent0n29/imagechat/internal/policy"
	"github.com/ent0n29/imagechat/internal/transcript"
)

var (
	ErrNoSession   = errors.New("no active session")
	ErrTurnPending = errors.New("a turn is already pending")
	ErrEmptyText   = errors.New("message text is empty")
)

// User-visible messages.
const (
	MsgNoSession     = "Please create a session before sending messages."
	MsgNoReply       = "The agent returned no text reply."
	createFailPrefix = "Failed to create session: "
	agentErrorPrefix = "Agent Error: "
)

// Observer receives call and turn outcomes. observability.Metrics implements it.
type Observer interface {
	ObserveAgentCall(op, class string, d time.Duration)
	ObserveTurn(outcome string)
}

// Service runs chat operations against an agent host.
type Service struct {
	host     agentapi.Host
	appName  string
	now      func() time.Time
	observer Observer
	store    transcript.Store
}

type ServiceOption func(*Service)

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func WithObserver(o Observer) ServiceOption {
	return func(s *Service) { s.observer = o }
}

// WithTranscript records every completed exchange, PII-redacted, in store.
func WithTranscript(store transcript.Store) ServiceOption {
	return func(s *Service) { s.store = store }
}

func NewService(host agentapi.Host, appName string, opts ...ServiceOption) *Service {
	s := &Service{host: host, appName: appName, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) AppName() string { return s.appName }

// CreateSession registers a new session with the host. On success the state
// switches to it and its history is cleared; on failure only st.Error changes.
func (s *Service) CreateSession(ctx context.Context, st *State) error {
	id := s.nextSessionID(st)

	start := s.now()
	err := s.host.CreateSession(ctx, s.appName, st.UserID, id)
	s.observeCall(agentapi.OpCreateSession, start, err)
	if err != nil {
		st.Error = createFailPrefix + agentapi.Detail(err)
		log.Warnw("create session failed", "user_id", st.UserID, "session_id", id, "error", err)
		return err
	}

	st.SessionID = id
	st.Turns = nil
	st.Status = StatusIdle
	st.Error = ""
	st.Notice = ""
	// Results of turns submitted to the old session no longer apply.
	st.turnSeq++
	log.Infow("session created", "user_id", st.UserID, "session_id", id)
	return nil
}

// nextSessionID returns session-<unix seconds>. A second id within the same
// second gets a -N suffix so ids are never reused by one state.
func (s *Service) nextSessionID(st *State) string {
	unix := s.now().Unix()
	if unix == st.lastIDUnix {
		st.idsThisSecond++
	} else {
		st.lastIDUnix = unix
		st.idsThisSecond = 0
	}
	if st.idsThisSecond == 0 {
		return fmt.Sprintf("session-%d", unix)
	}
	return fmt.Sprintf("session-%d-%d", unix, st.idsThisSecond)
}

// Submission is a turn that was accepted locally and still has to reach the host.
type Submission struct {
	Request agentapi.RunRequest
	seq     uint64
	userID  string
	text    string
	image   *Image
}

// BeginTurn validates input, appends the user turn and marks the state
// pending. No network call is made.
func (s *Service) BeginTurn(st *State, text string, image *Image) (*Submission, error) {
	if !st.HasSession() {
		st.Error = MsgNoSession
		s.observeTurn("rejected_no_session")
		return nil, ErrNoSession
	}
	if st.Status == StatusPending {
		return nil, ErrTurnPending
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	parts := []agentapi.Part{{Text: text}}
	if image != nil {
		mimeType, displayName, err := DetectImage(image.Data)
		if err != nil {
			st.Error = "Only JPEG and PNG images are supported."
			return nil, err
		}
		image = &Image{Data: image.Data, MIMEType: mimeType}
		parts = append(parts, agentapi.Part{InlineData: &agentapi.InlineData{
			DisplayName: displayName,
			Data:        base64.StdEncoding.EncodeToString(image.Data),
			MimeType:    mimeType,
		}})
	}

	st.Turns = append(st.Turns, Turn{Role: RoleUser, Text: text, Image: image, At: s.now()})
	st.Status = StatusPending
	st.Error = ""
	st.Notice = ""
	st.turnSeq++

	return &Submission{
		Request: agentapi.RunRequest{
			AppName:    s.appName,
			UserID:     st.UserID,
			SessionID:  st.SessionID,
			NewMessage: agentapi.Content{Role: agentapi.RoleUser, Parts: parts},
			Streaming:  false,
		},
		seq:    st.turnSeq,
		userID: st.UserID,
		text:   text,
		image:  image,
	}, nil
}

// Submit sends sub to the host. It does not touch any State and may run
// without the owner's lock.
func (s *Service) Submit(ctx context.Context, sub *Submission) ([]agentapi.Event, error) {
	start := s.now()
	events, err := s.host.Run(ctx, sub.Request)
	s.observeCall(agentapi.OpRun, start, err)
	if err != nil {
		log.Warnw("turn failed", "user_id", sub.userID, "session_id", sub.Request.SessionID, "error", err)
		return nil, err
	}
	s.record(ctx, sub, events)
	return events, nil
}

// CompleteTurn applies the outcome of Submit to st. It returns false when st
// has moved on (new session or newer turn) and the outcome was dropped.
func (s *Service) CompleteTurn(st *State, sub *Submission, events []agentapi.Event, err error) bool {
	if st.SessionID != sub.Request.SessionID || st.turnSeq != sub.seq || st.Status != StatusPending {
		s.observeTurn("stale")
		return false
	}
	if err != nil {
		st.Status = StatusError
		st.Error = agentErrorPrefix + agentapi.Detail(err)
		s.observeTurn("error")
		return true
	}

	st.Status = StatusIdle
	reply, ok := ExtractReply(events)
	if !ok {
		st.Notice = MsgNoReply
		s.observeTurn("no_reply")
		return true
	}
	st.Turns = append(st.Turns, Turn{Role: RoleAssistant, Text: reply, At: s.now()})
	s.observeTurn("replied")
	return true
}

// SendTurn runs BeginTurn, Submit and CompleteTurn in sequence.
func (s *Service) SendTurn(ctx context.Context, st *State, text string, image *Image) error {
	sub, err := s.BeginTurn(st, text, image)
	if err != nil {
		return err
	}
	events, err := s.Submit(ctx, sub)
	s.CompleteTurn(st, sub, events, err)
	return err
}

func (s *Service) record(ctx context.Context, sub *Submission, events []agentapi.Event) {
	if s.store == nil {
		return
	}
	user := s.entry(sub, string(RoleUser), sub.text)
	if sub.image != nil {
		user.ImageMIME = sub.image.MIMEType
	}
	entries := []transcript.Entry{user}
	if reply, ok := ExtractReply(events); ok {
		entries = append(entries, s.entry(sub, string(RoleAssistant), reply))
	}
	for _, e := range entries {
		if err := s.store.SaveTurn(ctx, e); err != nil {
			log.Errorw("transcript write failed", "session_id", e.SessionID, "role", e.Role, "error", err)
			return
		}
	}
}

func (s *Service) entry(sub *Submission, role, content string) transcript.Entry {
	redacted, kinds := policy.RedactPII(content)
	return transcript.Entry{
		UserID:      sub.userID,
		SessionID:   sub.Request.SessionID,
		Role:        role,
		Content:     redacted,
		PIIRedacted: len(kinds) > 0,
		CreatedAt:   s.now().UTC(),
	}
}

func (s *Service) observeCall(op string, start time.Time, err error) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveAgentCall(op, agentapi.Classify(err), s.now().Sub(start))
}

func (s *Service) observeTurn(outcome string) {
	if s.observer != nil {
		s.observer.ObserveTurn(outcome)
	}
}
