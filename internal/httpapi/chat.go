package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/imagechat/internal/agentapi"
	"github.com/ent0n29/imagechat/internal/chat"
	"github.com/ent0n29/imagechat/internal/log"
	"github.com/ent0n29/imagechat/internal/protocol"
	"github.com/ent0n29/imagechat/internal/session"
)

// multipart overhead allowed on top of the image limit
const formOverheadBytes = 1 << 20

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	snap := s.resolveClient(w, r)
	respondJSON(w, http.StatusOK, protocol.NewStateSnapshot(snap.Version, snap.State))
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	client := s.resolveClient(w, r)
	snap, err := s.sessions.Update(client.ClientID, func(st *chat.State) error {
		return s.chat.CreateSession(r.Context(), st)
	})
	switch {
	case errors.Is(err, session.ErrNotFound):
		respondError(w, http.StatusNotFound, "client_not_found", "client expired, reload the page")
		return
	case err != nil:
		s.countSessionEvent("agent_session_failed")
		respondJSON(w, http.StatusBadGateway, sessionFailure{
			errorResponse: errorResponse{Error: snap.State.Error, Code: "session_create_failed"},
			Retryable:     agentapi.IsRetryable(err),
			Snapshot:      protocol.NewStateSnapshot(snap.Version, snap.State),
		})
		return
	}
	s.countSessionEvent("agent_session_created")
	respondJSON(w, http.StatusOK, protocol.NewStateSnapshot(snap.Version, snap.State))
}

type sessionFailure struct {
	errorResponse
	Retryable bool                   `json:"retryable"`
	Snapshot  protocol.StateSnapshot `json:"snapshot"`
}

// handleSubmitTurn accepts a multipart form with a "text" field and an
// optional "image" file. The turn is answered with 202 and completes in the
// background; its result arrives as a state snapshot.
func (s *Server) handleSubmitTurn(w http.ResponseWriter, r *http.Request) {
	client := s.resolveClient(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxImageBytes+formOverheadBytes)
	if err := r.ParseMultipartForm(formOverheadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.rejectUpload(w, http.StatusRequestEntityTooLarge, "too_large", "image exceeds the upload limit")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid_form", "expected multipart form data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	text := r.FormValue("text")
	image, status, err := s.readImage(r)
	if err != nil {
		s.rejectUpload(w, status, "unreadable", err.Error())
		return
	}
	if image != nil && int64(len(image.Data)) > s.cfg.MaxImageBytes {
		s.rejectUpload(w, http.StatusRequestEntityTooLarge, "too_large", "image exceeds the upload limit")
		return
	}

	var sub *chat.Submission
	snap, err := s.sessions.Update(client.ClientID, func(st *chat.State) error {
		var beginErr error
		sub, beginErr = s.chat.BeginTurn(st, text, image)
		return beginErr
	})
	switch {
	case err == nil:
	case errors.Is(err, session.ErrNotFound):
		respondError(w, http.StatusNotFound, "client_not_found", "client expired, reload the page")
		return
	case errors.Is(err, chat.ErrNoSession):
		respondError(w, http.StatusConflict, "no_session", chat.MsgNoSession)
		return
	case errors.Is(err, chat.ErrTurnPending):
		respondError(w, http.StatusConflict, "turn_pending", "wait for the current reply")
		return
	case errors.Is(err, chat.ErrEmptyText):
		respondError(w, http.StatusBadRequest, "empty_text", "message text is required")
		return
	case errors.Is(err, chat.ErrUnsupportedImage):
		s.rejectUpload(w, http.StatusUnsupportedMediaType, "unsupported_type", snap.State.Error)
		return
	default:
		respondError(w, http.StatusInternalServerError, "turn_failed", err.Error())
		return
	}

	s.inflight.Add(1)
	go s.runTurn(client.ClientID, sub)

	respondJSON(w, http.StatusAccepted, protocol.NewStateSnapshot(snap.Version, snap.State))
}

func (s *Server) readImage(r *http.Request) (*chat.Image, int, error) {
	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxImageBytes+1))
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	if len(data) == 0 {
		return nil, 0, nil
	}
	return &chat.Image{Data: data}, 0, nil
}

func (s *Server) rejectUpload(w http.ResponseWriter, status int, reason, message string) {
	if s.metrics != nil {
		s.metrics.UploadRejected.WithLabelValues(reason).Inc()
	}
	respondError(w, status, "image_"+reason, message)
}

func (s *Server) runTurn(clientID string, sub *chat.Submission) {
	defer s.inflight.Done()

	events, runErr := s.chat.Submit(s.baseCtx, sub)
	_, err := s.sessions.Update(clientID, func(st *chat.State) error {
		s.chat.CompleteTurn(st, sub, events, runErr)
		return nil
	})
	if err != nil {
		log.Warnw("turn result dropped", "client_id", clientID, "session_id", sub.Request.SessionID, "error", err)
	}
}

func (s *Server) handleTurnImage(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.knownClient(r)
	if !ok {
		respondError(w, http.StatusNotFound, "client_not_found", "unknown client")
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 || index >= len(snap.State.Turns) {
		respondError(w, http.StatusNotFound, "turn_not_found", "no such turn")
		return
	}
	img := snap.State.Turns[index].Image
	if img == nil {
		respondError(w, http.StatusNotFound, "image_not_found", "turn has no image")
		return
	}
	w.Header().Set("Content-Type", img.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	snap := s.resolveClient(w, r)
	if s.transcript == nil {
		respondError(w, http.StatusNotFound, "transcript_disabled", "transcript store is not configured")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	entries, err := s.transcript.Recent(r.Context(), snap.State.UserID, limit)
	if err != nil {
		log.Errorw("transcript read failed", "user_id", snap.State.UserID, "error", err)
		respondError(w, http.StatusInternalServerError, "transcript_unavailable", "could not read transcript")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"mode":    s.transcript.Mode(),
		"entries": entries,
	})
}
