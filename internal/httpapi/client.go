package httpapi

import (
	"net/http"

	"github.com/ent0n29/imagechat/internal/session"
)

const clientCookieName = "imagechat_client"

// resolveClient returns the chat state bound to the request's client cookie,
// creating a client and setting the cookie when none is known.
func (s *Server) resolveClient(w http.ResponseWriter, r *http.Request) session.Snapshot {
	var id string
	if c, err := r.Cookie(clientCookieName); err == nil {
		id = c.Value
	}
	snap, created := s.sessions.Resolve(id)
	if created {
		if s.metrics != nil {
			s.metrics.ActiveClients.Inc()
			s.metrics.SessionEvents.WithLabelValues("client_created").Inc()
		}
		http.SetCookie(w, &http.Cookie{
			Name:     clientCookieName,
			Value:    snap.ClientID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	} else {
		_ = s.sessions.Touch(snap.ClientID)
	}
	return snap
}

// knownClient returns the client named by the cookie without creating one.
func (s *Server) knownClient(r *http.Request) (session.Snapshot, bool) {
	c, err := r.Cookie(clientCookieName)
	if err != nil || c.Value == "" {
		return session.Snapshot{}, false
	}
	snap, err := s.sessions.Get(c.Value)
	if err != nil {
		return session.Snapshot{}, false
	}
	return snap, true
}
