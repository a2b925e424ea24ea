package fakeapi

import (
	"net/http"

	"github.com/go-chi/chi"
	log "github.com/sirupsen/logrus"
	"github.com/visualtk/vnintegration/internal/remote"
	"github.com/visualtk/vnintegration/internal/xmljson"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if query.Get("login") != s.login || query.Get("password") != s.password {
		s.write(w, http.StatusUnauthorized, errorDoc(http.StatusUnauthorized, "invalid credentials"))
		return
	}
	s.mu.Lock()
	s.logins++
	s.mu.Unlock()

	logged := map[string]interface{}{"status": "ok", "login": s.login}
	if !s.omitSession {
		logged["session"] = s.token
	}
	s.write(w, http.StatusOK, map[string]interface{}{"logged": logged})
}

func (s *Server) handleRepertoire(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.listCalls++
	s.mu.Unlock()
	if !s.authorized(r) {
		s.write(w, http.StatusUnauthorized, errorDoc(http.StatusUnauthorized, "session expired"))
		return
	}
	s.write(w, http.StatusOK, s.repertoireDoc())
}

func (s *Server) handleSynchronize(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	s.mu.Lock()
	s.syncCalls[eventID]++
	rejected := s.unauthorized[eventID] > 0
	if rejected {
		s.unauthorized[eventID]--
	}
	embedded := s.embedded
	failing := s.failing.Has(eventID)
	_, known := s.tickets[eventID]
	s.mu.Unlock()

	switch {
	case rejected && embedded:
		s.write(w, http.StatusInternalServerError, errorDoc(http.StatusUnauthorized, "session expired"))
	case rejected || !s.authorized(r):
		s.write(w, http.StatusUnauthorized, errorDoc(http.StatusUnauthorized, "session expired"))
	case failing:
		s.write(w, http.StatusInternalServerError, errorDoc(http.StatusInternalServerError, "internal error"))
	case !known:
		s.write(w, http.StatusNotFound, errorDoc(http.StatusNotFound, "unknown event"))
	default:
		s.write(w, http.StatusOK, s.synchronizeDoc(eventID))
	}
}

// authorized accepts the session token from the query string or the cookie.
func (s *Server) authorized(r *http.Request) bool {
	if r.URL.Query().Get(remote.SessionParam) == s.token {
		return true
	}
	cookie, err := r.Cookie(remote.SessionParam)
	return err == nil && cookie.Value == s.token
}

func (s *Server) write(w http.ResponseWriter, status int, doc map[string]interface{}) {
	body, err := xmljson.Encode(doc)
	if err != nil {
		log.WithError(err).Error("Encoding fake api response")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func errorDoc(code int, message string) map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	}
}
