// Package fakeapi is an in-process stand-in for the service.php API. It serves
// a generated repertoire with connected ticket data and can be told to fail.
package fakeapi

import (
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/pkg/errors"
	"github.com/visualtk/vnintegration/internal/remote"
	"github.com/visualtk/vnintegration/internal/util"
)

// Defaults of a new Server.
const (
	DefaultLogin    = "usher"
	DefaultPassword = "secret"
	DefaultToken    = "f0a1b2c3d4e5"
)

// Server serves the fake remote API.
type Server struct {
	mu     sync.Mutex
	router *chi.Mux
	random *rand.Rand

	login       string
	password    string
	token       string
	omitSession bool

	events       []string
	repertoire   map[string]map[string]interface{}
	tickets      map[string][]interface{}
	failing      util.StringSet
	unauthorized map[string]int
	embedded     bool

	logins    int
	listCalls int
	syncCalls map[string]int
}

// OptionCredentials sets the accepted login and password.
func OptionCredentials(login, password string) func(*Server) error {
	return func(s *Server) error {
		s.login, s.password = login, password
		return nil
	}
}

// OptionToken sets the session token handed out on login.
func OptionToken(token string) func(*Server) error {
	return func(s *Server) error {
		if token == "" {
			return errors.New("empty token")
		}
		s.token = token
		return nil
	}
}

// OptionSeed makes the generated data reproducible.
func OptionSeed(seed int64) func(*Server) error {
	return func(s *Server) error {
		s.random = rand.New(rand.NewSource(seed))
		return nil
	}
}

// OptionEvent adds an event with `tickets` ticket records.
func OptionEvent(eventID string, tickets int) func(*Server) error {
	return func(s *Server) error {
		if !util.ValidEventID(eventID) {
			return errors.Errorf("invalid event id %q", eventID)
		}
		s.addEvent(eventID, tickets)
		return nil
	}
}

// OptionGeneratedEvents adds `count` events with ids starting at 600.
func OptionGeneratedEvents(count, tickets int) func(*Server) error {
	return func(s *Server) error {
		for i := 0; i < count; i++ {
			s.addEvent(strconv.Itoa(600+i), tickets)
		}
		return nil
	}
}

// OptionFailEvent answers the synchronize requests of the given events with 500.
func OptionFailEvent(eventIDs ...string) func(*Server) error {
	return func(s *Server) error {
		for _, id := range eventIDs {
			s.failing.Add(id)
		}
		return nil
	}
}

// OptionUnauthorized rejects the first `count` synchronize requests of an event.
// With `embedded` the rejection is a 500 carrying code 401 in its body.
func OptionUnauthorized(eventID string, count int, embedded bool) func(*Server) error {
	return func(s *Server) error {
		s.unauthorized[eventID] = count
		s.embedded = embedded
		return nil
	}
}

// OptionOmitSession answers logins without a session token.
func OptionOmitSession() func(*Server) error {
	return func(s *Server) error {
		s.omitSession = true
		return nil
	}
}

// NewServer creates a new instance.
func NewServer(options ...func(*Server) error) (*Server, error) {
	s := &Server{
		router:       chi.NewRouter(),
		random:       rand.New(rand.NewSource(time.Now().UnixNano())),
		login:        DefaultLogin,
		password:     DefaultPassword,
		token:        DefaultToken,
		repertoire:   make(map[string]map[string]interface{}),
		tickets:      make(map[string][]interface{}),
		failing:      util.NewStringSet(),
		unauthorized: make(map[string]int),
		syncCalls:    make(map[string]int),
	}
	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Get(remote.LoginPath, s.handleLogin)
	s.router.Get(remote.RepertoirePath, s.handleRepertoire)
	s.router.Get(fmt.Sprintf(remote.SynchronizePath, "{eventID}"), s.handleSynchronize)
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Token returns the session token handed out on login.
func (s *Server) Token() string {
	return s.token
}

// Events returns the ids of the served events in order.
func (s *Server) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

// Logins returns the number of successful logins.
func (s *Server) Logins() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

// ListCalls returns the number of repertoire requests.
func (s *Server) ListCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

// SyncCalls returns the number of synchronize requests for an event.
func (s *Server) SyncCalls(eventID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncCalls[eventID]
}

// SetEvents replaces the served events, each with `tickets` ticket records.
func (s *Server) SetEvents(tickets int, eventIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	for _, id := range eventIDs {
		s.addEvent(id, tickets)
	}
}

func (s *Server) addEvent(eventID string, tickets int) {
	known := false
	for _, id := range s.events {
		known = known || id == eventID
	}
	if !known {
		s.events = append(s.events, eventID)
	}
	s.repertoire[eventID] = s.generateEvent(eventID)
	records := make([]interface{}, 0, tickets)
	for i := 0; i < tickets; i++ {
		records = append(records, s.generateTicket(i))
	}
	s.tickets[eventID] = records
}
