package service

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/visualtk/vnintegration/internal/model"
	"github.com/visualtk/vnintegration/internal/xmljson"
)

// Auth defines the auth service interface.
type Auth interface {
	// Login authenticates against the remote service and returns the new session token.
	Login(ctx context.Context) (string, error)
	SessionToken() string
	Session() *model.Session

	Stop()
}

type authService struct {
	Service
	session *model.Session
}

// NewAuthService creates a new instance.
func NewAuthService(ctx context.Context, options ...func(*Service) error) (Auth, error) {
	svc, err := newService("vnintegration-auth-service", options)
	if err != nil {
		return nil, err
	}
	if svc.params[ParamUsername] == "" {
		return nil, errors.Errorf("required parameter %s missing", ParamUsername)
	}
	return &authService{
		Service: svc,
		session: model.NewSession(),
	}, nil
}

func (s *authService) Stop() {
	s.Service.Stop()
}

func (s *authService) Session() *model.Session {
	return s.session
}

func (s *authService) SessionToken() string {
	return s.session.Token()
}

// Login stores the raw response for auditing before looking at it. The session
// only changes when the response carries a token.
func (s *authService) Login(ctx context.Context) (string, error) {
	logger := log.WithField("service", s.name)
	logger.Info("Attempting to log in")

	resp, err := s.client.Login(ctx, s.params[ParamUsername], s.params[ParamPassword])
	if err != nil {
		return "", &FetchError{Err: errors.Wrap(err, "requesting login")}
	}
	if _, err := s.store.Put(ctx, LoginResponseFile, resp.Body); err != nil {
		logger.WithError(err).Warning("Error saving login response")
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", &AuthError{Err: errors.Errorf("login rejected with status %d", resp.StatusCode)}
	case !resp.OK():
		return "", &FetchError{StatusCode: resp.StatusCode, Err: errors.New("login request failed")}
	}

	doc, err := xmljson.Decode(resp.Body)
	if err != nil {
		return "", &ParseError{Err: errors.Wrap(err, "decoding login response")}
	}
	value, _ := xmljson.Lookup(doc, "logged", "session")
	token := xmljson.Text(value)
	if token == "" {
		return "", &AuthError{Err: errors.New("session token not found in the response")}
	}

	s.session.Set(token, s.now())
	logger.WithField("session", token).Debug("Logged in")
	return token, nil
}
