package service

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/visualtk/vnintegration/internal/model"
	"github.com/visualtk/vnintegration/internal/xmljson"
)

// Events defines the event list service interface.
type Events interface {
	// UpdateEventList logs in, fetches the repertoire and replaces the event list.
	// A response without events leaves the list unchanged and is not an error.
	UpdateEventList(ctx context.Context) error
	EventList() []model.Event
	UpdatedAt() time.Time

	Stop()
}

type eventService struct {
	Service

	mu        sync.RWMutex
	events    []model.Event
	updatedAt time.Time
}

// NewEventService creates a new instance.
func NewEventService(ctx context.Context, options ...func(*Service) error) (Events, error) {
	svc, err := newService("vnintegration-event-service", options)
	if err != nil {
		return nil, err
	}
	if svc.auth == nil {
		return nil, errors.New("auth option missing")
	}
	return &eventService{Service: svc, events: []model.Event{}}, nil
}

func (s *eventService) Stop() {
	s.Service.Stop()
}

func (s *eventService) EventList() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := make([]model.Event, len(s.events))
	copy(events, s.events)
	return events
}

func (s *eventService) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

func (s *eventService) UpdateEventList(ctx context.Context) error {
	logger := log.WithField("service", s.name)
	logger.Info("Updating event list")

	if _, err := s.auth.Login(ctx); err != nil {
		return err
	}
	doc, err := s.fetchEventList(ctx)
	if err != nil {
		return err
	}

	records, ok := xmljson.Lookup(doc, eventRoot, eventCollection)
	if !ok {
		logger.Error("No events found in the response")
		return nil
	}
	events, err := model.DecodeEvents(xmljson.AsArray(records))
	if err != nil {
		return &ParseError{Err: errors.Wrap(err, "decoding event list")}
	}

	s.mu.Lock()
	s.events = events
	s.updatedAt = s.now()
	s.mu.Unlock()

	logger.WithField("count", len(events)).Info("Updated event list")
	s.Notify(TopicEventsUpdated, &model.Notice{Count: len(events)})
	return nil
}

// fetchEventList requests the repertoire, stores it and returns it decoded.
func (s *eventService) fetchEventList(ctx context.Context) (map[string]interface{}, error) {
	resp, err := s.client.Repertoire(ctx, s.auth.SessionToken())
	if err != nil {
		return nil, &FetchError{Err: errors.Wrap(err, "fetching event list")}
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &AuthError{Err: errors.New("event list request unauthorized")}
	case !resp.OK():
		return nil, &FetchError{StatusCode: resp.StatusCode, Err: errors.New("fetching event list")}
	}

	doc, err := xmljson.Decode(resp.Body, xmljson.WithArrays(collectionPaths(eventRoot, eventCollection)...))
	if err != nil {
		return nil, &ParseError{Err: errors.Wrap(err, "decoding event list")}
	}

	var payload interface{} = doc
	if s.format == xmljson.FormatXML {
		payload = resp.Body
	}
	if _, err = s.save(ctx, RepertoirePrefix, "", payload); err != nil {
		return nil, errors.Wrap(err, "saving event list")
	}
	return doc, nil
}
