package service

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/visualtk/vnintegration/internal/model"
	"github.com/visualtk/vnintegration/internal/remote"
	"github.com/visualtk/vnintegration/internal/store"
	"github.com/visualtk/vnintegration/internal/util"
	"github.com/visualtk/vnintegration/internal/xmljson"
	"go.uber.org/multierr"
)

// Tickets defines the ticket fetching service interface.
type Tickets interface {
	// FetchTicketsForEvent fetches the ticket records of one event, re-authenticating
	// on authorization failures.
	FetchTicketsForEvent(ctx context.Context, eventID string) (*EventTickets, error)
	// FetchTicketsForAllEvents fetches and stores the tickets of each event in turn.
	// A failing event is logged and skipped.
	FetchTicketsForAllEvents(ctx context.Context, events []model.Event) *BatchResult

	Stop()
}

// EventTickets holds the ticket records of one event.
type EventTickets struct {
	EventID  string
	Records  []interface{}
	Tickets  []model.Ticket
	Attempts int
	Reauths  int
}

// BatchResult summarizes one FetchTicketsForAllEvents run.
type BatchResult struct {
	RunID      string
	Events     int
	Saved      []*store.Result
	Failed     []string
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Files returns the names of the stored files.
func (r *BatchResult) Files() []string {
	files := make([]string, 0, len(r.Saved))
	for _, v := range r.Saved {
		files = append(files, v.Key)
	}
	return files
}

type ticketService struct {
	Service
}

// NewTicketService creates a new instance.
func NewTicketService(ctx context.Context, options ...func(*Service) error) (Tickets, error) {
	svc, err := newService("vnintegration-ticket-service", options)
	if err != nil {
		return nil, err
	}
	if svc.auth == nil {
		return nil, errors.New("auth option missing")
	}
	return &ticketService{Service: svc}, nil
}

func (s *ticketService) Stop() {
	s.Service.Stop()
}

func (s *ticketService) FetchTicketsForAllEvents(ctx context.Context, events []model.Event) *BatchResult {
	result := &BatchResult{
		RunID:     uuid.New().String(),
		StartedAt: s.now(),
	}
	logger := log.WithField("service", s.name).WithField("run", result.RunID)
	logger.WithField("events", len(events)).Info("Starting fetch tickets process for all events")

	seen := util.NewStringSet()
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			result.Err = multierr.Append(result.Err, err)
			break
		}
		eventLogger := logger.WithField("event", event.ID)
		if !seen.AddNew(event.ID) {
			eventLogger.Warning("Skipping duplicate event")
			continue
		}
		result.Events++
		eventLogger.Info("Processing event")

		saved, err := s.fetchAndSave(ctx, result.RunID, event.ID)
		if err != nil {
			eventLogger.WithError(err).Error("Error fetching tickets for event")
			result.Failed = append(result.Failed, event.ID)
			result.Err = multierr.Append(result.Err, errors.Wrapf(err, "event %s", event.ID))
			continue
		}
		result.Saved = append(result.Saved, saved)
	}

	result.FinishedAt = s.now()
	logger.WithFields(log.Fields{
		"events":  result.Events,
		"saved":   len(result.Saved),
		"failed":  len(result.Failed),
		"elapsed": result.FinishedAt.Sub(result.StartedAt).String(),
	}).Info("Finished fetch tickets process")
	return result
}

func (s *ticketService) fetchAndSave(ctx context.Context, runID, eventID string) (*store.Result, error) {
	tickets, err := s.FetchTicketsForEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	log.WithField("service", s.name).WithField("event", eventID).WithField("count", len(tickets.Records)).
		Info("Found tickets for event")

	saved, err := s.save(ctx, EventTicketsPrefix, eventID, tickets.Records)
	if err != nil {
		return nil, errors.Wrap(err, "saving tickets")
	}
	notice := &model.Notice{
		RunID:   runID,
		EventID: eventID,
		File:    saved.Key,
		Digest:  saved.Digest,
		Size:    saved.Size,
		Count:   len(tickets.Records),
	}
	if s.watermark != nil {
		notice.LatestTicketDate, _ = s.watermark.LatestFor(eventID)
	}
	s.Notify(TopicTicketsSaved, notice)
	return saved, nil
}

func (s *ticketService) FetchTicketsForEvent(ctx context.Context, eventID string) (*EventTickets, error) {
	if !util.ValidEventID(eventID) {
		return nil, errors.Errorf("invalid event id %q", eventID)
	}
	resp, attempts, reauths, err := s.synchronize(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if s.saveRaw {
		if _, err := s.save(ctx, RawTicketsPrefix, eventID, resp.Body); err != nil {
			log.WithError(err).WithField("event", eventID).Warning("Error saving raw tickets response")
		}
	}

	doc, err := xmljson.Decode(resp.Body, xmljson.WithArrays(collectionPaths(ticketRoot, ticketCollections...)...))
	if err != nil {
		return nil, &ParseError{Err: errors.Wrapf(err, "decoding tickets of event %s", eventID)}
	}
	sync, ok := doc[ticketRoot]
	if !ok {
		return nil, &ParseError{Err: errors.Errorf("unexpected response for event %s", eventID)}
	}
	records := []interface{}{}
	for _, name := range ticketCollections {
		if v, ok := xmljson.Lookup(sync, name); ok {
			records = xmljson.AsArray(v)
			break
		}
	}
	tickets, err := model.DecodeTickets(records)
	if err != nil {
		return nil, &ParseError{Err: errors.Wrapf(err, "decoding tickets of event %s", eventID)}
	}
	s.observe(eventID, sync, tickets)

	return &EventTickets{
		EventID:  eventID,
		Records:  records,
		Tickets:  tickets,
		Attempts: attempts,
		Reauths:  reauths,
	}, nil
}

// synchronize requests the ticket records, driving the session through
// model.FetchState until it succeeds or fails.
func (s *ticketService) synchronize(ctx context.Context, eventID string) (*remote.Response, int, int, error) {
	var (
		resp     *remote.Response
		err      error
		attempts int
		reauths  int
	)
	logger := log.WithField("service", s.name).WithField("event", eventID)
	state := model.Fetching
	if !s.auth.Session().Valid() {
		state = model.Unauthenticated
	}

	for !state.Terminal() {
		next := state
		switch state {
		case model.Unauthenticated, model.Authenticating:
			if _, err = s.auth.Login(ctx); err != nil {
				next = model.Failed
				break
			}
			next = model.Fetching
		case model.Fetching:
			attempts++
			resp, err = s.client.Synchronize(ctx, s.auth.SessionToken(), eventID)
			switch {
			case err != nil:
				err = &FetchError{Err: errors.Wrapf(err, "fetching tickets of event %s", eventID)}
				next = model.Failed
			case authFailure(resp):
				if reauths >= s.retryAttempts {
					err = &AuthError{Err: errors.Errorf("tickets of event %s unauthorized after %d attempts", eventID, attempts)}
					next = model.Failed
					break
				}
				next = model.ReauthRequired
			case !resp.OK():
				err = &FetchError{StatusCode: resp.StatusCode, Err: errors.Errorf("fetching tickets of event %s", eventID)}
				next = model.Failed
			default:
				next = model.Succeeded
			}
		case model.ReauthRequired:
			reauths++
			logger.WithField("attempt", reauths).Warning("Session rejected, re-authenticating")
			if err = util.Sleep(ctx, s.retryDelay); err != nil {
				next = model.Failed
				break
			}
			next = model.Authenticating
		}
		logger.WithField("from", state.String()).WithField("to", next.String()).Debug("Fetch state")
		state = next
	}

	if state == model.Failed {
		return nil, attempts, reauths, err
	}
	return resp, attempts, reauths, nil
}

// authFailure reports a 401, or a 500 whose body carries a 401 code.
func authFailure(resp *remote.Response) bool {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return true
	case http.StatusInternalServerError:
		doc, err := xmljson.Decode(resp.Body)
		return err == nil && xmljson.Find(doc, "code", "401")
	}
	return false
}

func (s *ticketService) observe(eventID string, sync interface{}, tickets []model.Ticket) {
	if s.watermark == nil {
		return
	}
	dates := make([]string, 0, len(tickets)*2+1)
	if v, ok := xmljson.Lookup(sync, "date"); ok {
		dates = append(dates, xmljson.Text(v))
	}
	for _, ticket := range tickets {
		dates = append(dates, ticket.Dates()...)
	}
	for _, d := range dates {
		t, ok := model.ParseTicketDate(d)
		if ok && s.watermark.Observe(eventID, t) {
			log.WithField("service", s.name).WithField("latestTicketDate", t).Debug("Latest ticket date advanced")
		}
	}
}
