package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/visualtk/vnintegration/api/model"
	"github.com/visualtk/vnintegration/internal"
	"github.com/visualtk/vnintegration/internal/scheduler"
	"github.com/visualtk/vnintegration/internal/service"
	"github.com/visualtk/vnintegration/internal/util"
)

const defaultRequestTimeout = 5 * time.Minute

// FetchHandler implements the manual trigger and status REST API.
type FetchHandler struct {
	Handler
}

// NewFetchHandler creates a new fetch API endpoint.
func NewFetchHandler(ctx context.Context, options ...func(*Handler) error) (*FetchHandler, error) {
	handler := &FetchHandler{
		Handler: Handler{
			name:           "fetch-http-handler",
			allowedOrigins: []string{"*"},
			requestTimeout: defaultRequestTimeout,
		},
	}

	for _, option := range options {
		err := option(&(handler).Handler)
		if err != nil {
			return nil, err
		}
	}
	if handler.pipeline == nil {
		return nil, errors.New("pipeline option missing")
	}
	if handler.scheduler == nil {
		return nil, errors.New("scheduler option missing")
	}
	return handler, nil
}

// Init sets up the HTTP handlers. There is no authentication on these endpoints.
func (handler *FetchHandler) Init() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(handler.requestTimeout))

	for _, v := range handler.allowedOrigins {
		if v == "*" {
			log.Warning("cors_allowed_origins configured without restriction (*)")
		}
	}
	cors := cors.New(cors.Options{
		AllowedOrigins: handler.allowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
	r.Use(cors.Handler)
	r.Use(service.ErrorHandler)

	r.Get("/fetch-events", handler.fetchEvents)
	r.Get("/fetch-tickets", handler.fetchTickets)
	r.Get("/status", handler.getStatus)
	r.Get("/version", handler.getVersion)
	r.Get("/healthz", healthz)

	handler.router = r
	handler.newServer()
}

// Stop ...
func (handler *FetchHandler) Stop() error {
	handler.pipeline.Stop()
	return nil
}

func (handler *FetchHandler) getVersion(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(200)
	_, _ = w.Write([]byte(internal.Version()))
}

// fetchEvents updates the event list, then fetches the tickets of all events.
func (handler *FetchHandler) fetchEvents(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if err := handler.scheduler.Trigger(jobContext(r), service.TaskEvents); err != nil {
		triggerError(err, "updating event list").BindHTTPRequest(r)
		return
	}
	handler.runTickets(w, r, started, "Event list has been updated and tickets have been fetched.")
}

func (handler *FetchHandler) fetchTickets(w http.ResponseWriter, r *http.Request) {
	handler.runTickets(w, r, time.Now(), "Tickets have been fetched and saved for all events.")
}

func (handler *FetchHandler) runTickets(w http.ResponseWriter, r *http.Request, started time.Time, message string) {
	err := handler.scheduler.Trigger(jobContext(r), service.TaskTickets)
	var batchErr *service.BatchError
	if err != nil && !errors.As(err, &batchErr) {
		triggerError(err, "fetching tickets").BindHTTPRequest(r)
		return
	}
	response := batchResponse(handler.pipeline.LastBatch())
	response.Message = message
	response.Elapsed = time.Since(started).String()
	if batchErr != nil {
		response.Message = batchErr.Error()
	}
	util.JSONResponse(w, response, http.StatusOK)
}

func (handler *FetchHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	events := handler.pipeline.Events()
	status := &model.StatusResponse{
		Version: internal.Version(),
		Events:  len(events.EventList()),
		Tasks:   handler.scheduler.Status(),
	}
	if t := events.UpdatedAt(); !t.IsZero() {
		status.EventsUpdatedAt = &t
	}
	if handler.watermark != nil {
		if t := handler.watermark.Latest(); !t.IsZero() {
			status.LatestTicketDate = &t
		}
	}
	if last := handler.pipeline.LastBatch(); last != nil {
		status.LastBatch = batchResponse(last)
		status.LastBatch.Elapsed = last.FinishedAt.Sub(last.StartedAt).String()
	}
	util.JSONResponse(w, status, http.StatusOK)
}

func batchResponse(result *service.BatchResult) *model.FetchResponse {
	response := &model.FetchResponse{Status: model.StatusOK, Files: []string{}}
	if result == nil {
		return response
	}
	response.RunID = result.RunID
	response.Events = result.Events
	response.Files = result.Files()
	response.Failed = result.Failed
	if len(result.Failed) > 0 {
		response.Status = model.StatusPartial
	}
	return response
}

// jobContext keeps the request values but not its cancellation: a client
// disconnecting or the request timeout must not abort a batch half way.
func jobContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func triggerError(err error, detail string) *service.APIError {
	switch errors.Cause(err) {
	case scheduler.ErrBusy:
		return service.NewAPIError(http.StatusConflict, err, "a fetch is already in progress")
	case scheduler.ErrStopped:
		return service.NewAPIError(http.StatusServiceUnavailable, err, "the service is shutting down")
	}
	return service.NewAPIError(http.StatusInternalServerError, errors.Wrap(err, detail), "")
}
