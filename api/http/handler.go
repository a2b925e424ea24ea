package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/visualtk/vnintegration/internal/model"
	"github.com/visualtk/vnintegration/internal/scheduler"
	"github.com/visualtk/vnintegration/internal/service"
)

// Handler is a base http-handling object.
type Handler struct {
	name               string
	router             *chi.Mux
	server             *http.Server
	pipeline           *service.Pipeline
	scheduler          *scheduler.Scheduler
	watermark          *model.DateWatermark
	ipAddress          string
	httpPort           int
	tlsCertificateFile string
	tlsPrivateKeyFile  string
	allowedOrigins     []string
	requestTimeout     time.Duration
}

// OptionPipeline applies the pipeline whose jobs are triggered.
func OptionPipeline(pipeline *service.Pipeline) func(*Handler) error {
	return func(handler *Handler) error {
		handler.pipeline = pipeline
		return nil
	}
}

// OptionScheduler applies the scheduler running the pipeline jobs.
func OptionScheduler(scheduler *scheduler.Scheduler) func(*Handler) error {
	return func(handler *Handler) error {
		handler.scheduler = scheduler
		return nil
	}
}

// OptionWatermark applies the ticket date watermark reported by /status.
func OptionWatermark(watermark *model.DateWatermark) func(*Handler) error {
	return func(handler *Handler) error {
		handler.watermark = watermark
		return nil
	}
}

// OptionIPAddress sets the address the http server binds to, all interfaces when empty.
func OptionIPAddress(ipAddress string) func(*Handler) error {
	return func(handler *Handler) error {
		handler.ipAddress = ipAddress
		return nil
	}
}

// OptionHTTPPort applies a TCP port option, used by the http handler.
func OptionHTTPPort(port int) func(*Handler) error {
	return func(handler *Handler) error {
		if port < 0 || port > 65535 {
			return errors.Errorf("invalid port %d", port)
		}
		handler.httpPort = port
		return nil
	}
}

// OptionTLS applies TLS parameters, used by the http handler.
func OptionTLS(certFile, keyFile string) func(*Handler) error {
	return func(handler *Handler) error {
		if certFile == "" && keyFile == "" {
			return nil
		}
		handler.tlsCertificateFile = certFile
		handler.tlsPrivateKeyFile = keyFile
		return nil
	}
}

// OptionAllowedOrigins applies the CORS origins.
func OptionAllowedOrigins(origins []string) func(*Handler) error {
	return func(handler *Handler) error {
		handler.allowedOrigins = origins
		return nil
	}
}

// OptionRequestTimeout bounds the duration of a request. Manual fetch jobs
// are not cancelled by it and run to completion.
func OptionRequestTimeout(timeout time.Duration) func(*Handler) error {
	return func(handler *Handler) error {
		handler.requestTimeout = timeout
		return nil
	}
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(200)
	_, _ = w.Write([]byte("ok"))
}

// ServeHTTP implements http.Handler.
func (handler *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler.router.ServeHTTP(w, r)
}

func (handler *Handler) newServer() {
	handler.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", handler.ipAddress, handler.httpPort),
		Handler: handler.router,
	}
}

// Start commences http handling. It returns nil after Shutdown.
func (handler *Handler) Start() error {
	var err error
	if handler.tlsCertificateFile == "" {
		log.WithFields(log.Fields{
			"service": handler.name,
			"port":    handler.httpPort,
		}).Info("Starting http handler")
		err = handler.server.ListenAndServe()
	} else {
		log.WithFields(log.Fields{
			"service": handler.name,
			"port":    handler.httpPort,
		}).Info("Starting https handler")
		err = handler.server.ListenAndServeTLS(handler.tlsCertificateFile, handler.tlsPrivateKeyFile)
	}
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for running ones until `ctx` is done.
func (handler *Handler) Shutdown(ctx context.Context) error {
	if handler.server == nil {
		return nil
	}
	return handler.server.Shutdown(ctx)
}
