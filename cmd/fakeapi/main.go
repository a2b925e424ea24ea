package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fraugster/cli"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/visualtk/vnintegration/internal/fakeapi"
)

// Serves generated repertoire and ticket data for local runs of the service.
func main() {
	flags := pflag.NewFlagSet("fakeapi", pflag.ExitOnError)
	port := flags.Int("port", 8080, "listen port")
	events := flags.Int("events", 3, "number of generated events")
	tickets := flags.Int("tickets", 20, "tickets per event")
	login := flags.String("login", fakeapi.DefaultLogin, "accepted login")
	password := flags.String("password", fakeapi.DefaultPassword, "accepted password")
	fail := flags.StringSlice("fail", nil, "event ids answered with 500")
	seed := flags.Int64("seed", time.Now().UnixNano(), "random seed")
	_ = flags.Parse(os.Args[1:])

	server, err := fakeapi.NewServer(
		fakeapi.OptionSeed(*seed),
		fakeapi.OptionCredentials(*login, *password),
		fakeapi.OptionGeneratedEvents(*events, *tickets),
		fakeapi.OptionFailEvent(*fail...),
	)
	if err != nil {
		log.WithError(err).Fatal("Invalid options")
	}

	ctx := cli.Context()
	httpServer := &http.Server{Addr: fmt.Sprintf(":%d", *port), Handler: server}
	go func() {
		log.WithField("port", *port).WithField("events", server.Events()).Info("Starting fake api")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Fake api failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
}
