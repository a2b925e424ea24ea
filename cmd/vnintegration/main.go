package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fraugster/cli"
	"github.com/micro/go-micro/v2/broker"
	"github.com/micro/go-micro/v2/broker/memory"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	config "github.com/spf13/viper"
	"github.com/visualtk/vnintegration/api/http"
	"github.com/visualtk/vnintegration/internal"
	"github.com/visualtk/vnintegration/internal/model"
	"github.com/visualtk/vnintegration/internal/remote"
	"github.com/visualtk/vnintegration/internal/scheduler"
	"github.com/visualtk/vnintegration/internal/service"
	"github.com/visualtk/vnintegration/internal/store"
	"github.com/visualtk/vnintegration/internal/util"
)

func main() {
	fmt.Println(internal.VersionVerbose())

	flags := util.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			os.Exit(0)
		}
		log.WithError(err).Fatal("Parsing command line")
	}
	file, _ := flags.GetString("config")
	if _, err := os.Stat(file); err != nil && !flags.Changed("config") {
		log.WithField("file", file).Warning("No configuration file, using environment only")
		file = ""
	}
	if err := util.InitConfig(file, flags); err != nil {
		log.WithError(err).Fatal("Loading configuration")
	}
	settings, err := util.LoadSettings()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	ctx := cli.Context()

	kv, err := store.NewManager(ctx, store.FileConfig{Dir: settings.OutputDir})
	if err != nil {
		log.WithError(err).Fatal("Unable to create output directory")
	}
	log.WithField("dir", kv.OutputDir()).Info("Output folder set")

	client, err := remote.NewClient(settings.EndpointURL,
		remote.OptionTimeout(time.Duration(settings.HTTPTimeout)*time.Second),
		remote.OptionUserAgent(settings.UserAgent),
	)
	if err != nil {
		log.WithError(err).Fatal("Invalid endpoint url")
	}
	watermark, err := model.NewDateWatermark(model.DefaultWatermarkEvents)
	if err != nil {
		panic(err)
	}
	messages, err := newBroker(settings.NotifyBroker)
	if err != nil {
		log.WithError(err).Fatal("Unable to connect message broker")
	}

	options := []func(*service.Service) error{
		service.OptionClient(client),
		service.OptionStore(kv),
		service.OptionCredentials(settings.Username, settings.UserPass),
		service.OptionOutputFormat(settings.OutputFormat),
		service.OptionAuthRetry(settings.AuthRetryAttempts, time.Duration(settings.AuthRetryDelay)*time.Millisecond),
		service.OptionSaveRawResponses(settings.SaveRawResponses),
		service.OptionWatermark(watermark),
		service.OptionMessageBroker(messages),
	}
	auth, err := service.NewAuthService(ctx, options...)
	if err != nil {
		panic(err)
	}
	options = append(options, service.OptionAuth(auth))
	events, err := service.NewEventService(ctx, options...)
	if err != nil {
		panic(err)
	}
	tickets, err := service.NewTicketService(ctx, options...)
	if err != nil {
		panic(err)
	}
	pipeline := service.NewPipeline(events, tickets)

	sched := scheduler.New()
	eventsInterval := time.Duration(settings.EventListInterval * float64(time.Hour))
	ticketsInterval := time.Duration(settings.TicketFetchInterval * float64(time.Second))
	if err = sched.Every(service.TaskEvents, eventsInterval, pipeline.UpdateEvents); err != nil {
		panic(err)
	}
	if err = sched.Every(service.TaskTickets, ticketsInterval, pipeline.FetchTickets); err != nil {
		panic(err)
	}

	httpService, err := http.NewFetchHandler(ctx,
		http.OptionPipeline(pipeline),
		http.OptionScheduler(sched),
		http.OptionWatermark(watermark),
		http.OptionIPAddress(settings.BindAddress),
		http.OptionHTTPPort(settings.Port),
		http.OptionRequestTimeout(time.Duration(settings.RequestTimeout)*time.Second),
		http.OptionTLS(config.GetString("tls_certificate_file"), config.GetString("tls_private_key_file")),
		http.OptionAllowedOrigins(settings.CORSAllowedOrigins),
	)
	if err != nil {
		panic(err)
	}
	httpService.Init()
	go func() {
		err := httpService.Start()
		if err != nil {
			log.WithError(err).Fatal("Http handler failed")
		}
	}()

	initialFetch(ctx, sched)
	if err = sched.Start(ctx); err != nil {
		panic(err)
	}

	<-ctx.Done()
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpService.Shutdown(shutdownCtx)
	sched.Stop()
	_ = httpService.Stop()
	if messages != nil {
		_ = messages.Disconnect()
	}
}

// initialFetch updates the event list, retrying transient failures, then fetches
// the tickets once. Failures are logged; the periodic tasks try again later.
func initialFetch(ctx context.Context, sched *scheduler.Scheduler) {
	err := util.Retry(3, time.Second, func() error {
		err := sched.Trigger(ctx, service.TaskEvents)
		if err == nil || ctx.Err() != nil || service.IsAuthError(err) || service.IsParseError(err) {
			return util.RetryStop{Err: err}
		}
		log.WithError(err).Warning("Error updating event list, retrying")
		return err
	})
	if err == nil {
		err = sched.Trigger(ctx, service.TaskTickets)
	}
	if err != nil {
		log.WithError(err).Error("Error during initial data fetch")
		return
	}
	log.Info("Initial data fetch completed")
}

// newBroker connects the message broker named by `kind`; an empty kind disables notices.
func newBroker(kind string) (broker.Broker, error) {
	var b broker.Broker
	switch kind {
	case "":
		return nil, nil
	case "memory":
		b = memory.NewBroker()
	case "http":
		b = broker.NewBroker()
	default:
		return nil, errors.Errorf("unknown broker %q", kind)
	}
	if err := b.Connect(); err != nil {
		return nil, errors.Wrapf(err, "connecting %s broker", kind)
	}
	log.WithField("broker", kind).WithField("address", b.Address()).Info("Message broker connected")
	return b, nil
}
