package service

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/micro/go-micro/v2/broker"
	"github.com/micro/go-micro/v2/broker/memory"
	"github.com/stretchr/testify/require"
	"github.com/visualtk/vnintegration/internal/fakeapi"
	"github.com/visualtk/vnintegration/internal/model"
	"github.com/visualtk/vnintegration/internal/remote"
	"github.com/visualtk/vnintegration/internal/store"
)

type testEnv struct {
	api       *fakeapi.Server
	server    *httptest.Server
	store     store.Manager
	broker    broker.Broker
	watermark *model.DateWatermark
	auth      Auth
	events    Events
	tickets   Tickets

	mu      sync.Mutex
	notices map[string][]model.Notice
}

func newTestEnv(t *testing.T, api []func(*fakeapi.Server) error, options ...func(*Service) error) *testEnv {
	ctx := context.Background()
	fake, err := fakeapi.NewServer(append([]func(*fakeapi.Server) error{fakeapi.OptionSeed(1)}, api...)...)
	require.NoError(t, err)
	env := &testEnv{
		api:     fake,
		server:  httptest.NewServer(fake),
		notices: make(map[string][]model.Notice),
	}
	t.Cleanup(env.server.Close)

	env.store, err = store.NewFileManager(ctx, store.FileConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	env.watermark, err = model.NewDateWatermark(0)
	require.NoError(t, err)

	env.broker = memory.NewBroker()
	require.NoError(t, env.broker.Connect())
	t.Cleanup(func() { _ = env.broker.Disconnect() })
	for _, topic := range []string{TopicEventsUpdated, TopicTicketsSaved} {
		topic := topic
		_, err = env.broker.Subscribe(topic, func(e broker.Event) error {
			var notice model.Notice
			if err := json.Unmarshal(e.Message().Body, &notice); err != nil {
				return err
			}
			env.mu.Lock()
			env.notices[topic] = append(env.notices[topic], notice)
			env.mu.Unlock()
			return nil
		})
		require.NoError(t, err)
	}

	client, err := remote.NewClient(env.server.URL, remote.OptionTimeout(5*time.Second))
	require.NoError(t, err)
	base := []func(*Service) error{
		OptionClient(client),
		OptionStore(env.store),
		OptionCredentials(fakeapi.DefaultLogin, fakeapi.DefaultPassword),
		OptionAuthRetry(3, time.Millisecond),
		OptionWatermark(env.watermark),
		OptionMessageBroker(env.broker),
	}
	base = append(base, options...)

	env.auth, err = NewAuthService(ctx, base...)
	require.NoError(t, err)
	withAuth := append(base, OptionAuth(env.auth))
	env.events, err = NewEventService(ctx, withAuth...)
	require.NoError(t, err)
	env.tickets, err = NewTicketService(ctx, withAuth...)
	require.NoError(t, err)
	return env
}

// files lists stored files starting with prefix.
func (env *testEnv) files(t *testing.T, prefix string) []string {
	keys, err := env.store.List(context.Background(), prefix)
	require.NoError(t, err)
	return keys
}

func (env *testEnv) read(t *testing.T, key string) []byte {
	data, err := ioutil.ReadFile(filepath.Join(env.store.OutputDir(), key))
	require.NoError(t, err)
	return data
}

func (env *testEnv) received(topic string) []model.Notice {
	env.mu.Lock()
	defer env.mu.Unlock()
	return append([]model.Notice(nil), env.notices[topic]...)
}

func eventList(ids ...string) []model.Event {
	events := make([]model.Event, 0, len(ids))
	for _, id := range ids {
		events = append(events, model.Event{ID: id})
	}
	return events
}
