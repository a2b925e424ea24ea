package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/micro/go-micro/v2/broker"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/visualtk/vnintegration/internal/model"
	"github.com/visualtk/vnintegration/internal/remote"
	"github.com/visualtk/vnintegration/internal/store"
	"github.com/visualtk/vnintegration/internal/xmljson"
)

// Service represents a base structure for services.
type Service struct {
	name      string
	client    *remote.Client
	store     store.Manager
	broker    broker.Broker
	auth      Auth
	format    xmljson.Format
	watermark *model.DateWatermark
	params    map[string]string
	now       func() time.Time

	retryAttempts int
	retryDelay    time.Duration
	saveRaw       bool
}

func newService(name string, options []func(*Service) error) (Service, error) {
	svc := Service{
		name:          name,
		format:        xmljson.FormatJSON,
		params:        make(map[string]string),
		now:           time.Now,
		retryAttempts: defaultRetryAttempts,
		retryDelay:    defaultRetryDelayMilli * time.Millisecond,
	}
	for _, option := range options {
		if err := option(&svc); err != nil {
			return svc, err
		}
	}
	if svc.client == nil {
		return svc, errors.New("remote client option missing")
	}
	if svc.store == nil {
		return svc, errors.New("store option missing")
	}
	return svc, nil
}

// Stop closes all open handles.
func (s Service) Stop() {
	if s.store != nil {
		_ = s.store.Close()
	}
}

// save serializes `value` in the configured output format and stores it under a
// timestamped name. Raw bytes are written as they are.
func (s Service) save(ctx context.Context, prefix, id string, value interface{}) (*store.Result, error) {
	var (
		data []byte
		err  error
		ext  = s.format.Ext()
	)
	if raw, ok := value.([]byte); ok {
		data, ext = raw, string(xmljson.FormatXML)
	} else if data, err = s.format.Marshal(value); err != nil {
		return nil, errors.Wrapf(err, "serializing %s", prefix)
	}
	return s.store.Put(ctx, s.store.TimestampedFilename(prefix, id, ext), data)
}

// Notify sends a notice through the configured message broker.
func (s Service) Notify(topic string, notice *model.Notice) {
	if s.broker == nil {
		return
	}
	notice.Topic = topic
	if notice.CreatedAt.IsZero() {
		notice.CreatedAt = s.now()
	}
	body, err := json.Marshal(notice)
	if err != nil {
		log.WithError(err).WithField("topic", topic).Error("Marshalling notice")
		return
	}
	message := &broker.Message{
		Header: map[string]string{"Content-Type": "application/json"},
		Body:   body,
	}
	if err = s.broker.Publish(topic, message); err != nil {
		log.WithError(err).WithField("topic", topic).Error("Sending notice through message broker")
	}
}
