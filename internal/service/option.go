package service

import (
	"time"

	"github.com/micro/go-micro/v2/broker"
	"github.com/pkg/errors"
	"github.com/visualtk/vnintegration/internal/model"
	"github.com/visualtk/vnintegration/internal/remote"
	"github.com/visualtk/vnintegration/internal/store"
	"github.com/visualtk/vnintegration/internal/xmljson"
)

// OptionClient sets the remote service client.
func OptionClient(client *remote.Client) func(*Service) error {
	return func(svc *Service) error {
		svc.client = client
		return nil
	}
}

// OptionStore sets the store receiving fetched payloads.
func OptionStore(store store.Manager) func(*Service) error {
	return func(svc *Service) error {
		svc.store = store
		return nil
	}
}

// OptionAuth sets the auth service used to obtain sessions.
func OptionAuth(auth Auth) func(*Service) error {
	return func(svc *Service) error {
		svc.auth = auth
		return nil
	}
}

// OptionCredentials sets the login and password for the remote service.
func OptionCredentials(username, password string) func(*Service) error {
	return func(svc *Service) error {
		if svc.params == nil {
			svc.params = make(map[string]string)
		}
		svc.params[ParamUsername] = username
		svc.params[ParamPassword] = password
		return nil
	}
}

// OptionOutputFormat sets the serialization of stored payloads (json, xml or yaml).
func OptionOutputFormat(format string) func(*Service) error {
	return func(svc *Service) error {
		f, err := xmljson.ParseFormat(format)
		if err != nil {
			return err
		}
		svc.format = f
		return nil
	}
}

// OptionAuthRetry sets how often a fetch re-authenticates after an authorization
// failure, and the pause before each re-authentication.
func OptionAuthRetry(attempts int, delay time.Duration) func(*Service) error {
	return func(svc *Service) error {
		if attempts < 0 || delay < 0 {
			return errors.Errorf("invalid auth retry %d/%s", attempts, delay)
		}
		svc.retryAttempts = attempts
		svc.retryDelay = delay
		return nil
	}
}

// OptionSaveRawResponses stores the unconverted synchronize responses as well.
func OptionSaveRawResponses(save bool) func(*Service) error {
	return func(svc *Service) error {
		svc.saveRaw = save
		return nil
	}
}

// OptionWatermark sets the tracker of observed ticket dates.
func OptionWatermark(watermark *model.DateWatermark) func(*Service) error {
	return func(svc *Service) error {
		svc.watermark = watermark
		return nil
	}
}

// OptionClock sets the time source.
func OptionClock(now func() time.Time) func(*Service) error {
	return func(svc *Service) error {
		svc.now = now
		return nil
	}
}

// OptionMessageBroker sets a broker client option.
func OptionMessageBroker(broker broker.Broker) func(*Service) error {
	return func(svc *Service) error {
		svc.broker = broker
		return nil
	}
}
