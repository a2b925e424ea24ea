package util

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is an alias for the config package.
type Config = *viper.Viper

// Config keys.
const (
	KeyEndpointURL         = "endpointurl"
	KeyUsername            = "username"
	KeyUserPass            = "userpass"
	KeyOutputDir           = "output_dir"
	KeyOutputFormat        = "output_format"
	KeyPort                = "port"
	KeyBindAddress         = "bind_address"
	KeyRequestTimeout      = "request_timeout_seconds"
	KeyEventListInterval   = "event_list_update_interval_hours"
	KeyTicketFetchInterval = "ticket_fetch_interval_seconds"
	KeyHTTPTimeout         = "http_timeout_seconds"
	KeyAuthRetryAttempts   = "auth_retry_attempts"
	KeyAuthRetryDelay      = "auth_retry_delay_ms"
	KeySaveRawResponses    = "save_raw_responses"
	KeyUserAgent           = "user_agent"
	KeyLogLevel            = "log_level"
	KeyCORSAllowedOrigins  = "cors_allowed_origins"
	KeyNotifyBroker        = "notify_broker"
)

// DefaultConfigFile is the configuration file read when no --config flag is given.
const DefaultConfigFile = "./visualtk.ini"

// iniDefaultSection is the prefix viper gives keys outside of any [section].
const iniDefaultSection = "default."

// Settings is the typed view of the configuration.
type Settings struct {
	EndpointURL         string   `mapstructure:"endpointurl" validate:"required,url"`
	Username            string   `mapstructure:"username" validate:"required"`
	UserPass            string   `mapstructure:"userpass"`
	OutputDir           string   `mapstructure:"output_dir" validate:"required"`
	OutputFormat        string   `mapstructure:"output_format" validate:"oneof=json xml yaml"`
	Port                int      `mapstructure:"port" validate:"min=1,max=65535"`
	BindAddress         string   `mapstructure:"bind_address" validate:"omitempty,ip"`
	RequestTimeout      int      `mapstructure:"request_timeout_seconds" validate:"min=1"`
	EventListInterval   float64  `mapstructure:"event_list_update_interval_hours" validate:"gt=0"`
	TicketFetchInterval float64  `mapstructure:"ticket_fetch_interval_seconds" validate:"gt=0"`
	HTTPTimeout         int      `mapstructure:"http_timeout_seconds" validate:"min=0"`
	AuthRetryAttempts   int      `mapstructure:"auth_retry_attempts" validate:"min=0"`
	AuthRetryDelay      int      `mapstructure:"auth_retry_delay_ms" validate:"min=0"`
	SaveRawResponses    bool     `mapstructure:"save_raw_responses"`
	UserAgent           string   `mapstructure:"user_agent"`
	LogLevel            string   `mapstructure:"log_level"`
	CORSAllowedOrigins  []string `mapstructure:"cors_allowed_origins"`
	NotifyBroker        string   `mapstructure:"notify_broker" validate:"omitempty,oneof=memory http"`
}

func init() {
	viper.SetDefault(KeyOutputDir, "/tmp/vnintegration/")
	viper.SetDefault(KeyOutputFormat, "json")
	viper.SetDefault(KeyPort, 5000)
	viper.SetDefault(KeyBindAddress, "")
	viper.SetDefault(KeyRequestTimeout, 300)
	viper.SetDefault(KeyEventListInterval, 4)
	viper.SetDefault(KeyTicketFetchInterval, 20)
	viper.SetDefault(KeyHTTPTimeout, 30)
	viper.SetDefault(KeyAuthRetryAttempts, 3)
	viper.SetDefault(KeyAuthRetryDelay, 500)
	viper.SetDefault(KeySaveRawResponses, false)
	viper.SetDefault(KeyUserAgent, "vnintegration/1.0")
	viper.SetDefault(KeyLogLevel, "info")
	viper.SetDefault(KeyCORSAllowedOrigins, []string{"*"})
}

// Flags returns the command line flags understood by the service.
func Flags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("vnintegration", pflag.ContinueOnError)
	flags.String("config", DefaultConfigFile, "location of the ini configuration file")
	flags.Int(KeyPort, viper.GetInt(KeyPort), "http port of the trigger endpoints")
	flags.String(KeyLogLevel, viper.GetString(KeyLogLevel), "log level (debug, info, warn, error)")
	return flags
}

// InitConfig initializes the config system. An optional .env file is loaded into
// the environment first, then the ini file at `file` is read. Values from the
// environment (prefix VTK_) override the file.
func InitConfig(file string, flags *pflag.FlagSet) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(errors.Cause(err)) {
		log.WithError(err).Warning("Error loading .env file")
	}

	viper.SetEnvPrefix("vtk")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range []string{KeyEndpointURL, KeyUsername, KeyUserPass, KeyNotifyBroker} {
		_ = viper.BindEnv(key)
	}

	if flags != nil {
		if f := flags.Lookup(KeyPort); f != nil && f.Changed {
			_ = viper.BindPFlag(KeyPort, f)
		}
		if f := flags.Lookup(KeyLogLevel); f != nil && f.Changed {
			_ = viper.BindPFlag(KeyLogLevel, f)
		}
	}

	if file != "" {
		viper.SetConfigFile(file)
		viper.SetConfigType("ini")
		if err := viper.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "reading configuration file %s", file)
		}
		flattenDefaultSection()
		log.WithField("file", file).Info("Configuration loaded")
	}

	level, err := log.ParseLevel(viper.GetString(KeyLogLevel))
	if err != nil {
		return errors.Wrap(err, "parsing log level")
	}
	log.SetLevel(level)
	if level >= log.DebugLevel {
		jww.SetStdoutThreshold(jww.LevelDebug)
	}
	return nil
}

// flattenDefaultSection lifts keys of the ini default section to the top level
// so that `ENDPOINTURL=...` outside of a section is addressed as `endpointurl`.
func flattenDefaultSection() {
	for _, key := range viper.AllKeys() {
		if !strings.HasPrefix(key, iniDefaultSection) {
			continue
		}
		name := strings.TrimPrefix(key, iniDefaultSection)
		if viper.InConfig(name) {
			continue
		}
		viper.SetDefault(name, viper.Get(key))
	}
}

// Get returns the value for `key`, or `defaultValue` when the key is unset or empty.
func Get(key string, defaultValue interface{}) interface{} {
	value := viper.Get(key)
	if value == nil {
		return defaultValue
	}
	if s, ok := value.(string); ok && s == "" {
		return defaultValue
	}
	return value
}

// LoadSettings unmarshals and validates the current configuration.
func LoadSettings() (*Settings, error) {
	settings := new(Settings)
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.Wrap(err, "unmarshalling settings")
	}
	if len(settings.CORSAllowedOrigins) == 1 && strings.Contains(settings.CORSAllowedOrigins[0], ",") {
		settings.CORSAllowedOrigins = strings.Split(settings.CORSAllowedOrigins[0], ",")
	}
	if err := Validate.Struct(settings); err != nil {
		return nil, errors.Wrap(err, "validating settings")
	}
	return settings, nil
}
