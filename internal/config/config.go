package config

import (
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// Configuration holds every tunable of the manager. Values come from
// defaults, then environment variables, then command line flags, each
// layer overriding the previous one.
type Configuration struct {
	Server  Server
	Manager Manager
}

type Server struct {
	HTTPPort      int    `default:"8000" validate:"gte=1,lte=65535"`
	ServerMode    string `default:"dev" validate:"oneof=dev prod"`
	StaticsFolder string `default:""`
}

type Manager struct {
	// DBPath is the sqlite file holding endpoints and settings.
	DBPath string `default:"snapfleet.db" validate:"required"`

	// DataFolder holds the credential store.
	DataFolder string `default:"/var/lib/snapfleet" validate:"required"`

	HealthInterval time.Duration `default:"5m" validate:"gt=0"`
	MaxRetries     int           `default:"3" validate:"gte=1"`
	BackoffBase    time.Duration `default:"5s" validate:"gt=0"`
}

// Option overrides a configuration value after defaults are applied.
type Option func(*Configuration)

func WithDBPath(path string) Option {
	return func(c *Configuration) { c.Manager.DBPath = path }
}

func WithDataFolder(folder string) Option {
	return func(c *Configuration) { c.Manager.DataFolder = folder }
}

func WithServerMode(mode string) Option {
	return func(c *Configuration) { c.Server.ServerMode = mode }
}

func NewConfigurationWithOptionsAndDefaults(opts ...Option) *Configuration {
	cfg := &Configuration{}
	if err := defaults.Set(cfg); err != nil {
		panic(err)
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks the structural constraints of the configuration.
func (c *Configuration) Validate() error {
	return validator.New().Struct(c)
}
