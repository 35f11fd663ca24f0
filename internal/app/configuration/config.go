package configuration

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Address              string        `env:"ADDRESS,default=:8080"`                // Address the orders API listens on
	LogLevel             string        `env:"LOG_LEVEL,default=info"`               // logrus level
	EnableProviderStates bool          `env:"ENABLE_PROVIDER_STATES,default=false"` // Mount POST /provider-states for contract verification
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

func NewFromEnv() (Config, error) {
	return NewFromLookuper(envconfig.OsLookuper())
}

func NewFromLookuper(lookuper envconfig.Lookuper) (Config, error) {
	ctx := context.Background()

	var config Config
	err := envconfig.ProcessWith(ctx, &config, lookuper)
	if err != nil {
		return config, errors.Wrap(err, "process env config")
	}
	return config, nil
}

func ConfigureLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return errors.Wrap(err, "parse log level")
	}
	log.SetLevel(lvl)
	return nil
}
