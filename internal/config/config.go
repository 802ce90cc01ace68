// Package config reads service settings from WHOLESALE_* environment variables.
package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const appID = "wholesale"

const (
	StoreMemory = "memory"
	StoreMySQL  = "mysql"
)

type Config struct {
	HTTPAddr      string        `envconfig:"http_addr" default:":8080"`
	StoreDriver   string        `envconfig:"store_driver" default:"memory"`
	MySQLDSN      string        `envconfig:"mysql_dsn"`
	NATSURL       string        `envconfig:"nats_url"`
	MediaDir      string        `envconfig:"media_dir" default:"./media"`
	PublicBaseURL string        `envconfig:"public_base_url" default:"http://localhost:8080"`
	SessionTTL    time.Duration `envconfig:"session_ttl" default:"168h"`
	PendingTrial  time.Duration `envconfig:"pending_trial" default:"1h"`
	LogLevel      string        `envconfig:"log_level" default:"info"`
	AdminEmail    string        `envconfig:"admin_email"`
	AdminPassword string        `envconfig:"admin_password"`
}

func Parse() (*Config, error) {
	c := new(Config)
	if err := envconfig.Process(appID, c); err != nil {
		return nil, errors.Wrap(err, "failed to parse env")
	}
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory:
	case StoreMySQL:
		if c.MySQLDSN == "" {
			return errors.New("WHOLESALE_MYSQL_DSN is required for the mysql store")
		}
	default:
		return errors.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.SessionTTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	if c.PendingTrial < 0 {
		return errors.New("pending trial must not be negative")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log level")
	}
	return nil
}

// Level уровень логирования; Validate уже проверил значение
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
