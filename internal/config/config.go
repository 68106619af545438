package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the process configuration, read from RAFFLE_* variables.
type Config struct {
	// Network selects an entry of the network table.
	Network string `envconfig:"RAFFLE_NETWORK" default:"hardhat"`

	// Path to a TOML network table. The built-in table is used when empty.
	NetworksFile string `envconfig:"RAFFLE_NETWORKS_FILE"`

	// Address of the HTTP API
	Addr string `envconfig:"RAFFLE_ADDR" default:":8080"`

	// bbolt file holding the winner history
	DBPath    string `envconfig:"RAFFLE_DB_PATH" default:"raffle.db"`
	CacheSize int    `envconfig:"RAFFLE_CACHE_SIZE" default:"128"`

	// Cron spec for the upkeep check. Defaults to "@every <interval>s" of the
	// selected network.
	KeeperSchedule string `envconfig:"RAFFLE_KEEPER_SCHEDULE"`

	// How often the mock coordinator answers pending requests on
	// development networks
	FulfillSchedule string `envconfig:"RAFFLE_FULFILL_SCHEDULE" default:"@every 5s"`

	// A pending randomness request older than this is reported by the keeper
	StuckAfter time.Duration `envconfig:"RAFFLE_STUCK_AFTER" default:"1h"`

	// Remote coordinator endpoint and the URL it should call back, used on
	// non-development networks
	OracleURL   string `envconfig:"RAFFLE_ORACLE_URL"`
	CallbackURL string `envconfig:"RAFFLE_CALLBACK_URL"`
	// Bearer token the remote coordinator presents on /oracle/fulfill
	OracleToken string `envconfig:"RAFFLE_ORACLE_TOKEN"`

	Verbose bool `envconfig:"RAFFLE_VERBOSE" default:"false"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	return &cfg, nil
}

// KeeperSpec returns the keeper cron spec for a network with the given
// interval.
func (c *Config) KeeperSpec(interval int64) string {
	if c.KeeperSchedule != "" {
		return c.KeeperSchedule
	}
	return fmt.Sprintf("@every %ds", interval)
}
