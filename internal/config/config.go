package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

type Config struct {
	Chain   ChainConfig
	Roles   RolesConfig
	Payment PaymentConfig
	Drops   DropsConfig
	Issuer  IssuerConfig
	Store   StoreConfig
	Redis   RedisConfig
	Log     LogConfig
	Metrics MetricsConfig
}

type ChainConfig struct {
	ChainID           int64  `mapstructure:"chain_id"`
	AuthorizerAddress string `mapstructure:"authorizer_address"`
	CollectionAddress string `mapstructure:"collection_address"`
}

type RolesConfig struct {
	Owner         string   `mapstructure:"owner"`
	Artists       []string `mapstructure:"artists"`
	TrustedSigner string   `mapstructure:"trusted_signer"`
}

type PaymentConfig struct {
	Payees []string `mapstructure:"payees"`
	Shares []uint64 `mapstructure:"shares"`
}

type DropsConfig struct {
	BaseURI string `mapstructure:"base_uri"`
}

type IssuerConfig struct {
	SignerKey string `mapstructure:"signer_key"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	EventsKey string `mapstructure:"events_key"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// Load reads config.yaml from . or /app if present, then the environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the
// default locations.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("chain.chain_id", 31337)
	v.SetDefault("store.path", "data/drops.db")
	v.SetDefault("redis.events_key", "drops:events")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	// Config file (optional unless given explicitly)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/app")
		_ = v.ReadInConfig()
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicit env bindings
	bindings := map[string]string{
		"chain.chain_id":           "CHAIN_ID",
		"chain.authorizer_address": "AUTHORIZER_ADDRESS",
		"chain.collection_address": "COLLECTION_ADDRESS",
		"roles.owner":              "OWNER_ADDRESS",
		"roles.artists":            "ARTIST_ADDRESSES",
		"roles.trusted_signer":     "TRUSTED_SIGNER",
		"payment.payees":           "PAYEES",
		"payment.shares":           "SHARES",
		"drops.base_uri":           "BASE_URI",
		"issuer.signer_key":        "VOUCHER_SIGNER_KEY",
		"store.path":               "STORE_PATH",
		"redis.addr":               "REDIS_ADDR",
		"redis.password":           "REDIS_PASSWORD",
		"redis.events_key":         "EVENTS_KEY",
		"log.level":                "LOG_LEVEL",
		"log.file":                 "LOG_FILE",
		"metrics.textfile":         "METRICS_TEXTFILE",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	type req struct {
		val  string
		name string
	}
	for _, r := range []req{
		{c.Chain.AuthorizerAddress, "AUTHORIZER_ADDRESS"},
		{c.Roles.Owner, "OWNER_ADDRESS"},
	} {
		if r.val == "" {
			return fmt.Errorf("required config missing: %s", r.name)
		}
	}
	if c.Chain.ChainID == 0 {
		return fmt.Errorf("required config missing: CHAIN_ID")
	}
	if len(c.Payment.Payees) == 0 {
		return fmt.Errorf("required config missing: PAYEES")
	}
	if len(c.Payment.Payees) != len(c.Payment.Shares) {
		return fmt.Errorf("payment: %d payees but %d shares", len(c.Payment.Payees), len(c.Payment.Shares))
	}

	addrs := []string{c.Chain.AuthorizerAddress, c.Roles.Owner}
	addrs = append(addrs, c.Roles.Artists...)
	addrs = append(addrs, c.Payment.Payees...)
	if c.Chain.CollectionAddress != "" {
		addrs = append(addrs, c.Chain.CollectionAddress)
	}
	if c.Roles.TrustedSigner != "" {
		addrs = append(addrs, c.Roles.TrustedSigner)
	}
	for _, a := range addrs {
		if !common.IsHexAddress(a) {
			return fmt.Errorf("invalid address %q", a)
		}
	}
	return nil
}

// Addresses converts a list of validated hex strings.
func Addresses(in []string) []common.Address {
	out := make([]common.Address, len(in))
	for i, s := range in {
		out[i] = common.HexToAddress(s)
	}
	return out
}
