package internal

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/tuannm99/novaquery/internal/log"
)

// EnvPrefix prefixes every environment override, e.g. NOVAQUERY_MEMORY_BLOCKS.
const EnvPrefix = "NOVAQUERY"

type NovaQueryConfig struct {
	AppName string `mapstructure:"app_name"`

	Memory struct {
		Blocks int `mapstructure:"blocks"`
	} `mapstructure:"memory"`

	Log log.Config `mapstructure:"log"`

	Server struct {
		Addr      string `mapstructure:"addr"`
		AdminAddr string `mapstructure:"admin_addr"`
		MaxConns  int    `mapstructure:"max_conns"`
	} `mapstructure:"server"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "novaquery")
	v.SetDefault("memory.blocks", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("server.addr", "127.0.0.1:8866")
	v.SetDefault("server.admin_addr", "127.0.0.1:8867")
	v.SetDefault("server.max_conns", 64)
}

// LoadConfig reads the YAML file at path, if any, over the defaults and then
// applies environment overrides. An empty path yields the defaults.
func LoadConfig(path string) (*NovaQueryConfig, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "read config")
		}
	}

	var cfg NovaQueryConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *NovaQueryConfig) Validate() error {
	if c.Memory.Blocks < 2 {
		return errors.Newf("config: memory.blocks must be >= 2, got %d", c.Memory.Blocks)
	}
	if c.Server.MaxConns < 1 {
		return errors.Newf("config: server.max_conns must be >= 1, got %d", c.Server.MaxConns)
	}
	return nil
}
