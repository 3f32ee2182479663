package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	DBType        string `mapstructure:"DB_TYPE"` // sqlite, postgres, mysql
	DSN           string `mapstructure:"DSN"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`
	Port          int    `mapstructure:"PORT"`
	Realm         string `mapstructure:"REALM"`
	TokenSecret   string `mapstructure:"TOKEN_SECRET"`
	SessionCookie string `mapstructure:"SESSION_COOKIE"`
	AccessPolicy  string `mapstructure:"ACCESS_POLICY"` // allow, reject
	RedisAddr     string `mapstructure:"REDIS_ADDR"`    // optional: redis session store
}

func LoadConfig() (*Config, error) {
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("PORT", 8080)
	viper.SetDefault("DB_TYPE", "sqlite")
	viper.SetDefault("DSN", "bastion.db")
	viper.SetDefault("REALM", "Bastion")
	viper.SetDefault("SESSION_COOKIE", "bastion_session")
	viper.SetDefault("ACCESS_POLICY", "allow")

	// AutomaticEnv only surfaces keys viper already knows about, so
	// env-only settings need an explicit empty default to be picked up
	// by Unmarshal.
	viper.SetDefault("TOKEN_SECRET", "")
	viper.SetDefault("REDIS_ADDR", "")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
