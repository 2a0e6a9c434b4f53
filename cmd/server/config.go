package main

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the viper-backed application configuration. It satisfies the
// classtrack Config interface consumed by the auth stack.
type Config struct {
	v *viper.Viper
}

// LoadConfig reads config.yaml (optional) and CLASSTRACK_* env overrides.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("CLASSTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("persistence.dsn", "file:classtrack.db?cache=shared&_pragma=foreign_keys(1)")
	v.SetDefault("persistence.driver", "sqlite")
	v.SetDefault("persistence.dialect", "sqlite")
	v.SetDefault("persistence.server", "localhost")
	v.SetDefault("persistence.database", "classtrack")
	v.SetDefault("persistence.debug", false)
	v.SetDefault("persistence.ping_timeout", 5*time.Second)
	v.SetDefault("auth.signing_key", "change-me-in-production")
	v.SetDefault("auth.issuer", "classtrack")
	v.SetDefault("auth.token_expiration", 24*time.Hour)
	v.SetDefault("auth.code_expiration", 15*time.Minute)
	v.SetDefault("auth.rejected_route_key", "classtrack_rejected_route")
	v.SetDefault("auth.rejected_route_default", "/dashboard")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return &Config{v: v}, nil
}

func (c *Config) GetServerAddr() string {
	return c.v.GetString("server.addr")
}

// GetPersistence returns the section consumed by go-persistence-bun.
func (c *Config) GetPersistence() *PersistenceConfig {
	return &PersistenceConfig{v: c.v}
}

// PersistenceConfig exposes the persistence.* keys with the getter surface
// go-persistence-bun expects from its config value.
type PersistenceConfig struct {
	v *viper.Viper
}

func (p *PersistenceConfig) GetDSN() string {
	return p.v.GetString("persistence.dsn")
}

func (p *PersistenceConfig) GetDriver() string {
	return p.v.GetString("persistence.driver")
}

func (p *PersistenceConfig) GetDialect() string {
	return p.v.GetString("persistence.dialect")
}

func (p *PersistenceConfig) GetServer() string {
	return p.v.GetString("persistence.server")
}

func (p *PersistenceConfig) GetDatabase() string {
	return p.v.GetString("persistence.database")
}

func (p *PersistenceConfig) GetDebug() bool {
	return p.v.GetBool("persistence.debug")
}

func (p *PersistenceConfig) GetOtelIdentifier() string {
	return p.v.GetString("persistence.otel_identifier")
}

func (p *PersistenceConfig) GetPingTimeout() time.Duration {
	return p.v.GetDuration("persistence.ping_timeout")
}

func (c *Config) GetSigningKey() string {
	return c.v.GetString("auth.signing_key")
}

func (c *Config) GetIssuer() string {
	return c.v.GetString("auth.issuer")
}

func (c *Config) GetTokenExpiration() time.Duration {
	return c.v.GetDuration("auth.token_expiration")
}

func (c *Config) GetCodeExpiration() time.Duration {
	return c.v.GetDuration("auth.code_expiration")
}

func (c *Config) GetRejectedRouteKey() string {
	return c.v.GetString("auth.rejected_route_key")
}

func (c *Config) GetRejectedRouteDefault() string {
	return c.v.GetString("auth.rejected_route_default")
}
