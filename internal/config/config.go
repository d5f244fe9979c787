// Package config loads process settings from the environment, optionally
// seeded from a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	keyPort               = "PORT"
	keyAPIKey             = "API_KEY"
	keyLogLevel           = "LOG_LEVEL"
	keyMetricsEnabled     = "METRICS_ENABLED"
	keyMetricsToken       = "METRICS_TOKEN"
	keyCORSAllowedOrigins = "CORS_ALLOWED_ORIGINS"
	keyShutdownTimeout    = "SHUTDOWN_TIMEOUT"

	DefaultEnvFile = ".env"
)

type Config struct {
	Port            int    `validate:"min=1,max=65535"`
	APIKey          string `validate:"required"`
	LogLevel        string `validate:"oneof=debug info warn error"`
	MetricsEnabled  bool
	MetricsToken    string
	AllowedOrigins  []string      `validate:"min=1,dive,required"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads the environment (and envFile, when it exists) into a validated
// Config. An empty envFile skips the file entirely.
func Load(envFile string) (Config, error) {
	v := viper.New()
	v.SetDefault(keyPort, 3000)
	v.SetDefault(keyAPIKey, "")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyMetricsEnabled, true)
	v.SetDefault(keyMetricsToken, "")
	v.SetDefault(keyCORSAllowedOrigins, "*")
	v.SetDefault(keyShutdownTimeout, "10s")

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			return Config{}, fmt.Errorf("read %s: %w", envFile, err)
		}
	}
	v.AutomaticEnv()

	cfg := Config{
		Port:            v.GetInt(keyPort),
		APIKey:          v.GetString(keyAPIKey),
		LogLevel:        strings.ToLower(v.GetString(keyLogLevel)),
		MetricsEnabled:  v.GetBool(keyMetricsEnabled),
		MetricsToken:    v.GetString(keyMetricsToken),
		AllowedOrigins:  splitList(v.GetString(keyCORSAllowedOrigins)),
		ShutdownTimeout: v.GetDuration(keyShutdownTimeout),
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", describe(err))
	}
	return cfg, nil
}

func isNotExist(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, fs.ErrNotExist)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var envNames = map[string]string{
	"Port":            keyPort,
	"APIKey":          keyAPIKey,
	"LogLevel":        keyLogLevel,
	"AllowedOrigins":  keyCORSAllowedOrigins,
	"ShutdownTimeout": keyShutdownTimeout,
}

// describe rewrites validator errors in terms of the environment variable
// an operator has to fix.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := envNames[fe.StructField()]
		if name == "" {
			name = fe.StructField()
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, name+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", name, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", name, fe.Tag(), fe.Param()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
