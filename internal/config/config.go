// internal/config/config.go
//
// Runtime configuration.
// Every setting is a command-line flag and can also be given through the
// environment as CODEBREAKER_<FLAG> with dashes turned into underscores
// (e.g. --jwt-secret -> CODEBREAKER_JWT_SECRET). Flags win over the
// environment; a .env file in the working directory is loaded by main
// before flags are bound.

package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/robalobadob/codebreaker/internal/store"
)

// EnvPrefix is prepended to every environment variable.
const EnvPrefix = "CODEBREAKER"

// Config holds every runtime setting.
type Config struct {
	Bind string
	Port int

	LogLevel  string
	LogFormat string // json | console

	DBDriver string // memory | sqlite | postgres
	DBDSN    string

	JWTSecret     string
	TokenTTL      time.Duration
	SecureCookies bool

	ClientOrigin   string
	PublicURL      string
	RequestTimeout time.Duration

	WordsDir         string
	PanicOnInvariant bool
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// Validate checks settings that flags alone cannot.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q (want json or console)", c.LogFormat)
	}
	switch c.DBDriver {
	case store.DriverMemory:
	case store.DriverSQLite, store.DriverPostgres:
		if c.DBDSN == "" {
			return fmt.Errorf("--db-dsn is required for the %s driver", c.DBDriver)
		}
	default:
		return fmt.Errorf("invalid db driver %q (want memory, sqlite or postgres)", c.DBDriver)
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("--jwt-secret must be at least 16 characters")
	}
	if c.TokenTTL <= 0 {
		return errors.New("--token-ttl must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("--request-timeout must be positive")
	}
	return nil
}

// BindFlags registers the configuration flags on fs and applies any
// CODEBREAKER_* environment values to flags not set explicitly.
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: CODEBREAKER_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 5175, "port to listen on (env: CODEBREAKER_PORT)")
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "trace|debug|info|warn|error (env: CODEBREAKER_LOG_LEVEL)")
	fs.StringVar(&cfg.LogFormat, "log-format", "json", "json or console (env: CODEBREAKER_LOG_FORMAT)")
	fs.StringVar(&cfg.DBDriver, "db-driver", store.DriverMemory, "memory, sqlite or postgres (env: CODEBREAKER_DB_DRIVER)")
	fs.StringVar(&cfg.DBDSN, "db-dsn", "", "sqlite path or postgres DSN (env: CODEBREAKER_DB_DSN)")
	fs.StringVar(&cfg.JWTSecret, "jwt-secret", "", "secret used to sign player tokens (env: CODEBREAKER_JWT_SECRET)")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", 24*time.Hour, "lifetime of player tokens (env: CODEBREAKER_TOKEN_TTL)")
	fs.BoolVar(&cfg.SecureCookies, "secure-cookies", false, "mark auth cookies Secure, SameSite=None (env: CODEBREAKER_SECURE_COOKIES)")
	fs.StringVar(&cfg.ClientOrigin, "client-origin", "http://localhost:5173", "origin allowed by CORS (env: CODEBREAKER_CLIENT_ORIGIN)")
	fs.StringVar(&cfg.PublicURL, "public-url", "", "base URL in join QR codes (env: CODEBREAKER_PUBLIC_URL)")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", 10*time.Second, "per-request handler budget (env: CODEBREAKER_REQUEST_TIMEOUT)")
	fs.StringVar(&cfg.WordsDir, "words-dir", "", "directory of <deck>.<lang>.txt files added to the built-in decks (env: CODEBREAKER_WORDS_DIR)")
	fs.BoolVar(&cfg.PanicOnInvariant, "panic-on-invariant", false, "crash on rule invariant violations (env: CODEBREAKER_PANIC_ON_INVARIANT)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}
