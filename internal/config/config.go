// Package config loads linkgraph settings. Values come from flags, then
// LINKGRAPH_* environment variables, then an optional config file, then
// defaults.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/linkgraph/linkgraph/internal/store"
)

// EnvPrefix prefixes environment variables; "server.addr" is read from
// LINKGRAPH_SERVER_ADDR.
const EnvPrefix = "LINKGRAPH"

type Config struct {
	Server  Server
	GraphQL GraphQL
	Browser Browser
	Store   store.Config
	Log     Log
	Otel    Otel
	Metrics Metrics
}

type Server struct {
	Addr         string
	Timeout      time.Duration
	Pretty       bool
	MaxBodyBytes int64
	CORSOrigins  []string
}

type GraphQL struct {
	// Schema is an SDL file; empty selects the embedded schema.
	Schema        string
	Introspection bool
}

type Browser struct {
	Dir   string
	Index string
}

type Log struct {
	Level  string
	Format string
}

type Otel struct {
	Endpoint string
	Service  string
}

type Metrics struct {
	Enabled bool
}

// BindFlags registers every setting on fs with its default and binds the
// flags to v. The "config" flag names a config file read by Load.
func BindFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	fs.String("config", "", "Config file (yaml, toml or json). Flags and LINKGRAPH_* variables override it")

	fs.String("server.addr", ":8080", "HTTP listen address")
	fs.Duration("server.timeout", 10*time.Second, "Default per-request timeout (0 disables)")
	fs.Bool("server.pretty", false, "Pretty-print JSON responses")
	fs.Int64("server.max-body-bytes", 1<<20, "Request body limit in bytes (0 disables)")
	fs.StringSlice("server.cors-origins", nil, "Allowed CORS origins; * allows any")

	fs.String("graphql.schema", "", "SDL file to serve instead of the embedded schema")
	fs.Bool("graphql.introspection", true, "Answer __schema and __type queries")

	fs.String("browser.dir", "graphiql", "Directory served under /browser/")
	fs.String("browser.index", "index.html", "Index page of the browser directory")

	fs.String("store.backend", store.BackendMemory, "Link store: memory, badger or mysql")
	fs.String("store.path", "", "Badger directory; empty keeps badger in memory")
	fs.String("store.dsn", "", "MySQL data source name")

	fs.String("log.level", "info", "Log level: debug, info, warn or error")
	fs.String("log.format", "console", "Log format: console or json")

	fs.String("otel.endpoint", "", "OTLP/gRPC collector endpoint; empty disables tracing")
	fs.String("otel.service", "linkgraph", "OpenTelemetry service name")

	fs.Bool("metrics.enabled", true, "Serve Prometheus metrics on /metrics")

	if err := v.BindPFlags(fs); err != nil {
		return errors.Wrap(err, "binding flags")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return nil
}

// Load reads the config file named by the "config" key, if any, and returns
// the validated settings.
func Load(v *viper.Viper) (Config, error) {
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "reading config %s", file)
		}
	}

	cfg := Config{
		Server: Server{
			Addr:         v.GetString("server.addr"),
			Timeout:      v.GetDuration("server.timeout"),
			Pretty:       v.GetBool("server.pretty"),
			MaxBodyBytes: v.GetInt64("server.max-body-bytes"),
			CORSOrigins:  v.GetStringSlice("server.cors-origins"),
		},
		GraphQL: GraphQL{
			Schema:        v.GetString("graphql.schema"),
			Introspection: v.GetBool("graphql.introspection"),
		},
		Browser: Browser{
			Dir:   v.GetString("browser.dir"),
			Index: v.GetString("browser.index"),
		},
		Store: store.Config{
			Backend: v.GetString("store.backend"),
			Path:    v.GetString("store.path"),
			DSN:     v.GetString("store.dsn"),
		},
		Log: Log{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Otel: Otel{
			Endpoint: v.GetString("otel.endpoint"),
			Service:  v.GetString("otel.service"),
		},
		Metrics: Metrics{Enabled: v.GetBool("metrics.enabled")},
	}
	return cfg, cfg.Validate()
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	switch {
	case c.Server.Addr == "":
		return errors.New("server.addr must not be empty")
	case c.Server.Timeout < 0:
		return errors.Errorf("server.timeout must not be negative, got %s", c.Server.Timeout)
	case c.Server.MaxBodyBytes < 0:
		return errors.Errorf("server.max-body-bytes must not be negative, got %d", c.Server.MaxBodyBytes)
	case c.Browser.Dir == "":
		return errors.New("browser.dir must not be empty")
	}
	switch c.Store.Backend {
	case store.BackendMemory, store.BackendBadger:
	case store.BackendMySQL:
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for the mysql backend")
		}
	default:
		return errors.Errorf("unknown store.backend %q", c.Store.Backend)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return errors.Errorf("unknown log.format %q", c.Log.Format)
	}
	return nil
}
