// Package config provides functionality for managing configuration options
// for the application using command-line flags, environment variables and an
// optional JSON config file.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"os"
	"strconv"
	"strings"
)

// defaultBlocklist is the built-in set of host substrings rejected on link
// creation. Overridden entirely by -x / BLOCKED_HOSTS.
var defaultBlocklist = []string{
	"0.0.0.0",
	"localhost",
	"127.0.0.1",
	"bit.ly",
	"tinyurl.com",
	"grabify.link",
}

// Options holds the configuration values for the application.
type Options struct {
	// Addr defines the server's listening address (ip:port).
	Addr string `json:"server_address"`

	// BaseURL is the base URL short links are served under.
	BaseURL string `json:"base_url"`

	// DatabaseDSN holds the PostgreSQL connection string. When empty an
	// in-memory store is used.
	DatabaseDSN string `json:"database_dsn"`

	// Secret is the server-wide secret used to sign session tokens and as
	// nonce material for API-key derivation. Required.
	Secret string `json:"secret"`

	// Blocklist is the list of blocked host substrings.
	Blocklist []string `json:"blocklist"`

	// EnableHTTPS indicates whether to serve TLS via autocert.
	EnableHTTPS bool `json:"enable_https"`

	// EnablePprof indicates whether to enable pprof for profiling.
	EnablePprof bool `json:"enable_pprof"`
}

// Parse builds Options from the given command-line arguments, an optional
// JSON config file and environment variables. Precedence, lowest to highest:
// defaults, config file, flags, environment.
func Parse(args []string) (*Options, error) {
	opts := &Options{
		Addr:      "localhost:8080",
		BaseURL:   "http://localhost:8080",
		Blocklist: defaultBlocklist,
	}

	fs := flag.NewFlagSet("shortlink", flag.ContinueOnError)
	addr := fs.String("a", opts.Addr, "run on ip:port server")
	baseURL := fs.String("b", opts.BaseURL, "base url for short links")
	dsn := fs.String("d", "", "database dsn")
	secret := fs.String("k", "", "server secret")
	blocked := fs.String("x", "", "comma-separated blocked host substrings")
	enableHTTPS := fs.Bool("s", false, "enable https")
	enablePprof := fs.Bool("p", false, "enable pprof")
	configPath := fs.String("c", "", "path to json config file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if path := pick(*configPath, os.Getenv("CONFIG")); path != "" {
		if err := loadFile(path, opts); err != nil {
			return nil, err
		}
	}

	// Explicitly set flags override file values.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "a":
			opts.Addr = *addr
		case "b":
			opts.BaseURL = *baseURL
		case "d":
			opts.DatabaseDSN = *dsn
		case "k":
			opts.Secret = *secret
		case "x":
			opts.Blocklist = splitList(*blocked)
		case "s":
			opts.EnableHTTPS = *enableHTTPS
		case "p":
			opts.EnablePprof = *enablePprof
		}
	})

	// Environment variables win over everything else.
	if v := os.Getenv("SERVER_ADDRESS"); v != "" {
		opts.Addr = v
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		opts.BaseURL = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		opts.DatabaseDSN = v
	}
	if v := os.Getenv("SERVER_SECRET"); v != "" {
		opts.Secret = v
	}
	if v := os.Getenv("BLOCKED_HOSTS"); v != "" {
		opts.Blocklist = splitList(v)
	}
	if v := os.Getenv("ENABLE_HTTPS"); v != "" {
		httpsMode, err := strconv.ParseBool(v)
		if err != nil {
			httpsMode = false
		}
		opts.EnableHTTPS = httpsMode
	}

	return opts, nil
}

// Validate reports configuration errors that must abort startup.
func (o *Options) Validate() error {
	if o.Secret == "" {
		return errors.New("config: server secret is required (-k or SERVER_SECRET)")
	}
	if o.BaseURL == "" {
		return errors.New("config: base url must not be empty")
	}
	return nil
}

func loadFile(path string, opts *Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, opts)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func pick(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
