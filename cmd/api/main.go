package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"inspector.onebusaway.org/internal/appconf"
	"inspector.onebusaway.org/internal/logging"
)

// flagValues holds the command line. Flags that were not set leave the
// file and environment configuration alone.
type flagValues struct {
	configFile string
	dotEnv     string
	port       int
	env        appconf.Environment
	apiKeys    string
	rateLimit  int
	verbose    bool
	registry   string
	backend    string
	timeout    time.Duration
	retries    int
	replayEnv  string
	replayFile string
}

func parseFlags(args []string) (*flagValues, map[string]bool, error) {
	fs := flag.NewFlagSet("inspector", flag.ContinueOnError)
	var fv flagValues
	fs.StringVar(&fv.configFile, "config", "", "path to a YAML config file")
	fs.StringVar(&fv.dotEnv, "dotenv", ".env", "path to a .env file, loaded when present")
	fs.IntVar(&fv.port, "port", 4000, "API server port")
	fs.Var(&fv.env, "env", "environment (development|test|production)")
	fs.StringVar(&fv.apiKeys, "api-keys", "", "comma separated API keys; empty accepts any request")
	fs.IntVar(&fv.rateLimit, "rate-limit", 100, "requests per second per API key")
	fs.BoolVar(&fv.verbose, "verbose", false, "debug logging")
	fs.StringVar(&fv.registry, "registry", "", "source registry URL: sqlite path, postgres:// DSN or bucket URL")
	fs.StringVar(&fv.backend, "registry-backend", "", "force the registry backend (blob|sqlite|postgres)")
	fs.DurationVar(&fv.timeout, "fetch-timeout", 10*time.Second, "feed download timeout")
	fs.IntVar(&fv.retries, "fetch-retries", 0, "extra attempts after a connection failure or 5xx")
	fs.StringVar(&fv.replayEnv, "replay-env", "", "environment variable holding the replay time")
	fs.StringVar(&fv.replayFile, "replay-file", "", "file holding the replay time")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return &fv, set, nil
}

// loadConfig layers defaults, the config file, the environment and the
// flags that were set, then validates.
func loadConfig(fv *flagValues, set map[string]bool) (appconf.Config, error) {
	if err := appconf.LoadDotEnv(fv.dotEnv); err != nil {
		return appconf.Config{}, fmt.Errorf("failed to load %s: %w", fv.dotEnv, err)
	}

	cfg := appconf.Default()
	if fv.configFile != "" {
		loaded, err := appconf.LoadFromFile(fv.configFile)
		if err != nil {
			return appconf.Config{}, err
		}
		cfg = *loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return appconf.Config{}, err
	}

	if set["port"] {
		cfg.Port = fv.port
	}
	if set["env"] {
		cfg.Env = fv.env
	}
	if set["api-keys"] {
		cfg.ApiKeys = appconf.ParseAPIKeys(fv.apiKeys)
	}
	if set["rate-limit"] {
		cfg.RateLimit = fv.rateLimit
	}
	if set["verbose"] {
		cfg.Verbose = fv.verbose
	}
	if set["registry"] {
		cfg.Registry.URL = fv.registry
	}
	if set["registry-backend"] {
		cfg.Registry.Backend = fv.backend
	}
	if set["fetch-timeout"] {
		cfg.Fetch.Timeout = fv.timeout
	}
	if set["fetch-retries"] {
		cfg.Fetch.Retries = fv.retries
	}
	if set["replay-env"] {
		cfg.Clock.ReplayEnv = fv.replayEnv
	}
	if set["replay-file"] {
		cfg.Clock.ReplayFile = fv.replayFile
	}

	if err := cfg.Validate(); err != nil {
		return appconf.Config{}, err
	}
	return cfg, nil
}

func main() {
	fv, set, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	cfg, err := loadConfig(fv, set)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	coreApp, err := BuildApplication(cfg)
	if err != nil {
		slog.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	srv, api := CreateServer(coreApp, cfg)

	ctx, stop := notifyContext()
	defer stop()

	if err := Run(ctx, srv, coreApp, api); err != nil {
		logging.LogError(coreApp.Logger, "server stopped with error", err)
		os.Exit(1)
	}
}
