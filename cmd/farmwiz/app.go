package main

import (
	"context"
	"fmt"
	"os"

	"github.com/scibee/farmwiz/internal/catalog"
	"github.com/scibee/farmwiz/internal/config"
	"github.com/scibee/farmwiz/internal/farmapi"
	"github.com/scibee/farmwiz/internal/flows"
	"github.com/scibee/farmwiz/internal/journal"
	"github.com/scibee/farmwiz/internal/logger"
	"github.com/scibee/farmwiz/internal/preload"
	"github.com/scibee/farmwiz/internal/session"
	"github.com/scibee/farmwiz/internal/submit"
	"github.com/scibee/farmwiz/internal/wizard"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootFlags struct {
	store   string
	dataDir string
}

// flagKeys maps command flags to the config keys they override.
var flagKeys = map[string]string{
	"store":    "store",
	"data-dir": "data_dir",
	"addr":     "listen_addr",
}

// loadConfig loads the config with the command's flags taking precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	for flag, key := range flagKeys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			f = cmd.InheritedFlags().Lookup(flag)
		}
		if f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding --%s: %w", flag, err)
			}
		}
	}

	cfg, err := config.LoadWith(v)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := logger.Configure(cfg.LogLevel, cfg.LogFile); err != nil {
		return nil, fmt.Errorf("configuring logger: %w", err)
	}
	return cfg, nil
}

// app is everything a command needs to run wizards.
type app struct {
	cfg      *config.Config
	backends *session.Backends
	store    *wizard.Store
	journal  journal.Journal
	api      *farmapi.Client
	flows    *flows.Registry
	loader   *preload.Loader
}

func openApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	backends, err := session.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}

	var j journal.Journal = journal.NewMemory(0)
	if backends.JetStream != nil {
		stream, err := journal.NewStream(ctx, backends.JetStream)
		if err != nil {
			_ = backends.Close()
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		j = stream
	}

	cat := catalog.Default()
	api := farmapi.New(cfg)
	deps := submit.NewDeps(api, cat, submit.Gatekeeper{
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
		AccessCode:    cfg.AccessCode,
		ServiceName:   cfg.ServiceName,
	})
	reg := flows.New().Bind(deps)
	if err := reg.Validate(); err != nil {
		_ = backends.Close()
		return nil, fmt.Errorf("invalid wizard definitions: %w", err)
	}

	return &app{
		cfg:      cfg,
		backends: backends,
		store:    wizard.NewStore(backends.Records),
		journal:  j,
		api:      api,
		flows:    reg,
		loader:   preload.NewLoader(cat),
	}, nil
}

func (a *app) Close() error {
	return a.backends.Close()
}

// defaultOwner names the terminal profile records are kept under.
func defaultOwner() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}
