package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/scibee/farmwiz/internal/config"
	"github.com/scibee/farmwiz/internal/farmapi"
	"github.com/scibee/farmwiz/internal/flows"
	"github.com/scibee/farmwiz/internal/session"
	"github.com/scibee/farmwiz/internal/tui/theme"
	"github.com/scibee/farmwiz/internal/wizard"
	"github.com/spf13/cobra"
)

const pingTimeout = 5 * time.Second

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, record store and API reachability",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

// check is one doctor line.
type check struct {
	name string
	err  error
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	var checks []check

	cfg, err := loadConfig(cmd)
	checks = append(checks, check{"config", err})
	if err != nil {
		return report(checks)
	}
	if !config.Exists() {
		fmt.Println("No config file found; using defaults and environment. Run 'farmwiz setup' to create one.")
	}

	checks = append(checks, check{"wizard definitions", flows.New().Validate()})

	backends, err := session.Open(ctx, cfg)
	if err == nil {
		err = roundTrip(ctx, backends.Records)
		_ = backends.Close()
	}
	checks = append(checks, check{"record store (" + cfg.Store + ")", err})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	checks = append(checks, check{"farm calendar and gatekeeper", farmapi.New(cfg).Ping(pingCtx)})

	return report(checks)
}

// roundTrip writes, reads back and deletes a throwaway value.
func roundTrip(ctx context.Context, b wizard.Backend) error {
	key := session.Key("doctor", uuid.NewString())
	want := []byte(`{"doctor":true}`)
	if err := b.Put(ctx, key, want); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	got, err := b.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if !bytes.Equal(got, want) {
		return errors.New("read back a different value")
	}
	if err := b.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

func report(checks []check) error {
	st := theme.Current().S()
	failed := 0
	for _, c := range checks {
		if c.err != nil {
			failed++
			fmt.Printf("%s %s: %v\n", st.Error.Render("✗"), c.name, c.err)
			continue
		}
		fmt.Printf("%s %s\n", st.Success.Render("✓"), c.name)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(checks))
	}
	return nil
}
