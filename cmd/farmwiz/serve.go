package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/scibee/farmwiz/internal/web"
	"github.com/spf13/cobra"
)

var serveFlags struct {
	addr string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the wizards to browsers",
	Long: `Serve the wizards as server-rendered web pages.

Each browser gets its own session cookie; wizard progress and the login are
kept in the configured record store, so a reload or a restart resumes where
the user left off.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.addr, "addr", "a", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		}
	}()

	srv, err := web.New(web.Options{
		Flows:        a.flows,
		Store:        a.store,
		API:          a.api,
		Loader:       a.loader,
		Journal:      a.journal,
		CookieSecure: a.cfg.CookieSecure,
	})
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	fmt.Printf("Serving %d wizards on %s\n", len(a.flows.Keys()), a.cfg.ListenAddr)
	if err := srv.Serve(ctx, a.cfg.ListenAddr); err != nil {
		return fmt.Errorf("web server failed: %w", err)
	}
	fmt.Println("\nShut down gracefully.")
	return nil
}
