package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/scibee/farmwiz/internal/journal"
	"github.com/scibee/farmwiz/internal/mcpserver"
	"github.com/spf13/cobra"
)

var mcpFlags struct {
	addr string
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the wizards as MCP tools",
	Long: `Serve the wizards over the Model Context Protocol (streamable HTTP at /mcp).

An agent lists the wizards, reads the current step, answers it and submits,
one tool call at a time. Every call names an owner; progress is kept per
owner and wizard in the configured record store.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVarP(&mcpFlags.addr, "addr", "a", "127.0.0.1:0", "Listen address for the MCP endpoint")
}

func runMCP(cmd *cobra.Command, args []string) error {
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

	srv := mcpserver.New(mcpserver.Options{
		Flows:    a.flows,
		Store:    a.store,
		API:      a.api,
		Loader:   a.loader,
		Notifier: journal.Notifier(a.journal),
	})
	if _, err := srv.Start(ctx, mcpFlags.addr); err != nil {
		return fmt.Errorf("failed to start MCP server: %w", err)
	}
	defer func() { _ = srv.Stop() }()

	fmt.Printf("MCP endpoint: %s\n", srv.URL())
	<-ctx.Done()
	fmt.Println("\nShutting down.")
	return nil
}
