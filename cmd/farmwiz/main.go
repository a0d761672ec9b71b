package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/scibee/farmwiz/internal/logger"
	"github.com/scibee/farmwiz/internal/tui/theme"
	"github.com/spf13/cobra"
)

// Version set via ldflags during build
var version = "dev"

func main() {
	defer func() { _ = logger.Close() }()

	if err := fang.Execute(context.Background(), rootCmd, fang.WithVersion(version)); err != nil {
		logger.Error("Command execution failed: %v", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "farmwiz",
	Short: "Step-by-step wizards for recording farm data",
}

func init() {
	rootCmd.Long = theme.Current().S().Title.Render("farmwiz") + `

farmwiz walks farmers through adding parcels, apiaries, beehives, crops and
farms, registering, and recording observations and field work, one short
step at a time. Progress is kept between steps and sessions, so a wizard can
be left and resumed. The same wizards are served to browsers, run in the
terminal and exposed as MCP tools.`

	rootCmd.PersistentFlags().StringVar(&rootFlags.store, "store", "", "Record store: nats, redis, file or memory (default from config)")
	rootCmd.PersistentFlags().StringVar(&rootFlags.dataDir, "data-dir", "", "Data directory for the nats and file stores (default from config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(wizardsCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(doctorCmd)
}
