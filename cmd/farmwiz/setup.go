package main

import (
	"fmt"
	"os"

	"github.com/scibee/farmwiz/internal/config"
	"github.com/spf13/cobra"
)

var setupFlags struct {
	project      bool
	force        bool
	farmCalendar string
	gatekeeper   string
	store        string
	cookieSecure bool
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create farmwiz configuration file",
	Long: `Create a farmwiz configuration file with sensible defaults.

By default, creates a global config at ~/.config/farmwiz/farmwiz.yml.
Use --project to create a project-local config in the current directory.
Secrets such as admin_password and seal_key are best kept in the
environment (FARMWIZ_ADMIN_PASSWORD, FARMWIZ_SEAL_KEY) or a .env file.`,
	Args: cobra.NoArgs,
	RunE: runSetup,
}

func init() {
	setupCmd.Flags().BoolVarP(&setupFlags.project, "project", "p", false, "Create config in current directory instead of global location")
	setupCmd.Flags().BoolVarP(&setupFlags.force, "force", "f", false, "Overwrite existing config file")
	setupCmd.Flags().StringVar(&setupFlags.farmCalendar, "farmcalendar-url", "", "Farm calendar base URL")
	setupCmd.Flags().StringVar(&setupFlags.gatekeeper, "gatekeeper-url", "", "Gatekeeper base URL")
	setupCmd.Flags().StringVar(&setupFlags.store, "record-store", "", "Record store: nats, redis, file or memory")
	setupCmd.Flags().BoolVar(&setupFlags.cookieSecure, "cookie-secure", false, "Mark session cookies Secure (serving over HTTPS)")
}

func runSetup(cmd *cobra.Command, args []string) error {
	targetPath := config.GlobalPath()
	if setupFlags.project {
		targetPath = config.ProjectPath()
	}

	if !setupFlags.force && fileExists(targetPath) {
		return fmt.Errorf("config file already exists at %s\n\nUse --force to overwrite", targetPath)
	}

	cfg := config.Default()
	if setupFlags.farmCalendar != "" {
		cfg.FarmCalendarURL = setupFlags.farmCalendar
	}
	if setupFlags.gatekeeper != "" {
		cfg.GatekeeperURL = setupFlags.gatekeeper
	}
	if setupFlags.store != "" {
		cfg.Store = setupFlags.store
	}
	cfg.CookieSecure = setupFlags.cookieSecure
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	var err error
	if setupFlags.project {
		err = config.WriteProject(cfg)
	} else {
		err = config.WriteGlobal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Config written to: %s\n\n", targetPath)
	fmt.Println("Run 'farmwiz doctor' to check it, then 'farmwiz serve' to get started.")
	return nil
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
