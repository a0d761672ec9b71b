package main

import (
	"fmt"
	"os"

	"github.com/scibee/farmwiz/internal/journal"
	"github.com/scibee/farmwiz/internal/tui"
	"github.com/spf13/cobra"
)

var runFlags struct {
	owner string
	reset bool
}

var runCmd = &cobra.Command{
	Use:   "run <wizard>",
	Short: "Run a wizard in the terminal",
	Long: `Run one wizard as a full-screen terminal program.

Progress is kept under the owner profile, so quitting with ctrl+c and
running the same wizard again resumes at the first unanswered step.
Use 'farmwiz wizards' to list the wizard keys.`,
	Args: cobra.ExactArgs(1),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return wizardKeys(), cobra.ShellCompDirectiveNoFileComp
	},
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runFlags.owner, "owner", "o", defaultOwner(), "Profile the wizard progress and login belong to")
	runCmd.Flags().BoolVar(&runFlags.reset, "reset", false, "Discard saved progress before starting")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		}
	}()

	f, ok := a.flows.Get(args[0])
	if !ok {
		return fmt.Errorf("unknown wizard %q, run 'farmwiz wizards' to list them", args[0])
	}

	opts := tui.Options{
		Flow:     f,
		Store:    a.store,
		Owner:    runFlags.owner,
		API:      a.api,
		Loader:   a.loader,
		Notifier: journal.Notifier(a.journal),
	}
	if runFlags.reset {
		tui.Reset(ctx, opts)
	}

	res, err := tui.Run(ctx, opts)
	if err != nil {
		return err
	}
	if !res.Completed {
		fmt.Printf("Progress saved. Run 'farmwiz run %s' to continue.\n", f.Key)
		return nil
	}
	fmt.Printf("%s: submitted. Continue at %s.\n", f.Title, res.Destination)
	return nil
}
