package main

import (
	"fmt"
	"strings"

	"github.com/scibee/farmwiz/internal/flows"
	"github.com/scibee/farmwiz/internal/tui/theme"
	"github.com/spf13/cobra"
)

var wizardsCmd = &cobra.Command{
	Use:   "wizards",
	Short: "List the wizards and their steps",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := flows.New()
		if err := reg.Validate(); err != nil {
			return fmt.Errorf("invalid wizard definitions: %w", err)
		}

		st := theme.Current().S()
		for _, f := range reg.All() {
			routes := make([]string, 0, len(f.Steps))
			for _, s := range f.Steps {
				routes = append(routes, s.Route)
			}
			fmt.Printf("%s  %s\n", st.Title.Render(f.Key), f.Title)
			fmt.Printf("  %s: %s\n", f.Base, strings.Join(routes, " → "))
			fmt.Printf("  %s\n\n", st.HintDesc.Render(fmt.Sprintf("then %s (%s record)", f.Destination, f.Completion)))
		}
		return nil
	},
}

// wizardKeys lists wizard keys for shell completion.
func wizardKeys() []string {
	return flows.New().Keys()
}
