package cmd

import (
	"github.com/spf13/cobra"

	"github.com/vmc-cli/vmc/internal/ui"
)

func newColorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "colors",
		Short:  "Show color configuration",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			colors := envFromContext(ctx).Colors
			u := ui.FromContext(ctx)
			for _, label := range u.Labels() {
				u.Line("%s: %s", label, u.C(colors[label], label))
			}
			return nil
		},
	}
}
