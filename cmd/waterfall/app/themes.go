package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roman-kulish/waterfall/internal/scale"
)

func newThemesCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "themes",
		Short: "List the color themes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := scale.ParseTheme(env.profile.Render.Theme)
			if err != nil {
				def = scale.DefaultTheme
			}
			for _, t := range scale.Themes() {
				marker := " "
				if t == def {
					marker = "*"
				}
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, t); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
