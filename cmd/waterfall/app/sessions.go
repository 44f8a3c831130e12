package app

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roman-kulish/waterfall/internal/storage"
)

func newSessionsCmd(env *environment) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List the sessions stored in a database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				return errors.New("db path is required")
			}

			store := storage.NewSqliteStore(dbPath, storage.WithLogger(env.logger))
			defer store.Close()

			sessions, err := store.Sessions(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing sessions: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tIMPORTED\tSTEP\tSWEEPS\tSOURCE")
			for _, s := range sessions {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
					s.ID,
					s.StartTime.Local().Format(time.DateTime),
					humanHz(s.FreqStep),
					humanize.Comma(int64(s.Sweeps)),
					s.Source,
				)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the database file")
	return cmd
}
