package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roman-kulish/waterfall/internal/storage"
	"github.com/roman-kulish/waterfall/internal/sweep"
	"github.com/roman-kulish/waterfall/internal/waterfall"
)

// importSettings is recorded with every session.
type importSettings struct {
	Sweeps  int `json:"sweeps"`
	Samples int `json:"samples"`
}

func newImportCmd(env *environment) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "import <sweeps>",
		Short: "Parse a sweep capture and store it as a new session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if dbPath == "" {
				return errors.New("db path is required")
			}

			ctx := cmd.Context()
			logger := env.logger

			src := waterfall.NewSource(args[0])
			ds, err := waterfall.Load(ctx, src, sweep.WithLogger(logger))
			if err != nil {
				return err
			}
			logDataset(logger, ds)

			store := storage.NewSqliteStore(dbPath, storage.WithLogger(logger))
			defer func() {
				if cErr := store.Close(); cErr != nil && err == nil {
					err = fmt.Errorf("closing store: %w", cErr)
				}
			}()

			settings := importSettings{Sweeps: len(ds.Sweeps), Samples: ds.NumSamples()}
			sessionID, err := store.CreateSession(ctx, src.String(), ds.FreqStep, settings)
			if err != nil {
				return fmt.Errorf("creating session: %w", err)
			}

			if err = store.StoreDataset(ctx, sessionID, ds); err != nil {
				return fmt.Errorf("storing session %d: %w", sessionID, err)
			}

			logger.Info("session imported",
				slog.Int64("sessionID", sessionID),
				slog.String("samples", humanize.Comma(int64(settings.Samples))),
			)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), sessionID)
			return err
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the database file")
	return cmd
}
