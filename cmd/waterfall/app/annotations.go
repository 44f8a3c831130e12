package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roman-kulish/waterfall/internal/annotation"
)

func newAnnotationsCmd(env *environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotations",
		Short: "Manage annotation files",
	}

	cmd.AddCommand(newConvertCmd(env))
	return cmd
}

func newConvertCmd(env *environment) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "convert <sigid.csv>",
		Short: "Convert a sigidwiki signal database into an annotation file",
		Long: `Convert reads the '*' separated Signal Identification Guide database and writes
the annotation JSON used by render --annotations. Signals are ordered by
decreasing bandwidth so that narrow signals are drawn on top.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			in, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening signal database: %w", err)
			}
			defer in.Close()

			store, err := annotation.FromSigID(in, annotation.WithLogger(env.logger))
			if err != nil {
				return fmt.Errorf("converting signal database: %w", err)
			}

			var out io.Writer = cmd.OutOrStdout()
			if output != "" {
				var f *os.File
				if f, err = os.Create(output); err != nil {
					return fmt.Errorf("creating output file: %w", err)
				}
				defer func() {
					if cErr := f.Close(); cErr != nil && err == nil {
						err = cErr
					}
				}()
				out = f
			}

			if err = store.Write(out); err != nil {
				return err
			}

			env.logger.Info("annotations converted", slog.Int("count", store.Len()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Path to the output file (default stdout)")
	return cmd
}
