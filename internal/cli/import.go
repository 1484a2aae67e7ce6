package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/placesync/internal/decode"
	"github.com/couchcryptid/placesync/internal/pipeline"
)

func newImportCmd() *cobra.Command {
	var (
		ignoreDuplicates bool
		workers          int
		reportFile       string
	)

	cmd := &cobra.Command{
		Use:   "import INPUT",
		Short: "Create catalog entries from a tabular file",
		Long: `Import reads place records from a tabular file, resolves missing
coordinates, and creates one catalog entry per row. Before each create the
catalog is asked for nearby entries with a similar title; rows with possible
duplicates are reported instead of created.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer f.Close()

			src, err := decode.NewCSVDecoder(f, decode.ModeImport)
			if err != nil {
				return err
			}

			rt.logger.Info("starting import", "input", args[0], "ignore_duplicates", ignoreDuplicates)
			return runBatch(cmd.Context(), rt, pipeline.ModeImport, src, ignoreDuplicates, workers, reportFile)
		},
	}

	cmd.Flags().BoolVar(&ignoreDuplicates, "ignore-duplicates", false,
		"create entries even when the catalog reports possible duplicates")
	cmd.Flags().IntVar(&workers, "workers", 0,
		"process rows concurrently (overrides PIPELINE_WORKERS)")
	cmd.Flags().StringVar(&reportFile, "report-file", "",
		"write the JSON report to this file instead of stdout")
	return cmd
}
