package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/placesync/internal/decode"
	"github.com/couchcryptid/placesync/internal/pipeline"
)

func newUpdateCmd() *cobra.Command {
	var (
		patch      bool
		workers    int
		reportFile string
	)

	cmd := &cobra.Command{
		Use:   "update INPUT",
		Short: "Update existing catalog entries",
		Long: `Update reads full place records from a JSON array and replaces the
matching catalog entries. Every record must carry the entry's id and its
current version. With --patch the input is a tabular file instead and only
the non-empty fields of each row are applied.`,
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

			var src pipeline.Source
			mode := pipeline.ModeUpdate
			if patch {
				mode = pipeline.ModePatch
				src, err = decode.NewCSVDecoder(f, decode.ModePatch)
			} else {
				src, err = decode.NewJSONDecoder(f)
			}
			if err != nil {
				return err
			}

			rt.logger.Info("starting update", "input", args[0], "patch", patch)
			return runBatch(cmd.Context(), rt, mode, src, false, workers, reportFile)
		},
	}

	cmd.Flags().BoolVar(&patch, "patch", false,
		"read tabular input and apply only the non-empty fields of each row")
	cmd.Flags().IntVar(&workers, "workers", 0,
		"process rows concurrently (overrides PIPELINE_WORKERS)")
	cmd.Flags().StringVar(&reportFile, "report-file", "",
		"write the JSON report to this file instead of stdout")
	return cmd
}
