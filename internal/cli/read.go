package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/placesync/internal/domain"
)

func newReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read ID [ID...]",
		Short: "Fetch catalog entries by id and print them as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}

			records := make([]domain.Record, 0, len(args))
			for _, id := range args {
				rec, err := rt.catalog.FetchByID(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("fetch entry %q: %w", id, err)
				}
				records = append(records, rec)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		},
	}
}
