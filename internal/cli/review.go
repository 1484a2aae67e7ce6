package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/placesync/internal/decode"
	"github.com/couchcryptid/placesync/internal/pipeline"
	"github.com/couchcryptid/placesync/internal/report"
)

func newReviewCmd() *cobra.Command {
	var (
		email      string
		password   string
		reportFile string
	)

	cmd := &cobra.Command{
		Use:   "review INPUT",
		Short: "Apply moderation decisions to catalog entries",
		Long: `Review reads entry ids with a review decision (confirmed, rejected or
archived) from a tabular file and applies them through an authenticated
session. Rows sharing the same decision travel in a single catalog call.`,
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

			src, err := decode.NewReviewDecoder(f)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := rt.catalog.Login(ctx, email, password); err != nil {
				return fmt.Errorf("login: %w", err)
			}
			defer func() {
				// Session teardown runs even when the run context is gone.
				logoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := rt.catalog.Logout(logoutCtx); err != nil {
					rt.logger.Warn("logout failed", "error", err)
				}
			}()

			acc := report.NewAccumulator(string(pipeline.ModeReview), nil)
			reviewer := pipeline.NewReviewer(rt.catalog, acc, rt.logger, rt.metrics)

			rt.logger.Info("starting review", "input", args[0], "email", email)
			return finishRun(rt, acc, reportFile, reviewer.Run(ctx, src))
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email for the catalog session")
	cmd.Flags().StringVar(&password, "password", "", "account password for the catalog session")
	cmd.Flags().StringVar(&reportFile, "report-file", "",
		"write the JSON report to this file instead of stdout")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
