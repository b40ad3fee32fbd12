package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/j4b6ski/oioioi/cmd/server/internal/aggregate"
	"github.com/j4b6ski/oioioi/internal/config"
	"github.com/j4b6ski/oioioi/internal/exiterr"
	"github.com/j4b6ski/oioioi/internal/logger"
	"github.com/j4b6ski/oioioi/internal/policy"
)

func newRecomputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recompute <contest_id>",
		Short: "Re-derive every result of a contest from its submissions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contestID, err := uuid.Parse(args[0])
			if err != nil {
				return exiterr.Wrap(exiterr.CodeUsage, fmt.Errorf("invalid contest id: %w", err))
			}

			return withDB(cmd.Context(), "recompute",
				func(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
					// recomputing never hands anything to judging
					aggregator, err := aggregate.New(db, policy.Builtin(), nil, aggregate.OptionsFromConfig(cfg)...)
					if err != nil {
						return err
					}

					pairs, err := aggregator.RecomputeContest(ctx, contestID)
					if err != nil {
						return fmt.Errorf("failed to recompute contest: %w", err)
					}

					logger.Logger.InfoContext(ctx, "recomputed contest",
						"contest_id", contestID.String(),
						"pairs", pairs,
					)
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "recomputed %d results\n", pairs)
					return err
				})
		},
	}
}
