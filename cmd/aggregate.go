package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pubgrove/scholar-cli/internal/aggregate"
	"github.com/pubgrove/scholar-cli/internal/model"
)

var (
	aggFirst       string
	aggLast        string
	aggInstitution string
	aggField       string
	aggMemberID    string
	aggDryRun      bool
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Aggregate publications for a single researcher",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("aggregate"); err != nil {
			return err
		}
		if !aggDryRun && cfg.Strapi.Token == "" {
			return eris.New("strapi.token is required unless --dry-run is set")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		scorer, err := initScorer()
		if err != nil {
			return err
		}
		registry, err := buildRegistry(scorer)
		if err != nil {
			return err
		}

		svc := aggregate.NewService(registry, newBackend(), st, aggregate.WithDryRun(aggDryRun))

		subject := model.Subject{
			FirstName:    aggFirst,
			LastName:     aggLast,
			Institution:  aggInstitution,
			FieldOfStudy: aggField,
			MemberID:     aggMemberID,
		}

		result, err := svc.Run(ctx, subject)
		if err != nil {
			return eris.Wrap(err, "aggregate run")
		}

		zap.L().Info("aggregation finished",
			zap.String("subject", subject.FullName()),
			zap.Int("kept", result.Report.Kept),
			zap.Int("submitted", result.Submitted),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	aggregateCmd.Flags().StringVar(&aggFirst, "first", "", "researcher first name (required)")
	aggregateCmd.Flags().StringVar(&aggLast, "last", "", "researcher last name (required)")
	aggregateCmd.Flags().StringVar(&aggInstitution, "institution", "", "home institution")
	aggregateCmd.Flags().StringVar(&aggField, "field", "", "field of study")
	aggregateCmd.Flags().StringVar(&aggMemberID, "member-id", "", "backend member document ID")
	aggregateCmd.Flags().BoolVar(&aggDryRun, "dry-run", false, "build the proposal but skip backend writes")
	_ = aggregateCmd.MarkFlagRequired("first")
	_ = aggregateCmd.MarkFlagRequired("last")
	rootCmd.AddCommand(aggregateCmd)
}
