package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okian/expertgraph/internal/domain/types"
	"github.com/okian/expertgraph/pkg/logger"
)

func newRecommendCmd(load configLoader) *cobra.Command {
	var person, domain string

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Print the collaborator ranking for a person in a domain",
		Example: `  expertgraph recommend --person "Ada Lovelace" --domain "machine learning"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(context.WithoutCancel(ctx)); err != nil {
					logger.Get().Warn(ctx, "closing store failed", logger.Error(err))
				}
			}()

			// The ranking needs neither the cache nor the search pipeline, so
			// the service is not started.
			rows, err := newService(cfg, store).Recommend(ctx, person, domain)
			if err != nil {
				return err
			}
			return printRecommendations(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().StringVar(&person, "person", "", "person asking for collaborators")
	cmd.Flags().StringVar(&domain, "domain", "", "research domain")
	_ = cmd.MarkFlagRequired("person")
	_ = cmd.MarkFlagRequired("domain")
	return cmd
}

func printRecommendations(out io.Writer, rows []types.Recommendation) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTITLES\tCOLLABORATIONS\tSCORE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.4f\n", r.Name, r.TitleCount, r.Collaborations, r.Score)
	}
	return tw.Flush()
}
