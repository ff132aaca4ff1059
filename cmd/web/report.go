package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ecommerce-dashboard/internal/config"
	"ecommerce-dashboard/internal/filter"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/services"
)

type reportFlags struct {
	start       string
	end         string
	categories  []string
	granularity string
	pretty      bool
}

func newReportCmd(cfgFile *string) *cobra.Command {
	var flags reportFlags

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Compute the dashboard once and print it as JSON",
		Example: `  ecommerce-dashboard report --start 2017-01-01 --end 2017-12-31 \
    --category health_beauty --category toys --granularity month`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgFile)
			if err != nil {
				return err
			}
			// stdout carries only the report
			logger := observability.NewLoggerTo(cmd.ErrOrStderr(), cfg.Logger)

			analytics, err := loadAnalytics(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			q, err := flags.query(analytics.Extent(), cfg.Dataset.CategorySentinel)
			if err != nil {
				return err
			}

			report, err := analytics.Query(cmd.Context(), q)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if flags.pretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(report)
		},
	}

	cmd.Flags().StringVar(&flags.start, "start", "", "first day, YYYY-MM-DD (default: first day of the data)")
	cmd.Flags().StringVar(&flags.end, "end", "", "last day, YYYY-MM-DD (default: last day of the data)")
	cmd.Flags().StringArrayVar(&flags.categories, "category", nil, "category to include, repeatable (default: all)")
	cmd.Flags().StringVar(&flags.granularity, "granularity", string(services.Daily), "time bucket: day, week, month or year")
	cmd.Flags().BoolVar(&flags.pretty, "pretty", false, "indent the JSON output")

	return cmd
}

func (f reportFlags) query(extent filter.DateRange, sentinel string) (services.Query, error) {
	start, end := extent.Start, extent.End
	var err error
	if f.start != "" {
		if start, err = time.Parse(filter.DateLayout, f.start); err != nil {
			return services.Query{}, fmt.Errorf("invalid --start: %w", err)
		}
	}
	if f.end != "" {
		if end, err = time.Parse(filter.DateLayout, f.end); err != nil {
			return services.Query{}, fmt.Errorf("invalid --end: %w", err)
		}
	}
	if start.After(end) {
		return services.Query{}, fmt.Errorf("start %s is after end %s", start.Format(filter.DateLayout), end.Format(filter.DateLayout))
	}

	g, err := services.ParseGranularity(f.granularity)
	if err != nil {
		return services.Query{}, err
	}

	return services.Query{
		Range:       filter.NewDateRange(start, end),
		Categories:  filter.ParseSelection(f.categories, sentinel),
		Granularity: g,
	}, nil
}
