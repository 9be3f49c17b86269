package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/promptlib/promptlib/internal/database"
	"github.com/promptlib/promptlib/internal/models"
	"github.com/promptlib/promptlib/internal/usage"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newUsageCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Inspect LLM usage",
	}
	cmd.AddCommand(newUsageReportCmd(a))
	return cmd
}

type reportOptions struct {
	granularity string
	start       string
	end         string
	userID      string
}

func (o reportOptions) query() (models.Granularity, models.UsageLogQuery, error) {
	g, ok := models.ParseGranularity(o.granularity)
	if !ok {
		return "", models.UsageLogQuery{}, fmt.Errorf("--granularity must be day, week or month")
	}

	q := models.UsageLogQuery{UserID: o.userID}
	if o.start != "" {
		t, err := time.Parse(time.DateOnly, o.start)
		if err != nil {
			return "", q, fmt.Errorf("--start must be YYYY-MM-DD")
		}
		q.Start = &t
	}
	if o.end != "" {
		t, err := time.Parse(time.DateOnly, o.end)
		if err != nil {
			return "", q, fmt.Errorf("--end must be YYYY-MM-DD")
		}
		// inclusive of the whole end day
		t = t.AddDate(0, 0, 1)
		q.End = &t
	}
	return g, q, nil
}

func newUsageReportCmd(a *app) *cobra.Command {
	opts := reportOptions{granularity: string(models.GranularityDay)}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print usage buckets, most recent first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, query, err := opts.query()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			logs, err := database.NewUsageLogRepository(db).List(ctx, query)
			if err != nil {
				return err
			}

			return renderReport(cmd.OutOrStdout(), usage.Aggregate(logs, g, usage.Descending))
		},
	}

	cmd.Flags().StringVar(&opts.granularity, "granularity", opts.granularity, "bucket width: day, week or month")
	cmd.Flags().StringVar(&opts.start, "start", "", "first day to include (YYYY-MM-DD, UTC)")
	cmd.Flags().StringVar(&opts.end, "end", "", "last day to include (YYYY-MM-DD, UTC)")
	cmd.Flags().StringVar(&opts.userID, "user", "", "restrict to one user id")
	return cmd
}

func renderReport(w io.Writer, buckets []models.UsageBucket) error {
	if len(buckets) == 0 {
		_, err := fmt.Fprintln(w, "no usage recorded")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "BUCKET\tREQUESTS\tFAILED\tTOKENS\tCOST (USD)\tUSERS\tAVG LATENCY\t")

	totalCost := decimal.Zero
	var totalRequests, totalFailed int
	var totalTokens int64
	for _, b := range buckets {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t\n",
			b.BucketKey,
			humanize.Comma(int64(b.TotalRequests)),
			humanize.Comma(int64(b.FailedRequests)),
			humanize.Comma(b.TotalTokens),
			b.TotalCostUSD.StringFixed(4),
			b.UniqueUsers,
			(time.Duration(b.AvgLatencyMs) * time.Millisecond).String(),
		)
		totalCost = totalCost.Add(b.TotalCostUSD)
		totalRequests += b.TotalRequests
		totalFailed += b.FailedRequests
		totalTokens += b.TotalTokens
	}

	fmt.Fprintf(tw, "TOTAL\t%s\t%s\t%s\t%s\t\t\t\n",
		humanize.Comma(int64(totalRequests)),
		humanize.Comma(int64(totalFailed)),
		humanize.Comma(totalTokens),
		totalCost.StringFixed(4),
	)
	return tw.Flush()
}
