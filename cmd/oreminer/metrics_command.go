package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"oreminer/internal/ipc"
	"oreminer/internal/metrics"
)

func newMetricsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show mining metrics from the local store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				summary, err := client.MetricsSummary()
				if err != nil {
					return fmt.Errorf("fetch metrics summary: %w", err)
				}
				if summary == nil {
					return errors.New("metrics summary response missing")
				}
				stdout := cmd.OutOrStdout()
				if !summary.Enabled {
					fmt.Fprintln(stdout, "Metrics collection is disabled (enable it in [metrics])")
					return nil
				}

				colorize := shouldColorize(stdout)

				for _, line := range renderSectionHeader("Latest Metrics", colorize) {
					fmt.Fprintln(stdout, line)
				}
				if len(summary.Latest) == 0 {
					fmt.Fprintln(stdout, "No samples recorded yet")
				} else {
					rows := latestMetricRows(summary.Latest)
					table := renderTable([]string{"Metric", "Value", "Recorded"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft})
					fmt.Fprintln(stdout, table)
				}

				fmt.Fprintln(stdout)
				for _, line := range renderSectionHeader("Totals", colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("Samples", statusInfo, strconv.FormatInt(summary.SampleCount, 10), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Submissions", statusInfo, strconv.FormatInt(summary.Submissions, 10), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Sessions", statusInfo, strconv.FormatInt(summary.SessionCount, 10), colorize))
				if last := summary.LastSession; last != nil {
					detail := fmt.Sprintf("%s started %s", last.ID, last.StartedAt.Format("2006-01-02 15:04:05"))
					if last.EndedAt != nil {
						detail += fmt.Sprintf(", ended %s", last.EndedAt.Format("2006-01-02 15:04:05"))
					}
					if last.ExitCode != nil {
						detail += fmt.Sprintf(" (exit %d)", *last.ExitCode)
					}
					fmt.Fprintln(stdout, renderStatusLine("Last session", statusInfo, detail, colorize))
				}
				return nil
			})
		},
	}

	cmd.AddCommand(newMetricsRecentCommand(ctx))
	return cmd
}

func newMetricsRecentCommand(ctx *commandContext) *cobra.Command {
	var (
		limit    int
		kindFlag string
	)

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show recent metric samples and reward submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			var kindFilter metrics.Kind
			if kindFlag != "" {
				kind, ok := metrics.ParseKind(kindFlag)
				if !ok {
					return fmt.Errorf("unknown metric kind %q (valid kinds: stake, change, multiplier, difficulty)", kindFlag)
				}
				kindFilter = kind
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.MetricsRecent(limit)
				if err != nil {
					return fmt.Errorf("fetch recent metrics: %w", err)
				}
				if resp == nil {
					return errors.New("recent metrics response missing")
				}
				stdout := cmd.OutOrStdout()
				if !resp.Enabled {
					fmt.Fprintln(stdout, "Metrics collection is disabled (enable it in [metrics])")
					return nil
				}

				colorize := shouldColorize(stdout)

				samples := resp.Samples
				if kindFilter != "" {
					filtered := make([]ipc.MetricSample, 0, len(samples))
					for _, sample := range samples {
						if metrics.Kind(sample.Kind) == kindFilter {
							filtered = append(filtered, sample)
						}
					}
					samples = filtered
				}

				for _, line := range renderSectionHeader("Recent Samples", colorize) {
					fmt.Fprintln(stdout, line)
				}
				if len(samples) == 0 {
					fmt.Fprintln(stdout, "No samples recorded yet")
				} else {
					rows := make([][]string, 0, len(samples))
					for _, sample := range samples {
						rows = append(rows, []string{
							sample.Kind,
							formatMetricValue(sample.Value),
							sample.RecordedAt.Format("2006-01-02 15:04:05"),
							sample.SessionID,
						})
					}
					table := renderTable([]string{"Metric", "Value", "Recorded", "Session"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft, alignLeft})
					fmt.Fprintln(stdout, table)
				}

				// Submissions carry no kind, so the filter shows samples only.
				if kindFilter != "" {
					return nil
				}

				fmt.Fprintln(stdout)
				for _, line := range renderSectionHeader("Recent Submissions", colorize) {
					fmt.Fprintln(stdout, line)
				}
				if len(resp.Submissions) == 0 {
					fmt.Fprintln(stdout, "No submissions recorded yet")
					return nil
				}
				rows := make([][]string, 0, len(resp.Submissions))
				for _, submission := range resp.Submissions {
					rows = append(rows, []string{
						submission.TxHash,
						submission.RecordedAt.Format("2006-01-02 15:04:05"),
						submission.SessionID,
					})
				}
				table := renderTable([]string{"Transaction", "Recorded", "Session"}, rows, []columnAlignment{alignLeft, alignLeft, alignLeft})
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of rows per table")
	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "", "Only show samples of one metric kind (stake, change, multiplier, difficulty)")
	return cmd
}

func latestMetricRows(latest map[string]ipc.MetricSample) [][]string {
	kinds := make([]string, 0, len(latest))
	for kind := range latest {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	rows := make([][]string, 0, len(kinds))
	for _, kind := range kinds {
		sample := latest[kind]
		rows = append(rows, []string{
			kind,
			formatMetricValue(sample.Value),
			sample.RecordedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return rows
}

func formatMetricValue(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
