package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"oreminer/internal/ipc"
	"oreminer/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display supervisor logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return tailSource(cmd, ctx, string(logs.SourceSupervisor), lines, follow)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")

	cmd.AddCommand(newLogsMinerCommand(ctx))
	cmd.AddCommand(newLogsListCommand(ctx))
	return cmd
}

func newLogsMinerCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var lines int
	var stderrCapture bool

	cmd := &cobra.Command{
		Use:   "miner",
		Short: "Display the raw miner output capture",
		RunE: func(cmd *cobra.Command, args []string) error {
			source := string(logs.SourceMiner)
			if stderrCapture {
				source = string(logs.SourceMinerStderr)
			}
			return tailSource(cmd, ctx, source, lines, follow)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&lines, "lines", "n", 10, "Number of lines to show (0 for all)")
	cmd.Flags().BoolVar(&stderrCapture, "stderr", false, "Show the stderr capture instead of stdout")
	return cmd
}

func newLogsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rotated supervisor log files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			files, err := logs.ListRotated(cfg.Paths.LogDir)
			if err != nil {
				return fmt.Errorf("list logs: %w", err)
			}
			stdout := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintln(stdout, "No log files found")
				return nil
			}
			rows := make([][]string, 0, len(files))
			for _, file := range files {
				rows = append(rows, []string{
					file.Path,
					fmt.Sprintf("%d", file.Size),
					file.Modified.Format("2006-01-02 15:04:05"),
				})
			}
			table := renderTable([]string{"Path", "Bytes", "Modified"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft})
			fmt.Fprintln(stdout, table)
			return nil
		},
	}
}

// tailSource streams log lines via the daemon when it is reachable and falls
// back to reading the file directly when it is not.
func tailSource(cmd *cobra.Command, ctx *commandContext, source string, lines int, follow bool) error {
	initialLimit := lines
	if initialLimit < 0 {
		initialLimit = 0
	}
	initialOffset := int64(-1)
	if initialLimit == 0 {
		initialOffset = 0
	}

	client, dialErr := ctx.dialClient()
	if dialErr != nil {
		return tailLocal(cmd, ctx, source, initialOffset, initialLimit, follow)
	}
	defer client.Close()

	cmdCtx := cmd.Context()
	offset := initialOffset
	limit := initialLimit
	printed := false

	for {
		req := ipc.LogTailRequest{
			Source:     source,
			Offset:     offset,
			Limit:      limit,
			Follow:     follow,
			WaitMillis: 1000,
		}
		resp, err := client.LogTail(req)
		if err != nil {
			return fmt.Errorf("tail logs: %w", err)
		}
		if resp == nil {
			return errors.New("log tail response missing")
		}
		for _, line := range resp.Lines {
			fmt.Fprintln(cmd.OutOrStdout(), line)
			printed = true
		}
		offset = resp.Offset
		limit = 0
		if !follow {
			if !printed {
				fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
			}
			return nil
		}
		select {
		case <-cmdCtx.Done():
			return nil
		default:
		}
	}
}

// tailLocal reads the log file in place so `oreminer logs` keeps working
// while the daemon is down.
func tailLocal(cmd *cobra.Command, ctx *commandContext, source string, offset int64, limit int, follow bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	parsed, err := logs.ParseSource(source)
	if err != nil {
		return err
	}
	path := logs.ResolvePath(cfg, parsed, "")

	cmdCtx := cmd.Context()
	printed := false
	for {
		result, err := logs.Tail(cmdCtx, path, logs.TailOptions{
			Offset: offset,
			Limit:  limit,
			Follow: follow,
			Wait:   time.Second,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("tail logs: %w", err)
		}
		for _, line := range result.Lines {
			fmt.Fprintln(cmd.OutOrStdout(), line)
			printed = true
		}
		offset = result.Offset
		limit = 0
		if !follow {
			if !printed {
				fmt.Fprintln(cmd.OutOrStdout(), "No log entries available")
			}
			return nil
		}
		select {
		case <-cmdCtx.Done():
			return nil
		default:
		}
	}
}
