package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/orderindex/internal/config"
	"github.com/Aman-CERP/orderindex/internal/logging"
	"github.com/Aman-CERP/orderindex/internal/ui"
)

func newLogsCmd() *cobra.Command {
	var (
		lines   int
		level   string
		event   string
		pattern string
		file    string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log entries",
		Long: `Print the last entries of the orderindex log file, optionally filtered by
level, event name or a regular expression.`,
		Example: `  # Last 50 entries
  orderindex logs

  # Failed recomputes only
  orderindex logs --event index_recompute_failed

  # Warnings and errors from the last 500 lines
  orderindex logs -n 500 --level warn`,
		Annotations: map[string]string{annotationNoConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if lines <= 0 {
				return fmt.Errorf("-n must be positive")
			}
			if file == "" {
				file = config.ResolvePath(projectRoot, activeConfig.Logging.File)
			}
			path, err := logging.FindLogFile(file)
			if err != nil {
				return err
			}

			vc := logging.ViewerConfig{
				Level:   level,
				Event:   event,
				NoColor: noColor || ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout()),
			}
			if pattern != "" {
				re, err := regexp.Compile(pattern)
				if err != nil {
					return fmt.Errorf("invalid --grep pattern: %w", err)
				}
				vc.Pattern = re
			}

			viewer := logging.NewViewer(vc, cmd.OutOrStdout())
			entries, err := viewer.Tail(path, lines)
			if err != nil {
				return err
			}
			viewer.Print(entries)
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of log lines to read")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level: debug, info, warn, error")
	cmd.Flags().StringVar(&event, "event", "", "Only entries with this event name")
	cmd.Flags().StringVar(&pattern, "grep", "", "Only lines matching this regular expression")
	cmd.Flags().StringVar(&file, "file", "", "Log file (default from logging.file)")

	return cmd
}
