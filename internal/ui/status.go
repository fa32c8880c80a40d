package ui

import (
	"encoding/json"
	"fmt"
	"io"
)

// StatusInfo describes the index and the last bulk run.
type StatusInfo struct {
	Database          string `json:"database"`
	DatabaseSize      int64  `json:"database_size"`
	Records           int    `json:"records"`
	OrderRows         int    `json:"order_rows"`
	SubscriptionRows  int    `json:"subscription_rows"`
	LastRun           string `json:"last_run"`
	KillSwitch        bool   `json:"kill_switch"`
	CheckpointBatches int    `json:"checkpoint_batches"`
	CheckpointID      int64  `json:"checkpoint_id,omitempty"`
	Locked            bool   `json:"locked"`
}

// StatusRenderer displays index status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// Render displays status info to terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Order Index: "+info.Database))

	_, _ = fmt.Fprintf(r.out, "  Records:        %d\n", info.Records)
	_, _ = fmt.Fprintf(r.out, "  Order rows:     %d\n", info.OrderRows)
	_, _ = fmt.Fprintf(r.out, "  Subscriptions:  %d\n", info.SubscriptionRows)
	_, _ = fmt.Fprintf(r.out, "  Size:           %s\n", FormatBytes(info.DatabaseSize))
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Bulk reindex:")
	lastRun := info.LastRun
	if lastRun == "" {
		lastRun = r.styles.Dim.Render("never run")
	}
	_, _ = fmt.Fprintf(r.out, "    Last status: %s\n", lastRun)
	_, _ = fmt.Fprintf(r.out, "    State:       %s\n", r.renderState(info))
	if info.CheckpointBatches > 0 {
		_, _ = fmt.Fprintf(r.out, "    Resumable:   %d batches done, next below record %d\n",
			info.CheckpointBatches, info.CheckpointID)
	}

	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func (r *StatusRenderer) renderState(info StatusInfo) string {
	switch {
	case info.Locked && info.KillSwitch:
		return r.styles.Warning.Render("stopping")
	case info.Locked:
		return r.styles.Success.Render("running")
	case info.KillSwitch:
		return r.styles.Warning.Render("killed")
	default:
		return "idle"
	}
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
