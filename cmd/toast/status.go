package main

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/core"
	"github.com/jmylchreest/toastd/internal/dbus"
	"github.com/jmylchreest/toastd/internal/model"
)

var statusOpts struct {
	plain bool
}

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text       string `json:"text"`
	Alt        string `json:"alt,omitempty"`
	Tooltip    string `json:"tooltip,omitempty"`
	Class      string `json:"class,omitempty"`
	Percentage int    `json:"percentage,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Output Waybar-compatible JSON status",
	Long: `Output the active toasts in Waybar's custom module JSON format.

This is designed to be used with Waybar's custom module:

  "custom/toasts": {
    "exec": "toast status",
    "interval": 2,
    "return-type": "json",
    "on-click": "toast tui",
    "on-click-right": "toast dismiss --all"
  }

The output includes:
  - text: Number of active toasts
  - alt, class: The most severe active kind (error, warning, info, success),
    "empty" when nothing is showing or "offline" when the daemon is not running
  - tooltip: Breakdown by kind and the daemon version

A missing daemon is not an error, so the bar module stays quiet.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusOpts.plain, "plain", false,
		"Print the tooltip text instead of JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	var status WaybarStatus

	err := withClient(cmd, func(ctx context.Context, client *dbus.Client) error {
		toasts, err := client.List(ctx)
		if err != nil {
			return err
		}
		info, err := client.ServerInformation(ctx)
		if err != nil {
			logger.Debug("server information unavailable", "error", err)
		}
		status = generateStatus(toasts, info)
		return nil
	})
	if err != nil {
		logger.Debug("daemon unavailable", "error", err)
		status = WaybarStatus{Alt: "offline", Tooltip: "toastd is not running", Class: "offline"}
	}

	out := cmd.OutOrStdout()
	if statusOpts.plain {
		_, err := fmt.Fprintln(out, status.Tooltip)
		return err
	}
	return outputStatus(out, status)
}

// generateStatus summarises the active toasts.
func generateStatus(toasts []model.Notification, info dbus.ServerInfo) WaybarStatus {
	footer := ""
	if info.Version != "" {
		footer = fmt.Sprintf("\n%s %s", info.Name, info.Version)
	}

	if len(toasts) == 0 {
		return WaybarStatus{
			Text:    "",
			Alt:     "empty",
			Tooltip: "No toasts" + footer,
			Class:   "empty",
		}
	}

	counts := make(map[model.Kind]int)
	top := toasts[0].Kind
	for _, n := range toasts {
		counts[n.Kind]++
		if core.Severity(n.Kind) > core.Severity(top) {
			top = n.Kind
		}
	}

	return WaybarStatus{
		Text:       fmt.Sprintf("%d", len(toasts)),
		Alt:        string(top),
		Tooltip:    buildKindTooltip(len(toasts), counts) + footer,
		Class:      string(top),
		Percentage: min(len(toasts), 100),
	}
}

// buildKindTooltip lists the count per kind, most severe first.
func buildKindTooltip(total int, counts map[model.Kind]int) string {
	lines := []string{fmt.Sprintf("%d active", total)}

	kinds := model.Kinds()
	slices.SortStableFunc(kinds, func(a, b model.Kind) int {
		return cmp.Compare(core.Severity(b), core.Severity(a))
	})
	for _, k := range kinds {
		if counts[k] > 0 {
			lines = append(lines, fmt.Sprintf("%s: %d", strings.ToUpper(string(k[:1]))+string(k[1:]), counts[k]))
		}
	}
	return strings.Join(lines, "\n")
}

// outputStatus writes the status as JSON.
func outputStatus(w io.Writer, status WaybarStatus) error {
	return json.NewEncoder(w).Encode(status)
}
