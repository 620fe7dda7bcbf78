package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/core"
	"github.com/jmylchreest/toastd/internal/dbus"
)

var dismissOpts struct {
	all bool
}

var dismissCmd = &cobra.Command{
	Use:   "dismiss <id>...",
	Short: "Dismiss toasts",
	Long: `Dismiss toasts by id, or every toast with --all.

Ids may also be lines of 'toast list --format dmenu' output, so a picker can
feed its selection straight back:

  toast list --format dmenu | fuzzel -d | xargs -d '\n' toast dismiss

Dismissing a toast that already closed is not an error.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if dismissOpts.all {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: runDismiss,
}

var invokeCmd = &cobra.Command{
	Use:   "invoke <id> <action-key>",
	Short: "Invoke a toast's action",
	Long: `Invoke one of a toast's actions by key. The toast closes afterwards.

An action runs at most once: invoking it again, or invoking another action on
the same toast, reports that the toast is gone.`,
	Args: cobra.ExactArgs(2),
	RunE: runInvoke,
}

func init() {
	rootCmd.AddCommand(dismissCmd)
	rootCmd.AddCommand(invokeCmd)

	dismissCmd.Flags().BoolVar(&dismissOpts.all, "all", false,
		"Dismiss every active toast")
}

func runDismiss(cmd *cobra.Command, args []string) error {
	return withClient(cmd, func(ctx context.Context, client *dbus.Client) error {
		if dismissOpts.all {
			n, err := client.DismissAll(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dismissed %d toast(s)\n", n)
			return nil
		}

		for _, arg := range args {
			id := core.ParseSelection(arg)
			removed, err := client.Dismiss(ctx, id)
			if err != nil {
				return err
			}
			if !removed {
				logger.Warn("toast not active", "id", id)
			}
		}
		return nil
	})
}

func runInvoke(cmd *cobra.Command, args []string) error {
	id, key := core.ParseSelection(args[0]), args[1]
	return withClient(cmd, func(ctx context.Context, client *dbus.Client) error {
		invoked, err := client.InvokeAction(ctx, id, key)
		if err != nil {
			return err
		}
		if !invoked {
			return fmt.Errorf("toast %s is not active or has no action %q", id, key)
		}
		return nil
	})
}
