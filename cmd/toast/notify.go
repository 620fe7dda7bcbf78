package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/adapter/input"
	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/core"
	"github.com/jmylchreest/toastd/internal/dbus"
)

var notifyOpts struct {
	kind     string
	duration string
	sticky   bool
	actions  []string
	stdin    bool
	wait     bool
}

var notifyCmd = &cobra.Command{
	Use:   "notify <message>",
	Short: "Post a toast and print its id",
	Long: `Post a toast to the running daemon and print its id.

Kinds are success (default), error, info and warning. Without --duration the
daemon's default applies; --sticky toasts stay until dismissed.

With --wait, toast blocks until the toast closes. It then prints the key of
the invoked action, or the close reason.

With --stdin, requests are read from standard input: a JSON array, one JSON
object per line, or plain text lines (one success toast each).

Examples:
  toast notify "Saved report.pdf"
  toast notify --kind error --sticky "Disk almost full"
  toast notify --action undo=Undo --wait "Deleted 3 files"
  echo '{"message": "Build done", "kind": "info", "duration": "3s"}' | toast notify --stdin`,
	Args: func(cmd *cobra.Command, args []string) error {
		if notifyOpts.stdin {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.MinimumNArgs(1)(cmd, args)
	},
	RunE: runNotify,
}

func init() {
	rootCmd.AddCommand(notifyCmd)

	notifyCmd.Flags().StringVarP(&notifyOpts.kind, "kind", "k", "",
		"Toast kind (success, error, info, warning)")
	notifyCmd.Flags().StringVarP(&notifyOpts.duration, "duration", "d", "",
		"Time on screen (e.g. 3s, 1500ms; default from config)")
	notifyCmd.Flags().BoolVar(&notifyOpts.sticky, "sticky", false,
		"Never expire; stay until dismissed")
	notifyCmd.Flags().StringArrayVarP(&notifyOpts.actions, "action", "a", nil,
		"Action button as key=label (repeatable; the first is primary)")
	notifyCmd.Flags().BoolVar(&notifyOpts.stdin, "stdin", false,
		"Read requests from standard input")
	notifyCmd.Flags().BoolVarP(&notifyOpts.wait, "wait", "w", false,
		"Wait for the toast to close and print the action key or reason")
}

func runNotify(cmd *cobra.Command, args []string) error {
	requests, err := notifyRequests(cmd, args)
	if err != nil {
		return err
	}
	if len(requests) == 0 {
		logger.Debug("no requests to post")
		return nil
	}
	if notifyOpts.wait && len(requests) > 1 {
		return errors.New("--wait needs a single toast")
	}

	client, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer client.Close()

	var watcher *dbus.Watcher
	if notifyOpts.wait {
		if watcher, err = client.Watch(); err != nil {
			return err
		}
		defer watcher.Close()
	}

	out := cmd.OutOrStdout()
	var lastID string
	for _, r := range requests {
		id, err := postRequest(cmd.Context(), client, r)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, id)
		lastID = id
	}

	if watcher == nil {
		return nil
	}
	closed, err := watcher.Wait(cmd.Context(), lastID)
	if err != nil {
		return err
	}
	if closed.ActionKey != "" {
		fmt.Fprintln(out, closed.ActionKey)
	} else {
		fmt.Fprintln(out, closed.Reason)
	}
	return nil
}

// notifyRequests builds the requests from stdin or from the flags. Durations
// the bus cannot carry are rejected rather than shortened.
func notifyRequests(cmd *cobra.Command, args []string) ([]input.Request, error) {
	reqs, err := readRequests(cmd, args)
	if err != nil {
		return nil, err
	}
	for i, r := range reqs {
		if d := r.Duration.Duration(); d > dbus.MaxDuration {
			return nil, fmt.Errorf("request %d: duration %s exceeds the maximum of %s", i+1, d, dbus.MaxDuration)
		}
	}
	return reqs, nil
}

func readRequests(cmd *cobra.Command, args []string) ([]input.Request, error) {
	if notifyOpts.stdin {
		return input.NewStdinReaderWithReader(cmd.InOrStdin()).Read(cmd.Context())
	}

	r := input.Request{
		Message: strings.Join(args, " "),
		Kind:    notifyOpts.kind,
		Sticky:  notifyOpts.sticky,
	}
	if notifyOpts.duration != "" {
		d, err := core.ParseDuration(notifyOpts.duration)
		if err != nil {
			return nil, fmt.Errorf("invalid --duration: %w", err)
		}
		r.Duration = config.Duration(d)
	}
	for _, a := range notifyOpts.actions {
		spec, err := input.ParseActionSpec(a)
		if err != nil {
			return nil, err
		}
		r.Actions = append(r.Actions, spec)
	}
	return []input.Request{r}, nil
}

func postRequest(ctx context.Context, client *dbus.Client, r input.Request) (string, error) {
	kind, err := r.ParsedKind()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	return client.Notify(ctx, r.Message, kind, r.Duration.Duration(), r.Sticky, r.ActionPairs())
}
