package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/adapter/output"
	"github.com/jmylchreest/toastd/internal/dbus"
	"github.com/jmylchreest/toastd/internal/model"
)

// outputFlags are shared by the commands that print toasts.
type outputFlags struct {
	format   string
	field    string
	template string
}

func (o *outputFlags) register(cmd *cobra.Command, defaultFormat string) {
	formats := make([]string, 0, len(output.FormatTypes()))
	for _, f := range output.FormatTypes() {
		formats = append(formats, string(f))
	}

	cmd.Flags().StringVarP(&o.format, "format", "f", defaultFormat,
		"Output format ("+strings.Join(formats, ", ")+")")
	cmd.Flags().StringVar(&o.field, "field", "",
		"Output a single field per toast (id, kind, message, source, actions, created, expires, closed, reason, action_key)")
	cmd.Flags().StringVar(&o.template, "template", "",
		"Custom Go template for plain and dmenu output")
}

// formatter builds the formatter, falling back to the configured templates.
func (o *outputFlags) formatter() (output.Formatter, error) {
	format, err := output.ParseFormatType(o.format)
	if err != nil {
		return nil, err
	}

	opts := output.DefaultFormatterOptions()
	opts.Template = o.template
	if opts.Template == "" && cfg != nil {
		switch format {
		case output.FormatDmenu:
			opts.Template = cfg.Templates.Dmenu
		case output.FormatPlain:
			opts.Template = cfg.Templates.Plain
		}
	}
	return output.NewFormatter(format, opts), nil
}

// write prints rows as a single field each, or through the formatter.
func (o *outputFlags) write(w io.Writer, rows []output.Row) error {
	if o.field != "" {
		for _, r := range rows {
			fmt.Fprintln(w, output.FormatField(r, o.field))
		}
		return nil
	}

	f, err := o.formatter()
	if err != nil {
		return err
	}
	return f.Format(w, rows)
}

var listOpts struct {
	outputFlags
	kind string
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the active toasts, newest first",
	Long: `List the toasts currently on screen, newest first.

Examples:
  toast list
  toast list --format json
  toast list --kind error --format ids
  toast list --format dmenu | fuzzel -d | xargs -d '\n' toast dismiss`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listOpts.register(listCmd, string(output.FormatPlain))
	listCmd.Flags().StringVar(&listOpts.kind, "kind", "",
		"Only toasts of this kind")
}

func runList(cmd *cobra.Command, args []string) error {
	var kind model.Kind
	if listOpts.kind != "" {
		k, err := model.ParseKind(listOpts.kind)
		if err != nil {
			return err
		}
		kind = k
	}

	return withClient(cmd, func(ctx context.Context, client *dbus.Client) error {
		toasts, err := client.List(ctx)
		if err != nil {
			return err
		}

		if kind != "" {
			filtered := toasts[:0]
			for _, n := range toasts {
				if n.Kind == kind {
					filtered = append(filtered, n)
				}
			}
			toasts = filtered
		}

		return listOpts.write(cmd.OutOrStdout(), output.ActiveRows(toasts))
	})
}
