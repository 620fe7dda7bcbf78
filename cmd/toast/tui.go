package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/theme"
	"github.com/jmylchreest/toastd/internal/tui"
)

var tuiOpts struct {
	theme string
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive toast browser",
	Long: `Launch the interactive terminal browser for the active toasts.

The list follows the daemon live, newest first, with a countdown for each
toast that will expire.

Key bindings:
  j/k, ↑/↓    Navigate list
  enter       Invoke the primary action
  1-9         Invoke the Nth action
  d, x        Dismiss the selected toast
  D           Dismiss every toast
  c           Copy the message to the clipboard
  /           Search toasts
  r           Refresh
  ?           Show help
  q           Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "List the available TUI themes",
	Long: `List the bundled TUI themes and those in the user themes directory
(~/.config/toastd/themes/). A user theme with a bundled theme's name
replaces it and may extend it:

  # ~/.config/toastd/themes/default.toml
  extends = "default"

  [kinds.error]
  color = "#ff5555"`,
	Args: cobra.NoArgs,
	RunE: runThemes,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(themesCmd)

	for _, cmd := range []*cobra.Command{rootCmd, tuiCmd, demoCmd} {
		cmd.Flags().StringVar(&tuiOpts.theme, "theme", "",
			"TUI theme name or .toml path (default from config)")
	}
}

// loadTheme resolves the --theme flag or the configured theme. A theme that
// fails to load falls back to the bundled default.
func loadTheme() *theme.Theme {
	name := tuiOpts.theme
	if name == "" {
		name = cfg.TUI.Theme
	}

	t, err := theme.Load(name, config.ThemesDir())
	if err != nil {
		logger.Warn("failed to load theme, using default", "theme", name, "error", err)
		return theme.Default()
	}
	return t
}

func tuiOptions(source tui.Source) tui.Options {
	return tui.Options{
		Source:           source,
		ClipboardCommand: cfg.TUI.ClipboardCommand,
		RefreshInterval:  cfg.TUI.RefreshInterval.Duration(),
		Theme:            loadTheme(),
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	client, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer client.Close()

	return tui.Run(cmd.Context(), tuiOptions(client))
}

func runThemes(cmd *cobra.Command, args []string) error {
	themes, err := theme.List(config.ThemesDir())
	if err != nil {
		logger.Warn("failed to read themes directory", "error", err)
	}

	current := cfg.TUI.Theme
	if current == "" {
		current = theme.DefaultThemeName
	}

	out := cmd.OutOrStdout()
	for _, info := range themes {
		marker := " "
		if info.Name == current {
			marker = "*"
		}
		origin := "bundled"
		if info.Path != "" {
			origin = info.Path
		}
		fmt.Fprintf(out, "%s %-12s %s\n", marker, info.Name, origin)
	}
	return nil
}
