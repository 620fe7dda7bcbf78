package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/audio"
	"github.com/jmylchreest/toastd/internal/center"
	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/tui"
)

var demoOpts struct {
	noSound bool
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Try the TUI against an in-process center",
	Long: `Run a private notification center seeded with sample toasts and open the
TUI on it. No daemon is needed and nothing is written to history.

The samples cover every kind: a sticky error with a retry action, an undoable
delete, and toasts that arrive while the TUI is open.`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().BoolVar(&demoOpts.noSound, "no-sound", false,
		"Do not play the configured sounds")
}

// demoToast is a sample posted delay after the demo starts.
type demoToast struct {
	delay   time.Duration
	message string
	kind    model.Kind
	opts    model.Options
}

// demoScript returns the samples for c. Action effects post follow-up toasts
// back into c.
func demoScript(c *center.Center) []demoToast {
	post := func(message string, kind model.Kind) func() {
		return func() {
			if _, err := c.Notify(message, kind, model.Options{Source: "demo"}); err != nil {
				logger.Debug("demo follow-up dropped", "error", err)
			}
		}
	}

	return []demoToast{
		{
			message: "Asset LAP-0042 checked out to Dana",
			kind:    model.KindSuccess,
			opts: model.Options{
				Duration: 8 * time.Second,
				Actions: []model.Action{
					{Key: "open", Label: "Open", Variant: model.VariantPrimary, Effect: post("Opened LAP-0042", model.KindInfo)},
				},
			},
		},
		{
			message: "Deleted 3 assets",
			kind:    model.KindInfo,
			opts: model.Options{
				Duration: 10 * time.Second,
				Actions: []model.Action{
					{Key: "undo", Label: "Undo", Variant: model.VariantPrimary, Effect: post("Restored 3 assets", model.KindSuccess)},
				},
			},
		},
		{
			message: "Sync with the asset register failed",
			kind:    model.KindError,
			opts: model.Options{
				Sticky: true,
				Actions: []model.Action{
					{Key: "retry", Label: "Retry", Variant: model.VariantPrimary, Effect: post("Sync complete", model.KindSuccess)},
					{Key: "details", Label: "Details", Variant: model.VariantSecondary, Effect: post("Register returned 503", model.KindInfo)},
				},
			},
		},
		{
			delay:   3 * time.Second,
			message: "Warranty for MON-0117 ends in 14 days",
			kind:    model.KindWarning,
			opts:    model.Options{Duration: 12 * time.Second},
		},
		{
			delay:   6 * time.Second,
			message: "Nightly inventory report is ready",
			kind:    model.KindSuccess,
		},
	}
}

// startDemo posts the samples, staggering delayed ones with timers. The
// returned function stops any that have not fired yet.
func startDemo(c *center.Center, script []demoToast) (stop func()) {
	var timers []*time.Timer
	for _, t := range script {
		fire := func() {
			t.opts.Source = "demo"
			if _, err := c.Notify(t.message, t.kind, t.opts); err != nil {
				logger.Debug("demo toast dropped", "message", t.message, "error", err)
			}
		}
		if t.delay <= 0 {
			fire()
			continue
		}
		timers = append(timers, time.AfterFunc(t.delay, fire))
	}

	return func() {
		for _, timer := range timers {
			timer.Stop()
		}
	}
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	c := center.New(logger,
		center.WithDefaultDuration(cfg.Notifications.DefaultDuration.Duration()),
		center.WithStickyKinds(cfg.StickyKinds()...),
	)
	defer c.Close()

	if !demoOpts.noSound && cfg.Audio.Enabled {
		sounds := audio.NewManager(cfg, logger)
		if err := sounds.Start(ctx); err != nil {
			logger.Warn("audio unavailable", "error", err)
		} else {
			defer sounds.Stop()
			unsubscribe := c.Subscribe(sounds.Handle)
			defer unsubscribe()
		}
	}

	stop := startDemo(c, demoScript(c))
	defer stop()

	return tui.Run(ctx, tuiOptions(tui.NewCenterSource(c)))
}
