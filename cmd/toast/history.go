package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/adapter/output"
	"github.com/jmylchreest/toastd/internal/core"
	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/store"
)

var historyOpts struct {
	outputFlags

	// Filter options
	since  string
	kind   string
	reason string
	filter string
	search string
	limit  int

	// Sort options
	sortBy    string
	sortOrder string

	follow bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query closed toasts",
	Long: `Query the history of closed toasts, most recently closed first.

Each entry records why the toast closed: expired, dismissed, action (with the
action key) or shutdown.

Filter expressions combine conditions with commas:
  kind=error                   error toasts
  reason=action,action=undo    closed by their undo button
  message~upload               message contains "upload"
  closed>1h                    closed within the last hour
  lifetime<2s                  closed within two seconds of showing

Examples:
  toast history --since 1h
  toast history --kind error --format json
  toast history --filter "reason=action" --sort lifetime --order asc
  toast history --follow`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyShowOpts struct {
	outputFlags
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id|index|dmenu line>",
	Short: "Show one history entry",
	Long: `Show a single history entry, looked up by id, by 1-based index into the
default listing, or by a line of dmenu output.

  toast history --format dmenu | fuzzel -d | toast history show --field message`,
	Args: cobra.MinimumNArgs(1),
	RunE: runHistoryShow,
}

var pruneOpts struct {
	olderThan string
	keep      int
	dryRun    bool
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old entries from history",
	Long: `Remove old entries from the history file.

A running daemon picks the change up automatically.

Examples:
  # Remove entries closed more than 7 days ago
  toast history prune --older-than 7d

  # Keep only the 100 most recent entries
  toast history prune --keep 100

  # Preview what would be removed
  toast history prune --older-than 48h --dry-run`,
	Args: cobra.NoArgs,
	RunE: runHistoryPrune,
}

var clearOpts struct {
	yes bool
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every entry from history",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClear,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPruneCmd)
	historyCmd.AddCommand(historyClearCmd)

	historyOpts.register(historyCmd, string(output.FormatPlain))
	historyCmd.Flags().StringVar(&historyOpts.since, "since", "",
		"Only entries closed within this duration (e.g. 1h, 7d, 1w)")
	historyCmd.Flags().StringVar(&historyOpts.kind, "kind", "",
		"Only entries of this kind")
	historyCmd.Flags().StringVar(&historyOpts.reason, "reason", "",
		"Only entries closed for this reason (expired, dismissed, action, shutdown)")
	historyCmd.Flags().StringVar(&historyOpts.filter, "filter", "",
		"Filter expression (see above)")
	historyCmd.Flags().StringVarP(&historyOpts.search, "search", "s", "",
		"Search messages and action keys")
	historyCmd.Flags().IntVarP(&historyOpts.limit, "limit", "n", 0,
		"Maximum number of entries (0=unlimited)")
	historyCmd.Flags().StringVar(&historyOpts.sortBy, "sort", "closed",
		"Sort by field (closed, created, kind, lifetime)")
	historyCmd.Flags().StringVar(&historyOpts.sortOrder, "order", "desc",
		"Sort order (asc, desc)")
	historyCmd.Flags().BoolVarP(&historyOpts.follow, "follow", "F", false,
		"Keep running and print entries as toasts close")

	historyShowOpts.register(historyShowCmd, string(output.FormatJSON))

	historyPruneCmd.Flags().StringVar(&pruneOpts.olderThan, "older-than", "",
		"Remove entries closed more than this long ago (e.g. 48h, 7d, 1w)")
	historyPruneCmd.Flags().IntVar(&pruneOpts.keep, "keep", 0,
		"Keep only the N most recent entries (0=unlimited)")
	historyPruneCmd.Flags().BoolVar(&pruneOpts.dryRun, "dry-run", false,
		"Show what would be removed without removing it")

	historyClearCmd.Flags().BoolVarP(&clearOpts.yes, "yes", "y", false,
		"Confirm removing every entry")
}

// openHistory opens the configured history file.
func openHistory() (*store.Store, string, error) {
	path := cfg.HistoryPath()

	persistence, err := store.NewJSONLPersistence(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open history: %w", err)
	}

	s := store.NewStore(persistence)
	if err := s.Hydrate(); err != nil {
		logger.Warn("failed to hydrate history", "path", path, "error", err)
	}
	return s, path, nil
}

// historyQuery turns the flags into a store filter and a post-filter.
type historyQuery struct {
	store store.FilterOptions
	expr  *core.FilterExpr
	sort  core.SortOptions
}

func parseHistoryQuery(now time.Time) (historyQuery, error) {
	var q historyQuery

	if historyOpts.since != "" {
		d, err := core.ParseDuration(historyOpts.since)
		if err != nil {
			return q, fmt.Errorf("invalid --since: %w", err)
		}
		q.store.Since = d
	}
	if historyOpts.kind != "" {
		k, err := model.ParseKind(historyOpts.kind)
		if err != nil {
			return q, err
		}
		q.store.Kind = k
	}
	if historyOpts.reason != "" {
		r, err := model.ParseCloseReason(historyOpts.reason)
		if err != nil {
			return q, err
		}
		q.store.Reason = r
	}

	expr, err := core.ParseFilter(historyOpts.filter, now)
	if err != nil {
		return q, err
	}
	q.expr = expr

	field, _ := core.ParseSortField(historyOpts.sortBy)
	order, _ := core.ParseSortOrder(historyOpts.sortOrder)
	q.sort = core.SortOptions{Field: field, Order: order}
	return q, nil
}

// apply runs the query against s. limit applies after every filter.
func (q historyQuery) apply(s *store.Store, limit int) []model.HistoryEntry {
	entries := s.Filter(q.store)
	entries = core.FilterWithExpr(entries, q.expr)
	entries = core.Search(entries, historyOpts.search)
	core.Sort(entries, q.sort)

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func runHistory(cmd *cobra.Command, args []string) error {
	q, err := parseHistoryQuery(time.Now())
	if err != nil {
		return err
	}

	s, path, err := openHistory()
	if err != nil {
		return err
	}
	defer s.Close()

	entries := q.apply(s, historyOpts.limit)
	if err := historyOpts.write(cmd.OutOrStdout(), output.HistoryRows(entries)); err != nil {
		return err
	}

	if !historyOpts.follow {
		return nil
	}
	return followHistory(cmd, s, path, q, entries)
}

// followHistory prints entries that appear in the file after the initial
// listing, oldest first, until the command's context is done.
func followHistory(cmd *cobra.Command, s *store.Store, path string, q historyQuery, printed []model.HistoryEntry) error {
	watcher, err := store.NewFileWatcher(s, path, logger)
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return err
	}
	defer watcher.Stop()

	changes := s.Subscribe()
	defer s.Unsubscribe(changes)

	seen := make(map[string]bool, len(printed))
	for _, e := range printed {
		seen[e.ID] = true
	}

	// New entries print in the order they closed
	q.sort = core.SortOptions{Field: core.SortByClosed, Order: core.SortAsc}

	out := cmd.OutOrStdout()
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			var fresh []model.HistoryEntry
			for _, e := range q.apply(s, 0) {
				if !seen[e.ID] {
					seen[e.ID] = true
					fresh = append(fresh, e)
				}
			}
			if err := writeFollowed(out, output.HistoryRows(fresh)); err != nil {
				return err
			}
		}
	}
}

// writeFollowed prints followed rows. JSON becomes one object per line so
// the stream stays parseable.
func writeFollowed(w io.Writer, rows []output.Row) error {
	if len(rows) == 0 {
		return nil
	}
	format, err := output.ParseFormatType(historyOpts.format)
	if err != nil {
		return err
	}
	if format != output.FormatJSON || historyOpts.field != "" {
		return historyOpts.write(w, rows)
	}

	f := output.NewJSONFormatter(output.DefaultFormatterOptions())
	for _, r := range rows {
		if err := f.FormatSingle(w, r); err != nil {
			return err
		}
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	s, _, err := openHistory()
	if err != nil {
		return err
	}
	defer s.Close()

	selection := strings.Join(args, " ")
	e := core.Lookup(s.All(), selection)
	if e == nil {
		return fmt.Errorf("no history entry matches %q", selection)
	}
	return historyShowOpts.write(cmd.OutOrStdout(), output.HistoryRows([]model.HistoryEntry{*e}))
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	if pruneOpts.olderThan == "" && pruneOpts.keep == 0 {
		return errors.New("specify --older-than or --keep")
	}
	if pruneOpts.keep < 0 {
		return errors.New("--keep must not be negative")
	}

	olderThan, err := core.ParseDuration(pruneOpts.olderThan)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}

	s, _, err := openHistory()
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	if pruneOpts.dryRun {
		candidates := pruneCandidates(s.All(), olderThan, pruneOpts.keep, time.Now())
		if len(candidates) == 0 {
			fmt.Fprintln(out, "No entries to remove")
			return nil
		}
		fmt.Fprintf(out, "Would remove %d entr%s:\n", len(candidates), plural(len(candidates), "y", "ies"))
		for i, e := range candidates {
			if i >= 10 {
				fmt.Fprintf(out, "  ... and %d more\n", len(candidates)-10)
				break
			}
			fmt.Fprintf(out, "  - [%s] %s (%s, %s)\n", e.Kind, e.Message, e.Reason, humanize.Time(e.ClosedTime()))
		}
		return nil
	}

	removed, err := s.Prune(olderThan, pruneOpts.keep)
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	fmt.Fprintf(out, "Removed %d entr%s\n", removed, plural(removed, "y", "ies"))
	return nil
}

// pruneCandidates lists the entries Store.Prune would remove. entries must
// be most recently closed first.
func pruneCandidates(entries []model.HistoryEntry, olderThan time.Duration, keep int, now time.Time) []model.HistoryEntry {
	var cutoff int64
	if olderThan > 0 {
		cutoff = now.Add(-olderThan).UnixMilli()
	}

	var out []model.HistoryEntry
	kept := 0
	for _, e := range entries {
		if (cutoff > 0 && e.ClosedAt < cutoff) || (keep > 0 && kept >= keep) {
			out = append(out, e)
			continue
		}
		kept++
	}
	return out
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	s, _, err := openHistory()
	if err != nil {
		return err
	}
	defer s.Close()

	count := s.Count()
	if count > 0 && !clearOpts.yes {
		return fmt.Errorf("refusing to remove %d entr%s without --yes", count, plural(count, "y", "ies"))
	}
	if err := s.Clear(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entr%s\n", count, plural(count, "y", "ies"))
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
