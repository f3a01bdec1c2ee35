package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bamford/weave-io/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database    string
	ID          string // show a single record
	Fingerprint string // filter by statement fingerprint
}

// HistoryEntry is one recorded compilation.
type HistoryEntry struct {
	ID               string `json:"id"`
	Seq              int64  `json:"seq"`
	Source           string `json:"source,omitempty"`
	GraphFingerprint string `json:"graph_fingerprint"`
	Fingerprint      string `json:"fingerprint"`
	Fragments        int    `json:"fragments"`
	Checkpoints      int    `json:"checkpoints"`
	CompilerVersion  string `json:"compiler_version"`
}

// HistoryResult lists recorded compilations in insertion order.
type HistoryResult struct {
	Entries []HistoryEntry `json:"entries"`
	Total   int            `json:"total"`
}

func (r HistoryResult) String() string {
	if len(r.Entries) == 0 {
		return "No statements recorded."
	}
	var b strings.Builder
	for _, e := range r.Entries {
		fmt.Fprintf(&b, "%4d  %s  %-20s %2d fragment(s) %d checkpoint(s)  %s\n",
			e.Seq, e.ID, e.Source, e.Fragments, e.Checkpoints, shortFingerprint(e.Fingerprint))
	}
	fmt.Fprintf(&b, "%d statement(s)", r.Total)
	return b.String()
}

// recordView prints one record in full.
type recordView struct {
	store.Record
}

func (r recordView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "id:          %s\n", r.ID)
	fmt.Fprintf(&b, "source:      %s\n", r.Source)
	fmt.Fprintf(&b, "graph:       %s\n", r.GraphFingerprint)
	fmt.Fprintf(&b, "fingerprint: %s\n", r.Fingerprint)
	fmt.Fprintf(&b, "compiler:    %s\n", r.CompilerVersion)
	b.WriteString("\n")
	b.WriteString(r.Text)
	return b.String()
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List statements recorded in the store",
		Long: `List the statements recorded by compile --db and test --db.

Examples:
  weaveio history --db weaveio.db
  weaveio history --db weaveio.db --id 6f1c...
  weaveio history --db weaveio.db --fingerprint 3a9e... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite statement store (default from config)")
	cmd.Flags().StringVar(&opts.ID, "id", "", "show one record with its statement text")
	cmd.Flags().StringVar(&opts.Fingerprint, "fingerprint", "", "only records with this statement fingerprint")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	path := opts.dbPath(opts.Database)
	if path == "" {
		return NewExitError(ExitCommandError, "no store configured: pass --db or set [store] path")
	}
	st, err := opts.openStore(path)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	defer st.Close()

	if opts.ID != "" {
		rec, err := st.Get(ctx, opts.ID)
		if errors.Is(err, store.ErrNotFound) {
			return formatter.fail(ExitFailure, ErrCodeStore, fmt.Sprintf("no statement with id %s", opts.ID), nil)
		}
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		return formatter.Success(recordView{rec})
	}

	var records []store.Record
	if opts.Fingerprint != "" {
		records, err = st.FindByFingerprint(ctx, opts.Fingerprint)
	} else {
		records, err = st.List(ctx)
	}
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	result := HistoryResult{Entries: make([]HistoryEntry, 0, len(records))}
	for _, rec := range records {
		result.Entries = append(result.Entries, HistoryEntry{
			ID:               rec.ID,
			Seq:              rec.Seq,
			Source:           rec.Source,
			GraphFingerprint: rec.GraphFingerprint,
			Fingerprint:      rec.Fingerprint,
			Fragments:        rec.FragmentCount(),
			Checkpoints:      rec.Checkpoints,
			CompilerVersion:  rec.CompilerVersion,
		})
	}
	result.Total = len(result.Entries)
	return formatter.Success(result)
}
