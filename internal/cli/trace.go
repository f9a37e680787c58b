package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/pairs/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string // optional - show one session's turns
}

// SessionRow is one line of the session listing.
type SessionRow struct {
	ID        string    `json:"id"`
	Rows      int       `json:"rows"`
	Cols      int       `json:"cols"`
	Pairs     int       `json:"pairs"`
	Turns     int       `json:"turns"`
	Won       bool      `json:"won"`
	StartedAt time.Time `json:"started_at"`
}

// TurnEvent is one judged pair in a session timeline.
type TurnEvent struct {
	Turn    int    `json:"turn"`
	CardA   int    `json:"card_a"`
	CardB   int    `json:"card_b"`
	FaceA   string `json:"face_a"`
	FaceB   string `json:"face_b"`
	Matched bool   `json:"matched"`
	Matches int    `json:"matches"`
}

// TraceResult holds one session's transcript.
type TraceResult struct {
	Session  SessionRow  `json:"session"`
	Timeline []TurnEvent `json:"timeline"`
	Stats    TraceStats  `json:"stats"`
}

// TraceStats holds summary statistics for a session.
type TraceStats struct {
	Turns      int    `json:"turns"`
	Matches    int    `json:"matches"`
	Mismatches int    `json:"mismatches"`
	Won        bool   `json:"won"`
	Message    string `json:"message,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show recorded games",
		Long: `Show games recorded with --db.

Without --session every recorded session is listed, oldest first. With
--session the session's turns are shown in order, followed by its stats.

Examples:
  pairs trace --db ./pairs.db
  pairs trace --db ./pairs.db --session 0192f3c4-...
  pairs trace --db ./pairs.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session to trace")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Session == "" {
		formatter.VerboseLog("listing sessions in %s", opts.Database)
		return listSessions(ctx, st, opts, cmd)
	}

	formatter.VerboseLog("reading session %s from %s", opts.Session, opts.Database)
	sum, err := st.ReadSession(ctx, opts.Session)
	if errors.Is(err, store.ErrSessionNotFound) {
		_ = formatter.Error("E_NOT_FOUND", "session not found", opts.Session)
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	turns, err := st.ReadTurns(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read turns", err)
	}

	result := buildTrace(sum, turns)
	if opts.Format == "json" {
		return outputTraceJSON(cmd, result, result.Session.ID)
	}
	return outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
}

func listSessions(ctx context.Context, st *store.Store, opts *TraceOptions, cmd *cobra.Command) error {
	summaries, err := st.ListSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	rows := make([]SessionRow, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, sessionRow(s))
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, rows, "")
	}

	w := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return nil
	}
	for _, r := range rows {
		outcome := "unfinished"
		if r.Won {
			outcome = "won"
		}
		fmt.Fprintf(w, "%s  %d×%d  %d turns  %s\n", r.ID, r.Rows, r.Cols, r.Turns, outcome)
	}
	return nil
}

func sessionRow(s store.Summary) SessionRow {
	return SessionRow{
		ID:        s.ID,
		Rows:      s.Rows,
		Cols:      s.Cols,
		Pairs:     s.Pairs,
		Turns:     s.Turns,
		Won:       s.Won,
		StartedAt: s.StartedAt,
	}
}

// buildTrace turns a stored session into a timeline plus stats.
func buildTrace(sum store.Summary, turns []store.Turn) TraceResult {
	result := TraceResult{
		Session:  sessionRow(sum),
		Timeline: make([]TurnEvent, 0, len(turns)),
		Stats:    TraceStats{Turns: len(turns), Won: sum.Won},
	}
	if sum.Win != nil {
		result.Stats.Message = sum.Win.Message
	}

	for _, t := range turns {
		result.Timeline = append(result.Timeline, TurnEvent{
			Turn:    t.Turn,
			CardA:   t.CardA,
			CardB:   t.CardB,
			FaceA:   t.FaceA,
			FaceB:   t.FaceB,
			Matched: t.Matched,
			Matches: t.Matches,
		})
		if t.Matched {
			result.Stats.Matches++
		} else {
			result.Stats.Mismatches++
		}
	}
	return result
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, data any, session string) error {
	response := CLIResponse{
		Status:  "ok",
		Data:    data,
		Session: session,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	s := result.Session
	fmt.Fprintf(w, "Trace for Session: %s\n", s.ID)
	fmt.Fprintf(w, "Board: %d×%d, %d pairs\n", s.Rows, s.Cols, s.Pairs)
	if verbose {
		fmt.Fprintf(w, "Started: %s\n", s.StartedAt.Format(time.RFC3339))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no turns)")
	}
	for _, t := range result.Timeline {
		verdict := "miss"
		if t.Matched {
			verdict = "match"
		}
		fmt.Fprintf(w, "  [%d] %d:%s %d:%s %s (%d/%d)\n",
			t.Turn, t.CardA, t.FaceA, t.CardB, t.FaceB, verdict, t.Matches, s.Pairs)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Turns:      %d\n", result.Stats.Turns)
	fmt.Fprintf(w, "  Matches:    %d\n", result.Stats.Matches)
	fmt.Fprintf(w, "  Mismatches: %d\n", result.Stats.Mismatches)
	if result.Stats.Won {
		fmt.Fprintf(w, "  Result:     %s\n", result.Stats.Message)
	} else {
		fmt.Fprintln(w, "  Result:     unfinished")
	}
	return nil
}
