package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/pairs/internal/card"
	"github.com/roach88/pairs/internal/engine"
	"github.com/roach88/pairs/internal/shuffle"
	"github.com/roach88/pairs/internal/store"
	"github.com/roach88/pairs/internal/testutil"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Rows     int
	Cols     int
	Games    int
	Seed     uint64
	Database string
	Preset   string

	// SessionIDs overrides the session ID generator (for testing).
	SessionIDs engine.SessionIDGenerator
}

// GameResult is the outcome of one simulated game.
type GameResult struct {
	Game    int    `json:"game"`
	Session string `json:"session"`
	Turns   int    `json:"turns"`
	Pairs   int    `json:"pairs"`
	Won     bool   `json:"won"`
}

// SimulateResult holds every game plus aggregates.
type SimulateResult struct {
	Rows      int          `json:"rows"`
	Cols      int          `json:"cols"`
	Games     []GameResult `json:"games"`
	Won       int          `json:"won"`
	MeanTurns float64      `json:"mean_turns"`
	Best      int          `json:"best"`
	Worst     int          `json:"worst"`
}

// String renders the text report.
func (r SimulateResult) String() string {
	var b strings.Builder
	for _, g := range r.Games {
		outcome := "won"
		if !g.Won {
			outcome = "unfinished"
		}
		fmt.Fprintf(&b, "game %d: %d turns for %d pairs (%s)\n", g.Game, g.Turns, g.Pairs, outcome)
	}
	fmt.Fprintf(&b, "\n%d×%d: %d/%d won, mean %.2f turns, best %d, worst %d\n",
		r.Rows, r.Cols, r.Won, len(r.Games), r.MeanTurns, r.Best, r.Worst)
	return b.String()
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Let a perfect-memory bot play",
		Long: `Play whole games with a bot that never forgets a card it has seen.

Games run on a virtual clock, so thousands finish in moments. Game i is
shuffled with seed+i, which makes a seeded run repeatable.

Exit codes:
  0 - Every game was won
  1 - A game could not be finished
  2 - Command error (bad config, database errors)

Examples:
  pairs simulate --games 100
  pairs simulate --rows 6 --cols 6 --seed 1 --format json
  pairs simulate --preset 2x4 --games 50
  pairs simulate --games 10 --db ./pairs.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Rows, "rows", 0, "board rows (default from config)")
	cmd.Flags().IntVar(&opts.Cols, "cols", 0, "board columns (default from config)")
	cmd.Flags().IntVar(&opts.Games, "games", 1, "number of games")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "base shuffle seed (random when unset)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the games to this SQLite database")
	cmd.Flags().StringVar(&opts.Preset, "preset", "", "board preset: 2x2, 2x4 or 4x4 (--rows/--cols override)")

	return cmd
}

func runSimulate(opts *SimulateOptions, cmd *cobra.Command) error {
	if opts.Games < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--games must be at least 1, got %d", opts.Games))
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	rows, cols, err := sizeFor(cfg, opts.Preset, opts.Rows, opts.Cols)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var recorder engine.Recorder
	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.DB
	}
	if dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		recorder = st
	}

	sessions := opts.SessionIDs
	if sessions == nil {
		sessions = engine.UUIDv7Generator{}
	}
	seeded := cmd.Flags().Changed("seed")

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	result := SimulateResult{Rows: rows, Cols: cols}
	total := 0
	for i := 0; i < opts.Games; i++ {
		src := shuffle.Default()
		if seeded {
			src = shuffle.NewSource(opts.Seed + uint64(i))
		}

		timers := testutil.NewManualTimers()
		engineOpts := []engine.EngineOption{
			engine.WithTiming(cfg.Timing()),
			engine.WithTimers(timers),
			engine.WithSource(src),
			engine.WithSessionIDs(sessions),
		}
		if recorder != nil {
			engineOpts = append(engineOpts, engine.WithRecorder(recorder))
		}

		g := playBot(ctx, engine.New(cfg.Pool(), engineOpts...), timers, rows, cols)
		g.Game = i + 1
		formatter.VerboseLog("game %d: session %s, %d turns, won %t", g.Game, g.Session, g.Turns, g.Won)

		result.Games = append(result.Games, g)
		total += g.Turns
		if g.Won {
			result.Won++
		}
		if i == 0 || g.Turns < result.Best {
			result.Best = g.Turns
		}
		if g.Turns > result.Worst {
			result.Worst = g.Turns
		}
	}
	result.MeanTurns = float64(total) / float64(len(result.Games))

	if err := formatter.Success(result); err != nil {
		return err
	}

	if result.Won < len(result.Games) {
		return NewExitError(ExitFailure, fmt.Sprintf("%d game(s) unfinished", len(result.Games)-result.Won))
	}
	return nil
}

// playBot deals a board on a virtual clock and plays it out with perfect
// memory: a known pair is taken straight away, otherwise an unseen card is
// turned and matched from memory when possible.
func playBot(ctx context.Context, eng *engine.Engine, timers *testutil.ManualTimers, rows, cols int) GameResult {
	eng.BuildBoard(rows, cols)
	testutil.Settle(ctx, eng, timers)

	snap := eng.Snapshot()
	res := GameResult{Session: snap.Session, Pairs: snap.PairsNeeded}
	if snap.PairsNeeded == 0 {
		return res
	}

	seen := make(map[int]card.FaceID)
	flip := func(i int) card.FaceID {
		eng.SelectCard(snap.Ref(i))
		testutil.Settle(ctx, eng, timers)
		s := eng.Snapshot()
		if f := s.Cards[i].Visible; f != card.HiddenFace {
			seen[i] = f
		}
		return seen[i]
	}

	// Every turn either matches or reveals at least one new card.
	limit := 2 * len(snap.Cards)
	for turn := 0; turn < limit && !snap.Won; turn++ {
		a, b, ok := knownPair(snap, seen)
		if ok {
			flip(a)
			flip(b)
		} else {
			a = firstUnseen(snap, seen, -1)
			if a < 0 {
				break
			}
			b = -1
			if face := flip(a); face != card.HiddenFace {
				b = partnerOf(snap, seen, a, face)
			}
			if b < 0 {
				b = firstUnseen(snap, seen, a)
			}
			if b < 0 {
				break
			}
			flip(b)
		}
		snap = eng.Snapshot()
	}

	res.Turns = snap.Turns
	res.Won = snap.Won
	return res
}

// knownPair finds two remembered, unmatched cards with the same face.
func knownPair(s engine.Snapshot, seen map[int]card.FaceID) (int, int, bool) {
	first := make(map[card.FaceID]int)
	for i, v := range s.Cards {
		f, ok := seen[i]
		if !ok || v.Matched {
			continue
		}
		if j, ok := first[f]; ok {
			return j, i, true
		}
		first[f] = i
	}
	return 0, 0, false
}

// partnerOf returns a remembered, unmatched card other than a with face f,
// or -1.
func partnerOf(s engine.Snapshot, seen map[int]card.FaceID, a int, f card.FaceID) int {
	for i, v := range s.Cards {
		if i != a && !v.Matched && seen[i] == f {
			return i
		}
	}
	return -1
}

// firstUnseen returns the lowest-index card never seen, skipping skip,
// or -1.
func firstUnseen(s engine.Snapshot, seen map[int]card.FaceID, skip int) int {
	for i, v := range s.Cards {
		if _, ok := seen[i]; !ok && i != skip && !v.Matched {
			return i
		}
	}
	return -1
}
