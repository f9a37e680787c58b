package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/pairs/internal/audio"
	"github.com/roach88/pairs/internal/config"
	"github.com/roach88/pairs/internal/engine"
	"github.com/roach88/pairs/internal/render"
	"github.com/roach88/pairs/internal/shuffle"
	"github.com/roach88/pairs/internal/store"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Rows     int
	Cols     int
	Database string
	Seed     uint64
	Mute     bool
	Preset   string

	// SessionIDs overrides the session ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	SessionIDs engine.SessionIDGenerator
}

// boardWait bounds how long the prompt waits for a requested board.
const boardWait = 2 * time.Second

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a game on the terminal",
		Long: `Play an interactive game, reading commands from stdin.

Animations run on the wall clock, so a card selected while an earlier pair
is still resolving waits its turn.

Commands:
  select <i>     flip card i
  new <r> <c>    deal a fresh r×c board
  new <preset>   deal a preset board (2x2, 2x4, 4x4)
  clear          remove the board
  show           print the board
  wait <ms>      pause, for piped input
  quit           leave

Examples:
  pairs play
  pairs play --rows 2 --cols 3 --seed 7
  pairs play --preset 4x4
  pairs play --db ./pairs.db --mute`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Rows, "rows", 0, "board rows (default from config)")
	cmd.Flags().IntVar(&opts.Cols, "cols", 0, "board columns (default from config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the game to this SQLite database")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "shuffle seed (random when unset)")
	cmd.Flags().BoolVar(&opts.Mute, "mute", false, "do not print sound cues")
	cmd.Flags().StringVar(&opts.Preset, "preset", "", "board preset: 2x2, 2x4 or 4x4 (--rows/--cols override)")

	return cmd
}

func runPlay(opts *PlayOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	rows, cols, err := sizeFor(cfg, opts.Preset, opts.Rows, opts.Cols)
	if err != nil {
		return err
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	out := &lockedWriter{w: cmd.OutOrStdout()}

	sessions := opts.SessionIDs
	if sessions == nil {
		sessions = engine.UUIDv7Generator{}
	}
	engineOpts := []engine.EngineOption{
		engine.WithTiming(cfg.Timing()),
		engine.WithObserver(&playObserver{w: out}),
		engine.WithSessionIDs(sessions),
	}
	if cmd.Flags().Changed("seed") {
		engineOpts = append(engineOpts, engine.WithSource(shuffle.NewSource(opts.Seed)))
	}

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
		engineOpts = append(engineOpts, engine.WithRecorder(st))
	}

	if !opts.Mute {
		d := audio.NewDispatcher(audio.WriterPlayer{W: out}, cfg.AudioOptions()...)
		d.Start(ctx)
		defer d.Close()
		engineOpts = append(engineOpts, engine.WithSink(d))
	}

	eng := engine.New(cfg.Pool(), engineOpts...)

	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	eng.BuildBoard(rows, cols)
	awaitSnapshot(ctx, eng, dealt(1))
	if err := render.Board(out, eng.Snapshot()); err != nil {
		return fmt.Errorf("render board: %w", err)
	}

	err = playLoop(ctx, eng, cmd.InOrStdin(), out)

	eng.Stop()
	if runErr := <-done; runErr != nil && runErr != context.Canceled {
		return WrapExitError(ExitFailure, "engine error", runErr)
	}
	return err
}

// playLoop reads commands until quit, EOF or cancellation.
func playLoop(ctx context.Context, eng *engine.Engine, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "select", "s":
			if len(fields) != 2 {
				fmt.Fprintln(out, "usage: select <i>")
				continue
			}
			i, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Fprintf(out, "not a card index: %q\n", fields[1])
				continue
			}
			snap := eng.Snapshot()
			if !snap.HasBoard() {
				fmt.Fprintln(out, "no board; try: new <r> <c>")
				continue
			}
			eng.SelectCard(snap.Ref(i))

		case "new":
			var r, c int
			switch len(fields) {
			case 2:
				size, ok := presets[fields[1]]
				if !ok {
					fmt.Fprintf(out, "unknown preset %q (%s)\n", fields[1], presetNames())
					continue
				}
				r, c = size[0], size[1]
			case 3:
				var errR, errC error
				r, errR = strconv.Atoi(fields[1])
				c, errC = strconv.Atoi(fields[2])
				if errR != nil || errC != nil {
					fmt.Fprintln(out, "usage: new <r> <c> | new <preset>")
					continue
				}
			default:
				fmt.Fprintln(out, "usage: new <r> <c> | new <preset>")
				continue
			}
			want := eng.Generation() + 1
			eng.BuildBoard(r, c)
			awaitSnapshot(ctx, eng, dealt(want))
			if err := render.Board(out, eng.Snapshot()); err != nil {
				return fmt.Errorf("render board: %w", err)
			}

		case "clear":
			want := eng.Generation() + 1
			eng.ClearBoard()
			awaitSnapshot(ctx, eng, func(s engine.Snapshot) bool { return s.Generation >= want })
			fmt.Fprintln(out, render.Status(eng.Snapshot()))

		case "show":
			if err := render.Board(out, eng.Snapshot()); err != nil {
				return fmt.Errorf("render board: %w", err)
			}

		case "wait":
			if len(fields) != 2 {
				fmt.Fprintln(out, "usage: wait <ms>")
				continue
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 0 {
				fmt.Fprintln(out, "usage: wait <ms>")
				continue
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Duration(n) * time.Millisecond):
			}

		case "quit", "q", "exit":
			return nil

		default:
			fmt.Fprintf(out, "unknown command %q (select, new, clear, show, wait, quit)\n", fields[0])
		}
	}

	if err := scanner.Err(); err != nil {
		return WrapExitError(ExitCommandError, "failed to read input", err)
	}
	return nil
}

// awaitSnapshot polls until the published snapshot satisfies ready, ctx
// ends or boardWait passes.
func awaitSnapshot(ctx context.Context, eng *engine.Engine, ready func(engine.Snapshot) bool) {
	deadline := time.NewTimer(boardWait)
	defer deadline.Stop()
	tick := time.NewTicker(2 * time.Millisecond)
	defer tick.Stop()

	for !ready(eng.Snapshot()) {
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			slog.Warn("board not ready", "generation", eng.Generation())
			return
		case <-tick.C:
		}
	}
}

// dealt is satisfied once a board of generation gen or later is live.
// Building clears first, so the cleared state is published on the way.
func dealt(gen int64) func(engine.Snapshot) bool {
	return func(s engine.Snapshot) bool {
		return s.Generation >= gen && s.HasBoard()
	}
}

// presets are the menu layouts, by name.
var presets = map[string][2]int{
	"2x2": {2, 2},
	"2x4": {2, 4},
	"4x4": {4, 4},
}

func presetNames() string {
	return strings.Join(slices.Sorted(maps.Keys(presets)), ", ")
}

// sizeFor resolves the board size. Flags win over the preset, which wins
// over the config.
func sizeFor(cfg config.Config, preset string, rows, cols int) (int, int, error) {
	if preset != "" {
		size, ok := presets[preset]
		if !ok {
			return 0, 0, NewExitError(ExitCommandError,
				fmt.Sprintf("unknown preset %q (%s)", preset, presetNames()))
		}
		if rows <= 0 {
			rows = size[0]
		}
		if cols <= 0 {
			cols = size[1]
		}
	}
	r, c := boardSize(cfg, rows, cols)
	return r, c, nil
}

// boardSize picks the flag values over the configured ones.
func boardSize(cfg config.Config, rows, cols int) (int, int) {
	if rows <= 0 {
		rows = cfg.Rows
	}
	if cols <= 0 {
		cols = cfg.Cols
	}
	return rows, cols
}

// playObserver narrates judgments and the win.
type playObserver struct {
	engine.NopObserver
	w io.Writer
}

func (o *playObserver) PairJudged(a, b int, matched bool) {
	verdict := "no match"
	if matched {
		verdict = "match!"
	}
	fmt.Fprintf(o.w, "%d & %d: %s\n", a, b, verdict)
}

func (o *playObserver) Won(message string) {
	fmt.Fprintf(o.w, "*** %s ***\n", message)
}

// lockedWriter serializes writes from the prompt, the engine loop and the
// audio worker.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
