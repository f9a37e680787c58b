package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pairs/internal/config"
	"github.com/roach88/pairs/internal/engine"
	"github.com/roach88/pairs/internal/store"
)

// fastConfig keeps real-timer games short.
const fastConfig = `rows: 2
cols: 2
faces: [a, b]
judge_delay_ms: 0
win_delay_ms: 0
flip_ms: 2
pop_ms: 1
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pairs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runPlayWith(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	opts := &RootOptions{Format: "text", ConfigPath: writeConfig(t, fastConfig)}
	cmd := NewPlayCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(input))
	cmd.SetArgs(append([]string{}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestPlay_Commands(t *testing.T) {
	input := strings.Join([]string{
		"show",
		"bogus",
		"select",
		"select x",
		"new 1 2",
		"clear",
		"select 0",
		"wait",
		"quit",
		"show",
	}, "\n")

	out, err := runPlayWith(t, input, "--mute", "--seed", "3")
	require.NoError(t, err)

	assert.Contains(t, out, "gen 1  2×2  turns 0  matches 0/2\n")
	assert.Contains(t, out, `unknown command "bogus"`)
	assert.Contains(t, out, "usage: select <i>\n")
	assert.Contains(t, out, `not a card index: "x"`)
	assert.Contains(t, out, "gen 2  1×2  turns 0  matches 0/1\n0 ?  1 ?\n")
	assert.Contains(t, out, "gen 3  no board\n")
	assert.Contains(t, out, "no board; try: new <r> <c>\n")
	assert.Contains(t, out, "usage: wait <ms>\n")
	assert.Equal(t, 2, strings.Count(out, "gen 1  2×2"), "input after quit is ignored")
}

func TestPlay_WinsAndRecords(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pairs.db")
	input := "new 1 2\nselect 0\nselect 1\nwait 300\nshow\n"

	buf := &bytes.Buffer{}
	opts := &PlayOptions{
		RootOptions: &RootOptions{Format: "text", ConfigPath: writeConfig(t, fastConfig)},
		Database:    dbPath,
		Mute:        true,
		SessionIDs:  engine.NewFixedGenerator("g-1", "g-2"),
	}
	cmd := NewPlayCommand(opts.RootOptions)
	cmd.SetOut(buf)
	cmd.SetIn(strings.NewReader(input))
	require.NoError(t, runPlay(opts, cmd))

	out := buf.String()
	assert.Contains(t, out, "0 & 1: match!\n")
	assert.Contains(t, out, "*** Level Completed (1×2) ***\n")
	assert.Contains(t, out, "gen 2  1×2  turns 1  matches 1/1  Level Completed (1×2)\n0 *a*  1 *a*\n")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	sessions, err := st.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	won, err := st.ReadSession(context.Background(), "g-2")
	require.NoError(t, err)
	assert.True(t, won.Won)
	assert.Equal(t, 1, won.Turns)
}

func TestPlay_PrintsCues(t *testing.T) {
	out, err := runPlayWith(t, "select 0\nwait 100\n", "--seed", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "♪ flip (pitch")
}

func TestPlay_BadConfig(t *testing.T) {
	opts := &RootOptions{Format: "text", ConfigPath: writeConfig(t, "rows: 0\n")}
	cmd := NewPlayCommand(opts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestPlay_BadDatabase(t *testing.T) {
	_, err := runPlayWith(t, "", "--mute", "--db", filepath.Join(t.TempDir(), "missing", "pairs.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPlay_Presets(t *testing.T) {
	input := strings.Join([]string{
		"new 4x4",
		"new 3x3",
		"new 1",
		"quit",
	}, "\n")

	out, err := runPlayWith(t, input, "--mute", "--preset", "2x4")
	require.NoError(t, err)

	assert.Contains(t, out, "gen 1  2×4  turns 0  matches 0/4\n")
	assert.Contains(t, out, "gen 2  4×4  turns 0  matches 0/8\n")
	assert.Contains(t, out, `unknown preset "3x3" (2x2, 2x4, 4x4)`)
	assert.Contains(t, out, "usage: new <r> <c> | new <preset>\n")
}

func TestPlay_UnknownPreset(t *testing.T) {
	_, err := runPlayWith(t, "", "--mute", "--preset", "8x8")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `unknown preset "8x8"`)
}

func TestSizeFor(t *testing.T) {
	cfg := config.Default()

	tests := []struct {
		name       string
		preset     string
		rows, cols int
		wantR      int
		wantC      int
	}{
		{"config", "", 0, 0, cfg.Rows, cfg.Cols},
		{"small", "2x2", 0, 0, 2, 2},
		{"wide", "2x4", 0, 0, 2, 4},
		{"large", "4x4", 0, 0, 4, 4},
		{"rows override preset", "2x4", 3, 0, 3, 4},
		{"both override preset", "4x4", 1, 2, 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, c, err := sizeFor(cfg, tt.preset, tt.rows, tt.cols)
			require.NoError(t, err)
			assert.Equal(t, tt.wantR, r)
			assert.Equal(t, tt.wantC, c)
		})
	}

	_, _, err := sizeFor(cfg, "3x3", 0, 0)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBoardSize(t *testing.T) {
	cfg := config.Default()

	r, c := boardSize(cfg, 0, 0)
	assert.Equal(t, cfg.Rows, r)
	assert.Equal(t, cfg.Cols, c)

	r, c = boardSize(cfg, 3, -1)
	assert.Equal(t, 3, r)
	assert.Equal(t, cfg.Cols, c)
}
