package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pairs/internal/store"
)

var traceStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// seedTraceDB records a won 2×2 game and an unfinished 4×4 one.
func seedTraceDB(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "pairs.db")
	ctx := context.Background()

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.WriteSession(ctx, store.Session{
		ID: "s-won", Generation: 1, Rows: 2, Cols: 2, Pairs: 2, StartedAt: traceStart,
	}))
	require.NoError(t, st.WriteSession(ctx, store.Session{
		ID: "s-open", Generation: 2, Rows: 4, Cols: 4, Pairs: 8, StartedAt: traceStart.Add(time.Minute),
	}))

	turns := []store.Turn{
		{SessionID: "s-won", Turn: 1, CardA: 0, CardB: 2, FaceA: "a", FaceB: "b", Matched: false, Matches: 0},
		{SessionID: "s-won", Turn: 2, CardA: 0, CardB: 1, FaceA: "a", FaceB: "a", Matched: true, Matches: 1},
		{SessionID: "s-won", Turn: 3, CardA: 2, CardB: 3, FaceA: "b", FaceB: "b", Matched: true, Matches: 2},
	}
	for _, turn := range turns {
		require.NoError(t, st.WriteTurn(ctx, turn))
	}
	require.NoError(t, st.WriteWin(ctx, store.Win{
		SessionID: "s-won", Turns: 3, Matches: 2, Message: "Level Completed (2×2)", WonAt: traceStart.Add(5 * time.Second),
	}))

	return dbPath
}

func runTraceWith(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestTraceMissingDatabaseFlag(t *testing.T) {
	_, err := runTraceWith(t, "text", "--session", "s-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestTraceNonExistentDatabase(t *testing.T) {
	_, err := runTraceWith(t, "text", "--db", "/nonexistent/path/test.db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open database")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTraceEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")

	out, err := runTraceWith(t, "text", "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, "No sessions recorded.\n", out)
}

func TestTraceListSessions(t *testing.T) {
	dbPath := seedTraceDB(t)

	out, err := runTraceWith(t, "text", "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, "s-won  2×2  3 turns  won\ns-open  4×4  0 turns  unfinished\n", out)
}

func TestTraceListSessionsJSON(t *testing.T) {
	dbPath := seedTraceDB(t)

	out, err := runTraceWith(t, "json", "--db", dbPath)
	require.NoError(t, err)

	var response struct {
		Status string       `json:"status"`
		Data   []SessionRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
	require.Len(t, response.Data, 2)
	assert.Equal(t, "s-won", response.Data[0].ID)
	assert.True(t, response.Data[0].Won)
	assert.True(t, traceStart.Equal(response.Data[0].StartedAt))
	assert.Equal(t, 8, response.Data[1].Pairs)
}

func TestTraceSession(t *testing.T) {
	dbPath := seedTraceDB(t)

	out, err := runTraceWith(t, "text", "--db", dbPath, "--session", "s-won")
	require.NoError(t, err)

	assert.Contains(t, out, "Trace for Session: s-won\n")
	assert.Contains(t, out, "Board: 2×2, 2 pairs\n")
	assert.Contains(t, out, "  [1] 0:a 2:b miss (0/2)\n")
	assert.Contains(t, out, "  [3] 2:b 3:b match (2/2)\n")
	assert.Contains(t, out, "  Mismatches: 1\n")
	assert.Contains(t, out, "  Result:     Level Completed (2×2)\n")
	assert.NotContains(t, out, "Started:")
}

func TestTraceSessionVerbose(t *testing.T) {
	dbPath := seedTraceDB(t)

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "text", Verbose: true})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--session", "s-open"})
	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "Started: 2026-03-01T12:01:00Z\n")
	assert.Contains(t, out, "  (no turns)\n")
	assert.Contains(t, out, "  Result:     unfinished\n")
}

func TestTraceSessionJSON(t *testing.T) {
	dbPath := seedTraceDB(t)

	out, err := runTraceWith(t, "json", "--db", dbPath, "--session", "s-won")
	require.NoError(t, err)

	var response struct {
		Status  string      `json:"status"`
		Session string      `json:"session"`
		Data    TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "s-won", response.Session)
	assert.Len(t, response.Data.Timeline, 3)
	assert.Equal(t, TraceStats{Turns: 3, Matches: 2, Mismatches: 1, Won: true, Message: "Level Completed (2×2)"}, response.Data.Stats)
}

func TestTraceUnknownSession(t *testing.T) {
	dbPath := seedTraceDB(t)

	out, err := runTraceWith(t, "json", "--db", dbPath, "--session", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	var response CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "error", response.Status)
	assert.Equal(t, "E_NOT_FOUND", response.Error.Code)
}

func TestTraceVerboseLogsToStderr(t *testing.T) {
	dbPath := seedTraceDB(t)
	out := &bytes.Buffer{}
	diag := &bytes.Buffer{}
	cmd := NewTraceCommand(&RootOptions{Format: "json", Verbose: true})
	cmd.SetOut(out)
	cmd.SetErr(diag)
	cmd.SetArgs([]string{"--db", dbPath, "--session", "s-won"})
	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "s-won", resp.Session)
	assert.Equal(t, "reading session s-won from "+dbPath+"\n", diag.String())

	out.Reset()
	diag.Reset()
	cmd = NewTraceCommand(&RootOptions{Format: "text", Verbose: true})
	cmd.SetOut(out)
	cmd.SetErr(diag)
	cmd.SetArgs([]string{"--db", dbPath})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "listing sessions in "+dbPath+"\n", diag.String())
	assert.NotContains(t, out.String(), "listing sessions")
}
