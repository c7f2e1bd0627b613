package cmd

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/require"
)

func TestTerminalDeviceNames(t *testing.T) {
	tests := map[string]struct{ in, out string }{
		"windows": {in: "CONIN$", out: "CONOUT$"},
		"linux":   {in: "/dev/tty", out: "/dev/tty"},
		"darwin":  {in: "/dev/tty", out: "/dev/tty"},
	}
	for goos, expected := range tests {
		t.Run(goos, func(t *testing.T) {
			t.Parallel()
			in, out := terminalDeviceNames(goos)
			require.Equal(t, expected.in, in)
			require.Equal(t, expected.out, out)
		})
	}
}

func TestGetProgramOptionsPipedUsesTTYAndCleansUp(t *testing.T) {
	origIsPiped, origOpenTTY := stdinIsPiped, openTerminalIOFn
	t.Cleanup(func() { stdinIsPiped, openTerminalIOFn = origIsPiped, origOpenTTY })
	stdinIsPiped = func() bool { return true }

	inFile, err := os.CreateTemp(t.TempDir(), "tty-in-*")
	require.NoError(t, err)
	outFile, err := os.CreateTemp(t.TempDir(), "tty-out-*")
	require.NoError(t, err)
	openTerminalIOFn = func() (*os.File, *os.File, error) { return inFile, outFile, nil }

	opts, cleanup := getProgramOptions(context.Background())
	require.Len(t, opts, 3)

	cleanup()
	require.Error(t, inFile.Close())
	require.Error(t, outFile.Close())
}

func TestGetProgramOptionsFallsBackWithoutTTY(t *testing.T) {
	origIsPiped, origOpenTTY := stdinIsPiped, openTerminalIOFn
	t.Cleanup(func() { stdinIsPiped, openTerminalIOFn = origIsPiped, origOpenTTY })
	stdinIsPiped = func() bool { return true }
	openTerminalIOFn = func() (*os.File, *os.File, error) { return nil, nil, fmt.Errorf("no tty") }

	opts, cleanup := getProgramOptions(context.Background())
	require.Nil(t, opts)
	require.NotPanics(t, cleanup)
}

func TestGetProgramOptionsNotPipedUsesDefaults(t *testing.T) {
	origIsPiped, origOpenTTY := stdinIsPiped, openTerminalIOFn
	t.Cleanup(func() { stdinIsPiped, openTerminalIOFn = origIsPiped, origOpenTTY })
	stdinIsPiped = func() bool { return false }
	openTerminalIOFn = func() (*os.File, *os.File, error) {
		return nil, nil, fmt.Errorf("should not be called")
	}

	opts, cleanup := getProgramOptions(context.Background())
	require.Nil(t, opts)
	require.NotPanics(t, cleanup)
}

type fakeResizeTicker struct {
	ch <-chan time.Time
}

func (f *fakeResizeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeResizeTicker) Stop()               {}

func stubResize(t *testing.T, sizes func(call int32) (int, int)) (chan time.Time, chan tea.WindowSizeMsg) {
	t.Helper()
	origTermGetSize, origTicker, origSend := termGetSize, newResizeTicker, sendWindowSize
	t.Cleanup(func() { termGetSize, newResizeTicker, sendWindowSize = origTermGetSize, origTicker, origSend })

	var calls atomic.Int32
	termGetSize = func(int) (int, int, error) {
		w, h := sizes(calls.Add(1))
		return w, h, nil
	}
	ticks := make(chan time.Time, 3)
	newResizeTicker = func(time.Duration) resizeTicker { return &fakeResizeTicker{ch: ticks} }
	msgs := make(chan tea.WindowSizeMsg, 3)
	sendWindowSize = func(_ *tea.Program, msg tea.WindowSizeMsg) { msgs <- msg }
	return ticks, msgs
}

func recvSize(t *testing.T, msgs <-chan tea.WindowSizeMsg) tea.WindowSizeMsg {
	t.Helper()
	select {
	case m := <-msgs:
		return m
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for resize message")
		return tea.WindowSizeMsg{}
	}
}

func TestWithTTYResizeWatcherSendsOnSizeChange(t *testing.T) {
	ticks, msgs := stubResize(t, func(call int32) (int, int) {
		if call == 1 {
			return 80, 24
		}
		return 81, 24
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, out, err := os.Pipe()
	require.NoError(t, err)
	var p tea.Program
	withTTYResizeWatcher(ctx, out)(&p)

	ticks <- time.Now()
	ticks <- time.Now()
	require.Equal(t, tea.WindowSizeMsg{Width: 80, Height: 24}, recvSize(t, msgs))
	require.Equal(t, tea.WindowSizeMsg{Width: 81, Height: 24}, recvSize(t, msgs))
}

func TestWithTTYResizeWatcherSkipsUnchangedSize(t *testing.T) {
	ticks, msgs := stubResize(t, func(call int32) (int, int) {
		if call <= 2 {
			return 80, 24
		}
		return 81, 24
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, out, err := os.Pipe()
	require.NoError(t, err)
	var p tea.Program
	withTTYResizeWatcher(ctx, out)(&p)

	ticks <- time.Now()
	ticks <- time.Now()
	ticks <- time.Now()
	require.Equal(t, 80, recvSize(t, msgs).Width)
	require.Equal(t, 81, recvSize(t, msgs).Width)
	select {
	case m := <-msgs:
		t.Fatalf("unexpected extra resize %+v", m)
	default:
	}
}
