package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRerunsOnNewSymbols(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{Dir: dir, Ext: ".pdb", Delay: 20 * time.Millisecond, Logger: zerolog.Nop()},
			func(context.Context) error {
				runs.Add(1)
				return nil
			})
	}()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, 5*time.Second, 10*time.Millisecond,
		"job should run once at start")

	// Ignored: not a symbol.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ntdll.pdb"), nil, 0o644))
	require.Eventually(t, func() bool { return runs.Load() == 2 }, 5*time.Second, 10*time.Millisecond,
		"job should run after a symbol was added")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRunJobErrorIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())

	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{Dir: dir, Ext: ".pdb", Delay: 10 * time.Millisecond},
			func(context.Context) error {
				runs.Add(1)
				return errors.New("boom")
			})
	}()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestRunWaitsForRunningJob(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		runs     atomic.Int32
		finished atomic.Bool
	)
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{Dir: dir, Ext: ".pdb", Delay: 10 * time.Millisecond, Logger: zerolog.Nop()},
			func(context.Context) error {
				if runs.Add(1) != 2 {
					return nil
				}
				close(started)
				// Simulates a slow output write that ignores cancellation.
				time.Sleep(300 * time.Millisecond)
				finished.Store(true)
				return nil
			})
	}()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ntdll.pdb"), nil, 0o644))

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("debounced job did not start")
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
		assert.True(t, finished.Load(), "Run returned while the job was still running")
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRunMissingDir(t *testing.T) {
	err := Run(context.Background(), Config{Dir: filepath.Join(t.TempDir(), "missing"), Ext: ".pdb"},
		func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestRelevant(t *testing.T) {
	assert := assert.New(t)
	assert.True(relevant(fsnotify.Event{Name: "/c/ntdll.pdb", Op: fsnotify.Create}, ".pdb"))
	assert.True(relevant(fsnotify.Event{Name: "/c/NTDLL.PDB", Op: fsnotify.Rename}, ".pdb"))
	assert.True(relevant(fsnotify.Event{Name: "/c/ntdll.pdb", Op: fsnotify.Remove}, ".pdb"))
	assert.False(relevant(fsnotify.Event{Name: "/c/ntdll.pdb", Op: fsnotify.Write}, ".pdb"))
	assert.False(relevant(fsnotify.Event{Name: "/c/ntdll.dll", Op: fsnotify.Create}, ".pdb"))
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	d.Trigger(func() { calls.Add(1) })
	d.Cancel()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}
