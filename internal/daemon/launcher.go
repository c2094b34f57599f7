package daemon

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Launcher starts the daemon. Launch must be idempotent: calling it while a
// start is already in flight must not spawn a second process.
type Launcher interface {
	Launch(ctx context.Context) error
}

// ProcessLauncher spawns the daemon binary as a detached background process.
type ProcessLauncher struct {
	Bin         string        // default "ollama"
	Args        []string      // default ["serve"]
	Env         []string      // extra environment, appended to the inherited one
	LaunchGrace time.Duration // a live child younger than this counts as in flight; default 3s
	Logger      zerolog.Logger

	group singleflight.Group

	mu      sync.Mutex
	cmd     *exec.Cmd
	started time.Time
	exited  chan struct{}
	spawns  int
}

// Launch spawns the daemon unless a recent child is still alive. Concurrent
// callers share a single spawn.
func (l *ProcessLauncher) Launch(ctx context.Context) error {
	_, err, _ := l.group.Do("launch", func() (any, error) {
		return nil, l.spawn(ctx)
	})
	return err
}

// Spawns reports how many processes this launcher has started.
func (l *ProcessLauncher) Spawns() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.spawns
}

func (l *ProcessLauncher) spawn(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	grace := l.LaunchGrace
	if grace <= 0 {
		grace = 3 * time.Second
	}
	if l.cmd != nil && l.alive() && time.Since(l.started) < grace {
		l.Logger.Debug().Int("pid", l.cmd.Process.Pid).Msg("daemon launch already in flight")
		return nil
	}

	bin := l.Bin
	if bin == "" {
		bin = "ollama"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return fmt.Errorf("daemon binary %q not found: %w", bin, err)
	}
	args := l.Args
	if args == nil {
		args = []string{"serve"}
	}
	// not tied to ctx: the daemon outlives the request that started it
	cmd := exec.Command(path, args...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, nil, nil
	if len(l.Env) > 0 {
		cmd.Env = append(cmd.Environ(), l.Env...)
	}
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	exited := make(chan struct{})
	go func() {
		err := cmd.Wait()
		l.Logger.Debug().Err(err).Int("pid", cmd.Process.Pid).Msg("daemon process exited")
		close(exited)
	}()
	l.cmd, l.started, l.exited = cmd, time.Now(), exited
	l.spawns++
	l.Logger.Info().Str("bin", path).Strs("args", args).Int("pid", cmd.Process.Pid).Msg("daemon launched")
	return nil
}

// alive reports whether the last spawned child has not exited. Caller holds mu.
func (l *ProcessLauncher) alive() bool {
	if l.exited == nil {
		return false
	}
	select {
	case <-l.exited:
		return false
	default:
		return true
	}
}
