// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/ManuGH/abrcast/internal/log"
	"github.com/ManuGH/abrcast/internal/procgroup"
)

const (
	defaultKillGrace = 5 * time.Second
	defaultTailLines = 20
	ringCapacity     = 256
)

// ExitStatus describes how a supervised process ended.
type ExitStatus struct {
	Code      int
	Stderr    []string // last lines of stderr
	StartedAt time.Time
	EndedAt   time.Time
}

// Runner executes an external tool to completion.
type Runner interface {
	Run(ctx context.Context, bin string, args []string) (ExitStatus, error)
}

// ProcessRunner runs a command in its own process group, captures the tail of
// stderr and terminates the whole group when ctx is cancelled.
type ProcessRunner struct {
	KillGrace time.Duration
	TailLines int
}

// NewProcessRunner creates a ProcessRunner with the given kill grace.
func NewProcessRunner(killGrace time.Duration) *ProcessRunner {
	return &ProcessRunner{KillGrace: killGrace}
}

// Run starts bin and blocks until it exits or ctx is done. A non-zero exit is
// returned as an *exec.ExitError; cancellation returns ctx.Err().
func (r *ProcessRunner) Run(ctx context.Context, bin string, args []string) (ExitStatus, error) {
	status := ExitStatus{Code: -1, StartedAt: time.Now()}
	if err := ctx.Err(); err != nil {
		status.EndedAt = status.StartedAt
		return status, err
	}

	logger := log.WithComponentFromContext(ctx, "ffmpeg")
	grace := r.KillGrace
	if grace <= 0 {
		grace = defaultKillGrace
	}
	tail := r.TailLines
	if tail <= 0 {
		tail = defaultTailLines
	}

	cmd := exec.Command(bin, args...) // #nosec G204 -- bin comes from operator config
	procgroup.Set(cmd)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		status.EndedAt = time.Now()
		return status, fmt.Errorf("capture stderr: %w", err)
	}
	ring := NewLineRing(ringCapacity)

	if err := cmd.Start(); err != nil {
		status.EndedAt = time.Now()
		status.Stderr = []string{err.Error()}
		return status, fmt.Errorf("start %s: %w", bin, err)
	}
	logger.Debug().
		Str("bin", bin).
		Strs("args", args).
		Int("pid", cmd.Process.Pid).
		Msg("process started")

	// Drain stderr before Wait; Wait closes the pipe.
	var ioWg sync.WaitGroup
	ioWg.Add(1)
	go func() {
		defer ioWg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			_, _ = ring.Write(append(scanner.Bytes(), '\n'))
		}
	}()

	waitCh := make(chan error, 1)
	go func() {
		ioWg.Wait()
		waitCh <- cmd.Wait()
	}()

	var runErr error
	select {
	case runErr = <-waitCh:
	case <-ctx.Done():
		logger.Info().Int("pid", cmd.Process.Pid).Msg("context done, terminating process group")
		_ = procgroup.Terminate(cmd, waitCh, grace)
		runErr = ctx.Err()
	}

	status.EndedAt = time.Now()
	status.Stderr = ring.LastN(tail)
	if cmd.ProcessState != nil {
		status.Code = cmd.ProcessState.ExitCode()
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		logger.Debug().
			Int("exit_code", status.Code).
			Strs("stderr", status.Stderr).
			Msg("process failed")
	}
	return status, runErr
}
