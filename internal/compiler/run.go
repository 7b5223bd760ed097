package compiler

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// runResult captures one external process invocation. Only stdout is parsed
// for diagnostics; stderr is kept for debugging.
type runResult struct {
	exitCode int
	stdout   string
	stderr   string
	duration time.Duration
}

// runCommand executes argv in dir and waits for it to finish. A non-zero exit
// code is not an error; the returned error covers only spawn failures.
func (o *Orchestrator) runCommand(ctx context.Context, argv []string, dir string) (*runResult, error) {
	start := time.Now()

	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if o.Debug {
		log.Printf("[compiler] running %s in %s", strings.Join(argv, " "), dir)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", argv[0], err)
	}

	var stdoutBuf, stderrBuf strings.Builder
	var g errgroup.Group
	g.Go(func() error {
		drain(stdout, &stdoutBuf)
		return nil
	})
	g.Go(func() error {
		drain(stderr, &stderrBuf)
		return nil
	})
	_ = g.Wait()

	exitCode := 0
	if err := cmd.Wait(); err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return nil, fmt.Errorf("waiting for %s: %w", argv[0], err)
		}
		exitCode = exitErr.ExitCode()
	}

	duration := time.Since(start)
	if o.Debug {
		log.Printf("[compiler] %s finished in %.2fs with exit code %d", argv[0], duration.Seconds(), exitCode)
	}

	return &runResult{
		exitCode: exitCode,
		stdout:   stdoutBuf.String(),
		stderr:   stderrBuf.String(),
		duration: duration,
	}, nil
}

func drain(r io.Reader, out *strings.Builder) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		out.WriteString(scanner.Text())
		out.WriteByte('\n')
	}
}
