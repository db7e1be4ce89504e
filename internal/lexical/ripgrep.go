package lexical

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/Kurasuai-Inc/doc-search/internal/errclass"
	"github.com/Kurasuai-Inc/doc-search/internal/retry"
	"github.com/Kurasuai-Inc/doc-search/pkg/types"
)

// exit status ripgrep uses when it hit errors but may still have searched
const rgExitError = 2

// buildArgs maps search options onto ripgrep flags one-to-one.
// --no-config keeps user configuration from changing matching, --no-ignore
// keeps .gitignore from hiding documents the scanner would see.
func buildArgs(query, root string, opts types.SearchOptions, globs []string) []string {
	args := []string{"--json", "--no-config", "--no-ignore", "--sort=path"}
	if !opts.CaseSensitive {
		args = append(args, "--ignore-case")
	}
	if !opts.UseRegex {
		args = append(args, "--fixed-strings")
	}
	if opts.MaxResults > 0 {
		args = append(args, "--max-count", strconv.Itoa(opts.MaxResults))
	}
	if opts.ContextLines > 0 {
		args = append(args, "--context", strconv.Itoa(opts.ContextLines))
	}
	for _, g := range globs {
		args = append(args, "--glob", g)
	}
	return append(args, "--regexp", query, "--", root)
}

type rgProcess struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *bytes.Buffer
}

func startTool(ctx context.Context, toolPath string, args []string) (*rgProcess, error) {
	cmd := exec.CommandContext(ctx, toolPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &rgProcess{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

// runTool streams ripgrep matches into em. A nil error means the search
// completed; errStopped means the limit or the consumer ended it early.
// Any other error leaves the decision to fall back to the caller.
func (e *Engine) runTool(ctx context.Context, query, root string, opts types.SearchOptions, filter fileFilter, em *emitter, out *Outcome) error {
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := buildArgs(query, root, opts, filter.globs)
	proc, err := retry.Do(runCtx, e.retry, errclass.Retryable, func() (*rgProcess, error) {
		return e.start(runCtx, e.toolPath, args)
	})
	if err != nil {
		return e.toolError(ctx, runCtx, fmt.Errorf("launch ripgrep: %w", err))
	}

	summary := false
	reader := bufio.NewReaderSize(proc.stdout, 64<<10)
	var readErr error
	for {
		var line []byte
		line, readErr = reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			kind, records, err := parseEvent(line)
			if err != nil {
				e.logger.Warn("skipping malformed ripgrep output", "error", err)
			}
			if kind == eventSummary {
				summary = true
			}
			for _, rec := range records {
				if err := em.emit(rec); err != nil {
					cancel()
					_ = proc.cmd.Wait()
					return err
				}
			}
		}
		if readErr != nil {
			break
		}
	}

	waitErr := proc.cmd.Wait()
	if runCtx.Err() != nil {
		return e.toolError(ctx, runCtx, runCtx.Err())
	}
	if !errors.Is(readErr, io.EOF) {
		return fmt.Errorf("read ripgrep output: %w", readErr)
	}

	code := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return fmt.Errorf("wait for ripgrep: %w", waitErr)
		}
		code = exitErr.ExitCode()
	}

	switch {
	case code == 0 || code == 1:
		return nil
	case code == rgExitError && summary:
		// partial results: some paths could not be searched
		if w := stderrWarning(proc.stderr.String()); w != "" {
			e.logger.Warn(w)
			if out != nil {
				out.Warnings = append(out.Warnings, w)
			}
		}
		return nil
	default:
		return fmt.Errorf("ripgrep exited with status %d: %s", code, strings.TrimSpace(proc.stderr.String()))
	}
}

func (e *Engine) toolError(ctx, runCtx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: ripgrep exceeded %s", errclass.ErrTimeout, e.timeout)
	}
	return err
}

func stderrWarning(stderr string) string {
	n := 0
	for _, line := range strings.Split(stderr, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	switch n {
	case 0:
		return ""
	case 1:
		return "1 path skipped by ripgrep"
	default:
		return fmt.Sprintf("%d paths skipped by ripgrep", n)
	}
}
