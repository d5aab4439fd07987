package tool

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// ProcessExecutor runs invocations with os/exec and logs every output line.
type ProcessExecutor struct {
	Logger logrus.FieldLogger
	// Environ is the base environment; nil means the current process env.
	Environ []string
}

func NewProcessExecutor(logger logrus.FieldLogger) *ProcessExecutor {
	return &ProcessExecutor{Logger: logger}
}

func (pe *ProcessExecutor) Execute(ctx context.Context, inv Invocation) (*Output, error) {
	logger := pe.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	logger = logger.WithField("tool", inv.Tool)

	cmd := exec.CommandContext(ctx, inv.Tool, inv.Args...)
	cmd.Dir = inv.Dir
	base := pe.Environ
	if base == nil {
		base = os.Environ()
	}
	cmd.Env = inv.environ(base)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	logger.Info(inv.String())
	if err := cmd.Start(); err != nil {
		return nil, &StartError{Tool: inv.Tool, Err: err}
	}

	var (
		mu                       sync.Mutex
		outBuf, errBuf, combined strings.Builder
		wg                       sync.WaitGroup
	)
	scan := func(r io.Reader, buf *strings.Builder, logLine func(...any)) {
		var partial bool
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)
		scanner.Split(splitLongLines(maxLineSize, &partial))
		for scanner.Scan() {
			line := inv.Redact(scanner.Text())
			logLine(line)
			if !partial {
				line += "\n"
			}
			mu.Lock()
			buf.WriteString(line)
			combined.WriteString(line)
			mu.Unlock()
		}
		if err := scanner.Err(); err != nil {
			logger.WithError(err).Warn("err reading tool output")
		}
		// the child blocks on a full pipe otherwise
		_, _ = io.Copy(io.Discard, r)
	}
	wg.Go(func() { scan(stdout, &outBuf, logger.Info) })
	wg.Go(func() { scan(stderr, &errBuf, logger.Warn) })
	wg.Wait()

	waitErr := cmd.Wait()
	out := &Output{
		Stdout:   outBuf.String(),
		Stderr:   errBuf.String(),
		Combined: combined.String(),
	}
	if waitErr == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return out, fmt.Errorf("%s: %w", inv.Tool, ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return out, &ExitError{Tool: inv.Tool, Code: exitErr.ExitCode(), Output: out.Combined}
	}
	return out, waitErr
}

const maxLineSize = 1024 * 1024

// splitLongLines splits on newlines like bufio.ScanLines but hands out
// lines longer than limit in limit-sized chunks. partial reports whether
// the last token stopped short of a line end.
func splitLongLines(limit int, partial *bool) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (int, []byte, error) {
		advance, token, err := bufio.ScanLines(data, atEOF)
		if err != nil || advance > 0 || token != nil {
			*partial = false
			return advance, token, err
		}
		if len(data) >= limit {
			*partial = true
			return limit, data[:limit], nil
		}
		return 0, nil, nil
	}
}
