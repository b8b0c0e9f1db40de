package checker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"spelgud/internal/trace"
)

const (
	bannerTimeout = 10 * time.Second
	closeTimeout  = 2 * time.Second
	bannerPrefix  = "@(#)"
)

// Pipe drives one backend process in ispell pipe mode. The process is
// started on the first Check and restarted after it fails.
type Pipe struct {
	dialect Dialect
	command string
	args    []string
	env     []string
	timeout time.Duration
	logger  *slog.Logger
	metrics *pipeMetrics

	// bannerWait bounds process start-up.
	bannerWait time.Duration

	mu     sync.Mutex
	proc   *process
	closed bool
}

type process struct {
	id     uuid.UUID
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan string
	exited chan struct{}
}

// NewPipe returns a checker for the given dialect.
func NewPipe(dialect Dialect, cfg Config) *Pipe {
	command := cfg.Command
	if command == "" {
		command = dialect.Command()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	args := append(dialect.Args(cfg.Language), cfg.Args...)
	return &Pipe{
		dialect: dialect,
		command: command,
		args:    args,
		env:     cfg.Env,
		timeout: cfg.Timeout,
		logger:  logger.With("backend", dialect.Name()),
		metrics: newPipeMetrics(cfg.MeterProvider),

		bannerWait: bannerTimeout,
	}
}

// Name returns the dialect name.
func (p *Pipe) Name() string {
	return p.dialect.Name()
}

// Check sends word to the backend and waits for its verdict.
func (p *Pipe) Check(ctx context.Context, word string) (Verdict, error) {
	if strings.ContainsAny(word, "\r\n") {
		return Verdict{}, fmt.Errorf("%w: word contains a line break", ErrMalformedReply)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return Verdict{}, unavailable("checker closed")
	}
	if err := ctx.Err(); err != nil {
		return Verdict{}, err
	}

	start := time.Now()
	proc, err := p.ensureLocked(ctx)
	if err != nil {
		p.metrics.recordCheck(ctx, p.dialect.Name(), time.Since(start), OutcomeUnavailable)
		return Verdict{}, err
	}

	v, err := p.roundTrip(ctx, proc, word)
	p.metrics.recordCheck(ctx, p.dialect.Name(), time.Since(start), outcomeFor(v, err))
	trace.Point(trace.FromContext(ctx), trace.ScopeCheck, "check", word, trace.CurrentSpan(ctx))
	return v, err
}

func (p *Pipe) roundTrip(ctx context.Context, proc *process, word string) (Verdict, error) {
	// "^" keeps words that start with a pipe-mode command character literal.
	if _, err := io.WriteString(proc.stdin, "^"+word+"\n"); err != nil {
		p.teardownLocked("write failed", err)
		return Verdict{}, unavailable("write: %v", err)
	}

	var timeout <-chan time.Time
	if p.timeout > 0 {
		timer := time.NewTimer(p.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	var reply []string
	for {
		select {
		case line, ok := <-proc.lines:
			if !ok {
				p.teardownLocked("process exited", nil)
				return Verdict{}, unavailable("process exited")
			}
			if line == "" {
				return p.verdict(reply)
			}
			reply = append(reply, line)
		case <-timeout:
			p.teardownLocked("request timed out", nil)
			return Verdict{}, unavailable("no reply within %s", p.timeout)
		case <-ctx.Done():
			// The reply is still in flight; a fresh process is the only way
			// to stay in sync.
			p.teardownLocked("request cancelled", ctx.Err())
			return Verdict{}, ctx.Err()
		}
	}
}

// verdict folds the reply lines for one request. A word may be split by the
// backend into several tokens; it is correct only if every token is.
func (p *Pipe) verdict(lines []string) (Verdict, error) {
	result := Verdict{Correct: true}
	for _, line := range lines {
		v, err := p.dialect.ParseReply(line)
		if err != nil {
			return Verdict{}, err
		}
		if !v.Correct && result.Correct {
			result = v
		}
	}
	return result, nil
}

func (p *Pipe) ensureLocked(ctx context.Context) (*process, error) {
	if p.proc != nil {
		select {
		case <-p.proc.exited:
			p.teardownLocked("process exited", nil)
		default:
			return p.proc, nil
		}
	}
	proc, err := p.spawn(ctx)
	p.metrics.recordSpawn(ctx, p.dialect.Name(), err == nil)
	if err != nil {
		p.logger.Warn("checker start failed", "command", p.command, "error", err)
		return nil, err
	}
	p.proc = proc
	return proc, nil
}

func (p *Pipe) spawn(ctx context.Context) (*process, error) {
	path, err := exec.LookPath(p.command)
	if err != nil {
		return nil, unavailable("%s not found: %v", p.command, err)
	}

	cmd := exec.Command(path, p.args...)
	cmd.Env = append(os.Environ(), p.env...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, unavailable("stdin pipe: %v", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, unavailable("stdout pipe: %v", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, unavailable("start %s: %v", p.command, err)
	}

	proc := &process{
		id:     uuid.New(),
		cmd:    cmd,
		stdin:  stdin,
		lines:  make(chan string, 16),
		exited: make(chan struct{}),
	}
	go proc.read(stdout)

	wait := max(p.bannerWait, p.timeout)
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case banner, ok := <-proc.lines:
		if !ok {
			proc.kill()
			return nil, unavailable("%s exited before greeting", p.command)
		}
		if !strings.HasPrefix(banner, bannerPrefix) {
			proc.kill()
			return nil, unavailable("unexpected greeting %q", banner)
		}
	case <-timer.C:
		proc.kill()
		return nil, unavailable("%s did not greet within %s", p.command, wait)
	case <-ctx.Done():
		proc.kill()
		return nil, ctx.Err()
	}

	p.logger.Info("checker started", "pid", cmd.Process.Pid, "instance", proc.id.String())
	return proc, nil
}

// read forwards stdout lines until EOF, then reaps the process.
func (proc *process) read(stdout io.Reader) {
	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		proc.lines <- strings.TrimRight(sc.Text(), "\r")
	}
	close(proc.lines)
	_ = proc.cmd.Wait()
	close(proc.exited)
}

func (proc *process) kill() {
	_ = proc.stdin.Close()
	if proc.cmd.Process != nil {
		_ = proc.cmd.Process.Kill()
	}
	// unblock the reader if it is waiting on a full channel
	go func() {
		for range proc.lines {
		}
	}()
}

func (p *Pipe) teardownLocked(reason string, err error) {
	if p.proc == nil {
		return
	}
	attrs := []any{"instance", p.proc.id.String(), "reason", reason}
	if err != nil && !errors.Is(err, context.Canceled) {
		attrs = append(attrs, "error", err)
	}
	p.logger.Warn("checker stopped", attrs...)
	p.proc.kill()
	p.proc = nil
}

// Close stops the backend, giving it a moment to exit on its own once its
// input is closed.
func (p *Pipe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	proc := p.proc
	p.proc = nil
	if proc == nil {
		return nil
	}

	_ = proc.stdin.Close()
	go func() {
		for range proc.lines {
		}
	}()
	select {
	case <-proc.exited:
	case <-time.After(closeTimeout):
		if proc.cmd.Process != nil {
			_ = proc.cmd.Process.Kill()
		}
		<-proc.exited
	}
	p.logger.Info("checker closed", "instance", proc.id.String())
	return nil
}
