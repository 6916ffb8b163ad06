// Package tuitest drives a terminal program inside a pseudo terminal and
// records what it draws, so end-to-end tests can assert on rendered screens.
package tuitest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
)

const (
	defaultWidth   = 120
	defaultHeight  = 32
	defaultTimeout = 5 * time.Second
)

// Step is one scripted interaction: sleep for Delay, then write Input.
type Step struct {
	Delay time.Duration
	Input []byte
}

var (
	KeyEnter = []byte{'\r'}
	KeyCtrlC = []byte{3}
	KeyEsc   = []byte{27}
	KeyTab   = []byte{'\t'}
)

// Wait pauses the script so the program can render.
func Wait(d time.Duration) Step { return Step{Delay: d} }

// Key writes raw key bytes.
func Key(b []byte) Step { return Step{Input: b} }

// Type writes text as if typed at the keyboard.
func Type(text string) Step { return Step{Input: []byte(text)} }

// Config describes the program to spawn and the script to replay.
type Config struct {
	Command          []string
	Dir              string
	Env              []string
	Width            int
	Height           int
	Steps            []Step
	Timeout          time.Duration
	AllowedExitCodes []int
	// AllowInterrupt accepts termination by SIGINT as a clean exit.
	AllowInterrupt bool
}

func (c Config) withDefaults() Config {
	if c.Width <= 0 {
		c.Width = defaultWidth
	}
	if c.Height <= 0 {
		c.Height = defaultHeight
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// Recording holds the raw output stream and the frames parsed from it.
type Recording struct {
	Raw      []byte
	Frames   []Frame
	Duration time.Duration
}

// lockedBuffer is written by the PTY reader while Run waits for exit.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

// Run starts cfg.Command in a PTY, replays cfg.Steps and waits for the
// program to exit.
func Run(ctx context.Context, cfg Config) (*Recording, error) {
	if len(cfg.Command) == 0 {
		return nil, errors.New("tuitest: command is required")
	}
	cfg = cfg.withDefaults()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, cfg.Command[0], cfg.Command[1:]...)
	cmd.Dir = cfg.Dir
	cmd.Env = environment(cfg.Env)

	term, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(cfg.Height), Cols: uint16(cfg.Width)})
	if err != nil {
		return nil, fmt.Errorf("tuitest: start program: %w", err)
	}
	defer func() { _ = term.Close() }()

	var output lockedBuffer
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		answerer := newQueryAnswerer(term)
		buf := make([]byte, 4096)
		for {
			n, err := term.Read(buf)
			if n > 0 {
				answerer.Observe(buf[:n])
				_, _ = output.Write(buf[:n])
			}
			if err != nil {
				return
			}
		}
	}()

	start := time.Now()
	if err := replay(ctx, term, cfg.Steps); err != nil {
		return nil, err
	}
	if err := waitExit(ctx, cmd, cfg); err != nil {
		return nil, err
	}

	_ = term.Close()
	<-readerDone

	raw := output.Bytes()
	return &Recording{Raw: raw, Frames: splitFrames(raw), Duration: time.Since(start)}, nil
}

func replay(ctx context.Context, term *os.File, steps []Step) error {
	for _, step := range steps {
		if step.Delay > 0 {
			timer := time.NewTimer(step.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("tuitest: script interrupted: %w", ctx.Err())
			case <-timer.C:
			}
		}
		if len(step.Input) == 0 {
			continue
		}
		if _, err := term.Write(step.Input); err != nil {
			return fmt.Errorf("tuitest: write input: %w", err)
		}
	}
	return nil
}

func waitExit(ctx context.Context, cmd *exec.Cmd, cfg Config) error {
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	select {
	case err := <-exited:
		if err == nil || exitAllowed(err, cfg) {
			return nil
		}
		return fmt.Errorf("tuitest: program exited with error: %w", err)
	case <-ctx.Done():
		return fmt.Errorf("tuitest: timeout waiting for program exit: %w", ctx.Err())
	}
}

func exitAllowed(err error, cfg Config) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	for _, code := range cfg.AllowedExitCodes {
		if exitErr.ExitCode() == code {
			return true
		}
	}
	return cfg.AllowInterrupt && strings.Contains(exitErr.Error(), "signal: interrupt")
}

// environment inherits the caller's variables and makes sure TERM is set so
// lipgloss picks a color profile.
func environment(extra []string) []string {
	env := append(os.Environ(), extra...)
	for _, kv := range env {
		if strings.HasPrefix(kv, "TERM=") {
			return env
		}
	}
	return append(env, "TERM=xterm-256color")
}
