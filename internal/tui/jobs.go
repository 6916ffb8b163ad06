package tui

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

type jobKind string

type jobStatus string

const (
	jobKindSearch jobKind = "search"
	jobKindChat   jobKind = "chat"
	jobKindCopy   jobKind = "copy"
	jobKindOpen   jobKind = "open"
)

const (
	jobStatusRunning   jobStatus = "running"
	jobStatusSucceeded jobStatus = "succeeded"
	jobStatusFailed    jobStatus = "failed"
)

type jobSnapshot struct {
	ID          string
	Kind        jobKind
	Status      jobStatus
	StartedAt   time.Time
	CompletedAt time.Time
	Err         string
	Duration    time.Duration
}

type jobSignalMsg struct {
	Snapshot jobSnapshot
}

type jobResultEnvelope struct {
	Snapshot jobSnapshot
	Payload  tea.Msg
}

type jobRunner func(context.Context) (tea.Msg, error)

type jobBus struct {
	counter int64
	logger  zerolog.Logger
}

func newJobBus(logger zerolog.Logger) *jobBus {
	return &jobBus{logger: logger}
}

func (b *jobBus) nextID(kind jobKind) string {
	idx := atomic.AddInt64(&b.counter, 1)
	return fmt.Sprintf("%s-%d", kind, idx)
}

// Start runs runner off the event loop. A jobSignalMsg is delivered first,
// then a jobResultEnvelope wrapping the runner's message. Cancelling ctx
// aborts the runner's network calls.
func (b *jobBus) Start(ctx context.Context, kind jobKind, runner jobRunner) tea.Cmd {
	if ctx == nil {
		ctx = context.Background()
	}
	id := b.nextID(kind)
	started := time.Now()
	startSnapshot := jobSnapshot{ID: id, Kind: kind, Status: jobStatusRunning, StartedAt: started}
	startCmd := func() tea.Msg {
		return jobSignalMsg{Snapshot: startSnapshot}
	}

	runCmd := func() tea.Msg {
		payload, err := runner(b.logger.WithContext(ctx))
		snapshot := jobSnapshot{
			ID:          id,
			Kind:        kind,
			StartedAt:   started,
			CompletedAt: time.Now(),
		}
		if err != nil {
			snapshot.Status = jobStatusFailed
			snapshot.Err = err.Error()
		} else {
			snapshot.Status = jobStatusSucceeded
		}
		snapshot.Duration = snapshot.CompletedAt.Sub(started)
		event := b.logger.Debug()
		if err != nil {
			event = b.logger.Warn().Err(err)
		}
		event.Str("job", id).Str("status", string(snapshot.Status)).Dur("duration", snapshot.Duration).Msg("job finished")
		return jobResultEnvelope{Snapshot: snapshot, Payload: payload}
	}

	return tea.Sequence(startCmd, runCmd)
}
