package tui

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/csheth/pubmedscout/internal/pubmed"
)

const (
	searchJobTimeout = 60 * time.Second
	chatJobTimeout   = 2 * time.Minute
	openJobTimeout   = 10 * time.Second
)

// Searcher issues a PubMed search against the backend.
type Searcher interface {
	Search(ctx context.Context, query string) ([]pubmed.Paper, error)
}

// Asker sends one chat question about a paper and returns the answer.
type Asker interface {
	Ask(ctx context.Context, pmid, message string) (string, error)
}

// ClipboardWriter places text on the system clipboard.
type ClipboardWriter interface {
	WriteAll(text string) error
}

// URLOpener opens a URL in the user's browser.
type URLOpener interface {
	Open(ctx context.Context, url string) error
}

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

type systemOpener struct{}

func (systemOpener) Open(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

func searchJob(searcher Searcher, seq uint64, query string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, searchJobTimeout)
		defer cancel()
		papers, err := searcher.Search(ctx, query)
		return searchResultMsg{seq: seq, query: query, papers: papers, err: err}, err
	}
}

func askJob(asker Asker, pmid string, seq uint64, question string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, chatJobTimeout)
		defer cancel()
		answer, err := asker.Ask(ctx, pmid, question)
		return chatAnswerMsg{pmid: pmid, seq: seq, answer: answer, err: err}, err
	}
}

func copyJob(writer ClipboardWriter, kind clipboardKind, text string) jobRunner {
	return func(context.Context) (tea.Msg, error) {
		err := writer.WriteAll(text)
		return clipboardResultMsg{kind: kind, err: err}, err
	}
}

func openJob(opener URLOpener, url string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, openJobTimeout)
		defer cancel()
		err := opener.Open(ctx, url)
		return openResultMsg{url: url, err: err}, err
	}
}
