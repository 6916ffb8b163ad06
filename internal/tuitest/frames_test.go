package tuitest

import (
	"bytes"
	"strings"
	"testing"
)

func TestSplitFramesOnEraseDisplay(t *testing.T) {
	raw := []byte("\x1b[2J\x1b[H\x1b[1mPubMed Scout\x1b[0m   \r\n\x1b[2JSearch PubMed\r\n\r\n")
	frames := splitFrames(raw)
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d: %#v", len(frames), frames)
	}
	if frames[0].Plain != "PubMed Scout" {
		t.Fatalf("unexpected first frame %q", frames[0].Plain)
	}
	if frames[1].Index != 1 || frames[1].Plain != "Search PubMed" {
		t.Fatalf("unexpected second frame %#v", frames[1])
	}
}

func TestSplitFramesWithoutSeparators(t *testing.T) {
	frames := splitFrames([]byte("\x1b]0;title\x07Chat Doc\r\n"))
	if len(frames) != 1 || frames[0].Plain != "Chat Doc" {
		t.Fatalf("unexpected frames %#v", frames)
	}
}

func TestRecordingLookups(t *testing.T) {
	rec := &Recording{Frames: splitFrames([]byte("\x1b[2Jone\x1b[2Jtwo\x1b[2Jtwo three"))}

	f, ok := rec.FirstFrameContaining("two")
	if !ok || f.Index != 1 {
		t.Fatalf("expected frame 1, got %#v ok=%v", f, ok)
	}
	if _, ok := rec.FirstFrameContaining("four"); ok {
		t.Fatalf("unexpected match for missing text")
	}
	last, ok := rec.FinalFrame()
	if !ok || last.Plain != "two three" {
		t.Fatalf("unexpected final frame %#v", last)
	}
	if got := strings.Count(rec.PlainText(), "----"); got != 2 {
		t.Fatalf("expected 2 separators, got %d", got)
	}

	var empty *Recording
	if _, ok := empty.FinalFrame(); ok {
		t.Fatalf("nil recording should have no frames")
	}
}

func TestQueryAnswererRepliesAcrossChunks(t *testing.T) {
	var replies bytes.Buffer
	a := newQueryAnswerer(&replies)

	a.Observe([]byte("hello\x1b]11"))
	a.Observe([]byte(";?\x07 and \x1b[6n"))

	want := "\x1b]11;rgb:0000/0000/0000\x07\x1b[1;1R"
	if replies.String() != want {
		t.Fatalf("unexpected replies %q", replies.String())
	}

	replies.Reset()
	a.Observe(bytes.Repeat([]byte("x"), 1024))
	if replies.Len() != 0 || len(a.pending) > pendingLimit {
		t.Fatalf("buffer not trimmed: %d pending, %q replied", len(a.pending), replies.String())
	}
}
