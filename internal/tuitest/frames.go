package tuitest

import (
	"regexp"
	"strings"
)

// Frame is one screen's worth of output between two erase-display sequences.
type Frame struct {
	Index int
	ANSI  string
	Plain string
}

// Contains reports whether the frame's plain text includes substr.
func (f Frame) Contains(substr string) bool {
	return strings.Contains(f.Plain, substr)
}

var (
	eraseDisplay = regexp.MustCompile(`\x1b\[[0-9;]*J`)
	csiSequence  = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
	oscSequence  = regexp.MustCompile(`\x1b\][^\x07]*(\x07|\x1b\\)`)
)

func splitFrames(raw []byte) []Frame {
	stream := strings.ReplaceAll(string(raw), "\r", "")
	var frames []Frame
	for _, chunk := range eraseDisplay.Split(stream, -1) {
		chunk = strings.TrimPrefix(strings.Trim(chunk, "\x00"), "\x1b[H")
		plain := plainText(chunk)
		if strings.TrimSpace(plain) == "" {
			continue
		}
		frames = append(frames, Frame{Index: len(frames), ANSI: chunk, Plain: plain})
	}
	// The inline renderer never clears the whole screen, so the stream may
	// hold no separators at all.
	if len(frames) == 0 && stream != "" {
		frames = append(frames, Frame{ANSI: stream, Plain: plainText(stream)})
	}
	return frames
}

// FinalFrame returns the last captured frame.
func (r *Recording) FinalFrame() (Frame, bool) {
	if r == nil || len(r.Frames) == 0 {
		return Frame{}, false
	}
	return r.Frames[len(r.Frames)-1], true
}

// FirstFrameContaining returns the earliest frame whose plain text contains
// substr. The renderer only repaints changed lines, so text drawn once may
// never show up in a later frame.
func (r *Recording) FirstFrameContaining(substr string) (Frame, bool) {
	if r == nil {
		return Frame{}, false
	}
	for _, f := range r.Frames {
		if f.Contains(substr) {
			return f, true
		}
	}
	return Frame{}, false
}

// PlainText joins every frame, for failure messages.
func (r *Recording) PlainText() string {
	if r == nil {
		return ""
	}
	parts := make([]string, 0, len(r.Frames))
	for _, f := range r.Frames {
		parts = append(parts, f.Plain)
	}
	return strings.Join(parts, "\n----\n")
}

func plainText(s string) string {
	s = oscSequence.ReplaceAllString(s, "")
	s = csiSequence.ReplaceAllString(s, "")
	s = strings.NewReplacer("\x0e", "", "\x0f", "").Replace(s)

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
