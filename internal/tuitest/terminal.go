package tuitest

import (
	"bytes"
	"io"
)

// Bubble Tea and termenv probe the terminal at startup. A PTY has nobody on
// the other end to answer, so the queries below get canned replies.
var terminalQueries = []struct {
	query, reply string
}{
	{"\x1b[6n", "\x1b[1;1R"},
	{"\x1b]10;?\x07", "\x1b]10;rgb:cccc/cccc/cccc\x07"},
	{"\x1b]10;?\x1b\\", "\x1b]10;rgb:cccc/cccc/cccc\x1b\\"},
	{"\x1b]11;?\x07", "\x1b]11;rgb:0000/0000/0000\x07"},
	{"\x1b]11;?\x1b\\", "\x1b]11;rgb:0000/0000/0000\x1b\\"},
}

const (
	pendingLimit = 256
	pendingKeep  = 64
)

// queryAnswerer watches program output for terminal queries and writes the
// matching reply back into the PTY.
type queryAnswerer struct {
	w       io.Writer
	pending []byte
}

func newQueryAnswerer(w io.Writer) *queryAnswerer {
	return &queryAnswerer{w: w, pending: make([]byte, 0, pendingLimit)}
}

// Observe feeds a chunk of output. Queries split across chunks are still
// answered because a short tail is kept between calls.
func (a *queryAnswerer) Observe(chunk []byte) {
	a.pending = append(a.pending, chunk...)
	for a.answerNext() {
	}
	if len(a.pending) > pendingLimit {
		a.pending = append(a.pending[:0], a.pending[len(a.pending)-pendingKeep:]...)
	}
}

// answerNext replies to the earliest query in the buffer and drops
// everything up to its end.
func (a *queryAnswerer) answerNext() bool {
	at, end := -1, 0
	reply := ""
	for _, q := range terminalQueries {
		idx := bytes.Index(a.pending, []byte(q.query))
		if idx < 0 || (at >= 0 && idx >= at) {
			continue
		}
		at, end, reply = idx, idx+len(q.query), q.reply
	}
	if at < 0 {
		return false
	}
	a.pending = a.pending[end:]
	_, _ = io.WriteString(a.w, reply)
	return true
}
