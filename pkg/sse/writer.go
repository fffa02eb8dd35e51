package sse

import (
	"bufio"
	"io"
	"strings"
)

// Encoder writes SSE frames to an underlying writer.
type Encoder struct {
	w *bufio.Writer
}

// NewEncoder returns an Encoder writing to w. If w is already a
// *bufio.Writer it is used directly so Flush reaches the caller's buffer.
func NewEncoder(w io.Writer) *Encoder {
	bw, ok := w.(*bufio.Writer)
	if !ok {
		bw = bufio.NewWriter(w)
	}
	return &Encoder{w: bw}
}

// Encode writes ev and flushes it. Multi-line data is split into one
// "data:" field per line.
func (e *Encoder) Encode(ev Event) error {
	var b strings.Builder
	if ev.ID != "" {
		b.WriteString("id: " + oneLine(ev.ID) + "\n")
	}
	if ev.Type != "" {
		b.WriteString("event: " + oneLine(ev.Type) + "\n")
	}
	for line := range strings.SplitSeq(ev.Data, "\n") {
		b.WriteString("data: " + strings.TrimSuffix(line, "\r") + "\n")
	}
	b.WriteString("\n")

	if _, err := e.w.WriteString(b.String()); err != nil {
		return err
	}
	return e.w.Flush()
}

// Comment writes a comment line. Clients ignore it, which makes it useful
// as a keep-alive.
func (e *Encoder) Comment(text string) error {
	if _, err := e.w.WriteString(": " + oneLine(text) + "\n\n"); err != nil {
		return err
	}
	return e.w.Flush()
}

func oneLine(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
