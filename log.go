package mdstream

import (
	"bytes"
	"encoding/json"
	"io"

	"pkt.systems/mdstream/internal/palette"
)

// LogRenderer writes one line per parse event:
//
//	ADDTOKEN Paragraph
//	ADDTEXT "hello"
//	SETATTR href https://example.com
//	ENDTOKEN Paragraph
//
// Text is JSON quoted. Event names are dimmed when the writer has color
// enabled.
type LogRenderer struct{}

// LogWriter is the context of a LogRenderer.
type LogWriter struct {
	w     io.Writer
	color bool
	err   error
	buf   []byte
	quote bytes.Buffer
	enc   *json.Encoder
}

// NewLogWriter returns a LogWriter writing to w. Only WithColor applies.
func NewLogWriter(w io.Writer, opts ...Option) *LogWriter {
	cfg := newConfig(opts)
	return &LogWriter{w: w, color: cfg.color}
}

// Err returns the first write error.
func (l *LogWriter) Err() error {
	return l.err
}

func (LogRenderer) AddToken(l *LogWriter, token Token) {
	l.line(EventAddToken, token.String(), "")
}

func (LogRenderer) EndToken(l *LogWriter, token Token) {
	l.line(EventEndToken, token.String(), "")
}

func (LogRenderer) AddText(l *LogWriter, text string) {
	l.line(EventAddText, l.quoteJSON(text), "")
}

func (LogRenderer) SetAttr(l *LogWriter, attr Attr, value string) {
	l.line(EventSetAttr, attr.String(), value)
}

// quoteJSON quotes s the way JSON.stringify does, without HTML escaping.
func (l *LogWriter) quoteJSON(s string) string {
	if l.enc == nil {
		l.enc = json.NewEncoder(&l.quote)
		l.enc.SetEscapeHTML(false)
	}
	l.quote.Reset()
	if err := l.enc.Encode(s); err != nil {
		return `""`
	}
	return string(bytes.TrimSuffix(l.quote.Bytes(), []byte{'\n'}))
}

func (l *LogWriter) line(kind EventKind, arg, value string) {
	if l.err != nil {
		return
	}
	b := l.buf[:0]
	if l.color {
		b = append(b, palette.Dim...)
	}
	b = append(b, kind.String()...)
	if l.color {
		b = append(b, palette.Reset...)
	}
	b = append(b, ' ')
	b = append(b, arg...)
	if kind == EventSetAttr {
		b = append(b, ' ')
		b = append(b, value...)
	}
	b = append(b, '\n')
	l.buf = b
	_, l.err = l.w.Write(b)
}
