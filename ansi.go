package mdstream

import (
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
)

const (
	ansiReset = "\x1b[0m"
	osc8Start = "\x1b]8;;"
	osc8End   = "\x1b]8;;\x1b\\"
)

// ANSIRenderer renders parse events as styled, word-wrapped terminal text.
// Its context is an ANSIWriter; call Flush on the writer once the parser is
// finished.
type ANSIRenderer struct{}

func (ANSIRenderer) AddToken(w *ANSIWriter, token Token)          { w.open(token) }
func (ANSIRenderer) EndToken(w *ANSIWriter, token Token)          { w.close(token) }
func (ANSIRenderer) AddText(w *ANSIWriter, text string)           { w.text(text) }
func (ANSIRenderer) SetAttr(w *ANSIWriter, attr Attr, val string) { w.attr(attr, val) }

type ansiFrame struct {
	token Token
	style string
	// marker is written on the first line of the block, indent on every
	// following line.
	marker        string
	indent        string
	prefixStyle   string
	markerPending bool
	// lists
	ordinal int
	// links, images, raw URLs and checkboxes
	href    string
	label   strings.Builder
	checked bool
}

type ansiSeg struct {
	text  string
	style string
	raw   bool
}

// ANSIWriter is the output state of an ANSIRenderer.
type ANSIWriter struct {
	w      io.Writer
	width  int
	styles Styles
	osc8   bool
	err    error

	frames  []*ansiFrame
	free    []*ansiFrame
	capture int

	active      string
	col         int
	lineStarted bool
	lineContent bool
	needGap     bool
	wroteBlock  bool

	word       []ansiSeg
	wordWidth  int
	space      bool
	spaceStyle string
}

// NewANSIWriter returns a terminal writer wrapping at width columns (0
// disables wrapping). Only WithOSC8 applies.
func NewANSIWriter(w io.Writer, width int, theme Theme, opts ...Option) *ANSIWriter {
	aw := &ANSIWriter{}
	aw.reset(w, width, theme, newConfig(opts))
	return aw
}

func (w *ANSIWriter) reset(out io.Writer, width int, theme Theme, cfg config) {
	if theme == nil {
		theme = DefaultTheme()
	}
	for _, f := range w.frames {
		w.release(f)
	}
	*w = ANSIWriter{
		w:      out,
		width:  width,
		styles: theme.Styles(),
		osc8:   cfg.osc8,
		frames: w.frames[:0],
		free:   w.free,
		word:   w.word[:0],
	}
}

// Err returns the first write error.
func (w *ANSIWriter) Err() error {
	return w.err
}

// Flush writes buffered words and terminates the last line.
func (w *ANSIWriter) Flush() error {
	w.flushWord()
	if w.lineStarted {
		w.endLine()
	}
	if w.active != "" {
		w.write(ansiReset)
		w.active = ""
	}
	return w.err
}

func (w *ANSIWriter) write(s string) {
	if w.err != nil || s == "" {
		return
	}
	_, w.err = io.WriteString(w.w, s)
}

func (w *ANSIWriter) push(t Token) *ansiFrame {
	var f *ansiFrame
	if n := len(w.free); n > 0 {
		f = w.free[n-1]
		w.free = w.free[:n-1]
	} else {
		f = &ansiFrame{}
	}
	f.token = t
	w.frames = append(w.frames, f)
	return f
}

func (w *ANSIWriter) pop() *ansiFrame {
	n := len(w.frames)
	if n == 0 {
		return nil
	}
	f := w.frames[n-1]
	w.frames = w.frames[:n-1]
	return f
}

func (w *ANSIWriter) release(f *ansiFrame) {
	f.label.Reset()
	*f = ansiFrame{}
	w.free = append(w.free, f)
}

func (w *ANSIWriter) parent() *ansiFrame {
	if n := len(w.frames); n > 0 {
		return w.frames[n-1]
	}
	return nil
}

func (w *ANSIWriter) open(t Token) {
	if w.capture > 0 {
		w.push(t)
		if t.Is(Link | Image | RawURL) {
			w.capture++
		}
		return
	}
	switch {
	case t == Document:
		return
	case t == Paragraph:
		w.blockStart(true)
		w.push(t)
	case t.Is(Headings):
		w.blockStart(true)
		f := w.push(t)
		level := t.HeadingLevel()
		f.style = w.styles.Heading[level-1].Prefix
		f.prefixStyle = f.style
		f.marker = strings.Repeat("#", level) + " "
		f.indent = strings.Repeat(" ", len(f.marker))
		f.markerPending = true
	case t.Is(CodeBlock | CodeFence):
		w.blockStart(true)
		f := w.push(t)
		f.style = w.styles.CodeBlock.Prefix
	case t == Blockquote:
		w.blockStart(true)
		f := w.push(t)
		f.marker = "> "
		f.indent = "> "
		f.prefixStyle = w.styles.Quote.Prefix
		f.style = w.styles.Quote.Prefix
	case t.Is(Lists):
		p := w.parent()
		w.blockStart(p == nil || p.token != ListItem)
		f := w.push(t)
		f.ordinal = 1
	case t == ListItem:
		w.blockStart(false)
		f := w.push(t)
		marker := "- "
		if list := w.parent2(); list != nil && list.token == ListOrdered {
			marker = strconv.Itoa(list.ordinal) + ". "
			list.ordinal++
		}
		f.marker = marker
		f.indent = strings.Repeat(" ", len(marker))
		f.prefixStyle = w.styles.ListMarker.Prefix
		f.markerPending = true
	case t == Rule:
		w.blockStart(true)
		w.push(t)
	case t == LineBreak:
		w.flushWord()
		w.push(t)
	case t.Is(Link | Image | RawURL):
		w.push(t)
		w.capture++
	case t == Checkbox:
		w.push(t)
	case t.Is(Italics):
		w.push(t).style = w.styles.Emphasis.Prefix
	case t.Is(Strongs):
		w.push(t).style = w.styles.Strong.Prefix
	case t == Strike:
		w.push(t).style = w.styles.Strike.Prefix
	case t == CodeInline:
		w.push(t).style = w.styles.CodeInline.Prefix
	default:
		w.push(t)
	}
}

// parent2 returns the frame below the top one.
func (w *ANSIWriter) parent2() *ansiFrame {
	if n := len(w.frames); n > 1 {
		return w.frames[n-2]
	}
	return nil
}

func (w *ANSIWriter) close(t Token) {
	if t == Document {
		return
	}
	f := w.pop()
	if f == nil {
		return
	}
	defer w.release(f)
	if w.capture > 0 && !t.Is(Link|Image|RawURL) {
		// inline markup inside a link label is kept as plain text
		return
	}
	switch {
	case t.Is(Link | Image | RawURL):
		w.capture--
		if w.capture > 0 {
			if outer := w.captureFrame(); outer != nil {
				outer.label.WriteString(f.label.String())
			}
			return
		}
		w.link(f)
	case t == Paragraph, t.Is(Headings):
		w.flushWord()
		if f.markerPending {
			w.frames = append(w.frames, f)
			w.ensureLine()
			w.frames = w.frames[:len(w.frames)-1]
		}
		w.blockEnd()
	case t.Is(CodeBlock | CodeFence):
		if w.lineStarted {
			w.emit(" ", w.currentStyle()+f.style)
		}
		w.blockEnd()
	case t == Blockquote:
		w.flushWord()
		w.blockEnd()
	case t.Is(Lists):
		w.flushWord()
		if p := w.parent(); p == nil || p.token != ListItem {
			w.blockEnd()
		}
	case t == ListItem:
		w.flushWord()
		if f.markerPending {
			w.frames = append(w.frames, f)
			w.ensureLine()
			w.frames = w.frames[:len(w.frames)-1]
		}
		if w.lineStarted {
			w.endLine()
		}
	case t == Rule:
		w.ensureLine()
		n := 40
		if w.width > 0 {
			n = w.width - w.col
		}
		if n < 3 {
			n = 3
		}
		w.emit(strings.Repeat("─", n), w.styles.ThematicBreak.Prefix)
		w.blockEnd()
	case t == LineBreak:
		w.ensureLine()
		w.endLine()
	case t == Checkbox:
		mark := "[ ]"
		if f.checked {
			mark = "[x]"
		}
		w.appendWord(mark, w.styles.Checkbox.Prefix)
		w.flushWord()
	}
}

func (w *ANSIWriter) attr(a Attr, value string) {
	f := w.parent()
	if f == nil {
		return
	}
	switch a {
	case Href, Src:
		f.href = value
	case Checked:
		f.checked = true
	case Start:
		if n, err := strconv.Atoi(value); err == nil {
			f.ordinal = n
		}
	}
}

func (w *ANSIWriter) captureFrame() *ansiFrame {
	for i := len(w.frames) - 1; i >= 0; i-- {
		if w.frames[i].token.Is(Link | Image | RawURL) {
			return w.frames[i]
		}
	}
	return nil
}

func (w *ANSIWriter) text(s string) {
	if w.capture > 0 {
		if f := w.captureFrame(); f != nil {
			f.label.WriteString(s)
		}
		return
	}
	if w.inCode() {
		w.codeText(s)
		return
	}
	w.words(s, w.currentStyle())
}

func (w *ANSIWriter) inCode() bool {
	for i := len(w.frames) - 1; i >= 0; i-- {
		if w.frames[i].token.Is(CodeBlock | CodeFence) {
			return true
		}
	}
	return false
}

func (w *ANSIWriter) currentStyle() string {
	var b strings.Builder
	b.WriteString(w.styles.Text.Prefix)
	for _, f := range w.frames {
		b.WriteString(f.style)
	}
	return b.String()
}

// link writes a finished Link, Image or RawURL.
func (w *ANSIWriter) link(f *ansiFrame) {
	label := f.label.String()
	href := f.href
	if f.token == RawURL && href == "" {
		href = label
	}
	if f.token == Image && label == "" {
		label = "image"
	}
	style := w.currentStyle() + w.styles.LinkText.Prefix
	if w.osc8 && href != "" {
		w.appendRaw(osc8Start + href + "\x1b\\")
		if f.token == RawURL {
			w.appendWord(w.fitURL(label), style)
		} else {
			w.words(label, style)
		}
		w.appendRaw(osc8End)
		return
	}
	if f.token == RawURL {
		w.appendWord(w.fitURL(label), style)
		return
	}
	w.words(label, style)
	if href != "" && href != label {
		w.flushWord()
		w.space = true
		w.spaceStyle = w.currentStyle()
		w.appendWord("("+w.fitURL(href)+")", w.currentStyle()+w.styles.LinkURL.Prefix)
	}
}

func (w *ANSIWriter) fitURL(url string) string {
	if w.width <= 0 {
		return url
	}
	limit := w.width - ansi.PrintableRuneWidth(w.plainPrefix()) - 2
	if limit < 8 {
		limit = 8
	}
	return shortenURL(url, limit)
}

// shortenURL fits url into limit columns: the scheme goes first, then the
// tail is cut behind an ellipsis.
func shortenURL(url string, limit int) string {
	if ansi.PrintableRuneWidth(url) <= limit {
		return url
	}
	if _, rest, ok := strings.Cut(url, "://"); ok && ansi.PrintableRuneWidth(rest) <= limit {
		return rest
	}
	return truncate.StringWithTail(url, uint(limit), "…")
}

// words splits s at spaces into wrappable words.
func (w *ANSIWriter) words(s, style string) {
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		switch {
		case r == ' ' || r == '\n':
			w.flushWord()
			w.space = true
			w.spaceStyle = style
		case isControlRune(r):
		default:
			w.appendWord(s[:size], style)
		}
		s = s[size:]
	}
}

func (w *ANSIWriter) appendWord(s, style string) {
	if n := len(w.word); n > 0 && !w.word[n-1].raw && w.word[n-1].style == style {
		w.word[n-1].text += s
	} else {
		w.word = append(w.word, ansiSeg{text: s, style: style})
	}
	w.wordWidth += ansi.PrintableRuneWidth(s)
}

func (w *ANSIWriter) appendRaw(s string) {
	w.word = append(w.word, ansiSeg{text: s, raw: true})
}

func (w *ANSIWriter) flushWord() {
	if len(w.word) == 0 {
		return
	}
	space := w.space && w.lineContent
	spaceWidth := 0
	if space {
		spaceWidth = 1
	}
	if w.width > 0 && w.lineContent && w.col+spaceWidth+w.wordWidth > w.width {
		w.endLine()
		space = false
	}
	w.ensureLine()
	if space {
		w.emit(" ", w.spaceStyle)
	}
	for _, seg := range w.word {
		if seg.raw {
			w.write(seg.text)
			continue
		}
		if w.width > 0 && w.col+ansi.PrintableRuneWidth(seg.text) > w.width {
			w.emitBroken(seg.text, seg.style)
			continue
		}
		w.emit(seg.text, seg.style)
	}
	w.lineContent = true
	w.word = w.word[:0]
	w.wordWidth = 0
	w.space = false
}

// emitBroken hard-wraps a word longer than the line.
func (w *ANSIWriter) emitBroken(s, style string) {
	for _, r := range s {
		rs := string(r)
		rw := ansi.PrintableRuneWidth(rs)
		if w.lineContent && w.col+rw > w.width {
			w.endLine()
			w.ensureLine()
		}
		w.emit(rs, style)
		w.lineContent = true
	}
}

func (w *ANSIWriter) codeText(s string) {
	style := w.currentStyle()
	for len(s) > 0 {
		line, rest, nl := strings.Cut(s, "\n")
		if line != "" || !w.lineStarted {
			w.ensureCodeLine(style)
		}
		w.emit(strings.ReplaceAll(line, "\t", "    "), style)
		if nl {
			w.emit(" ", style)
			w.endLine()
		}
		s = rest
	}
}

func (w *ANSIWriter) ensureCodeLine(style string) {
	if w.lineStarted {
		return
	}
	w.ensureLine()
	w.emit(" ", style)
	w.lineContent = true
}

// blockStart ends the current line and separates blocks with an empty line
// when gap is set.
func (w *ANSIWriter) blockStart(gap bool) {
	w.flushWord()
	w.space = false
	if w.lineStarted {
		w.endLine()
	}
	if gap && w.needGap && w.wroteBlock {
		w.gapLine()
	}
	w.needGap = false
}

func (w *ANSIWriter) blockEnd() {
	if w.lineStarted {
		w.endLine()
	}
	w.space = false
	w.needGap = true
	w.wroteBlock = true
}

func (w *ANSIWriter) gapLine() {
	quotes := 0
	for _, f := range w.frames {
		if f.token == Blockquote {
			quotes++
		}
	}
	if quotes > 0 {
		w.emit(strings.TrimSuffix(strings.Repeat("> ", quotes), " "), w.styles.Quote.Prefix)
	}
	w.endLine()
}

// ensureLine writes the container prefix of a new line.
func (w *ANSIWriter) ensureLine() {
	if w.lineStarted {
		return
	}
	w.lineStarted = true
	for _, f := range w.frames {
		if f.markerPending {
			w.emit(f.marker, f.prefixStyle)
			f.markerPending = false
			continue
		}
		if f.indent != "" {
			w.emit(f.indent, f.prefixStyle)
		}
	}
}

func (w *ANSIWriter) plainPrefix() string {
	var b strings.Builder
	for _, f := range w.frames {
		b.WriteString(f.indent)
	}
	return b.String()
}

func (w *ANSIWriter) emit(s, style string) {
	if s == "" {
		return
	}
	if style != w.active {
		if w.active != "" {
			w.write(ansiReset)
		}
		w.active = style
		w.write(style)
	}
	w.write(s)
	w.col += ansi.PrintableRuneWidth(s)
}

func (w *ANSIWriter) endLine() {
	if w.active != "" {
		w.write(ansiReset)
		w.active = ""
	}
	w.write("\n")
	w.col = 0
	w.lineStarted = false
	w.lineContent = false
}
