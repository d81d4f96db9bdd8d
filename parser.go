package mdstream

import (
	"context"
	"log/slog"
	"unicode/utf8"
	"unsafe"
)

// tokenStackCap is the inline capacity of the node stack. Deeper nesting
// grows the stack on the heap.
const tokenStackCap = 24

// Parser is an incremental Markdown parser. It consumes text in chunks of any
// size and reports structure to a Renderer as soon as it is unambiguous.
// Splitting the input differently never changes the emitted events, unless
// WithEagerText is enabled.
//
// A Parser is not safe for concurrent use.
type Parser[T any] struct {
	renderer Renderer[T]
	ctx      T
	cfg      config
	log      *slog.Logger

	// tokens is the open node stack; tokens[0] is always Document.
	tokens []Token
	// spaces records, per stack slot, the content column of a ListItem.
	spaces []int
	// token is the dispatch state. It equals the top of the stack except
	// while in one of the transient states LineBreak, MaybeURL or MaybeTask.
	token Token

	pending      []byte
	text         []byte
	indent       []byte
	indentLength int
	scratch      []byte
	replay       []rune

	backticksCount  int
	fenceTicks      int
	codeFenceBody   int
	fenceEscape     bool
	finishing       bool
	blockquoteIndex int
	hrChar          byte
	hrChars         int

	tail    [utf8.UTFMax]byte
	tailLen int

	tokensArr  [tokenStackCap]Token
	spacesArr  [tokenStackCap]int
	pendingArr [64]byte
	textArr    [256]byte
	indentArr  [16]byte
	scratchArr [64]byte
	replayArr  [64]rune
}

// NewParser returns a parser that reports to r, passing ctx to every call.
func NewParser[T any](r Renderer[T], ctx T, opts ...Option) *Parser[T] {
	p := &Parser[T]{renderer: r}
	p.configure(newConfig(opts))
	p.Reset(ctx)
	return p
}

func (p *Parser[T]) configure(cfg config) {
	p.cfg = cfg
	p.log = nil
	if cfg.logger != nil && cfg.logger.Enabled(context.Background(), slog.LevelDebug) {
		p.log = cfg.logger
	}
}

// Reset prepares the parser for a new document reported to ctx. Options are
// kept.
func (p *Parser[T]) Reset(ctx T) {
	p.ctx = ctx
	p.tokens = append(p.tokensArr[:0], Document)
	p.spaces = append(p.spacesArr[:0], 0)
	p.token = Document
	p.pending = p.pendingArr[:0]
	p.text = p.textArr[:0]
	p.indent = p.indentArr[:0]
	p.indentLength = 0
	p.scratch = p.scratchArr[:0]
	p.replay = p.replayArr[:0]
	p.backticksCount = 0
	p.fenceTicks = 0
	p.codeFenceBody = 0
	p.fenceEscape = false
	p.blockquoteIndex = 0
	p.hrChar = 0
	p.hrChars = 0
	p.tailLen = 0
}

// Depth returns the number of open nodes above Document.
func (p *Parser[T]) Depth() int {
	return len(p.tokens) - 1
}

// Write feeds a chunk of UTF-8 encoded Markdown. A multi-byte sequence split
// across chunks is completed by the following call; invalid bytes are
// skipped. The returned error is the one recorded by the renderer context,
// if it records any.
func (p *Parser[T]) Write(b []byte) (int, error) {
	n := len(b)
	if p.tailLen > 0 {
		need := utf8.UTFMax - p.tailLen
		if need > len(b) {
			need = len(b)
		}
		var smallBuf [utf8.UTFMax * 2]byte
		combined := smallBuf[:p.tailLen+need]
		copy(combined, p.tail[:p.tailLen])
		copy(combined[p.tailLen:], b[:need])
		rest := p.feedBytes(combined)
		consumed := len(combined) - len(rest)
		if consumed < p.tailLen {
			p.tailLen = copy(p.tail[:], rest)
			b = b[need:]
		} else {
			b = b[consumed-p.tailLen:]
			p.tailLen = 0
		}
	}
	if len(b) > 0 {
		rest := p.feedBytes(b)
		p.tailLen = copy(p.tail[:], rest)
	}
	p.endChunk()
	return n, p.err()
}

// WriteString is like Write for a string chunk.
func (p *Parser[T]) WriteString(s string) (int, error) {
	if p.tailLen > 0 {
		return p.Write([]byte(s))
	}
	n := len(s)
	for len(s) > 0 {
		if !utf8.FullRuneInString(s) {
			p.tailLen = copy(p.tail[:], s)
			break
		}
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]
		if r == utf8.RuneError && size == 1 {
			continue
		}
		p.feedRune(r)
	}
	p.endChunk()
	return n, p.err()
}

// Finish ends the document: a pending candidate is resolved as if a final
// newline arrived, buffered text is flushed and every open node is closed.
// A trailing backslash has nothing to escape and is kept as text.
// Calling Finish again, or on a parser at rest, emits nothing.
func (p *Parser[T]) Finish() {
	p.tailLen = 0
	if len(p.pending) > 0 {
		p.finishing = true
		p.feedRune('\n')
		p.finishing = false
	}
	if p.fenceEscape {
		p.text = append(p.text, '\\')
	}
	p.flushText()
	p.closeUntil(0)
	p.token = Document
	p.pending = p.pending[:0]
	p.clearRootPending()
	p.backticksCount = 0
	p.fenceTicks = 0
	p.blockquoteIndex = 0
	p.hrChars = 0
}

func (p *Parser[T]) err() error {
	var ctx any = p.ctx
	if r, ok := ctx.(errorReporter); ok {
		return r.Err()
	}
	return nil
}

func (p *Parser[T]) endChunk() {
	if p.cfg.eagerText && len(p.tokens) > 1 {
		p.flushText()
	}
}

func (p *Parser[T]) feedBytes(data []byte) []byte {
	for len(data) > 0 {
		if !utf8.FullRune(data) {
			return data
		}
		r, size := utf8.DecodeRune(data)
		data = data[size:]
		if r == utf8.RuneError && size == 1 {
			continue
		}
		p.feedRune(r)
	}
	return nil
}

// feedRune dispatches one character, then drains everything it queued for
// replay. Replayed runes are processed under whatever token is current when
// they are popped, exactly as if they had arrived from the input.
func (p *Parser[T]) feedRune(r rune) {
	if r == '\r' {
		return
	}
	p.step(r)
	for n := len(p.replay); n > 0; n = len(p.replay) {
		next := p.replay[n-1]
		p.replay = p.replay[:n-1]
		p.step(next)
	}
}

// replayBytes queues s to be dispatched before any other queued rune. The
// queue is a stack holding runes in reverse order.
func (p *Parser[T]) replayBytes(s []byte) {
	start := len(p.replay)
	for len(s) > 0 {
		r, size := utf8.DecodeRune(s)
		p.replay = append(p.replay, r)
		s = s[size:]
	}
	for i, j := start, len(p.replay)-1; i < j; i, j = i+1, j-1 {
		p.replay[i], p.replay[j] = p.replay[j], p.replay[i]
	}
	if p.log != nil && len(p.replay) > start {
		p.log.Debug("replay", "text", string(reverseRunes(p.replay[start:])), "token", p.token.String())
	}
}

func (p *Parser[T]) replayRune(r rune) {
	p.replay = append(p.replay, r)
}

func (p *Parser[T]) step(r rune) {
	switch p.token {
	case Document, LineBreak, Blockquote:
		p.stepRoot(r)
		return
	case CodeBlock:
		p.stepCodeBlock(r)
		return
	case CodeFence:
		p.stepCodeFence(r)
		return
	case CodeInline:
		p.stepCodeInline(r)
		return
	case MaybeTask:
		p.stepMaybeTask(r)
		return
	case MaybeURL:
		p.stepMaybeURL(r)
		return
	case RawURL:
		p.stepRawURL(r)
		return
	case StrongAst, StrongUnd:
		if p.stepStrong(r) {
			return
		}
	case ItalicAst, ItalicUnd:
		if p.stepItalic(r) {
			return
		}
	case Strike:
		if p.stepStrike(r) {
			return
		}
	case Link, Image:
		if p.stepLink(r) {
			return
		}
	}
	p.stepInline(r)
}

func (p *Parser[T]) addToken(t Token) {
	p.tokens = append(p.tokens, t)
	p.spaces = append(p.spaces, 0)
	p.token = t
	if p.log != nil {
		p.log.Debug("open", "token", t.String(), "depth", len(p.tokens)-1)
	}
	p.renderer.AddToken(p.ctx, t)
}

// endToken closes the top node. Closing Document is a bug in the parser.
func (p *Parser[T]) endToken() {
	top := len(p.tokens) - 1
	if top == 0 {
		panic("mdstream: close past document root")
	}
	closed := p.tokens[top]
	p.tokens = p.tokens[:top]
	p.spaces = p.spaces[:top]
	p.token = p.tokens[top-1]
	if closed.Is(CodeInline | CodeFence) {
		p.backticksCount = 0
		p.codeFenceBody = 0
		p.fenceEscape = false
	}
	if p.log != nil {
		p.log.Debug("close", "token", closed.String(), "depth", top-1)
	}
	p.renderer.EndToken(p.ctx, closed)
}

// emitLeaf reports a childless node without pushing it.
func (p *Parser[T]) emitLeaf(t Token) {
	if p.log != nil {
		p.log.Debug("leaf", "token", t.String(), "depth", len(p.tokens)-1)
	}
	p.renderer.AddToken(p.ctx, t)
	p.renderer.EndToken(p.ctx, t)
}

func (p *Parser[T]) setAttr(a Attr, value string) {
	if p.log != nil {
		p.log.Debug("attr", "attr", a.String(), "value", value)
	}
	p.renderer.SetAttr(p.ctx, a, value)
}

func (p *Parser[T]) flushText() {
	if len(p.text) == 0 {
		return
	}
	p.renderer.AddText(p.ctx, string(p.text))
	p.text = p.text[:0]
}

// closeUntil closes nodes until depth n remains.
func (p *Parser[T]) closeUntil(n int) {
	for len(p.tokens)-1 > n {
		p.endToken()
	}
}

func (p *Parser[T]) indexOfToken(t Token, start int) int {
	for i := start; i < len(p.tokens); i++ {
		if p.tokens[i]&t != 0 {
			return i
		}
	}
	return -1
}

func (p *Parser[T]) top() Token {
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser[T]) clearRootPending() {
	p.indent = p.indent[:0]
	p.indentLength = 0
	p.pending = p.pending[:0]
}

func (p *Parser[T]) setPending(r rune) {
	p.pending = utf8.AppendRune(p.pending[:0], r)
}

func (p *Parser[T]) extend(r rune) {
	p.pending = utf8.AppendRune(p.pending, r)
}

// pendingWith returns pending+r in the scratch buffer. The result is only
// valid until the next call.
func (p *Parser[T]) pendingWith(r rune) []byte {
	p.scratch = utf8.AppendRune(append(p.scratch[:0], p.pending...), r)
	return p.scratch
}

func (p *Parser[T]) commitPending() {
	p.text = append(p.text, p.pending...)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isAlnum(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func bytesToString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

func reverseRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[len(rs)-1-i] = r
	}
	return out
}
