package mdstream

import (
	"strings"
	"unicode/utf8"
)

// stepRoot handles the start of a line in Document, Blockquote and
// LineBreak contexts. The first character of pending selects the block
// candidate; when every candidate fails the buffered run becomes a
// Paragraph, a CodeBlock or the continuation of the interrupted line.
func (p *Parser[T]) stepRoot(r rune) {
	if len(p.pending) == 0 {
		p.setPending(r)
		return
	}
	switch c := p.pending[0]; c {
	case ' ':
		p.indent = append(p.indent, ' ')
		p.indentLength++
		p.setPending(r)
		return
	case '\t':
		p.indent = append(p.indent, '\t')
		p.indentLength += 4
		p.setPending(r)
		return
	case '\n':
		// blank line
		p.closeUntil(p.blockquoteIndex)
		p.token = p.top()
		p.blockquoteIndex = 0
		p.backticksCount = 0
		p.clearRootPending()
		p.setPending(r)
		return
	case '#':
		switch r {
		case '#':
			if len(p.pending) < 6 {
				p.extend(r)
				return
			}
		case ' ':
			p.closeInline()
			p.addToken(HeadingToken(len(p.pending)))
			p.clearRootPending()
			return
		}
	case '>':
		next := p.indexOfToken(Blockquote, p.blockquoteIndex+1)
		if next == -1 {
			p.closeUntil(p.blockquoteIndex)
			p.blockquoteIndex++
			p.backticksCount = 0
			p.addToken(Blockquote)
		} else {
			p.blockquoteIndex = next
		}
		p.clearRootPending()
		p.setPending(r)
		return
	case '-', '*', '_':
		if p.hrChars == 0 {
			p.hrChars = 1
			p.hrChar = c
		}
		switch r {
		case rune(p.hrChar):
			p.hrChars++
			p.extend(r)
			return
		case ' ':
			p.extend(r)
			return
		case '\n':
			if p.hrChars >= 3 {
				p.closeInline()
				p.emitLeaf(Rule)
				p.clearRootPending()
				p.hrChars = 0
				return
			}
		}
		p.hrChars = 0
		if c != '_' && len(p.pending) > 1 && p.pending[1] == ' ' {
			rest := p.pendingWith(r)[2:]
			p.continueOrAddList(ListUnordered)
			p.addListItem(2)
			p.replayBytes(rest)
			return
		}
	case '`':
		if len(p.pending) < 3 {
			if r == '`' {
				p.extend(r)
				p.fenceTicks = len(p.pending)
				return
			}
			p.fenceTicks = 0
			break
		}
		switch r {
		case '`':
			if len(p.pending) == p.fenceTicks {
				p.extend(r)
				p.fenceTicks = len(p.pending)
				return
			}
			// a backtick inside the info string: not a fence
			p.fenceTicks = 0
		case '\n':
			p.closeInline()
			p.addToken(CodeFence)
			if len(p.pending) > p.fenceTicks {
				if lang := strings.TrimSpace(string(p.pending[p.fenceTicks:])); lang != "" {
					p.setAttr(Lang, lang)
				}
			}
			p.backticksCount = p.fenceTicks
			p.fenceTicks = 0
			p.codeFenceBody = 0
			p.fenceEscape = false
			p.clearRootPending()
			return
		default:
			p.extend(r)
			return
		}
	case '+':
		if r == ' ' {
			p.continueOrAddList(ListUnordered)
			p.addListItem(2)
			return
		}
	case '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		if p.pending[len(p.pending)-1] == '.' {
			if r != ' ' {
				break
			}
			start := string(p.pending[:len(p.pending)-1])
			prefix := len(p.pending) + 1
			if p.continueOrAddList(ListOrdered) && start != "1" {
				p.setAttr(Start, start)
			}
			p.addListItem(prefix)
			return
		}
		if r == '.' || isDigit(r) {
			p.extend(r)
			return
		}
	}
	p.failRoot(r)
}

// failRoot reinterprets the buffered run as content.
func (p *Parser[T]) failRoot(r rune) {
	switch {
	case p.token == LineBreak:
		p.token = p.top()
		p.emitLeaf(LineBreak)
		p.pendingWith(r)
	case p.indentLength >= 4:
		codeStart := 0
		for ; codeStart < 4 && codeStart < len(p.indent); codeStart++ {
			if p.indent[codeStart] == '\t' {
				codeStart++
				break
			}
		}
		p.scratch = append(p.scratch[:0], p.indent[codeStart:]...)
		p.scratch = append(p.scratch, p.pending...)
		p.scratch = utf8.AppendRune(p.scratch, r)
		p.addToken(CodeBlock)
	default:
		p.pendingWith(r)
		p.addToken(Paragraph)
	}
	p.clearRootPending()
	p.replayBytes(p.scratch)
}

// closeInline ends the line an interrupted inline context was waiting on,
// so a block construct opens at the current blockquote depth.
func (p *Parser[T]) closeInline() {
	if p.token != LineBreak {
		return
	}
	p.closeUntil(p.blockquoteIndex)
	p.token = p.top()
}

// stepCodeBlock continues an indented code block while lines keep four
// columns of indentation.
func (p *Parser[T]) stepCodeBlock(r rune) {
	pwc := p.pendingWith(r)
	switch bytesToString(pwc) {
	case "\n    ", "\n   \t", "\n  \t", "\n \t", "\n\t":
		p.text = append(p.text, '\n')
		p.pending = p.pending[:0]
	case "\n", "\n ", "\n  ", "\n   ":
		p.extend(r)
	default:
		if len(p.pending) > 0 {
			p.flushText()
			p.endToken()
			p.setPending(r)
			return
		}
		p.text = utf8.AppendRune(p.text, r)
	}
}

// stepCodeFence collects fenced code until a line holding only a backtick
// run of the opening length. A backslash before a backtick makes it literal.
func (p *Parser[T]) stepCodeFence(r rune) {
	if p.fenceEscape {
		p.fenceEscape = false
		if r == '`' {
			p.text = append(p.text, '`')
			return
		}
		p.text = append(p.text, '\\')
	}
	switch r {
	case '`':
		if _, trailing, ok := p.fenceCloser(); ok && trailing == 0 {
			p.extend(r)
			return
		}
		p.commitPending()
		p.pending = p.pending[:0]
		p.text = append(p.text, '`')
		p.codeFenceBody = 1
	case ' ', '\t':
		if ticks, _, ok := p.fenceCloser(); ok && ticks == p.backticksCount {
			p.extend(r)
			return
		}
		p.commitPending()
		p.text = utf8.AppendRune(p.text, r)
		p.pending = p.pending[:0]
		p.codeFenceBody = 1
	case '\n':
		if ticks, _, ok := p.fenceCloser(); ok && ticks == p.backticksCount {
			p.flushText()
			p.endToken()
			p.pending = p.pending[:0]
			p.replayRune(r)
			return
		}
		p.commitPending()
		p.setPending(r)
		p.codeFenceBody = 1
	case '\\':
		p.commitPending()
		p.pending = p.pending[:0]
		p.codeFenceBody = 1
		p.fenceEscape = true
	default:
		p.commitPending()
		p.text = utf8.AppendRune(p.text, r)
		p.pending = p.pending[:0]
		p.codeFenceBody = 1
	}
}

// fenceCloser reports whether pending could still be a closing fence line:
// a backtick run at the start of a line followed only by blanks.
func (p *Parser[T]) fenceCloser() (ticks, trailing int, ok bool) {
	b := p.pending
	if p.codeFenceBody != 0 {
		if len(b) == 0 || b[0] != '\n' {
			return 0, 0, false
		}
		b = b[1:]
	}
	for ticks < len(b) && b[ticks] == '`' {
		ticks++
	}
	for _, c := range b[ticks:] {
		if c != ' ' && c != '\t' {
			return 0, 0, false
		}
	}
	return ticks, len(b) - ticks, true
}
