package mdstream

import (
	"strings"
	"unicode/utf8"
)

func (p *Parser[T]) stepCodeInline(r rune) {
	switch r {
	case '`':
		lead := 0
		if len(p.pending) > 0 && p.pending[0] == ' ' {
			lead = 1
		}
		if len(p.pending)+1 == p.backticksCount+lead {
			p.flushText()
			p.endToken()
			p.pending = p.pending[:0]
			return
		}
		p.extend(r)
	case '\n':
		p.commitPending()
		p.pending = p.pending[:0]
		p.token = LineBreak
		p.blockquoteIndex = 0
		p.flushText()
	case ' ':
		p.commitPending()
		p.setPending(r)
	default:
		p.commitPending()
		p.text = utf8.AppendRune(p.text, r)
		p.pending = p.pending[:0]
	}
}

// stepMaybeTask matches "[ ] " or "[x] " at the start of a list item.
func (p *Parser[T]) stepMaybeTask(r rune) {
	switch len(p.pending) {
	case 0:
		if r == '[' {
			p.extend(r)
			return
		}
	case 1:
		if r == ' ' || r == 'x' || r == 'X' {
			p.extend(r)
			return
		}
	case 2:
		if r == ']' {
			p.extend(r)
			return
		}
	case 3:
		if r == ' ' {
			checked := p.pending[1] != ' '
			p.renderer.AddToken(p.ctx, Checkbox)
			p.setAttr(Type, "checkbox")
			if checked {
				p.setAttr(Checked, "")
			}
			p.renderer.EndToken(p.ctx, Checkbox)
			p.token = p.top()
			p.setPending(' ')
			return
		}
	}
	toWrite := p.pendingWith(r)
	p.token = p.top()
	p.pending = p.pending[:0]
	p.replayBytes(toWrite)
}

func (p *Parser[T]) stepStrong(r rune) bool {
	symbol, italic := byte('*'), ItalicAst
	if p.token == StrongUnd {
		symbol, italic = '_', ItalicUnd
	}
	if len(p.pending) != 1 || p.pending[0] != symbol {
		return false
	}
	p.flushText()
	if r == rune(symbol) {
		p.endToken()
		p.pending = p.pending[:0]
		return true
	}
	p.addToken(italic)
	p.setPending(r)
	return true
}

// stepItalic closes or nests emphasis. A doubled delimiter inside an italic
// whose parent is the matching strong is held until the next character
// shows which of the two closes first.
func (p *Parser[T]) stepItalic(r rune) bool {
	symbol, strong := byte('*'), StrongAst
	if p.token == ItalicUnd {
		symbol, strong = '_', StrongUnd
	}
	switch {
	case len(p.pending) == 1 && p.pending[0] == symbol:
		if r == rune(symbol) {
			if p.tokens[len(p.tokens)-2] == strong {
				p.extend(r)
				return true
			}
			p.flushText()
			p.addToken(strong)
			p.pending = p.pending[:0]
			return true
		}
		p.flushText()
		p.endToken()
		p.setPending(r)
		return true
	case len(p.pending) == 2 && p.pending[0] == symbol && p.pending[1] == symbol:
		italic := p.token
		p.flushText()
		p.endToken()
		p.endToken()
		if r != rune(symbol) {
			p.addToken(italic)
			p.setPending(r)
		} else {
			p.pending = p.pending[:0]
		}
		return true
	}
	return false
}

func (p *Parser[T]) stepStrike(r rune) bool {
	if r != '~' || len(p.pending) != 1 || p.pending[0] != '~' {
		return false
	}
	p.flushText()
	p.endToken()
	p.pending = p.pending[:0]
	return true
}

// stepMaybeURL tracks a "http://" or "https://" prefix. Any deviation hands
// the character back to the enclosing context with the prefix still pending.
func (p *Parser[T]) stepMaybeURL(r rune) {
	pwc := p.pendingWith(r)
	s := bytesToString(pwc)
	switch {
	case s == "http://" || s == "https://":
		p.flushText()
		p.addToken(RawURL)
		p.pending = append(p.pending[:0], pwc...)
		p.text = append(p.text[:0], pwc...)
	case strings.HasPrefix("http://", s) || strings.HasPrefix("https://", s):
		p.extend(r)
	default:
		p.token = p.top()
		p.replayRune(r)
	}
}

func (p *Parser[T]) stepRawURL(r rune) {
	switch r {
	case ' ', '\n', '\\':
		p.setAttr(Href, string(p.pending))
		p.flushText()
		p.endToken()
		p.setPending(r)
	default:
		p.text = utf8.AppendRune(p.text, r)
		p.extend(r)
	}
}

// stepLink handles the "](destination)" tail of links and images.
func (p *Parser[T]) stepLink(r rune) bool {
	if len(p.pending) == 1 && p.pending[0] == ']' {
		p.flushText()
		if r == '(' {
			p.extend(r)
		} else {
			p.endToken()
			p.setPending(r)
		}
		return true
	}
	if len(p.pending) < 2 || p.pending[0] != ']' || p.pending[1] != '(' {
		return false
	}
	switch r {
	case ')':
		attr := Href
		if p.token == Image {
			attr = Src
		}
		p.setAttr(attr, string(p.pending[2:]))
		p.endToken()
		p.pending = p.pending[:0]
	case '\n':
		// destinations do not span lines
		rest := p.pendingWith(r)[1:]
		p.endToken()
		p.pending = p.pending[:0]
		p.replayBytes(rest)
	default:
		p.extend(r)
	}
	return true
}

// stepInline applies the rules shared by every inline context.
func (p *Parser[T]) stepInline(r rune) {
	if len(p.pending) > 0 {
		switch c := p.pending[0]; c {
		case '\\':
			if r == '\n' {
				if p.finishing {
					p.text = append(p.text, '\\')
					p.pending = p.pending[:0]
					return
				}
				p.setPending(r)
				return
			}
			p.pending = p.pending[:0]
			if isAlnum(r) {
				p.text = append(p.text, '\\')
			}
			p.text = utf8.AppendRune(p.text, r)
			return
		case '\n':
			p.flushText()
			p.token = LineBreak
			if p.top().Is(Headings) {
				p.endToken()
				if !p.token.Is(Document | Blockquote) {
					p.token = LineBreak
				}
			}
			p.blockquoteIndex = 0
			p.setPending(r)
			return
		case '`':
			if p.token.Is(Image) {
				break
			}
			if r == '`' {
				p.extend(r)
				return
			}
			if r == '\n' {
				// a run at the end of a line opens nothing
				p.commitPending()
				p.setPending(r)
				return
			}
			p.backticksCount = len(p.pending)
			p.flushText()
			p.addToken(CodeInline)
			if r != ' ' {
				p.text = utf8.AppendRune(p.text, r)
			}
			p.pending = p.pending[:0]
			return
		case '*', '_':
			if p.token.Is(Image) {
				break
			}
			italic, strong := ItalicAst, StrongAst
			if c == '_' {
				italic, strong = ItalicUnd, StrongUnd
			}
			if len(p.pending) == 1 {
				if r == rune(c) {
					p.extend(r)
					return
				}
				if r != ' ' && r != '\n' {
					p.flushText()
					p.addToken(italic)
					p.setPending(r)
					return
				}
				break
			}
			if r == rune(c) {
				p.flushText()
				p.addToken(strong)
				p.addToken(italic)
				p.pending = p.pending[:0]
				return
			}
			if r != ' ' && r != '\n' {
				p.flushText()
				p.addToken(strong)
				p.setPending(r)
				return
			}
		case '~':
			if p.token.Is(Image | Strike) {
				break
			}
			if len(p.pending) == 1 {
				if r == '~' {
					p.extend(r)
					return
				}
				break
			}
			if r != ' ' && r != '\n' {
				p.flushText()
				p.addToken(Strike)
				p.setPending(r)
				return
			}
		case '[':
			if !p.token.Is(Image|Link) && r != ']' {
				p.flushText()
				p.addToken(Link)
				p.setPending(r)
				return
			}
		case '!':
			if !p.token.Is(Image) && r == '[' {
				p.flushText()
				p.addToken(Image)
				p.pending = p.pending[:0]
				return
			}
		case ' ':
			if r == ' ' {
				return
			}
		}
	}
	if r == 'h' && !p.token.Is(Image|Link) &&
		(len(p.pending) == 0 || (len(p.pending) == 1 && p.pending[0] == ' ')) {
		p.commitPending()
		p.setPending(r)
		p.token = MaybeURL
		return
	}
	p.commitPending()
	p.setPending(r)
}
