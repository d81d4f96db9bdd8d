package mdstream

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTMLRenderer serializes parse events as an HTML fragment. Start tags are
// written lazily so that attributes following AddToken land on the tag.
// Links, images and raw URLs are buffered until they close, since their
// destination is only known then.
type HTMLRenderer struct{}

func (HTMLRenderer) AddToken(w *HTMLWriter, token Token)          { w.open(token) }
func (HTMLRenderer) EndToken(w *HTMLWriter, token Token)          { w.close(token) }
func (HTMLRenderer) AddText(w *HTMLWriter, text string)           { w.text(text) }
func (HTMLRenderer) SetAttr(w *HTMLWriter, attr Attr, val string) { w.attr(attr, val) }

type htmlFrame struct {
	token Token
	href  string
	alt   strings.Builder
	buf   bytes.Buffer
}

// HTMLWriter is the output state of an HTMLRenderer.
type HTMLWriter struct {
	w       io.Writer
	err     error
	tagOpen bool
	// tagBreak adds a newline after the pending start tag.
	tagBreak bool
	captures []*htmlFrame
}

// NewHTMLWriter returns an HTMLWriter writing to w.
func NewHTMLWriter(w io.Writer) *HTMLWriter {
	return &HTMLWriter{w: w}
}

// Err returns the first write error.
func (w *HTMLWriter) Err() error {
	return w.err
}

// Flush terminates a start tag left open.
func (w *HTMLWriter) Flush() error {
	w.endStartTag()
	return w.err
}

func (w *HTMLWriter) write(s string) {
	if s == "" {
		return
	}
	if n := len(w.captures); n > 0 {
		w.captures[n-1].buf.WriteString(s)
		return
	}
	if w.err != nil {
		return
	}
	_, w.err = io.WriteString(w.w, s)
}

func (w *HTMLWriter) endStartTag() {
	if w.tagOpen {
		w.tagOpen = false
		w.write(">")
		if w.tagBreak {
			w.tagBreak = false
			w.write("\n")
		}
	}
}

func (w *HTMLWriter) startTag(name string) {
	w.endStartTag()
	w.write("<" + name)
	w.tagOpen = true
}

func (w *HTMLWriter) writeAttr(name, value string) {
	if !w.tagOpen {
		return
	}
	w.write(" " + name + `="` + html.EscapeString(value) + `"`)
}

func (w *HTMLWriter) open(t Token) {
	switch {
	case t == Document:
	case t.Is(Link | Image | RawURL):
		w.endStartTag()
		w.captures = append(w.captures, &htmlFrame{token: t})
	case t.Is(CodeBlock | CodeFence):
		w.startTag("pre")
		w.endStartTag()
		w.startTag("code")
	case t == Checkbox:
		w.startTag("input")
		w.writeAttr("disabled", "")
	default:
		w.startTag(htmlTag(t))
	}
	if t.Is(Blockquote | Lists) {
		w.tagBreak = true
	}
}

func (w *HTMLWriter) close(t Token) {
	switch {
	case t == Document:
		w.endStartTag()
	case t.Is(Link | Image | RawURL):
		n := len(w.captures)
		if n == 0 {
			return
		}
		w.endStartTag()
		f := w.captures[n-1]
		w.captures = w.captures[:n-1]
		switch t {
		case Image:
			w.write(`<img src="` + html.EscapeString(f.href) + `" alt="` + html.EscapeString(f.alt.String()) + `">`)
		case RawURL:
			href := f.href
			if href == "" {
				href = f.alt.String()
			}
			w.write(`<a href="` + html.EscapeString(href) + `">`)
			w.write(f.buf.String())
			w.write("</a>")
		default:
			w.write(`<a href="` + html.EscapeString(f.href) + `">`)
			w.write(f.buf.String())
			w.write("</a>")
		}
	case t.Is(Leaves):
		// void elements
		w.endStartTag()
		if t == LineBreak {
			w.write("\n")
		}
	case t.Is(CodeBlock | CodeFence):
		w.endStartTag()
		w.write("</code></pre>")
	default:
		w.endStartTag()
		w.write("</" + htmlTag(t) + ">")
	}
	if t.Is(Paragraph | Headings | Code&^CodeInline | Blockquote | Lists | ListItem | Rule) {
		w.write("\n")
	}
}

func (w *HTMLWriter) text(s string) {
	w.endStartTag()
	for _, f := range w.captures {
		f.alt.WriteString(s)
	}
	if n := len(w.captures); n > 0 && w.captures[n-1].token == Image {
		return
	}
	w.write(html.EscapeString(s))
}

func (w *HTMLWriter) attr(a Attr, value string) {
	if n := len(w.captures); n > 0 && !w.tagOpen {
		if a == Href || a == Src {
			w.captures[n-1].href = value
		}
		return
	}
	switch a {
	case Lang:
		w.writeAttr("class", "language-"+value)
	case Checked:
		w.writeAttr("checked", "")
	default:
		w.writeAttr(a.String(), value)
	}
}

func htmlTag(t Token) string {
	switch t {
	case Paragraph:
		return "p"
	case Heading1:
		return "h1"
	case Heading2:
		return "h2"
	case Heading3:
		return "h3"
	case Heading4:
		return "h4"
	case Heading5:
		return "h5"
	case Heading6:
		return "h6"
	case Blockquote:
		return "blockquote"
	case Checkbox:
		return "input"
	case CodeInline:
		return "code"
	case CodeBlock, CodeFence:
		return "pre"
	case LineBreak:
		return "br"
	case ListUnordered:
		return "ul"
	case ListOrdered:
		return "ol"
	case ListItem:
		return "li"
	case StrongAst, StrongUnd:
		return "strong"
	case ItalicAst, ItalicUnd:
		return "em"
	case Strike:
		return "s"
	case Link, RawURL:
		return "a"
	case Image:
		return "img"
	case Rule:
		return "hr"
	}
	return "span"
}
