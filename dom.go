package mdstream

import (
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DOMRenderer builds an x/net/html node tree from parse events.
type DOMRenderer struct{}

func (DOMRenderer) AddToken(d *DOM, token Token)          { d.open(token) }
func (DOMRenderer) EndToken(d *DOM, token Token)          { d.close(token) }
func (DOMRenderer) AddText(d *DOM, text string)           { d.text(text) }
func (DOMRenderer) SetAttr(d *DOM, attr Attr, val string) { d.attr(attr, val) }

// DOM is the context of a DOMRenderer. Nodes are appended under Root as
// they are opened, so the tree can be inspected while a stream is still in
// progress.
type DOM struct {
	Root *html.Node

	cur  *html.Node
	last *html.Node
}

// NewDOM returns an empty document.
func NewDOM() *DOM {
	root := &html.Node{Type: html.DocumentNode}
	return &DOM{Root: root, cur: root, last: root}
}

// Render serializes the tree as HTML.
func (d *DOM) Render(w io.Writer) error {
	for c := d.Root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(w, c); err != nil {
			return err
		}
	}
	return nil
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func (d *DOM) open(t Token) {
	if t == Document {
		return
	}
	var n *html.Node
	switch t {
	case CodeBlock, CodeFence:
		pre := element(atom.Pre)
		d.cur.AppendChild(pre)
		n = element(atom.Code)
		pre.AppendChild(n)
	case Checkbox:
		n = element(atom.Input, html.Attribute{Key: "disabled"})
		d.cur.AppendChild(n)
	default:
		n = element(atom.Lookup([]byte(htmlTag(t))))
		d.cur.AppendChild(n)
	}
	d.last = n
	if !t.Is(Leaves) {
		d.cur = n
	}
}

func (d *DOM) close(t Token) {
	switch {
	case t == Document || t.Is(Leaves):
		return
	case t.Is(CodeBlock | CodeFence):
		d.cur = d.cur.Parent.Parent
	default:
		d.cur = d.cur.Parent
	}
	d.last = d.cur
}

func (d *DOM) text(s string) {
	if d.cur.DataAtom == atom.Img {
		alt := attrIndex(d.cur, "alt")
		if alt == -1 {
			d.cur.Attr = append(d.cur.Attr, html.Attribute{Key: "alt", Val: s})
		} else {
			d.cur.Attr[alt].Val += s
		}
		return
	}
	if lc := d.cur.LastChild; lc != nil && lc.Type == html.TextNode {
		lc.Data += s
		return
	}
	d.cur.AppendChild(&html.Node{Type: html.TextNode, Data: s})
}

func (d *DOM) attr(a Attr, value string) {
	n := d.last
	if n == nil || n.Type != html.ElementNode {
		return
	}
	key := a.String()
	switch a {
	case Lang:
		key, value = "class", "language-"+value
	case Checked:
		value = ""
	}
	if i := attrIndex(n, key); i >= 0 {
		n.Attr[i].Val = value
		return
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: value})
}

func attrIndex(n *html.Node, key string) int {
	for i, a := range n.Attr {
		if a.Key == key {
			return i
		}
	}
	return -1
}
