package mdstream

import (
	"fmt"
	"math/rand"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// tnode is a node of the tree built from parse events. Text nodes have a
// zero Token.
type tnode struct {
	Token    Token
	Text     string
	Attrs    map[Attr]string
	Children []tnode
}

func (n tnode) String() string {
	var b strings.Builder
	n.write(&b, 0)
	return b.String()
}

func (n tnode) write(b *strings.Builder, depth int) {
	pad := strings.Repeat("  ", depth)
	if n.Token == 0 {
		fmt.Fprintf(b, "%s%q\n", pad, n.Text)
		return
	}
	fmt.Fprintf(b, "%s%s", pad, n.Token)
	if len(n.Attrs) > 0 {
		fmt.Fprintf(b, " %v", n.Attrs)
	}
	b.WriteByte('\n')
	for _, c := range n.Children {
		c.write(b, depth+1)
	}
}

func node(t Token, children ...any) tnode {
	n := tnode{Token: t}
	for _, c := range children {
		switch v := c.(type) {
		case string:
			n.Children = append(n.Children, tnode{Text: v})
		case tnode:
			n.Children = append(n.Children, v)
		default:
			panic(fmt.Sprintf("unexpected child %T", c))
		}
	}
	return n
}

func (n tnode) with(a Attr, value string) tnode {
	attrs := make(map[Attr]string, len(n.Attrs)+1)
	for k, v := range n.Attrs {
		attrs[k] = v
	}
	attrs[a] = value
	n.Attrs = attrs
	return n
}

func para(children ...any) tnode { return node(Paragraph, children...) }

var br = node(LineBreak)

// treeBuilder is a Renderer that assembles a tnode tree and records any
// violation of event nesting.
type treeBuilder struct {
	root  tnode
	stack []*tnode
	errs  []string
}

func newTreeBuilder() *treeBuilder {
	b := &treeBuilder{root: tnode{Token: Document}}
	b.stack = []*tnode{&b.root}
	return b
}

type treeRenderer struct{}

func (treeRenderer) AddToken(b *treeBuilder, t Token) {
	if t == Document {
		b.errs = append(b.errs, "Document opened")
		return
	}
	if t.Is(MaybeURL | MaybeTask) {
		b.errs = append(b.errs, "internal token "+t.String()+" emitted")
	}
	top := b.stack[len(b.stack)-1]
	top.Children = append(top.Children, tnode{Token: t})
	b.stack = append(b.stack, &top.Children[len(top.Children)-1])
}

func (treeRenderer) EndToken(b *treeBuilder, t Token) {
	if len(b.stack) == 1 {
		b.errs = append(b.errs, "EndToken "+t.String()+" with nothing open")
		return
	}
	top := b.stack[len(b.stack)-1]
	if top.Token != t {
		b.errs = append(b.errs, "EndToken "+t.String()+" closes "+top.Token.String())
	}
	b.stack = b.stack[:len(b.stack)-1]
}

func (treeRenderer) AddText(b *treeBuilder, text string) {
	if text == "" {
		b.errs = append(b.errs, "empty AddText")
		return
	}
	top := b.stack[len(b.stack)-1]
	if n := len(top.Children); n > 0 && top.Children[n-1].Token == 0 {
		top.Children[n-1].Text += text
		return
	}
	top.Children = append(top.Children, tnode{Text: text})
}

func (treeRenderer) SetAttr(b *treeBuilder, a Attr, value string) {
	top := b.stack[len(b.stack)-1]
	if top.Token == Document {
		b.errs = append(b.errs, "SetAttr "+a.String()+" on Document")
		return
	}
	*top = top.with(a, value)
}

// parseTree parses chunks, finishes the parser and returns the children of
// Document.
func parseTree(t *testing.T, chunks []string, opts ...Option) []tnode {
	t.Helper()
	b := newTreeBuilder()
	p := NewParser[*treeBuilder](treeRenderer{}, b, opts...)
	for _, c := range chunks {
		_, err := p.WriteString(c)
		require.NoError(t, err)
	}
	p.Finish()
	require.Empty(t, b.errs)
	require.Len(t, b.stack, 1, "nodes left open")
	require.Zero(t, p.Depth())
	return b.root.Children
}

func parseEvents(t *testing.T, chunks []string, opts ...Option) []Event {
	t.Helper()
	var log EventLog
	p := NewParser[*EventLog](EventRecorder{}, &log, opts...)
	for _, c := range chunks {
		_, err := p.Write([]byte(c))
		require.NoError(t, err)
	}
	p.Finish()
	return log.Events
}

func byByte(s string) []string {
	out := make([]string, len(s))
	for i := range s {
		out[i] = s[i : i+1]
	}
	return out
}

func byRune(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// randomChunks splits s at random byte offsets, including inside multi-byte
// characters.
func randomChunks(rng *rand.Rand, s string, maxSize int) []string {
	var out []string
	for len(s) > 0 {
		n := 1 + rng.Intn(maxSize)
		if n > len(s) {
			n = len(s)
		}
		out = append(out, s[:n])
		s = s[n:]
	}
	return out
}

func requireTree(t *testing.T, want, got []tnode) {
	t.Helper()
	if len(want) == 0 && len(got) == 0 {
		return
	}
	require.Equal(t, want, got, "want:\n%s\ngot:\n%s", treeString(want), treeString(got))
}

func treeString(ns []tnode) string {
	var b strings.Builder
	for _, n := range ns {
		n.write(&b, 0)
	}
	return b.String()
}

func readSample(tb testing.TB) []byte {
	tb.Helper()
	data, err := os.ReadFile("testdata/sample.md")
	require.NoError(tb, err)
	return data
}
