package mdstream

import (
	"bytes"
	"strings"
	"testing"

	"github.com/andybalholm/cascadia"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func queryAll(t *testing.T, root *html.Node, sel string) []*html.Node {
	t.Helper()
	s, err := cascadia.Compile(sel)
	require.NoError(t, err, sel)
	return s.MatchAll(root)
}

func TestDOMSample(t *testing.T) {
	dom, err := ParseDOM(bytes.NewReader(readSample(t)))
	require.NoError(t, err)

	h1 := queryAll(t, dom.Root, "h1")
	require.Len(t, h1, 1)
	require.Equal(t, "Streaming Markdown", textContent(h1[0]))
	require.Len(t, queryAll(t, dom.Root, "h2"), 2)

	require.Len(t, queryAll(t, dom.Root, "pre > code"), 2)
	goCode := queryAll(t, dom.Root, "pre > code.language-go")
	require.Len(t, goCode, 1)
	require.Contains(t, textContent(goCode[0]), `fmt.Println("hello")`)

	require.Len(t, queryAll(t, dom.Root, `a[href="https://example.com"]`), 1)
	require.Len(t, queryAll(t, dom.Root, `a[href="https://example.com/docs"]`), 1)

	img := queryAll(t, dom.Root, `img[src="https://example.com/logo.png"]`)
	require.Len(t, img, 1)
	alt, _ := attr(img[0], "alt")
	require.Equal(t, "an image", alt)
	require.Len(t, queryAll(t, dom.Root, `a[href="https://example.com/ci"] > img[src="b.svg"]`), 1)

	require.Len(t, queryAll(t, dom.Root, "ul > li > ul > li"), 2)
	require.Len(t, queryAll(t, dom.Root, "input[type=checkbox]"), 2)
	require.Len(t, queryAll(t, dom.Root, "input[type=checkbox][checked]"), 1)
	require.Len(t, queryAll(t, dom.Root, `ol[start="7"] > li`), 2)
	require.Len(t, queryAll(t, dom.Root, "blockquote blockquote p"), 1)
	require.Len(t, queryAll(t, dom.Root, "hr"), 1)
	require.Len(t, queryAll(t, dom.Root, "s"), 1)
}

func TestDOMRenderMatchesHTMLWriter(t *testing.T) {
	for _, src := range []string{
		"# Hello\n\nBody *em*.\n",
		"- a\n- b\n",
		"> q\n",
		"[x](u) and `c`\n",
	} {
		dom, err := ParseDOM(strings.NewReader(src))
		require.NoError(t, err)
		var got bytes.Buffer
		require.NoError(t, dom.Render(&got))

		want, err := RenderString(src)
		require.NoError(t, err)
		require.Equal(t, strings.ReplaceAll(want, "\n", ""), got.String(), "input %q", src)
	}
}

func TestDOMIsInspectableMidStream(t *testing.T) {
	dom := NewDOM()
	p := NewParser[*DOM](DOMRenderer{}, dom)
	_, err := p.WriteString("# Title\n\nsome **bo")
	require.NoError(t, err)
	require.Len(t, queryAll(t, dom.Root, "h1"), 1)
	require.Len(t, queryAll(t, dom.Root, "p > strong"), 1)
	p.Finish()
	require.Equal(t, "bo", textContent(queryAll(t, dom.Root, "p > strong")[0]))
}
