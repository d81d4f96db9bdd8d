package mdstream

import (
	"bytes"
	"errors"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type parseCase struct {
	name string
	src  string
	want []tnode
}

func tree(nodes ...tnode) []tnode { return nodes }

func parserCorpus() []parseCase {
	var cases []parseCase
	add := func(name, src string, want ...tnode) {
		cases = append(cases, parseCase{name: name, src: src, want: want})
	}

	for level := 1; level <= 6; level++ {
		h := HeadingToken(level)
		marks := strings.Repeat("#", level)
		add("heading "+strconv.Itoa(level), marks+" foo", node(h, "foo"))
		add("heading "+strconv.Itoa(level)+" with italic", marks+" foo *bar*",
			node(h, "foo ", node(ItalicAst, "bar")))
		add("heading "+strconv.Itoa(level)+" after newline", "\n"+marks+" foo", node(h, "foo"))
	}

	add("line break", "foo\nbar", para("foo", br, "bar"))
	add("line break in italic", "*a\nb*", para(node(ItalicAst, "a", br, "b")))
	add("escaped line break", "a\\\nb", para("a", br, "b"))
	add("paragraphs", "foo\n\nbar", para("foo"), para("bar"))
	add("leading spaces trimmed", "  foo", para("foo"))
	add("repeated spaces collapsed", "foo       bar", para("foo bar"))
	add("repeated spaces collapsed in italic", "*foo       bar*", para(node(ItalicAst, "foo bar")))

	for _, c := range []string{"*", "-", "_"} {
		for l := 3; l <= 6; l++ {
			var src string
			for i := 0; i < l; i++ {
				if i%2 == 0 {
					src += " "
				}
				src += c
			}
			add("rule "+strconv.Quote(src), src, node(Rule))
		}
	}
	add("text after rule", "---\nfoo", node(Rule), para("foo"))

	for l := 1; l <= 4; l++ {
		c := strings.Repeat("`", l)
		n := strconv.Itoa(l)
		add("code inline "+n, c+"a"+c, para(node(CodeInline, "a")))
		add("code inline trims spaces "+n, c+" a "+c, para(node(CodeInline, "a")))
		add("code inline twice "+n, c+"a"+c+" "+c+"b"+c,
			para(node(CodeInline, "a"), " ", node(CodeInline, "b")))
		if l > 1 {
			m := strings.Repeat("`", l-1)
			add("code inline shorter run "+n, c+"a"+m+"b"+c, para(node(CodeInline, "a"+m+"b")))
		}
	}
	for l := 1; l <= 2; l++ {
		c := strings.Repeat("`", l)
		n := strconv.Itoa(l)
		add("code inline line break "+n, c+"a\nb"+c, para(node(CodeInline, "a", br, "b")))
		add("code inline blank line "+n, c+"a\n\nb", para(node(CodeInline, "a")), para("b"))
		add("backticks at line end "+n, "a "+c+"\nb", para("a "+c, br, "b"))
		add("backticks at end "+n, "a "+c, para("a "+c))
	}

	for l := 3; l <= 5; l++ {
		c := strings.Repeat("`", l)
		m := strings.Repeat("`", l-1)
		n := strconv.Itoa(l)
		add("empty fence "+n, c+"\n"+c, node(CodeFence))
		add("fence "+n, c+"\nfoo\n"+c, node(CodeFence, "foo"))
		add("fence with lang "+n, c+"js\nfoo\n"+c, node(CodeFence, "foo").with(Lang, "js"))
		add("fence shorter run "+n, c+"\n"+m+"\n"+c, node(CodeFence, m))
		add("fence unfinished close "+n, c+"\na\n"+m+"\n"+c, node(CodeFence, "a\n"+m))
		add("fence longer run "+n, c+"\nfoo\n"+c+"`", node(CodeFence, "foo\n"+c+"`"))
		add("fence longer run then close "+n, c+"\nfoo\n"+c+"``\nbar\n"+c+"\nbaz",
			node(CodeFence, "foo\n"+c+"``\nbar"), para("baz"))
		add("fence close with blanks "+n, c+"\nfoo\n"+c+" \t\nbar", node(CodeFence, "foo"), para("bar"))
		add("fence run with text "+n, c+"\n"+c+"x\n"+c, node(CodeFence, c+"x"))
		add("fence trailing backslash "+n, c+"\na\\", node(CodeFence, "a\\"))
	}

	for _, indent := range []string{"    ", "   \t", "  \t", " \t", "\t"} {
		q := strconv.Quote(indent)
		add("code block "+q, indent+"  foo", node(CodeBlock, "  foo"))
		add("code block lines "+q, indent+"foo\n"+indent+"bar", node(CodeBlock, "foo\nbar"))
		add("code block end "+q, indent+"foo\nbar", node(CodeBlock, "foo"), para("bar"))
	}

	for _, e := range []struct {
		c              string
		italic, strong Token
	}{
		{"*", ItalicAst, StrongAst},
		{"_", ItalicUnd, StrongUnd},
	} {
		c := e.c
		case1 := c + c + "bold" + c + "bold>em" + c + c + c
		case2 := c + c + c + "bold>em" + c + "bold" + c + c
		case3 := c + "em" + c + c + "em>bold" + c + c + c
		case4 := c + c + c + "bold>em" + c + c + "em" + c
		add("emphasis "+case1, case1, para(node(e.strong, "bold", node(e.italic, "bold>em"))))
		add("emphasis "+case2, case2, para(node(e.strong, node(e.italic, "bold>em"), "bold")))
		add("emphasis "+case3, case3, para(node(e.italic, "em", node(e.strong, "em>bold"))))
		add("emphasis "+case4, case4, para(node(e.strong, node(e.italic, "bold>em")), node(e.italic, "em")))
	}

	for _, e := range []struct {
		tok Token
		c   string
	}{
		{ItalicAst, "*"},
		{ItalicUnd, "_"},
		{StrongAst, "**"},
		{StrongUnd, "__"},
		{Strike, "~~"},
	} {
		var esc string
		for _, r := range e.c {
			esc += "\\" + string(r)
		}
		name := e.tok.String()
		add(name, e.c+"foo"+e.c, para(node(e.tok, "foo")))
		add(name+" space after open", "a "+e.c+" b"+e.c, para("a "+e.c+" b"+e.c))
		add(name+" with code", e.c+"`foo`"+e.c, para(node(e.tok, node(CodeInline, "foo"))))
		add(name+" new paragraph", "foo\n\n"+e.c+"bar"+e.c, para("foo"), para(node(e.tok, "bar")))
		add(name+" escaped open", esc+"foo", para(e.c+"foo"))
		add(name+" escaped close", e.c+"foo"+esc, para(node(e.tok, "foo"+e.c)))
	}

	add("escaped backtick", "\\`foo", para("`foo"))
	add("escaped backslash", "\\\\foo", para("\\foo"))
	add("backslash before letter", "\\a", para("\\a"))
	add("trailing backslash", "a\\", para("a\\"))
	add("lone backslash", "\\", para("\\"))

	for _, url := range []string{"http://example.com/page", "https://example.com/page"} {
		add("raw url "+url, url, para(node(RawURL, url).with(Href, url)))
		add("raw url in text "+url, "foo "+url+" bar",
			para("foo ", node(RawURL, url).with(Href, url), " bar"))
		add("url glued to word "+url, "foo"+url, para("foo"+url))
	}
	add("not a url", "http:/wrong.com", para("http:/wrong.com"))

	add("link", "[title](url)", para(node(Link, "title").with(Href, "url")))
	add("link with code", "[`title`](url)", para(node(Link, node(CodeInline, "title")).with(Href, "url")))
	add("link destination stops at line end", "[a](b\nc)", para(node(Link, "a"), "(b", br, "c)"))
	add("link new paragraph", "foo\n\n[title](url)", para("foo"), para(node(Link, "title").with(Href, "url")))
	add("image", "![title](url)", para(node(Image, "title").with(Src, "url")))
	add("image with code", "![`title`](url)", para(node(Image, "`title`").with(Src, "url")))
	add("link with image", "[![title](src)](href)",
		para(node(Link, node(Image, "title").with(Src, "src")).with(Href, "href")))
	add("escaped link open", "\\[foo](url)", para("[foo](url)"))
	add("escaped link close", "[foo\\](url)", para(node(Link, "foo](url)")))
	add("escaped backslashes around link", "\\\\[foo\\\\](url)",
		para("\\", node(Link, "foo\\").with(Href, "url")))

	bq := func(children ...any) tnode { return node(Blockquote, children...) }
	add("blockquote", "> foo", bq(para("foo")))
	add("blockquote without space", ">foo", bq(para("foo")))
	add("escaped blockquote", "\\> foo", para("> foo"))
	add("blockquote lazy continuation", "> foo\nbar", bq(para("foo", br, "bar")))
	add("blockquote continued", "> foo\n> bar", bq(para("foo", br, "bar")))
	add("blockquote end", "> foo\n\nbar", bq(para("foo")), para("bar"))
	add("blockquote heading", "> # foo", bq(node(Heading1, "foo")))
	add("blockquote fence", "> ```\nfoo\n```", bq(node(CodeFence, "foo")))
	add("nested blockquote", "> > foo", bq(bq(para("foo"))))
	add("blockquote deepens", "> foo\n> > bar", bq(para("foo"), bq(para("bar"))))
	add("blockquote shallows", "> > foo\n> \n> bar", bq(bq(para("foo")), para("bar")))
	add("nested blockquote continued", "> > foo\n> >\n> > bar", bq(bq(para("foo"), para("bar"))))
	add("blockquote sibling", "> > foo\n>\n> > bar", bq(bq(para("foo")), bq(para("bar"))))
	add("blockquote code with line break", "> > `a\nb`\n>\n> > c",
		bq(bq(para(node(CodeInline, "a", br, "b"))), bq(para("c"))))

	for _, e := range []struct {
		c   string
		tok Token
	}{
		{"*", ListUnordered},
		{"-", ListUnordered},
		{"+", ListUnordered},
		{"1.", ListOrdered},
		{"420.", ListOrdered},
	} {
		c := e.c
		list := func(children ...any) tnode {
			n := node(e.tok, children...)
			if c == "420." {
				n = n.with(Start, "420")
			}
			return n
		}
		item := func(children ...any) tnode { return node(ListItem, children...) }
		box := node(Checkbox).with(Type, "checkbox")
		checked := box.with(Checked, "")
		indent := strings.Repeat(" ", len(c)+1)
		short := strings.Repeat(" ", len(c))
		suffix := " " + c

		add("list"+suffix, c+" foo", list(item("foo")))
		add("list italic"+suffix, c+" *foo*", list(item(node(ItalicAst, "foo"))))
		add("list two items"+suffix, c+" a\n"+c+" b", list(item("a"), item("b")))
		add("list line break"+suffix, c+" a\nb", list(item("a", br, "b")))
		add("list end"+suffix, c+" a\n\nb", list(item("a")), para("b"))
		add("list after line"+suffix, "a\n"+c+" b", para("a"), list(item("b")))
		add("list task"+suffix, c+" [ ] foo", list(item(box, " foo")))
		add("list checked task"+suffix, c+" [x] foo", list(item(checked, " foo")))
		add("list two tasks"+suffix, c+" [ ] foo\n"+c+" [x] bar\n",
			list(item(box, " foo"), item(checked, " bar")))
		add("list link"+suffix, c+" [x](url)", list(item(node(Link, "x").with(Href, "url"))))
		add("list nested"+suffix, c+" a\n"+indent+c+" b", list(item("a", list(item("b")))))
		add("list not nested"+suffix, c+" a\n"+short+c+" b", list(item("a"), item("b")))
		add("list nested bullets"+suffix, c+" a\n"+indent+"* b\n"+indent+"* c\n",
			list(item("a", node(ListUnordered, item("b"), item("c")))))
		add("list nested then outer"+suffix, c+" a\n"+indent+"* b\n"+c+" c\n",
			list(item("a", node(ListUnordered, item("b"))), item("c")))
	}
	add("bullet under ordered item without enough indent", "1. a\n  * b",
		node(ListOrdered, node(ListItem, "a")),
		node(ListUnordered, node(ListItem, "b")))

	return cases
}

func TestParserCorpus(t *testing.T) {
	for _, tc := range parserCorpus() {
		t.Run(tc.name, func(t *testing.T) {
			requireTree(t, tc.want, parseTree(t, []string{tc.src}))
		})
		t.Run(tc.name+"/by_char", func(t *testing.T) {
			requireTree(t, tc.want, parseTree(t, byRune(tc.src)))
		})
	}
}

func TestParserChunkInvariance(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	sources := []string{string(readSample(t))}
	for _, tc := range parserCorpus() {
		sources = append(sources, tc.src)
	}
	for _, src := range sources {
		want := parseEvents(t, []string{src})
		require.Equal(t, want, parseEvents(t, byByte(src)), "byte chunks: %q", src)
		for i := 0; i < 5; i++ {
			require.Equal(t, want, parseEvents(t, randomChunks(rng, src, 7)), "random chunks: %q", src)
		}
	}
}

func TestParserEagerTextKeepsTree(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for _, tc := range parserCorpus() {
		got := parseTree(t, randomChunks(rng, tc.src, 3), WithEagerText(true))
		requireTree(t, tc.want, got)
	}
}

func TestParserEagerTextFlushesEachChunk(t *testing.T) {
	lazy := parseEvents(t, []string{"hel", "lo"})
	eager := parseEvents(t, []string{"hel", "lo"}, WithEagerText(true))
	require.Equal(t, []Event{
		{Kind: EventAddToken, Token: Paragraph},
		{Kind: EventAddText, Text: "hello"},
		{Kind: EventEndToken, Token: Paragraph},
	}, lazy)
	require.Equal(t, []Event{
		{Kind: EventAddToken, Token: Paragraph},
		{Kind: EventAddText, Text: "he"},
		{Kind: EventAddText, Text: "ll"},
		{Kind: EventAddText, Text: "o"},
		{Kind: EventEndToken, Token: Paragraph},
	}, eager)
}

func TestParserOpensNodesBeforeFinish(t *testing.T) {
	var log EventLog
	p := NewParser[*EventLog](EventRecorder{}, &log)
	_, err := p.WriteString("# Title\n\n> *quoted")
	require.NoError(t, err)
	require.Equal(t, 3, p.Depth())
	require.Equal(t, []Event{
		{Kind: EventAddToken, Token: Heading1},
		{Kind: EventAddText, Text: "Title"},
		{Kind: EventEndToken, Token: Heading1},
		{Kind: EventAddToken, Token: Blockquote},
		{Kind: EventAddToken, Token: Paragraph},
		{Kind: EventAddToken, Token: ItalicAst},
	}, log.Events)
}

func TestParserFinishIsIdempotent(t *testing.T) {
	var log EventLog
	p := NewParser[*EventLog](EventRecorder{}, &log)
	_, err := p.WriteString("- **open")
	require.NoError(t, err)
	p.Finish()
	n := len(log.Events)
	require.Equal(t, EventEndToken, log.Events[n-1].Kind)
	require.Equal(t, ListUnordered, log.Events[n-1].Token)
	require.Zero(t, p.Depth())

	p.Finish()
	require.Len(t, log.Events, n)

	fresh := NewParser[*EventLog](EventRecorder{}, &log)
	log.Reset()
	fresh.Finish()
	require.Empty(t, log.Events)
}

func TestParserReuseAfterFinish(t *testing.T) {
	b := newTreeBuilder()
	p := NewParser[*treeBuilder](treeRenderer{}, b)
	_, _ = p.WriteString("*a*")
	p.Finish()
	_, _ = p.WriteString("b")
	p.Finish()
	require.Empty(t, b.errs)
	requireTree(t, tree(para(node(ItalicAst, "a")), para("b")), b.root.Children)

	other := newTreeBuilder()
	p.Reset(other)
	_, _ = p.WriteString("# x")
	p.Finish()
	requireTree(t, tree(node(Heading1, "x")), other.root.Children)
}

func TestParserSplitMultibyte(t *testing.T) {
	src := "é 🚀 漢"
	got := parseTree(t, byByte(src))
	requireTree(t, tree(para(src)), got)
}

func TestParserSkipsInvalidUTF8(t *testing.T) {
	got := parseTree(t, []string{"a\xffb"})
	requireTree(t, tree(para("ab")), got)
}

func TestParserDropsCarriageReturn(t *testing.T) {
	got := parseTree(t, []string{"foo\r\nbar\r\n\r\nbaz"})
	requireTree(t, tree(para("foo", br, "bar"), para("baz")), got)
}

func TestParserOrderedListStart(t *testing.T) {
	got := parseTree(t, []string{"3. a\n4. b\n"})
	requireTree(t, tree(node(ListOrdered, node(ListItem, "a"), node(ListItem, "b")).with(Start, "3")), got)
}

func TestParserHeadingNeedsSpace(t *testing.T) {
	requireTree(t, tree(para("#foo")), parseTree(t, []string{"#foo"}))
	requireTree(t, tree(para("####### x")), parseTree(t, []string{"####### x"}))
}

func TestParserDeepNesting(t *testing.T) {
	src := strings.Repeat("> ", 40) + "deep"
	got := parseTree(t, []string{src})
	depth := 0
	for n := got; len(n) == 1 && n[0].Token == Blockquote; n = n[0].Children {
		depth++
	}
	require.Equal(t, 40, depth)
}

type failingContext struct{ err error }

func (f *failingContext) Err() error { return f.err }

type failingRenderer struct{}

func (failingRenderer) AddToken(f *failingContext, _ Token)         {}
func (failingRenderer) EndToken(f *failingContext, _ Token)         {}
func (failingRenderer) AddText(f *failingContext, _ string)         { f.err = errBoom }
func (failingRenderer) SetAttr(f *failingContext, _ Attr, _ string) {}

var errBoom = errors.New("boom")

func TestParserWriteReportsContextError(t *testing.T) {
	ctx := &failingContext{}
	p := NewParser[*failingContext](failingRenderer{}, ctx)
	_, err := p.WriteString("plain")
	require.NoError(t, err)
	_, err = p.WriteString("\n\nnext")
	require.ErrorIs(t, err, errBoom)
}

func TestTokenStrings(t *testing.T) {
	require.Equal(t, "Document", Document.String())
	require.Equal(t, "RawUrl", RawURL.String())
	require.Equal(t, "MaybeTask", MaybeTask.String())
	require.Equal(t, "Token(3)", (Document | Paragraph).String())
	require.Equal(t, "href", Href.String())
	require.Equal(t, "type", Type.String())
	for level := 1; level <= 6; level++ {
		require.Equal(t, level, HeadingToken(level).HeadingLevel())
	}
	require.Equal(t, Heading1, HeadingToken(0))
	require.Equal(t, Heading6, HeadingToken(9))
	require.True(t, StrongUnd.Is(Strongs))
	require.False(t, Paragraph.Is(Leaves))
}

func TestParserTracesWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	parseTree(t, []string{"# a\n---\n"}, WithLogger(logger))
	out := buf.String()
	require.Contains(t, out, "msg=open token=Heading1 depth=1")
	require.Contains(t, out, "msg=close token=Heading1 depth=0")
	require.Contains(t, out, "msg=leaf token=Rule depth=0")

	buf.Reset()
	quiet := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	parseTree(t, []string{"# a\n"}, WithLogger(quiet))
	require.Zero(t, buf.Len())
}
