package mdstream

import "strconv"

// Token identifies a node kind. Every kind is a distinct bit so that a set of
// kinds can be tested with a single mask, e.g. tok&(Link|Image) != 0.
type Token uint32

const (
	Document Token = 1 << iota
	Paragraph
	Heading1
	Heading2
	Heading3
	Heading4
	Heading5
	Heading6
	CodeBlock
	CodeFence
	CodeInline
	ItalicAst
	ItalicUnd
	StrongAst
	StrongUnd
	Strike
	Link
	RawURL
	Image
	Blockquote
	LineBreak
	Rule
	ListUnordered
	ListOrdered
	ListItem
	Checkbox
	// MaybeURL and MaybeTask are lookahead states of the parser. They are
	// never pushed on the node stack and never reach a Renderer.
	MaybeURL
	MaybeTask
)

// Common token sets.
const (
	Headings = Heading1 | Heading2 | Heading3 | Heading4 | Heading5 | Heading6
	Italics  = ItalicAst | ItalicUnd
	Strongs  = StrongAst | StrongUnd
	Lists    = ListUnordered | ListOrdered
	Code     = CodeBlock | CodeFence | CodeInline
	// Leaves are emitted as an AddToken/EndToken pair without children.
	Leaves = LineBreak | Rule | Checkbox
)

var tokenLabels = [...]string{
	"Document",
	"Paragraph",
	"Heading1",
	"Heading2",
	"Heading3",
	"Heading4",
	"Heading5",
	"Heading6",
	"CodeBlock",
	"CodeFence",
	"CodeInline",
	"ItalicAst",
	"ItalicUnd",
	"StrongAst",
	"StrongUnd",
	"Strike",
	"Link",
	"RawUrl",
	"Image",
	"Blockquote",
	"LineBreak",
	"Rule",
	"ListUnordered",
	"ListOrdered",
	"ListItem",
	"Checkbox",
	"MaybeUrl",
	"MaybeTask",
}

// String returns the label of a single token. Combined sets are printed as
// their numeric value.
func (t Token) String() string {
	if t != 0 && t&(t-1) == 0 {
		idx := 0
		for v := t; v > 1; v >>= 1 {
			idx++
		}
		if idx < len(tokenLabels) {
			return tokenLabels[idx]
		}
	}
	return "Token(" + strconv.FormatUint(uint64(t), 10) + ")"
}

// Is reports whether t is a member of set.
func (t Token) Is(set Token) bool {
	return t&set != 0
}

// HeadingLevel returns 1..6 for heading tokens and 0 otherwise.
func (t Token) HeadingLevel() int {
	switch t {
	case Heading1:
		return 1
	case Heading2:
		return 2
	case Heading3:
		return 3
	case Heading4:
		return 4
	case Heading5:
		return 5
	case Heading6:
		return 6
	}
	return 0
}

// HeadingToken returns the heading token for level 1..6, clamping out of
// range levels.
func HeadingToken(level int) Token {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return Heading1 << (level - 1)
}

// Attr identifies an attribute set on the most recently opened node.
type Attr uint8

const (
	Href Attr = iota
	Src
	Lang
	Checked
	Start
	Type
)

var attrNames = [...]string{"href", "src", "lang", "checked", "start", "type"}

// String returns the wire name of the attribute.
func (a Attr) String() string {
	if int(a) < len(attrNames) {
		return attrNames[a]
	}
	return "attr(" + strconv.Itoa(int(a)) + ")"
}
