package mdstream

import (
	"sort"
	"strings"

	"pkt.systems/mdstream/internal/palette"
)

// ColorLevel is the color depth used when a theme is turned into escape
// sequences.
type ColorLevel = palette.Level

const (
	ColorNone      = palette.LevelNone
	Color16        = palette.Level16
	Color256       = palette.Level256
	ColorTrueColor = palette.LevelTrueColor
)

// ParseColorLevel parses none|16|256|truecolor.
func ParseColorLevel(s string) (ColorLevel, bool) {
	return palette.ParseLevel(s)
}

// Style describes a terminal style as an ANSI prefix sequence.
type Style struct {
	Prefix string
}

// Styles groups the semantic styles used by the terminal renderer.
type Styles struct {
	Text          Style
	Heading       [6]Style
	Emphasis      Style
	Strong        Style
	Strike        Style
	CodeInline    Style
	CodeBlock     Style
	Quote         Style
	ListMarker    Style
	Checkbox      Style
	LinkText      Style
	LinkURL       Style
	ThematicBreak Style
}

// Theme provides named styles for Markdown rendering.
type Theme interface {
	Name() string
	Styles() Styles
}

type theme struct {
	name   string
	styles Styles
}

func (t theme) Name() string   { return t.name }
func (t theme) Styles() Styles { return t.styles }

// NewTheme returns a Theme from a Styles definition.
func NewTheme(name string, styles Styles) Theme {
	return theme{name: name, styles: styles}
}

// paletteTheme derives its styles from a palette at a color depth.
type paletteTheme struct {
	name  string
	p     palette.Palette
	level palette.Level
}

func (t paletteTheme) Name() string   { return t.name }
func (t paletteTheme) Styles() Styles { return stylesFromPalette(t.p, t.level) }

// ThemeAtLevel returns t rendered for the given color depth. Built-in themes
// are re-derived from their palette; custom themes are kept as they are,
// except at ColorNone where every style is dropped.
func ThemeAtLevel(t Theme, level ColorLevel) Theme {
	if pt, ok := t.(paletteTheme); ok {
		pt.level = level
		return pt
	}
	if level == ColorNone && t != nil {
		return theme{name: t.Name()}
	}
	return t
}

func style(prefixes ...string) Style {
	var b strings.Builder
	for _, p := range prefixes {
		if p != "" {
			b.WriteString(p)
		}
	}
	return Style{Prefix: b.String()}
}

func stylesFromPalette(p palette.Palette, level palette.Level) Styles {
	if level == palette.LevelNone {
		return Styles{}
	}
	fg := func(hex string) string { return palette.FG(hex, level) }
	return Styles{
		Text: style(fg(p.Text)),
		Heading: [6]Style{
			style(palette.Bold, fg(p.H1)),
			style(palette.Bold, fg(p.H2)),
			style(palette.Bold, fg(p.H3)),
			style(fg(p.H4)),
			style(fg(p.H5)),
			style(fg(p.H6)),
		},
		Emphasis:      style(palette.Italic, fg(p.Emphasis)),
		Strong:        style(palette.Bold, fg(p.Strong)),
		Strike:        style(palette.Strike, fg(p.Strike)),
		CodeInline:    style(fg(p.CodeInline), palette.BG(p.CodeBg, level)),
		CodeBlock:     style(fg(p.CodeBlock), palette.BG(p.CodeBg, level)),
		Quote:         style(fg(p.Quote)),
		ListMarker:    style(fg(p.ListMarker)),
		Checkbox:      style(palette.Bold, fg(p.ListMarker)),
		LinkText:      style(palette.Underline, fg(p.LinkText)),
		LinkURL:       style(fg(p.LinkURL)),
		ThematicBreak: style(fg(p.ThematicBreak)),
	}
}

func builtin(name string, p palette.Palette) Theme {
	return paletteTheme{name: name, p: p, level: palette.LevelTrueColor}
}

var builtinThemes = map[string]Theme{
	"default":          builtin("default", palette.PaletteDefault),
	"dracula":          builtin("dracula", palette.PaletteDracula),
	"nord":             builtin("nord", palette.PaletteNord),
	"gruvbox":          builtin("gruvbox", palette.PaletteGruvbox),
	"gruvbox-light":    builtin("gruvbox-light", palette.PaletteGruvboxLight),
	"solarized-dark":   builtin("solarized-dark", palette.PaletteSolarizedDark),
	"solarized-light":  builtin("solarized-light", palette.PaletteSolarizedLight),
	"tokyo-night":      builtin("tokyo-night", palette.PaletteTokyoNight),
	"catppuccin-mocha": builtin("catppuccin-mocha", palette.PaletteCatppuccinMocha),
	"github-light":     builtin("github-light", palette.PaletteGithubLight),
	"github-dark":      builtin("github-dark", palette.PaletteGithubDark),
}

// AvailableThemes returns the names of built-in themes.
func AvailableThemes() []string {
	names := make([]string, 0, len(builtinThemes))
	for name := range builtinThemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ThemeByName returns a built-in theme by name.
func ThemeByName(name string) (Theme, bool) {
	if name == "" {
		return builtinThemes["default"], true
	}
	normalized := strings.ToLower(strings.TrimSpace(name))
	theme, ok := builtinThemes[normalized]
	return theme, ok
}

// DefaultTheme returns the default built-in theme.
func DefaultTheme() Theme {
	return builtinThemes["default"]
}
