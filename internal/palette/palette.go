// Package palette holds the color palettes behind the built-in themes and
// converts them to SGR sequences for a given terminal color depth.
package palette

import (
	"math"
	"strconv"
	"strings"
)

// SGR attribute sequences.
const (
	Reset     = "\x1b[0m"
	Bold      = "\x1b[1m"
	Dim       = "\x1b[2m"
	Italic    = "\x1b[3m"
	Underline = "\x1b[4m"
	Strike    = "\x1b[9m"
)

// Level is the color depth supported by a terminal.
type Level uint8

const (
	LevelNone Level = iota
	Level16
	Level256
	LevelTrueColor
)

// ParseLevel parses none|16|256|truecolor.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "0", "off":
		return LevelNone, true
	case "16", "1", "basic":
		return Level16, true
	case "256", "2":
		return Level256, true
	case "truecolor", "24bit", "3":
		return LevelTrueColor, true
	}
	return LevelNone, false
}

// Palette maps semantic roles to "#rrggbb" colors. Empty roles stay
// unstyled.
type Palette struct {
	Text          string
	H1            string
	H2            string
	H3            string
	H4            string
	H5            string
	H6            string
	Emphasis      string
	Strong        string
	Strike        string
	CodeInline    string
	CodeBg        string
	CodeBlock     string
	Quote         string
	ListMarker    string
	LinkText      string
	LinkURL       string
	ThematicBreak string
}

// FG returns the foreground sequence for hex at level.
func FG(hex string, level Level) string {
	return color(hex, level, false)
}

// BG returns the background sequence for hex at level.
func BG(hex string, level Level) string {
	return color(hex, level, true)
}

func color(hex string, level Level, bg bool) string {
	if hex == "" || level == LevelNone {
		return ""
	}
	r, g, b, ok := parseHex(hex)
	if !ok {
		return ""
	}
	switch level {
	case LevelTrueColor:
		base := "38;2;"
		if bg {
			base = "48;2;"
		}
		return "\x1b[" + base + strconv.Itoa(r) + ";" + strconv.Itoa(g) + ";" + strconv.Itoa(b) + "m"
	case Level256:
		base := "38;5;"
		if bg {
			base = "48;5;"
		}
		return "\x1b[" + base + strconv.Itoa(rgbToAnsi256(r, g, b)) + "m"
	default:
		code := ansi256ToAnsi16(rgbToAnsi256(r, g, b))
		if bg {
			code += 10
		}
		return "\x1b[" + strconv.Itoa(code) + "m"
	}
}

func parseHex(hex string) (int, int, int, bool) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true
}

func rgbToAnsi256(r, g, b int) int {
	if r == g && g == b {
		if r < 8 {
			return 16
		}
		if r > 248 {
			return 231
		}
		return int(math.Round(float64(r-8)/247*24)) + 232
	}
	return 16 +
		36*int(math.Round(float64(r)/255*5)) +
		6*int(math.Round(float64(g)/255*5)) +
		int(math.Round(float64(b)/255*5))
}

func ansi256ToAnsi16(code int) int {
	if code < 8 {
		return 30 + code
	}
	if code < 16 {
		return 90 + (code - 8)
	}
	var r, g, b float64
	if code >= 232 {
		v := (float64(code-232)*10 + 8) / 255
		r, g, b = v, v, v
	} else {
		c := code - 16
		rem := c % 36
		r = math.Floor(float64(c)/36) / 5
		g = math.Floor(float64(rem)/6) / 5
		b = float64(rem%6) / 5
	}
	value := math.Max(r, math.Max(g, b)) * 2
	if value == 0 {
		return 30
	}
	result := 30 + (int(math.Round(b))<<2 | int(math.Round(g))<<1 | int(math.Round(r)))
	if math.Round(value) == 2 {
		result += 60
	}
	return result
}

var (
	PaletteDefault = Palette{
		H1:            "#ff5f87",
		H2:            "#ffaf5f",
		H3:            "#ffd75f",
		H4:            "#87d787",
		H5:            "#5fafff",
		H6:            "#af87ff",
		Strong:        "#ffffff",
		CodeInline:    "#ffaf87",
		CodeBg:        "#303030",
		CodeBlock:     "#d0d0d0",
		Quote:         "#8a8a8a",
		ListMarker:    "#5fd7ff",
		LinkText:      "#5fafff",
		LinkURL:       "#6c6c6c",
		ThematicBreak: "#585858",
	}
	PaletteDracula = Palette{
		Text:          "#f8f8f2",
		H1:            "#ff79c6",
		H2:            "#bd93f9",
		H3:            "#8be9fd",
		H4:            "#50fa7b",
		H5:            "#f1fa8c",
		H6:            "#ffb86c",
		Emphasis:      "#f1fa8c",
		Strong:        "#ffb86c",
		Strike:        "#6272a4",
		CodeInline:    "#50fa7b",
		CodeBg:        "#44475a",
		CodeBlock:     "#f8f8f2",
		Quote:         "#6272a4",
		ListMarker:    "#ff79c6",
		LinkText:      "#8be9fd",
		LinkURL:       "#6272a4",
		ThematicBreak: "#6272a4",
	}
	PaletteNord = Palette{
		Text:          "#d8dee9",
		H1:            "#88c0d0",
		H2:            "#81a1c1",
		H3:            "#5e81ac",
		H4:            "#a3be8c",
		H5:            "#ebcb8b",
		H6:            "#b48ead",
		Emphasis:      "#e5e9f0",
		Strong:        "#eceff4",
		Strike:        "#4c566a",
		CodeInline:    "#a3be8c",
		CodeBg:        "#3b4252",
		CodeBlock:     "#e5e9f0",
		Quote:         "#616e88",
		ListMarker:    "#88c0d0",
		LinkText:      "#8fbcbb",
		LinkURL:       "#4c566a",
		ThematicBreak: "#4c566a",
	}
	PaletteGruvbox = Palette{
		Text:          "#ebdbb2",
		H1:            "#fb4934",
		H2:            "#fe8019",
		H3:            "#fabd2f",
		H4:            "#b8bb26",
		H5:            "#83a598",
		H6:            "#d3869b",
		Emphasis:      "#d5c4a1",
		Strong:        "#fbf1c7",
		Strike:        "#928374",
		CodeInline:    "#8ec07c",
		CodeBg:        "#3c3836",
		CodeBlock:     "#ebdbb2",
		Quote:         "#928374",
		ListMarker:    "#fe8019",
		LinkText:      "#83a598",
		LinkURL:       "#928374",
		ThematicBreak: "#665c54",
	}
	PaletteGruvboxLight = Palette{
		Text:          "#3c3836",
		H1:            "#9d0006",
		H2:            "#af3a03",
		H3:            "#b57614",
		H4:            "#79740e",
		H5:            "#076678",
		H6:            "#8f3f71",
		Emphasis:      "#504945",
		Strong:        "#282828",
		Strike:        "#928374",
		CodeInline:    "#427b58",
		CodeBg:        "#ebdbb2",
		CodeBlock:     "#3c3836",
		Quote:         "#7c6f64",
		ListMarker:    "#af3a03",
		LinkText:      "#076678",
		LinkURL:       "#928374",
		ThematicBreak: "#bdae93",
	}
	PaletteSolarizedDark = Palette{
		Text:          "#839496",
		H1:            "#cb4b16",
		H2:            "#b58900",
		H3:            "#859900",
		H4:            "#2aa198",
		H5:            "#268bd2",
		H6:            "#6c71c4",
		Emphasis:      "#93a1a1",
		Strong:        "#eee8d5",
		Strike:        "#586e75",
		CodeInline:    "#2aa198",
		CodeBg:        "#073642",
		CodeBlock:     "#93a1a1",
		Quote:         "#586e75",
		ListMarker:    "#b58900",
		LinkText:      "#268bd2",
		LinkURL:       "#586e75",
		ThematicBreak: "#586e75",
	}
	PaletteSolarizedLight = Palette{
		Text:          "#657b83",
		H1:            "#cb4b16",
		H2:            "#b58900",
		H3:            "#859900",
		H4:            "#2aa198",
		H5:            "#268bd2",
		H6:            "#6c71c4",
		Emphasis:      "#586e75",
		Strong:        "#073642",
		Strike:        "#93a1a1",
		CodeInline:    "#2aa198",
		CodeBg:        "#eee8d5",
		CodeBlock:     "#586e75",
		Quote:         "#93a1a1",
		ListMarker:    "#b58900",
		LinkText:      "#268bd2",
		LinkURL:       "#93a1a1",
		ThematicBreak: "#93a1a1",
	}
	PaletteTokyoNight = Palette{
		Text:          "#c0caf5",
		H1:            "#f7768e",
		H2:            "#ff9e64",
		H3:            "#e0af68",
		H4:            "#9ece6a",
		H5:            "#7aa2f7",
		H6:            "#bb9af7",
		Emphasis:      "#a9b1d6",
		Strong:        "#c0caf5",
		Strike:        "#565f89",
		CodeInline:    "#73daca",
		CodeBg:        "#24283b",
		CodeBlock:     "#a9b1d6",
		Quote:         "#565f89",
		ListMarker:    "#7dcfff",
		LinkText:      "#7aa2f7",
		LinkURL:       "#565f89",
		ThematicBreak: "#3b4261",
	}
	PaletteCatppuccinMocha = Palette{
		Text:          "#cdd6f4",
		H1:            "#f38ba8",
		H2:            "#fab387",
		H3:            "#f9e2af",
		H4:            "#a6e3a1",
		H5:            "#89b4fa",
		H6:            "#cba6f7",
		Emphasis:      "#f5c2e7",
		Strong:        "#f5e0dc",
		Strike:        "#6c7086",
		CodeInline:    "#a6e3a1",
		CodeBg:        "#313244",
		CodeBlock:     "#cdd6f4",
		Quote:         "#7f849c",
		ListMarker:    "#89dceb",
		LinkText:      "#89b4fa",
		LinkURL:       "#6c7086",
		ThematicBreak: "#45475a",
	}
	PaletteGithubLight = Palette{
		Text:          "#24292f",
		H1:            "#0550ae",
		H2:            "#0550ae",
		H3:            "#0a3069",
		H4:            "#116329",
		H5:            "#8250df",
		H6:            "#57606a",
		Emphasis:      "#24292f",
		Strong:        "#1f2328",
		Strike:        "#6e7781",
		CodeInline:    "#cf222e",
		CodeBg:        "#f6f8fa",
		CodeBlock:     "#24292f",
		Quote:         "#57606a",
		ListMarker:    "#0969da",
		LinkText:      "#0969da",
		LinkURL:       "#6e7781",
		ThematicBreak: "#d0d7de",
	}
	PaletteGithubDark = Palette{
		Text:          "#c9d1d9",
		H1:            "#79c0ff",
		H2:            "#79c0ff",
		H3:            "#a5d6ff",
		H4:            "#7ee787",
		H5:            "#d2a8ff",
		H6:            "#8b949e",
		Emphasis:      "#c9d1d9",
		Strong:        "#f0f6fc",
		Strike:        "#8b949e",
		CodeInline:    "#ff7b72",
		CodeBg:        "#161b22",
		CodeBlock:     "#c9d1d9",
		Quote:         "#8b949e",
		ListMarker:    "#58a6ff",
		LinkText:      "#58a6ff",
		LinkURL:       "#8b949e",
		ThematicBreak: "#30363d",
	}
)
