package palette

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestColorLevels(t *testing.T) {
	tests := []struct {
		hex   string
		level Level
		fg    string
		bg    string
	}{
		{"#ff0000", LevelTrueColor, "\x1b[38;2;255;0;0m", "\x1b[48;2;255;0;0m"},
		{"#ff0000", Level256, "\x1b[38;5;196m", "\x1b[48;5;196m"},
		{"#ff0000", Level16, "\x1b[91m", "\x1b[101m"},
		{"#808080", Level256, "\x1b[38;5;244m", "\x1b[48;5;244m"},
		{"#ff0000", LevelNone, "", ""},
		{"", LevelTrueColor, "", ""},
		{"#zzz", LevelTrueColor, "", ""},
	}
	for _, tc := range tests {
		require.Equal(t, tc.fg, FG(tc.hex, tc.level), "%s at %d", tc.hex, tc.level)
		require.Equal(t, tc.bg, BG(tc.hex, tc.level), "%s at %d", tc.hex, tc.level)
	}
}

func TestParseLevel(t *testing.T) {
	lvl, ok := ParseLevel(" 256 ")
	require.True(t, ok)
	require.Equal(t, Level256, lvl)
	_, ok = ParseLevel("million")
	require.False(t, ok)
}
